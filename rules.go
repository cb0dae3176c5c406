package borrowck

import (
	"github.com/BarrensZeppelin/borrowck/diag"
	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/yourbasic/graph"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Each rule family below scans every reachable instruction once and returns
// the first violation it finds.

func checkInitialization(body *mir.Body, cfg *dataflow.CFG, uninit *UninitPlaces) error {
	for l, st := range body.Code {
		lbl := mir.Label(l)
		if !cfg.Reachable(lbl) {
			continue
		}

		if dst, ok := mir.Destination(st.Instr); ok {
			if err := checkWriteTarget(body, st.Loc, lbl, uninit, dst); err != nil {
				return err
			}
		}

		reads := mir.Operands(st.Instr)
		if _, ok := st.Instr.(mir.Return); ok {
			reads = append(reads, mir.PlaceOf(body.ReturnLocal()))
		}
		for _, p := range reads {
			if uninit.NotFullyInit(lbl, p) {
				return diag.Errorf(st.Loc, diag.UninitUse,
					"use of %s, which is not fully initialized here", body.FormatPlace(p))
			}
		}
	}
	return nil
}

// checkWriteTarget requires the owners of a written place to exist. Every
// struct whose field is written, up to the first dereference, must itself be
// initialized; a field that was moved out may be written again. Writing
// through a pointer requires the pointer to be fully initialized.
func checkWriteTarget(body *mir.Body, loc mir.Loc, lbl mir.Label, uninit *UninitPlaces, dst mir.Place) error {
	for p := dst; ; {
		parent, proj, ok := p.Parent()
		if !ok || proj.Kind != mir.FieldProj {
			break
		}
		if uninit.IsUninit(lbl, parent) {
			return diag.Errorf(loc, diag.UninitWrite,
				"cannot write to %s: %s is not initialized",
				body.FormatPlace(dst), body.FormatPlace(parent))
		}
		p = parent
	}

	if base, ok := dst.DerefBase(); ok && uninit.NotFullyInit(lbl, base) {
		return diag.Errorf(loc, diag.UninitWrite,
			"cannot write to %s: %s is not fully initialized",
			body.FormatPlace(dst), body.FormatPlace(base))
	}
	return nil
}

func checkMutability(body *mir.Body, cfg *dataflow.CFG) error {
	for l, st := range body.Code {
		if !cfg.Reachable(mir.Label(l)) {
			continue
		}

		if asg, ok := st.Instr.(mir.Assign); ok {
			if r, ok := asg.Src.(mir.Borrow); ok && r.Mut == mir.Mut && !body.PlaceMutable(r.Place) {
				return diag.Errorf(st.Loc, diag.MutBorrowOfShared,
					"cannot borrow %s as mutable, as it is behind a shared borrow", body.FormatPlace(r.Place))
			}
		}

		if dst, ok := mir.Destination(st.Instr); ok && !body.PlaceMutable(dst) {
			return diag.Errorf(st.Loc, diag.SharedWrite,
				"cannot write to %s, which is behind a shared borrow", body.FormatPlace(dst))
		}
	}
	return nil
}

// declaredOutlives returns the reflexive and transitive closure of the
// outlives graph declared by the signature.
func declaredOutlives(body *mir.Body) map[mir.Lifetime]map[mir.Lifetime]bool {
	index := make(map[mir.Lifetime]int, len(body.Generics))
	for i, g := range body.Generics {
		index[g] = i
	}

	gr := graph.New(len(body.Generics))
	for long, shorts := range body.Outlives {
		from, ok := index[long]
		if !ok {
			continue
		}
		for _, short := range shorts {
			if to, ok := index[short]; ok {
				gr.Add(from, to)
			}
		}
	}

	closure := make(map[mir.Lifetime]map[mir.Lifetime]bool, len(body.Generics))
	for i, g := range body.Generics {
		reach := map[mir.Lifetime]bool{g: true}
		graph.BFS(gr, i, func(_, w int, _ int64) {
			reach[body.Generics[w]] = true
		})
		closure[g] = reach
	}
	return closure
}

// checkSignature rejects functions whose body needs a generic lifetime to be
// alive when the caller-side region of another generic lifetime is, without
// the signature declaring that the former outlives the latter.
func checkSignature(body *mir.Body, lifetimes *LifetimeSets) error {
	declared := declaredOutlives(body)
	for _, g := range body.Generics {
		for _, p := range lifetimes.Points(g) {
			if !p.InCaller || declared[g][p.Caller] {
				continue
			}
			return diag.Errorf(body.Loc, diag.MissingOutlives,
				"lifetime %v must outlive %v, but %s only declares %v: %v",
				g, p.Caller, body.Name, g, sortedLifetimes(declared[g]))
		}
	}
	return nil
}

type aliasChecker struct {
	body   *mir.Body
	loc    mir.Loc
	active []BorrowInfo
}

func (c *aliasChecker) copyable(p mir.Place) bool {
	return c.body.Prog.Copyable(c.body.TypeOf(p))
}

// use checks a read of p. Mutable borrows conflict with every use of an
// overlapping place, shared borrows only with moves.
func (c *aliasChecker) use(p mir.Place) error {
	move := !c.copyable(p)
	if move && p.HasDeref() {
		return diag.Errorf(c.loc, diag.MoveOutOfBorrow,
			"cannot move out of %s, which is behind a borrow", c.body.FormatPlace(p))
	}
	for _, b := range c.active {
		if mir.Overlap(p, b.Place) && (b.Mut == mir.Mut || move) {
			return diag.Errorf(c.loc, diag.UseWhileBorrowed,
				"cannot use %s because it is borrowed by %s",
				c.body.FormatPlace(p), c.describe(b))
		}
	}
	return nil
}

// borrow checks the creation of a new borrow of p.
func (c *aliasChecker) borrow(p mir.Place, m mir.Mutability) error {
	for _, b := range c.active {
		if mir.Overlap(p, b.Place) && (b.Mut == mir.Mut || m == mir.Mut) {
			return diag.Errorf(c.loc, diag.BorrowConflict,
				"cannot borrow %s as %v because it is also borrowed by %s",
				c.body.FormatPlace(p), m, c.describe(b))
		}
	}
	return nil
}

// write checks an assignment to p. It conflicts with borrows of p or of any
// part of p, and with borrows of places containing p in their own storage.
func (c *aliasChecker) write(p mir.Place, kind diag.Kind) error {
	for _, b := range c.active {
		if mir.IsSubplace(p, b.Place) || mir.IsSubplaceNoDeref(b.Place, p) {
			return diag.Errorf(c.loc, kind,
				"cannot assign to %s because it is borrowed by %s",
				c.body.FormatPlace(p), c.describe(b))
		}
	}
	return nil
}

// release checks that no active borrow points into the storage of local x,
// which is about to disappear.
func (c *aliasChecker) release(x mir.LocalID, kind diag.Kind, what string) error {
	for _, b := range c.active {
		if mir.IsSubplaceNoDeref(b.Place, mir.PlaceOf(x)) {
			return diag.Errorf(c.loc, kind, "%s %s while it is still borrowed by %s",
				what, c.body.Locals[x].Name, c.describe(b))
		}
	}
	return nil
}

func (c *aliasChecker) describe(b BorrowInfo) string {
	return "the borrow of " + c.body.FormatPlace(b.Place) + " at " + c.body.Code[b.Label].Loc.String()
}

func (c *aliasChecker) instr(insn mir.Instr) error {
	switch i := insn.(type) {
	case mir.Assign:
		if r, ok := i.Src.(mir.Borrow); ok {
			if err := c.borrow(r.Place, r.Mut); err != nil {
				return err
			}
		} else {
			for _, p := range mir.Operands(i) {
				if err := c.use(p); err != nil {
					return err
				}
			}
		}
		return c.write(i.Dst, diag.AssignBorrowed)

	case mir.Call:
		for _, p := range mir.Operands(i) {
			if err := c.use(p); err != nil {
				return err
			}
		}
		return c.write(i.Dst, diag.CallDestBorrowed)

	case mir.If:
		return c.use(mir.PlaceOf(i.Cond))

	case mir.Deinit:
		return c.release(i.Local, diag.DeinitBorrowed, "local")

	case mir.Return:
		for _, x := range c.body.Params() {
			if err := c.release(x, diag.ReturnBorrowedParam, "returning while parameter"); err != nil {
				return err
			}
		}
		return c.use(mir.PlaceOf(c.body.ReturnLocal()))
	}
	return nil
}

func checkAliasing(body *mir.Body, cfg *dataflow.CFG, borrows *ActiveBorrows) error {
	for l, st := range body.Code {
		lbl := mir.Label(l)
		if !cfg.Reachable(lbl) {
			continue
		}
		c := &aliasChecker{body: body, loc: st.Loc, active: borrows.At(lbl)}
		if err := c.instr(st.Instr); err != nil {
			return err
		}
	}
	return nil
}

// sortedLifetimes orders lifetimes for deterministic output.
func sortedLifetimes(m map[mir.Lifetime]bool) []mir.Lifetime {
	res := maps.Keys(m)
	slices.SortFunc(res, func(a, b mir.Lifetime) bool {
		if a.Fresh != b.Fresh {
			return a.Fresh < b.Fresh
		}
		return a.Name < b.Name
	})
	return res
}
