package borrowck

import (
	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/internal/slices"
	"github.com/BarrensZeppelin/borrowck/mir"
	"golang.org/x/tools/container/intsets"
)

// placeIndex numbers the places tracked by the initialization analysis.
// The tracked set contains every place occurring in the body, all of their
// prefixes, and the sibling fields of every field projection among them.
type placeIndex struct {
	body   *mir.Body
	places []mir.Place
	ids    map[string]int

	// subplaces[i] lists the tracked subplaces of place i, itself included.
	subplaces [][]int
}

func (ix *placeIndex) add(p mir.Place) int {
	if id, ok := ix.ids[p.Key()]; ok {
		return id
	}
	id := len(ix.places)
	ix.ids[p.Key()] = id
	ix.places = append(ix.places, p)
	return id
}

func (ix *placeIndex) id(p mir.Place) (int, bool) {
	id, ok := ix.ids[p.Key()]
	return id, ok
}

// addWithPrefixes tracks p, every prefix of p and the siblings of each field
// projection on the way.
func (ix *placeIndex) addWithPrefixes(p mir.Place) {
	for {
		ix.add(p)
		parent, proj, ok := p.Parent()
		if !ok {
			return
		}
		if proj.Kind == mir.FieldProj {
			st := ix.body.TypeOf(parent).(mir.StructType)
			for f := range ix.body.Prog.Struct(st.Name).Fields {
				ix.add(parent.Field(f))
			}
		}
		p = parent
	}
}

func newPlaceIndex(body *mir.Body) *placeIndex {
	ix := &placeIndex{body: body, ids: make(map[string]int)}

	for l := range body.Locals {
		ix.add(mir.PlaceOf(mir.LocalID(l)))
	}
	for _, st := range body.Code {
		for _, p := range mir.Operands(st.Instr) {
			ix.addWithPrefixes(p)
		}
		if dst, ok := mir.Destination(st.Instr); ok {
			ix.addWithPrefixes(dst)
		}
	}

	ix.subplaces = make([][]int, len(ix.places))
	for i, p := range ix.places {
		for j, q := range ix.places {
			if mir.IsSubplace(q, p) {
				ix.subplaces[i] = append(ix.subplaces[i], j)
			}
		}
	}
	return ix
}

// UninitPlaces maps every reachable label to the tracked places that may be
// uninitialized before its instruction on some path from the entry.
type UninitPlaces struct {
	index *placeIndex
	res   *dataflow.Result[*intsets.Sparse]
}

// At returns the uninitialized places before the instruction at l.
func (u *UninitPlaces) At(l mir.Label) []mir.Place {
	s, ok := u.res.At(l)
	if !ok {
		return nil
	}
	var res []mir.Place
	for _, i := range s.AppendTo(nil) {
		res = append(res, u.index.places[i])
	}
	return res
}

// IsUninit reports whether p itself is in the uninitialized set at l.
func (u *UninitPlaces) IsUninit(l mir.Label, p mir.Place) bool {
	s, ok := u.res.At(l)
	if !ok {
		return false
	}
	id, ok := u.index.id(p)
	return ok && s.Has(id)
}

// NotFullyInit reports whether p or any part of it may be uninitialized at l.
func (u *UninitPlaces) NotFullyInit(l mir.Label, p mir.Place) bool {
	s, ok := u.res.At(l)
	if !ok {
		return false
	}
	if id, ok := u.index.id(p); ok {
		for _, sub := range u.index.subplaces[id] {
			if s.Has(sub) {
				return true
			}
		}
		return false
	}
	return slices.Exists(s.AppendTo(nil), func(i int) bool {
		return mir.IsSubplace(u.index.places[i], p)
	})
}

type uninitAnalysis struct {
	body  *mir.Body
	index *placeIndex
}

func (a *uninitAnalysis) deinit(s *intsets.Sparse, p mir.Place) {
	id, _ := a.index.id(p)
	for _, sub := range a.index.subplaces[id] {
		s.Insert(sub)
	}
}

// init clears p and its subplaces. A struct place whose fields have all been
// initialized becomes initialized itself.
func (a *uninitAnalysis) init(s *intsets.Sparse, p mir.Place) {
	id, _ := a.index.id(p)
	for _, sub := range a.index.subplaces[id] {
		s.Remove(sub)
	}

	for {
		parent, proj, ok := p.Parent()
		if !ok || proj.Kind != mir.FieldProj {
			return
		}
		st := a.body.TypeOf(parent).(mir.StructType)
		for f := range a.body.Prog.Struct(st.Name).Fields {
			fid, _ := a.index.id(parent.Field(f))
			if s.Has(fid) {
				return
			}
		}
		pid, _ := a.index.id(parent)
		s.Remove(pid)
		p = parent
	}
}

// move deinitializes p unless its type is copyable.
func (a *uninitAnalysis) move(s *intsets.Sparse, p mir.Place) {
	if !a.body.Prog.Copyable(a.body.TypeOf(p)) {
		a.deinit(s, p)
	}
}

func (a *uninitAnalysis) transfer(l mir.Label, in *intsets.Sparse) *intsets.Sparse {
	out := dataflow.Clone(in)

	switch i := a.body.Instr(l).(type) {
	case mir.Assign:
		// Borrowing is not a use that consumes the place.
		if _, ok := i.Src.(mir.Borrow); !ok {
			for _, p := range mir.Operands(i) {
				a.move(out, p)
			}
		}
		a.init(out, i.Dst)

	case mir.Call:
		for _, p := range mir.Operands(i) {
			a.move(out, p)
		}
		a.init(out, i.Dst)

	case mir.Deinit:
		a.deinit(out, mir.PlaceOf(i.Local))

	case mir.If:
		a.deinit(out, mir.PlaceOf(i.Cond))
	}

	return out
}

func computeUninit(body *mir.Body, cfg *dataflow.CFG) *UninitPlaces {
	a := &uninitAnalysis{body: body, index: newPlaceIndex(body)}

	entry := new(intsets.Sparse)
	for i, p := range a.index.places {
		if body.Locals[p.Local].Kind != mir.LocalParam {
			entry.Insert(i)
		}
	}

	res := dataflow.Forward(cfg, dataflow.SetProblem(entry, a.transfer))
	return &UninitPlaces{index: a.index, res: res}
}
