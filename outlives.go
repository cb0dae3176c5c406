package borrowck

import (
	"fmt"
	"log"

	"github.com/BarrensZeppelin/borrowck/mir"
)

// OutlivesGraph is a directed graph over lifetime variables. An edge from
// long to short records that long must outlive short.
type OutlivesGraph struct {
	ids   map[mir.Lifetime]int64
	lfts  []mir.Lifetime
	edges map[int64]map[int64]bool
}

func NewOutlivesGraph() *OutlivesGraph {
	return &OutlivesGraph{
		ids:   make(map[mir.Lifetime]int64),
		edges: make(map[int64]map[int64]bool),
	}
}

// node returns the id of l, registering it if necessary. Ids are assigned
// densely in order of registration.
func (g *OutlivesGraph) node(l mir.Lifetime) int64 {
	if id, ok := g.ids[l]; ok {
		return id
	}
	id := int64(len(g.lfts))
	g.ids[l] = id
	g.lfts = append(g.lfts, l)
	return id
}

// Add records that long outlives short.
func (g *OutlivesGraph) Add(long, short mir.Lifetime) {
	a, b := g.node(long), g.node(short)
	if a == b {
		return
	}
	if g.edges[a] == nil {
		g.edges[a] = make(map[int64]bool)
	}
	g.edges[a][b] = true
}

// Outlives reports whether the graph has a direct edge from long to short.
func (g *OutlivesGraph) Outlives(long, short mir.Lifetime) bool {
	a, ok1 := g.ids[long]
	b, ok2 := g.ids[short]
	return ok1 && ok2 && g.edges[a][b]
}

// Lifetimes returns the registered lifetimes in registration order.
func (g *OutlivesGraph) Lifetimes() []mir.Lifetime { return g.lfts }

// Shorter returns the lifetimes directly outlived by l.
func (g *OutlivesGraph) Shorter(l mir.Lifetime) []mir.Lifetime {
	id, ok := g.ids[l]
	if !ok {
		return nil
	}
	var res []mir.Lifetime
	for _, other := range g.sortedSucc(id) {
		res = append(res, g.lfts[other])
	}
	return res
}

func (g *OutlivesGraph) sortedSucc(id int64) []int64 {
	var res []int64
	for i := range g.lfts {
		if g.edges[id][int64(i)] {
			res = append(res, int64(i))
		}
	}
	return res
}

func (g *OutlivesGraph) NumEdges() int {
	n := 0
	for _, succ := range g.edges {
		n += len(succ)
	}
	return n
}

// unifier walks a body once and records in an outlives graph every
// constraint its instructions impose on lifetimes.
type unifier struct {
	body  *mir.Body
	gen   *mir.LifetimeGen
	graph *OutlivesGraph
}

func unificationError(a, b mir.Type) error {
	return fmt.Errorf("unable to unify types %v (%T) and %v (%T)", a, a, b, b)
}

func checkLen[L1 ~[]T1, L2 ~[]T2, T1, T2 any](a L1, b L2, msg string) {
	if len(a) != len(b) {
		log.Panicf("%s: %v (%d) != %v (%d)", msg, a, len(a), b, len(b))
	}
}

func (u *unifier) unifyLifetimes(a, b mir.Lifetime) {
	u.graph.Add(a, b)
	u.graph.Add(b, a)
}

// unify equates two types of the same shape by making their lifetimes
// outlive each other pairwise. Differently shaped types mean the body is
// ill-typed.
func (u *unifier) unify(a, b mir.Type) {
	switch x := a.(type) {
	case mir.UnitType, mir.IntType, mir.BoolType:
		if fmt.Sprintf("%T", a) != fmt.Sprintf("%T", b) {
			panic(unificationError(a, b))
		}
	case mir.BorrowType:
		y, ok := b.(mir.BorrowType)
		if !ok {
			panic(unificationError(a, b))
		}
		u.unifyLifetimes(x.Lifetime, y.Lifetime)
		u.unify(x.Elem, y.Elem)
	case mir.StructType:
		y, ok := b.(mir.StructType)
		if !ok || x.Name != y.Name {
			panic(unificationError(a, b))
		}
		checkLen(x.Lifetimes, y.Lifetimes, "Number of lifetime arguments don't match")
		for i, l := range x.Lifetimes {
			u.unifyLifetimes(l, y.Lifetimes[i])
		}
	default:
		log.Panicf("Unification of %T not implemented", x)
	}
}

func (u *unifier) localType(l mir.LocalID) mir.Type {
	return u.body.Locals[l].Type
}

func (u *unifier) addOutlives(os []mir.Outlives) {
	for _, o := range os {
		u.graph.Add(o.Long, o.Short)
	}
}

// buildOutlives computes the outlives graph of a body.
func buildOutlives(body *mir.Body, gen *mir.LifetimeGen) *OutlivesGraph {
	u := &unifier{body: body, gen: gen, graph: NewOutlivesGraph()}

	for _, g := range body.Generics {
		u.graph.node(g)
	}

	// Well-formedness of the declared types.
	for _, l := range body.Locals {
		for _, lft := range mir.FreeLifetimes(l.Type) {
			u.graph.node(lft)
		}
		u.addOutlives(body.Prog.ImpliedOutlives(l.Type))
	}

	for _, st := range body.Code {
		u.instr(st.Instr)
	}

	return u.graph
}

func (u *unifier) instr(insn mir.Instr) {
	prog := u.body.Prog

	switch i := insn.(type) {
	case mir.Assign:
		switch r := i.Src.(type) {
		case mir.Use:
			u.unify(u.body.TypeOf(i.Dst), u.body.TypeOf(r.Place))

		case mir.Borrow:
			bt, ok := u.body.TypeOf(i.Dst).(mir.BorrowType)
			if !ok {
				log.Panicf("borrow assigned to %v of non-borrow type %v", i.Dst, u.body.TypeOf(i.Dst))
			}
			u.unify(bt.Elem, u.body.TypeOf(r.Place))

			// Reborrows: the new borrow cannot outlive anything the borrowed
			// place is reached through, at any nesting depth.
			for _, l := range mir.FreeLifetimes(u.localType(r.Place.Local)) {
				u.graph.Add(l, bt.Lifetime)
			}

		case mir.MakeStruct:
			st, fields := prog.InstantiateStruct(u.gen, r.Name)
			checkLen(fields, r.Args, "Number of struct fields don't match")
			for k, arg := range r.Args {
				u.unify(fields[k], u.localType(arg))
			}
			u.unify(u.body.TypeOf(i.Dst), st)

		case mir.Const, mir.UnitValue, mir.UnOp, mir.BinOp:

		default:
			log.Panicf("Unhandled rvalue: %T %v", r, r)
		}

	case mir.Call:
		params, ret, outlives := prog.Func(i.Func).Instantiate(u.gen)
		u.addOutlives(outlives)
		for _, p := range params {
			u.addOutlives(prog.ImpliedOutlives(p))
		}
		u.addOutlives(prog.ImpliedOutlives(ret))
		checkLen(params, i.Args, "Argument lengths don't match")
		for k, arg := range i.Args {
			u.unify(params[k], u.localType(arg))
		}
		u.unify(ret, u.body.TypeOf(i.Dst))

	case mir.Deinit, mir.Goto, mir.If, mir.Return:

	default:
		log.Panicf("Unhandled: %T %v", i, i)
	}
}
