package borrowck

import (
	"github.com/BarrensZeppelin/borrowck/mir"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// LifetimeSets maps every lifetime variable of a body to the program points
// where it is alive.
type LifetimeSets struct {
	space *pointSpace
	sets  map[mir.Lifetime]*intsets.Sparse
}

// Alive reports whether l is alive at p. Lifetimes that never had to be
// alive anywhere are alive nowhere.
func (ls *LifetimeSets) Alive(l mir.Lifetime, p Point) bool {
	s, ok := ls.sets[l]
	return ok && s.Has(ls.space.index(p))
}

// Points returns the points where l is alive, labels first.
func (ls *LifetimeSets) Points(l mir.Lifetime) []Point {
	s, ok := ls.sets[l]
	if !ok {
		return nil
	}
	var res []Point
	for _, i := range s.AppendTo(nil) {
		res = append(res, ls.space.point(i))
	}
	return res
}

// living collects, for every lifetime, the points at which it must be alive
// regardless of the outlives relation.
type living map[mir.Lifetime]*intsets.Sparse

func (lv living) add(l mir.Lifetime, i int) {
	s, ok := lv[l]
	if !ok {
		s = new(intsets.Sparse)
		lv[l] = s
	}
	s.Insert(i)
}

// livingConstraints requires every lifetime mentioned by the type of a live
// local to be alive where the local is live. Generic lifetimes are alive in
// the whole function and at their own caller point.
func livingConstraints(body *mir.Body, space *pointSpace, live *LiveLocals) living {
	res := make(living)

	for _, g := range body.Generics {
		res.add(g, space.index(CallerPoint(g)))
		for l := range body.Code {
			res.add(g, space.index(LocalPoint(mir.Label(l))))
		}
	}

	for l := range body.Code {
		lbl := mir.Label(l)
		for _, x := range live.At(lbl) {
			for _, lft := range mir.FreeLifetimes(body.Locals[x].Type) {
				res.add(lft, space.index(LocalPoint(lbl)))
			}
		}
	}

	return res
}

// solveLifetimes computes the least sets of points such that every lifetime
// contains its living constraints and the set of a lifetime contains the
// sets of all lifetimes it outlives.
//
// Lifetimes in the same strongly connected component of the outlives graph
// necessarily share one set, so the computation runs on the condensation.
func solveLifetimes(g *OutlivesGraph, req living, space *pointSpace) *LifetimeSets {
	// Lifetimes that only occur in req get nodes of their own here, so the
	// caller's graph is left untouched.
	lfts := slices.Clone(g.lfts)
	ids := maps.Clone(g.ids)
	for l := range req {
		if _, ok := ids[l]; !ok {
			ids[l] = int64(len(lfts))
			lfts = append(lfts, l)
		}
	}

	dg := simple.NewDirectedGraph()
	for id := range lfts {
		dg.AddNode(simple.Node(int64(id)))
	}
	for from, succ := range g.edges {
		for to := range succ {
			dg.SetEdge(dg.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	// Components are returned in reverse topological order: a component
	// precedes every component with an edge into it.
	sccs := topo.TarjanSCC(dg)
	comp := make([]int, len(lfts))
	sets := make([]*intsets.Sparse, len(sccs))
	for c, scc := range sccs {
		sets[c] = new(intsets.Sparse)
		for _, n := range scc {
			comp[n.ID()] = c
			if s, ok := req[lfts[n.ID()]]; ok {
				sets[c].UnionWith(s)
			}
		}
	}

	succ := make([]map[int]bool, len(sccs))
	for from, tos := range g.edges {
		for to := range tos {
			cf, ct := comp[from], comp[to]
			if cf == ct {
				continue
			}
			if succ[cf] == nil {
				succ[cf] = make(map[int]bool)
			}
			succ[cf][ct] = true
		}
	}

	// Successors are swept first, so this settles after one sweep.
	for changed := true; changed; {
		changed = false
		for c := range sccs {
			for d := range succ[c] {
				if sets[c].UnionWith(sets[d]) {
					changed = true
				}
			}
		}
	}

	res := &LifetimeSets{space: space, sets: make(map[mir.Lifetime]*intsets.Sparse, len(lfts))}
	for id, l := range lfts {
		res.sets[l] = sets[comp[id]]
	}
	return res
}
