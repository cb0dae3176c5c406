// Package dataflow solves monotone dataflow problems over the control-flow
// graph of a MIR body by worklist iteration.
//
// States are attached to program points and always describe the point
// immediately before the instruction at that label. Only labels reachable
// from the entry receive a state.
package dataflow

import (
	"github.com/BarrensZeppelin/borrowck/internal/queue"
	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/yourbasic/graph"
	"golang.org/x/tools/container/intsets"
)

// CFG is the control-flow graph of a body.
type CFG struct {
	entry     int
	succ      *graph.Mutable
	pred      *graph.Mutable
	reachable []bool
}

func NewCFG(body *mir.Body) *CFG {
	n := len(body.Code)
	cfg := &CFG{
		entry:     int(body.Entry),
		succ:      graph.New(n),
		pred:      graph.New(n),
		reachable: make([]bool, n),
	}

	for l, st := range body.Code {
		for _, s := range st.Instr.Successors() {
			cfg.succ.Add(l, int(s))
			cfg.pred.Add(int(s), l)
		}
	}

	cfg.reachable[cfg.entry] = true
	graph.BFS(cfg.succ, cfg.entry, func(_, w int, _ int64) {
		cfg.reachable[w] = true
	})

	return cfg
}

func (c *CFG) Len() int { return len(c.reachable) }

func (c *CFG) Reachable(l mir.Label) bool { return c.reachable[l] }

func (c *CFG) Successors(l mir.Label) []mir.Label { return neighbours(c.succ, l) }

func (c *CFG) Predecessors(l mir.Label) []mir.Label { return neighbours(c.pred, l) }

func neighbours(g *graph.Mutable, l mir.Label) []mir.Label {
	var res []mir.Label
	g.Visit(int(l), func(w int, _ int64) bool {
		res = append(res, mir.Label(w))
		return false
	})
	return res
}

// Problem describes a dataflow problem over states of type S.
type Problem[S any] struct {
	// Bottom returns a fresh least element of the lattice.
	Bottom func() S
	// Boundary is the state at the entry (forward) or after every exit
	// (backward).
	Boundary S
	// Transfer computes the state on the other side of the instruction at l.
	// It must not modify in.
	Transfer func(l mir.Label, in S) S
	// Join merges src into dst and reports whether dst changed.
	Join func(dst, src S) bool
}

// Result maps reachable labels to the state before their instruction.
type Result[S any] struct {
	states []S
	cfg    *CFG
}

// At returns the state before the instruction at l. The second result is
// false for unreachable labels.
func (r *Result[S]) At(l mir.Label) (S, bool) {
	if !r.cfg.Reachable(l) {
		var zero S
		return zero, false
	}
	return r.states[l], true
}

// Forward solves p by propagating states along control-flow edges.
func Forward[S any](cfg *CFG, p Problem[S]) *Result[S] {
	states := make([]S, cfg.Len())
	seen := make([]bool, cfg.Len())

	var wl queue.Queue[mir.Label]
	entry := mir.Label(cfg.entry)
	states[entry] = p.Bottom()
	p.Join(states[entry], p.Boundary)
	seen[entry] = true
	wl.Push(entry)

	for !wl.Empty() {
		l := wl.Pop()
		out := p.Transfer(l, states[l])
		for _, s := range cfg.Successors(l) {
			if !seen[s] {
				seen[s] = true
				states[s] = p.Bottom()
				p.Join(states[s], out)
				wl.Push(s)
			} else if p.Join(states[s], out) {
				wl.Push(s)
			}
		}
	}

	return &Result[S]{states: states, cfg: cfg}
}

// Backward solves p by propagating states against control-flow edges. The
// state after an instruction is the join of the states before its
// successors.
func Backward[S any](cfg *CFG, p Problem[S]) *Result[S] {
	n := cfg.Len()
	in := make([]S, n)
	out := make([]S, n)

	var wl queue.Queue[mir.Label]
	for l := n - 1; l >= 0; l-- {
		lbl := mir.Label(l)
		out[l] = p.Bottom()
		if len(cfg.Successors(lbl)) == 0 {
			p.Join(out[l], p.Boundary)
		}
		if cfg.Reachable(lbl) {
			wl.Push(lbl)
		}
	}

	for !wl.Empty() {
		l := wl.Pop()
		in[l] = p.Transfer(l, out[l])
		for _, pr := range cfg.Predecessors(l) {
			if cfg.Reachable(pr) && p.Join(out[pr], in[l]) {
				wl.Push(pr)
			}
		}
	}

	return &Result[S]{states: in, cfg: cfg}
}

// SetProblem returns a problem over sets of integers ordered by inclusion
// and joined by union.
func SetProblem(boundary *intsets.Sparse, transfer func(mir.Label, *intsets.Sparse) *intsets.Sparse) Problem[*intsets.Sparse] {
	return Problem[*intsets.Sparse]{
		Bottom:   func() *intsets.Sparse { return new(intsets.Sparse) },
		Boundary: boundary,
		Transfer: transfer,
		Join:     func(dst, src *intsets.Sparse) bool { return dst.UnionWith(src) },
	}
}

// Clone returns a copy of s that can be modified independently.
func Clone(s *intsets.Sparse) *intsets.Sparse {
	c := new(intsets.Sparse)
	c.Copy(s)
	return c
}
