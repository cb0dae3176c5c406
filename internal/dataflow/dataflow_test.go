package dataflow

import (
	"testing"

	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/container/intsets"
)

// diamond builds
//
//	0: if _1 goto 1 else 2
//	1: _0 = (); goto 3
//	2: _0 = (); goto 3
//	3: return
//	4: goto 3 (unreachable)
func diamond() *mir.Body {
	return &mir.Body{
		Name: "diamond",
		Prog: mir.NewProgram(),
		Locals: []mir.Local{
			{Name: "_ret", Kind: mir.LocalReturn, Type: mir.Unit},
			{Name: "c", Kind: mir.LocalParam, Type: mir.Bool},
		},
		Code: []mir.Stmt{
			{Instr: mir.If{Cond: 1, Then: 1, Else: 2}},
			{Instr: mir.Assign{Dst: mir.PlaceOf(0), Src: mir.UnitValue{}, Next: 3}},
			{Instr: mir.Assign{Dst: mir.PlaceOf(0), Src: mir.UnitValue{}, Next: 3}},
			{Instr: mir.Return{}},
			{Instr: mir.Goto{Target: 3}},
		},
	}
}

func TestCFG(t *testing.T) {
	cfg := NewCFG(diamond())

	assert.Equal(t, 5, cfg.Len())
	for l := mir.Label(0); l < 4; l++ {
		assert.True(t, cfg.Reachable(l), "L%d", l)
	}
	assert.False(t, cfg.Reachable(4))

	assert.ElementsMatch(t, []mir.Label{1, 2}, cfg.Successors(0))
	assert.ElementsMatch(t, []mir.Label{1, 2, 4}, cfg.Predecessors(3))
	assert.Empty(t, cfg.Successors(3))
}

func set(xs ...int) *intsets.Sparse {
	s := new(intsets.Sparse)
	for _, x := range xs {
		s.Insert(x)
	}
	return s
}

func TestForward(t *testing.T) {
	cfg := NewCFG(diamond())

	// Every label adds itself; states collect the labels on some path.
	res := Forward(cfg, SetProblem(set(100), func(l mir.Label, in *intsets.Sparse) *intsets.Sparse {
		out := Clone(in)
		out.Insert(int(l))
		return out
	}))

	at := func(l mir.Label) []int {
		s, ok := res.At(l)
		assert.True(t, ok)
		return s.AppendTo(nil)
	}

	assert.Equal(t, []int{100}, at(0))
	assert.Equal(t, []int{0, 100}, at(1))
	assert.Equal(t, []int{0, 100}, at(2))
	assert.Equal(t, []int{0, 1, 2, 100}, at(3))

	_, ok := res.At(4)
	assert.False(t, ok)
}

func TestForwardLoop(t *testing.T) {
	// 0: goto 1; 1: if _1 goto 0 else 2; 2: return
	body := diamond()
	body.Code = []mir.Stmt{
		{Instr: mir.Goto{Target: 1}},
		{Instr: mir.If{Cond: 1, Then: 0, Else: 2}},
		{Instr: mir.Return{}},
	}
	cfg := NewCFG(body)

	res := Forward(cfg, SetProblem(new(intsets.Sparse), func(l mir.Label, in *intsets.Sparse) *intsets.Sparse {
		out := Clone(in)
		out.Insert(int(l))
		return out
	}))

	s, _ := res.At(0)
	assert.Equal(t, []int{0, 1}, s.AppendTo(nil), "loop back edge reaches the entry")
	s, _ = res.At(2)
	assert.Equal(t, []int{0, 1}, s.AppendTo(nil))
}

func TestBackward(t *testing.T) {
	cfg := NewCFG(diamond())

	// States collect the labels that may still execute.
	res := Backward(cfg, SetProblem(set(100), func(l mir.Label, out *intsets.Sparse) *intsets.Sparse {
		in := Clone(out)
		in.Insert(int(l))
		return in
	}))

	at := func(l mir.Label) []int {
		s, ok := res.At(l)
		assert.True(t, ok)
		return s.AppendTo(nil)
	}

	assert.Equal(t, []int{3, 100}, at(3))
	assert.Equal(t, []int{1, 3, 100}, at(1))
	assert.Equal(t, []int{2, 3, 100}, at(2))
	assert.Equal(t, []int{0, 1, 2, 3, 100}, at(0))
}

func TestClone(t *testing.T) {
	s := set(1, 2)
	c := Clone(s)
	c.Insert(3)
	assert.Equal(t, []int{1, 2}, s.AppendTo(nil))
	assert.Equal(t, []int{1, 2, 3}, c.AppendTo(nil))
}
