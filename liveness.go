package borrowck

import (
	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/mir"
	"golang.org/x/tools/container/intsets"
)

// LiveLocals maps every reachable label to the set of locals whose current
// value may still be read on some path starting there.
type LiveLocals struct {
	res *dataflow.Result[*intsets.Sparse]
}

// At returns the locals live before the instruction at l.
func (lv *LiveLocals) At(l mir.Label) []mir.LocalID {
	s, ok := lv.res.At(l)
	if !ok {
		return nil
	}
	var res []mir.LocalID
	for _, x := range s.AppendTo(nil) {
		res = append(res, mir.LocalID(x))
	}
	return res
}

func (lv *LiveLocals) IsLive(l mir.Label, x mir.LocalID) bool {
	s, ok := lv.res.At(l)
	return ok && s.Has(int(x))
}

// defsUses returns the locals whose value is overwritten by the instruction
// and those whose value it reads.
func defsUses(body *mir.Body, insn mir.Instr) (defs, uses []mir.LocalID) {
	for _, p := range mir.Operands(insn) {
		uses = append(uses, p.Local)
	}

	if dst, ok := mir.Destination(insn); ok {
		switch {
		case dst.IsLocal():
			defs = append(defs, dst.Local)
		case dst.HasDeref():
			// Writing through a pointer reads the pointer.
			uses = append(uses, dst.Local)
		}
	}

	switch i := insn.(type) {
	case mir.Deinit:
		defs = append(defs, i.Local)
	case mir.Return:
		uses = append(uses, body.ReturnLocal())
	}
	return
}

func computeLiveLocals(body *mir.Body, cfg *dataflow.CFG) *LiveLocals {
	transfer := func(l mir.Label, out *intsets.Sparse) *intsets.Sparse {
		in := dataflow.Clone(out)
		defs, uses := defsUses(body, body.Instr(l))
		for _, d := range defs {
			in.Remove(int(d))
		}
		for _, u := range uses {
			in.Insert(int(u))
		}
		return in
	}

	res := dataflow.Backward(cfg, dataflow.SetProblem(new(intsets.Sparse), transfer))
	return &LiveLocals{res: res}
}
