package borrowck

import (
	"fmt"
	"log"

	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/internal/slices"
	"github.com/BarrensZeppelin/borrowck/mir"
	"golang.org/x/tools/container/intsets"
)

// BorrowInfo describes the borrow created by the instruction at Label.
type BorrowInfo struct {
	Label    mir.Label
	Place    mir.Place
	Mut      mir.Mutability
	Lifetime mir.Lifetime
}

func (b BorrowInfo) String() string {
	if b.Mut == mir.Mut {
		return fmt.Sprintf("&%v mut %v@L%d", b.Lifetime, b.Place, b.Label)
	}
	return fmt.Sprintf("&%v %v@L%d", b.Lifetime, b.Place, b.Label)
}

// ActiveBorrows maps every reachable label to the borrows that are active
// before its instruction: created on some path reaching it and with a
// lifetime that has stayed alive since.
type ActiveBorrows struct {
	body      *mir.Body
	lifetimes *LifetimeSets
	res       *dataflow.Result[*intsets.Sparse]
}

// borrowAt derives the borrow created at l. The lifetime of a borrow is the
// outermost lifetime of the type of the place receiving it.
func borrowAt(body *mir.Body, l mir.Label) (BorrowInfo, bool) {
	asg, ok := body.Instr(l).(mir.Assign)
	if !ok {
		return BorrowInfo{}, false
	}
	r, ok := asg.Src.(mir.Borrow)
	if !ok {
		return BorrowInfo{}, false
	}
	bt, ok := body.TypeOf(asg.Dst).(mir.BorrowType)
	if !ok {
		log.Panicf("borrow assigned to %v of non-borrow type %v", asg.Dst, body.TypeOf(asg.Dst))
	}
	return BorrowInfo{Label: l, Place: r.Place, Mut: r.Mut, Lifetime: bt.Lifetime}, true
}

func (ab *ActiveBorrows) alive(b mir.Label, at mir.Label) bool {
	info, _ := borrowAt(ab.body, b)
	return ab.lifetimes.Alive(info.Lifetime, LocalPoint(at))
}

// At returns the borrows active before the instruction at l, ordered by the
// label creating them.
func (ab *ActiveBorrows) At(l mir.Label) []BorrowInfo {
	s, ok := ab.res.At(l)
	if !ok {
		return nil
	}
	infos := slices.Map(s.AppendTo(nil), func(b int) BorrowInfo {
		info, _ := borrowAt(ab.body, mir.Label(b))
		return info
	})
	return slices.Filter(infos, func(b BorrowInfo) bool {
		return ab.lifetimes.Alive(b.Lifetime, LocalPoint(l))
	})
}

func computeActiveBorrows(body *mir.Body, cfg *dataflow.CFG, lifetimes *LifetimeSets) *ActiveBorrows {
	ab := &ActiveBorrows{body: body, lifetimes: lifetimes}

	transfer := func(l mir.Label, in *intsets.Sparse) *intsets.Sparse {
		out := new(intsets.Sparse)
		for _, b := range in.AppendTo(nil) {
			if ab.alive(mir.Label(b), l) {
				out.Insert(b)
			}
		}
		if _, ok := borrowAt(body, l); ok {
			out.Insert(int(l))
		}
		return out
	}

	ab.res = dataflow.Forward(cfg, dataflow.SetProblem(new(intsets.Sparse), transfer))
	return ab
}
