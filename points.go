package borrowck

import (
	"fmt"
	"log"

	"github.com/BarrensZeppelin/borrowck/mir"
)

// Point is a program point at which lifetimes may be alive.
// A point is either the instruction at a label of the analysed function, or
// the symbolic point in the caller where control returns after the region
// described by a generic lifetime of the function ends.
type Point struct {
	Label mir.Label
	// When InCaller is set, Caller is the generic lifetime whose caller-side
	// point this is and Label is meaningless.
	InCaller bool
	Caller   mir.Lifetime
}

func LocalPoint(l mir.Label) Point { return Point{Label: l} }

func CallerPoint(g mir.Lifetime) Point { return Point{InCaller: true, Caller: g} }

func (p Point) String() string {
	if p.InCaller {
		return fmt.Sprintf("caller(%v)", p.Caller)
	}
	return fmt.Sprintf("L%d", p.Label)
}

// pointSpace numbers the program points of a body densely so that sets of
// points can be represented as bit sets. Labels come first, followed by one
// caller point per generic lifetime.
type pointSpace struct {
	labels   int
	generics []mir.Lifetime
	gindex   map[mir.Lifetime]int
}

func newPointSpace(body *mir.Body) *pointSpace {
	ps := &pointSpace{
		labels:   len(body.Code),
		generics: body.Generics,
		gindex:   make(map[mir.Lifetime]int, len(body.Generics)),
	}
	for i, g := range body.Generics {
		ps.gindex[g] = i
	}
	return ps
}

func (ps *pointSpace) index(p Point) int {
	if !p.InCaller {
		return int(p.Label)
	}
	i, ok := ps.gindex[p.Caller]
	if !ok {
		log.Panicf("%v is not a generic lifetime", p.Caller)
	}
	return ps.labels + i
}

func (ps *pointSpace) point(i int) Point {
	if i < ps.labels {
		return LocalPoint(mir.Label(i))
	}
	return CallerPoint(ps.generics[i-ps.labels])
}
