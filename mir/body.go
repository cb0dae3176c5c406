package mir

import (
	"errors"
	"fmt"
)

type LocalKind uint8

const (
	LocalTemp LocalKind = iota
	LocalParam
	LocalReturn
)

type Local struct {
	Name string
	Kind LocalKind
	Type Type
}

// Label is the index of an instruction in Body.Code.
type Label int

// Loc is a source location.
type Loc struct {
	File      string
	Line, Col int
}

func (l Loc) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

type instrTag interface {
	instrTag()
	fmt.Stringer
}

type itag struct{}

func (itag) instrTag() {}

// Instr is one of Assign, Deinit, Goto, If, Call or Return.
type Instr interface {
	instrTag
	// Successors returns the labels control may flow to next.
	Successors() []Label
}

type Assign struct {
	itag
	Dst  Place
	Src  Rvalue
	Next Label
}

type Deinit struct {
	itag
	Local LocalID
	Next  Label
}

type Goto struct {
	itag
	Target Label
}

// If branches on a boolean local, consuming it.
type If struct {
	itag
	Cond       LocalID
	Then, Else Label
}

type Call struct {
	itag
	Func string
	Args []LocalID
	Dst  Place
	Next Label
}

type Return struct{ itag }

func (i Assign) Successors() []Label { return []Label{i.Next} }
func (i Deinit) Successors() []Label { return []Label{i.Next} }
func (i Goto) Successors() []Label   { return []Label{i.Target} }
func (i If) Successors() []Label     { return []Label{i.Then, i.Else} }
func (i Call) Successors() []Label   { return []Label{i.Next} }
func (Return) Successors() []Label   { return nil }

func (i Assign) String() string { return fmt.Sprintf("%v = %v; goto %d", i.Dst, i.Src, i.Next) }
func (i Deinit) String() string { return fmt.Sprintf("deinit _%d; goto %d", i.Local, i.Next) }
func (i Goto) String() string   { return fmt.Sprintf("goto %d", i.Target) }
func (i If) String() string     { return fmt.Sprintf("if _%d goto %d else %d", i.Cond, i.Then, i.Else) }
func (i Call) String() string {
	return fmt.Sprintf("%v = %s%v; goto %d", i.Dst, i.Func, i.Args, i.Next)
}
func (Return) String() string { return "return" }

type rvalueTag interface {
	rvalueTag()
	fmt.Stringer
}

type rtag struct{}

func (rtag) rvalueTag() {}

// Rvalue is the right-hand side of an Assign: one of Use, Borrow, Const,
// UnitValue, UnOp, BinOp or MakeStruct.
type Rvalue interface {
	rvalueTag
}

// Use reads a place, moving out of it unless its type is copyable.
type Use struct {
	rtag
	Place Place
}

// Borrow creates a borrow of a place.
type Borrow struct {
	rtag
	Mut   Mutability
	Place Place
}

type Const struct {
	rtag
	Value int64
}

type UnitValue struct{ rtag }

type UnOp struct {
	rtag
	Op string
	X  Place
}

type BinOp struct {
	rtag
	Op   string
	X, Y Place
}

// MakeStruct builds a struct from argument locals, one per field.
type MakeStruct struct {
	rtag
	Name string
	Args []LocalID
}

func (r Use) String() string {
	return r.Place.String()
}

func (r Borrow) String() string {
	if r.Mut == Mut {
		return "&mut " + r.Place.String()
	}
	return "&" + r.Place.String()
}

func (r Const) String() string      { return fmt.Sprint(r.Value) }
func (UnitValue) String() string    { return "()" }
func (r UnOp) String() string       { return r.Op + r.X.String() }
func (r BinOp) String() string      { return fmt.Sprintf("%v %s %v", r.X, r.Op, r.Y) }
func (r MakeStruct) String() string { return fmt.Sprintf("%s%v", r.Name, r.Args) }

type Stmt struct {
	Instr Instr
	Loc   Loc
}

// Body is the MIR of a single function.
type Body struct {
	Name   string
	Prog   *Program
	Locals []Local
	Entry  Label
	Code   []Stmt

	// Generics are the lifetime parameters of the function; Outlives is the
	// outlives graph declared by its signature.
	Generics []Lifetime
	Outlives map[Lifetime][]Lifetime

	Loc Loc
}

func (b *Body) Params() []LocalID {
	var res []LocalID
	for i, l := range b.Locals {
		if l.Kind == LocalParam {
			res = append(res, LocalID(i))
		}
	}
	return res
}

// ReturnLocal returns the distinguished return slot.
func (b *Body) ReturnLocal() LocalID {
	for i, l := range b.Locals {
		if l.Kind == LocalReturn {
			return LocalID(i)
		}
	}
	panic(fmt.Errorf("%s has no return local", b.Name))
}

func (b *Body) Instr(l Label) Instr { return b.Code[l].Instr }

// MaxFresh returns the highest fresh lifetime number in the body.
func (b *Body) MaxFresh() int {
	res := 0
	for _, l := range b.Locals {
		if m := maxFresh(l.Type); m > res {
			res = m
		}
	}
	for _, g := range b.Generics {
		if g.Fresh > res {
			res = g.Fresh
		}
	}
	return res
}

// Operands returns the places read by the instruction, in evaluation order.
// Borrowed places are included.
func Operands(i Instr) []Place {
	switch i := i.(type) {
	case Assign:
		switch r := i.Src.(type) {
		case Use:
			return []Place{r.Place}
		case Borrow:
			return []Place{r.Place}
		case UnOp:
			return []Place{r.X}
		case BinOp:
			return []Place{r.X, r.Y}
		case MakeStruct:
			return localPlaces(r.Args)
		}
	case Call:
		return localPlaces(i.Args)
	case If:
		return []Place{PlaceOf(i.Cond)}
	}
	return nil
}

// Destination returns the place written by an Assign or Call.
func Destination(i Instr) (Place, bool) {
	switch i := i.(type) {
	case Assign:
		return i.Dst, true
	case Call:
		return i.Dst, true
	}
	return Place{}, false
}

func localPlaces(ls []LocalID) []Place {
	res := make([]Place, len(ls))
	for i, l := range ls {
		res[i] = PlaceOf(l)
	}
	return res
}

var ErrMalformed = errors.New("malformed MIR")

// Validate checks the structural well-formedness of the body: labels and
// locals are in range, arities of calls and struct constructions match and
// there is exactly one return local. It does not type-check.
func (b *Body) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrMalformed, b.Name, fmt.Sprintf(format, args...))
	}

	if b.Prog == nil {
		return fail("no program")
	}

	rets := 0
	for _, l := range b.Locals {
		if l.Kind == LocalReturn {
			rets++
		}
		if l.Type == nil {
			return fail("local %s has no type", l.Name)
		}
	}
	if rets != 1 {
		return fail("%d return locals", rets)
	}

	if len(b.Code) == 0 {
		return fail("empty body")
	}

	validLabel := func(l Label) bool { return l >= 0 && int(l) < len(b.Code) }
	validLocal := func(l LocalID) bool { return l >= 0 && int(l) < len(b.Locals) }

	if !validLabel(b.Entry) {
		return fail("entry label %d out of range", b.Entry)
	}

	for lbl, st := range b.Code {
		if st.Instr == nil {
			return fail("label %d has no instruction", lbl)
		}
		for _, s := range st.Instr.Successors() {
			if !validLabel(s) {
				return fail("label %d jumps to %d", lbl, s)
			}
		}
		places := Operands(st.Instr)
		if dst, ok := Destination(st.Instr); ok {
			places = append(places, dst)
		}
		for _, p := range places {
			if !validLocal(p.Local) {
				return fail("label %d refers to unknown local %d", lbl, p.Local)
			}
		}

		switch i := st.Instr.(type) {
		case Deinit:
			if !validLocal(i.Local) {
				return fail("label %d deinitializes unknown local %d", lbl, i.Local)
			}
		case Call:
			f, ok := b.Prog.Funcs[i.Func]
			if !ok {
				return fail("label %d calls unknown function %s", lbl, i.Func)
			}
			if len(f.Params) != len(i.Args) {
				return fail("label %d calls %s with %d arguments, expected %d",
					lbl, i.Func, len(i.Args), len(f.Params))
			}
		case Assign:
			if r, ok := i.Src.(MakeStruct); ok {
				d, ok := b.Prog.Structs[r.Name]
				if !ok {
					return fail("label %d builds unknown struct %s", lbl, r.Name)
				}
				if len(d.Fields) != len(r.Args) {
					return fail("label %d builds %s with %d fields, expected %d",
						lbl, r.Name, len(r.Args), len(d.Fields))
				}
			}
		}
	}

	return nil
}
