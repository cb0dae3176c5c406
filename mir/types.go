package mir

import (
	"fmt"
	"log"
	"strings"

	"github.com/BarrensZeppelin/borrowck/internal/slices"
)

// This file contains the type language of MiniRust MIR. Types are fully
// elaborated by the front end; the only inference the checker performs is over
// the lifetime variables that occur inside them.

// Mutability of a borrow.
type Mutability uint8

const (
	Shared Mutability = iota
	Mut
)

func (m Mutability) String() string {
	if m == Mut {
		return "mut"
	}
	return "shared"
}

// Lifetime is a lifetime variable. Named lifetimes come from signatures and
// struct declarations ('a), fresh lifetimes are inference variables.
type Lifetime struct {
	Name  string
	Fresh int
}

func Named(name string) Lifetime { return Lifetime{Name: name} }

func (l Lifetime) String() string {
	if l.Fresh != 0 {
		return fmt.Sprintf("'?%d", l.Fresh)
	}
	return "'" + l.Name
}

// LifetimeGen hands out fresh lifetime variables. It is threaded explicitly
// through every component that instantiates signatures.
type LifetimeGen struct{ last int }

// NewLifetimeGen returns a generator whose variables do not collide with any
// fresh variable numbered up to and including last.
func NewLifetimeGen(last int) *LifetimeGen {
	return &LifetimeGen{last: last}
}

func (g *LifetimeGen) Fresh() Lifetime {
	g.last++
	return Lifetime{Fresh: g.last}
}

// Outlives states that Long outlives Short.
type Outlives struct {
	Long, Short Lifetime
}

func (o Outlives) String() string {
	return fmt.Sprintf("%v: %v", o.Long, o.Short)
}

type typeTag interface {
	typeTag()
	fmt.Stringer
}

type ttag struct{}

func (ttag) typeTag() {}

// Type is one of UnitType, IntType, BoolType, StructType or BorrowType.
type Type interface {
	typeTag
}

type UnitType struct{ ttag }

func (UnitType) String() string { return "()" }

type IntType struct{ ttag }

func (IntType) String() string { return "i32" }

type BoolType struct{ ttag }

func (BoolType) String() string { return "bool" }

// StructType is a named struct instantiated with lifetime arguments.
type StructType struct {
	ttag
	Name      string
	Lifetimes []Lifetime
}

func (s StructType) String() string {
	if len(s.Lifetimes) == 0 {
		return s.Name
	}
	args := slices.Map(s.Lifetimes, Lifetime.String)
	return fmt.Sprintf("%s<%s>", s.Name, strings.Join(args, ", "))
}

// BorrowType is &'l T or &'l mut T.
type BorrowType struct {
	ttag
	Lifetime Lifetime
	Mut      Mutability
	Elem     Type
}

func (b BorrowType) String() string {
	if b.Mut == Mut {
		return fmt.Sprintf("&%v mut %v", b.Lifetime, b.Elem)
	}
	return fmt.Sprintf("&%v %v", b.Lifetime, b.Elem)
}

var (
	Unit Type = UnitType{}
	I32  Type = IntType{}
	Bool Type = BoolType{}
)

func Struct(name string, lfts ...Lifetime) StructType {
	return StructType{Name: name, Lifetimes: lfts}
}

func Ref(l Lifetime, m Mutability, elem Type) BorrowType {
	return BorrowType{Lifetime: l, Mut: m, Elem: elem}
}

// FreeLifetimes returns the lifetimes occurring in t, in order of first
// occurrence and without duplicates. Nested borrows and struct arguments are
// traversed to any depth.
func FreeLifetimes(t Type) []Lifetime {
	var res []Lifetime
	seen := map[Lifetime]bool{}
	add := func(l Lifetime) {
		if !seen[l] {
			seen[l] = true
			res = append(res, l)
		}
	}

	var visit func(Type)
	visit = func(t Type) {
		switch t := t.(type) {
		case BorrowType:
			add(t.Lifetime)
			visit(t.Elem)
		case StructType:
			for _, l := range t.Lifetimes {
				add(l)
			}
		}
	}
	visit(t)
	return res
}

// Substitute renames the lifetimes of t according to sub. Lifetimes absent
// from sub are kept.
func Substitute(t Type, sub map[Lifetime]Lifetime) Type {
	rename := func(l Lifetime) Lifetime {
		if r, ok := sub[l]; ok {
			return r
		}
		return l
	}

	switch t := t.(type) {
	case BorrowType:
		return BorrowType{Lifetime: rename(t.Lifetime), Mut: t.Mut, Elem: Substitute(t.Elem, sub)}
	case StructType:
		return StructType{Name: t.Name, Lifetimes: slices.Map(t.Lifetimes, rename)}
	default:
		return t
	}
}

// StructDecl declares a struct with lifetime parameters.
type StructDecl struct {
	Name      string
	Lifetimes []Lifetime
	Fields    []Field
	// Copy marks structs with copy semantics: using them never moves.
	Copy bool
}

type Field struct {
	Name string
	Type Type
}

// FieldTypes returns the field types of the declaration instantiated with
// the given lifetime arguments.
func (d *StructDecl) FieldTypes(args []Lifetime) []Type {
	checkLen(d.Lifetimes, args, "wrong number of lifetime arguments for "+d.Name)

	sub := make(map[Lifetime]Lifetime, len(args))
	for i, p := range d.Lifetimes {
		sub[p] = args[i]
	}
	return slices.Map(d.Fields, func(f Field) Type { return Substitute(f.Type, sub) })
}

// FnSig is the signature of a callable function.
type FnSig struct {
	Name     string
	Generics []Lifetime
	Outlives []Outlives
	Params   []Type
	Ret      Type
}

// Program holds the declarations a function body may refer to.
type Program struct {
	Structs map[string]*StructDecl
	Funcs   map[string]*FnSig
}

func NewProgram() *Program {
	return &Program{
		Structs: make(map[string]*StructDecl),
		Funcs:   make(map[string]*FnSig),
	}
}

func (p *Program) AddStruct(d *StructDecl) *StructDecl {
	p.Structs[d.Name] = d
	return d
}

func (p *Program) AddFunc(f *FnSig) *FnSig {
	p.Funcs[f.Name] = f
	return f
}

// Struct returns the declaration of the named struct. Unknown names indicate
// a malformed program and cause a panic.
func (p *Program) Struct(name string) *StructDecl {
	d, ok := p.Structs[name]
	if !ok {
		log.Panicf("unknown struct %s", name)
	}
	return d
}

func (p *Program) Func(name string) *FnSig {
	f, ok := p.Funcs[name]
	if !ok {
		log.Panicf("unknown function %s", name)
	}
	return f
}

// Copyable reports whether values of type t are copied rather than moved.
func (p *Program) Copyable(t Type) bool {
	switch t := t.(type) {
	case UnitType, IntType, BoolType:
		return true
	case BorrowType:
		return t.Mut == Shared
	case StructType:
		return p.Struct(t.Name).Copy
	default:
		log.Panicf("unexpected type %T", t)
		return false
	}
}

// ImpliedOutlives returns the outlives relations that must hold for t to be
// well formed: the lifetimes of a borrowed type outlive the borrow, and the
// same holds inside every (instantiated) struct field.
func (p *Program) ImpliedOutlives(t Type) []Outlives {
	var res []Outlives
	visited := map[string]bool{}

	var visit func(Type)
	visit = func(t Type) {
		switch t := t.(type) {
		case BorrowType:
			for _, l := range FreeLifetimes(t.Elem) {
				res = append(res, Outlives{Long: l, Short: t.Lifetime})
			}
			visit(t.Elem)
		case StructType:
			// Recursive structs revisit the same instantiation.
			key := t.String()
			if visited[key] {
				return
			}
			visited[key] = true
			for _, ft := range p.Struct(t.Name).FieldTypes(t.Lifetimes) {
				visit(ft)
			}
		}
	}
	visit(t)
	return res
}

// InstantiateStruct instantiates the named struct with fresh lifetimes and
// returns the resulting struct type together with its field types.
func (p *Program) InstantiateStruct(gen *LifetimeGen, name string) (StructType, []Type) {
	d := p.Struct(name)
	args := make([]Lifetime, len(d.Lifetimes))
	for i := range args {
		args[i] = gen.Fresh()
	}
	return StructType{Name: name, Lifetimes: args}, d.FieldTypes(args)
}

// Instantiate renames the generic lifetimes of the signature to fresh ones.
func (f *FnSig) Instantiate(gen *LifetimeGen) (params []Type, ret Type, outlives []Outlives) {
	sub := make(map[Lifetime]Lifetime, len(f.Generics))
	for _, g := range f.Generics {
		sub[g] = gen.Fresh()
	}

	rename := func(l Lifetime) Lifetime {
		if r, ok := sub[l]; ok {
			return r
		}
		return l
	}

	params = slices.Map(f.Params, func(t Type) Type { return Substitute(t, sub) })
	ret = Substitute(f.Ret, sub)
	outlives = slices.Map(f.Outlives, func(o Outlives) Outlives {
		return Outlives{Long: rename(o.Long), Short: rename(o.Short)}
	})
	return
}

func maxFresh(t Type) int {
	res := 0
	for _, l := range FreeLifetimes(t) {
		if l.Fresh > res {
			res = l.Fresh
		}
	}
	return res
}

func checkLen[L1 ~[]T1, L2 ~[]T2, T1, T2 any](a L1, b L2, msg string) {
	if len(a) != len(b) {
		log.Panicf("%s: %v (%d) != %v (%d)", msg, a, len(a), b, len(b))
	}
}
