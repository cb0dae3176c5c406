package mir

import (
	"fmt"
	"log"
	"strings"
)

// LocalID indexes Body.Locals.
type LocalID int

type ProjKind uint8

const (
	FieldProj ProjKind = iota
	DerefProj
)

// Proj is a single step of a place: a field projection or a dereference.
type Proj struct {
	Kind  ProjKind
	Field int
}

// Place denotes a storage location: a local followed by projections.
// Places are values; the projection slice is never shared between places
// built with Field and Deref.
type Place struct {
	Local LocalID
	Projs []Proj
}

func PlaceOf(l LocalID) Place { return Place{Local: l} }

func (p Place) extend(pr Proj) Place {
	projs := make([]Proj, len(p.Projs), len(p.Projs)+1)
	copy(projs, p.Projs)
	return Place{Local: p.Local, Projs: append(projs, pr)}
}

// Field returns the place p.i
func (p Place) Field(i int) Place { return p.extend(Proj{Kind: FieldProj, Field: i}) }

// Deref returns the place *p
func (p Place) Deref() Place { return p.extend(Proj{Kind: DerefProj}) }

func (p Place) IsLocal() bool { return len(p.Projs) == 0 }

// Parent strips the last projection of p.
func (p Place) Parent() (Place, Proj, bool) {
	if p.IsLocal() {
		return p, Proj{}, false
	}
	n := len(p.Projs) - 1
	return Place{Local: p.Local, Projs: p.Projs[:n:n]}, p.Projs[n], true
}

func (p Place) HasDeref() bool {
	for _, pr := range p.Projs {
		if pr.Kind == DerefProj {
			return true
		}
	}
	return false
}

// DerefBase returns the place dereferenced by the last dereference of p, if
// any. For (*x.f).g this is x.f.
func (p Place) DerefBase() (Place, bool) {
	for i := len(p.Projs) - 1; i >= 0; i-- {
		if p.Projs[i].Kind == DerefProj {
			return Place{Local: p.Local, Projs: p.Projs[:i:i]}, true
		}
	}
	return Place{}, false
}

func (p Place) Equal(q Place) bool {
	if p.Local != q.Local || len(p.Projs) != len(q.Projs) {
		return false
	}
	for i := range p.Projs {
		if p.Projs[i] != q.Projs[i] {
			return false
		}
	}
	return true
}

// Key is a canonical string for p, suitable as a map key.
func (p Place) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", p.Local)
	for _, pr := range p.Projs {
		if pr.Kind == DerefProj {
			sb.WriteString("*")
		} else {
			fmt.Fprintf(&sb, ".%d", pr.Field)
		}
	}
	return sb.String()
}

func (p Place) String() string {
	return formatPlace(p, func(l LocalID) string { return fmt.Sprintf("_%d", l) },
		func(_ Place, i int) string { return fmt.Sprint(i) })
}

func formatPlace(p Place, local func(LocalID) string, field func(Place, int) string) string {
	s := local(p.Local)
	cur := PlaceOf(p.Local)
	for i, pr := range p.Projs {
		if pr.Kind == DerefProj {
			s = "*" + s
		} else {
			if i > 0 && p.Projs[i-1].Kind == DerefProj {
				s = "(" + s + ")"
			}
			s = s + "." + field(cur, pr.Field)
		}
		cur = cur.extend(pr)
	}
	return s
}

// IsSubplace reports whether p extends q, i.e. p denotes q or a location
// inside it. Every place is a subplace of itself.
func IsSubplace(p, q Place) bool {
	if p.Local != q.Local || len(p.Projs) < len(q.Projs) {
		return false
	}
	for i, pr := range q.Projs {
		if p.Projs[i] != pr {
			return false
		}
	}
	return true
}

// IsSubplaceNoDeref is IsSubplace with the additional requirement that the
// projections p adds to q contain no dereference: p lies in the storage of q
// itself rather than behind a pointer stored in q.
func IsSubplaceNoDeref(p, q Place) bool {
	if !IsSubplace(p, q) {
		return false
	}
	for _, pr := range p.Projs[len(q.Projs):] {
		if pr.Kind == DerefProj {
			return false
		}
	}
	return true
}

// Overlap reports whether p and q may denote overlapping storage.
func Overlap(p, q Place) bool {
	return IsSubplace(p, q) || IsSubplace(q, p)
}

// TypeOf returns the type of the place. Ill-typed projections panic.
func (b *Body) TypeOf(p Place) Type {
	t := b.Locals[p.Local].Type
	for _, pr := range p.Projs {
		t = b.project(t, pr, p)
	}
	return t
}

func (b *Body) project(t Type, pr Proj, p Place) Type {
	switch pr.Kind {
	case DerefProj:
		bt, ok := t.(BorrowType)
		if !ok {
			log.Panicf("dereference of non-borrow type %v in %v", t, p)
		}
		return bt.Elem
	default:
		st, ok := t.(StructType)
		if !ok {
			log.Panicf("field projection on non-struct type %v in %v", t, p)
		}
		fields := b.Prog.Struct(st.Name).FieldTypes(st.Lifetimes)
		if pr.Field < 0 || pr.Field >= len(fields) {
			log.Panicf("field %d out of range for %v in %v", pr.Field, st, p)
		}
		return fields[pr.Field]
	}
}

// PlaceMutable reports whether p can be written: no dereference on its
// access path goes through a shared borrow. Locals are always mutable.
func (b *Body) PlaceMutable(p Place) bool {
	t := b.Locals[p.Local].Type
	for _, pr := range p.Projs {
		if bt, ok := t.(BorrowType); ok && pr.Kind == DerefProj && bt.Mut == Shared {
			return false
		}
		t = b.project(t, pr, p)
	}
	return true
}

// FormatPlace renders p with local and field names.
func (b *Body) FormatPlace(p Place) string {
	return formatPlace(p,
		func(l LocalID) string { return b.Locals[l].Name },
		func(base Place, i int) string {
			st := b.TypeOf(base).(StructType)
			return b.Prog.Struct(st.Name).Fields[i].Name
		})
}
