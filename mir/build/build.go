// Package build assembles MIR bodies instruction by instruction. Unless a
// target is given explicitly, every instruction falls through to the label
// appended after it.
package build

import (
	"fmt"

	"github.com/BarrensZeppelin/borrowck/mir"
)

type Builder struct {
	body *mir.Body
	gen  *mir.LifetimeGen
}

func New(prog *mir.Program, name string) *Builder {
	return &Builder{
		body: &mir.Body{
			Name:     name,
			Prog:     prog,
			Outlives: make(map[mir.Lifetime][]mir.Lifetime),
			Loc:      mir.Loc{File: name + ".rs", Line: 1, Col: 1},
		},
		gen: mir.NewLifetimeGen(0),
	}
}

// Fresh returns a lifetime variable not used elsewhere in the body.
func (b *Builder) Fresh() mir.Lifetime { return b.gen.Fresh() }

// Generic declares a generic lifetime parameter of the function.
func (b *Builder) Generic(name string) mir.Lifetime {
	l := mir.Named(name)
	b.body.Generics = append(b.body.Generics, l)
	return l
}

// Outlives declares long: short in the signature.
func (b *Builder) Outlives(long, short mir.Lifetime) *Builder {
	b.body.Outlives[long] = append(b.body.Outlives[long], short)
	return b
}

func (b *Builder) local(name string, kind mir.LocalKind, t mir.Type) mir.LocalID {
	b.body.Locals = append(b.body.Locals, mir.Local{Name: name, Kind: kind, Type: t})
	return mir.LocalID(len(b.body.Locals) - 1)
}

func (b *Builder) Param(name string, t mir.Type) mir.LocalID {
	return b.local(name, mir.LocalParam, t)
}

func (b *Builder) Ret(t mir.Type) mir.LocalID {
	return b.local("_ret", mir.LocalReturn, t)
}

func (b *Builder) Local(name string, t mir.Type) mir.LocalID {
	return b.local(name, mir.LocalTemp, t)
}

// Next returns the label of the next appended instruction.
func (b *Builder) Next() mir.Label { return mir.Label(len(b.body.Code)) }

func (b *Builder) emit(i mir.Instr) mir.Label {
	l := b.Next()
	b.body.Code = append(b.body.Code, mir.Stmt{
		Instr: i,
		Loc:   mir.Loc{File: b.body.Loc.File, Line: int(l) + 2, Col: 5},
	})
	return l
}

func (b *Builder) Assign(dst mir.Place, src mir.Rvalue) mir.Label {
	return b.emit(mir.Assign{Dst: dst, Src: src, Next: b.Next() + 1})
}

func (b *Builder) Use(dst, src mir.Place) mir.Label {
	return b.Assign(dst, mir.Use{Place: src})
}

func (b *Builder) Borrow(dst mir.Place, m mir.Mutability, src mir.Place) mir.Label {
	return b.Assign(dst, mir.Borrow{Mut: m, Place: src})
}

func (b *Builder) Const(dst mir.Place, v int64) mir.Label {
	return b.Assign(dst, mir.Const{Value: v})
}

func (b *Builder) Unit(dst mir.Place) mir.Label {
	return b.Assign(dst, mir.UnitValue{})
}

func (b *Builder) BinOp(dst mir.Place, op string, x, y mir.Place) mir.Label {
	return b.Assign(dst, mir.BinOp{Op: op, X: x, Y: y})
}

func (b *Builder) UnOp(dst mir.Place, op string, x mir.Place) mir.Label {
	return b.Assign(dst, mir.UnOp{Op: op, X: x})
}

func (b *Builder) Make(dst mir.Place, name string, args ...mir.LocalID) mir.Label {
	return b.Assign(dst, mir.MakeStruct{Name: name, Args: args})
}

func (b *Builder) Deinit(l mir.LocalID) mir.Label {
	return b.emit(mir.Deinit{Local: l, Next: b.Next() + 1})
}

func (b *Builder) Call(dst mir.Place, fn string, args ...mir.LocalID) mir.Label {
	return b.emit(mir.Call{Func: fn, Args: args, Dst: dst, Next: b.Next() + 1})
}

func (b *Builder) Goto(target mir.Label) mir.Label {
	return b.emit(mir.Goto{Target: target})
}

func (b *Builder) If(cond mir.LocalID, then, els mir.Label) mir.Label {
	return b.emit(mir.If{Cond: cond, Then: then, Else: els})
}

func (b *Builder) Return() mir.Label {
	return b.emit(mir.Return{})
}

// Patch replaces the instruction at l, keeping its location. It is used to
// close loops and forward branches once their targets are known.
func (b *Builder) Patch(l mir.Label, i mir.Instr) {
	b.body.Code[l].Instr = i
}

// Finish validates and returns the body. The builder must not be used
// afterwards.
func (b *Builder) Finish() (*mir.Body, error) {
	if err := b.body.Validate(); err != nil {
		return nil, err
	}
	return b.body, nil
}

// MustFinish is like Finish but panics on malformed bodies.
func (b *Builder) MustFinish() *mir.Body {
	body, err := b.Finish()
	if err != nil {
		panic(fmt.Errorf("build: %w", err))
	}
	return body
}
