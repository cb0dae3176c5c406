package mir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, testBody().Validate())

	for name, mutate := range map[string]func(b *Body){
		"NoReturnLocal": func(b *Body) { b.Locals[0].Kind = LocalTemp },
		"BadJump":       func(b *Body) { b.Code[0].Instr = Goto{Target: 3} },
		"BadEntry":      func(b *Body) { b.Entry = 1 },
		"Empty":         func(b *Body) { b.Code = nil },
		"UnknownLocal": func(b *Body) {
			b.Code = []Stmt{{Instr: Assign{Dst: PlaceOf(9), Src: UnitValue{}, Next: 1}}, {Instr: Return{}}}
		},
		"UnknownFunc": func(b *Body) {
			b.Code = []Stmt{{Instr: Call{Func: "nope", Dst: PlaceOf(0), Next: 1}}, {Instr: Return{}}}
		},
		"StructArity": func(b *Body) {
			b.Code = []Stmt{{Instr: Assign{Dst: PlaceOf(0), Src: MakeStruct{Name: "Pair"}, Next: 1}}, {Instr: Return{}}}
		},
	} {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			b := testBody()
			mutate(b)
			err := b.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestOperands(t *testing.T) {
	x, y := PlaceOf(1), PlaceOf(2)
	assert.Equal(t, []Place{x, y}, Operands(Assign{Dst: x, Src: BinOp{Op: "+", X: x, Y: y}}))
	assert.Equal(t, []Place{x}, Operands(Assign{Dst: y, Src: Borrow{Mut: Mut, Place: x}}))
	assert.Equal(t, []Place{x, y}, Operands(Call{Func: "f", Args: []LocalID{1, 2}}))
	assert.Equal(t, []Place{x}, Operands(If{Cond: 1}))
	assert.Empty(t, Operands(Assign{Dst: x, Src: Const{Value: 3}}))
	assert.Empty(t, Operands(Return{}))

	dst, ok := Destination(Call{Func: "f", Dst: y})
	assert.True(t, ok)
	assert.Equal(t, y, dst)
	_, ok = Destination(Deinit{Local: 1})
	assert.False(t, ok)
}

func TestMaxFresh(t *testing.T) {
	b := testBody()
	assert.Equal(t, 0, b.MaxFresh())
	b.Locals = append(b.Locals, Local{Name: "t", Type: Ref(Lifetime{Fresh: 7}, Shared, I32)})
	assert.Equal(t, 7, b.MaxFresh())
}
