package borrowck

import (
	"testing"

	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/BarrensZeppelin/borrowck/mir/build"
	"github.com/stretchr/testify/assert"
)

func TestLiveLocals(t *testing.T) {
	b := build.New(FixtureProgram(), "live")
	r := b.Ret(mir.I32)
	x, y := b.Local("x", mir.I32), b.Local("y", mir.I32)
	p := b.Local("p", mir.Ref(b.Fresh(), mir.Mut, mir.I32))
	b.Const(mir.PlaceOf(x), 1)                        // 0
	b.Borrow(mir.PlaceOf(p), mir.Mut, mir.PlaceOf(x)) // 1
	b.Const(mir.PlaceOf(p).Deref(), 2)                // 2
	b.Use(mir.PlaceOf(y), mir.PlaceOf(x))             // 3
	b.Use(mir.PlaceOf(r), mir.PlaceOf(y))             // 4
	b.Return()                                        // 5
	body := b.MustFinish()

	live := computeLiveLocals(body, dataflow.NewCFG(body))

	for l, want := range [][]mir.LocalID{
		nil,
		{x},
		{x, p},
		{x},
		{y},
		{r},
	} {
		assert.Equal(t, want, live.At(mir.Label(l)), "L%d", l)
	}

	assert.True(t, live.IsLive(2, p), "writing through p reads p")
	assert.False(t, live.IsLive(1, p), "p is overwritten at 1")
}

func TestLiveLocalsLoop(t *testing.T) {
	b := build.New(FixtureProgram(), "loop")
	r := b.Ret(mir.Unit)
	c, x, y := b.Local("c", mir.Bool), b.Local("x", mir.I32), b.Local("y", mir.I32)
	b.Const(mir.PlaceOf(x), 1)            // 0
	b.Const(mir.PlaceOf(c), 1)            // 1
	b.If(c, 3, 4)                         // 2
	b.Goto(1)                             // 3
	b.Use(mir.PlaceOf(y), mir.PlaceOf(x)) // 4
	b.Unit(mir.PlaceOf(r))                // 5
	b.Return()                            // 6
	body := b.MustFinish()

	live := computeLiveLocals(body, dataflow.NewCFG(body))
	for l := mir.Label(1); l <= 4; l++ {
		assert.True(t, live.IsLive(l, x), "x is live around the loop at L%d", l)
	}
	assert.False(t, live.IsLive(0, x))
	assert.True(t, live.IsLive(2, c))
	assert.False(t, live.IsLive(3, c))
}

func TestDefsUses(t *testing.T) {
	b := build.New(FixtureProgram(), "defs")
	r := b.Ret(mir.Unit)
	s := b.Local("s", mir.Struct("Pair"))
	b.Const(mir.PlaceOf(s).Field(0), 1)
	b.Deinit(s)
	b.Unit(mir.PlaceOf(r))
	b.Return()
	body := b.MustFinish()

	defs, uses := defsUses(body, body.Instr(0))
	assert.Empty(t, defs, "a field write does not overwrite the whole local")
	assert.Empty(t, uses)

	defs, _ = defsUses(body, body.Instr(1))
	assert.Equal(t, []mir.LocalID{s}, defs)

	_, uses = defsUses(body, body.Instr(3))
	assert.Equal(t, []mir.LocalID{r}, uses)
}
