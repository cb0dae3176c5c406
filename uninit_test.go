package borrowck

import (
	"testing"

	"github.com/BarrensZeppelin/borrowck/internal/dataflow"
	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/BarrensZeppelin/borrowck/mir/build"
	"github.com/stretchr/testify/assert"
)

func TestUninitPlaces(t *testing.T) {
	b := build.New(FixtureProgram(), "uninit")
	r := b.Ret(mir.Unit)
	k := b.Local("k", mir.I32)
	b1, b2 := b.Local("b1", mir.Struct("Box")), b.Local("b2", mir.Struct("Box"))
	s, u := b.Local("s", mir.Struct("Two")), b.Local("u", mir.Struct("Two"))
	z := b.Local("z", mir.Struct("Box"))
	b.Const(mir.PlaceOf(k), 0)                      // 0
	b.Make(mir.PlaceOf(b1), "Box", k)               // 1
	b.Make(mir.PlaceOf(b2), "Box", k)               // 2
	b.Make(mir.PlaceOf(s), "Two", b1, b2)           // 3
	b.Use(mir.PlaceOf(z), mir.PlaceOf(s).Field(1))  // 4
	b.Make(mir.PlaceOf(b1), "Box", k)               // 5
	b.Use(mir.PlaceOf(s).Field(1), mir.PlaceOf(b1)) // 6
	b.Use(mir.PlaceOf(u), mir.PlaceOf(s))           // 7
	b.Unit(mir.PlaceOf(r))                          // 8
	b.Return()                                      // 9
	body := b.MustFinish()

	uninit := computeUninit(body, dataflow.NewCFG(body))
	sp, sa, sb := mir.PlaceOf(s), mir.PlaceOf(s).Field(0), mir.PlaceOf(s).Field(1)

	t.Run("Entry", func(t *testing.T) {
		assert.True(t, uninit.IsUninit(0, mir.PlaceOf(r)))
		assert.True(t, uninit.IsUninit(0, sp))
		assert.True(t, uninit.IsUninit(0, sb))
	})

	t.Run("PartialMove", func(t *testing.T) {
		assert.False(t, uninit.IsUninit(5, sa))
		assert.True(t, uninit.IsUninit(5, sb))
		assert.False(t, uninit.IsUninit(5, sp), "moving a field leaves the owner in place")
		assert.True(t, uninit.NotFullyInit(5, sp))
		assert.False(t, uninit.NotFullyInit(5, sa))
	})

	t.Run("Reinit", func(t *testing.T) {
		assert.False(t, uninit.NotFullyInit(7, sp))
		assert.False(t, uninit.IsUninit(7, sb))
	})

	t.Run("Move", func(t *testing.T) {
		assert.True(t, uninit.IsUninit(8, sp))
		assert.True(t, uninit.IsUninit(8, sa))
		assert.False(t, uninit.NotFullyInit(8, mir.PlaceOf(u)))
		assert.False(t, uninit.IsUninit(8, mir.PlaceOf(k)), "copies do not deinitialize")
	})

	assert.ElementsMatch(t, []mir.Place{
		mir.PlaceOf(r), mir.PlaceOf(b1), mir.PlaceOf(b2), sb, mir.PlaceOf(u),
	}, uninit.At(5))
}

func TestUninitJoin(t *testing.T) {
	b := build.New(FixtureProgram(), "join")
	r := b.Ret(mir.Unit)
	c := b.Param("c", mir.Bool)
	x := b.Local("x", mir.Struct("Box"))
	k := b.Local("k", mir.I32)
	b.Const(mir.PlaceOf(k), 0)       // 0
	b.Make(mir.PlaceOf(x), "Box", k) // 1
	b.If(c, 3, 4)                    // 2
	b.Deinit(x)                      // 3
	b.Unit(mir.PlaceOf(r))           // 4
	b.Return()                       // 5
	body := b.MustFinish()

	uninit := computeUninit(body, dataflow.NewCFG(body))
	assert.False(t, uninit.IsUninit(2, mir.PlaceOf(x)))
	assert.True(t, uninit.IsUninit(3, mir.PlaceOf(c)), "branching consumes the condition")
	assert.True(t, uninit.IsUninit(4, mir.PlaceOf(x)), "uninitialized on one incoming path")
}

func TestPlaceIndex(t *testing.T) {
	b := build.New(FixtureProgram(), "index")
	l := b.Fresh()
	r := b.Ret(mir.Unit)
	p := b.Local("p", mir.Ref(l, mir.Mut, mir.Struct("Pair")))
	b.Const(mir.PlaceOf(p).Deref().Field(1), 1)
	b.Unit(mir.PlaceOf(r))
	b.Return()
	body := b.MustFinish()

	ix := newPlaceIndex(body)
	for _, q := range []mir.Place{
		mir.PlaceOf(p),
		mir.PlaceOf(p).Deref(),
		mir.PlaceOf(p).Deref().Field(0),
		mir.PlaceOf(p).Deref().Field(1),
	} {
		_, ok := ix.id(q)
		assert.True(t, ok, "%v is tracked", q)
	}

	id, _ := ix.id(mir.PlaceOf(p).Deref())
	assert.Len(t, ix.subplaces[id], 3)
}
