package diag

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/BarrensZeppelin/borrowck/mir"
	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	err := Errorf(mir.Loc{File: "f.rs", Line: 3, Col: 5}, SharedWrite, "cannot write to %s", "*x")
	wrapped := fmt.Errorf("checking f: %w", err)

	assert.True(t, Is(err, SharedWrite))
	assert.True(t, Is(wrapped, SharedWrite))
	assert.False(t, Is(err, UninitUse))
	assert.False(t, Is(errors.New("boom"), SharedWrite))
	assert.Equal(t, "f.rs:3:5: cannot write to *x", err.Error())
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf, Errorf(mir.Loc{File: "f.rs", Line: 1, Col: 2}, MoveOutOfBorrow, "moving out of *r"), false)
	assert.Equal(t, "f.rs:1:2: error: moving out of *r [move-out-of-borrow]\n", buf.String())

	buf.Reset()
	Fprint(&buf, errors.New("boom"), false)
	assert.Equal(t, "internal error: boom\n", buf.String())

	buf.Reset()
	Fprint(&buf, Errorf(mir.Loc{Line: 1, Col: 2}, UninitUse, "x"), true)
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestKindString(t *testing.T) {
	for k := UninitUse; k <= MoveOutOfBorrow; k++ {
		assert.NotContains(t, k.String(), "Kind(", "kind %d has no name", int(k))
	}
	assert.Equal(t, "Kind(0)", Kind(0).String())
}
