package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	var q Queue[int]
	assert.True(t, q.Empty())

	assert.True(t, q.Push(1))
	assert.False(t, q.Empty())
	assert.Equal(t, 1, q.Pop())
	assert.True(t, q.Empty())

	q.Push(2)
	q.Push(3)

	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 3, q.Pop())
	assert.True(t, q.Empty())

	assert.Panics(t, func() { q.Pop() })
}

func TestQueueDedup(t *testing.T) {
	var q Queue[string]
	assert.True(t, q.Push("a"))
	assert.True(t, q.Push("b"))
	assert.False(t, q.Push("a"), "a is already waiting")
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, "a", q.Pop())
	assert.True(t, q.Push("a"), "a may be enqueued again once popped")
	assert.Equal(t, "b", q.Pop())
	assert.Equal(t, "a", q.Pop())
	assert.True(t, q.Empty())
}
