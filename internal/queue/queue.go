package queue

import "errors"

// Queue is a FIFO worklist. An element that is already waiting in the queue
// is not enqueued a second time.
type Queue[E comparable] struct {
	elements []E
	queued   map[E]bool
}

// Push enqueues e unless it is already waiting. It reports whether e was
// added.
func (q *Queue[E]) Push(e E) bool {
	if q.queued == nil {
		q.queued = make(map[E]bool)
	}
	if q.queued[e] {
		return false
	}
	q.queued[e] = true
	q.elements = append(q.elements, e)
	return true
}

func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

func (q *Queue[E]) Len() int {
	return len(q.elements)
}

var ErrEmpty = errors.New("Queue is empty")

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	e := q.elements[0]
	q.elements = q.elements[1:]
	delete(q.queued, e)
	return e
}
