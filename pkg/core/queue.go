package core

// FIFO is an unbounded first-in first-out queue.
// Items are delivered exactly in insertion order; duplicates are kept because
// a repeated trigger may follow an opposing one (changed, broken, changed).
// A FIFO is owned by a single dispatcher and is not safe for concurrent use.
type FIFO[T any] struct {
	items []T
}

func NewFIFO[T any](initial ...T) *FIFO[T] {
	return &FIFO[T]{items: append([]T(nil), initial...)}
}

func (queue *FIFO[T]) Push(items ...T) {
	queue.items = append(queue.items, items...)
}

func (queue *FIFO[T]) Pop() (T, bool) {
	var zero T

	if len(queue.items) == 0 {
		return zero, false
	}

	item := queue.items[0]
	queue.items[0] = zero
	queue.items = queue.items[1:]

	return item, true
}

func (queue *FIFO[T]) Len() int {
	return len(queue.items)
}
