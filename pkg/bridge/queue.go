package bridge

import "sync"

// Queue is a mutex-guarded FIFO queue of events.
// The zero value is ready to use. All methods are safe for concurrent use.
// The lock is held only for O(1) slice operations, never across I/O.
type Queue[E any] struct {
	mu    sync.Mutex
	items []E
}

// Push appends an event to the tail of the queue.
func (q *Queue[E]) Push(e E) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

// Pop removes and returns the event at the head of the queue.
// The second return value is false when the queue is empty.
// Ownership of the event transfers to the caller.
func (q *Queue[E]) Pop() (E, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero E
		return zero, false
	}

	e := q.items[0]
	// Clear the slot so the payload is collectable once consumed.
	var zero E
	q.items[0] = zero
	q.items = q.items[1:]

	if len(q.items) == 0 {
		// Reset the backing array so a drained queue does not pin
		// the memory of every event it has ever carried.
		q.items = nil
	}
	return e, true
}

// Len returns the number of queued events.
func (q *Queue[E]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
