package queue

import (
	"errors"
	"sync"

	"hlspiped/internal/models"
)

// ErrFull is returned by Push when the queue is at capacity. Callers
// are expected to check Full first and wait for drain instead.
var ErrFull = errors.New("queue is full")

// Queue is a bounded FIFO of processed segments shared between the
// producer and consumer goroutines. Segments are enqueued in strictly
// increasing sequence order and drained oldest-first, so playback order
// always matches discovery order.
//
// Push and pop events are additionally signalled on non-blocking
// channels so waiters can react to occupancy changes without polling.
type Queue struct {
	mu    sync.Mutex
	items []*models.ProcessedSegment
	max   int

	pushed chan struct{}
	popped chan struct{}
}

// New creates a queue with the given capacity ceiling.
func New(max int) *Queue {
	return &Queue{
		items:  make([]*models.ProcessedSegment, 0, max),
		max:    max,
		pushed: make(chan struct{}, 1),
		popped: make(chan struct{}, 1),
	}
}

// Push appends a segment. Returns ErrFull at capacity.
func (q *Queue) Push(seg *models.ProcessedSegment) error {
	q.mu.Lock()
	if len(q.items) >= q.max {
		q.mu.Unlock()
		return ErrFull
	}
	q.items = append(q.items, seg)
	q.mu.Unlock()

	signal(q.pushed)
	return nil
}

// Pop removes and returns the oldest segment, or false when empty.
func (q *Queue) Pop() (*models.ProcessedSegment, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	seg := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()

	signal(q.popped)
	return seg, true
}

// Len returns the current occupancy.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Full reports whether occupancy has reached the capacity ceiling.
func (q *Queue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) >= q.max
}

// Clear drops all buffered segments.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = q.items[:0]
	q.mu.Unlock()

	signal(q.popped)
}

// Pushed returns a channel that receives a signal after each push.
func (q *Queue) Pushed() <-chan struct{} {
	return q.pushed
}

// Popped returns a channel that receives a signal after each pop or clear.
func (q *Queue) Popped() <-chan struct{} {
	return q.popped
}

// signal performs a non-blocking send; a pending signal already covers
// the waiter.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
