// Package queue provides a fixed-capacity, closeable FIFO that is safe for
// concurrent producers and consumers.
package queue

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidCapacity is returned by New when the requested capacity is below one.
var ErrInvalidCapacity = errors.New("queue capacity must be at least 1")

// Status reports the outcome of a queue operation.
type Status int

const (
	// StatusSuccess means the value was enqueued or dequeued.
	StatusSuccess Status = iota
	// StatusEmpty means a non-blocking pop found nothing to dequeue.
	StatusEmpty
	// StatusFull means a non-blocking push found no free slot.
	StatusFull
	// StatusClosed means the queue is closed (and, for pops, drained).
	StatusClosed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusFull:
		return "full"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Bounded is a blocking FIFO with a fixed capacity.
//
// Push blocks while the queue is full and Pop blocks while it is empty. Both
// re-check their condition after every wake-up, so spurious or stolen wake-ups
// are harmless. Closing the queue rejects further pushes but lets consumers
// drain what is already queued.
type Bounded[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf    []T
	head   int
	size   int
	closed bool
}

// New creates an open queue that holds at most capacity elements.
func New[T any](capacity int) (*Bounded[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	q := &Bounded[T]{buf: make([]T, capacity)}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Push appends v to the back of the queue, blocking while the queue is full.
// It returns StatusClosed without enqueuing if the queue is closed, including
// when the queue is closed while Push is waiting for space.
func (q *Bounded[T]) Push(v T) Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && q.size == len(q.buf) {
		q.notFull.Wait()
	}
	if q.closed {
		return StatusClosed
	}

	q.enqueue(v)
	return StatusSuccess
}

// TryPush is the non-blocking form of Push. It returns StatusFull instead of
// waiting for space.
func (q *Bounded[T]) TryPush(v T) Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return StatusClosed
	}
	if q.size == len(q.buf) {
		return StatusFull
	}

	q.enqueue(v)
	return StatusSuccess
}

// Pop removes and returns the front element, blocking while the queue is
// empty and open. Once the queue is closed Pop never blocks: it keeps
// returning queued elements until none remain and then reports StatusClosed.
func (q *Bounded[T]) Pop() (T, Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && q.size == 0 {
		q.notEmpty.Wait()
	}
	if q.size == 0 {
		var zero T
		return zero, StatusClosed
	}

	return q.dequeue(), StatusSuccess
}

// TryPop is the non-blocking form of Pop. It returns StatusEmpty when an open
// queue has nothing to dequeue.
func (q *Bounded[T]) TryPop() (T, Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		var zero T
		if q.closed {
			return zero, StatusClosed
		}
		return zero, StatusEmpty
	}

	return q.dequeue(), StatusSuccess
}

// Close marks the queue closed. Queued elements are kept so consumers can
// drain them. Calling Close more than once has no further effect.
func (q *Bounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Clear discards every queued element.
func (q *Bounded[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for i := range q.buf {
		q.buf[i] = zero
	}
	q.head = 0
	q.size = 0
	q.notFull.Broadcast()
}

// IsFull reports whether the queue currently holds Cap elements.
func (q *Bounded[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size == len(q.buf)
}

// IsEmpty reports whether the queue currently holds no elements.
func (q *Bounded[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size == 0
}

// IsClosed reports whether Close has been called.
func (q *Bounded[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued elements.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the maximum number of elements the queue can hold.
func (q *Bounded[T]) Cap() int {
	return len(q.buf)
}

// enqueue and dequeue must be called with q.mu held.
func (q *Bounded[T]) enqueue(v T) {
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
	q.notEmpty.Signal()
}

func (q *Bounded[T]) dequeue() T {
	var zero T
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	q.notFull.Signal()
	return v
}
