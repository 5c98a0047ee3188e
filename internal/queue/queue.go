// Package queue implements a typed, capacity-bounded FIFO shared between
// goroutines.
//
// A Queue supports blocking Put and Get, an explicit end-of-stream signal
// (Close), and a completion barrier (TaskDone / Join) that waits on the count
// of items put but not yet marked done, independently of which consumer took
// them.
package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Get once the queue is closed and drained, and
	// by Put after Close. For consumers it is the end-of-stream marker.
	ErrClosed = errors.New("queue is closed")

	ErrInvalidCapacity = errors.New("queue capacity must be positive")
)

// Queue is a bounded FIFO. The zero value is not usable; call New.
//
// Close must be called by the producing side once all of its Put calls have
// returned. Put and Close must not race.
type Queue[T any] struct {
	items     chan T
	closed    chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	unfinished int
	idle       chan struct{} // closed whenever unfinished == 0
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	idle := make(chan struct{})
	close(idle)

	return &Queue[T]{
		items:  make(chan T, capacity),
		closed: make(chan struct{}),
		idle:   idle,
	}, nil
}

// Put appends v, blocking while the queue is full.
// It returns ctx.Err() if ctx ends first and ErrClosed after Close.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}

	q.add()
	select {
	case q.items <- v:
		return nil
	case <-q.closed:
		q.TaskDone()
		return ErrClosed
	case <-ctx.Done():
		q.TaskDone()
		return ctx.Err()
	}
}

// Get removes the oldest item, blocking while the queue is empty.
// After Close, Get keeps returning buffered items and then ErrClosed.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T

	select {
	case v := <-q.items:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.closed:
		// Every Put completed before Close, so whatever is buffered is final.
		select {
		case v := <-q.items:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}

// Close signals end-of-stream. It is idempotent.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

// TaskDone marks one previously Put item as fully processed.
// Calling it more times than items were put panics.
func (q *Queue[T]) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("queue: TaskDone called more times than Put")
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.idle)
	}
}

// Join blocks until every item put so far has been marked done with TaskDone.
func (q *Queue[T]) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unfinished returns the number of items put and not yet marked done.
func (q *Queue[T]) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.items) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.items) }

func (q *Queue[T]) add() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished == 0 {
		q.idle = make(chan struct{})
	}
	q.unfinished++
}
