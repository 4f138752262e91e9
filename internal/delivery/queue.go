// Package delivery rate-matches a bursty decode producer to a steady
// render consumer through a fixed-capacity, drop-oldest FIFO.
package delivery

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity is the number of decoded frames kept waiting for render.
const DefaultCapacity = 10

// Queue is a fixed-capacity circular buffer. When full, Push evicts the
// oldest entry: a live view prefers the freshest frame over stale history.
// Safe for concurrent use; the lock is held only across index updates.
type Queue[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int // index of the oldest entry
	n    int // number of entries

	// notify carries at most one pending wakeup for Pop.
	notify chan struct{}

	onEvict func(T)
}

// Option customizes a Queue.
type Option[T any] func(*Queue[T])

// WithEvict registers fn to release the resources of evicted entries.
// fn runs outside the queue lock.
func WithEvict[T any](fn func(T)) Option[T] {
	return func(q *Queue[T]) { q.onEvict = fn }
}

// New creates a queue holding at most capacity entries (DefaultCapacity
// if capacity < 1).
func New[T any](capacity int, opts ...Option[T]) *Queue[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q := &Queue[T]{
		buf:    make([]T, capacity),
		notify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends v, evicting the oldest entry first if the queue is full.
// It never blocks. Returns true if an entry was evicted.
func (q *Queue[T]) Push(v T) bool {
	var (
		evicted  T
		didEvict bool
	)

	q.mu.Lock()
	if q.n == len(q.buf) {
		evicted = q.buf[q.head]
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
		q.n--
		didEvict = true
	}
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	if didEvict && q.onEvict != nil {
		q.onEvict(evicted)
	}
	return didEvict
}

// TryPop removes and returns the oldest entry without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.n == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return v, true
}

// Pop waits up to timeout for an entry and returns the oldest one. It
// returns false on timeout or when ctx is done, so callers can re-check
// their stop condition between waits.
func (q *Queue[T]) Pop(ctx context.Context, timeout time.Duration) (T, bool) {
	if v, ok := q.TryPop(); ok {
		return v, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			if v, ok := q.TryPop(); ok {
				return v, true
			}
		case <-timer.C:
			return q.TryPop()
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Drain removes every entry, passing each to the evict callback. Used at
// call teardown so no decoded frame outlives its call.
func (q *Queue[T]) Drain() int {
	count := 0
	for {
		v, ok := q.TryPop()
		if !ok {
			return count
		}
		count++
		if q.onEvict != nil {
			q.onEvict(v)
		}
	}
}
