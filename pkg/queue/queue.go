// Package queue hands items from any number of producers to a single
// consumer that waits with an absolute deadline.
package queue

import (
	"context"
	"sync"
	"time"
)

func New[T any]() *Queue[T] {
	return &Queue[T]{wakeup: make(chan struct{}, 1)}
}

type Queue[T any] struct {
	l      sync.Mutex
	items  []T
	wakeup chan struct{}
}

// Push appends item and wakes the consumer. It never blocks.
func (q *Queue[T]) Push(item T) {
	q.l.Lock()
	q.items = append(q.items, item)
	q.l.Unlock()

	select {
	case q.wakeup <- struct{}{}:
	default:
	}
}

// Pop returns the oldest item, waiting until deadline if the queue is empty.
// The second result is false if the deadline passed or ctx ended first.
func (q *Queue[T]) Pop(ctx context.Context, deadline time.Time) (T, bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if item, ok := q.take(); ok {
			return item, true
		}

		if timer == nil {
			timer = time.NewTimer(time.Until(deadline))
		}

		select {
		case <-q.wakeup:
		case <-timer.C:
			return q.take()
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

func (q *Queue[T]) Len() int {
	q.l.Lock()
	defer q.l.Unlock()
	return len(q.items)
}

func (q *Queue[T]) take() (T, bool) {
	q.l.Lock()
	defer q.l.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}
