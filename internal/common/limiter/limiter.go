// Package limiter bounds the number of in-flight outbound calls. Waiters are
// admitted in arrival order.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is used when a non-positive limit is requested.
const DefaultMaxConcurrent = 20

// Stats is a point-in-time view of the limiter.
type Stats struct {
	Capacity int64
	Active   int64
	Queued   int64
}

// Limiter is a FIFO counting semaphore. The zero value is not usable; use New.
type Limiter struct {
	sem     *semaphore.Weighted
	max     int64
	active  atomic.Int64
	waiting atomic.Int64
}

// New creates a limiter admitting at most max concurrent holders.
func New(max int) *Limiter {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	return &Limiter{
		sem: semaphore.NewWeighted(int64(max)),
		max: int64(max),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.waiting.Add(1)
	err := l.sem.Acquire(ctx, 1)
	l.waiting.Add(-1)
	if err != nil {
		return err
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Run executes fn while holding a slot. The slot is released even if fn panics.
func (l *Limiter) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Stats reports capacity, holders and waiters.
func (l *Limiter) Stats() Stats {
	return Stats{
		Capacity: l.max,
		Active:   l.active.Load(),
		Queued:   l.waiting.Load(),
	}
}
