package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsNonPositiveLimit(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxConcurrent), New(0).Stats().Capacity)
	assert.Equal(t, int64(3), New(3).Stats().Capacity)
}

func TestRun_NeverExceedsCapacity(t *testing.T) {
	l := New(3)
	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Run(context.Background(), func(ctx context.Context) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Equal(t, Stats{Capacity: 3}, l.Stats())
}

func TestAcquire_AdmitsWaitersInArrivalOrder(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			l.Release()
		}(i)

		want := int64(i + 1)
		require.Eventually(t, func() bool { return l.Stats().Queued == want }, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	l.Release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), l.Stats().Queued)
	assert.Equal(t, int64(1), l.Stats().Active)
}

func TestRun_ReleasesOnPanic(t *testing.T) {
	l := New(1)

	assert.Panics(t, func() {
		_ = l.Run(context.Background(), func(ctx context.Context) error { panic("boom") })
	})
	assert.Equal(t, int64(0), l.Stats().Active)
	assert.NoError(t, l.Run(context.Background(), func(ctx context.Context) error { return nil }))
}
