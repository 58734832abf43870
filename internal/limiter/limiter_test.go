package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mncarlin/webperf/internal/webperf"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		_, err := New(capacity)
		var cfgErr *webperf.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		require.Equal(t, "concurrency", cfgErr.Field)
	}
}

func TestSlotsBoundConcurrentHolders(t *testing.T) {
	t.Parallel()

	const capacity = 3
	slots, err := New(capacity)
	require.NoError(t, err)

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, slots.Acquire(context.Background()))
			defer slots.Release()

			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak.Load(), int64(capacity))
	require.Equal(t, capacity, slots.Capacity())
}

func TestAcquireRespectsCancelledContext(t *testing.T) {
	t.Parallel()

	slots, err := New(1)
	require.NoError(t, err)
	require.NoError(t, slots.Acquire(context.Background()))
	defer slots.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = slots.Acquire(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestAccountingBalancesAfterCancellation(t *testing.T) {
	t.Parallel()

	slots, err := New(2)
	require.NoError(t, err)

	require.NoError(t, slots.Acquire(context.Background()))
	require.NoError(t, slots.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, slots.Acquire(ctx))

	slots.Release()
	slots.Release()

	// Both slots must be available again.
	require.NoError(t, slots.Acquire(context.Background()))
	require.NoError(t, slots.Acquire(context.Background()))
	slots.Release()
	slots.Release()
}
