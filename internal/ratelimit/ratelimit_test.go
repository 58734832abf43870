package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitUnlimitedByDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for range 50 {
		require.NoError(t, l.Wait(context.Background(), "https://example.com/p"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitPacesSameHost(t *testing.T) {
	t.Parallel()

	l := New(Config{PerHostQPS: 20})
	start := time.Now()
	for range 4 {
		require.NoError(t, l.Wait(context.Background(), "https://example.com/p"))
	}
	// Burst of 1, then 3 waits at 20 QPS: at least ~150ms of pacing.
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitSeparateHostsDoNotShareBuckets(t *testing.T) {
	t.Parallel()

	l := New(Config{PerHostQPS: 5})
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "https://a.example.com/"))
	require.NoError(t, l.Wait(context.Background(), "https://b.example.com/"))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{PerHostQPS: 0.1})
	require.NoError(t, l.Wait(context.Background(), "https://slow.example.com/"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://slow.example.com/"))
}
