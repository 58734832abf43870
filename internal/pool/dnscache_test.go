package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mu      sync.Mutex
	calls   int
	addrs   []string
	err     error
	release chan struct{}
}

func (r *fakeResolver) LookupHost(_ context.Context, _ string) ([]string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.addrs, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestDNSCacheReusesEntryWithinTTL(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{addrs: []string{"192.0.2.10"}}
	cache := newDNSCache(5*time.Minute, resolver)

	for range 3 {
		addrs, err := cache.lookup(context.Background(), "example.com")
		require.NoError(t, err)
		require.Equal(t, []string{"192.0.2.10"}, addrs)
	}
	require.Equal(t, 1, resolver.callCount())
}

func TestDNSCacheExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{addrs: []string{"192.0.2.10"}}
	cache := newDNSCache(time.Minute, resolver)

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	_, err := cache.lookup(context.Background(), "example.com")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.lookup(context.Background(), "example.com")
	require.NoError(t, err)

	require.Equal(t, 2, resolver.callCount())
}

func TestDNSCacheCoalescesConcurrentLookups(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{addrs: []string{"192.0.2.10"}, release: make(chan struct{})}
	cache := newDNSCache(time.Minute, resolver)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.lookup(context.Background(), "example.com")
			require.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return resolver.callCount() >= 1 }, time.Second, 5*time.Millisecond)
	close(resolver.release)
	wg.Wait()

	require.Equal(t, 1, resolver.callCount())
}

func TestDNSCacheLookupFailure(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{err: errors.New("nxdomain")}
	cache := newDNSCache(time.Minute, resolver)

	_, err := cache.lookup(context.Background(), "missing.example")
	require.Error(t, err)
	require.ErrorContains(t, err, "lookup host missing.example")
}

func TestNewTransportAppliesBounds(t *testing.T) {
	t.Parallel()

	tr := NewTransport(Config{MaxIdleConns: 42, MaxConnsPerHost: 7, DNSCacheTTL: time.Minute})
	require.Equal(t, 42, tr.MaxIdleConns)
	require.Equal(t, 7, tr.MaxIdleConnsPerHost)
	require.Equal(t, 7, tr.MaxConnsPerHost)
	require.NotNil(t, tr.DialContext)
}

func TestNewTransportDefaults(t *testing.T) {
	t.Parallel()

	tr := NewTransport(Config{})
	require.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
	require.Equal(t, defaultMaxConnsPerHost, tr.MaxConnsPerHost)
}
