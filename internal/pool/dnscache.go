package pool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// hostResolver is the subset of net.Resolver the cache depends on.
type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// dnsCache memoizes address resolution for a bounded time. Concurrent
// lookups for the same host are coalesced so a cold cache issues one query
// per host, not one per in-flight fetch.
type dnsCache struct {
	ttl      time.Duration
	resolver hostResolver
	group    singleflight.Group
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]dnsEntry
}

type dnsEntry struct {
	addrs   []string
	expires time.Time
}

func newDNSCache(ttl time.Duration, resolver hostResolver) *dnsCache {
	return &dnsCache{
		ttl:      ttl,
		resolver: resolver,
		now:      time.Now,
		entries:  make(map[string]dnsEntry),
	}
}

func (c *dnsCache) lookup(ctx context.Context, host string) ([]string, error) {
	c.mu.RLock()
	entry, ok := c.entries[host]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.addrs, nil
	}

	v, err, _ := c.group.Do(host, func() (any, error) {
		addrs, err := c.resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("lookup host %s: %w", host, err)
		}
		c.mu.Lock()
		c.entries[host] = dnsEntry{addrs: addrs, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return addrs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// dialContext wraps a dialer so hostnames resolve through the cache.
// Literal IP addresses bypass resolution entirely.
func (c *dnsCache) dialContext(dialer *net.Dialer) dialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, fmt.Errorf("split host port %s: %w", address, err)
		}
		if net.ParseIP(host) != nil {
			return dialer.DialContext(ctx, network, address)
		}

		addrs, err := c.lookup(ctx, host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, addr := range addrs {
			conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(addr, port))
			if dialErr == nil {
				return conn, nil
			}
			lastErr = dialErr
			if ctx.Err() != nil {
				break
			}
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no addresses resolved for %s", host)
		}
		return nil, lastErr
	}
}
