// Package pool provides the shared HTTP transport reused by all fetch
// workers: pooled connections with per-host bounds and time-bounded DNS
// caching. The pool is safe for concurrent use and is handed to workers as
// an opaque capability.
package pool

import (
	"net"
	"net/http"
	"time"
)

// Config bounds the shared transport resources.
type Config struct {
	MaxIdleConns    int
	MaxConnsPerHost int
	DNSCacheTTL     time.Duration
}

const (
	defaultMaxIdleConns    = 100
	defaultMaxConnsPerHost = 10
	defaultDNSCacheTTL     = 5 * time.Minute
)

// NewTransport builds an http.Transport with connection reuse and cached
// address resolution. Zero config fields fall back to defaults.
func NewTransport(cfg Config) *http.Transport {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = defaultMaxConnsPerHost
	}
	if cfg.DNSCacheTTL <= 0 {
		cfg.DNSCacheTTL = defaultDNSCacheTTL
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	cache := newDNSCache(cfg.DNSCacheTTL, net.DefaultResolver)

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           cache.dialContext(dialer),
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
