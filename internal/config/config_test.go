package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mncarlin/webperf/internal/webperf"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
analyzer:
  concurrency: 6
  timeout: 45s
  per_host_qps: 2.5
  user_agent: perf-agent
pool:
  max_idle_conns: 50
  max_conns_per_host: 5
  dns_cache_ttl: 1m
server:
  port: 9090
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Analyzer.Concurrency != 6 || cfg.Analyzer.Timeout != 45*time.Second {
		t.Fatalf("expected analyzer overrides to apply: %+v", cfg.Analyzer)
	}
	if cfg.Analyzer.PerHostQPS != 2.5 || cfg.Analyzer.UserAgent != "perf-agent" {
		t.Fatalf("expected analyzer extras to apply: %+v", cfg.Analyzer)
	}
	if cfg.Pool.MaxIdleConns != 50 || cfg.Pool.MaxConnsPerHost != 5 || cfg.Pool.DNSCacheTTL != time.Minute {
		t.Fatalf("expected pool overrides to apply: %+v", cfg.Pool)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Logging.Development {
		t.Fatal("expected development logging")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analyzer.Concurrency != 10 || cfg.Analyzer.Timeout != 10*time.Second {
		t.Fatalf("unexpected analyzer defaults: %+v", cfg.Analyzer)
	}
	if cfg.Pool.MaxIdleConns != 100 || cfg.Pool.MaxConnsPerHost != 10 {
		t.Fatalf("unexpected pool defaults: %+v", cfg.Pool)
	}
	if cfg.Pool.DNSCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected DNS cache TTL default: %v", cfg.Pool.DNSCacheTTL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "zero concurrency",
			mutate: func(c *Config) { c.Analyzer.Concurrency = 0 },
			field:  "analyzer.concurrency",
		},
		{
			name:   "negative timeout",
			mutate: func(c *Config) { c.Analyzer.Timeout = -time.Second },
			field:  "analyzer.timeout",
		},
		{
			name:   "negative per-host qps",
			mutate: func(c *Config) { c.Analyzer.PerHostQPS = -1 },
			field:  "analyzer.per_host_qps",
		},
		{
			name:   "zero pool conns",
			mutate: func(c *Config) { c.Pool.MaxIdleConns = 0 },
			field:  "pool.max_idle_conns",
		},
		{
			name:   "zero port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			field:  "server.port",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.mutate(&cfg)

			err = cfg.Validate()
			var cfgErr *webperf.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, cfgErr.Field)
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
