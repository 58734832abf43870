// Package config loads and validates analyzer configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mncarlin/webperf/internal/webperf"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AnalyzerConfig governs batch execution: how many fetches run at once and
// how long each single attempt may take.
type AnalyzerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PerHostQPS  float64       `mapstructure:"per_host_qps"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// PoolConfig bounds the shared transport resources reused across fetches.
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"`
	DNSCacheTTL     time.Duration `mapstructure:"dns_cache_ttl"`
}

// ServerConfig controls the HTTP service mode.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBPERF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analyzer.concurrency", 10)
	v.SetDefault("analyzer.timeout", "10s")
	v.SetDefault("analyzer.per_host_qps", 0.0)
	v.SetDefault("analyzer.user_agent", "webperf/1.0 (+https://github.com/mncarlin/webperf)")
	v.SetDefault("pool.max_idle_conns", 100)
	v.SetDefault("pool.max_conns_per_host", 10)
	v.SetDefault("pool.dns_cache_ttl", "5m")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.Analyzer.Validate(); err != nil {
		return err
	}
	if c.Pool.MaxIdleConns <= 0 {
		return &webperf.ConfigError{Field: "pool.max_idle_conns", Reason: "must be > 0"}
	}
	if c.Pool.MaxConnsPerHost <= 0 {
		return &webperf.ConfigError{Field: "pool.max_conns_per_host", Reason: "must be > 0"}
	}
	if c.Pool.DNSCacheTTL <= 0 {
		return &webperf.ConfigError{Field: "pool.dns_cache_ttl", Reason: "must be > 0"}
	}
	if c.Server.Port <= 0 {
		return &webperf.ConfigError{Field: "server.port", Reason: "must be > 0"}
	}
	return nil
}

// Validate rejects settings that would make a batch unrunnable. It is
// checked before any task is spawned so a bad value never starts work.
func (c AnalyzerConfig) Validate() error {
	if c.Concurrency <= 0 {
		return &webperf.ConfigError{Field: "analyzer.concurrency", Reason: "must be > 0"}
	}
	if c.Timeout <= 0 {
		return &webperf.ConfigError{Field: "analyzer.timeout", Reason: "must be > 0"}
	}
	if c.PerHostQPS < 0 {
		return &webperf.ConfigError{Field: "analyzer.per_host_qps", Reason: "must be >= 0"}
	}
	return nil
}
