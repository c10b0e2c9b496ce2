package cachecoord

import "time"

const (
	DefaultTTL      = 300 * time.Second
	DefaultMaxTTL   = 3600 * time.Second
	DefaultPrefix   = "pgcache:"
	minListTTL      = 60 * time.Second
	shortTakeWindow = 10
)

// Config is the effective configuration surface exposed as
// `config({defaultTTL, maxTTL, keyPrefix, maxRetries, retryDelay,
// circuitBreakerThreshold, circuitBreakerTimeout})`. NewConfig replaces each
// unset or non-positive field with its default and raises MaxTTL to at
// least DefaultTTL.
type Config struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
	KeyPrefix  string

	MaxRetries int
	RetryDelay time.Duration

	CircuitBreakerThreshold uint32
	CircuitBreakerTimeout   time.Duration
}

// NewConfig fills unset/invalid fields with defaults and returns the
// effective configuration.
func NewConfig(cfg Config) Config {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = DefaultMaxTTL
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = cfg.DefaultTTL
	}
	if len(cfg.KeyPrefix) == 0 {
		cfg.KeyPrefix = DefaultPrefix
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.CircuitBreakerTimeout <= 0 {
		cfg.CircuitBreakerTimeout = 30 * time.Second
	}
	return cfg
}
