// Package config is the configuration surface the registry's Init call
// consumes: connection parameters, pool sizing, and the cache layer's
// tunables, each defaulted via struct tags the way the host framework
// defaults its own section types.
package config

import (
	"time"

	"github.com/creasty/defaults"
)

// Database is one connection's non-cache configuration.
type Database struct {
	ConnString string `default:""`
	PoolSize   int    `default:"10"`
}

// Cache is the external key-value store connection plus the coordinator's
// tunables — the flattened shape of the `config({...})` surface in §6.
type Cache struct {
	Host     string `default:"127.0.0.1"`
	Port     int    `default:"6379"`
	Password string `default:""`
	DB       int    `default:"0"`

	KeyPrefix string `default:"pgcache:"`

	MaxRetries int `default:"3"`

	CircuitBreakerThreshold uint32 `default:"5"`

	// Durations aren't supported by the "default" struct tag (the teacher's
	// config package has the same gap and patches it manually after
	// defaults.Set — see setDefaultDurations below), so they carry no tag
	// and are filled in code.
	DefaultTTL            time.Duration
	MaxTTL                time.Duration
	RetryDelay            time.Duration
	CircuitBreakerTimeout time.Duration
}

// Connection is one named registry entry's full configuration.
type Connection struct {
	Database Database
	Cache    *Cache // nil disables caching for this connection
}

// New returns a Connection with every defaultable field filled in:
// struct-tag defaults via defaults.Set, then the duration fields the
// "default" tag can't express.
func New() *Connection {
	db := &Database{}
	if err := defaults.Set(db); err != nil {
		panic(err) // only fails on a malformed "default" tag, a programmer error
	}

	cache := &Cache{}
	if err := defaults.Set(cache); err != nil {
		panic(err)
	}
	setDefaultDurations(cache)

	return &Connection{Database: *db, Cache: cache}
}

func setDefaultDurations(c *Cache) {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 300 * time.Second
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = 3600 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	if c.CircuitBreakerTimeout <= 0 {
		c.CircuitBreakerTimeout = 30 * time.Second
	}
}
