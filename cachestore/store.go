// Package cachestore is the connection lifecycle and operation surface for
// the external key-value store (Redis semantics) fronting the executor:
// GET / SET-with-TTL / DEL / KEYS / FLUSH, each wrapped in a bounded,
// linearly-backed-off retry. Callers are expected to additionally guard
// every call with a breaker.Breaker — this package does not know about
// circuit breaking.
package cachestore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 100 * time.Millisecond
)

// Config is passed through to the redis client constructor.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	MaxRetries int
	RetryDelay time.Duration
}

// Store is a retrying client for the external cache store.
type Store struct {
	rdb        *redis.Client
	maxRetries int
	retryDelay time.Duration
}

// New opens a client against cfg. Connection establishment is lazy
// (go-redis dials on first use); call Ping to fail fast.
func New(cfg Config) *Store {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr(cfg),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func addr(cfg Config) string {
	host := cfg.Host
	if len(host) == 0 {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	return host + ":" + strconv.Itoa(port)
}

// Ping checks connectivity, bypassing retry: it is used as a cheap
// liveness probe, not a logical operation worth retrying.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Get fetches key, returning (value, false, nil) on a cache miss and
// (value, true, nil) on a hit. Retries on transport/server error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var val string
	var hit bool
	err := s.withRetry(ctx, func() error {
		v, err := s.rdb.Get(ctx, key).Result()
		switch {
		case err == redis.Nil:
			hit = false
			return nil
		case err != nil:
			return err
		default:
			val, hit = v, true
			return nil
		}
	})
	return val, hit, err
}

// Set stores value under key with the given TTL (0 means no expiry).
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.withRetry(ctx, func() error {
		return s.rdb.Set(ctx, key, value, ttl).Err()
	})
}

// Del removes the given keys; a no-op if keys is empty.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.withRetry(ctx, func() error {
		return s.rdb.Del(ctx, keys...).Err()
	})
}

// Keys lists every key matching pattern. Uses KEYS rather than a SCAN
// cursor: the coordinator's invalidation sweep runs under a namespace
// prefix that is expected to stay small relative to the whole keyspace.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := s.withRetry(ctx, func() error {
		var err error
		keys, err = s.rdb.Keys(ctx, pattern).Result()
		return err
	})
	return keys, err
}

// Flush deletes every key matching pattern: a KEYS scan followed by a DEL
// of the matched set. Not atomic — a key written between the two calls is
// not guaranteed to be deleted.
func (s *Store) Flush(ctx context.Context, pattern string) error {
	keys, err := s.Keys(ctx, pattern)
	if err != nil {
		return err
	}
	return s.Del(ctx, keys...)
}

// withRetry runs fn up to maxRetries times, sleeping retryDelay*attempt
// between attempts (linear backoff), returning the last error.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return err
}
