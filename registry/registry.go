// Package registry binds a symbolic connection name to the tuple the rest
// of the module needs to serve a Filter: a pool, an optional cache
// coordinator, a default schema, and an error sink. It is the module's
// single stateful entry point — everything else (builder, executor,
// cachecoord) is constructed fresh per call or owned by an Entry here.
package registry

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/relaycore/pgdb/breaker"
	"github.com/relaycore/pgdb/cachecoord"
	"github.com/relaycore/pgdb/cachestore"
	"github.com/relaycore/pgdb/config"
	"github.com/relaycore/pgdb/dbpool"
	"github.com/relaycore/pgdb/executor"
	"github.com/relaycore/pgdb/types"
)

// CacheConfig is the optional cache-layer configuration passed to Init. A
// nil CacheConfig means the connection runs uncached: every call falls
// straight through to the pool.
type CacheConfig struct {
	Store   cachestore.Config
	Cache   cachecoord.Config
	Breaker breaker.Config
}

// Entry is one registered connection: its pool, its (optional) cache
// coordinator, and the default schema/error sink applied to every Filter
// dispatched under its name.
type Entry struct {
	Name         string
	Schema       string
	Pool         *dbpool.Pool
	Store        *cachestore.Store
	Breaker      *breaker.Breaker
	Coordinator  *cachecoord.Coordinator
	runner       *executor.Runner
}

// Registry owns every registered Entry and is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	log     types.Logger
}

// New returns an empty Registry. logger may be nil.
func New(logger types.Logger) *Registry {
	return &Registry{entries: make(map[string]*Entry), log: logger}
}

// Init registers name against connString, first shutting down any existing
// entry under that name. An empty connString removes the binding (step 2
// of the init contract) and returns nil. poolSize, if > 0, overrides the
// pool's `pooling` query-string parameter; errorSink and cacheCfg are both
// optional.
func (r *Registry) Init(ctx context.Context, name, connString string, poolSize int, errorSink types.ErrorSink, cacheCfg *CacheConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[name]; ok {
		closeEntry(old)
		delete(r.entries, name)
	}

	if len(connString) == 0 {
		return nil
	}

	schema, pooling, err := parseConnString(connString)
	if err != nil {
		return errors.Wrapf(err, "registry: parse connection string for %q", name)
	}
	if poolSize > 0 {
		pooling = poolSize
	}

	pool, err := dbpool.New(ctx, connString, pooling)
	if err != nil {
		return errors.Wrapf(err, "registry: open pool for %q", name)
	}

	entry := &Entry{Name: name, Schema: schema, Pool: pool}
	entry.runner = &executor.Runner{Pool: pool, ConnName: name, ErrorSink: errorSink}

	if cacheCfg != nil {
		store := cachestore.New(cacheCfg.Store)
		br := breaker.New(withBreakerName(cacheCfg.Breaker, name))
		var log types.Logger
		if r.log != nil {
			log = r.log.Named("cachecoord." + name)
		}
		entry.Store = store
		entry.Breaker = br
		entry.Coordinator = cachecoord.New(store, br, cacheCfg.Cache, log)
	}

	r.entries[name] = entry
	return nil
}

// CacheConfigFrom adapts a config.Cache section (as produced by config.New)
// into the CacheConfig shape Init expects.
func CacheConfigFrom(c *config.Cache) *CacheConfig {
	if c == nil {
		return nil
	}
	return &CacheConfig{
		Store: cachestore.Config{
			Host:       c.Host,
			Port:       c.Port,
			Password:   c.Password,
			DB:         c.DB,
			MaxRetries: c.MaxRetries,
			RetryDelay: c.RetryDelay,
		},
		Cache: cachecoord.Config{
			DefaultTTL: c.DefaultTTL,
			MaxTTL:     c.MaxTTL,
			KeyPrefix:  c.KeyPrefix,
			MaxRetries: c.MaxRetries,
			RetryDelay: c.RetryDelay,
		},
		Breaker: breaker.Config{
			Threshold: c.CircuitBreakerThreshold,
			Timeout:   c.CircuitBreakerTimeout,
		},
	}
}

func withBreakerName(cfg breaker.Config, name string) breaker.Config {
	if len(cfg.Name) == 0 {
		cfg.Name = name
	}
	return cfg
}

// Close shuts down one entry, or every entry if name is empty.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(name) == 0 {
		for n, e := range r.entries {
			closeEntry(e)
			delete(r.entries, n)
		}
		return nil
	}

	e, ok := r.entries[name]
	if !ok {
		return nil
	}
	closeEntry(e)
	delete(r.entries, name)
	return nil
}

func closeEntry(e *Entry) {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Store != nil {
		e.Store.Close()
	}
}

// Dispatch applies name's default schema to f (if f.Schema is unset),
// then routes it through the connection's cache coordinator (or straight
// to the pool, if uncached). It is the registry's equivalent of the
// "dispatch function" the init contract registers per name: every call
// returns exactly once, carrying either a result or an error — never
// both — matching the single-fire completion-callback contract under a
// synchronous, idiomatic Go calling convention.
func (r *Registry) Dispatch(ctx context.Context, name string, f *types.Filter) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("registry: no connection registered under %q", name)
	}

	cp := *f
	if len(cp.Schema) == 0 {
		cp.Schema = e.Schema
	}

	if f.Debug {
		r.logDebug(name, &cp)
	}

	if e.Coordinator == nil {
		return e.runner.Run(ctx, &cp)
	}
	return e.Coordinator.Execute(ctx, &cp, e.runner.Run)
}

func (r *Registry) logDebug(name string, f *types.Filter) {
	if r.log == nil {
		return
	}
	r.log.Debugw("dispatching filter", "connection", name, "exec", f.Exec, "table", f.Table, "schema", f.Schema)
}

// Health is the point-in-time snapshot Health(name) returns.
type Health struct {
	Pool    dbpool.Stat
	Cached  bool
	Breaker string
	Fails   uint32
}

// Health reports the pool and (if cached) breaker snapshot for name.
func (r *Registry) Health(name string) (Health, bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return Health{}, false
	}

	h := Health{Pool: e.Pool.Stat()}
	if e.Coordinator != nil {
		h.Cached = true
		stats := e.Coordinator.Stats()
		h.Breaker = stats.BreakerState
		h.Fails = stats.ConsecutiveFail
	}
	return h, true
}

// FlushTable exposes the connection's coarse invalidation sweep directly,
// for callers that need to bust a table's cache outside of a write path.
func (r *Registry) FlushTable(ctx context.Context, name, schema, table string) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok || e.Coordinator == nil {
		return nil
	}
	return e.Coordinator.FlushTable(ctx, schema, table)
}

// parseConnString extracts the `schema` and `pooling` query-string
// parameters from a `postgres://...?schema=<s>&pooling=<n>` connection
// string. Unknown options are ignored; an invalid `pooling` value is
// treated as absent rather than an error.
func parseConnString(connString string) (schema string, pooling int, err error) {
	u, err := url.Parse(connString)
	if err != nil {
		return "", 0, err
	}
	q := u.Query()
	schema = q.Get("schema")
	if raw := q.Get("pooling"); len(raw) > 0 {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
			pooling = n
		}
	}
	return schema, pooling, nil
}
