// Package cachecoord sits between the executor and the database: it
// computes a deterministic cache key for a Filter, serves reads from the
// external key-value store when possible, and invalidates the affected
// table's entries after a write. A per-store circuit breaker guards every
// store call, and the coordinator fails open — any store/breaker error
// falls straight through to the database rather than surfacing to the
// caller.
package cachecoord

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relaycore/pgdb/breaker"
	"github.com/relaycore/pgdb/builder"
	"github.com/relaycore/pgdb/types"
)

// Loader runs the underlying query on a cache miss. It is the executor's
// Runner.Run, passed in rather than imported, so this package never depends
// on the pool/driver layer.
type Loader func(ctx context.Context, f *types.Filter) (any, error)

// Store is the subset of cachestore.Store's surface the coordinator needs.
// Declared here (rather than depending on the concrete type) so tests can
// substitute a fake that always errors to exercise the fail-open guarantee
// without a live store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Flush(ctx context.Context, pattern string) error
}

// Coordinator wires a cache store, a breaker, and the configured TTL/prefix
// policy in front of a Loader.
type Coordinator struct {
	store   Store
	breaker *breaker.Breaker
	cfg     Config
	log     types.Logger
}

// New builds a Coordinator. logger may be nil, in which case cache errors
// are not logged.
func New(store Store, br *breaker.Breaker, cfg Config, logger types.Logger) *Coordinator {
	return &Coordinator{store: store, breaker: br, cfg: NewConfig(cfg), log: logger}
}

// Execute serves f. A write-shaped exec always runs against the database
// first and, on success, triggers a best-effort invalidation sweep — it
// never consults the cache for a prior result. A read-shaped exec checks
// the cache first; on a miss (or any cache failure) it falls through to
// load and stores the result. load is called on every cache miss and on
// every write.
func (c *Coordinator) Execute(ctx context.Context, f *types.Filter, load Loader) (any, error) {
	if isWriteExec(f) {
		result, err := load(ctx, f)
		if err != nil {
			return nil, err
		}
		if err := c.Invalidate(ctx, f.Schema, f.Table); err != nil {
			c.logWarn("cache invalidate failed", f.Table, err)
		}
		return result, nil
	}

	if f.NoCache || !cacheable(f) {
		return load(ctx, f)
	}

	key, fpErr := c.Fingerprint(f)
	if fpErr == nil {
		if cached, ok := c.tryGet(ctx, f, key); ok {
			return cached, nil
		}
	}

	result, err := load(ctx, f)
	if err != nil {
		return nil, err
	}

	if fpErr == nil {
		c.trySet(ctx, key, result, c.TTL(f))
	}
	return result, nil
}

// getResult carries the store's hit/miss outcome through the breaker so
// that an ordinary miss — not a store failure — never counts against the
// breaker's consecutive-failure total.
type getResult struct {
	val string
	hit bool
}

// tryGet attempts a breaker-guarded cache read, reporting a hit only when
// the key was present and the value decodes cleanly. Any failure — breaker
// open, store error, decode error — is treated as a miss. The decoded JSON
// value is re-materialized into the same shape Loader would have returned
// for f, so a hit is interchangeable with a miss for a type-asserting
// caller (see reshapeHit).
func (c *Coordinator) tryGet(ctx context.Context, f *types.Filter, key string) (any, bool) {
	res, err := c.breaker.Execute(func() (any, error) {
		val, hit, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{val: val, hit: hit}, nil
	})
	if err != nil {
		c.logWarn("cache get failed", key, err)
		return nil, false
	}
	gr := res.(getResult)
	if !gr.hit {
		return nil, false
	}

	var decoded any
	if err := json.Unmarshal([]byte(gr.val), &decoded); err != nil {
		c.logWarn("cache decode failed", key, err)
		return nil, false
	}
	return reshapeHit(f, decoded), true
}

// trySet stores value under key with the given TTL, guarded by the
// breaker. Failures are logged and swallowed — a cache write never fails a
// request.
func (c *Coordinator) trySet(ctx context.Context, key string, value any, ttl time.Duration) {
	encoded, err := json.Marshal(value)
	if err != nil {
		c.logWarn("cache encode failed", key, err)
		return
	}
	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.store.Set(ctx, key, string(encoded), ttl)
	})
	if err != nil {
		c.logWarn("cache set failed", key, err)
	}
}

// Invalidate deletes every cached entry for table/schema — a coarse sweep
// by a `<prefix>*:<table2>` key pattern rather than a precise dependency
// index, matching the `:<table2>` suffix Fingerprint appends to each key.
func (c *Coordinator) Invalidate(ctx context.Context, schema, table string) error {
	table2 := table
	if len(schema) > 0 {
		table2 = schema + "." + table
	}
	pattern := c.cfg.KeyPrefix + "*:" + table2
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.store.Flush(ctx, pattern)
	})
	return err
}

// FlushTable is the administrative equivalent of Invalidate, exposed
// directly to callers that need to bust a table's cache outside of a write
// path (e.g. after an out-of-band migration).
func (c *Coordinator) FlushTable(ctx context.Context, schema, table string) error {
	return c.Invalidate(ctx, schema, table)
}

// Flush clears every entry under this coordinator's namespace.
func (c *Coordinator) Flush(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.store.Flush(ctx, c.cfg.KeyPrefix+"*")
	})
	return err
}

// Stats reports the breaker's current state and consecutive-failure count,
// for a health/metrics endpoint.
type Stats struct {
	BreakerState    string
	ConsecutiveFail uint32
}

// Stats reports the coordinator's circuit breaker status.
func (c *Coordinator) Stats() Stats {
	return Stats{BreakerState: c.breaker.State(), ConsecutiveFail: c.breaker.Failures()}
}

// customKey namespaces an application-chosen cache key under this
// coordinator's prefix as `<prefix>custom:<name>`, separate from
// fingerprinted query keys. A name equal to a table's qualified name, or
// ending in `:<table2>`, still matches that table's Invalidate pattern.
func (c *Coordinator) customKey(name string) string {
	return c.cfg.KeyPrefix + "custom:" + name
}

// Set stores an application value under name, outside of the query-cache
// keyspace.
func (c *Coordinator) Set(ctx context.Context, name string, value any, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.store.Set(ctx, c.customKey(name), string(encoded), ttl)
	})
	return err
}

// Get fetches an application value stored with Set.
func (c *Coordinator) Get(ctx context.Context, name string, out any) (bool, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		val, hit, err := c.store.Get(ctx, c.customKey(name))
		if err != nil {
			return nil, err
		}
		return getResult{val: val, hit: hit}, nil
	})
	if err != nil {
		return false, err
	}
	gr := res.(getResult)
	if !gr.hit {
		return false, nil
	}
	if err := json.Unmarshal([]byte(gr.val), out); err != nil {
		return false, err
	}
	return true, nil
}

// Del removes an application value stored with Set.
func (c *Coordinator) Del(ctx context.Context, name string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.store.Del(ctx, c.customKey(name))
	})
	return err
}

func (c *Coordinator) logWarn(msg, key string, err error) {
	if c.log == nil {
		return
	}
	c.log.Warnw(msg, "key", key, "error", err)
}

// cacheable reports whether f's exec kind is ever eligible for the cache —
// raw `query`/`command` passthroughs are never fingerprinted, since their
// SQL text carries its own parameter placeholders the way a table-scoped
// Filter does not.
func cacheable(f *types.Filter) bool {
	switch f.Exec {
	case types.ExecQuery, types.ExecCommand:
		return false
	default:
		return true
	}
}

// reshapeHit converts a generic json.Unmarshal result back into the
// concrete shape normalize would have produced for f on a miss — a loose
// map[string]any/[]any/float64 tree is not interchangeable with the
// caller-visible types.Row/[]types.Row/types.ListResult/int64 wrappers a
// Loader call returns, so every exec kind's result envelope is rebuilt
// here to match. Values nested inside a row are left as the JSON decoder
// produced them (e.g. a numeric column surfaces as float64); only the
// outer container a caller might type-assert against is restored.
func reshapeHit(f *types.Filter, decoded any) any {
	switch f.Exec {
	case types.ExecFind, types.ExecRead:
		if f.First {
			if decoded == nil {
				return nil
			}
			return toRow(decoded)
		}
		return toRows(decoded)
	case types.ExecList:
		m, _ := decoded.(map[string]any)
		return types.ListResult{Items: toRows(m["Items"]), Count: toInt64(m["Count"])}
	case types.ExecCount:
		if decoded == nil {
			return (*int64)(nil)
		}
		n := toInt64(decoded)
		return &n
	case types.ExecCheck:
		b, _ := decoded.(bool)
		return b
	case types.ExecInsert:
		if len(f.Returning) > 0 {
			return toRow(decoded)
		}
		if len(f.PrimaryKey) > 0 {
			return decoded
		}
		return toInt64(decoded)
	case types.ExecUpdate, types.ExecRemove:
		if len(f.Returning) > 0 {
			if f.First {
				if decoded == nil {
					return nil
				}
				return toRow(decoded)
			}
			return toRows(decoded)
		}
		return toInt64(decoded)
	case types.ExecScalar:
		if f.Scalar != nil && f.Scalar.Type == types.ScalarGroup {
			return toRows(decoded)
		}
		return decoded
	default:
		return decoded
	}
}

// toRow converts a decoded JSON object into a types.Row.
func toRow(v any) types.Row {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return types.Row(m)
}

// toRows converts a decoded JSON array of objects into []types.Row.
func toRows(v any) []types.Row {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	rows := make([]types.Row, 0, len(arr))
	for _, e := range arr {
		rows = append(rows, toRow(e))
	}
	return rows
}

// toInt64 converts a decoded JSON number (float64) back into an int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// isWriteExec reports whether f's exec kind mutates table.
func isWriteExec(f *types.Filter) bool {
	switch f.Exec {
	case types.ExecInsert, types.ExecUpdate, types.ExecRemove, types.ExecDrop, types.ExecTruncate:
		return true
	case types.ExecQuery, types.ExecCommand:
		built, err := builder.Build(f)
		if err != nil {
			return false
		}
		return builder.IsWrite(built.SQL)
	default:
		return false
	}
}
