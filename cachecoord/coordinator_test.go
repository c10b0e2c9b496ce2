package cachecoord_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relaycore/pgdb/breaker"
	"github.com/relaycore/pgdb/cachecoord"
	"github.com/relaycore/pgdb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alwaysErrorStore implements cachecoord.Store and fails every call, to
// exercise the fail-open guarantee without a live Redis instance.
type alwaysErrorStore struct{}

var errStoreDown = errors.New("store unreachable")

func (alwaysErrorStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errStoreDown
}
func (alwaysErrorStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errStoreDown
}
func (alwaysErrorStore) Del(ctx context.Context, keys ...string) error { return errStoreDown }
func (alwaysErrorStore) Flush(ctx context.Context, pattern string) error {
	return errStoreDown
}

func TestExecute_FailOpen_ReadPath(t *testing.T) {
	br := breaker.New(breaker.Config{Name: "test", Threshold: 100})
	c := cachecoord.New(alwaysErrorStore{}, br, cachecoord.Config{}, nil)

	calls := 0
	load := func(ctx context.Context, f *types.Filter) (any, error) {
		calls++
		return types.Row{"id": 1}, nil
	}

	f := &types.Filter{Exec: types.ExecFind, Table: "widgets", First: true}
	result, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)
	assert.Equal(t, types.Row{"id": 1}, result)
	assert.Equal(t, 1, calls)
}

func TestExecute_FailOpen_WritePathStillInvalidatesBestEffort(t *testing.T) {
	br := breaker.New(breaker.Config{Name: "test2", Threshold: 100})
	c := cachecoord.New(alwaysErrorStore{}, br, cachecoord.Config{}, nil)

	load := func(ctx context.Context, f *types.Filter) (any, error) {
		return int64(1), nil
	}

	f := &types.Filter{Exec: types.ExecInsert, Table: "widgets"}
	result, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result)
	// The invalidation sweep reached the store (and failed) exactly once.
	assert.Equal(t, uint32(1), br.Failures())
}

func TestExecute_LoaderErrorPropagates(t *testing.T) {
	br := breaker.New(breaker.Config{Name: "test3", Threshold: 100})
	c := cachecoord.New(alwaysErrorStore{}, br, cachecoord.Config{}, nil)

	loadErr := errors.New("db exploded")
	load := func(ctx context.Context, f *types.Filter) (any, error) {
		return nil, loadErr
	}

	_, err := c.Execute(context.Background(), &types.Filter{Exec: types.ExecFind, Table: "widgets"}, load)
	assert.ErrorIs(t, err, loadErr)
}

// memStore is a minimal in-process Store, used to exercise a genuine cache
// hit (alwaysErrorStore can only ever exercise the fail-open/miss path).
type memStore struct {
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (s *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}
func (s *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.data[key] = value
	return nil
}
func (s *memStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}
func (s *memStore) Flush(ctx context.Context, pattern string) error {
	for k := range s.data {
		delete(s.data, k)
	}
	return nil
}

// Row values decoded off a cache hit come back through encoding/json, which
// only preserves JSON's own type set (numbers surface as float64) — these
// tests assert on the outer container shape Execute promises callers
// (types.ListResult/types.Row, not map[string]any/[]any), not on the
// concrete Go type of values nested inside a row.

func TestExecute_CacheHit_ReturnsSameShapeAsMiss_List(t *testing.T) {
	br := breaker.New(breaker.Config{Name: "test-hit-list", Threshold: 100})
	c := cachecoord.New(newMemStore(), br, cachecoord.Config{}, nil)

	calls := 0
	load := func(ctx context.Context, f *types.Filter) (any, error) {
		calls++
		return types.ListResult{Items: []types.Row{{"name": "drone"}}, Count: 1}, nil
	}

	f := &types.Filter{Exec: types.ExecList, Table: "widgets"}

	first, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.IsType(t, types.ListResult{}, first)

	second, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call should be served from cache")

	require.IsType(t, types.ListResult{}, second)
	lr := second.(types.ListResult)
	assert.Equal(t, int64(1), lr.Count)
	assert.Equal(t, "drone", lr.Items[0]["name"])
}

func TestExecute_CacheHit_ReturnsSameShapeAsMiss_FindFirst(t *testing.T) {
	br := breaker.New(breaker.Config{Name: "test-hit-find", Threshold: 100})
	c := cachecoord.New(newMemStore(), br, cachecoord.Config{}, nil)

	load := func(ctx context.Context, f *types.Filter) (any, error) {
		return types.Row{"id": "w-7", "name": "drone"}, nil
	}

	f := &types.Filter{Exec: types.ExecFind, Table: "widgets", First: true}

	_, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)

	hit, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)

	require.IsType(t, types.Row{}, hit)
	assert.Equal(t, types.Row{"id": "w-7", "name": "drone"}, hit)
}

func TestExecute_NoCacheBypassesStoreEntirely(t *testing.T) {
	br := breaker.New(breaker.Config{Name: "test4", Threshold: 100})
	c := cachecoord.New(alwaysErrorStore{}, br, cachecoord.Config{}, nil)

	calls := 0
	load := func(ctx context.Context, f *types.Filter) (any, error) {
		calls++
		return "result", nil
	}

	f := &types.Filter{Exec: types.ExecFind, Table: "widgets", NoCache: true}
	_, err := c.Execute(context.Background(), f, load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	// No store call was made, so the always-failing store recorded nothing.
	assert.Equal(t, uint32(0), br.Failures())
}
