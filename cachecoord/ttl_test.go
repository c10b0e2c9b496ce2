package cachecoord_test

import (
	"testing"
	"time"

	"github.com/relaycore/pgdb/cachecoord"
	"github.com/relaycore/pgdb/types"
	"github.com/stretchr/testify/assert"
)

func TestTTL_CountAndScalarDoubleDefault(t *testing.T) {
	c := cachecoord.New(nil, nil, cachecoord.Config{DefaultTTL: 100 * time.Second, MaxTTL: 1000 * time.Second}, nil)
	assert.Equal(t, 200*time.Second, c.TTL(&types.Filter{Exec: types.ExecCount}))
	assert.Equal(t, 200*time.Second, c.TTL(&types.Filter{Exec: types.ExecScalar}))
}

func TestTTL_FindWithSmallTakeTriplesDefault(t *testing.T) {
	c := cachecoord.New(nil, nil, cachecoord.Config{DefaultTTL: 100 * time.Second, MaxTTL: 1000 * time.Second}, nil)
	assert.Equal(t, 300*time.Second, c.TTL(&types.Filter{Exec: types.ExecFind, Take: 10}))
	assert.Equal(t, 100*time.Second, c.TTL(&types.Filter{Exec: types.ExecFind, Take: 50}))
}

func TestTTL_ListIsHalfDefaultOrMinimum(t *testing.T) {
	c := cachecoord.New(nil, nil, cachecoord.Config{DefaultTTL: 200 * time.Second, MaxTTL: 1000 * time.Second}, nil)
	assert.Equal(t, 100*time.Second, c.TTL(&types.Filter{Exec: types.ExecList}))

	c2 := cachecoord.New(nil, nil, cachecoord.Config{DefaultTTL: 10 * time.Second, MaxTTL: 1000 * time.Second}, nil)
	assert.Equal(t, 60*time.Second, c2.TTL(&types.Filter{Exec: types.ExecList}))
}

func TestTTL_ClampedToMax(t *testing.T) {
	c := cachecoord.New(nil, nil, cachecoord.Config{DefaultTTL: 500 * time.Second, MaxTTL: 800 * time.Second}, nil)
	assert.Equal(t, 800*time.Second, c.TTL(&types.Filter{Exec: types.ExecCount}))
}
