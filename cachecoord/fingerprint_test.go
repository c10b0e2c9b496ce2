package cachecoord_test

import (
	"testing"

	"github.com/relaycore/pgdb/cachecoord"
	"github.com/relaycore/pgdb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoordinator() *cachecoord.Coordinator {
	return cachecoord.New(nil, nil, cachecoord.Config{}, nil)
}

func TestFingerprint_Deterministic(t *testing.T) {
	c := newCoordinator()
	f := &types.Filter{
		Exec:  types.ExecFind,
		Table: "orders",
		Filter: []types.Predicate{
			{Kind: types.PredWhere, Name: "status", Comparer: "=", Value: "paid"},
		},
		Take: 10,
	}
	k1, err := c.Fingerprint(f)
	require.NoError(t, err)
	k2, err := c.Fingerprint(f)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestFingerprint_DiffersOnTable(t *testing.T) {
	c := newCoordinator()
	f1 := &types.Filter{Exec: types.ExecFind, Table: "orders"}
	f2 := &types.Filter{Exec: types.ExecFind, Table: "products"}
	k1, err := c.Fingerprint(f1)
	require.NoError(t, err)
	k2, err := c.Fingerprint(f2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestFingerprint_CarriesTableSuffixInClear(t *testing.T) {
	c := newCoordinator()
	k, err := c.Fingerprint(&types.Filter{Exec: types.ExecFind, Schema: "app", Table: "orders"})
	require.NoError(t, err)
	assert.Contains(t, k, "app.orders")
	assert.Contains(t, k, cachecoord.DefaultPrefix)
}
