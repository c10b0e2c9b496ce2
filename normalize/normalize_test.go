package normalize_test

import (
	"testing"

	"github.com/relaycore/pgdb/normalize"
	"github.com/relaycore/pgdb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrRead_First(t *testing.T) {
	rows := []types.Row{{"id": 1}, {"id": 2}}
	got, err := normalize.FindOrRead(&types.Filter{First: true}, rows)
	require.NoError(t, err)
	assert.Equal(t, types.Row{"id": 1}, got)
}

func TestFindOrRead_FirstEmpty(t *testing.T) {
	got, err := normalize.FindOrRead(&types.Filter{First: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindOrRead_Array(t *testing.T) {
	rows := []types.Row{{"id": 1}, {"id": 2}}
	got, err := normalize.FindOrRead(&types.Filter{}, rows)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestList(t *testing.T) {
	rows := []types.Row{{"id": 1}}
	got := normalize.List(rows, 42)
	assert.Equal(t, types.ListResult{Items: rows, Count: 42}, got)
}

func TestCount(t *testing.T) {
	n, err := normalize.Count([]types.Row{{"count": int64(7)}})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, int64(7), *n)
}

func TestCount_NoRows(t *testing.T) {
	n, err := normalize.Count(nil)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestCount_NonNumeric(t *testing.T) {
	_, err := normalize.Count([]types.Row{{"count": "oops"}})
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	assert.True(t, normalize.Check([]types.Row{{"count": 1}}))
	assert.False(t, normalize.Check(nil))
}

func TestInsert_Returning(t *testing.T) {
	f := &types.Filter{Returning: []string{"id"}}
	row := types.Row{"id": 5}
	got, err := normalize.Insert(f, []types.Row{row})
	require.NoError(t, err)
	assert.Equal(t, row, got)
}

func TestInsert_PrimaryKey(t *testing.T) {
	f := &types.Filter{PrimaryKey: "id"}
	got, err := normalize.Insert(f, []types.Row{{"id": 9}})
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestInsert_AffectedCount(t *testing.T) {
	got, err := normalize.Insert(&types.Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestUpdateOrRemove_ReturningFirst(t *testing.T) {
	f := &types.Filter{Returning: []string{"id"}, First: true}
	row := types.Row{"id": 3}
	got, err := normalize.UpdateOrRemove(f, []types.Row{row}, 0)
	require.NoError(t, err)
	assert.Equal(t, row, got)
}

func TestUpdateOrRemove_AffectedCount(t *testing.T) {
	got, err := normalize.UpdateOrRemove(&types.Filter{}, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestScalarAgg(t *testing.T) {
	got, err := normalize.ScalarAgg([]types.Row{{"value": 1.5}})
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)
}

func TestScalarAgg_NoRows(t *testing.T) {
	got, err := normalize.ScalarAgg(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScalarGroup(t *testing.T) {
	rows := []types.Row{{"region": "us", "value": 1}}
	assert.Equal(t, rows, normalize.ScalarGroup(rows))
}
