// Package normalize maps materialized driver rows to the per-operation
// result shape the executor promises its caller: a single row, an array, a
// scalar, a boolean, or the {items,count} shape of a paged list.
package normalize

import (
	"github.com/cockroachdb/errors"
	"github.com/relaycore/pgdb/types"
)

// ErrNoRows is returned by Insert when Returning or PrimaryKey was set and
// no row came back.
var ErrNoRows = errors.New("normalize: no rows")

// FindOrRead normalizes the result of exec:"find"/"read": the first row (or
// nil) when Filter.First is set, otherwise the full row array.
func FindOrRead(f *types.Filter, rows []types.Row) (any, error) {
	if f.First {
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}
	return rows, nil
}

// List composes the {items,count} shape. The caller is responsible for
// running the row query and the count query in that order and only calling
// List once both have succeeded; see executor.Runner's runList.
func List(rows []types.Row, count int64) types.ListResult {
	return types.ListResult{Items: rows, Count: count}
}

// Count extracts the scalar `count` column of a COUNT(1) query. Returns nil
// if the query produced no row (should not normally happen, since COUNT
// always returns exactly one row).
func Count(rows []types.Row) (*int64, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	n, ok := asInt64(rows[0]["count"])
	if !ok {
		return nil, errors.New("normalize: count column missing or non-numeric")
	}
	return &n, nil
}

// Check reports whether the CHECK query matched at least one row.
func Check(rows []types.Row) bool {
	return len(rows) > 0
}

// Insert normalizes the result of exec:"insert": the returned row when
// Returning was set, the PrimaryKey column's value when only PrimaryKey was
// set, or the affected-row count (always 1 for a single-row insert that
// reached this point without error) otherwise.
func Insert(f *types.Filter, rows []types.Row) (any, error) {
	if len(f.Returning) > 0 {
		if len(rows) == 0 {
			return nil, ErrNoRows
		}
		return rows[0], nil
	}
	if len(f.PrimaryKey) > 0 {
		if len(rows) == 0 {
			return nil, ErrNoRows
		}
		return rows[0][f.PrimaryKey], nil
	}
	return int64(1), nil
}

// UpdateOrRemove normalizes the result of exec:"update"/"remove": the
// returned rows (or first row, when Filter.First is set) if Returning was
// requested, otherwise affectedCount as delivered by the driver (an UPDATE
// without RETURNING is rendered as a `WITH rows AS (...) SELECT COUNT(1)`
// wrapper by the builder, so affectedCount there is itself a query result;
// a DELETE without RETURNING passes the driver's reported row count).
func UpdateOrRemove(f *types.Filter, rows []types.Row, affectedCount int64) (any, error) {
	if len(f.Returning) > 0 {
		if f.First {
			if len(rows) == 0 {
				return nil, nil
			}
			return rows[0], nil
		}
		return rows, nil
	}
	return affectedCount, nil
}

// ScalarAgg extracts the numeric `value` column of an aggregate scalar
// query (avg/min/sum/max/count), or nil if no row was produced.
func ScalarAgg(rows []types.Row) (any, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0]["value"], nil
}

// ScalarGroup returns the full row array of a group-by scalar query
// unchanged.
func ScalarGroup(rows []types.Row) []types.Row {
	return rows
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
