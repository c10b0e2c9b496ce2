// Package executor dispatches a built query to the database and normalizes
// the result per operation kind. It is the "pooled query executor" of the
// module: builder output in, per-exec result shape out, pool client
// released on every exit path.
package executor

import (
	"context"

	"github.com/relaycore/pgdb/builder"
	"github.com/relaycore/pgdb/dbpool"
	"github.com/relaycore/pgdb/normalize"
	"github.com/relaycore/pgdb/types"
)

const truncatedQueryLen = 100

// Runner executes a Filter against one connection pool.
type Runner struct {
	Pool      *dbpool.Pool
	ConnName  string
	ErrorSink types.ErrorSink
}

// Run builds f, dispatches it to the pool, and returns the normalized
// result. Every DB error is additionally routed to ErrorSink (if set) with
// the query text truncated to 100 characters; build errors never reach the
// database and are returned as-is.
func (r *Runner) Run(ctx context.Context, f *types.Filter) (any, error) {
	switch f.Exec {
	case types.ExecList:
		return r.runList(ctx, f)
	case types.ExecInsert:
		return r.runInsert(ctx, f)
	case types.ExecUpdate:
		return r.runUpdate(ctx, f)
	case types.ExecRemove:
		return r.runRemove(ctx, f)
	case types.ExecDrop, types.ExecTruncate, types.ExecCommand:
		return r.runCommand(ctx, f)
	case types.ExecCount:
		return r.runCount(ctx, f)
	case types.ExecCheck:
		return r.runCheck(ctx, f)
	case types.ExecScalar:
		return r.runScalar(ctx, f)
	case types.ExecQuery:
		built, err := builder.Build(f)
		if err != nil {
			return nil, err
		}
		return r.query(ctx, f, built)
	default: // find, read
		built, err := builder.Build(f)
		if err != nil {
			return nil, err
		}
		rows, err := r.query(ctx, f, built)
		if err != nil {
			return nil, err
		}
		return normalize.FindOrRead(f, rows)
	}
}

func (r *Runner) runCount(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, f, built)
	if err != nil {
		return nil, err
	}
	return normalize.Count(rows)
}

func (r *Runner) runCheck(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, f, built)
	if err != nil {
		return nil, err
	}
	return normalize.Check(rows), nil
}

func (r *Runner) runScalar(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.query(ctx, f, built)
	if err != nil {
		return nil, err
	}
	if f.Scalar != nil && f.Scalar.Type == types.ScalarGroup {
		return normalize.ScalarGroup(rows), nil
	}
	return normalize.ScalarAgg(rows)
}

func (r *Runner) runInsert(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	if len(f.Returning) > 0 || len(f.PrimaryKey) > 0 {
		rows, err := r.query(ctx, f, built)
		if err != nil {
			return nil, err
		}
		return normalize.Insert(f, rows)
	}
	if _, err := r.exec(ctx, f, built); err != nil {
		return nil, err
	}
	return int64(1), nil
}

func (r *Runner) runUpdate(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	if len(f.Returning) > 0 {
		rows, err := r.query(ctx, f, built)
		if err != nil {
			return nil, err
		}
		return normalize.UpdateOrRemove(f, rows, 0)
	}
	// No RETURNING: the builder wraps the UPDATE in a `WITH rows AS (...)
	// SELECT COUNT(1) count FROM rows` statement, so the affected count
	// comes back as a query result rather than a command tag.
	rows, err := r.query(ctx, f, built)
	if err != nil {
		return nil, err
	}
	n, err := normalize.Count(rows)
	if err != nil {
		return nil, err
	}
	return normalize.UpdateOrRemove(f, nil, derefOr(n, 0))
}

func (r *Runner) runRemove(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	if len(f.Returning) > 0 {
		rows, err := r.query(ctx, f, built)
		if err != nil {
			return nil, err
		}
		return normalize.UpdateOrRemove(f, rows, 0)
	}
	n, err := r.exec(ctx, f, built)
	if err != nil {
		return nil, err
	}
	return normalize.UpdateOrRemove(f, nil, n)
}

func (r *Runner) runCommand(ctx context.Context, f *types.Filter) (any, error) {
	built, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	if _, err := r.exec(ctx, f, built); err != nil {
		return nil, err
	}
	return nil, nil
}

// runList acquires a single client and runs the row query followed by the
// count query on it, releasing only after both complete — the pool-client
// reuse the source's `list` path skipped.
func (r *Runner) runList(ctx context.Context, f *types.Filter) (any, error) {
	rowsBuilt, err := builder.Build(f)
	if err != nil {
		return nil, err
	}
	countBuilt, err := builder.Build(builder.CountVariant(f))
	if err != nil {
		return nil, err
	}

	conn, err := r.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rawRows, err := conn.Query(ctx, rowsBuilt.SQL, rowsBuilt.Params...)
	if err != nil {
		r.report(f, rowsBuilt.SQL, err)
		return nil, err
	}
	rows, err := dbpool.Materialize(rawRows)
	rawRows.Close()
	if err != nil {
		r.report(f, rowsBuilt.SQL, err)
		return nil, err
	}

	rawCount, err := conn.Query(ctx, countBuilt.SQL, countBuilt.Params...)
	if err != nil {
		r.report(f, countBuilt.SQL, err)
		return nil, err
	}
	countRows, err := dbpool.Materialize(rawCount)
	rawCount.Close()
	if err != nil {
		r.report(f, countBuilt.SQL, err)
		return nil, err
	}

	n, err := normalize.Count(countRows)
	if err != nil {
		return nil, err
	}
	return normalize.List(rows, derefOr(n, 0)), nil
}

func (r *Runner) query(ctx context.Context, f *types.Filter, built builder.Result) ([]types.Row, error) {
	rows, err := r.Pool.Query(ctx, built.SQL, built.Params...)
	if err != nil {
		r.report(f, built.SQL, err)
		return nil, err
	}
	return rows, nil
}

func (r *Runner) exec(ctx context.Context, f *types.Filter, built builder.Result) (int64, error) {
	conn, err := r.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()
	n, err := conn.Exec(ctx, built.SQL, built.Params...)
	if err != nil {
		r.report(f, built.SQL, err)
		return 0, err
	}
	return n, nil
}

func (r *Runner) report(f *types.Filter, query string, err error) {
	if r.ErrorSink == nil {
		return
	}
	q := query
	if len(q) > truncatedQueryLen {
		q = q[:truncatedQueryLen]
	}
	r.ErrorSink(r.ConnName, f.Table, q, err)
}

func derefOr(n *int64, fallback int64) int64 {
	if n == nil {
		return fallback
	}
	return *n
}
