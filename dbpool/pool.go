// Package dbpool adapts github.com/jackc/pgx/v5/pgxpool into the narrow
// surface the executor needs: acquire a client, run a query, release on
// every exit path.
package dbpool

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaycore/pgdb/types"
)

const (
	defaultIdleTimeout    = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

// Pool wraps a pgxpool.Pool with the idle/connect timeout defaults the
// registry applies to every connection it opens.
type Pool struct {
	pg *pgxpool.Pool
}

// New parses dsn, applies the pool-size override and the registry's
// default idle/connect timeouts, and opens the pool.
func New(ctx context.Context, dsn string, poolSize int) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "dbpool: parse dsn")
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}
	cfg.MaxConnIdleTime = defaultIdleTimeout
	cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout

	pg, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "dbpool: open pool")
	}
	return &Pool{pg: pg}, nil
}

// Close shuts the pool down, waiting for in-flight acquisitions to return.
func (p *Pool) Close() {
	p.pg.Close()
}

// Conn is a single acquired client. Release must be called exactly once on
// every exit path (success, query error, or a panic recovered upstream).
type Conn struct {
	c *pgxpool.Conn
}

// Acquire checks out one client for the lifetime of potentially multiple
// statements — the shape a `list` call needs so the row query and the
// count query share a connection instead of round-tripping the pool twice.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	c, err := p.pg.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "dbpool: acquire")
	}
	return &Conn{c: c}, nil
}

// Release returns the client to the pool. Safe to call at most once.
func (c *Conn) Release() {
	c.c.Release()
}

// Query runs sql on this connection and returns the result set. The caller
// must Close the returned Rows.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (types.Rows, error) {
	rows, err := c.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rowsAdapter{rows}, nil
}

// Exec runs sql on this connection for statements with no result set
// (DDL, or a write whose affected-row count the caller reads from
// CommandTag rather than a RETURNING row).
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.c.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query acquires a client, runs sql, and releases the client once the
// statement completes — the single-shot path used by the row-returning
// exec kinds other than `list` (statements without a result set go through
// Conn.Exec instead).
func (p *Pool) Query(ctx context.Context, sql string, args ...any) ([]types.Row, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return Materialize(rows)
}

// Materialize drains rows into a slice of column-keyed maps. It does not
// close rows; the caller does.
func Materialize(rows types.Rows) ([]types.Row, error) {
	var out []types.Row
	names := rows.FieldNames()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(types.Row, len(names))
		for i, name := range names {
			if i < len(vals) {
				row[name] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Stat is a point-in-time snapshot of pool resource usage.
type Stat struct {
	Total int32
	Idle  int32
	InUse int32
}

// Stat reports the pool's current size, matching the registry's health
// snapshot contract.
func (p *Pool) Stat() Stat {
	s := p.pg.Stat()
	return Stat{
		Total: s.TotalConns(),
		Idle:  s.IdleConns(),
		InUse: s.AcquiredConns(),
	}
}

type rowsAdapter struct {
	r pgx.Rows
}

func (a *rowsAdapter) Next() bool             { return a.r.Next() }
func (a *rowsAdapter) Values() ([]any, error) { return a.r.Values() }
func (a *rowsAdapter) Err() error             { return a.r.Err() }
func (a *rowsAdapter) Close()                 { a.r.Close() }

func (a *rowsAdapter) FieldNames() []string {
	fields := a.r.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
