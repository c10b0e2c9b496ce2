// Package builder turns a types.Filter into parameterized PostgreSQL SQL.
// It is pure: no suspension point, no I/O, and (for a fixed Filter value)
// deterministic output, which is what lets the cache coordinator fingerprint
// a call from the Filter alone.
package builder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/relaycore/pgdb/types"
)

// ErrUnsupportedExec is returned for a Filter.Exec the builder does not
// recognize.
var ErrUnsupportedExec = errors.New("builder: unsupported exec kind")

// ErrMissingTable is returned when a Filter needs a table and doesn't carry
// one.
var ErrMissingTable = errors.New("builder: missing table")

// ErrMissingPayload is returned by insert/update when Payload is empty.
var ErrMissingPayload = errors.New("builder: missing payload")

// Result is the output of Build: the rendered SQL text and its positional
// parameters, in the order they must be bound.
type Result struct {
	SQL    string
	Params []any
}

// Build dispatches on f.Exec and renders the corresponding SQL shape. For
// exec:"list" it renders only the row-fetching half; pair it with
// CountVariant to get the matching count query (see executor.Runner, whose
// runList issues both and composes types.ListResult).
func Build(f *types.Filter) (Result, error) {
	switch f.Exec {
	case types.ExecFind, types.ExecRead, types.ExecList:
		return buildSelect(f)
	case types.ExecCount:
		return buildCount(f)
	case types.ExecCheck:
		return buildCheck(f)
	case types.ExecScalar:
		return buildScalar(f)
	case types.ExecInsert:
		return buildInsertStmt(f)
	case types.ExecUpdate:
		return buildUpdateStmt(f)
	case types.ExecRemove:
		return buildRemove(f)
	case types.ExecDrop:
		return buildDrop(f)
	case types.ExecTruncate:
		return buildTruncate(f)
	case types.ExecQuery, types.ExecCommand:
		return buildRawQuery(f)
	default:
		return Result{}, errors.Wrapf(ErrUnsupportedExec, "exec=%q", f.Exec)
	}
}

// CountVariant returns a shallow copy of f rewritten to compute the count of
// the same predicate set: exec:"count", pagination/sort/fields cleared.
// Used by the executor to issue the second half of a `list` call.
func CountVariant(f *types.Filter) *types.Filter {
	cp := *f
	cp.Exec = types.ExecCount
	cp.Fields = nil
	cp.Sort = nil
	cp.Take = 0
	cp.Skip = 0
	cp.Returning = nil
	cp.First = false
	return &cp
}

func buildSelect(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection(f))
	b.WriteString(" FROM ")
	b.WriteString(Table2(f.Schema, f.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if len(f.Sort) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy(f.Sort))
	}
	if f.HasTake() {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(f.Take))
	}
	if f.HasSkip() {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(f.Skip))
	}
	return Result{SQL: b.String()}, nil
}

func projection(f *types.Filter) string {
	if len(f.Fields) == 0 {
		return "*"
	}
	rendered := make([]string, len(f.Fields))
	for i, field := range f.Fields {
		rendered[i] = ProjectionColumn(field, f.Language)
	}
	return strings.Join(rendered, ", ")
}

func orderBy(sort []string) string {
	parts := make([]string, 0, len(sort))
	for _, token := range sort {
		col, dir, ok := splitSortToken(token)
		if !ok {
			continue
		}
		parts = append(parts, Column(col, "")+" "+dir)
	}
	return strings.Join(parts, ", ")
}

func splitSortToken(token string) (col, dir string, ok bool) {
	switch {
	case strings.HasSuffix(token, "_asc"):
		return strings.TrimSuffix(token, "_asc"), "ASC", true
	case strings.HasSuffix(token, "_desc"):
		return strings.TrimSuffix(token, "_desc"), "DESC", true
	default:
		return "", "", false
	}
}

func buildCount(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}
	var b strings.Builder
	b.WriteString(`SELECT COUNT(1)::int as count FROM `)
	b.WriteString(Table2(f.Schema, f.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return Result{SQL: b.String()}, nil
}

func buildCheck(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}
	limit := 1
	if f.HasTake() {
		limit = f.Take
	}
	var b strings.Builder
	b.WriteString(`SELECT 1 as count FROM `)
	b.WriteString(Table2(f.Schema, f.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(limit))
	return Result{SQL: b.String()}, nil
}

func buildScalar(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	if f.Scalar == nil {
		return Result{}, errors.New("builder: scalar exec requires a Scalar spec")
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	switch f.Scalar.Type {
	case types.ScalarGroup:
		key := Column(f.Scalar.Key, f.Language)
		var agg string
		if len(f.Scalar.Key2) == 0 {
			agg = "COUNT(1)::int"
		} else {
			agg = fmt.Sprintf("SUM(%s)::numeric", Column(f.Scalar.Key2, f.Language))
		}
		b.WriteString("SELECT ")
		b.WriteString(key)
		b.WriteString(", ")
		b.WriteString(agg)
		b.WriteString(" as value FROM ")
		b.WriteString(Table2(f.Schema, f.Table))
		if len(where) > 0 {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(key)
	default:
		fn := strings.ToUpper(string(f.Scalar.Type))
		arg := "1"
		if f.Scalar.Type != types.ScalarCount && len(f.Scalar.Key) > 0 {
			arg = Column(f.Scalar.Key, f.Language)
		}
		b.WriteString("SELECT ")
		b.WriteString(fn)
		b.WriteString("(")
		b.WriteString(arg)
		b.WriteString(")::numeric as value FROM ")
		b.WriteString(Table2(f.Schema, f.Table))
		if len(where) > 0 {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
	}
	return Result{SQL: b.String()}, nil
}

func buildInsertStmt(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	if len(f.Payload) == 0 {
		return Result{}, ErrMissingPayload
	}
	cols, values, params := buildInsert(f.Payload, f.Language)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(Table2(f.Schema, f.Table))
	b.WriteString(" (")
	b.WriteString(cols)
	b.WriteString(") VALUES(")
	b.WriteString(values)
	b.WriteString(")")
	if returning := returningClause(f); len(returning) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(returning)
	} else if len(f.PrimaryKey) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(Column(f.PrimaryKey, f.Language))
	}
	return Result{SQL: b.String(), Params: params}, nil
}

func returningClause(f *types.Filter) string {
	if len(f.Returning) == 0 {
		return ""
	}
	rendered := make([]string, len(f.Returning))
	for i, col := range f.Returning {
		rendered[i] = Column(col, f.Language)
	}
	return strings.Join(rendered, ", ")
}

func buildUpdateStmt(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	if len(f.Payload) == 0 {
		return Result{}, ErrMissingPayload
	}
	set, params, err := buildSet(f.Payload, f.Language, 0)
	if err != nil {
		return Result{}, err
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}
	table2 := Table2(f.Schema, f.Table)

	if returning := returningClause(f); len(returning) > 0 {
		var b strings.Builder
		b.WriteString("UPDATE ")
		b.WriteString(table2)
		b.WriteString(" SET ")
		b.WriteString(set)
		if len(where) > 0 {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
		b.WriteString(" RETURNING ")
		b.WriteString(returning)
		return Result{SQL: b.String(), Params: params}, nil
	}

	var inner strings.Builder
	inner.WriteString("UPDATE ")
	inner.WriteString(table2)
	inner.WriteString(" SET ")
	inner.WriteString(set)
	if len(where) > 0 {
		inner.WriteString(" WHERE ")
		inner.WriteString(where)
	}
	inner.WriteString(" RETURNING 1")

	sql := fmt.Sprintf("WITH rows AS (%s) SELECT COUNT(1)::int count FROM rows", inner.String())
	return Result{SQL: sql, Params: params}, nil
}

func buildRemove(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(Table2(f.Schema, f.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if returning := returningClause(f); len(returning) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(returning)
	}
	return Result{SQL: b.String()}, nil
}

func buildDrop(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	return Result{SQL: "DROP TABLE " + Table2(f.Schema, f.Table)}, nil
}

func buildTruncate(f *types.Filter) (Result, error) {
	if len(f.Table) == 0 {
		return Result{}, ErrMissingTable
	}
	return Result{SQL: "TRUNCATE " + Table2(f.Schema, f.Table) + " RESTART IDENTITY"}, nil
}

var wherePlaceholder = regexp.MustCompile(`(?i)\{where\}`)

func buildRawQuery(f *types.Filter) (Result, error) {
	if len(f.Query) == 0 {
		return Result{}, errors.New("builder: query exec requires Query")
	}
	where, err := composeWhere(f.Filter, f.Language)
	if err != nil {
		return Result{}, err
	}

	sql := f.Query
	if len(where) > 0 {
		if wherePlaceholder.MatchString(sql) {
			sql = wherePlaceholder.ReplaceAllLiteralString(sql, "WHERE "+where)
		} else {
			sql = sql + " WHERE " + where
		}
	} else {
		sql = wherePlaceholder.ReplaceAllLiteralString(sql, "")
	}
	return Result{SQL: sql, Params: f.Params}, nil
}

// writeRegexp classifies a Filter as a write for cache-invalidation
// purposes: a leading INSERT/UPDATE/DELETE/DROP/TRUNCATE keyword, matched
// case-insensitively against the rendered SQL text. False positives are
// possible for a raw `query` whose text merely contains one of these words;
// see the cache coordinator's fingerprint/invalidation split.
var writeRegexp = regexp.MustCompile(`(?i)^\s*(INSERT|UPDATE|DELETE|DROP|TRUNCATE)\b`)

// IsWrite reports whether sql (as produced by Build) is a write statement.
func IsWrite(sql string) bool {
	return writeRegexp.MatchString(sql)
}
