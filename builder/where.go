package builder

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/relaycore/pgdb/literal"
	"github.com/relaycore/pgdb/types"
)

// ErrUnsupportedPredicate is returned for a Predicate.Kind the builder does
// not recognize.
var ErrUnsupportedPredicate = errors.New("builder: unsupported predicate kind")

// composeWhere joins preds with AND and returns the clause body (without
// the leading "WHERE "). An empty predicate list yields an empty string.
func composeWhere(preds []types.Predicate, language string) (string, error) {
	return composePredicates(preds, language, "AND")
}

// composePredicates renders each predicate and joins the results with join
// ("AND" at top level, "OR" inside a nested `or` clause).
func composePredicates(preds []types.Predicate, language, join string) (string, error) {
	var parts []string
	for _, p := range preds {
		rendered, err := renderPredicate(p, language)
		if err != nil {
			return "", err
		}
		if len(rendered) == 0 {
			continue
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, " "+join+" "), nil
}

func renderPredicate(p types.Predicate, language string) (string, error) {
	switch p.Kind {
	case types.PredWhere:
		return renderWhere(p, language), nil
	case types.PredIn:
		return renderInList(p, language, "IN"), nil
	case types.PredNotIn:
		return renderInList(p, language, "NOT IN"), nil
	case types.PredArray:
		return renderArray(p, language), nil
	case types.PredBetween:
		return renderBetween(p, language), nil
	case types.PredSearch:
		return renderSearch(p, language), nil
	case types.PredContain:
		return fmt.Sprintf("LENGTH(%s::text)>0", Column(p.Name, language)), nil
	case types.PredEmpty:
		col := Column(p.Name, language)
		return fmt.Sprintf("(%s IS NULL OR LENGTH(%s::text)=0)", col, col), nil
	case types.PredYear, types.PredMonth, types.PredDay, types.PredHour, types.PredMinute:
		return renderDatePart(p, language), nil
	case types.PredPermit:
		return renderPermit(p, language), nil
	case types.PredQuery:
		if len(p.Raw) == 0 {
			return "", nil
		}
		return "(" + p.Raw + ")", nil
	case types.PredOr:
		inner, err := composePredicates(p.Or, language, "OR")
		if err != nil {
			return "", err
		}
		if len(inner) == 0 {
			return "", nil
		}
		return "(" + inner + ")", nil
	default:
		return "", errors.Wrapf(ErrUnsupportedPredicate, "kind=%q", p.Kind)
	}
}

func renderWhere(p types.Predicate, language string) string {
	col := Column(p.Name, language)
	if p.Value == nil {
		if p.Comparer == "=" || len(p.Comparer) == 0 {
			return col + " IS NULL"
		}
		return col + " IS NOT NULL"
	}
	return col + p.Comparer + literal.Escape(p.Value)
}

func renderInList(p types.Predicate, language, op string) string {
	items := toSlice(p.Value)
	var list string
	if len(items) == 0 {
		list = "null"
	} else {
		rendered := make([]string, len(items))
		for i, v := range items {
			rendered[i] = literal.Escape(v)
		}
		list = strings.Join(rendered, ", ")
	}
	return fmt.Sprintf("%s %s (%s)", Column(p.Name, language), op, list)
}

func renderArray(p types.Predicate, language string) string {
	items := toSlice(p.Value)
	if s, ok := p.Value.(string); ok {
		items = nil
		for _, part := range strings.Split(s, ",") {
			items = append(items, strings.TrimSpace(part))
		}
	}
	rendered := make([]string, len(items))
	for i, v := range items {
		rendered[i] = literal.EscapeArrayElem(v)
	}
	comparer := p.Comparer
	if len(comparer) == 0 {
		comparer = "&&"
	}
	return fmt.Sprintf("%s %s ARRAY[%s]", Column(p.Name, language), comparer, strings.Join(rendered, ", "))
}

func renderBetween(p types.Predicate, language string) string {
	return fmt.Sprintf("(%s BETWEEN %s AND %s)", Column(p.Name, language), literal.Escape(p.Value), literal.Escape(p.Value2))
}

func renderSearch(p types.Predicate, language string) string {
	s, _ := p.Value.(string)
	s = strings.ReplaceAll(s, "%", "")
	var pattern string
	switch p.Anchor {
	case types.AnchorBegin:
		pattern = s + "%"
	case types.AnchorEnd:
		pattern = "%" + s
	default:
		pattern = "%" + s + "%"
	}
	return fmt.Sprintf("%s ILIKE %s", Column(p.Name, language), literal.Escape(pattern))
}

func renderDatePart(p types.Predicate, language string) string {
	return fmt.Sprintf("EXTRACT(%s from %s)%s%s", strings.ToLower(string(p.Kind)), Column(p.Name, language), p.Comparer, literal.Escape(p.Value))
}

func renderPermit(p types.Predicate, language string) string {
	var b strings.Builder
	b.WriteString("(")
	if p.UserID != nil && len(p.UserCol) > 0 {
		b.WriteString(Column(p.UserCol, language))
		b.WriteString("=")
		b.WriteString(literal.Escape(p.UserID))
		b.WriteString(" OR ")
	}
	col := Column(p.Name, language)
	if p.Required {
		b.WriteString("array_length(")
		b.WriteString(col)
		b.WriteString(",1) IS NULL OR ")
	}
	items := toSlice(p.Value)
	rendered := make([]string, len(items))
	for i, v := range items {
		rendered[i] = literal.EscapeArrayElem(v)
	}
	b.WriteString(col)
	b.WriteString("::_text && ARRAY[")
	b.WriteString(strings.Join(rendered, ", "))
	b.WriteString("]")
	b.WriteString(")")
	return b.String()
}

// toSlice normalizes the various shapes an `in`/`array`/`permit` Value may
// arrive in ([]any, []string, []int, ...) into a plain []any.
func toSlice(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []int64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	default:
		return []any{val}
	}
}
