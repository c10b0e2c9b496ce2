package builder

import (
	"strings"

	"github.com/relaycore/pgdb/types"
)

// Column renders a field name for use in a WHERE / ORDER BY position:
// language-localized names become `"<base><language>"`, plain names are
// double-quoted unless they look pre-qualified.
func Column(name, language string) string {
	return renderField(fieldWhere, language, name, renderColumn)
}

// ProjectionColumn renders a field name for use in a SELECT projection:
// localized names additionally carry an `AS "<base>"` alias so the result
// row is keyed by the unlocalized name.
func ProjectionColumn(name, language string) string {
	return renderField(fieldProjection, language, name, renderProjectionColumn)
}

func renderColumn(raw, language string) string {
	if base, ok := strings.CutSuffix(raw, types.LocalizedSentinel); ok {
		return quoteIdent(base + language)
	}
	return quotePlain(raw)
}

func renderProjectionColumn(raw, language string) string {
	if base, ok := strings.CutSuffix(raw, types.LocalizedSentinel); ok {
		return quoteIdent(base+language) + " AS " + quoteIdent(base)
	}
	return quotePlain(raw)
}

// quotePlain double-quotes a plain identifier unless it already looks
// pre-qualified (contains a quote, whitespace, ':', or '.').
func quotePlain(name string) string {
	if strings.ContainsAny(name, `" :.`) || strings.ContainsAny(name, "\t\n") {
		return name
	}
	return quoteIdent(name)
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// Table2 returns the schema-qualified table identifier used throughout the
// builder. An empty schema yields the bare table name.
func Table2(schema, table string) string {
	if len(schema) == 0 {
		return table
	}
	return schema + "." + table
}
