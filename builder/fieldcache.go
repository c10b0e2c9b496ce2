package builder

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// fieldKind distinguishes the two positions a rendered column name can
// appear in: WHERE/ORDER BY (no AS) versus SELECT projection (AS aliased
// for localized columns).
type fieldKind string

const (
	fieldWhere      fieldKind = "w"
	fieldProjection fieldKind = "p"
)

// fieldCache memoizes (kind, language, raw) -> rendered identifier. It is a
// pure memoization table: clearing it at any time cannot change the output
// of a future lookup, only its cost. Safe for concurrent readers/writers
// because every entry is written at most once to the same value.
var fieldCache = cmap.New[string]()

func fieldCacheKey(kind fieldKind, language, raw string) string {
	return string(kind) + "\x00" + language + "\x00" + raw
}

// renderField returns the cached rendering of raw for (kind, language),
// computing and storing it via render on first use.
func renderField(kind fieldKind, language, raw string, render func(raw, language string) string) string {
	key := fieldCacheKey(kind, language, raw)
	if v, ok := fieldCache.Get(key); ok {
		return v
	}
	v := render(raw, language)
	fieldCache.SetIfAbsent(key, v)
	return v
}

// ClearFieldCache drops every memoized field rendering. Intended to be
// called periodically by the maintenance loop; never affects correctness,
// only reclaims memory accumulated across distinct language values.
func ClearFieldCache() {
	fieldCache.Clear()
}

// FieldCacheLen reports the number of memoized entries, for diagnostics.
func FieldCacheLen() int {
	return fieldCache.Count()
}
