// Package literal renders Go values as PostgreSQL literals for inlining
// into WHERE clauses and the handful of payload operators that write a
// value directly into SQL text rather than through a placeholder.
//
// Literal is the only place in the module allowed to inline a value into
// SQL text; everything else binds through positional parameters.
package literal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02 15:04:05"

// Escape renders v as a PostgreSQL literal. NULL is lowercase, matching
// the convention used inside WHERE clauses.
func Escape(v any) string { return escape(v, false) }

// EscapeArrayElem renders v as a PostgreSQL literal for use inside an
// ARRAY[...] constructor. NULL is uppercase there; PostgreSQL accepts
// either case in both positions, but the two call sites are kept distinct
// to match what a reader of the rendered SQL would expect.
func EscapeArrayElem(v any) string { return escape(v, true) }

func escape(v any, upperNull bool) string {
	if v == nil {
		if upperNull {
			return "NULL"
		}
		return "null"
	}

	switch val := v.(type) {
	case func() any:
		return escape(val(), upperNull)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return escapeString(val)
	case time.Time:
		return escapeString(val.Local().Format(dateLayout))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		return escapeArray(rv)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			if upperNull {
				return "NULL"
			}
			return "null"
		}
		return escape(rv.Elem().Interface(), upperNull)
	}

	// Non-date, non-array object: JSON-serialize then quote as a string.
	b, err := json.Marshal(v)
	if err != nil {
		return escapeString(fmt.Sprint(v))
	}
	return escapeString(string(b))
}

func escapeArray(rv reflect.Value) string {
	n := rv.Len()
	if n == 0 {
		return "null"
	}
	elems := make([]string, n)
	for i := 0; i < n; i++ {
		elems[i] = EscapeArrayElem(rv.Index(i).Interface())
	}
	return "ARRAY[" + strings.Join(elems, ", ") + "]"
}

// escapeString single-quotes s, doubling embedded quotes and backslashes.
// A literal carrying a backslash is prefixed with E so PostgreSQL parses it
// as an escape string rather than a plain quoted string.
func escapeString(s string) string {
	hadBackslash := strings.Contains(s, `\`)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `''`)
	if hadBackslash {
		return "E'" + s + "'"
	}
	return "'" + s + "'"
}
