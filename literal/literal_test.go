package literal_test

import (
	"strings"
	"testing"
	"time"

	"github.com/relaycore/pgdb/literal"
	"github.com/stretchr/testify/assert"
)

func TestEscape_Scalars(t *testing.T) {
	assert.Equal(t, "null", literal.Escape(nil))
	assert.Equal(t, "true", literal.Escape(true))
	assert.Equal(t, "false", literal.Escape(false))
	assert.Equal(t, "42", literal.Escape(42))
	assert.Equal(t, "19.99", literal.Escape(19.99))
}

func TestEscape_String(t *testing.T) {
	assert.Equal(t, "'Drone X1'", literal.Escape("Drone X1"))
	assert.Equal(t, "'it''s'", literal.Escape("it's"))
	assert.Equal(t, `E'a\\b'`, literal.Escape(`a\b`))
}

func TestEscape_Date(t *testing.T) {
	d := time.Date(2024, 3, 5, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "'2024-03-05 09:30:00'", literal.Escape(d))
}

func TestEscape_Array(t *testing.T) {
	assert.Equal(t, "null", literal.Escape([]int{}))
	assert.Equal(t, "ARRAY[1, 2, 3]", literal.Escape([]int{1, 2, 3}))
	assert.Equal(t, "ARRAY['a', NULL]", literal.Escape([]any{"a", nil}))
}

func TestEscape_Function(t *testing.T) {
	assert.Equal(t, "5", literal.Escape(func() any { return 5 }))
}

func TestEscape_Object(t *testing.T) {
	assert.Equal(t, `'{"a":1}'`, literal.Escape(map[string]int{"a": 1}))
}

func TestEscape_RoundTripUTF8(t *testing.T) {
	for _, s := range []string{"héllo", "日本語", "back\\slash", "quo'te", ""} {
		got := literal.Escape(s)
		assert.True(t, len(got) >= 2)

		// Parse the literal back the way PostgreSQL reads it.
		body, isEscape := strings.CutPrefix(got, "E")
		body = strings.TrimSuffix(strings.TrimPrefix(body, "'"), "'")
		body = strings.ReplaceAll(body, "''", "'")
		if isEscape {
			body = strings.ReplaceAll(body, `\\`, `\`)
		}
		assert.Equal(t, s, body)
	}
}
