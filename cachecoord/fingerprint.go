package cachecoord

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/relaycore/pgdb/types"
)

// canonicalFilter is the ordered tuple the fingerprint hashes. encoding/json
// always marshals a struct's fields in declaration order, which is what
// makes this deterministic across calls without any extra sorting step.
type canonicalFilter struct {
	Exec     types.ExecKind
	Table    string
	Schema   string
	Filter   []types.Predicate
	Sort     []string
	Fields   []string
	Language string
	Take     int
	Skip     int
	Query    string
}

// Fingerprint computes the cache key for f: `<namespace><sha256-hex>:<table2>`.
// The table/schema suffix is not part of the hash input's uniqueness
// contribution (it's already hashed above) — it is appended in the clear so
// the coarse table-invalidation sweep in Invalidate can match it with a
// key pattern without having to reverse the hash.
func (c *Coordinator) Fingerprint(f *types.Filter) (string, error) {
	schema := f.Schema
	if len(schema) == 0 {
		schema = "default"
	}
	canon := canonicalFilter{
		Exec:     f.Exec,
		Table:    f.Table,
		Schema:   schema,
		Filter:   f.Filter,
		Sort:     f.Sort,
		Fields:   f.Fields,
		Language: f.Language,
		Take:     f.Take,
		Skip:     f.Skip,
		Query:    f.Query,
	}
	b, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	table2 := f.Table
	if len(f.Schema) > 0 {
		table2 = f.Schema + "." + f.Table
	}
	return c.cfg.KeyPrefix + hex.EncodeToString(sum[:]) + ":" + table2, nil
}
