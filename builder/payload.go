package builder

import (
	"fmt"
	"strings"

	"github.com/relaycore/pgdb/literal"
	"github.com/relaycore/pgdb/types"
)

// payloadOp is the one-character prefix a payload key may carry.
type payloadOp byte

const (
	opPlain   payloadOp = 0
	opAdd     payloadOp = '+'
	opSub     payloadOp = '-'
	opMul     payloadOp = '*'
	opDiv     payloadOp = '/'
	opGreater payloadOp = '>'
	opLess    payloadOp = '<'
	opNot     payloadOp = '!'
	opRaw     payloadOp = '='
	opSkipIns payloadOp = '#'
)

func splitPayloadKey(key string) (payloadOp, string) {
	if len(key) == 0 {
		return opPlain, key
	}
	switch payloadOp(key[0]) {
	case opAdd, opSub, opMul, opDiv, opGreater, opLess, opNot, opRaw, opSkipIns:
		return payloadOp(key[0]), key[1:]
	default:
		return opPlain, key
	}
}

// buildSet renders the SET clauses for an UPDATE, returning the joined
// clause text and the positional parameters, starting at paramOffset+1.
func buildSet(payload []types.PayloadEntry, language string, paramOffset int) (string, []any, error) {
	var clauses []string
	var params []any
	n := paramOffset
	for _, entry := range payload {
		if entry.Value == nil {
			continue
		}
		op, key := splitPayloadKey(entry.Key)
		col := Column(key, language)
		switch op {
		case opPlain:
			n++
			clauses = append(clauses, fmt.Sprintf("%s=$%d", col, n))
			params = append(params, entry.Value)
		case opAdd, opSub, opMul, opDiv:
			n++
			clauses = append(clauses, fmt.Sprintf("%s=COALESCE(%s,0)%c$%d", col, col, rune(op), n))
			params = append(params, entry.Value)
		case opGreater:
			n++
			clauses = append(clauses, fmt.Sprintf("%s=GREATEST(%s,$%d)", col, col, n))
			params = append(params, entry.Value)
		case opLess:
			n++
			clauses = append(clauses, fmt.Sprintf("%s=LEAST(%s,$%d)", col, col, n))
			params = append(params, entry.Value)
		case opNot:
			clauses = append(clauses, fmt.Sprintf("%s=NOT %s", col, col))
		case opRaw, opSkipIns:
			clauses = append(clauses, fmt.Sprintf("%s=%s", col, literal.Escape(entry.Value)))
		}
	}
	return strings.Join(clauses, ", "), params, nil
}

// buildInsert renders the column list, VALUES list and positional
// parameters for an INSERT.
func buildInsert(payload []types.PayloadEntry, language string) (cols, values string, params []any) {
	var colList, valList []string
	n := 0
	for _, entry := range payload {
		if entry.Value == nil {
			continue
		}
		op, key := splitPayloadKey(entry.Key)
		col := Column(key, language)
		switch op {
		case opSkipIns:
			continue
		case opNot:
			colList = append(colList, col)
			valList = append(valList, "FALSE")
		case opRaw:
			colList = append(colList, col)
			valList = append(valList, literal.Escape(entry.Value))
		case opAdd, opSub, opMul, opDiv, opGreater, opLess:
			n++
			colList = append(colList, col)
			valList = append(valList, fmt.Sprintf("$%d", n))
			params = append(params, entry.Value)
		default:
			n++
			colList = append(colList, col)
			valList = append(valList, fmt.Sprintf("$%d", n))
			params = append(params, entry.Value)
		}
	}
	return strings.Join(colList, ","), strings.Join(valList, ","), params
}
