package schema

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evedata/market-firehose/internal/model"
)

// Violation describes the first constraint a message failed. Code is stable
// across runs and suitable as a histogram bucket; Detail carries positional
// context for logs.
type Violation struct {
	Code   string
	Detail string
}

// Reason returns the failure-reason string recorded in processing results.
func (v *Violation) Reason() string {
	return "check failed: " + v.Code
}

// Timestamp layouts accepted from the relay. Naive timestamps are UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a feed timestamp into epoch seconds.
func ParseTimestamp(s string) (int64, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// columnIndex checks set equality between published and required columns and
// returns the position of each required column. Order-independent; any
// omission, duplicate or extra column fails.
func columnIndex(columns, required []string) (map[string]int, *Violation) {
	if len(columns) != len(required) {
		return nil, &Violation{Code: "columns mismatch", Detail: "column count"}
	}
	idx := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, dup := idx[col]; dup {
			return nil, &Violation{Code: "columns mismatch", Detail: "duplicate column " + col}
		}
		idx[col] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, &Violation{Code: "columns mismatch", Detail: "missing column " + col}
		}
	}
	return idx, nil
}

// checkRowset validates the envelope fields shared by both message kinds and
// resolves generatedAt. rows must be present (an empty list is valid data).
func checkRowset(rs *model.RawRowset) (generatedAt int64, v *Violation) {
	if rs.TypeID <= 0 {
		return 0, &Violation{Code: "rowset typeID missing"}
	}
	if rs.RegionID <= 0 {
		return 0, &Violation{Code: "rowset regionID missing"}
	}
	if rs.Rows == nil {
		return 0, &Violation{Code: "rowset rows missing"}
	}
	ts, ok := ParseTimestamp(rs.GeneratedAt)
	if !ok {
		return 0, &Violation{Code: "generatedAt not a date", Detail: rs.GeneratedAt}
	}
	return ts, nil
}

// Value coercion helpers. The decoder keeps numerics as json.Number, so
// integer-ness is judged on the literal, not on a float round-trip.

func asInt(v any) (int64, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

func asDecimal(v any) (decimal.Decimal, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
