package schema

import (
	"fmt"

	"github.com/evedata/market-firehose/internal/model"
)

// HistoryColumns is the exact column set a history message must publish.
var HistoryColumns = []string{"date", "orders", "quantity", "low", "high", "average"}

// ValidateHistory checks a history message and returns its typed rowsets.
// The first violation invalidates the whole message.
func ValidateHistory(msg *model.Message) ([]model.HistoryRowset, *Violation) {
	idx, v := columnIndex(msg.Columns, HistoryColumns)
	if v != nil {
		return nil, v
	}

	out := make([]model.HistoryRowset, 0, len(msg.Rowsets))
	for ri := range msg.Rowsets {
		rs := &msg.Rowsets[ri]

		generatedAt, v := checkRowset(rs)
		if v != nil {
			return nil, v
		}

		typed := model.HistoryRowset{
			GeneratedAt: generatedAt,
			TypeID:      rs.TypeID,
			RegionID:    rs.RegionID,
			Rows:        make([]model.HistoryRow, 0, len(rs.Rows)),
		}

		for wi, row := range rs.Rows {
			if len(row) != len(HistoryColumns) {
				return nil, &Violation{
					Code:   "row length mismatch",
					Detail: fmt.Sprintf("rowset %d row %d", ri, wi),
				}
			}

			day, v := parseHistoryRow(idx, row, generatedAt)
			if v != nil {
				v.Detail = fmt.Sprintf("rowset %d row %d", ri, wi)
				return nil, v
			}
			typed.Rows = append(typed.Rows, day)
		}

		out = append(out, typed)
	}

	return out, nil
}

// parseHistoryRow types and range-checks a single daily-stat row.
func parseHistoryRow(idx map[string]int, row []any, generatedAt int64) (model.HistoryRow, *Violation) {
	var day model.HistoryRow
	var ok bool

	date, ok := asString(row[idx["date"]])
	if !ok {
		return day, &Violation{Code: "date not a date"}
	}
	if day.Date, ok = ParseTimestamp(date); !ok {
		return day, &Violation{Code: "date not a date"}
	}

	if day.Orders, ok = asInt(row[idx["orders"]]); !ok {
		return day, &Violation{Code: "orders not an integer"}
	}
	if day.Quantity, ok = asInt(row[idx["quantity"]]); !ok {
		return day, &Violation{Code: "quantity not an integer"}
	}
	if day.Low, ok = asDecimal(row[idx["low"]]); !ok {
		return day, &Violation{Code: "low not a decimal"}
	}
	if day.High, ok = asDecimal(row[idx["high"]]); !ok {
		return day, &Violation{Code: "high not a decimal"}
	}
	if day.Average, ok = asDecimal(row[idx["average"]]); !ok {
		return day, &Violation{Code: "average not a decimal"}
	}

	switch {
	case day.Date > generatedAt:
		return day, &Violation{Code: "date after generatedAt"}
	case day.Orders < 0:
		return day, &Violation{Code: "orders negative"}
	case day.Quantity < 0:
		return day, &Violation{Code: "quantity negative"}
	case !day.Low.IsPositive():
		return day, &Violation{Code: "low not positive"}
	case day.High.LessThan(day.Low):
		return day, &Violation{Code: "high below low"}
	case day.Average.LessThan(day.Low):
		return day, &Violation{Code: "average below low"}
	case day.Average.GreaterThan(day.High):
		return day, &Violation{Code: "average above high"}
	}

	return day, nil
}
