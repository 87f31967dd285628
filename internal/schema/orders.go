package schema

import (
	"fmt"

	"github.com/evedata/market-firehose/internal/model"
)

// OrderColumns is the exact column set an orders message must publish.
var OrderColumns = []string{
	"price", "volRemaining", "range", "orderID", "volEntered",
	"minVolume", "bid", "issueDate", "duration", "stationID",
	"solarSystemID",
}

// ValidateOrders checks an orders message and returns its typed rowsets.
// The first violation invalidates the whole message.
func ValidateOrders(msg *model.Message) ([]model.OrderRowset, *Violation) {
	idx, v := columnIndex(msg.Columns, OrderColumns)
	if v != nil {
		return nil, v
	}

	out := make([]model.OrderRowset, 0, len(msg.Rowsets))
	for ri := range msg.Rowsets {
		rs := &msg.Rowsets[ri]

		generatedAt, v := checkRowset(rs)
		if v != nil {
			return nil, v
		}

		typed := model.OrderRowset{
			GeneratedAt: generatedAt,
			TypeID:      rs.TypeID,
			RegionID:    rs.RegionID,
			Rows:        make([]model.OrderRow, 0, len(rs.Rows)),
		}

		for wi, row := range rs.Rows {
			if len(row) != len(OrderColumns) {
				return nil, &Violation{
					Code:   "row length mismatch",
					Detail: fmt.Sprintf("rowset %d row %d", ri, wi),
				}
			}

			order, v := parseOrderRow(idx, row, generatedAt)
			if v != nil {
				v.Detail = fmt.Sprintf("rowset %d row %d", ri, wi)
				return nil, v
			}
			typed.Rows = append(typed.Rows, order)
		}

		out = append(out, typed)
	}

	return out, nil
}

// parseOrderRow types and range-checks a single positional row.
func parseOrderRow(idx map[string]int, row []any, generatedAt int64) (model.OrderRow, *Violation) {
	var order model.OrderRow
	var ok bool

	if order.Price, ok = asDecimal(row[idx["price"]]); !ok {
		return order, &Violation{Code: "price not a decimal"}
	}

	intFields := []struct {
		col string
		dst *int64
	}{
		{"volRemaining", &order.VolRemaining},
		{"range", &order.Range},
		{"orderID", &order.OrderID},
		{"volEntered", &order.VolEntered},
		{"minVolume", &order.MinVolume},
		{"duration", &order.Duration},
		{"stationID", &order.StationID},
		{"solarSystemID", &order.SolarSystemID},
	}
	for _, f := range intFields {
		if *f.dst, ok = asInt(row[idx[f.col]]); !ok {
			return order, &Violation{Code: f.col + " not an integer"}
		}
	}

	if order.Bid, ok = asBool(row[idx["bid"]]); !ok {
		return order, &Violation{Code: "bid not a boolean"}
	}

	issueDate, ok := asString(row[idx["issueDate"]])
	if !ok {
		return order, &Violation{Code: "issueDate not a date"}
	}
	if order.IssueDate, ok = ParseTimestamp(issueDate); !ok {
		return order, &Violation{Code: "issueDate not a date"}
	}

	switch {
	case !order.Price.IsPositive():
		return order, &Violation{Code: "price not positive"}
	case order.VolRemaining <= 0:
		return order, &Violation{Code: "volRemaining not positive"}
	case order.Range < -1:
		return order, &Violation{Code: "range below -1"}
	case order.OrderID < 0:
		return order, &Violation{Code: "orderID negative"}
	case order.VolEntered <= 0:
		return order, &Violation{Code: "volEntered not positive"}
	case order.MinVolume <= 0:
		return order, &Violation{Code: "minVolume not positive"}
	case order.IssueDate > generatedAt:
		// an order cannot claim issue after the snapshot was generated
		return order, &Violation{Code: "issueDate after generatedAt"}
	case order.Duration <= 0:
		return order, &Violation{Code: "duration not positive"}
	case order.StationID <= 0:
		return order, &Violation{Code: "stationID not positive"}
	case order.SolarSystemID <= 0:
		return order, &Violation{Code: "solarSystemID not positive"}
	}

	return order, nil
}
