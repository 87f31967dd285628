package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Wire Types
// -----------------------------------------------------------------------------

// Message is a decoded feed frame before schema validation. Rows are
// positional and untyped; Columns names the fields of every row.
type Message struct {
	ResultType string      `json:"resultType"`
	Columns    []string    `json:"columns"`
	Rowsets    []RawRowset `json:"rowsets"`
}

// RawRowset is one batch of rows for a single (typeID, regionID) pair.
// GeneratedAt is the raw timestamp string as published by the relay.
type RawRowset struct {
	GeneratedAt string  `json:"generatedAt"`
	TypeID      int64   `json:"typeID"`
	RegionID    int64   `json:"regionID"`
	Rows        [][]any `json:"rows"`
}

// -----------------------------------------------------------------------------
// Typed Rows (produced by the schema validator)
// -----------------------------------------------------------------------------

// OrderRow is a single validated order from an orders rowset.
type OrderRow struct {
	Price         decimal.Decimal
	VolRemaining  int64
	Range         int64
	OrderID       int64
	VolEntered    int64
	MinVolume     int64
	Bid           bool
	IssueDate     int64 // epoch seconds
	Duration      int64 // days
	StationID     int64
	SolarSystemID int64
}

// OrderRowset is a validated orders rowset with a resolved timestamp.
type OrderRowset struct {
	GeneratedAt int64 // epoch seconds
	TypeID      int64
	RegionID    int64
	Rows        []OrderRow
}

// HistoryRow is one daily aggregate from a history rowset.
type HistoryRow struct {
	Date     int64           `json:"date"` // epoch seconds, midnight UTC
	Orders   int64           `json:"orders"`
	Quantity int64           `json:"quantity"`
	Low      decimal.Decimal `json:"low"`
	High     decimal.Decimal `json:"high"`
	Average  decimal.Decimal `json:"average"`
}

// HistoryRowset is a validated history rowset.
type HistoryRowset struct {
	GeneratedAt int64
	TypeID      int64
	RegionID    int64
	Rows        []HistoryRow
}

// -----------------------------------------------------------------------------
// Persisted Records
// -----------------------------------------------------------------------------

// OrderRecord is the persisted form of a live order, keyed by orderID within
// its (typeID, regionID) book. ProbablyOld marks orders inferred to have left
// the book (fulfilled or cancelled) because a later snapshot omitted them.
type OrderRecord struct {
	TypeID        int64           `json:"typeID"`
	RegionID      int64           `json:"regionID"`
	GeneratedAt   int64           `json:"generatedAt"` // feed snapshot time
	ProcessedAt   int64           `json:"processedAt"` // ingest wall-clock time
	Price         decimal.Decimal `json:"price"`
	VolRemaining  int64           `json:"volRemaining"`
	Range         int64           `json:"range"`
	VolEntered    int64           `json:"volEntered"`
	MinVolume     int64           `json:"minVolume"`
	Bid           bool            `json:"bid"`
	IssueDate     int64           `json:"issueDate"`
	Duration      int64           `json:"duration"`
	StationID     int64           `json:"stationID"`
	SolarSystemID int64           `json:"solarSystemID"`
	ProbablyOld   bool            `json:"probablyOld"`
}

// Expiry returns the absolute expiry time of the order in epoch seconds.
// Orders live for Duration days from their issue date; the store purges the
// record at this instant via TTL, the pipeline never deletes explicitly.
func (r OrderRecord) Expiry() int64 {
	return r.IssueDate + r.Duration*86400
}

// HistoryRecord is the persisted daily-history aggregate for one
// (typeID, regionID) series. Replaced wholesale on accept; no TTL.
type HistoryRecord struct {
	TypeID      int64        `json:"typeID"`
	RegionID    int64        `json:"regionID"`
	GeneratedAt int64        `json:"generatedAt"`
	History     []HistoryRow `json:"history"`
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Result types as they appear in ProcessingResult.Type.
const (
	TypeOrders  = "orders"
	TypeHistory = "history"
	TypeDecode  = "decode"
)

// ProcessingResult is the outcome of one unit of work (one frame).
// Reason is set iff Success is false and names the failure bucket for stats.
type ProcessingResult struct {
	Success bool
	Type    string
	Number  int
	Reason  string
}

// Fail builds a failure result.
func Fail(what, reason string) ProcessingResult {
	return ProcessingResult{Success: false, Type: what, Reason: reason}
}

// Failf builds a failure result with a formatted reason.
func Failf(what, format string, args ...any) ProcessingResult {
	return ProcessingResult{Success: false, Type: what, Reason: fmt.Sprintf(format, args...)}
}
