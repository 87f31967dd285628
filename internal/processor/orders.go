package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/evedata/market-firehose/internal/model"
	"github.com/evedata/market-firehose/internal/store"
)

// storeError distinguishes read failures from insert failures for the
// failure-reason bucket.
type storeError struct {
	op  string // "read" or "insert"
	err error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("can't %s store: %v", map[string]string{
		"read":   "read from",
		"insert": "insert into",
	}[e.op], e.err)
}

func (e *storeError) Unwrap() error { return e.err }

func readErr(err error) error   { return &storeError{op: "read", err: err} }
func insertErr(err error) error { return &storeError{op: "insert", err: err} }

// OrderProcessor merges order rowsets into the store and reconciles
// disappeared orders. One instance per worker; not safe for concurrent use.
type OrderProcessor struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderProcessor creates an OrderProcessor bound to one store connection.
func NewOrderProcessor(st store.Store, logger *slog.Logger) *OrderProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderProcessor{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Process merges every rowset of an orders message. Number counts rows seen,
// accepted or not; the first store failure aborts the remaining work.
func (p *OrderProcessor) Process(ctx context.Context, rowsets []model.OrderRowset) model.ProcessingResult {
	seen := 0
	for i := range rowsets {
		n, err := p.processRowset(ctx, &rowsets[i])
		seen += n
		if err != nil {
			return model.Fail(model.TypeOrders, err.Error())
		}
	}
	return model.ProcessingResult{Success: true, Type: model.TypeOrders, Number: seen}
}

// processRowset merges one (typeID, regionID) snapshot and reconciles the
// book against it.
func (p *OrderProcessor) processRowset(ctx context.Context, rs *model.OrderRowset) (int, error) {
	processedAt := p.now().Unix()

	// Presence in the snapshot, not acceptance, is what marks an order as
	// still active.
	active := make(map[int64]struct{}, len(rs.Rows))

	for _, row := range rs.Rows {
		active[row.OrderID] = struct{}{}

		if err := p.mergeOrder(ctx, rs, row, processedAt); err != nil {
			return len(rs.Rows), err
		}
	}

	if err := p.reconcile(ctx, rs.TypeID, rs.RegionID, active); err != nil {
		return len(rs.Rows), err
	}

	return len(rs.Rows), nil
}

// mergeOrder upserts a single order under the staleness discipline.
func (p *OrderProcessor) mergeOrder(ctx context.Context, rs *model.OrderRowset, row model.OrderRow, processedAt int64) error {
	key := store.OrderKey(rs.TypeID, rs.RegionID, row.OrderID)

	raw, found, err := p.store.Get(ctx, key)
	if err != nil {
		return readErr(err)
	}

	if found {
		var existing model.OrderRecord
		if err := json.Unmarshal(raw, &existing); err != nil {
			// corrupt record: overwrite with the fresh snapshot
			p.logger.Warn("discarding undecodable order record", "key", key, "error", err)
		} else if !(existing.GeneratedAt < rs.GeneratedAt && existing.VolRemaining >= row.VolRemaining) {
			// stale update, discard silently
			return nil
		}
	}

	rec := model.OrderRecord{
		TypeID:        rs.TypeID,
		RegionID:      rs.RegionID,
		GeneratedAt:   rs.GeneratedAt,
		ProcessedAt:   processedAt,
		Price:         row.Price,
		VolRemaining:  row.VolRemaining,
		Range:         row.Range,
		VolEntered:    row.VolEntered,
		MinVolume:     row.MinVolume,
		Bid:           row.Bid,
		IssueDate:     row.IssueDate,
		Duration:      row.Duration,
		StationID:     row.StationID,
		SolarSystemID: row.SolarSystemID,
		ProbablyOld:   false,
	}

	buf, err := json.Marshal(rec)
	if err != nil {
		return insertErr(err)
	}

	if err := p.store.Put(ctx, key, buf, time.Unix(rec.Expiry(), 0).UTC()); err != nil {
		return insertErr(err)
	}
	return nil
}

// reconcile flags stored orders missing from the latest snapshot of this
// book. A not-found on re-read means the record already expired, which is
// benign. The rewrite reuses the record's own expiry so flagging never
// extends a lifetime.
func (p *OrderProcessor) reconcile(ctx context.Context, typeID, regionID int64, active map[int64]struct{}) error {
	var inactive []string

	match := store.OrderMatch(typeID, regionID)
	err := p.store.Scan(ctx, match, func(key string) error {
		id, err := store.OrderIDFromKey(key)
		if err != nil {
			p.logger.Warn("skipping malformed key in scan", "key", key, "error", err)
			return nil
		}
		if _, ok := active[id]; !ok {
			inactive = append(inactive, key)
		}
		return nil
	})
	if err != nil {
		return readErr(err)
	}

	for _, key := range inactive {
		raw, found, err := p.store.Get(ctx, key)
		if err != nil {
			return readErr(err)
		}
		if !found {
			continue
		}

		var rec model.OrderRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			p.logger.Warn("skipping undecodable order record", "key", key, "error", err)
			continue
		}
		if rec.ProbablyOld {
			continue
		}

		rec.ProbablyOld = true
		buf, err := json.Marshal(rec)
		if err != nil {
			return insertErr(err)
		}
		if err := p.store.Put(ctx, key, buf, time.Unix(rec.Expiry(), 0).UTC()); err != nil {
			return insertErr(err)
		}
	}

	return nil
}
