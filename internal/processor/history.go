package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/evedata/market-firehose/internal/model"
	"github.com/evedata/market-firehose/internal/store"
)

// HistoryProcessor replaces per-(typeID, regionID) daily-history aggregates
// under last-writer-wins. One instance per worker; not safe for concurrent
// use.
type HistoryProcessor struct {
	store  store.Store
	logger *slog.Logger
}

// NewHistoryProcessor creates a HistoryProcessor bound to one store
// connection.
func NewHistoryProcessor(st store.Store, logger *slog.Logger) *HistoryProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryProcessor{store: st, logger: logger}
}

// Process replaces every accepted rowset of a history message. A snapshot is
// an atomic unit: it either replaces the stored record wholesale or is
// skipped as stale. Number counts rows actually replaced.
func (p *HistoryProcessor) Process(ctx context.Context, rowsets []model.HistoryRowset) model.ProcessingResult {
	replaced := 0
	for i := range rowsets {
		n, err := p.replaceRowset(ctx, &rowsets[i])
		replaced += n
		if err != nil {
			return model.Fail(model.TypeHistory, err.Error())
		}
	}
	return model.ProcessingResult{Success: true, Type: model.TypeHistory, Number: replaced}
}

// replaceRowset applies last-writer-wins to one history series. History has
// no TTL; the series persists until a newer snapshot replaces it.
func (p *HistoryProcessor) replaceRowset(ctx context.Context, rs *model.HistoryRowset) (int, error) {
	key := store.HistoryKey(rs.TypeID, rs.RegionID)

	raw, found, err := p.store.Get(ctx, key)
	if err != nil {
		return 0, readErr(err)
	}

	if found {
		var existing model.HistoryRecord
		if err := json.Unmarshal(raw, &existing); err != nil {
			p.logger.Warn("discarding undecodable history record", "key", key, "error", err)
		} else if existing.GeneratedAt >= rs.GeneratedAt {
			// stale snapshot, skip and do not count
			return 0, nil
		}
	}

	rec := model.HistoryRecord{
		TypeID:      rs.TypeID,
		RegionID:    rs.RegionID,
		GeneratedAt: rs.GeneratedAt,
		History:     rs.Rows,
	}

	buf, err := json.Marshal(rec)
	if err != nil {
		return 0, insertErr(err)
	}
	if err := p.store.Put(ctx, key, buf, time.Time{}); err != nil {
		return 0, insertErr(err)
	}

	return len(rs.Rows), nil
}
