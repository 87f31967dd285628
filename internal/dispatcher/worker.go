package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evedata/market-firehose/internal/decoder"
	"github.com/evedata/market-firehose/internal/model"
	"github.com/evedata/market-firehose/internal/processor"
	"github.com/evedata/market-firehose/internal/schema"
	"github.com/evedata/market-firehose/internal/store"
)

// worker holds the per-worker processing context: one store connection and
// one processor instance per message kind, built once at startup.
type worker struct {
	id      int
	store   store.Store
	orders  *processor.OrderProcessor
	history *processor.HistoryProcessor
	logger  *slog.Logger
}

func newWorker(id int, st store.Store, logger *slog.Logger) *worker {
	wl := logger.With("worker", id)
	return &worker{
		id:      id,
		store:   st,
		orders:  processor.NewOrderProcessor(st, wl),
		history: processor.NewHistoryProcessor(st, wl),
		logger:  wl,
	}
}

// process runs one unit of work to completion. Every failure mode, including
// a panic somewhere below, converts to a ProcessingResult; nothing escapes to
// kill the worker.
func (w *worker) process(ctx context.Context, frame []byte) (res model.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic in unit of work", "panic", r)
			res = model.Failf(model.TypeDecode, "worker panic: %v", r)
		}
	}()

	msg, err := decoder.Decode(frame)
	if err != nil {
		return model.Fail(model.TypeDecode, err.Error())
	}

	switch msg.ResultType {
	case model.TypeOrders:
		rowsets, v := schema.ValidateOrders(msg)
		if v != nil {
			w.logger.Debug("orders message rejected", "code", v.Code, "detail", v.Detail)
			return model.Fail(model.TypeOrders, v.Reason())
		}
		return w.orders.Process(ctx, rowsets)

	case model.TypeHistory:
		rowsets, v := schema.ValidateHistory(msg)
		if v != nil {
			w.logger.Debug("history message rejected", "code", v.Code, "detail", v.Detail)
			return model.Fail(model.TypeHistory, v.Reason())
		}
		return w.history.Process(ctx, rowsets)

	default:
		return model.Fail(msg.ResultType, fmt.Sprintf("unrecognized result type %q", msg.ResultType))
	}
}
