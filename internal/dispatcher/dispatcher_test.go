package dispatcher

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/evedata/market-firehose/internal/model"
	"github.com/evedata/market-firehose/internal/store"
)

// frame deflates a message document the way the relay publishes it.
func frame(t *testing.T, doc any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("deflate message: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close deflater: %v", err)
	}
	return buf.Bytes()
}

func ordersDoc(generatedAt string, rows ...[]any) map[string]any {
	if rows == nil {
		rows = [][]any{}
	}
	return map[string]any{
		"resultType": "orders",
		"columns": []string{
			"price", "volRemaining", "range", "orderID", "volEntered",
			"minVolume", "bid", "issueDate", "duration", "stationID",
			"solarSystemID",
		},
		"rowsets": []map[string]any{{
			"generatedAt": generatedAt,
			"typeID":      34,
			"regionID":    10000002,
			"rows":        rows,
		}},
	}
}

func orderRow(orderID int64) []any {
	return []any{
		5.0, 10, 0, orderID, 10, 1, false,
		"2023-12-01T00:00:00", 90, 60003760, 30000142,
	}
}

func historyDoc(generatedAt string, rows ...[]any) map[string]any {
	if rows == nil {
		rows = [][]any{}
	}
	return map[string]any{
		"resultType": "history",
		"columns":    []string{"date", "orders", "quantity", "low", "high", "average"},
		"rowsets": []map[string]any{{
			"generatedAt": generatedAt,
			"typeID":      34,
			"regionID":    10000002,
			"rows":        rows,
		}},
	}
}

// sharedFactory hands every worker the same memory store so the test can
// inspect what the pool wrote.
func sharedFactory(st store.Store) store.Factory {
	return func(context.Context) (store.Store, error) {
		return st, nil
	}
}

func startDispatcher(t *testing.T, cfg Config, st store.Store) *Dispatcher {
	t.Helper()
	d := New(cfg, sharedFactory(st), nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	return d
}

func stopAndDrain(t *testing.T, d *Dispatcher) []model.ProcessingResult {
	t.Helper()

	var results []model.ProcessingResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range d.Results() {
			results = append(results, res)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	<-done
	return results
}

func TestDispatcher_EndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	// pin the expiry clock so the fixture orders (issued 2023-12-01,
	// 90-day duration) don't read back as expired on the real clock
	st.SetClock(func() time.Time { return time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC) })
	d := startDispatcher(t, Config{Workers: 2, QueueSize: 8}, st)
	ctx := context.Background()

	if err := d.Submit(ctx, frame(t, ordersDoc("2024-01-01T00:00:00", orderRow(555)))); err != nil {
		t.Fatalf("Submit orders: %v", err)
	}
	if err := d.Submit(ctx, frame(t, historyDoc("2024-01-01T00:00:00",
		[]any{"2023-12-31", 42, 200, 4.5, 5.5, 5.0}))); err != nil {
		t.Fatalf("Submit history: %v", err)
	}

	results := stopAndDrain(t, d)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byType := make(map[string]model.ProcessingResult)
	for _, res := range results {
		byType[res.Type] = res
	}

	if res := byType["orders"]; !res.Success || res.Number != 1 {
		t.Errorf("orders result = %+v, want success number 1", res)
	}
	if res := byType["history"]; !res.Success || res.Number != 1 {
		t.Errorf("history result = %+v, want success number 1", res)
	}

	if _, found, _ := st.Get(ctx, store.OrderKey(34, 10000002, 555)); !found {
		t.Error("order record missing from store")
	}
	if _, found, _ := st.Get(ctx, store.HistoryKey(34, 10000002)); !found {
		t.Error("history record missing from store")
	}
}

func TestDispatcher_DecodeFailure(t *testing.T) {
	d := startDispatcher(t, Config{Workers: 1, QueueSize: 4}, store.NewMemoryStore())

	if err := d.Submit(context.Background(), []byte("not a zlib frame")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	results := stopAndDrain(t, d)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Success || res.Type != model.TypeDecode {
		t.Errorf("result = %+v, want decode failure", res)
	}
	if !strings.HasPrefix(res.Reason, "decode inflate:") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestDispatcher_ValidationFailure(t *testing.T) {
	st := store.NewMemoryStore()
	d := startDispatcher(t, Config{Workers: 1, QueueSize: 4}, st)

	bad := orderRow(555)
	bad[0] = 0.0 // price
	if err := d.Submit(context.Background(), frame(t, ordersDoc("2024-01-01T00:00:00", bad))); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	results := stopAndDrain(t, d)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Success || res.Type != model.TypeOrders {
		t.Errorf("result = %+v, want orders failure", res)
	}
	if res.Reason != "check failed: price not positive" {
		t.Errorf("reason = %q", res.Reason)
	}

	// rejection is all-or-nothing: nothing reached the store
	if n := st.Len(); n != 0 {
		t.Errorf("store holds %d records after rejected message", n)
	}
}

func TestDispatcher_UnknownResultType(t *testing.T) {
	d := startDispatcher(t, Config{Workers: 1, QueueSize: 4}, store.NewMemoryStore())

	doc := map[string]any{
		"resultType": "futures",
		"columns":    []string{"price"},
		"rowsets":    []map[string]any{},
	}
	if err := d.Submit(context.Background(), frame(t, doc)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	results := stopAndDrain(t, d)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Success || res.Type != "futures" {
		t.Errorf("result = %+v, want futures failure", res)
	}
	if res.Reason != `unrecognized result type "futures"` {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestDispatcher_DrainOnStop(t *testing.T) {
	d := startDispatcher(t, Config{Workers: 2, QueueSize: 32}, store.NewMemoryStore())
	ctx := context.Background()

	const n = 20
	for i := 0; i < n; i++ {
		f := frame(t, ordersDoc("2024-01-01T00:00:00", orderRow(int64(1000+i))))
		if err := d.Submit(ctx, f); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	results := stopAndDrain(t, d)
	if len(results) != n {
		t.Fatalf("got %d results after drain, want %d", len(results), n)
	}
	for _, res := range results {
		if !res.Success {
			t.Errorf("result = %+v, want success", res)
		}
	}
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	d := startDispatcher(t, Config{Workers: 1, QueueSize: 4}, store.NewMemoryStore())
	stopAndDrain(t, d)

	err := d.Submit(context.Background(), []byte("frame"))
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop = %v, want ErrStopped", err)
	}
}

func TestDispatcher_SubmitBlocksUntilCancel(t *testing.T) {
	// a factory that never connects keeps the pool from consuming, so the
	// queue stays full and Submit must block until the context gives up
	d := New(Config{Workers: 1, QueueSize: 1}, sharedFactory(store.NewMemoryStore()), nil)
	// not started: no workers drain the queue

	ctx := context.Background()
	if err := d.Submit(ctx, []byte("a")); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := d.Submit(cancelCtx, []byte("b"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit on full queue = %v, want context.DeadlineExceeded", err)
	}
}

func TestDispatcher_StartStoreFailure(t *testing.T) {
	wantErr := fmt.Errorf("redis unavailable")
	factory := func(context.Context) (store.Store, error) { return nil, wantErr }

	d := New(Config{Workers: 2, QueueSize: 4}, factory, nil)
	if err := d.Start(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Start() = %v, want wrapped %v", err, wantErr)
	}
}
