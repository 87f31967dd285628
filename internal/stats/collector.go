// Package stats aggregates processing results into running counters and a
// failure-reason histogram.
//
// One collector goroutine consumes the dispatcher's results channel, so
// folding needs no coordination; the mutex only guards Snapshot reads from
// the health endpoint.
package stats

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/evedata/market-firehose/internal/model"
)

// Config holds collector settings.
type Config struct {
	LogInterval time.Duration // progress log cadence; 0 disables
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Orders  int64            // accepted order rows
	History int64            // accepted history rows
	Failed  int64            // failed units of work
	Errors  map[string]int64 // failure reason -> occurrences
}

// FailureCount is one bucket of the failure histogram.
type FailureCount struct {
	Reason string
	Count  int64
}

// TopFailures returns the histogram sorted by descending count.
func (s Snapshot) TopFailures() []FailureCount {
	out := make([]FailureCount, 0, len(s.Errors))
	for reason, n := range s.Errors {
		out = append(out, FailureCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// Collector folds ProcessingResults into counters and mirrors them into
// Prometheus.
type Collector struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	orders  int64
	history int64
	failed  int64
	errors  map[string]int64

	// Prometheus mirrors. The failure counter is labelled by result type,
	// not by full reason, to keep label cardinality bounded.
	promOrders   prometheus.Counter
	promHistory  prometheus.Counter
	promFailures *prometheus.CounterVec
}

// NewCollector creates a collector registering its metrics with reg.
func NewCollector(cfg Config, reg prometheus.Registerer, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	return &Collector{
		cfg:    cfg,
		logger: logger,
		errors: make(map[string]int64),
		promOrders: factory.NewCounter(prometheus.CounterOpts{
			Name: "firehose_order_rows_total",
			Help: "Accepted order rows.",
		}),
		promHistory: factory.NewCounter(prometheus.CounterOpts{
			Name: "firehose_history_rows_total",
			Help: "Accepted history rows.",
		}),
		promFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "firehose_failures_total",
			Help: "Failed units of work by result type.",
		}, []string{"type"}),
	}
}

// Run consumes results until the channel closes. Call from a single
// goroutine; it returns once the dispatcher has drained.
func (c *Collector) Run(results <-chan model.ProcessingResult) {
	var tick <-chan time.Time
	if c.cfg.LogInterval > 0 {
		ticker := time.NewTicker(c.cfg.LogInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case res, ok := <-results:
			if !ok {
				return
			}
			c.record(res)
		case <-tick:
			c.logProgress()
		}
	}
}

// Record folds a single result. Exposed for callers that drain the results
// channel themselves.
func (c *Collector) Record(res model.ProcessingResult) {
	c.record(res)
}

func (c *Collector) record(res model.ProcessingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !res.Success {
		c.failed++
		c.errors[res.Reason]++
		c.promFailures.WithLabelValues(res.Type).Inc()
		return
	}

	switch res.Type {
	case model.TypeOrders:
		c.orders += int64(res.Number)
		c.promOrders.Add(float64(res.Number))
	case model.TypeHistory:
		c.history += int64(res.Number)
		c.promHistory.Add(float64(res.Number))
	}
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	errs := make(map[string]int64, len(c.errors))
	for reason, n := range c.errors {
		errs[reason] = n
	}
	return Snapshot{
		Orders:  c.orders,
		History: c.history,
		Failed:  c.failed,
		Errors:  errs,
	}
}

func (c *Collector) logProgress() {
	snap := c.Snapshot()
	c.logger.Info("processed",
		"orders", snap.Orders,
		"history", snap.History,
		"failed", snap.Failed,
	)
}
