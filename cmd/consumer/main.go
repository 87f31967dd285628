package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evedata/market-firehose/internal/config"
	"github.com/evedata/market-firehose/internal/dispatcher"
	"github.com/evedata/market-firehose/internal/relay"
	"github.com/evedata/market-firehose/internal/stats"
	"github.com/evedata/market-firehose/internal/store"
	"github.com/evedata/market-firehose/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/consumer.local.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until config is loaded
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting consumer",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"transport", cfg.Feed.Transport,
		"store", cfg.Store.Backend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Store factory: one independent connection per worker, plus a control
	// connection for health checks.
	newStore := storeFactory(cfg.Store)

	controlStore, err := newStore(ctx)
	if err != nil {
		logger.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer controlStore.Close()
	logger.Info("store connected", "backend", cfg.Store.Backend)

	// Stats collector and metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := stats.NewCollector(stats.Config{LogInterval: cfg.Stats.LogInterval}, registry, logger)

	// Dispatcher (worker pool)
	disp := dispatcher.New(dispatcher.Config{
		Workers:   cfg.Dispatcher.Workers,
		QueueSize: cfg.Dispatcher.QueueSize,
	}, newStore, logger)

	if err := disp.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}

	collectorDone := make(chan struct{})
	go func() {
		collector.Run(disp.Results())
		close(collectorDone)
	}()

	// Feed source
	source, err := newSource(cfg.Feed, logger)
	if err != nil {
		logger.Error("failed to create feed source", "error", err)
		os.Exit(1)
	}
	if err := source.Start(ctx); err != nil {
		logger.Error("failed to start feed source", "error", err)
		os.Exit(1)
	}

	// Health + metrics server
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	registerHealthHandlers(mux, controlStore, collector)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("consumer running", "workers", cfg.Dispatcher.Workers)

	// Controller loop: receive frames, submit units of work. Submit blocks
	// when the queue is full, so overload backpressures the feed read.
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case frame, ok := <-source.Frames():
			if !ok {
				running = false
				break
			}
			if err := disp.Submit(ctx, frame.Data); err != nil {
				if ctx.Err() == nil {
					logger.Error("failed to submit frame", "error", err)
				}
				running = false
			}
		}
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := source.Stop(shutdownCtx); err != nil {
		logger.Warn("feed source stop", "error", err)
	}
	if err := disp.Stop(shutdownCtx); err != nil {
		logger.Warn("dispatcher stop", "error", err)
	}
	<-collectorDone

	// Final report, failure buckets sorted by count
	snap := collector.Snapshot()
	logger.Info("final totals",
		"orders", snap.Orders,
		"history", snap.History,
		"failed", snap.Failed,
	)
	for _, fc := range snap.TopFailures() {
		logger.Info("failures by type", "count", fc.Count, "reason", fc.Reason)
	}

	httpServer.Shutdown(shutdownCtx)
	logger.Info("consumer stopped")
}

// newLogger builds the configured logger, rotating to a file when set.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// storeFactory returns a per-worker store constructor. The memory backend
// returns one shared instance, otherwise every worker would see its own
// private book.
func storeFactory(cfg config.StoreConfig) store.Factory {
	if cfg.Backend == "memory" {
		mem := store.NewMemoryStore()
		return func(context.Context) (store.Store, error) {
			return mem, nil
		}
	}

	return func(ctx context.Context) (store.Store, error) {
		return store.NewRedisStore(ctx, store.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			ScanCount: cfg.Redis.ScanCount,
		})
	}
}

// newSource builds the configured feed transport.
func newSource(cfg config.FeedConfig, logger *slog.Logger) (relay.Source, error) {
	switch cfg.Transport {
	case "kafka":
		return relay.NewKafkaSource(relay.KafkaConfig{
			Brokers:    cfg.Kafka.Brokers,
			Topic:      cfg.Kafka.Topic,
			GroupID:    cfg.Kafka.GroupID,
			BufferSize: cfg.Kafka.BufferSize,
		}, logger)
	default:
		return relay.NewWSSource(relay.WSConfig{
			URL:                cfg.Websocket.URL,
			HandshakeTimeout:   cfg.Websocket.HandshakeTimeout,
			ReadTimeout:        cfg.Websocket.ReadTimeout,
			ReconnectBaseDelay: cfg.Websocket.ReconnectBaseDelay,
			ReconnectMaxDelay:  cfg.Websocket.ReconnectMaxDelay,
			BufferSize:         cfg.Websocket.BufferSize,
		}, logger), nil
	}
}

// registerHealthHandlers adds the health and stats endpoints.
func registerHealthHandlers(mux *http.ServeMux, st store.Store, collector *stats.Collector) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := st.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["store"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["store"] = "connected"
		}

		snap := collector.Snapshot()
		health.Components["pipeline"] = map[string]int64{
			"orders":  snap.Orders,
			"history": snap.History,
			"failed":  snap.Failed,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		snap := collector.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"orders":   snap.Orders,
			"history":  snap.History,
			"failed":   snap.Failed,
			"failures": snap.Errors,
		})
	})
}
