package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evedata/market-firehose/internal/model"
	"github.com/evedata/market-firehose/internal/store"
)

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("dispatcher stopped")

// Config holds dispatcher settings.
type Config struct {
	Workers   int // pool size
	QueueSize int // bounded submit queue; Submit blocks when full
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 256,
	}
}

// Dispatcher runs the decode/validate/process pipeline on a worker pool.
type Dispatcher struct {
	cfg      Config
	logger   *slog.Logger
	newStore store.Factory

	tasks   chan []byte
	results chan model.ProcessingResult
	workers []*worker

	// taskCtx outlives the caller's context so queued work drains to
	// completion on shutdown; it is cancelled only if the drain times out.
	taskCtx    context.Context
	taskCancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Dispatcher. newStore is called once per worker so every
// worker holds an independent store connection.
func New(cfg Config, newStore store.Factory, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &Dispatcher{
		cfg:      cfg,
		logger:   logger,
		newStore: newStore,
		tasks:    make(chan []byte, cfg.QueueSize),
		results:  make(chan model.ProcessingResult, cfg.QueueSize),
	}
}

// Start connects the per-worker stores and launches the pool.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.taskCtx, d.taskCancel = context.WithCancel(context.WithoutCancel(ctx))

	for i := 0; i < d.cfg.Workers; i++ {
		st, err := d.newStore(ctx)
		if err != nil {
			for _, w := range d.workers {
				w.store.Close()
			}
			return fmt.Errorf("connect store for worker %d: %w", i, err)
		}
		d.workers = append(d.workers, newWorker(i, st, d.logger))
	}

	for _, w := range d.workers {
		d.wg.Add(1)
		go d.runWorker(w)
	}

	d.logger.Info("dispatcher started",
		"workers", d.cfg.Workers,
		"queue_size", d.cfg.QueueSize,
	)
	return nil
}

// Submit queues one frame as a unit of work. Blocks while the queue is full;
// returns the context error if ctx is cancelled first.
func (d *Dispatcher) Submit(ctx context.Context, frame []byte) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.mu.Unlock()

	select {
	case d.tasks <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results delivers one ProcessingResult per completed unit of work, in
// completion order. The channel closes once Stop has drained the pool.
func (d *Dispatcher) Results() <-chan model.ProcessingResult {
	return d.results
}

// Stop stops accepting work, drains queued and in-flight tasks, then closes
// the results channel. If ctx expires first the remaining work is cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.tasks)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		d.logger.Info("dispatcher drained")
	case <-ctx.Done():
		d.logger.Warn("dispatcher drain timed out, cancelling remaining work")
		d.taskCancel()
		<-done
		err = ctx.Err()
	}

	d.taskCancel()
	close(d.results)

	for _, w := range d.workers {
		if cerr := w.store.Close(); cerr != nil {
			d.logger.Warn("closing worker store", "worker", w.id, "error", cerr)
		}
	}

	return err
}

// runWorker feeds one worker until the task queue closes.
func (d *Dispatcher) runWorker(w *worker) {
	defer d.wg.Done()

	for frame := range d.tasks {
		d.results <- w.process(d.taskCtx, frame)
	}
}
