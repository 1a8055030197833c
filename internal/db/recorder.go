package db

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// maxBuffered caps the stats held between flushes; extra stats are dropped.
const maxBuffered = 10_000

// StatStore is the subset of PathStatRepository the Recorder writes to.
type StatStore interface {
	RecordBatch(ctx context.Context, stats []PathStat) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Recorder buffers path stats and writes them in batches.
type Recorder struct {
	store     StatStore
	clock     clock.Clock
	interval  time.Duration
	retention time.Duration

	mu      sync.Mutex
	buf     []PathStat
	dropped int
}

// NewRecorder creates a recorder flushing every interval. Stats older than
// retention are pruned once per flush; retention <= 0 keeps everything.
func NewRecorder(store StatStore, c clock.Clock, interval, retention time.Duration) *Recorder {
	if c == nil {
		c = clock.New()
	}
	return &Recorder{store: store, clock: c, interval: interval, retention: retention}
}

// Add queues s for the next flush. A zero CreatedAt is set to now.
func (r *Recorder) Add(s PathStat) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.clock.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) >= maxBuffered {
		r.dropped++
		return
	}
	r.buf = append(r.buf, s)
}

// Buffered returns the number of stats waiting for a flush.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Flush writes every buffered stat. On failure the batch is dropped.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.buf
	dropped := r.dropped
	r.buf = nil
	r.dropped = 0
	r.mu.Unlock()

	if dropped > 0 {
		slog.Warn("path stats dropped, buffer full", "dropped", dropped)
	}
	if len(batch) == 0 {
		return nil
	}
	return r.store.RecordBatch(ctx, batch)
}

func (r *Recorder) prune(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	n, err := r.store.Prune(ctx, r.clock.Now().Add(-r.retention))
	if err != nil {
		slog.Error("pruning path stats", "error", err)
		return
	}
	if n > 0 {
		slog.Info("path stats pruned", "rows", n)
	}
}

// Run flushes on every interval until ctx is cancelled, then flushes once
// more.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	slog.Info("path stats recorder started", "interval", r.interval, "retention", r.retention)

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := r.Flush(final); err != nil {
				slog.Error("final path stats flush", "error", err)
			}
			cancel()
			slog.Info("path stats recorder stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				slog.Error("flushing path stats", "error", err)
			}
			r.prune(ctx)
		}
	}
}
