package pathfind

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// ErrPoolClosed is returned for requests submitted after Close.
var ErrPoolClosed = errors.New("pathfind: pool closed")

// Options configures a Pool.
type Options struct {
	// Workers is the number of search goroutines; <= 0 selects
	// DefaultWorkers.
	Workers int
	// ReadyTimeout bounds how long a request waits for its volume.
	ReadyTimeout time.Duration
	Clock        clock.Clock
	Metrics      *Metrics
}

// DefaultWorkers leaves one CPU for the caller's tick goroutine.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

type completion struct {
	res *Result
	cb  Callback
}

// Pool schedules path requests on a fixed set of workers and hands results
// back on the goroutine calling Tick.
type Pool struct {
	opts    Options
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex // guards workers
	workers []*worker
	exited  []*worker
	closing atomic.Bool

	doneMu sync.Mutex
	done   []completion

	closeOnce sync.Once
}

// NewPool starts the workers.
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	p := &Pool{opts: opts, metrics: opts.Metrics}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.workers = make([]*worker, opts.Workers)
	for i := range p.workers {
		p.workers[i] = p.spawn(i)
	}

	slog.Info("path pool started", "workers", opts.Workers, "ready_timeout", opts.ReadyTimeout)
	return p
}

func (p *Pool) spawn(id int) *worker {
	w := newWorker(id, p)
	go w.run()
	return w
}

// FindPathAsync queues req on the least loaded worker. cb runs on the
// goroutine calling Tick once the search finishes. A zero req.ID is
// replaced with a fresh one.
func (p *Pool) FindPathAsync(req Request, cb Callback) (uuid.UUID, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing.Load() {
		return uuid.Nil, ErrPoolClosed
	}
	p.pick().assign(task{req: req, cb: cb})
	p.metrics.addPending(1)
	return req.ID, nil
}

// pick returns the worker with the fewest pending requests, stopping at the
// first idle one. Dead workers are replaced first. Must hold mu.
func (p *Pool) pick() *worker {
	var best *worker
	for i, w := range p.workers {
		if w.dead.Load() {
			w = p.replace(i)
		}
		n := w.pending()
		if n == 0 {
			return w
		}
		if best == nil || n < best.pending() {
			best = w
		}
	}
	return best
}

// retire replaces w if it is still installed. Called by a crashed worker
// so its queue moves on without waiting for the next dispatch.
func (p *Pool) retire(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing.Load() || p.workers[w.id] != w {
		return
	}
	p.replace(w.id)
}

// replace swaps the dead worker at i for a fresh one that inherits its
// queue. Must hold mu.
func (p *Pool) replace(i int) *worker {
	old := p.workers[i]
	w := newWorker(i, p)
	for _, t := range old.drain() {
		old.tasks.Add(-1)
		w.queue = append(w.queue, t)
		w.tasks.Add(1)
	}
	p.workers[i] = w
	p.exited = append(p.exited, old)
	go w.run()
	w.signal()

	p.metrics.restarted()
	slog.Warn("path worker recreated", "worker", i, "queued", w.pending())
	return w
}

// Pending returns the number of requests not yet finished by a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.workers {
		n += w.pending()
	}
	return n
}

func (p *Pool) complete(res *Result, cb Callback) {
	if p.closing.Load() {
		return
	}
	p.metrics.observe(res.FailReason, res.SearchDuration)
	p.doneMu.Lock()
	p.done = append(p.done, completion{res: res, cb: cb})
	p.doneMu.Unlock()
}

// Tick delivers every finished result to its callback, in completion
// order, and returns how many were delivered.
func (p *Pool) Tick() int {
	p.doneMu.Lock()
	batch := p.done
	p.done = nil
	p.doneMu.Unlock()

	for _, c := range batch {
		if c.cb != nil {
			c.cb(c.res)
		}
	}
	return len(batch)
}

// Run calls Tick every interval until ctx is cancelled or the pool closes.
func (p *Pool) Run(ctx context.Context, interval time.Duration) error {
	ticker := p.opts.Clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Close stops every worker, abandoning queued and running requests, and
// waits for the worker goroutines to exit. Undelivered results are dropped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closing.Store(true)
		workers := append(append([]*worker(nil), p.workers...), p.exited...)
		p.mu.Unlock()

		p.cancel()
		for _, w := range workers {
			w.engine.Stop()
			w.signal()
		}
		for _, w := range workers {
			<-w.done
		}

		p.doneMu.Lock()
		p.done = nil
		p.doneMu.Unlock()
		slog.Info("path pool stopped")
	})
}
