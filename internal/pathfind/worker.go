package pathfind

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

type task struct {
	req Request
	cb  Callback
}

// worker runs requests from its private queue on one goroutine. It sleeps
// on wake while the queue is empty.
type worker struct {
	id     int
	pool   *Pool
	engine *Engine

	mu    sync.Mutex
	queue []task
	wake  chan struct{}

	tasks atomic.Int32
	dead  atomic.Bool
	done  chan struct{}
}

func newWorker(id int, p *Pool) *worker {
	return &worker{
		id:     id,
		pool:   p,
		engine: NewEngine(p.opts.Clock),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// pending counts requests assigned and not yet finished.
func (w *worker) pending() int { return int(w.tasks.Load()) }

func (w *worker) assign(t task) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	w.tasks.Add(1)
	w.signal()
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) next() (task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return task{}, false
	}
	t := w.queue[0]
	w.queue[0] = task{}
	w.queue = w.queue[1:]
	return t, true
}

// drain removes and returns every queued request.
func (w *worker) drain() []task {
	w.mu.Lock()
	defer w.mu.Unlock()
	q := w.queue
	w.queue = nil
	return q
}

func (w *worker) run() {
	defer close(w.done)

	for !w.dead.Load() {
		t, ok := w.next()
		if !ok {
			select {
			case <-w.pool.ctx.Done():
				return
			case <-w.wake:
			}
			continue
		}
		if w.pool.ctx.Err() != nil {
			return
		}
		w.process(t)
	}
}

// process runs one request. A panic fails the request with FailUnknown and
// hands the rest of the queue to a replacement worker.
func (w *worker) process(t task) {
	var res *Result
	defer func() {
		crashed := false
		if r := recover(); r != nil {
			slog.Error("path worker crashed", "worker", w.id, "request", t.req.ID, "panic", r)
			w.dead.Store(true)
			crashed = true
			res = &Result{RequestID: t.req.ID, FailReason: FailUnknown}
		}
		w.tasks.Add(-1)
		w.pool.metrics.addPending(-1)
		w.pool.complete(res, t.cb)
		if crashed {
			w.pool.retire(w)
		}
	}()

	res = runRequest(w.pool.ctx, w.engine, t.req, w.pool.opts.ReadyTimeout)
}
