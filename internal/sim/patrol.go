package sim

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/udisondev/voxpath/internal/pathfind"
)

// PathRequester queues asynchronous path searches. *pathfind.Pool
// implements it.
type PathRequester interface {
	FindPathAsync(req pathfind.Request, cb pathfind.Callback) (uuid.UUID, error)
}

// ResultHook observes every result a patrol receives.
type ResultHook func(agent string, res *pathfind.Result)

// PatrolStats summarises a patrol's requests so far.
type PatrolStats struct {
	Position r3.Vector
	Target   int
	Found    int
	Failed   int
	Last     pathfind.FailReason
}

// PatrolController walks an agent around its waypoints. On each tick an idle
// agent whose cooldown has passed requests a path to its next waypoint; a
// found path moves the agent there.
type PatrolController struct {
	name      string
	waypoints []r3.Vector
	requester PathRequester
	template  pathfind.Request
	interval  time.Duration
	hook      ResultHook

	mu       sync.Mutex
	pos      r3.Vector
	target   int
	inFlight bool
	stopped  bool
	now      time.Time
	nextAt   time.Time
	stats    PatrolStats
}

// NewPatrol creates an agent at the first waypoint. Every request copies
// template and overrides its ID, Start and End. hook may be nil.
func NewPatrol(name string, waypoints []r3.Vector, requester PathRequester, template pathfind.Request, interval time.Duration, hook ResultHook) *PatrolController {
	return &PatrolController{
		name:      name,
		waypoints: waypoints,
		requester: requester,
		template:  template,
		interval:  interval,
		hook:      hook,
		pos:       waypoints[0],
		target:    1 % len(waypoints),
	}
}

func (p *PatrolController) Name() string { return p.name }

func (p *PatrolController) Tick(now time.Time) {
	p.mu.Lock()
	p.now = now
	if p.stopped || p.inFlight || now.Before(p.nextAt) {
		p.mu.Unlock()
		return
	}
	req := p.template
	req.ID = uuid.New()
	req.Start = p.pos
	req.End = p.waypoints[p.target]
	p.inFlight = true
	p.mu.Unlock()

	if _, err := p.requester.FindPathAsync(req, p.onResult); err != nil {
		slog.Warn("patrol path request rejected", "agent", p.name, "err", err)
		p.mu.Lock()
		p.inFlight = false
		p.nextAt = now.Add(p.interval)
		p.mu.Unlock()
	}
}

func (p *PatrolController) onResult(res *pathfind.Result) {
	p.mu.Lock()
	p.inFlight = false
	p.nextAt = p.now.Add(p.interval)
	p.stats.Last = res.FailReason
	if res.Found() {
		p.pos = p.waypoints[p.target]
		p.target = (p.target + 1) % len(p.waypoints)
		p.stats.Found++
	} else {
		p.stats.Failed++
	}
	stopped := p.stopped
	p.mu.Unlock()

	if pathfind.IsDebugEnabled() {
		slog.Debug("patrol result", "agent", p.name, "reason", res.FailReason, "points", len(res.UserPath))
	}
	if p.hook != nil && !stopped {
		p.hook(p.name, res)
	}
}

// Stats returns a snapshot of the patrol's progress.
func (p *PatrolController) Stats() PatrolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Position = p.pos
	s.Target = p.target
	return s
}

// Stop prevents further requests. A result already queued is still applied.
func (p *PatrolController) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
