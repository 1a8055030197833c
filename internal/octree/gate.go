package octree

import (
	"context"
	"sync"
)

// GateState is a consistent snapshot of a Gate.
type GateState struct {
	GeneratorsWaiting int
	GeneratorsActive  int
	Pathfinders       int
	Generated         bool
	Closed            bool
}

// GeneratorsRunning counts generators that have announced themselves,
// whether or not they are active yet.
func (s GateState) GeneratorsRunning() int {
	return s.GeneratorsWaiting + s.GeneratorsActive
}

// Gate separates generation (writers, shared among themselves) from path
// searches (readers). Waiting generators block new searches so a steady
// search load cannot starve regeneration. Searches are also held back until
// the initial generation completes.
type Gate struct {
	mu      sync.Mutex
	changed chan struct{}
	state   GateState
}

// NewGate returns an open gate with nothing generated yet.
func NewGate() *Gate {
	return &Gate{changed: make(chan struct{})}
}

// broadcast wakes every waiter. Must hold mu.
func (g *Gate) broadcast() {
	close(g.changed)
	g.changed = make(chan struct{})
}

// wait blocks until ready returns true. Must hold mu; mu is held again on
// return.
func (g *Gate) wait(ctx context.Context, ready func() bool) error {
	for !ready() {
		ch := g.changed
		g.mu.Unlock()
		select {
		case <-ctx.Done():
			g.mu.Lock()
			return ctx.Err()
		case <-ch:
		}
		g.mu.Lock()
	}
	return nil
}

// BeginGeneration waits for searches to drain and enters as a generator.
// Every successful call must be paired with EndGeneration.
func (g *Gate) BeginGeneration(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Closed {
		return ErrVolumeClosed
	}

	g.state.GeneratorsWaiting++
	err := g.wait(ctx, func() bool { return g.state.Closed || g.state.Pathfinders == 0 })
	g.state.GeneratorsWaiting--
	switch {
	case err != nil:
	case g.state.Closed:
		err = ErrVolumeClosed
	default:
		g.state.GeneratorsActive++
	}
	g.broadcast()
	return err
}

// EndGeneration leaves the generator phase.
func (g *Gate) EndGeneration() {
	g.mu.Lock()
	g.state.GeneratorsActive--
	if g.state.GeneratorsActive < 0 {
		g.mu.Unlock()
		panic("octree: EndGeneration without BeginGeneration")
	}
	g.broadcast()
	g.mu.Unlock()
}

// BeginSearch waits until the volume is generated and no generator is
// active or waiting, then enters as a searcher. Every successful call must
// be paired with EndSearch.
func (g *Gate) BeginSearch(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.wait(ctx, func() bool {
		s := g.state
		return s.Closed || (s.Generated && s.GeneratorsRunning() == 0)
	})
	if err != nil {
		return err
	}
	if g.state.Closed {
		return ErrVolumeClosed
	}
	g.state.Pathfinders++
	return nil
}

// EndSearch leaves the search phase.
func (g *Gate) EndSearch() {
	g.mu.Lock()
	g.state.Pathfinders--
	if g.state.Pathfinders < 0 {
		g.mu.Unlock()
		panic("octree: EndSearch without BeginSearch")
	}
	if g.state.Pathfinders == 0 {
		g.broadcast()
	}
	g.mu.Unlock()
}

// MarkGenerated records that the initial generation completed.
func (g *Gate) MarkGenerated() {
	g.mu.Lock()
	g.state.Generated = true
	g.broadcast()
	g.mu.Unlock()
}

// WaitGenerated blocks until MarkGenerated is called or the gate closes.
func (g *Gate) WaitGenerated(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := g.wait(ctx, func() bool { return g.state.Generated || g.state.Closed })
	if err != nil {
		return err
	}
	if !g.state.Generated {
		return ErrVolumeClosed
	}
	return nil
}

// Close rejects all future entries and releases current waiters.
func (g *Gate) Close() {
	g.mu.Lock()
	g.state.Closed = true
	g.broadcast()
	g.mu.Unlock()
}

// WaitIdle blocks until no generator or searcher is inside.
func (g *Gate) WaitIdle(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wait(ctx, func() bool {
		return g.state.GeneratorsRunning() == 0 && g.state.Pathfinders == 0
	})
}

// State returns a snapshot of the gate counters.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
