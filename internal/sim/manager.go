package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Controller is an actor advanced by the Manager on every tick.
type Controller interface {
	Name() string
	Tick(now time.Time)
	Stop()
}

// Manager ticks every registered controller at a fixed interval.
type Manager struct {
	clock    clock.Clock
	interval time.Duration

	controllers     sync.Map // name -> Controller
	controllerCount atomic.Int32

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager ticking on c, or the wall clock when c is nil.
func NewManager(c clock.Clock, interval time.Duration) *Manager {
	if c == nil {
		c = clock.New()
	}
	return &Manager{
		clock:    c,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Register adds c, replacing and stopping any controller with the same name.
func (m *Manager) Register(c Controller) {
	prev, loaded := m.controllers.Swap(c.Name(), c)
	if loaded {
		prev.(Controller).Stop()
	} else {
		m.controllerCount.Add(1)
	}
	slog.Debug("sim controller registered", "name", c.Name())
}

// Unregister stops and removes the named controller.
func (m *Manager) Unregister(name string) {
	value, ok := m.controllers.LoadAndDelete(name)
	if !ok {
		return
	}
	m.controllerCount.Add(-1)
	value.(Controller).Stop()

	slog.Debug("sim controller unregistered", "name", name)
}

// Count returns the number of registered controllers.
func (m *Manager) Count() int {
	return int(m.controllerCount.Load())
}

// Controller returns the named controller.
func (m *Manager) Controller(name string) (Controller, error) {
	value, ok := m.controllers.Load(name)
	if !ok {
		return nil, fmt.Errorf("controller %q not found", name)
	}
	return value.(Controller), nil
}

// Start runs the tick loop until ctx is cancelled or Stop is called. Every
// controller is stopped on the way out.
func (m *Manager) Start(ctx context.Context) error {
	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()
	defer m.stopAll()

	slog.Info("sim manager started", "interval", m.interval, "controllers", m.Count())

	for {
		select {
		case <-ctx.Done():
			slog.Info("sim manager stopping")
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("sim manager stopped")
			return nil

		case <-ticker.C:
			m.tickAll(m.clock.Now())
		}
	}
}

// Stop ends the tick loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Manager) tickAll(now time.Time) {
	m.controllers.Range(func(_, value any) bool {
		value.(Controller).Tick(now)
		return true
	})
}

func (m *Manager) stopAll() {
	m.controllers.Range(func(key, value any) bool {
		m.controllers.Delete(key)
		m.controllerCount.Add(-1)
		value.(Controller).Stop()
		return true
	})
}
