package geo

import (
	"github.com/golang/geo/r3"
)

// Mover is a dynamic solid that can be repositioned at runtime.
type Mover struct {
	id    uint64
	name  string
	scene *Scene
	body  body
}

// AddMoverBox adds a moving box to the scene.
func (s *Scene) AddMoverBox(name string, center, half r3.Vector) *Mover {
	return s.addMover(name, body{kind: bodyBox, box: NewAABB(center, half), channel: ChannelDynamic})
}

// AddMoverSphere adds a moving sphere to the scene.
func (s *Scene) AddMoverSphere(name string, center r3.Vector, radius float64) *Mover {
	return s.addMover(name, body{kind: bodySphere, center: center, radius: radius, channel: ChannelDynamic})
}

func (s *Scene) addMover(name string, b body) *Mover {
	m := &Mover{id: s.nextID.Add(1), name: name, scene: s, body: b}
	s.mu.Lock()
	s.movers[m.id] = m
	s.mu.Unlock()
	return m
}

// RemoveMover removes m from the scene.
func (s *Scene) RemoveMover(m *Mover) {
	s.mu.Lock()
	delete(s.movers, m.id)
	s.mu.Unlock()
}

func (m *Mover) ID() uint64   { return m.id }
func (m *Mover) Name() string { return m.name }

// Center returns the current centre of the mover.
func (m *Mover) Center() r3.Vector {
	m.scene.mu.RLock()
	defer m.scene.mu.RUnlock()
	return m.body.bounds().Center()
}

// MoveTo re-centres the mover.
func (m *Mover) MoveTo(center r3.Vector) {
	m.scene.mu.Lock()
	defer m.scene.mu.Unlock()
	if m.body.kind == bodySphere {
		m.body.center = center
		return
	}
	m.body.box = NewAABB(center, m.body.box.Extent())
}

// WorldBounds returns the mover's bounding box as origin and half extent.
func (m *Mover) WorldBounds() (origin, extent r3.Vector) {
	m.scene.mu.RLock()
	defer m.scene.mu.RUnlock()
	b := m.body.bounds()
	return b.Center(), b.Extent()
}
