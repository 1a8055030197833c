package geo

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r3"
)

// Channel is a trace-channel bitmask. A query only sees bodies whose channel
// shares a bit with the query's channel.
type Channel uint32

const (
	ChannelStatic  Channel = 1 << 0
	ChannelDynamic Channel = 1 << 1
	ChannelAll     Channel = ^Channel(0)
)

// ParseChannel converts a config string to Channel. Empty means all.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return ChannelAll, nil
	case "static":
		return ChannelStatic, nil
	case "dynamic":
		return ChannelDynamic, nil
	default:
		return 0, fmt.Errorf("unknown trace channel %q", s)
	}
}

type bodyKind uint8

const (
	bodyBox bodyKind = iota
	bodySphere
)

// body is a solid primitive in the scene.
type body struct {
	kind    bodyKind
	box     AABB
	center  r3.Vector
	radius  float64
	channel Channel
}

func (b *body) bounds() AABB {
	if b.kind == bodySphere {
		return NewAABB(b.center, r3.Vector{X: b.radius, Y: b.radius, Z: b.radius})
	}
	return b.box
}

func (b *body) overlaps(s Shape, center r3.Vector) bool {
	if b.kind == bodySphere {
		return s.overlapsSphere(center, b.center, b.radius)
	}
	return s.overlapsBox(center, b.box)
}

// sweep is conservative: shapes are inflated to their bounding volume.
func (b *body) sweep(s Shape, from, to r3.Vector) bool {
	if b.kind == bodySphere {
		r := b.radius + s.BoundingRadius()
		return segmentPointDistSq(from, to, b.center) < r*r
	}
	return b.box.Expand(s.Bounds()).SegmentHit(from, to)
}

func (b *body) lineTrace(from, to r3.Vector) bool {
	if b.kind == bodySphere {
		return segmentPointDistSq(from, to, b.center) < b.radius*b.radius
	}
	return b.box.SegmentHit(from, to)
}

// Scene is a thread-safe collection of static and moving solids. It answers
// the overlap, sweep and line queries the octree volume needs.
type Scene struct {
	mu      sync.RWMutex
	static  []*body
	movers  map[uint64]*Mover
	terrain *Terrain
	nextID  atomic.Uint64
	queries atomic.Uint64
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{movers: make(map[uint64]*Mover)}
}

// AddBox adds a static axis-aligned box.
func (s *Scene) AddBox(center, half r3.Vector) {
	s.mu.Lock()
	s.static = append(s.static, &body{kind: bodyBox, box: NewAABB(center, half), channel: ChannelStatic})
	s.mu.Unlock()
}

// AddSphere adds a static sphere.
func (s *Scene) AddSphere(center r3.Vector, radius float64) {
	s.mu.Lock()
	s.static = append(s.static, &body{kind: bodySphere, center: center, radius: radius, channel: ChannelStatic})
	s.mu.Unlock()
}

// SetTerrain replaces the scene heightfield; nil removes it.
func (s *Scene) SetTerrain(t *Terrain) {
	s.mu.Lock()
	s.terrain = t
	s.mu.Unlock()
}

// Overlaps reports whether shape placed at center intersects any body on ch.
func (s *Scene) Overlaps(shape Shape, center r3.Vector, ch Channel) bool {
	s.queries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.static {
		if b.channel&ch != 0 && b.overlaps(shape, center) {
			return true
		}
	}
	for _, m := range s.movers {
		if m.body.channel&ch != 0 && m.body.overlaps(shape, center) {
			return true
		}
	}
	if s.terrain != nil && ch&ChannelStatic != 0 {
		return s.terrain.overlapsBox(NewAABB(center, shape.Bounds()))
	}
	return false
}

// Sweep reports whether moving shape from..to is blocked on ch.
func (s *Scene) Sweep(shape Shape, from, to r3.Vector, ch Channel) bool {
	s.queries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.static {
		if b.channel&ch != 0 && b.sweep(shape, from, to) {
			return true
		}
	}
	for _, m := range s.movers {
		if m.body.channel&ch != 0 && m.body.sweep(shape, from, to) {
			return true
		}
	}
	if s.terrain != nil && ch&ChannelStatic != 0 {
		return s.terrain.sweep(shape.Bounds(), from, to)
	}
	return false
}

// LineTrace reports whether the segment from..to hits anything on ch.
func (s *Scene) LineTrace(from, to r3.Vector, ch Channel) bool {
	s.queries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.static {
		if b.channel&ch != 0 && b.lineTrace(from, to) {
			return true
		}
	}
	for _, m := range s.movers {
		if m.body.channel&ch != 0 && m.body.lineTrace(from, to) {
			return true
		}
	}
	if s.terrain != nil && ch&ChannelStatic != 0 {
		return s.terrain.sweep(r3.Vector{}, from, to)
	}
	return false
}

// QueryCount returns how many queries the scene has answered.
func (s *Scene) QueryCount() uint64 {
	return s.queries.Load()
}
