package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
)

// ShapeKind identifies the collision primitive used for a query.
type ShapeKind uint8

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCapsule
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	default:
		return fmt.Sprintf("ShapeKind(%d)", uint8(k))
	}
}

// ParseShapeKind converts a config string to ShapeKind.
func ParseShapeKind(s string) (ShapeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "box":
		return ShapeBox, nil
	case "sphere":
		return ShapeSphere, nil
	case "capsule", "":
		return ShapeCapsule, nil
	default:
		return 0, fmt.Errorf("unknown shape %q", s)
	}
}

// Shape is a query primitive centred on the query position.
// Capsules are Z-up; HalfHeight includes the hemispherical caps.
type Shape struct {
	Kind       ShapeKind
	HalfExtent r3.Vector
	Radius     float64
	HalfHeight float64
}

// Box returns an axis-aligned box shape.
func Box(half r3.Vector) Shape {
	return Shape{Kind: ShapeBox, HalfExtent: half}
}

// Cube returns a box with equal half extents.
func Cube(half float64) Shape {
	return Box(r3.Vector{X: half, Y: half, Z: half})
}

// Sphere returns a sphere shape.
func Sphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: radius}
}

// Capsule returns a vertical capsule shape.
func Capsule(radius, halfHeight float64) Shape {
	return Shape{Kind: ShapeCapsule, Radius: radius, HalfHeight: math.Max(halfHeight, radius)}
}

// Bounds returns the half extents of the shape's bounding box.
func (s Shape) Bounds() r3.Vector {
	switch s.Kind {
	case ShapeSphere:
		return r3.Vector{X: s.Radius, Y: s.Radius, Z: s.Radius}
	case ShapeCapsule:
		return r3.Vector{X: s.Radius, Y: s.Radius, Z: s.HalfHeight}
	default:
		return s.HalfExtent
	}
}

// BoundingRadius returns the radius of a sphere enclosing the shape.
func (s Shape) BoundingRadius() float64 {
	switch s.Kind {
	case ShapeSphere:
		return s.Radius
	case ShapeCapsule:
		return s.HalfHeight
	default:
		return s.HalfExtent.Norm()
	}
}

// segment returns the capsule's inner vertical segment.
func (s Shape) segment(center r3.Vector) (lo, hi r3.Vector) {
	h := s.HalfHeight - s.Radius
	lo = center.Sub(r3.Vector{Z: h})
	hi = center.Add(r3.Vector{Z: h})
	return lo, hi
}

// overlapsBox reports whether the shape placed at center intersects box b.
func (s Shape) overlapsBox(center r3.Vector, b AABB) bool {
	switch s.Kind {
	case ShapeSphere:
		return b.DistanceSq(center) < s.Radius*s.Radius
	case ShapeCapsule:
		lo, hi := s.segment(center)
		dx := intervalGap(center.X, center.X, b.Min.X, b.Max.X)
		dy := intervalGap(center.Y, center.Y, b.Min.Y, b.Max.Y)
		dz := intervalGap(lo.Z, hi.Z, b.Min.Z, b.Max.Z)
		return dx*dx+dy*dy+dz*dz < s.Radius*s.Radius
	default:
		return NewAABB(center, s.HalfExtent).Overlaps(b)
	}
}

// overlapsSphere reports whether the shape placed at center intersects a
// sphere body.
func (s Shape) overlapsSphere(center, sc r3.Vector, sr float64) bool {
	switch s.Kind {
	case ShapeSphere:
		r := s.Radius + sr
		return center.Sub(sc).Norm2() < r*r
	case ShapeCapsule:
		lo, hi := s.segment(center)
		r := s.Radius + sr
		return segmentPointDistSq(lo, hi, sc) < r*r
	default:
		return NewAABB(center, s.HalfExtent).DistanceSq(sc) < sr*sr
	}
}

// intervalGap returns the distance between [a0,a1] and [b0,b1], 0 when they
// overlap.
func intervalGap(a0, a1, b0, b1 float64) float64 {
	switch {
	case a1 < b0:
		return b0 - a1
	case b1 < a0:
		return a0 - b1
	default:
		return 0
	}
}

func segmentPointDistSq(a, b, p r3.Vector) float64 {
	ab := b.Sub(a)
	l2 := ab.Norm2()
	if l2 == 0 {
		return p.Sub(a).Norm2()
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Norm2()
}
