package geo

import (
	"math"

	"github.com/golang/geo/r3"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min r3.Vector
	Max r3.Vector
}

// NewAABB builds a box from its centre and half extents.
func NewAABB(center, half r3.Vector) AABB {
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

func (b AABB) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the half extents.
func (b AABB) Extent() r3.Vector {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Expand grows the box by half on every side.
func (b AABB) Expand(half r3.Vector) AABB {
	return AABB{Min: b.Min.Sub(half), Max: b.Max.Add(half)}
}

// Overlaps reports strict intersection; touching faces do not overlap.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X < o.Max.X && b.Max.X > o.Min.X &&
		b.Min.Y < o.Max.Y && b.Max.Y > o.Min.Y &&
		b.Min.Z < o.Max.Z && b.Max.Z > o.Min.Z
}

func (b AABB) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ClosestPoint clamps p into the box.
func (b AABB) ClosestPoint(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: math.Max(b.Min.X, math.Min(p.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(p.Y, b.Max.Y)),
		Z: math.Max(b.Min.Z, math.Min(p.Z, b.Max.Z)),
	}
}

// DistanceSq returns the squared distance from p to the box, 0 inside.
func (b AABB) DistanceSq(p r3.Vector) float64 {
	return b.ClosestPoint(p).Sub(p).Norm2()
}

// SegmentHit tests the segment from..to against the box with the slab method.
func (b AABB) SegmentHit(from, to r3.Vector) bool {
	const eps = 1e-9
	dir := to.Sub(from)
	tmin, tmax := 0.0, 1.0

	o := [3]float64{from.X, from.Y, from.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	for i := range 3 {
		if math.Abs(d[i]) < eps {
			if o[i] <= lo[i] || o[i] >= hi[i] {
				return false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin >= tmax {
			return false
		}
	}
	return true
}
