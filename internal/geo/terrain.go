package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Terrain is a heightfield: a regular XY grid of column heights. Space below
// a column's height is solid.
type Terrain struct {
	origin   r3.Vector
	cellSize float64
	width    int
	depth    int
	heights  []float64
}

// NewTerrain creates a flat heightfield at origin.Z covering width*depth
// cells starting at origin.
func NewTerrain(origin r3.Vector, cellSize float64, width, depth int) (*Terrain, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("terrain cell size must be positive, got %v", cellSize)
	}
	if width <= 0 || depth <= 0 {
		return nil, fmt.Errorf("terrain size must be positive, got %dx%d", width, depth)
	}
	t := &Terrain{
		origin:   origin,
		cellSize: cellSize,
		width:    width,
		depth:    depth,
		heights:  make([]float64, width*depth),
	}
	for i := range t.heights {
		t.heights[i] = origin.Z
	}
	return t, nil
}

// SetHeight sets the absolute top of column (x, y).
func (t *Terrain) SetHeight(x, y int, h float64) {
	if x < 0 || y < 0 || x >= t.width || y >= t.depth {
		return
	}
	t.heights[x*t.depth+y] = h
}

// Height returns the absolute top of column (x, y).
func (t *Terrain) Height(x, y int) (float64, bool) {
	if x < 0 || y < 0 || x >= t.width || y >= t.depth {
		return 0, false
	}
	return t.heights[x*t.depth+y], true
}

func (t *Terrain) cellCoord(v, origin float64) int32 {
	return int32(math.Floor((v - origin) / t.cellSize))
}

// overlapsBox reports whether any column under b rises above b.Min.Z.
func (t *Terrain) overlapsBox(b AABB) bool {
	x0 := max(int(t.cellCoord(b.Min.X, t.origin.X)), 0)
	y0 := max(int(t.cellCoord(b.Min.Y, t.origin.Y)), 0)
	x1 := min(int(t.cellCoord(b.Max.X, t.origin.X)), t.width-1)
	y1 := min(int(t.cellCoord(b.Max.Y, t.origin.Y)), t.depth-1)

	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			if t.heights[x*t.depth+y] > b.Min.Z {
				return true
			}
		}
	}
	return false
}

// sweep samples the shape's bounding box at every grid cell the segment
// crosses.
func (t *Terrain) sweep(half r3.Vector, from, to r3.Vector) bool {
	line := NewGridLine(
		t.cellCoord(from.X, t.origin.X), t.cellCoord(from.Y, t.origin.Y), t.cellCoord(from.Z, t.origin.Z),
		t.cellCoord(to.X, t.origin.X), t.cellCoord(to.Y, t.origin.Y), t.cellCoord(to.Z, t.origin.Z),
	)
	dir := to.Sub(from)
	for line.Next() {
		p := from.Add(dir.Mul(line.Progress()))
		if t.overlapsBox(NewAABB(p, half)) {
			return true
		}
	}
	return t.overlapsBox(NewAABB(from, half))
}
