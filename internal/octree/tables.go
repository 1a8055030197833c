package octree

import "github.com/golang/geo/r3"

// Direction is one of the six axis-aligned neighbour directions.
type Direction int

const (
	DirLeft   Direction = iota // -Y
	DirFront                   // -X
	DirRight                   // +Y
	DirBehind                  // +X
	DirBelow                   // -Z
	DirAbove                   // +Z

	numDirections = 6
)

// Directions lists every direction in table order.
var Directions = [numDirections]Direction{DirLeft, DirFront, DirRight, DirBehind, DirBelow, DirAbove}

// Opposite returns the direction facing d.
func (d Direction) Opposite() Direction {
	return oppositeSide[d]
}

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirFront:
		return "front"
	case DirRight:
		return "right"
	case DirBehind:
		return "behind"
	case DirBelow:
		return "below"
	case DirAbove:
		return "above"
	default:
		return "invalid"
	}
}

// childOffsetSign is the octant sign pattern of each child. Bit 2 selects +X,
// bit 1 +Z and bit 0 +Y.
var childOffsetSign = [8]r3.Vector{
	{X: -1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: 1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: 1, Z: 1},
}

// neighborGridOffset is the root-grid step for each direction.
var neighborGridOffset = [numDirections][3]int{
	{0, -1, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{1, 0, 0},
	{0, 0, -1},
	{0, 0, 1},
}

// neighborChildIndex maps (child, direction) to the neighbouring octant. A
// value v >= 0 is a sibling; v < 0 means child -v-1 of the parent's
// neighbour in the same direction.
var neighborChildIndex = [8][numDirections]int{
	{-2, -5, 1, 4, -3, 2},
	{0, -6, -1, 5, -4, 3},
	{-4, -7, 3, 6, 0, -1},
	{2, -8, -3, 7, 1, -2},
	{-6, 0, 5, -1, -7, 6},
	{4, 1, -5, -2, -8, 7},
	{-8, 2, 7, -3, 4, -5},
	{6, 3, -7, -4, 5, -6},
}

// childrenOnSide lists the four children touching each face.
var childrenOnSide = [numDirections][4]int{
	{0, 2, 4, 6},
	{0, 1, 2, 3},
	{1, 3, 5, 7},
	{4, 5, 6, 7},
	{0, 1, 4, 5},
	{2, 3, 6, 7},
}

var oppositeSide = [numDirections]Direction{DirRight, DirBehind, DirLeft, DirFront, DirAbove, DirBelow}

// childIndexFor returns the octant of rel, a position relative to the
// parent's centre.
func childIndexFor(rel r3.Vector) int {
	idx := 0
	if rel.X > 0 {
		idx |= 4
	}
	if rel.Z > 0 {
		idx |= 2
	}
	if rel.Y > 0 {
		idx |= 1
	}
	return idx
}
