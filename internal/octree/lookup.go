package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// WorldToGrid converts a world position to root grid coordinates.
func (v *Volume) WorldToGrid(pos r3.Vector) (x, y, z int, ok bool) {
	rel := pos.Sub(v.start).Mul(1 / v.voxel[0])
	x = int(math.Round(rel.X))
	y = int(math.Round(rel.Y))
	z = int(math.Round(rel.Z))
	return x, y, z, v.InBounds(x, y, z)
}

// InBounds reports whether grid coordinates address a root cell.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && x < v.counts[0] &&
		y >= 0 && y < v.counts[1] &&
		z >= 0 && z < v.counts[2]
}

// GridToIndex returns the row-major outer index of a root cell.
func (v *Volume) GridToIndex(x, y, z int) uint32 {
	return uint32(x*v.counts[1]*v.counts[2] + y*v.counts[2] + z)
}

// IndexToGrid is the inverse of GridToIndex.
func (v *Volume) IndexToGrid(outer uint32) (x, y, z int) {
	i := int(outer)
	plane := v.counts[1] * v.counts[2]
	x = i / plane
	i -= x * plane
	y = i / v.counts[2]
	z = i - y*v.counts[2]
	return x, y, z
}

func (v *Volume) rootCenter(outer uint32) r3.Vector {
	x, y, z := v.IndexToGrid(outer)
	return v.start.Add(r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}.Mul(v.voxel[0]))
}

// WorldPosition returns the centre of the cell addressed by key without
// walking the tree.
func (v *Volume) WorldPosition(key Key) r3.Vector {
	pos := v.rootCenter(key.Outer())
	for d := 1; d <= key.Depth(); d++ {
		pos = pos.Add(childOffsetSign[key.Child(d)].Mul(v.voxel[d] / 2))
	}
	return pos
}

// root returns the root at outer, or nil once the forest has been released.
func (v *Volume) root(outer uint32) *Node {
	if int(outer) >= len(v.roots) {
		return nil
	}
	return &v.roots[outer]
}

// Node returns the node addressed by key, or nil when the path does not
// exist in the current tree.
func (v *Volume) Node(key Key) *Node {
	n := v.root(key.Outer())
	if n == nil {
		return nil
	}
	for d := 1; d <= key.Depth(); d++ {
		if n.IsLeaf() {
			return nil
		}
		n = n.Child(key.Child(d))
	}
	return n
}

// FindTree returns the deepest existing node along key's path, and its key.
func (v *Volume) FindTree(key Key) (Key, *Node) {
	n := v.root(key.Outer())
	if n == nil {
		return InvalidKey, nil
	}
	found := key.WithDepth(0)
	for d := 1; d <= key.Depth() && !n.IsLeaf(); d++ {
		c := key.Child(d)
		n = n.Child(c)
		found = found.WithChildAndDepth(d, c)
	}
	return found, n
}

// FindLeaf returns the leaf containing pos. With mustBeFree an occupied leaf
// counts as not found.
func (v *Volume) FindLeaf(pos r3.Vector, mustBeFree bool) (Key, *Node, bool) {
	x, y, z, ok := v.WorldToGrid(pos)
	if !ok {
		return InvalidKey, nil, false
	}
	outer := v.GridToIndex(x, y, z)
	key := NewKey(outer, 0)
	n := v.root(outer)
	if n == nil {
		return InvalidKey, nil, false
	}
	center := v.rootCenter(outer)

	for d := 1; !n.IsLeaf(); d++ {
		c := childIndexFor(pos.Sub(center))
		center = center.Add(childOffsetSign[c].Mul(v.voxel[d] / 2))
		key = key.WithChildAndDepth(d, c)
		n = n.Child(c)
	}
	if mustBeFree && !n.IsFree() {
		return InvalidKey, nil, false
	}
	return key, n, true
}

// SubtreeKeys appends the keys of every descendant of key to out.
func (v *Volume) SubtreeKeys(key Key, out []Key) []Key {
	n := v.Node(key)
	if n == nil {
		return out
	}
	return subtreeKeys(n, key, out)
}

func subtreeKeys(n *Node, key Key, out []Key) []Key {
	if n.IsLeaf() {
		return out
	}
	d := key.Depth() + 1
	for i := range 8 {
		ck := key.WithChildAndDepth(d, i)
		out = append(out, ck)
		out = subtreeKeys(n.Child(i), ck, out)
	}
	return out
}
