package octree

// Neighbor is an adjacent leaf ready for search expansion.
type Neighbor struct {
	Key  Key
	Data uint32
}

// FindNeighbor returns the node adjacent to key in direction dir. The result
// is at key's depth when such a node exists; otherwise it is the coarser leaf
// covering that side. ok is false at the volume boundary.
func (v *Volume) FindNeighbor(key Key, dir Direction) (Key, *Node, bool) {
	depth := key.Depth()
	if depth == 0 {
		x, y, z := v.IndexToGrid(key.Outer())
		off := neighborGridOffset[dir]
		x, y, z = x+off[0], y+off[1], z+off[2]
		if !v.InBounds(x, y, z) {
			return InvalidKey, nil, false
		}
		outer := v.GridToIndex(x, y, z)
		n := v.root(outer)
		return NewKey(outer, 0), n, n != nil
	}

	idx := neighborChildIndex[key.Child(depth)][dir]
	if idx >= 0 {
		nk := key.WithChild(depth, idx)
		n := v.Node(nk)
		return nk, n, n != nil
	}

	pk, pn, ok := v.FindNeighbor(key.Parent(), dir)
	if !ok {
		return InvalidKey, nil, false
	}
	if pn.IsLeaf() {
		return pk, pn, true
	}
	c := -idx - 1
	return pk.WithChildAndDepth(depth, c), pn.Child(c), true
}

// FindLeavesOnFace appends every leaf under n (addressed by key) whose
// octant touches the given side.
func (v *Volume) FindLeavesOnFace(n *Node, key Key, side Direction, mustBeFree bool, out []Neighbor) []Neighbor {
	d := key.Depth() + 1
	for _, c := range childrenOnSide[side] {
		child := n.Child(c)
		ck := key.WithChildAndDepth(d, c)
		if child.IsLeaf() {
			if !mustBeFree || child.IsFree() {
				out = append(out, Neighbor{Key: ck, Data: child.Data()})
			}
			continue
		}
		out = v.FindLeavesOnFace(child, ck, side, mustBeFree, out)
	}
	return out
}

// FindNeighborLeaves returns every leaf sharing a face with key.
func (v *Volume) FindNeighborLeaves(key Key) []Neighbor {
	return v.neighborLeaves(key, false, make([]Neighbor, 0, 12))
}

// FindFreeNeighborLeaves returns every free leaf sharing a face with key.
func (v *Volume) FindFreeNeighborLeaves(key Key) []Neighbor {
	return v.neighborLeaves(key, true, make([]Neighbor, 0, 12))
}

// AppendNeighborLeaves is FindNeighborLeaves reusing out's storage.
func (v *Volume) AppendNeighborLeaves(key Key, mustBeFree bool, out []Neighbor) []Neighbor {
	return v.neighborLeaves(key, mustBeFree, out)
}

func (v *Volume) neighborLeaves(key Key, mustBeFree bool, out []Neighbor) []Neighbor {
	for _, dir := range Directions {
		nk, n, ok := v.FindNeighbor(key, dir)
		if !ok {
			continue
		}
		if n.IsLeaf() {
			if !mustBeFree || n.IsFree() {
				out = append(out, Neighbor{Key: nk, Data: n.Data()})
			}
			continue
		}
		out = v.FindLeavesOnFace(n, nk, dir.Opposite(), mustBeFree, out)
	}
	return out
}
