package octree

import "github.com/golang/geo/r3"

// regenerate recomputes the tree rooted at outer. Callers must hold the gate
// as a generator and own outer exclusively.
func (v *Volume) regenerate(outer uint32) {
	v.refresh(&v.roots[outer], v.rootCenter(outer), 0)
}

// refresh rebuilds n bottom-up and reports whether any free leaf remains
// under it. Free cells collapse to a leaf; occupied cells split while depth
// allows and collapse back when none of their children is free.
func (v *Volume) refresh(n *Node, center r3.Vector, depth int) bool {
	free := v.policy.RecheckOccupancy(v, n, center, depth)
	n.SetFree(free)
	if free {
		n.collapse()
		return true
	}
	if depth >= v.cfg.Depth {
		n.collapse()
		return false
	}

	n.split()
	half := v.voxel[depth+1] / 2
	anyFree := false
	for i := range 8 {
		c := center.Add(childOffsetSign[i].Mul(half))
		if v.refresh(n.Child(i), c, depth+1) {
			anyFree = true
		}
	}
	if !anyFree {
		n.collapse()
	}
	return anyFree
}
