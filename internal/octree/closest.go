package octree

import (
	"container/heap"

	"github.com/golang/geo/r3"
)

type candidate struct {
	key      Key
	priority float64
}

// candidateHeap is a min-heap by priority.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// faceDistance is the distance from pos to the near face of the cell, used
// so larger voxels are not penalised for their far-away centres.
func (v *Volume) faceDistance(pos r3.Vector, key Key) float64 {
	return v.WorldPosition(key).Distance(pos) - v.voxel[key.Depth()]/2
}

// FindClosestFreeLeaf returns the free leaf nearest to pos. The direct
// neighbours of the containing leaf are tried first regardless of distance;
// after that the search widens through adjacent leaves up to searchRange.
// searchRange <= 0 selects the voxel size one level above the containing
// leaf.
func (v *Volume) FindClosestFreeLeaf(pos r3.Vector, searchRange float64) (Key, *Node, bool) {
	origin, n, ok := v.FindLeaf(pos, false)
	if !ok {
		return InvalidKey, nil, false
	}
	if n.IsFree() {
		return origin, n, true
	}

	if searchRange <= 0 {
		d := min(max(1, origin.Depth()-1), v.cfg.Depth)
		searchRange = v.voxel[d]
	}

	visited := map[Key]struct{}{origin: {}}
	var near, far candidateHeap
	for _, nb := range v.FindNeighborLeaves(origin) {
		visited[nb.Key] = struct{}{}
		heap.Push(&near, candidate{key: nb.Key, priority: v.faceDistance(pos, nb.Key)})
	}

	var buf []Neighbor
	expand := func(from Key) {
		buf = v.AppendNeighborLeaves(from, false, buf[:0])
		for _, nb := range buf {
			if _, seen := visited[nb.Key]; seen {
				continue
			}
			p := v.faceDistance(pos, nb.Key)
			if p > searchRange {
				continue
			}
			visited[nb.Key] = struct{}{}
			heap.Push(&far, candidate{key: nb.Key, priority: p})
		}
	}

	for _, q := range []*candidateHeap{&near, &far} {
		for q.Len() > 0 {
			c := heap.Pop(q).(candidate)
			leaf := v.Node(c.key)
			if leaf.IsFree() && v.visibleFrom(pos, c.key) {
				return c.key, leaf, true
			}
			expand(c.key)
		}
	}
	return InvalidKey, nil, false
}

func (v *Volume) visibleFrom(pos r3.Vector, key Key) bool {
	if !v.cfg.ClosestLeafLineOfSight {
		return true
	}
	return !v.oracle.LineTrace(pos, v.WorldPosition(key), v.cfg.Channel)
}
