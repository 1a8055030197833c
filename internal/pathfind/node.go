package pathfind

import (
	"github.com/golang/geo/r3"

	"github.com/udisondev/voxpath/internal/octree"
)

const noPrev int32 = -1

// AStarNode is one search vertex. Nodes are identified by Key alone.
type AStarNode struct {
	Key      octree.Key
	Fitness  float64
	Distance float64
	Position r3.Vector
	// Prev is the arena index of the node this one was reached from.
	Prev int32
	Data uint32
}

// openHeap is a min-heap by fitness.
type openHeap []AStarNode

func (h openHeap) Len() int           { return len(h) }
func (h openHeap) Less(i, j int) bool { return h[i].Fitness < h[j].Fitness }
func (h openHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any)        { *h = append(*h, x.(AStarNode)) }
func (h *openHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
