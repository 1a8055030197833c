package octree

import "fmt"

// Key packs the address of an octree node: the root's outer grid index, the
// node depth and one 3-bit child selector per level below the root.
//
//	bits  0-20  outer index
//	bits 21-22  depth
//	bits 23-31  child selectors, level 1 at bit 23
type Key uint32

const (
	// MaxDepth is the deepest subdivision a key can address.
	MaxDepth = 3

	// MaxOuterIndex bounds the number of root cells in a volume.
	MaxOuterIndex = 1 << outerBits

	outerBits  = 21
	outerMask  = Key(1<<outerBits - 1)
	depthShift = outerBits
	depthMask  = Key(0x3) << depthShift
	childShift = depthShift + 2
	childBits  = 3
	childMask  = Key(0x7)
)

// InvalidKey never addresses a node.
const InvalidKey Key = 0xFFFFFFFF

// NewKey returns the key of the root node at outer.
func NewKey(outer uint32, depth int) Key {
	if Key(outer) > outerMask {
		panic(fmt.Sprintf("octree: outer index %d out of range", outer))
	}
	return Key(outer).WithDepth(depth)
}

// Outer returns the root grid index.
func (k Key) Outer() uint32 {
	return uint32(k & outerMask)
}

// Depth returns the node depth, 0 for a root.
func (k Key) Depth() int {
	return int((k & depthMask) >> depthShift)
}

// WithDepth returns k with its depth replaced.
func (k Key) WithDepth(depth int) Key {
	checkDepth(depth)
	return k&^depthMask | Key(depth)<<depthShift
}

// Child returns the child selector of the node at depth (1..MaxDepth) along
// k's path.
func (k Key) Child(depth int) int {
	checkChildDepth(depth)
	return int(k >> childOffset(depth) & childMask)
}

// WithChild returns k with the selector at depth replaced by idx.
func (k Key) WithChild(depth, idx int) Key {
	checkChildDepth(depth)
	if idx < 0 || idx > 7 {
		panic(fmt.Sprintf("octree: child index %d out of range", idx))
	}
	off := childOffset(depth)
	return k&^(childMask<<off) | Key(idx)<<off
}

// WithChildAndDepth descends k to depth through child idx.
func (k Key) WithChildAndDepth(depth, idx int) Key {
	return k.WithChild(depth, idx).WithDepth(depth)
}

// Parent returns the key one level up. The stale selector is left in place;
// it is ignored at the shallower depth.
func (k Key) Parent() Key {
	return k.WithDepth(k.Depth() - 1)
}

func (k Key) String() string {
	if k == InvalidKey {
		return "Key(invalid)"
	}
	s := fmt.Sprintf("Key(%d", k.Outer())
	for d := 1; d <= k.Depth(); d++ {
		s += fmt.Sprintf("/%d", k.Child(d))
	}
	return s + ")"
}

func childOffset(depth int) Key {
	return Key((depth-1)*childBits + childShift)
}

func checkDepth(depth int) {
	if depth < 0 || depth > MaxDepth {
		panic(fmt.Sprintf("octree: depth %d out of range", depth))
	}
}

func checkChildDepth(depth int) {
	if depth < 1 || depth > MaxDepth {
		panic(fmt.Sprintf("octree: child depth %d out of range", depth))
	}
}
