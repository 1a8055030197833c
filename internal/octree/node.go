package octree

// Node data flags.
const (
	FlagFree   uint32 = 1 << 0
	FlagGround uint32 = 1 << 1
)

// Node is an octree cell. A node with children is internal and only its
// leaves carry authoritative occupancy.
type Node struct {
	children *[8]Node
	data     uint32
}

func (n *Node) IsLeaf() bool { return n.children == nil }
func (n *Node) IsFree() bool { return n.data&FlagFree != 0 }

// Data returns the raw flag word.
func (n *Node) Data() uint32 { return n.data }

func (n *Node) SetFree(free bool) { n.SetFlag(FlagFree, free) }

// SetFlag sets or clears flag bits.
func (n *Node) SetFlag(flag uint32, on bool) {
	if on {
		n.data |= flag
	} else {
		n.data &^= flag
	}
}

// Flag reports whether every bit of flag is set.
func (n *Node) Flag(flag uint32) bool { return n.data&flag == flag }

// Child returns child i, or nil for a leaf.
func (n *Node) Child(i int) *Node {
	if n.children == nil {
		return nil
	}
	return &n.children[i]
}

// split allocates eight children if missing.
func (n *Node) split() {
	if n.children == nil {
		n.children = new([8]Node)
	}
}

// collapse drops the subtree.
func (n *Node) collapse() {
	n.children = nil
}

// countLeaves adds the leaves under n to out, indexed by depth.
func (n *Node) countLeaves(depth int, free, occupied *[MaxDepth + 1]int) {
	if n.children == nil {
		if n.IsFree() {
			free[depth]++
		} else {
			occupied[depth]++
		}
		return
	}
	for i := range n.children {
		n.children[i].countLeaves(depth+1, free, occupied)
	}
}
