package octree

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/geo"
	"github.com/udisondev/voxpath/internal/testutil"
)

func vec(x, y, z float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

// cubeConfig is an edge*edge*edge volume at the origin.
func cubeConfig(edge, voxel float64, depth int) Config {
	return Config{
		Min:                  vec(0, 0, 0),
		Max:                  vec(edge, edge, edge),
		VoxelSize:            voxel,
		Depth:                depth,
		AgentShape:           geo.ShapeSphere,
		AgentRadius:          voxel / 4,
		AgentHalfHeight:      voxel / 4,
		Channel:              geo.ChannelAll,
		MaxGenerationThreads: 4,
	}
}

// setupVolume creates and fully generates a volume over scene.
func setupVolume(t *testing.T, cfg Config, scene *geo.Scene, opts ...Option) *Volume {
	t.Helper()
	v, err := New(cfg, scene, opts...)
	require.NoError(t, err)
	require.NoError(t, v.Generate(testutil.ContextWithTimeout(t, 10*time.Second)))
	t.Cleanup(func() { _ = v.Close(context.Background()) })
	return v
}

// setupSphereVolume is an 8^3 volume at depth 2 with a sphere in the middle,
// giving leaves of every depth.
func setupSphereVolume(t *testing.T) (*Volume, *geo.Scene) {
	t.Helper()
	scene := geo.NewScene()
	scene.AddSphere(vec(4.3, 3.9, 4.1), 1.3)
	return setupVolume(t, cubeConfig(8, 0.5, 2), scene), scene
}

type leaf struct {
	key    Key
	node   *Node
	center r3.Vector
}

// collectLeaves walks the forest physically, deriving centres from parents.
func collectLeaves(v *Volume) []leaf {
	var out []leaf
	var walk func(n *Node, key Key, center r3.Vector)
	walk = func(n *Node, key Key, center r3.Vector) {
		if n.IsLeaf() {
			out = append(out, leaf{key: key, node: n, center: center})
			return
		}
		d := key.Depth() + 1
		for i := range 8 {
			c := center.Add(childOffsetSign[i].Mul(v.voxel[d] / 2))
			walk(n.Child(i), key.WithChildAndDepth(d, i), c)
		}
	}
	for i := range v.roots {
		walk(&v.roots[i], NewKey(uint32(i), 0), v.rootCenter(uint32(i)))
	}
	return out
}

func sameShape(a, b *Node) bool {
	if a.data != b.data || a.IsLeaf() != b.IsLeaf() {
		return false
	}
	if a.IsLeaf() {
		return true
	}
	for i := range 8 {
		if !sameShape(a.Child(i), b.Child(i)) {
			return false
		}
	}
	return true
}

func cloneNode(n *Node) Node {
	c := Node{data: n.data}
	if !n.IsLeaf() {
		c.children = new([8]Node)
		for i := range 8 {
			c.children[i] = cloneNode(n.Child(i))
		}
	}
	return c
}

func containsKey(ns []Neighbor, k Key) bool {
	for _, n := range ns {
		if n.Key == k {
			return true
		}
	}
	return false
}
