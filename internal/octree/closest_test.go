package octree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/geo"
)

func TestClosestFreeLeafFromFreePoint(t *testing.T) {
	v, _ := setupSphereVolume(t)

	want, _, ok := v.FindLeaf(vec(0.5, 0.5, 0.5), true)
	require.True(t, ok)
	got, n, ok := v.FindClosestFreeLeaf(vec(0.5, 0.5, 0.5), 0)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.True(t, n.IsFree())
}

func TestClosestFreeLeafDirectNeighbour(t *testing.T) {
	scene := geo.NewScene()
	scene.AddBox(vec(4, 4, 4), vec(0.8, 0.8, 0.8))
	v := setupVolume(t, cubeConfig(8, 1, 1), scene)

	p := vec(4, 4, 4)
	origin, _, ok := v.FindLeaf(p, false)
	require.True(t, ok)
	require.Equal(t, 1, origin.Depth())

	key, n, ok := v.FindClosestFreeLeaf(p, 0)
	require.True(t, ok)
	assert.True(t, n.IsFree())
	assert.Same(t, v.Node(key), n)
	assert.LessOrEqual(t, v.WorldPosition(key).Distance(p), 1.7)
}

// corridorScene is three roots in a row with the first two blocked.
func corridorScene(t *testing.T, lineOfSight bool) *Volume {
	t.Helper()
	scene := geo.NewScene()
	scene.AddBox(vec(2, 1, 1), vec(1.9, 1.5, 1.5))

	cfg := cubeConfig(2, 2, 0)
	cfg.Max = vec(6, 2, 2)
	cfg.ClosestLeafLineOfSight = lineOfSight
	return setupVolume(t, cfg, scene)
}

func TestClosestFreeLeafRange(t *testing.T) {
	v := corridorScene(t, false)
	require.Equal(t, 3, v.RootCount())
	require.False(t, v.Node(NewKey(0, 0)).IsFree())
	require.False(t, v.Node(NewKey(1, 0)).IsFree())
	require.True(t, v.Node(NewKey(2, 0)).IsFree())

	p := vec(1, 1, 1)

	// The free root's near face is 3 away, beyond the default range of one
	// root voxel.
	_, _, ok := v.FindClosestFreeLeaf(p, 0)
	assert.False(t, ok)

	key, _, ok := v.FindClosestFreeLeaf(p, 4)
	require.True(t, ok)
	assert.Equal(t, NewKey(2, 0), key)
}

func TestClosestFreeLeafLineOfSight(t *testing.T) {
	v := corridorScene(t, true)

	_, _, ok := v.FindClosestFreeLeaf(vec(1, 1, 1), 4)
	assert.False(t, ok, "the only free leaf is behind the wall")
}

func TestClosestFreeLeafOutside(t *testing.T) {
	v, _ := setupSphereVolume(t)

	_, _, ok := v.FindClosestFreeLeaf(vec(-3, 4, 4), 100)
	assert.False(t, ok)
}
