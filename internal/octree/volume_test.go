package octree

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/geo"
	"github.com/udisondev/voxpath/internal/testutil"
)

func TestNewValidatesConfig(t *testing.T) {
	scene := geo.NewScene()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"depth too deep", func(c *Config) { c.Depth = MaxDepth + 1 }},
		{"negative depth", func(c *Config) { c.Depth = -1 }},
		{"zero voxel", func(c *Config) { c.VoxelSize = 0 }},
		{"empty box", func(c *Config) { c.Max = c.Min }},
		{"negative agent", func(c *Config) { c.AgentRadius = -1 }},
		{"too many roots", func(c *Config) { c.Max = vec(1000, 1000, 1000); c.Depth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cubeConfig(8, 1, 1)
			tt.mutate(&cfg)
			_, err := New(cfg, scene)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	_, err := New(cubeConfig(8, 1, 1), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestVolumeGeometry(t *testing.T) {
	cfg := cubeConfig(8, 1, 1)
	cfg.Max = vec(8, 5, 3)
	v, err := New(cfg, geo.NewScene())
	require.NoError(t, err)

	nx, ny, nz := v.GridSize()
	assert.Equal(t, []int{4, 3, 2}, []int{nx, ny, nz})
	assert.Equal(t, 24, v.RootCount())
	assert.Equal(t, 2.0, v.VoxelSize(0))
	assert.Equal(t, 1.0, v.VoxelSize(1))

	// First root centre is half a root voxel in from the min corner.
	assert.Equal(t, vec(1, 1, 1), v.WorldPosition(NewKey(0, 0)))

	for outer := range uint32(v.RootCount()) {
		x, y, z := v.IndexToGrid(outer)
		assert.Equal(t, outer, v.GridToIndex(x, y, z))
		gx, gy, gz, ok := v.WorldToGrid(v.WorldPosition(NewKey(outer, 0)))
		require.True(t, ok)
		assert.Equal(t, []int{x, y, z}, []int{gx, gy, gz})
	}

	_, _, _, ok := v.WorldToGrid(vec(-1.5, 1, 1))
	assert.False(t, ok)
	_, _, _, ok = v.WorldToGrid(vec(1, 1, 4.5))
	assert.False(t, ok)
}

func TestTraceShapes(t *testing.T) {
	cfg := cubeConfig(8, 1, 2)
	cfg.AgentShape = geo.ShapeCapsule
	cfg.AgentRadius = 0.3
	cfg.AgentHalfHeight = 0.9
	v, err := New(cfg, geo.NewScene())
	require.NoError(t, err)

	// Root voxels (4) fit the agent, depth 1 (2) fits, depth 2 (1) does not.
	assert.Len(t, v.shapes[0], 1)
	assert.Len(t, v.shapes[1], 1)
	require.Len(t, v.shapes[2], 2)
	assert.Equal(t, geo.ShapeCapsule, v.SweepShape().Kind)
	assert.Equal(t, geo.ShapeBox, v.shapes[2][0].Kind)
}

func TestWorldPositionMatchesTreeWalk(t *testing.T) {
	v, _ := setupSphereVolume(t)

	leaves := collectLeaves(v)
	require.NotEmpty(t, leaves)
	depths := map[int]bool{}
	for _, l := range leaves {
		depths[l.key.Depth()] = true
		p := v.WorldPosition(l.key)
		assert.InDelta(t, l.center.X, p.X, 1e-9)
		assert.InDelta(t, l.center.Y, p.Y, 1e-9)
		assert.InDelta(t, l.center.Z, p.Z, 1e-9)
	}
	assert.Len(t, depths, 3, "sphere scene should produce leaves at every depth")
}

func TestFindLeaf(t *testing.T) {
	v, scene := setupSphereVolume(t)

	for _, l := range collectLeaves(v) {
		key, n, ok := v.FindLeaf(l.center, false)
		require.True(t, ok)
		assert.Equal(t, l.key, key)
		assert.Same(t, l.node, n)

		_, _, ok = v.FindLeaf(l.center, true)
		assert.Equal(t, l.node.IsFree(), ok)

		// Free leaves are clear of geometry, occupied ones are not.
		size := v.VoxelSize(l.key.Depth())
		assert.Equal(t, !l.node.IsFree(), scene.Overlaps(geo.Cube(size/2), l.center, geo.ChannelAll))
	}

	_, _, ok := v.FindLeaf(vec(-0.1, 4, 4), false)
	assert.False(t, ok)
	_, _, ok = v.FindLeaf(vec(4, 4, 8.2), false)
	assert.False(t, ok)
}

func TestFindTreeAndNode(t *testing.T) {
	v, _ := setupSphereVolume(t)

	key, n, ok := v.FindLeaf(vec(4.3, 3.9, 5.45), false)
	require.True(t, ok)
	require.Equal(t, 2, key.Depth())

	found, fn := v.FindTree(key)
	assert.Equal(t, key, found)
	assert.Same(t, n, fn)
	assert.Same(t, n, v.Node(key))

	// A key past an existing leaf resolves to that leaf.
	far, _, ok := v.FindLeaf(vec(0.5, 0.5, 0.5), false)
	require.True(t, ok)
	require.Equal(t, 0, far.Depth())
	deep := far.WithChildAndDepth(1, 3)
	got, gn := v.FindTree(deep)
	assert.Equal(t, 0, got.Depth())
	assert.Same(t, v.Node(far), gn)
	assert.Nil(t, v.Node(deep))
}

func TestSubtreeKeys(t *testing.T) {
	v, _ := setupSphereVolume(t)

	key, _, ok := v.FindLeaf(vec(4.3, 3.9, 4.1), false)
	require.True(t, ok)
	root := NewKey(key.Outer(), 0)
	keys := v.SubtreeKeys(root, nil)
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.Equal(t, root.Outer(), k.Outer())
		assert.NotNil(t, v.Node(k))
	}
	assert.Equal(t, 0, len(v.SubtreeKeys(key, nil)), "a leaf has no subtrees")
}

func TestRegenerationIdempotent(t *testing.T) {
	v, _ := setupSphereVolume(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	before := make([]Node, len(v.roots))
	for i := range v.roots {
		before[i] = cloneNode(&v.roots[i])
	}

	for range 2 {
		require.NoError(t, v.gate.BeginGeneration(ctx))
		for i := range v.roots {
			v.regenerate(uint32(i))
		}
		v.gate.EndGeneration()

		for i := range v.roots {
			assert.True(t, sameShape(&before[i], &v.roots[i]), "root %d changed", i)
		}
	}
}

func TestOccupiedSubtreesCollapse(t *testing.T) {
	scene := geo.NewScene()
	// Fills the first root completely.
	scene.AddBox(vec(1, 1, 1), vec(1.5, 1.5, 1.5))
	v := setupVolume(t, cubeConfig(8, 0.5, 2), scene)

	root := v.Node(NewKey(0, 0))
	assert.True(t, root.IsLeaf())
	assert.False(t, root.IsFree())

	far := v.Node(NewKey(uint32(v.RootCount()-1), 0))
	assert.True(t, far.IsLeaf())
	assert.True(t, far.IsFree())
}

func TestStats(t *testing.T) {
	v, _ := setupSphereVolume(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	s, err := v.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, v.RootCount(), s.Roots)
	assert.Equal(t, len(collectLeaves(v)), s.Leaves())
	assert.Greater(t, s.FreeRatio(), 0.0)
	assert.Less(t, s.FreeRatio(), 1.0)
	assert.Greater(t, s.OccupiedLeaves[2], 0)
}

func TestGenerateAfterClose(t *testing.T) {
	v, err := New(cubeConfig(4, 1, 1), geo.NewScene())
	require.NoError(t, err)
	require.NoError(t, v.Close(context.Background()))
	require.NoError(t, v.Close(context.Background()))

	assert.ErrorIs(t, v.Generate(context.Background()), ErrVolumeClosed)
	assert.ErrorIs(t, v.WaitGenerated(context.Background()), ErrVolumeClosed)
	assert.True(t, v.Closed())
	select {
	case <-v.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestGenerateCancelled(t *testing.T) {
	v, err := New(cubeConfig(8, 0.5, 2), geo.NewScene())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = v.Generate(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, v.Generated())
	assert.Equal(t, GateState{}, v.gate.State())
}

func TestOuterIndexesPerThread(t *testing.T) {
	for depth, want := range []int{5 * 5 * 512, 5 * 6 * 64, 5 * 7 * 8, 5 * 8} {
		v, err := New(cubeConfig(64, math.Pow(2, float64(depth)), depth), geo.NewScene())
		require.NoError(t, err)
		assert.Equal(t, want, v.outerIndexesPerThread(), "depth %d", depth)
	}
}

func TestCloseReleasesForest(t *testing.T) {
	v, _ := setupSphereVolume(t)
	require.NoError(t, v.Close(testutil.ContextWithTimeout(t, 5*time.Second)))

	assert.Zero(t, v.RootCount())
	assert.Nil(t, v.Node(NewKey(0, 0)))
	_, _, ok := v.FindLeaf(vec(4, 4, 4), false)
	assert.False(t, ok)
	_, _, ok = v.FindNeighbor(NewKey(0, 0), Directions[0])
	assert.False(t, ok)
	key, n := v.FindTree(NewKey(0, 0))
	assert.Equal(t, InvalidKey, key)
	assert.Nil(t, n)
}

func TestCloseWhileObstacleBatchWaitsBehindSearch(t *testing.T) {
	scene := geo.NewScene()
	m := scene.AddMoverBox("crate", vec(1, 1, 1), vec(0.4, 0.4, 0.4))
	v := setupVolume(t, cubeConfig(8, 0.5, 2), scene)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)
	g := v.Gate()

	require.NoError(t, g.BeginSearch(ctx))
	v.Track(m)
	require.True(t, v.UpdateObstacles())
	require.Eventually(t, func() bool { return g.State().GeneratorsWaiting > 0 }, 5*time.Second, time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- v.Close(ctx) }()

	// The waiting generators give up, the search still holds the gate.
	require.Eventually(t, func() bool {
		s := g.State()
		return s.Closed && s.GeneratorsRunning() == 0
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, g.State().Pathfinders)
	select {
	case err := <-closed:
		t.Fatalf("Close returned with a search inside: %v", err)
	default:
	}

	g.EndSearch()
	require.NoError(t, <-closed)
	assert.Equal(t, GateState{Generated: true, Closed: true}, g.State())
	assert.False(t, v.obstacleBatchRunning.Load())
}
