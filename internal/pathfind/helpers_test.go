package pathfind

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/geo"
	"github.com/udisondev/voxpath/internal/octree"
	"github.com/udisondev/voxpath/internal/testutil"
)

func vec(x, y, z float64) r3.Vector { return r3.Vector{X: x, Y: y, Z: z} }

// gridConfig is a box of unit root voxels with no subdivision.
func gridConfig(nx, ny, nz float64) octree.Config {
	return octree.Config{
		Min:                  vec(0, 0, 0),
		Max:                  vec(nx, ny, nz),
		VoxelSize:            1,
		Depth:                0,
		AgentShape:           geo.ShapeSphere,
		AgentRadius:          0.25,
		AgentHalfHeight:      0.25,
		MaxGenerationThreads: 4,
	}
}

func newVolume(t *testing.T, cfg octree.Config, scene *geo.Scene, opts ...octree.Option) *octree.Volume {
	t.Helper()
	v, err := octree.New(cfg, scene, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close(context.Background()) })
	return v
}

// setupVolume creates and generates a volume over scene.
func setupVolume(t *testing.T, cfg octree.Config, scene *geo.Scene, opts ...octree.Option) *octree.Volume {
	t.Helper()
	v := newVolume(t, cfg, scene, opts...)
	require.NoError(t, v.Generate(testutil.ContextWithTimeout(t, 10*time.Second)))
	return v
}

// setupOpenVolume is a fully free 4x4x4 volume.
func setupOpenVolume(t *testing.T) *octree.Volume {
	t.Helper()
	return setupVolume(t, gridConfig(4, 4, 4), geo.NewScene())
}

// setupWallVolume is a single 8x8 layer split by a wall with a gap at high
// Y, so paths between the two low corners must bend.
func setupWallVolume(t *testing.T) (*octree.Volume, *geo.Scene) {
	t.Helper()
	scene := geo.NewScene()
	scene.AddBox(vec(4, 3, 0.5), vec(0.5, 3, 1))
	return setupVolume(t, gridConfig(8, 8, 1), scene), scene
}

// searchLocked runs e.Search holding the gate.
func searchLocked(t *testing.T, e *Engine, req Request) *Result {
	t.Helper()
	g := req.Volume.Gate()
	require.NoError(t, g.BeginSearch(testutil.ContextWithTimeout(t, 5*time.Second)))
	defer g.EndSearch()
	return e.Search(context.Background(), req)
}
