package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/udisondev/voxpath/internal/geo"
	"github.com/udisondev/voxpath/internal/octree"
)

// Vec3 is a position written as a three element YAML sequence.
type Vec3 [3]float64

func (v Vec3) R3() r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

// Agent describes the collision shape of the agents using the volume.
type Agent struct {
	Shape      string  `yaml:"shape"` // box, sphere, capsule
	Radius     float64 `yaml:"radius"`
	HalfHeight float64 `yaml:"half_height"`
}

// Volume configures the navigable region.
type Volume struct {
	Min       Vec3    `yaml:"min"`
	Max       Vec3    `yaml:"max"`
	VoxelSize float64 `yaml:"voxel_size"`
	Depth     int     `yaml:"depth"`

	Agent   Agent  `yaml:"agent"`
	Channel string `yaml:"channel"` // all, static, dynamic

	ObstacleUpdateRate     float64 `yaml:"obstacle_update_rate"` // Hz
	MaxGenerationThreads   int     `yaml:"max_generation_threads"`
	ClosestLeafLineOfSight bool    `yaml:"closest_leaf_line_of_sight"`

	Policy          string  `yaml:"policy"` // default, ground
	HeuristicWeight float64 `yaml:"heuristic_weight"`
}

// DefaultVolume returns a 64x64x16 volume of half-unit voxels two levels
// deep.
func DefaultVolume() Volume {
	return Volume{
		Min:       Vec3{0, 0, 0},
		Max:       Vec3{64, 64, 16},
		VoxelSize: 0.5,
		Depth:     2,
		Agent: Agent{
			Shape:      "capsule",
			Radius:     0.4,
			HalfHeight: 0.9,
		},
		Channel:              "all",
		ObstacleUpdateRate:   10,
		MaxGenerationThreads: 4,
		Policy:               "default",
		HeuristicWeight:      octree.DefaultHeuristicWeight,
	}
}

func (v Volume) validate() error {
	var err error
	if _, e := geo.ParseShapeKind(v.Agent.Shape); e != nil {
		err = multierr.Append(err, fmt.Errorf("volume agent: %w", e))
	}
	if _, e := geo.ParseChannel(v.Channel); e != nil {
		err = multierr.Append(err, fmt.Errorf("volume: %w", e))
	}
	switch v.Policy {
	case "", "default", "ground":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown volume policy %q", v.Policy))
	}
	if v.Depth < 0 || v.Depth > octree.MaxDepth {
		err = multierr.Append(err, fmt.Errorf("volume depth %d outside [0,%d]", v.Depth, octree.MaxDepth))
	}
	if v.VoxelSize <= 0 {
		err = multierr.Append(err, errors.New("volume voxel_size must be positive"))
	}
	for i := range 3 {
		if v.Max[i] <= v.Min[i] {
			err = multierr.Append(err, fmt.Errorf("volume max %v must exceed min %v", v.Max, v.Min))
			break
		}
	}
	if v.ObstacleUpdateRate < 0 {
		err = multierr.Append(err, errors.New("volume obstacle_update_rate must not be negative"))
	}
	if v.HeuristicWeight < 0 {
		err = multierr.Append(err, errors.New("volume heuristic_weight must not be negative"))
	}
	return err
}

// OctreeConfig converts v to the octree package's config.
func (v Volume) OctreeConfig() (octree.Config, error) {
	shape, err := geo.ParseShapeKind(v.Agent.Shape)
	if err != nil {
		return octree.Config{}, fmt.Errorf("agent shape: %w", err)
	}
	ch, err := geo.ParseChannel(v.Channel)
	if err != nil {
		return octree.Config{}, err
	}
	return octree.Config{
		Min:                    v.Min.R3(),
		Max:                    v.Max.R3(),
		VoxelSize:              v.VoxelSize,
		Depth:                  v.Depth,
		AgentShape:             shape,
		AgentRadius:            v.Agent.Radius,
		AgentHalfHeight:        v.Agent.HalfHeight,
		Channel:                ch,
		ObstacleUpdateRate:     v.ObstacleUpdateRate,
		MaxGenerationThreads:   v.MaxGenerationThreads,
		ClosestLeafLineOfSight: v.ClosestLeafLineOfSight,
	}, nil
}

// SearchPolicy builds the configured search policy.
func (v Volume) SearchPolicy() octree.Policy {
	w := v.HeuristicWeight
	if w == 0 {
		w = octree.DefaultHeuristicWeight
	}
	if v.Policy == "ground" {
		return octree.GroundPolicy{Weight: w}
	}
	return octree.DefaultPolicy{Weight: w}
}

// Pathfinding configures the worker pool and per-request defaults.
type Pathfinding struct {
	Workers      int           `yaml:"workers"` // 0 = NumCPU-1
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	TickInterval time.Duration `yaml:"tick_interval"`

	TimeLimit       time.Duration `yaml:"time_limit"`
	SmoothingPasses int           `yaml:"smoothing_passes"`
	AngleTolerance  float64       `yaml:"angle_tolerance"` // degrees
	// UserData is passed to the policy; the ground policy uses it as the
	// off-ground step penalty.
	UserData int32 `yaml:"user_data"`
}

// DefaultPathfinding returns the pool and request defaults.
func DefaultPathfinding() Pathfinding {
	return Pathfinding{
		ReadyTimeout:    5 * time.Second,
		TickInterval:    50 * time.Millisecond,
		TimeLimit:       200 * time.Millisecond,
		SmoothingPasses: 2,
		AngleTolerance:  3,
	}
}

func (p Pathfinding) validate() error {
	var err error
	if p.Workers < 0 {
		err = multierr.Append(err, errors.New("pathfinding workers must not be negative"))
	}
	if p.TickInterval <= 0 {
		err = multierr.Append(err, errors.New("pathfinding tick_interval must be positive"))
	}
	if p.SmoothingPasses < 0 {
		err = multierr.Append(err, errors.New("pathfinding smoothing_passes must not be negative"))
	}
	if p.AngleTolerance < 0 || p.AngleTolerance >= 90 {
		err = multierr.Append(err, fmt.Errorf("pathfinding angle_tolerance %v outside [0,90)", p.AngleTolerance))
	}
	return err
}
