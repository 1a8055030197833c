package octree

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/udisondev/voxpath/internal/geo"
)

var (
	ErrInvalidConfig = errors.New("invalid volume config")
	ErrVolumeClosed  = errors.New("volume closed")
)

// Oracle answers collision queries against world geometry. Every method
// returns true when the query is blocked.
type Oracle interface {
	Overlaps(shape geo.Shape, center r3.Vector, ch geo.Channel) bool
	Sweep(shape geo.Shape, from, to r3.Vector, ch geo.Channel) bool
	LineTrace(from, to r3.Vector, ch geo.Channel) bool
}

// Config describes the region a Volume partitions.
type Config struct {
	Min, Max r3.Vector

	// VoxelSize is the edge length of the finest cells.
	VoxelSize float64
	Depth     int

	AgentShape      geo.ShapeKind
	AgentRadius     float64
	AgentHalfHeight float64
	Channel         geo.Channel

	// ObstacleUpdateRate is how many dynamic obstacle passes run per second.
	ObstacleUpdateRate   float64
	MaxGenerationThreads int

	// ClosestLeafLineOfSight makes FindClosestFreeLeaf reject candidates
	// not visible from the query position.
	ClosestLeafLineOfSight bool
}

func (c Config) validate() error {
	var err error
	if c.Depth < 0 || c.Depth > MaxDepth {
		err = multierr.Append(err, fmt.Errorf("depth %d outside [0,%d]", c.Depth, MaxDepth))
	}
	if c.VoxelSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("voxel size must be positive, got %v", c.VoxelSize))
	}
	if c.Max.X <= c.Min.X || c.Max.Y <= c.Min.Y || c.Max.Z <= c.Min.Z {
		err = multierr.Append(err, fmt.Errorf("empty bounding box %v..%v", c.Min, c.Max))
	}
	if c.AgentRadius < 0 || c.AgentHalfHeight < 0 {
		err = multierr.Append(err, errors.New("agent size must not be negative"))
	}
	if c.AgentShape > geo.ShapeCapsule {
		err = multierr.Append(err, fmt.Errorf("unknown agent shape %v", c.AgentShape))
	}
	return err
}

// Volume owns an octree forest covering a box of space. Generation writes the
// forest and path searches read it; the two are kept apart by the Gate.
type Volume struct {
	cfg     Config
	oracle  Oracle
	policy  Policy
	clock   clock.Clock
	metrics *Metrics

	start  r3.Vector
	counts [3]int
	voxel  [MaxDepth + 1]float64
	shapes [MaxDepth + 1][]geo.Shape
	roots  []Node

	gate *Gate

	life    context.Context
	stop    context.CancelFunc
	batches sync.WaitGroup
	closed  atomic.Bool

	obstacleBatchRunning atomic.Bool

	obsMu     sync.Mutex
	obstacles map[Obstacle]struct{}
	pending   map[uint32]struct{}
	carried   map[uint32]struct{}
}

// Option customises a Volume.
type Option func(*Volume)

// WithPolicy replaces the default fitness and occupancy policy.
func WithPolicy(p Policy) Option {
	return func(v *Volume) { v.policy = p }
}

// WithClock sets the clock driving obstacle updates and timings.
func WithClock(c clock.Clock) Option {
	return func(v *Volume) { v.clock = c }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(v *Volume) { v.metrics = m }
}

// New validates cfg, computes the grid geometry and allocates the root array.
// The volume is not searchable until Generate completes.
func New(cfg Config, oracle Oracle, opts ...Option) (*Volume, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrInvalidConfig)
	}
	if cfg.Channel == 0 {
		cfg.Channel = geo.ChannelAll
	}
	if cfg.MaxGenerationThreads <= 0 {
		cfg.MaxGenerationThreads = 1
	}

	v := &Volume{
		cfg:       cfg,
		oracle:    oracle,
		policy:    DefaultPolicy{Weight: DefaultHeuristicWeight},
		clock:     clock.New(),
		gate:      NewGate(),
		obstacles: make(map[Obstacle]struct{}),
		pending:   make(map[uint32]struct{}),
		carried:   make(map[uint32]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}

	for d := 0; d <= cfg.Depth; d++ {
		v.voxel[d] = cfg.VoxelSize * math.Pow(2, float64(cfg.Depth-d))
	}
	size := cfg.Max.Sub(cfg.Min)
	v.counts = [3]int{
		int(math.Ceil(size.X / v.voxel[0])),
		int(math.Ceil(size.Y / v.voxel[0])),
		int(math.Ceil(size.Z / v.voxel[0])),
	}
	total := v.counts[0] * v.counts[1] * v.counts[2]
	if total >= MaxOuterIndex {
		return nil, fmt.Errorf("%w: %d root cells exceed limit %d, increase depth or voxel size",
			ErrInvalidConfig, total, MaxOuterIndex)
	}
	half := v.voxel[0] / 2
	v.start = cfg.Min.Add(r3.Vector{X: half, Y: half, Z: half})
	v.buildTraceShapes()
	v.roots = make([]Node, total)
	v.life, v.stop = context.WithCancel(context.Background())
	return v, nil
}

// buildTraceShapes prepares the occupancy probes for each depth: a box the
// size of the voxel, plus the agent shape when the agent does not fit in it.
func (v *Volume) buildTraceShapes() {
	c := v.cfg
	for d := 0; d <= c.Depth; d++ {
		size := v.voxel[d]
		v.shapes[d] = []geo.Shape{geo.Cube(size / 2)}
		if c.AgentRadius*2 <= size && c.AgentHalfHeight*2 <= size {
			continue
		}
		switch c.AgentShape {
		case geo.ShapeCapsule:
			v.shapes[d] = append(v.shapes[d], geo.Capsule(c.AgentRadius, c.AgentHalfHeight))
		case geo.ShapeBox:
			v.shapes[d] = append(v.shapes[d], geo.Box(r3.Vector{X: c.AgentRadius, Y: c.AgentRadius, Z: c.AgentHalfHeight}))
		case geo.ShapeSphere:
			v.shapes[d] = append(v.shapes[d], geo.Sphere(c.AgentRadius))
		}
	}
}

func (v *Volume) Config() Config { return v.cfg }
func (v *Volume) Policy() Policy { return v.policy }
func (v *Volume) Gate() *Gate    { return v.gate }
func (v *Volume) Clock() clock.Clock {
	return v.clock
}

// Depth returns the maximum subdivision depth.
func (v *Volume) Depth() int { return v.cfg.Depth }

// VoxelSize returns the edge length of cells at depth.
func (v *Volume) VoxelSize(depth int) float64 {
	return v.voxel[depth]
}

// GridSize returns the number of root cells along each axis.
func (v *Volume) GridSize() (nx, ny, nz int) {
	return v.counts[0], v.counts[1], v.counts[2]
}

// RootCount returns the number of root cells, or 0 once the volume is closed.
func (v *Volume) RootCount() int { return len(v.roots) }

// SweepShape is the shape used for smoothing sweeps: the last probe of the
// finest depth.
func (v *Volume) SweepShape() geo.Shape {
	s := v.shapes[v.cfg.Depth]
	return s[len(s)-1]
}

// CanSweep reports whether the sweep shape can travel from..to unobstructed.
func (v *Volume) CanSweep(from, to r3.Vector) bool {
	return !v.oracle.Sweep(v.SweepShape(), from, to, v.cfg.Channel)
}

// Done is closed when the volume starts shutting down.
func (v *Volume) Done() <-chan struct{} { return v.life.Done() }

// Closed reports whether Close has been called.
func (v *Volume) Closed() bool { return v.closed.Load() }

// Generated reports whether the initial generation has completed.
func (v *Volume) Generated() bool { return v.gate.State().Generated }

// WaitGenerated blocks until the initial generation completes.
func (v *Volume) WaitGenerated(ctx context.Context) error {
	return v.gate.WaitGenerated(ctx)
}

// Close stops obstacle updates and generation, rejects new searches,
// waits until every generator and search has left the volume and then
// releases the forest.
func (v *Volume) Close(ctx context.Context) error {
	v.obsMu.Lock()
	already := v.closed.Swap(true)
	v.obsMu.Unlock()
	if already {
		return nil
	}
	v.stop()
	v.gate.Close()
	v.batches.Wait()
	if err := v.gate.WaitIdle(ctx); err != nil {
		return fmt.Errorf("waiting for searches to leave volume: %w", err)
	}
	v.roots = nil
	return nil
}
