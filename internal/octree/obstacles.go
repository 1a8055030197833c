package octree

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/golang/geo/r3"
)

// Obstacle is a moving body whose bounds trigger regeneration.
type Obstacle interface {
	WorldBounds() (origin, extent r3.Vector)
}

// Obstacle tick outcomes.
const (
	tickIdle    = "idle"
	tickSkipped = "skipped"
	tickStarted = "started"
)

// Track starts regenerating the space around o on every update tick.
func (v *Volume) Track(o Obstacle) {
	v.obsMu.Lock()
	v.obstacles[o] = struct{}{}
	v.obsMu.Unlock()
}

// Untrack stops following o. Its last position is still regenerated once.
func (v *Volume) Untrack(o Obstacle) {
	v.obsMu.Lock()
	delete(v.obstacles, o)
	v.obsMu.Unlock()
}

// TrackedCount returns the number of tracked obstacles.
func (v *Volume) TrackedCount() int {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	return len(v.obstacles)
}

// RootsOverlapping returns the sorted outer indices of the roots touched by
// the box origin±extent grown by half a finest voxel. Parts outside the
// volume are clipped.
func (v *Volume) RootsOverlapping(origin, extent r3.Vector) []uint32 {
	m := v.voxel[v.cfg.Depth] / 2
	grow := r3.Vector{X: extent.X + m, Y: extent.Y + m, Z: extent.Z + m}
	lo := origin.Sub(grow).Sub(v.start).Mul(1 / v.voxel[0])
	hi := origin.Add(grow).Sub(v.start).Mul(1 / v.voxel[0])

	var rng [3][2]int
	for i, pair := range [3][2]float64{{lo.X, hi.X}, {lo.Y, hi.Y}, {lo.Z, hi.Z}} {
		a := int(math.Round(pair[0]))
		b := int(math.Round(pair[1]))
		if b < 0 || a >= v.counts[i] {
			return nil
		}
		rng[i] = [2]int{max(a, 0), min(b, v.counts[i]-1)}
	}

	out := make([]uint32, 0, (rng[0][1]-rng[0][0]+1)*(rng[1][1]-rng[1][0]+1)*(rng[2][1]-rng[2][0]+1))
	for x := rng[0][0]; x <= rng[0][1]; x++ {
		for y := rng[1][0]; y <= rng[1][1]; y++ {
			for z := rng[2][0]; z <= rng[2][1]; z++ {
				out = append(out, v.GridToIndex(x, y, z))
			}
		}
	}
	return out
}

// UpdateObstacles runs one dynamic obstacle tick: the roots under every
// tracked obstacle, plus the roots queued on the previous tick, are
// regenerated in a background batch. The tick is skipped while any
// generation is still pending. It reports whether a batch was started.
func (v *Volume) UpdateObstacles() bool {
	if v.closed.Load() {
		return false
	}
	if !v.obstacleBatchRunning.CompareAndSwap(false, true) {
		v.metrics.obstacleTick(tickSkipped)
		return false
	}
	st := v.gate.State()
	if !st.Generated || st.GeneratorsRunning() > 0 {
		v.obstacleBatchRunning.Store(false)
		v.metrics.obstacleTick(tickSkipped)
		return false
	}

	v.obsMu.Lock()
	if len(v.obstacles) == 0 && len(v.carried) == 0 {
		v.obsMu.Unlock()
		v.obstacleBatchRunning.Store(false)
		v.metrics.obstacleTick(tickIdle)
		return false
	}
	v.pending, v.carried = v.carried, make(map[uint32]struct{}, len(v.carried))
	for o := range v.obstacles {
		origin, extent := o.WorldBounds()
		for _, idx := range v.RootsOverlapping(origin, extent) {
			v.pending[idx] = struct{}{}
			v.carried[idx] = struct{}{}
		}
	}
	indices := make([]uint32, 0, len(v.pending))
	for idx := range v.pending {
		indices = append(indices, idx)
	}
	clear(v.pending)
	v.obsMu.Unlock()

	if len(indices) == 0 {
		v.obstacleBatchRunning.Store(false)
		v.metrics.obstacleTick(tickIdle)
		return false
	}
	slices.Sort(indices)
	return v.startObstacleBatch(indices)
}

func (v *Volume) startObstacleBatch(indices []uint32) bool {
	if !v.track() {
		v.obstacleBatchRunning.Store(false)
		return false
	}
	threads := max(1, min(len(indices)/v.outerIndexesPerThread(), v.maxThreads()))
	v.metrics.obstacleTick(tickStarted)

	go func() {
		defer v.batches.Done()
		defer v.obstacleBatchRunning.Store(false)

		err := v.runBatch(v.life, batchObstacles, indices, len(indices), threads)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrVolumeClosed) {
			slog.Warn("obstacle regeneration failed", "roots", len(indices), "err", err)
		}
	}()
	return true
}

// Run drives obstacle updates at the configured rate until ctx is cancelled
// or the volume closes.
func (v *Volume) Run(ctx context.Context) error {
	if v.cfg.ObstacleUpdateRate <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.life.Done():
			return nil
		}
	}

	interval := time.Duration(float64(time.Second) / v.cfg.ObstacleUpdateRate)
	ticker := v.clock.Ticker(interval)
	defer ticker.Stop()

	slog.Info("obstacle updates started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.life.Done():
			return nil
		case <-ticker.C:
			v.UpdateObstacles()
		}
	}
}
