package octree

import "github.com/golang/geo/r3"

// DefaultHeuristicWeight overweights the distance-to-target term of the A*
// fitness. Paths are smoothed afterwards so optimality is traded for speed.
const DefaultHeuristicWeight = 3.5

// groundProbeFactor is how many finest voxels below a cell's centre a
// ground probe reaches.
const groundProbeFactor = 1.49

// Step is one candidate expansion during a search.
type Step struct {
	From         r3.Vector
	FromDistance float64
	To           r3.Vector
	Data         uint32
}

// Policy customises how a Volume is searched and generated.
type Policy interface {
	// Fitness returns the distance travelled to reach s.To and the A*
	// priority of that step; lower priority is expanded first.
	Fitness(v *Volume, s Step, target r3.Vector, userData int32) (distance, fitness float64)

	// RecheckOccupancy reports whether the cell at center is free. It may
	// also set auxiliary flags on n.
	RecheckOccupancy(v *Volume, n *Node, center r3.Vector, depth int) bool
}

// DefaultPolicy is weighted A* with plain shape-overlap occupancy.
type DefaultPolicy struct {
	Weight float64
}

func (p DefaultPolicy) Fitness(_ *Volume, s Step, target r3.Vector, _ int32) (float64, float64) {
	dist := s.FromDistance + s.From.Distance(s.To)
	return dist, dist + p.Weight*s.To.Distance(target)
}

func (DefaultPolicy) RecheckOccupancy(v *Volume, _ *Node, center r3.Vector, depth int) bool {
	return v.TraceFree(center, depth)
}

// GroundPolicy prefers cells resting on solid ground. Cells are tagged with
// FlagGround during generation; a search's userData is added as a penalty
// for every off-ground step farther than one voxel from the target.
type GroundPolicy struct {
	Weight float64
}

func (p GroundPolicy) Fitness(v *Volume, s Step, target r3.Vector, userData int32) (float64, float64) {
	dist := s.FromDistance + s.From.Distance(s.To)
	h := s.To.Distance(target)
	if h > v.cfg.VoxelSize && s.Data&FlagGround == 0 {
		dist += float64(userData)
	}
	return dist, dist + p.weight()*h
}

func (p GroundPolicy) RecheckOccupancy(v *Volume, n *Node, center r3.Vector, depth int) bool {
	free := v.TraceFree(center, depth)
	ground := false
	if free {
		below := center.Sub(r3.Vector{Z: v.cfg.VoxelSize * groundProbeFactor})
		ground = v.oracle.LineTrace(center, below, v.cfg.Channel)
	}
	n.SetFlag(FlagGround, ground)
	return free
}

func (p GroundPolicy) weight() float64 {
	if p.Weight == 0 {
		return DefaultHeuristicWeight
	}
	return p.Weight
}

// TraceFree runs the depth's occupancy probes at center.
func (v *Volume) TraceFree(center r3.Vector, depth int) bool {
	for _, s := range v.shapes[depth] {
		if v.oracle.Overlaps(s, center, v.cfg.Channel) {
			return false
		}
	}
	return true
}
