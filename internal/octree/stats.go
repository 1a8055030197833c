package octree

import (
	"context"
	"fmt"
)

// Stats counts leaves by depth.
type Stats struct {
	Roots          int
	FreeLeaves     [MaxDepth + 1]int
	OccupiedLeaves [MaxDepth + 1]int
}

// Leaves returns the total number of leaves.
func (s Stats) Leaves() int {
	n := 0
	for d := range s.FreeLeaves {
		n += s.FreeLeaves[d] + s.OccupiedLeaves[d]
	}
	return n
}

// FreeRatio returns the fraction of leaves that are free.
func (s Stats) FreeRatio() float64 {
	total := s.Leaves()
	if total == 0 {
		return 0
	}
	free := 0
	for _, n := range s.FreeLeaves {
		free += n
	}
	return float64(free) / float64(total)
}

// Stats walks the forest as a searcher and counts leaves by depth.
func (v *Volume) Stats(ctx context.Context) (Stats, error) {
	if err := v.gate.BeginSearch(ctx); err != nil {
		return Stats{}, fmt.Errorf("collecting volume stats: %w", err)
	}
	defer v.gate.EndSearch()

	s := Stats{Roots: len(v.roots)}
	for i := range v.roots {
		v.roots[i].countLeaves(0, &s.FreeLeaves, &s.OccupiedLeaves)
	}
	return s, nil
}
