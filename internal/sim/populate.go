package sim

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/udisondev/voxpath/internal/config"
	"github.com/udisondev/voxpath/internal/geo"
	"github.com/udisondev/voxpath/internal/pathfind"
)

// PatrolOptions configures the requests patrols send.
type PatrolOptions struct {
	Requester PathRequester
	// Template carries the volume and per-request defaults.
	Template pathfind.Request
	Interval time.Duration
	Hook     ResultHook
}

// Populate registers a controller for every mover and patrol in spec.
func (m *Manager) Populate(spec config.Scene, scene *geo.Scene, tracker ObstacleTracker, opts PatrolOptions) {
	for _, mv := range spec.Movers {
		m.Register(NewMover(scene, tracker, mv))
	}
	for _, pt := range spec.Patrols {
		wps := make([]r3.Vector, len(pt.Waypoints))
		for i, w := range pt.Waypoints {
			wps[i] = w.R3()
		}
		m.Register(NewPatrol(pt.Name, wps, opts.Requester, opts.Template, opts.Interval, opts.Hook))
	}
}
