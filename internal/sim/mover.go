package sim

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/udisondev/voxpath/internal/config"
	"github.com/udisondev/voxpath/internal/geo"
	"github.com/udisondev/voxpath/internal/octree"
)

// ObstacleTracker follows moving obstacles. *octree.Volume implements it.
type ObstacleTracker interface {
	Track(o octree.Obstacle)
	Untrack(o octree.Obstacle)
}

// MoverController moves a dynamic obstacle back and forth along its
// waypoints at constant speed.
type MoverController struct {
	name      string
	scene     *geo.Scene
	tracker   ObstacleTracker
	mover     *geo.Mover
	speed     float64
	waypoints []r3.Vector

	next int
	dir  int
	last time.Time
}

// NewMover places the configured body at its first waypoint and starts tracking it.
func NewMover(scene *geo.Scene, tracker ObstacleTracker, spec config.Mover) *MoverController {
	wps := make([]r3.Vector, len(spec.Waypoints))
	for i, w := range spec.Waypoints {
		wps[i] = w.R3()
	}

	var m *geo.Mover
	if spec.Shape == "sphere" {
		m = scene.AddMoverSphere(spec.Name, wps[0], spec.Radius)
	} else {
		m = scene.AddMoverBox(spec.Name, wps[0], spec.Half.R3())
	}
	tracker.Track(m)

	next := 0
	if len(wps) > 1 {
		next = 1
	}
	return &MoverController{
		name:      spec.Name,
		scene:     scene,
		tracker:   tracker,
		mover:     m,
		speed:     spec.Speed,
		waypoints: wps,
		next:      next,
		dir:       1,
	}
}

func (c *MoverController) Name() string { return c.name }

// Position returns the obstacle's current centre.
func (c *MoverController) Position() r3.Vector { return c.mover.Center() }

func (c *MoverController) Tick(now time.Time) {
	if c.last.IsZero() {
		c.last = now
		return
	}
	step := c.speed * now.Sub(c.last).Seconds()
	c.last = now
	if step <= 0 || len(c.waypoints) < 2 {
		return
	}

	pos := c.mover.Center()
	// Bounded so coincident waypoints cannot spin forever.
	for range 2 * len(c.waypoints) {
		to := c.waypoints[c.next]
		d := pos.Distance(to)
		if d > step {
			pos = pos.Add(to.Sub(pos).Mul(step / d))
			break
		}
		pos = to
		step -= d
		c.advance()
		if step <= 0 {
			break
		}
	}
	c.mover.MoveTo(pos)
}

// advance picks the next waypoint, reversing at either end.
func (c *MoverController) advance() {
	if c.next+c.dir < 0 || c.next+c.dir >= len(c.waypoints) {
		c.dir = -c.dir
	}
	c.next += c.dir
}

// Stop untracks the obstacle and removes it from the scene.
func (c *MoverController) Stop() {
	c.tracker.Untrack(c.mover)
	c.scene.RemoveMover(c.mover)
}
