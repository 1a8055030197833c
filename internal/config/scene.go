package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/voxpath/internal/geo"
)

// Scene lists the world geometry and the actors of the simulation.
type Scene struct {
	Boxes   []Box    `yaml:"boxes"`
	Spheres []Sphere `yaml:"spheres"`
	Terrain *Terrain `yaml:"terrain"`
	Movers  []Mover  `yaml:"movers"`
	Patrols []Patrol `yaml:"patrols"`
}

type Box struct {
	Center Vec3 `yaml:"center"`
	Half   Vec3 `yaml:"half"`
}

type Sphere struct {
	Center Vec3    `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

// Terrain is a flat heightfield with optional raised columns.
type Terrain struct {
	Origin   Vec3     `yaml:"origin"`
	CellSize float64  `yaml:"cell_size"`
	Width    int      `yaml:"width"`
	Depth    int      `yaml:"depth"`
	Columns  []Column `yaml:"columns"`
}

// Column raises one terrain cell to an absolute height.
type Column struct {
	X      int     `yaml:"x"`
	Y      int     `yaml:"y"`
	Height float64 `yaml:"height"`
}

// Mover is a dynamic obstacle patrolling its waypoints.
type Mover struct {
	Name      string  `yaml:"name"`
	Shape     string  `yaml:"shape"` // box or sphere
	Half      Vec3    `yaml:"half"`
	Radius    float64 `yaml:"radius"`
	Speed     float64 `yaml:"speed"` // units per second
	Waypoints []Vec3  `yaml:"waypoints"`
}

// Patrol is a simulated agent that requests paths between its waypoints.
type Patrol struct {
	Name      string `yaml:"name"`
	Waypoints []Vec3 `yaml:"waypoints"`
}

// LoadScene loads a scene from a YAML file. A missing file yields an empty
// scene.
func LoadScene(path string) (Scene, error) {
	var s Scene

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading scene %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing scene %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// Validate reports every problem in the scene at once.
func (s Scene) Validate() error {
	var err error
	for i, b := range s.Boxes {
		if b.Half[0] <= 0 || b.Half[1] <= 0 || b.Half[2] <= 0 {
			err = multierr.Append(err, fmt.Errorf("box %d: half extents must be positive", i))
		}
	}
	for i, sp := range s.Spheres {
		if sp.Radius <= 0 {
			err = multierr.Append(err, fmt.Errorf("sphere %d: radius must be positive", i))
		}
	}
	if s.Terrain != nil && (s.Terrain.CellSize <= 0 || s.Terrain.Width <= 0 || s.Terrain.Depth <= 0) {
		err = multierr.Append(err, errors.New("terrain: cell size and dimensions must be positive"))
	}
	for _, m := range s.Movers {
		switch m.Shape {
		case "box":
			if m.Half[0] <= 0 || m.Half[1] <= 0 || m.Half[2] <= 0 {
				err = multierr.Append(err, fmt.Errorf("mover %q: half extents must be positive", m.Name))
			}
		case "sphere":
			if m.Radius <= 0 {
				err = multierr.Append(err, fmt.Errorf("mover %q: radius must be positive", m.Name))
			}
		default:
			err = multierr.Append(err, fmt.Errorf("mover %q: unknown shape %q", m.Name, m.Shape))
		}
		if len(m.Waypoints) == 0 {
			err = multierr.Append(err, fmt.Errorf("mover %q: needs at least one waypoint", m.Name))
		}
		if m.Speed < 0 {
			err = multierr.Append(err, fmt.Errorf("mover %q: speed must not be negative", m.Name))
		}
	}
	for _, a := range s.Patrols {
		if len(a.Waypoints) < 2 {
			err = multierr.Append(err, fmt.Errorf("patrol %q: needs at least two waypoints", a.Name))
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Build adds the static geometry to a new geo.Scene. Movers are placed by
// the simulation.
func (s Scene) Build() (*geo.Scene, error) {
	scene := geo.NewScene()
	for _, b := range s.Boxes {
		scene.AddBox(b.Center.R3(), b.Half.R3())
	}
	for _, sp := range s.Spheres {
		scene.AddSphere(sp.Center.R3(), sp.Radius)
	}
	if t := s.Terrain; t != nil {
		ter, err := geo.NewTerrain(t.Origin.R3(), t.CellSize, t.Width, t.Depth)
		if err != nil {
			return nil, fmt.Errorf("building terrain: %w", err)
		}
		for _, c := range t.Columns {
			ter.SetHeight(c.X, c.Y, c.Height)
		}
		scene.SetTerrain(ter)
	}
	return scene, nil
}
