package geo

// GridLine walks the integer cells of a 3D Bresenham line, start and end
// included.
type GridLine struct {
	cur, target [3]int32
	delta, step [3]int32
	err         [2]int32
	major       int
	minor       [2]int
	steps, done int32
	started     bool
}

// NewGridLine creates a line walker between two cells.
func NewGridLine(sx, sy, sz, ex, ey, ez int32) *GridLine {
	g := &GridLine{
		cur:    [3]int32{sx, sy, sz},
		target: [3]int32{ex, ey, ez},
	}
	for i := range 3 {
		g.delta[i] = abs32(g.target[i] - g.cur[i])
		g.step[i] = 1
		if g.target[i] < g.cur[i] {
			g.step[i] = -1
		}
	}

	switch {
	case g.delta[0] >= g.delta[1] && g.delta[0] >= g.delta[2]:
		g.major, g.minor = 0, [2]int{1, 2}
	case g.delta[1] >= g.delta[2]:
		g.major, g.minor = 1, [2]int{0, 2}
	default:
		g.major, g.minor = 2, [2]int{0, 1}
	}
	g.steps = g.delta[g.major]
	g.err[0] = g.steps / 2
	g.err[1] = g.steps / 2
	return g
}

// Next advances to the next cell; the first call yields the start cell.
func (g *GridLine) Next() bool {
	if !g.started {
		g.started = true
		return true
	}
	if g.cur == g.target {
		return false
	}

	g.cur[g.major] += g.step[g.major]
	for k, axis := range g.minor {
		g.err[k] += g.delta[axis]
		if g.err[k] >= g.steps {
			g.cur[axis] += g.step[axis]
			g.err[k] -= g.steps
		}
	}
	g.done++
	return true
}

func (g *GridLine) X() int32 { return g.cur[0] }
func (g *GridLine) Y() int32 { return g.cur[1] }
func (g *GridLine) Z() int32 { return g.cur[2] }

// Progress returns how far along the line the walker is, in [0,1].
func (g *GridLine) Progress() float64 {
	if g.steps == 0 {
		return 1
	}
	return float64(g.done) / float64(g.steps)
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
