package pathfind

import (
	"container/heap"
	"context"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"

	"github.com/udisondev/voxpath/internal/octree"
)

// Engine runs weighted A* over a volume. An Engine is reused across
// searches but runs one at a time; the pool gives each worker its own.
type Engine struct {
	clock clock.Clock
	stop  atomic.Bool

	processed []AStarNode
	open      openHeap
	visited   map[octree.Key]struct{}
	neighbors []octree.Neighbor
}

// NewEngine creates an engine timing searches with c, or the wall clock
// when c is nil.
func NewEngine(c clock.Clock) *Engine {
	if c == nil {
		c = clock.New()
	}
	return &Engine{
		clock:   c,
		visited: make(map[octree.Key]struct{}),
	}
}

// Stop makes the running search, and every later one, return without a
// path. Used when tearing the owning worker down.
func (e *Engine) Stop() { e.stop.Store(true) }

func (e *Engine) reset() {
	e.processed = e.processed[:0]
	e.open = e.open[:0]
	clear(e.visited)
}

func (e *Engine) stopped(ctx context.Context, vol *octree.Volume) bool {
	if e.stop.Load() || ctx.Err() != nil {
		return true
	}
	select {
	case <-vol.Done():
		return true
	default:
		return false
	}
}

// Search runs one request against req.Volume. The caller must hold the
// volume's gate as a searcher.
func (e *Engine) Search(ctx context.Context, req Request) *Result {
	began := e.clock.Now()
	res := e.search(ctx, req, began)
	res.SearchDuration = e.clock.Since(began)

	if IsDebugEnabled() {
		slog.Debug("path search finished",
			"request", req.ID,
			"reason", res.FailReason,
			"took", res.SearchDuration,
			"visited", res.NodesVisited,
			"processed", res.NodesProcessed,
			"points", len(res.UserPath))
	}
	return res
}

func (e *Engine) search(ctx context.Context, req Request, began time.Time) *Result {
	res := &Result{RequestID: req.ID}
	vol := req.Volume
	if vol == nil || vol.Closed() {
		res.FailReason = FailVolumeNotValid
		return res
	}
	if !vol.Generated() {
		res.FailReason = FailVolumeNotGenerated
		return res
	}

	e.reset()
	startKey, startNode, ok := vol.FindClosestFreeLeaf(req.Start, 0)
	if !ok {
		res.FailReason = FailWrongStartLocation
		return res
	}
	targetKey, _, ok := vol.FindClosestFreeLeaf(req.End, 0)
	if !ok {
		res.FailReason = FailWrongEndLocation
		return res
	}
	target := vol.WorldPosition(targetKey)
	policy := vol.Policy()
	limit := req.timeLimit()

	first := AStarNode{Key: startKey, Position: req.Start, Prev: noPrev, Data: startNode.Data()}
	_, first.Fitness = policy.Fitness(vol, octree.Step{From: req.Start, To: req.Start, Data: first.Data}, target, req.UserData)
	heap.Push(&e.open, first)
	e.visited[startKey] = struct{}{}

	found := noPrev
	for e.open.Len() > 0 {
		if e.stopped(ctx, vol) {
			res.FailReason = FailUnknown
			return res
		}

		cur := heap.Pop(&e.open).(AStarNode)
		e.processed = append(e.processed, cur)
		idx := int32(len(e.processed) - 1)
		if cur.Key == targetKey {
			found = idx
			break
		}

		e.neighbors = vol.AppendNeighborLeaves(cur.Key, true, e.neighbors[:0])
		for _, nb := range e.neighbors {
			if _, seen := e.visited[nb.Key]; seen {
				continue
			}
			pos := vol.WorldPosition(nb.Key)
			step := octree.Step{From: cur.Position, FromDistance: cur.Distance, To: pos, Data: nb.Data}
			dist, fit := policy.Fitness(vol, step, target, req.UserData)
			e.visited[nb.Key] = struct{}{}
			heap.Push(&e.open, AStarNode{Key: nb.Key, Fitness: fit, Distance: dist, Position: pos, Prev: idx, Data: nb.Data})
		}

		if e.clock.Since(began) >= limit {
			res.FailReason = FailTimeout
			res.NodesVisited = len(e.visited)
			res.NodesProcessed = len(e.processed)
			return res
		}
	}

	res.NodesVisited = len(e.visited)
	res.NodesProcessed = len(e.processed)
	if found == noPrev {
		res.FailReason = FailEndLocationUnreachable
		return res
	}

	// Snap the last vertex to the exact requested end.
	if endKey, endNode, ok := vol.FindLeaf(req.End, false); ok && e.processed[found].Position != req.End {
		last := e.processed[found]
		e.processed = append(e.processed, AStarNode{
			Key:      endKey,
			Distance: last.Distance + last.Position.Distance(req.End),
			Position: req.End,
			Prev:     found,
			Data:     endNode.Data(),
		})
		found = int32(len(e.processed) - 1)
	}

	if req.WantRawPath {
		res.RawPath = e.chain(found)
	}
	for range req.SmoothingPasses {
		if !e.smooth(ctx, vol, found) {
			res.RawPath = nil
			res.FailReason = FailUnknown
			return res
		}
	}

	back := e.positions(found)
	res.PathLength = polylineLength(back)
	if req.WantUserPath {
		res.UserPath = projectUserPath(back, math.Cos(req.angleTolerance()*math.Pi/180))
	}
	return res
}

// chain copies the nodes ending at end in start-to-end order, rewriting
// Prev to index the copy.
func (e *Engine) chain(end int32) []AStarNode {
	var out []AStarNode
	for i := end; i != noPrev; i = e.processed[i].Prev {
		out = append(out, e.processed[i])
	}
	slices.Reverse(out)
	for i := range out {
		out[i].Prev = int32(i) - 1
	}
	return out
}

// positions returns the chain's positions from end back to start.
func (e *Engine) positions(end int32) []r3.Vector {
	var out []r3.Vector
	for i := end; i != noPrev; i = e.processed[i].Prev {
		out = append(out, e.processed[i].Position)
	}
	return out
}

// smooth runs one line-of-sight pass from the end backward, bypassing a
// vertex whenever its two neighbours see each other. It returns false if
// the search was stopped.
func (e *Engine) smooth(ctx context.Context, vol *octree.Volume, end int32) bool {
	cur := end
	for {
		if e.stopped(ctx, vol) {
			return false
		}
		p := e.processed[cur].Prev
		if p == noPrev {
			return true
		}
		pp := e.processed[p].Prev
		if pp == noPrev {
			return true
		}
		if vol.CanSweep(e.processed[cur].Position, e.processed[pp].Position) {
			e.processed[cur].Prev = pp
		}
		cur = e.processed[cur].Prev
	}
}

// projectUserPath merges consecutive segments of back (end first) whose
// directions agree within cosTol and returns the vertices start first.
func projectUserPath(back []r3.Vector, cosTol float64) []PathPoint {
	if len(back) == 0 {
		return nil
	}
	out := []PathPoint{{Position: back[0]}}
	if len(back) == 1 {
		return out
	}

	cur, prev := 0, 1
	normal := back[cur].Sub(back[prev]).Normalize()
	for prev+1 < len(back) {
		next := back[prev].Sub(back[prev+1]).Normalize()
		if normal.Dot(next) >= cosTol {
			prev++
			normal = back[cur].Sub(back[prev]).Normalize()
			continue
		}
		out = append(out, PathPoint{Position: back[prev], Normal: normal})
		cur = prev
		prev++
		normal = next
	}
	out = append(out, PathPoint{Position: back[prev], Normal: normal})

	slices.Reverse(out)
	return out
}

func polylineLength(pts []r3.Vector) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += pts[i].Distance(pts[i-1])
	}
	return l
}
