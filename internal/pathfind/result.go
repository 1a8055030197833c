package pathfind

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/udisondev/voxpath/internal/octree"
)

// FailReason tells why a request produced no path.
type FailReason uint8

const (
	FailNone FailReason = iota
	FailVolumeNotValid
	FailVolumeNotGenerated
	FailTimeout
	FailWrongStartLocation
	FailWrongEndLocation
	FailEndLocationUnreachable
	FailUnknown
)

func (r FailReason) String() string {
	switch r {
	case FailNone:
		return "None"
	case FailVolumeNotValid:
		return "VolumeNotValid"
	case FailVolumeNotGenerated:
		return "VolumeNotGenerated"
	case FailTimeout:
		return "Timeout"
	case FailWrongStartLocation:
		return "WrongStartLocation"
	case FailWrongEndLocation:
		return "WrongEndLocation"
	case FailEndLocationUnreachable:
		return "EndLocationUnreachable"
	default:
		return "Unknown"
	}
}

// Request defaults.
const (
	DefaultSmoothingPasses = 2
	DefaultTimeLimit       = 200 * time.Millisecond
	DefaultAngleTolerance  = 3.0 // degrees
	DefaultReadyTimeout    = 5 * time.Second
)

// Request describes one path search.
type Request struct {
	ID     uuid.UUID
	Volume *octree.Volume
	Start  r3.Vector
	End    r3.Vector

	// SmoothingPasses is the number of line-of-sight passes; 0 disables
	// smoothing.
	SmoothingPasses int
	// UserData is handed to the volume's policy on every step.
	UserData int32
	// TimeLimit bounds the expansion loop; <= 0 selects DefaultTimeLimit.
	TimeLimit time.Duration
	// AngleTolerance in degrees for merging user path segments; <= 0
	// selects DefaultAngleTolerance.
	AngleTolerance float64

	WantRawPath  bool
	WantUserPath bool
}

// NewRequest returns a request with a fresh ID and default parameters.
func NewRequest(vol *octree.Volume, start, end r3.Vector) Request {
	return Request{
		ID:              uuid.New(),
		Volume:          vol,
		Start:           start,
		End:             end,
		SmoothingPasses: DefaultSmoothingPasses,
		TimeLimit:       DefaultTimeLimit,
		WantUserPath:    true,
	}
}

func (r Request) timeLimit() time.Duration {
	if r.TimeLimit <= 0 {
		return DefaultTimeLimit
	}
	return r.TimeLimit
}

func (r Request) angleTolerance() float64 {
	if r.AngleTolerance <= 0 {
		return DefaultAngleTolerance
	}
	return r.AngleTolerance
}

// PathPoint is a user path vertex with the unit direction toward the next
// vertex; the last vertex has a zero normal.
type PathPoint struct {
	Position r3.Vector
	Normal   r3.Vector
}

// Result is the outcome of one request.
type Result struct {
	RequestID  uuid.UUID
	FailReason FailReason

	// UserPath is the smoothed, angle-merged path from start to end.
	UserPath []PathPoint
	// RawPath is the search chain before smoothing, start first. Prev
	// indexes into RawPath.
	RawPath []AStarNode

	SearchDuration time.Duration
	// PathLength is the geometric length of the smoothed path.
	PathLength     float64
	NodesVisited   int
	NodesProcessed int
}

// Found reports whether a path was produced.
func (r *Result) Found() bool { return r.FailReason == FailNone }

// Callback receives a finished result on the pool's tick goroutine.
type Callback func(*Result)
