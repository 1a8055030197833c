package pathfind

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/udisondev/voxpath/internal/octree"
)

// FindPath runs req synchronously on the calling goroutine, waiting up to
// DefaultReadyTimeout for the volume to become searchable.
func FindPath(ctx context.Context, req Request) *Result {
	return runRequest(ctx, NewEngine(nil), req, DefaultReadyTimeout)
}

// runRequest enters the volume's gate as a searcher and runs e. A volume
// that does not become searchable within readyTimeout fails with
// FailVolumeNotGenerated.
func runRequest(ctx context.Context, e *Engine, req Request, readyTimeout time.Duration) *Result {
	ctx, span := otel.Tracer("voxpath/pathfind").Start(ctx, "pathfind.Search",
		trace.WithAttributes(attribute.String("request", req.ID.String())))
	defer span.End()

	res := enterAndSearch(ctx, e, req, readyTimeout)
	span.SetAttributes(
		attribute.String("fail_reason", res.FailReason.String()),
		attribute.Int("nodes_processed", res.NodesProcessed),
	)
	return res
}

func enterAndSearch(ctx context.Context, e *Engine, req Request, readyTimeout time.Duration) *Result {
	vol := req.Volume
	if vol == nil {
		return &Result{RequestID: req.ID, FailReason: FailVolumeNotValid}
	}

	wait, cancel := context.WithTimeout(ctx, readyTimeout)
	err := vol.Gate().BeginSearch(wait)
	cancel()
	if err != nil {
		return &Result{RequestID: req.ID, FailReason: gateFailReason(ctx, err)}
	}
	defer vol.Gate().EndSearch()

	return e.Search(ctx, req)
}

func gateFailReason(ctx context.Context, err error) FailReason {
	switch {
	case errors.Is(err, octree.ErrVolumeClosed):
		return FailVolumeNotValid
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return FailVolumeNotGenerated
	default:
		return FailUnknown
	}
}
