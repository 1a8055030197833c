package octree

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// generator regenerates a contiguous slice [first, last) of roots. With
// indices set the slice is into that list, otherwise into the root array.
type generator struct {
	vol     *Volume
	indices []uint32
	first   int
	last    int
}

func (g generator) outer(i int) uint32 {
	if g.indices != nil {
		return g.indices[i]
	}
	return uint32(i)
}

// run enters the gate as a generator and regenerates its slice, stopping at
// the next root boundary once ctx is done.
func (g generator) run(ctx context.Context) error {
	if err := g.vol.gate.BeginGeneration(ctx); err != nil {
		return err
	}
	defer g.vol.gate.EndGeneration()

	for i := g.first; i < g.last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.vol.regenerate(g.outer(i))
	}
	return nil
}

// outerIndexesPerThread is the obstacle workload one generator takes before
// another one is started.
func (v *Volume) outerIndexesPerThread() int {
	d := v.cfg.Depth
	return 5 * (5 + d) * int(math.Pow(8, float64(MaxDepth-d)))
}

func (v *Volume) maxThreads() int {
	return max(1, min(v.cfg.MaxGenerationThreads, runtime.NumCPU()))
}

// bind derives a context that is also cancelled when the volume closes.
func (v *Volume) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// track registers a running batch so Close can wait for it.
func (v *Volume) track() bool {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	if v.closed.Load() {
		return false
	}
	v.batches.Add(1)
	return true
}

// runBatch splits total roots over threads generators and waits for all of
// them.
func (v *Volume) runBatch(ctx context.Context, kind string, indices []uint32, total, threads int) error {
	ctx, span := otel.Tracer("octree").Start(ctx, "octree.GenerationBatch",
		trace.WithAttributes(
			attribute.String("kind", kind),
			attribute.Int("roots", total),
			attribute.Int("threads", threads),
		))
	defer span.End()

	started := v.clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	per := total / threads
	for t := range threads {
		gen := generator{vol: v, indices: indices, first: per * t, last: per * (t + 1)}
		if t == threads-1 {
			gen.last = total
		}
		g.Go(func() error { return gen.run(gctx) })
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation aborted")
		return err
	}

	took := v.clock.Since(started)
	v.metrics.observeBatch(kind, total, took)
	span.SetAttributes(attribute.Int64("duration_us", took.Microseconds()))
	return nil
}

// Generate builds the whole forest and marks the volume searchable. It
// blocks until generation finishes, ctx is cancelled or the volume closes.
func (v *Volume) Generate(ctx context.Context) error {
	if !v.track() {
		return ErrVolumeClosed
	}
	defer v.batches.Done()

	ctx, cancel := v.bind(ctx)
	defer cancel()

	total := len(v.roots)
	threads := min(v.maxThreads(), total)
	if err := v.runBatch(ctx, batchInitial, nil, total, threads); err != nil {
		if v.closed.Load() {
			return ErrVolumeClosed
		}
		return fmt.Errorf("generating volume: %w", err)
	}
	v.gate.MarkGenerated()

	nx, ny, nz := v.GridSize()
	slog.Info("volume generated",
		"roots", total,
		"grid", fmt.Sprintf("%dx%dx%d", nx, ny, nz),
		"depth", v.cfg.Depth,
		"threads", threads)
	return nil
}
