package octree

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/testutil"
)

func TestGateSearchWaitsForGeneration(t *testing.T) {
	g := NewGate()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.BeginSearch(ctx), context.DeadlineExceeded)

	g.MarkGenerated()
	require.NoError(t, g.BeginSearch(testutil.ContextWithTimeout(t, time.Second)))
	assert.Equal(t, 1, g.State().Pathfinders)
	g.EndSearch()
	assert.Equal(t, GateState{Generated: true}, g.State())
}

func TestGateWriterPriority(t *testing.T) {
	g := NewGate()
	g.MarkGenerated()
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	require.NoError(t, g.BeginSearch(ctx))

	entered := make(chan error, 1)
	go func() { entered <- g.BeginGeneration(ctx) }()
	require.Eventually(t, func() bool { return g.State().GeneratorsWaiting == 1 }, time.Second, time.Millisecond)

	// A queued generator holds back new searches.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.BeginSearch(short), context.DeadlineExceeded)

	g.EndSearch()
	require.NoError(t, <-entered)
	assert.Equal(t, 1, g.State().GeneratorsActive)

	// Generators share the gate.
	require.NoError(t, g.BeginGeneration(ctx))
	assert.Equal(t, 2, g.State().GeneratorsActive)
	g.EndGeneration()
	g.EndGeneration()

	require.NoError(t, g.BeginSearch(ctx))
	g.EndSearch()
}

func TestGateCloseReleasesWaiters(t *testing.T) {
	g := NewGate()
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	searchErr := make(chan error, 1)
	waitErr := make(chan error, 1)
	go func() { searchErr <- g.BeginSearch(ctx) }()
	go func() { waitErr <- g.WaitGenerated(ctx) }()

	g.Close()
	assert.ErrorIs(t, <-searchErr, ErrVolumeClosed)
	assert.ErrorIs(t, <-waitErr, ErrVolumeClosed)
	assert.ErrorIs(t, g.BeginGeneration(ctx), ErrVolumeClosed)
	require.NoError(t, g.WaitIdle(ctx))
	assert.True(t, g.State().Closed)
}

func TestGateWaitIdle(t *testing.T) {
	g := NewGate()
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)
	require.NoError(t, g.BeginGeneration(ctx))

	idle := make(chan error, 1)
	go func() { idle <- g.WaitIdle(ctx) }()

	select {
	case <-idle:
		t.Fatal("WaitIdle returned while a generator is active")
	case <-time.After(20 * time.Millisecond):
	}
	g.EndGeneration()
	require.NoError(t, <-idle)
}

func TestGateUnbalancedEndPanics(t *testing.T) {
	g := NewGate()
	assert.Panics(t, g.EndSearch)
	assert.Panics(t, g.EndGeneration)
}

func TestGateExclusion(t *testing.T) {
	g := NewGate()
	g.MarkGenerated()
	ctx := testutil.ContextWithTimeout(t, 10*time.Second)

	var (
		writers   atomic.Int32
		readers   atomic.Int32
		violation atomic.Bool
		wg        sync.WaitGroup
	)
	check := func() {
		if writers.Load() > 0 && readers.Load() > 0 {
			violation.Store(true)
		}
	}

	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(i), 7))
			for range 200 {
				// Some attempts give up before entering.
				attempt, cancel := context.WithTimeout(ctx, time.Duration(rng.IntN(200))*time.Microsecond)
				if i%4 == 0 {
					if g.BeginGeneration(attempt) == nil {
						writers.Add(1)
						check()
						time.Sleep(time.Duration(rng.IntN(50)) * time.Microsecond)
						writers.Add(-1)
						g.EndGeneration()
					}
				} else if g.BeginSearch(attempt) == nil {
					readers.Add(1)
					check()
					time.Sleep(time.Duration(rng.IntN(50)) * time.Microsecond)
					readers.Add(-1)
					g.EndSearch()
				}
				cancel()
			}
		}()
	}
	wg.Wait()

	assert.False(t, violation.Load(), "generator and search ran together")
	st := g.State()
	assert.Zero(t, st.GeneratorsRunning())
	assert.Zero(t, st.Pathfinders)
}
