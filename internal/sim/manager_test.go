package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/testutil"
)

type fakeController struct {
	name    string
	ticks   atomic.Int32
	stopped atomic.Bool
}

func (f *fakeController) Name() string   { return f.name }
func (f *fakeController) Tick(time.Time) { f.ticks.Add(1) }
func (f *fakeController) Stop()          { f.stopped.Store(true) }

func TestManagerRegisterUnregister(t *testing.T) {
	m := NewManager(nil, time.Second)
	c := &fakeController{name: "a"}

	m.Register(c)
	assert.Equal(t, 1, m.Count())
	got, err := m.Controller("a")
	require.NoError(t, err)
	assert.Same(t, c, got)

	m.Unregister("a")
	assert.Equal(t, 0, m.Count())
	assert.True(t, c.stopped.Load())
	_, err = m.Controller("a")
	assert.Error(t, err)

	// Unknown names are ignored.
	m.Unregister("a")
	assert.Equal(t, 0, m.Count())
}

func TestManagerRegisterReplaces(t *testing.T) {
	m := NewManager(nil, time.Second)
	first := &fakeController{name: "a"}
	second := &fakeController{name: "a"}

	m.Register(first)
	m.Register(second)
	assert.Equal(t, 1, m.Count())
	assert.True(t, first.stopped.Load())
	assert.False(t, second.stopped.Load())
}

func TestManagerStartTicksUntilStop(t *testing.T) {
	mock := clock.NewMock()
	m := NewManager(mock, 100*time.Millisecond)
	c := &fakeController{name: "a"}
	m.Register(c)

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		mock.Add(100 * time.Millisecond)
		return c.ticks.Load() >= 3
	}, 5*time.Second, time.Millisecond)

	m.Stop()
	m.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.True(t, c.stopped.Load())
	assert.Equal(t, 0, m.Count())
}

func TestManagerStartCancelled(t *testing.T) {
	m := NewManager(clock.NewMock(), time.Second)
	ctx, cancel := testutil.ContextWithCancel(t)
	cancel()
	assert.ErrorIs(t, m.Start(ctx), context.Canceled)
}
