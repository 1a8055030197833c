package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/testutil"
)

type memStore struct {
	mu       sync.Mutex
	batches  [][]PathStat
	prunedAt []time.Time
	failNext bool
}

func (m *memStore) RecordBatch(_ context.Context, stats []PathStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return testutil.ErrSimulated
	}
	m.batches = append(m.batches, stats)
	return nil
}

func (m *memStore) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunedAt = append(m.prunedAt, before)
	return 0, nil
}

func (m *memStore) recorded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestRecorderFlush(t *testing.T) {
	mock := clock.NewMock()
	store := &memStore{}
	r := NewRecorder(store, mock, time.Second, 0)

	require.NoError(t, r.Flush(context.Background()))
	assert.Empty(t, store.batches, "empty flush writes nothing")

	r.Add(PathStat{RequestID: uuid.New(), FailReason: "None"})
	r.Add(PathStat{RequestID: uuid.New(), FailReason: "Timeout", CreatedAt: time.Unix(5, 0)})
	assert.Equal(t, 2, r.Buffered())

	require.NoError(t, r.Flush(context.Background()))
	require.Len(t, store.batches, 1)
	assert.Equal(t, mock.Now(), store.batches[0][0].CreatedAt)
	assert.Equal(t, time.Unix(5, 0), store.batches[0][1].CreatedAt)
	assert.Zero(t, r.Buffered())
}

func TestRecorderFlushFailureDropsBatch(t *testing.T) {
	store := &memStore{failNext: true}
	r := NewRecorder(store, clock.NewMock(), time.Second, 0)

	r.Add(PathStat{RequestID: uuid.New()})
	assert.ErrorIs(t, r.Flush(context.Background()), testutil.ErrSimulated)
	assert.Zero(t, r.Buffered())
}

func TestRecorderBufferCap(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, clock.NewMock(), time.Second, 0)
	for range maxBuffered + 5 {
		r.Add(PathStat{})
	}
	assert.Equal(t, maxBuffered, r.Buffered())

	require.NoError(t, r.Flush(context.Background()))
	assert.Equal(t, maxBuffered, store.recorded())
}

func TestRecorderRun(t *testing.T) {
	mock := clock.NewMock()
	store := &memStore{}
	r := NewRecorder(store, mock, time.Second, time.Hour)

	ctx, cancel := testutil.ContextWithCancel(t)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Add(PathStat{RequestID: uuid.New()})
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.prunedAt) > 0
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 1, store.recorded())

	store.mu.Lock()
	assert.True(t, store.prunedAt[0].Before(mock.Now().Add(-59*time.Minute)))
	store.mu.Unlock()

	// Stats added after the last tick are written on shutdown.
	r.Add(PathStat{RequestID: uuid.New()})
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 2, store.recorded())
}
