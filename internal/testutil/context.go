package testutil

import (
	"context"
	"testing"
	"time"
)

// ContextWithTimeout returns a context cancelled when the test finishes.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}

// ContextWithCancel returns a cancellable context that is also cancelled
// when the test finishes.
func ContextWithCancel(t testing.TB) (context.Context, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx, cancel
}
