package testutil

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

// WaitForTCPReady polls addr until a TCP connection succeeds.
//
//	go srv.ListenAndServe()
//	if err := testutil.WaitForTCPReady(addr, 5*time.Second); err != nil {
//	    t.Fatalf("server failed to start: %v", err)
//	}
func WaitForTCPReady(addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for server at %s: %w", addr, ctx.Err())
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}

// WaitFor polls check until it returns true and fails the test after
// timeout. Unlike assert.Eventually it runs check on the test goroutine.
func WaitFor(t testing.TB, check func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		if check() {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("condition not met within %v", timeout)
		case <-ticker.C:
		}
	}
}
