package bridge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/echowire/internal/bridge"
)

func TestLatch_InitiallyUnset(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()
	if l.IsSet() {
		t.Error("new latch should not be set")
	}
}

func TestLatch_SetReleasesWaiter(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		done <- l.Wait(ctx)
	}()

	l.Set()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait returned %v; want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for Wait to return")
	}
	if !l.IsSet() {
		t.Error("IsSet() = false after Set")
	}
}

func TestLatch_SetIdempotent(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()
	l.Set()
	l.Set() // must not panic on the already-closed channel
	if !l.IsSet() {
		t.Error("IsSet() = false after repeated Set")
	}
}

func TestLatch_WaitAfterSet_ReturnsImmediately(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()
	l.Set()
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Wait after Set = %v; want nil", err)
	}
}

func TestLatch_WaitCancelledContext_ReturnsError(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait = %v; want context.Canceled", err)
	}
}

func TestLatch_ManyWaiters_AllReleased(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()

	const waiters = 8
	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for range waiters {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			errs <- l.Wait(ctx)
		})
	}

	l.Set()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("waiter returned %v; want nil", err)
		}
	}
}

func TestLatch_Done_ClosedAfterSet(t *testing.T) {
	t.Parallel()
	l := bridge.NewLatch()

	select {
	case <-l.Done():
		t.Fatal("Done() should not be closed before Set")
	default:
	}

	l.Set()

	select {
	case <-l.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("Done() not closed after Set")
	}
}
