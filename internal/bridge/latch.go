package bridge

import (
	"context"
	"sync"
)

// Latch is a one-shot broadcast signal: settable once, observable by any
// number of waiters. The bridge uses it for session readiness — written
// exactly once by the inbound loop when the stream identifier becomes known,
// read by the outbound loop before any audio is forwarded to the peer.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch returns an unset Latch.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Set releases all current and future waiters. Subsequent calls are no-ops.
func (l *Latch) Set() {
	l.once.Do(func() { close(l.ch) })
}

// Wait blocks until the latch is set or ctx is done, returning ctx.Err() in
// the latter case.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once the latch is set.
func (l *Latch) Done() <-chan struct{} { return l.ch }

// IsSet reports whether the latch has been set.
func (l *Latch) IsSet() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}
