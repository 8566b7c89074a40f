// Package bridge relays audio between one inbound telephony media stream and
// one outbound Realtime session.
//
// A Bridge owns exactly one call: it reads start/media/stop event frames from
// the telephony peer, forwards audio chunks upstream, and mirrors the
// service's synthesised audio deltas back as telephony media frames. The two
// forwarding loops run under [Supervise]: whichever loop finishes first
// cancels the other, and the upstream connection is released exactly once on
// every exit path.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/MrWong99/echowire/internal/observe"
	"github.com/MrWong99/echowire/pkg/realtime"
)

// Peer is the inbound telephony websocket as the bridge sees it: JSON text
// frames in receipt order. Read and Write must be safe to call concurrently
// with each other (standard for message-based duplex connections).
type Peer interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Upstream is the Realtime client surface the bridge consumes. Implemented by
// [realtime.Client]; tests substitute fakes. Err reports the terminal receive
// error once the event sequence has ended, so the bridge can tell a
// deliberate close from a lost connection.
type Upstream interface {
	Connect(ctx context.Context) error
	Close() error
	SendAudioChunk(ctx context.Context, audioBase64 string, endOfInput bool) error
	FinishTurn(ctx context.Context) error
	Events() <-chan realtime.ServerEvent
	Err() error
}

// session is the per-call state shared between the two loops. streamID is
// written exactly once by the inbound loop before ready is set, and read-only
// thereafter by the outbound loop; the latch ordering makes that safe without
// further locking.
type session struct {
	streamID string
	ready    *Latch
}

// Option is a functional option for configuring a Bridge.
type Option func(*Bridge)

// WithMetrics wires call metrics into the bridge. Without it the bridge
// records nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// Bridge orchestrates one telephony call session. Create with [New], drive
// with [Bridge.Run]; a Bridge is single-use.
type Bridge struct {
	peer     Peer
	upstream Upstream
	session  *session
	metrics  *observe.Metrics
}

// New creates a Bridge for one call between peer and upstream.
func New(peer Peer, upstream Upstream, opts ...Option) *Bridge {
	b := &Bridge{
		peer:     peer,
		upstream: upstream,
		session:  &session{ready: NewLatch()},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run connects the upstream session and runs the two forwarding loops until
// one of them finishes. The upstream connection is released exactly once
// before Run returns, on every exit path. The error of the first loop to
// finish is returned; a clean finish (peer hung up, upstream session closed
// deliberately) returns nil.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.upstream.Connect(ctx); err != nil {
		return fmt.Errorf("bridge: connect upstream: %w", err)
	}
	release := releaseOnce(b.upstream.Close)
	defer release()

	if b.metrics != nil {
		b.metrics.CallStarted(ctx)
		start := time.Now()
		defer func() { b.metrics.CallEnded(ctx, time.Since(start)) }()
	}

	err := Supervise(ctx, b.receiveFromPeer, b.forwardUpstream)

	// Release the upstream connection before the peer socket is handed back
	// to the transport layer, so no audio can trail a decided outcome.
	release()
	return err
}

// ── Inbound loop: telephony → Realtime ───────────────────────────────────────

// receiveFromPeer reads inbound frames one at a time and dispatches them. It
// returns nil when the call ends (stop/close frame or peer disconnect) and an
// error for protocol or upstream write failures, which fail the call.
func (b *Bridge) receiveFromPeer(ctx context.Context) error {
	logger := observe.Logger(ctx)
	for {
		data, err := b.peer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Info("telephony peer disconnected")
			} else {
				logger.Warn("telephony peer read failed", "err", err)
			}
			return nil
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			// A malformed frame fails the call outright; the peer's framing
			// is part of the protocol contract and there is no way to resync
			// mid-stream.
			return err
		}

		if b.metrics != nil {
			b.metrics.RecordInboundFrame(ctx, frame.Kind.String())
		}

		switch frame.Kind {
		case FrameStart:
			if err := b.handleStart(ctx, frame); err != nil {
				return err
			}

		case FrameMedia:
			if frame.Audio == "" {
				continue
			}
			if err := b.upstream.SendAudioChunk(ctx, frame.Audio, false); err != nil {
				return fmt.Errorf("bridge: forward audio: %w", err)
			}

		case FrameMark, FrameConnected:
			// No-ops in the media stream protocol.

		case FrameStop, FrameClose:
			// End of call: flush the upstream turn, then stop processing
			// inbound events.
			if err := b.upstream.FinishTurn(ctx); err != nil {
				return fmt.Errorf("bridge: finish turn: %w", err)
			}
			logger.Info("telephony stream ended", "stream_id", b.session.streamID)
			return nil

		default:
			logger.Debug("ignoring unrecognised telephony frame")
		}
	}
}

// handleStart records the stream identifier, acknowledges the peer, and
// releases the readiness latch. A start frame without an identifier is
// logged and ignored; a repeated start after readiness is ignored to keep
// the stream identifier write-once.
func (b *Bridge) handleStart(ctx context.Context, frame Frame) error {
	logger := observe.Logger(ctx)
	if frame.StreamID == "" {
		logger.Warn("start frame missing stream id")
		return nil
	}
	if b.session.ready.IsSet() {
		logger.Debug("duplicate start frame", "stream_id", frame.StreamID)
		return nil
	}

	b.session.streamID = frame.StreamID

	ack, err := encodeReady()
	if err != nil {
		return err
	}
	if err := b.peer.Write(ctx, ack); err != nil {
		return fmt.Errorf("bridge: acknowledge start: %w", err)
	}

	b.session.ready.Set()
	logger.Info("telephony stream ready", "stream_id", frame.StreamID)
	return nil
}

// ── Outbound loop: Realtime → telephony ──────────────────────────────────────

// forwardUpstream mirrors upstream audio deltas to the peer as media frames.
// Deltas arriving before session readiness are dropped, not queued: the peer
// cannot be addressed until the stream identifier is known. Service-reported
// error events are logged and the loop continues. The loop ends on a peer
// write failure or when the event sequence does; in the latter case the
// upstream's terminal error decides between a clean finish and a lost
// connection, which fails the call.
func (b *Bridge) forwardUpstream(ctx context.Context) error {
	logger := observe.Logger(ctx)
	events := b.upstream.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-events:
			if !ok {
				if err := b.upstream.Err(); err != nil {
					return fmt.Errorf("bridge: upstream connection lost: %w", err)
				}
				logger.Info("upstream event stream ended")
				return nil
			}

			switch evt.Type {
			case realtime.EventOutputAudioDelta:
				if evt.Delta == nil || evt.Delta.Audio == "" {
					continue
				}
				if !b.session.ready.IsSet() {
					logger.Debug("dropping audio delta before stream ready")
					continue
				}
				frame, err := encodeMedia(b.session.streamID, evt.Delta.Audio)
				if err != nil {
					return err
				}
				if err := b.peer.Write(ctx, frame); err != nil {
					return fmt.Errorf("bridge: send media frame: %w", err)
				}
				if b.metrics != nil {
					b.metrics.RecordOutboundAudio(ctx)
				}

			case realtime.EventResponseCompleted:
				// A call may contain many turns; completion is informational.
				logger.Debug("upstream response completed")

			case realtime.EventError:
				// Non-fatal: a transient service error should not tear down
				// an otherwise healthy call.
				msg := "unknown error"
				if evt.Error != nil && evt.Error.Message != "" {
					msg = evt.Error.Message
				}
				logger.Error("upstream error event", "message", msg)
				if b.metrics != nil {
					b.metrics.RecordUpstreamError(ctx)
				}
			}
		}
	}
}
