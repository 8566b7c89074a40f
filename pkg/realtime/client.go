// Package realtime implements a minimal client for the OpenAI Realtime API.
//
// It owns a single outbound WebSocket connection to the Realtime endpoint and
// exchanges JSON events according to the Realtime API protocol. Session
// configuration (voice, optional system instructions) is sent synchronously as
// part of [Client.Connect], so the service has processed the session
// parameters before the first audio chunk arrives. Audio payloads are opaque
// base64 strings passed through unchanged.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

const (
	defaultModel   = "gpt-4o-realtime-mini"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"

	// eventsBuf is the buffer depth of the channel returned by [Client.Events].
	// Delivery order is receipt order; the buffer only absorbs short consumer
	// stalls, it is not a queue for unconsumed responses.
	eventsBuf = 64
)

// ErrNotConnected is returned by operations that require an open connection
// when the client has not been connected or has been closed. It signals a
// contract violation by the caller, not a runtime network condition.
var ErrNotConnected = errors.New("realtime: client not connected")

// ConnectionError wraps a failure to establish or configure the outbound
// connection. It is fatal to the current call session.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "realtime: connect: " + e.Err.Error() }

func (e *ConnectionError) Unwrap() error { return e.Err }

// ── Config / options ──────────────────────────────────────────────────────────

// Config carries the immutable session parameters for a [Client]. The client
// never mutates it.
type Config struct {
	// APIKey is the bearer credential for the Realtime endpoint.
	APIKey string

	// Model selects the realtime model. Empty means the package default.
	Model string

	// Voice selects the synthesised voice for the session.
	Voice string

	// Instructions is an optional system prompt configured at connect time.
	Instructions string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// ── Client ────────────────────────────────────────────────────────────────────

// Client manages one outbound connection to the Realtime service. The zero
// value is not usable; create clients with [New]. A Client is safe for
// concurrent use: the connection supports independent concurrent reads and
// writes, and connection state is guarded internally.
type Client struct {
	cfg     Config
	baseURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan ServerEvent
	cancel context.CancelFunc
	errVal error
}

// New creates a Client for the given session configuration. No connection is
// made until [Client.Connect].
func New(cfg Config, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	c := &Client{
		cfg:     cfg,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect establishes the outbound WebSocket connection. It is idempotent: if
// the client is already connected it returns nil immediately. On success the
// session.update configuration message has been sent and the receive loop is
// running; [Client.Events] yields decoded events until the connection closes.
// Failures are reported as a [*ConnectionError].
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	wsURL := fmt.Sprintf("%s?model=%s", c.baseURL, c.cfg.Model)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.cfg.APIKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("dial: %w", err)}
	}

	connCtx, cancel := context.WithCancel(context.Background())

	if err := writeJSON(ctx, conn, sessionUpdateMessage{
		Type: EventSessionUpdate,
		Session: sessionParams{
			Voice:        c.cfg.Voice,
			Instructions: c.cfg.Instructions,
		},
	}); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "session update failed")
		return &ConnectionError{Err: fmt.Errorf("session update: %w", err)}
	}

	events := make(chan ServerEvent, eventsBuf)
	c.conn = conn
	c.events = events
	c.cancel = cancel
	c.errVal = nil

	go c.receiveLoop(connCtx, conn, events)

	return nil
}

// Close terminates the connection and ends the event sequence. Idempotent:
// calling Close on an already-closed or never-connected client returns nil.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "session closed")
	c.conn = nil
	c.cancel = nil
	return nil
}

// SendAudioChunk appends one opaque base64 audio chunk to the service's input
// buffer. When endOfInput is true it additionally commits the buffer and
// requests a response (see [Client.FinishTurn]). Returns [ErrNotConnected]
// when called before Connect or after Close.
func (c *Client) SendAudioChunk(ctx context.Context, audioBase64 string, endOfInput bool) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := writeJSON(ctx, conn, appendAudioMessage{
		Type:  EventInputAudioAppend,
		Audio: audioBase64,
	}); err != nil {
		return fmt.Errorf("realtime: append audio: %w", err)
	}
	if endOfInput {
		return c.FinishTurn(ctx)
	}
	return nil
}

// FinishTurn signals that no more audio is coming in this turn: it commits
// the input buffer and requests a response. Returns [ErrNotConnected] when
// the client is not connected.
func (c *Client) FinishTurn(ctx context.Context) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := writeJSON(ctx, conn, typeOnlyMessage{Type: EventInputAudioCommit}); err != nil {
		return fmt.Errorf("realtime: commit input: %w", err)
	}
	if err := writeJSON(ctx, conn, responseCreateMessage{Type: EventResponseCreate}); err != nil {
		return fmt.Errorf("realtime: create response: %w", err)
	}
	return nil
}

// Events returns the decoded event sequence for the current connection, in
// receipt order. The channel is closed when the connection closes (normally
// or abnormally) and is not restartable: a fresh Connect yields a fresh
// channel. Returns nil before the first Connect.
func (c *Client) Events() <-chan ServerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// DrainUntilFinished consumes [Client.Events] until a response.completed
// event is observed and returns it with ok=true. When the sequence ends (or
// ctx is done) before a completion arrives, it returns the zero event and
// ok=false. Intended for non-streaming callers, not the hot audio path.
func (c *Client) DrainUntilFinished(ctx context.Context) (ServerEvent, bool) {
	events := c.Events()
	if events == nil {
		return ServerEvent{}, false
	}
	for {
		select {
		case <-ctx.Done():
			return ServerEvent{}, false
		case evt, ok := <-events:
			if !ok {
				return ServerEvent{}, false
			}
			if evt.Type == EventResponseCompleted {
				return evt, true
			}
		}
	}
}

// Err returns the first error that terminated the receive loop, or nil. A
// deliberate Close does not count as an error.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errVal
}

// ── Internals ─────────────────────────────────────────────────────────────────

// connection snapshots the current conn under the lock.
func (c *Client) connection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errVal == nil {
		c.errVal = err
	}
}

// receiveLoop reads frames from conn and delivers decoded events on out. It
// owns out and closes it when it exits, which ends the event sequence for
// consumers. Frames that do not decode as a ServerEvent are skipped: the
// service may introduce event shapes this client does not know about.
func (c *Client) receiveLoop(ctx context.Context, conn *websocket.Conn, out chan<- ServerEvent) {
	defer close(out)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.setErr(err)
			}
			return
		}

		var evt ServerEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		select {
		case out <- evt:
		case <-ctx.Done():
			return
		}
	}
}

// writeJSON marshals v and writes it as a text WebSocket message.
func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
