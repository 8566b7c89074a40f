// Package httpapi exposes the Echowire HTTP surface: the telephony voice
// webhook, the media-stream WebSocket endpoint that feeds the bridge, and the
// operational endpoints (health, readiness, metrics).
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/echowire/internal/bridge"
	"github.com/MrWong99/echowire/internal/config"
	"github.com/MrWong99/echowire/internal/health"
	"github.com/MrWong99/echowire/internal/observe"
	"github.com/MrWong99/echowire/pkg/realtime"
)

// placeholderStreamURL is returned by the voice webhook when no public stream
// URL is configured, matching the provider's documentation examples.
const placeholderStreamURL = "wss://YOUR_SERVER_DOMAIN/signalwire/stream"

// streamXML is the webhook response instructing the telephony provider to
// connect its media stream to the given WebSocket URL.
const streamXML = `<Response>
    <Connect>
        <Stream url="%s"/>
    </Connect>
</Response>`

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithMetrics wires metric instruments into the server and its bridges.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithUpstreamFactory overrides how a per-call Realtime upstream is built.
// Used in tests to substitute fakes.
func WithUpstreamFactory(f func() bridge.Upstream) Option {
	return func(s *Server) { s.newUpstream = f }
}

// Server holds the HTTP handlers for the Echowire service. One Server serves
// many calls; each accepted media stream gets its own [bridge.Bridge] and
// Realtime connection.
type Server struct {
	cfg         *config.Config
	metrics     *observe.Metrics
	newUpstream func() bridge.Upstream
}

// New creates a Server from cfg. Unless overridden, each call dials a fresh
// Realtime client configured from the openai config block.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.newUpstream == nil {
		s.newUpstream = func() bridge.Upstream {
			var rtOpts []realtime.Option
			if cfg.OpenAI.BaseURL != "" {
				rtOpts = append(rtOpts, realtime.WithBaseURL(cfg.OpenAI.BaseURL))
			}
			return realtime.New(realtime.Config{
				APIKey:       cfg.OpenAI.APIKey,
				Model:        cfg.OpenAI.Model,
				Voice:        cfg.OpenAI.Voice,
				Instructions: cfg.OpenAI.Instructions,
			}, rtOpts...)
		}
	}
	return s
}

// Handler returns the full route tree. When metrics are configured the tree
// is wrapped in [observe.Middleware].
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signalwire/voice", s.handleVoiceWebhook)
	mux.HandleFunc("GET /signalwire/stream", s.handleStream)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.Handle("GET /metrics", promhttp.Handler())

	health.New().
		AddProbe("openai", s.probeUpstreamConfig).
		AddProbe("telephony", s.probeTelephonyConfig).
		Routes(mux)

	if s.metrics == nil {
		return mux
	}
	return observe.Middleware(s.metrics)(mux)
}

// handleVoiceWebhook answers the telephony provider's call webhook with an
// XML document instructing it to stream the call audio to this server.
func (s *Server) handleVoiceWebhook(w http.ResponseWriter, _ *http.Request) {
	streamURL := s.cfg.SignalWire.StreamURL
	if streamURL == "" {
		streamURL = placeholderStreamURL
	}
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, streamXML, streamURL)
}

// handleStream accepts one inbound media-stream WebSocket and runs a bridge
// for the lifetime of the call. The handler returns when the call ends.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("media stream accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	slog.Info("media stream connected", "remote", r.RemoteAddr)

	var opts []bridge.Option
	if s.metrics != nil {
		opts = append(opts, bridge.WithMetrics(s.metrics))
	}
	br := bridge.New(wsPeer{conn: conn}, s.newUpstream(), opts...)

	if err := br.Run(r.Context()); err != nil {
		slog.Error("bridge terminated", "err", err)
		conn.Close(websocket.StatusInternalError, "bridge error")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "call ended")
}

// handleRoot serves a small service banner.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintln(w, `{"service":"echowire","message":"voice bridge is running"}`)
}

// probeUpstreamConfig verifies the Realtime credentials and endpoint the
// audio path depends on, so a misconfigured deploy fails its readiness probe
// instead of failing its first call.
func (s *Server) probeUpstreamConfig(context.Context) error {
	if s.cfg.OpenAI.APIKey == "" {
		return errors.New("openai api key not configured")
	}
	if base := s.cfg.OpenAI.BaseURL; base != "" {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("openai base url %q is not a websocket url", base)
		}
	}
	return nil
}

// probeTelephonyConfig flags a stream URL the telephony provider could never
// connect to. An empty URL passes: the webhook then answers with the
// documentation placeholder.
func (s *Server) probeTelephonyConfig(context.Context) error {
	if stream := s.cfg.SignalWire.StreamURL; stream != "" {
		u, err := url.Parse(stream)
		if err != nil || u.Scheme != "wss" {
			return fmt.Errorf("signalwire stream url %q is not a wss url", stream)
		}
	}
	return nil
}

// wsPeer adapts a [websocket.Conn] to the [bridge.Peer] interface. A normal
// peer-initiated close surfaces as io.EOF so the bridge can tell a hang-up
// from a transport fault.
type wsPeer struct {
	conn *websocket.Conn
}

func (p wsPeer) Read(ctx context.Context) ([]byte, error) {
	_, data, err := p.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

func (p wsPeer) Write(ctx context.Context, data []byte) error {
	return p.conn.Write(ctx, websocket.MessageText, data)
}
