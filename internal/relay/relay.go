// Package relay implements the small JSON-RPC exchange used to attach the
// service to a SignalWire video room. This is control plane only; call audio
// never flows through it.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// Client performs one-shot exchanges against the SignalWire relay endpoint.
type Client struct {
	baseURL   string
	projectID string
	token     string
}

// Option configures a Client beyond its required fields.
type Option func(*Client)

// WithBaseURL overrides the relay endpoint URL. Mainly used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// New creates a relay client for the given SignalWire space and project
// credentials. spaceURL is the bare space host, e.g. "example.signalwire.com".
func New(spaceURL, projectID, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:   fmt.Sprintf("wss://%s/relay", spaceURL),
		projectID: projectID,
		token:     token,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// response is the subset of the JSON-RPC reply we care about.
type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

// ConnectRoom authenticates against the relay endpoint and joins the named
// video room, then closes the connection. It returns the first error the
// server reports.
func (c *Client) ConnectRoom(ctx context.Context, room string) error {
	basic := base64.StdEncoding.EncodeToString([]byte(c.projectID + ":" + c.token))
	conn, _, err := websocket.Dial(ctx, c.baseURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Basic " + basic},
			"SW-Project":    []string{c.projectID},
		},
	})
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := c.call(ctx, conn, request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "signalwire.connect",
		Params: map[string]any{
			"project": c.projectID,
			"token":   c.token,
		},
	}); err != nil {
		return fmt.Errorf("signalwire.connect: %w", err)
	}

	if err := c.call(ctx, conn, request{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "video.room.connect",
		Params: map[string]any{
			"room": room,
		},
	}); err != nil {
		return fmt.Errorf("video.room.connect: %w", err)
	}
	return nil
}

// call sends one request and waits for its reply.
func (c *Client) call(ctx context.Context, conn *websocket.Conn, req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return err
	}
	_, raw, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}
