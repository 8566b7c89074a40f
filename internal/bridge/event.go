package bridge

import (
	"encoding/json"
	"fmt"
)

// FrameKind is the closed set of telephony media-stream event tags the bridge
// recognises. Frames with any other tag decode as FrameUnknown and are
// ignored by the inbound loop.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameStart
	FrameMedia
	FrameMark
	FrameConnected
	FrameStop
	FrameClose
)

// String returns the wire tag for the kind, or "unknown".
func (k FrameKind) String() string {
	switch k {
	case FrameStart:
		return "start"
	case FrameMedia:
		return "media"
	case FrameMark:
		return "mark"
	case FrameConnected:
		return "connected"
	case FrameStop:
		return "stop"
	case FrameClose:
		return "close"
	}
	return "unknown"
}

// DecodeError reports an inbound frame that could not be parsed as JSON. It
// is a protocol error and terminates the inbound loop.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "bridge: decode frame: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Frame is one decoded inbound telephony event. StreamID is set for start
// frames, Audio (base64) for media frames; both are empty otherwise.
type Frame struct {
	Kind     FrameKind
	StreamID string
	Audio    string
}

// rawFrame tolerates the two field spellings the telephony provider has used
// for the event discriminator ("event"/"type") and the stream identifier
// ("streamId"/"stream_id").
type rawFrame struct {
	Event       string `json:"event"`
	Type        string `json:"type"`
	StreamID    string `json:"streamId"`
	StreamIDAlt string `json:"stream_id"`
	Media       *struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// DecodeFrame parses one inbound JSON text frame into a [Frame]. Malformed
// JSON yields a [*DecodeError]; an unrecognised tag yields FrameUnknown, not
// an error.
func DecodeFrame(data []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return Frame{}, &DecodeError{Err: err}
	}

	tag := raw.Event
	if tag == "" {
		tag = raw.Type
	}

	f := Frame{}
	switch tag {
	case "start":
		f.Kind = FrameStart
		f.StreamID = raw.StreamID
		if f.StreamID == "" {
			f.StreamID = raw.StreamIDAlt
		}
	case "media":
		f.Kind = FrameMedia
		if raw.Media != nil {
			f.Audio = raw.Media.Payload
		}
	case "mark":
		f.Kind = FrameMark
	case "connected":
		f.Kind = FrameConnected
	case "stop":
		f.Kind = FrameStop
	case "close":
		f.Kind = FrameClose
	default:
		f.Kind = FrameUnknown
	}
	return f, nil
}

// ── Outgoing frames ───────────────────────────────────────────────────────────

type readyFrame struct {
	Event string `json:"event"`
}

type mediaFrame struct {
	Event    string       `json:"event"`
	StreamID string       `json:"streamId"`
	Media    mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

// encodeReady returns the one-per-call readiness acknowledgement frame.
func encodeReady() ([]byte, error) {
	return json.Marshal(readyFrame{Event: "ready"})
}

// encodeMedia returns an outbound media frame addressed to streamID.
func encodeMedia(streamID, audioBase64 string) ([]byte, error) {
	data, err := json.Marshal(mediaFrame{
		Event:    "media",
		StreamID: streamID,
		Media:    mediaPayload{Payload: audioBase64},
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: encode media frame: %w", err)
	}
	return data, nil
}
