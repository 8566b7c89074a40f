package realtime

// Event type tags used on the Realtime wire. Outgoing messages use the first
// four; incoming events carry one of the remaining tags or an unrecognised
// value (delivered as-is so callers can ignore it).
const (
	EventSessionUpdate     = "session.update"
	EventInputAudioAppend  = "input_audio_buffer.append"
	EventInputAudioCommit  = "input_audio_buffer.commit"
	EventResponseCreate    = "response.create"
	EventOutputAudioDelta  = "response.output_audio.delta"
	EventResponseCompleted = "response.completed"
	EventError             = "error"
)

// ── Outgoing messages ─────────────────────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Voice        string `json:"voice,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type typeOnlyMessage struct {
	Type string `json:"type"`
}

type responseCreateMessage struct {
	Type     string   `json:"type"`
	Response struct{} `json:"response"`
}

// ── Incoming events ───────────────────────────────────────────────────────────

// ServerEvent is one decoded event from the service. Type is always set;
// Delta and Error are populated only for the corresponding event tags.
// Events are transient: constructed, consumed, and discarded.
type ServerEvent struct {
	Type string `json:"type"`

	// Delta carries the synthesised audio chunk of a
	// response.output_audio.delta event.
	Delta *AudioDelta `json:"delta,omitempty"`

	// Error carries the detail of a service-reported error event. These are
	// application-level errors and do not terminate the connection.
	Error *ErrorDetail `json:"error,omitempty"`
}

// AudioDelta is the nested payload of an output audio delta event.
type AudioDelta struct {
	Audio string `json:"audio"`
}

// ErrorDetail is the nested error object of an error event:
// {"type":"error","error":{"type":"...","code":"...","message":"..."}}.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
