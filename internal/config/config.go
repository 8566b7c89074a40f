// Package config provides the configuration schema and loader for the
// Echowire voice bridge.
package config

// LogLevel controls log verbosity for the Echowire server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Default session parameters applied when the config leaves them empty.
const (
	DefaultRealtimeModel = "gpt-4o-realtime-mini"
	DefaultVoice         = "verse"
)

// Config is the root configuration structure for Echowire.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	SignalWire SignalWireConfig `yaml:"signalwire"`
}

// ServerConfig holds network and logging settings for the Echowire server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// OpenAIConfig holds the Realtime session parameters. The bridge treats it as
// immutable input; it is never mutated or persisted.
type OpenAIConfig struct {
	// APIKey is the bearer credential for the Realtime endpoint. Falls back
	// to the OPENAI_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// Model selects the realtime model. Empty means [DefaultRealtimeModel].
	Model string `yaml:"model"`

	// Voice selects the synthesised voice. Empty means [DefaultVoice].
	Voice string `yaml:"voice"`

	// Instructions is an optional system prompt for the session.
	Instructions string `yaml:"instructions"`

	// BaseURL overrides the Realtime WebSocket endpoint. Leave empty for the
	// production endpoint; set in tests to point at a mock server.
	BaseURL string `yaml:"base_url"`
}

// SignalWireConfig holds the telephony-side settings: the space credentials
// used by the relay room helper and the public stream URL returned by the
// voice webhook.
type SignalWireConfig struct {
	// SpaceURL is the SignalWire space domain (e.g., "example.signalwire.com").
	SpaceURL string `yaml:"space_url"`

	// ProjectID identifies the SignalWire project.
	ProjectID string `yaml:"project_id"`

	// APIToken authenticates relay requests. Falls back to the
	// SIGNALWIRE_API_TOKEN environment variable when empty.
	APIToken string `yaml:"api_token"`

	// StreamURL is the public wss:// URL of this server's media-stream
	// endpoint, substituted into the webhook response. A placeholder is used
	// when empty.
	StreamURL string `yaml:"stream_url"`

	// RoomName is an optional video room the service joins at startup via the
	// relay endpoint. Requires the space credentials above.
	RoomName string `yaml:"room_name"`
}
