package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/echowire/internal/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug

openai:
  api_key: sk-test
  model: gpt-4o-realtime-mini
  voice: alloy
  instructions: You are a friendly phone assistant.

signalwire:
  space_url: example.signalwire.com
  project_id: proj-1
  api_token: tok-1
  stream_url: wss://bridge.example.com/signalwire/stream
  room_name: lobby
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":9090")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("openai.api_key: got %q, want sk-test", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Voice != "alloy" {
		t.Errorf("openai.voice: got %q, want alloy", cfg.OpenAI.Voice)
	}
	if cfg.SignalWire.SpaceURL != "example.signalwire.com" {
		t.Errorf("signalwire.space_url: got %q", cfg.SignalWire.SpaceURL)
	}
	if cfg.SignalWire.StreamURL != "wss://bridge.example.com/signalwire/stream" {
		t.Errorf("signalwire.stream_url: got %q", cfg.SignalWire.StreamURL)
	}
	if cfg.SignalWire.RoomName != "lobby" {
		t.Errorf("signalwire.room_name: got %q, want lobby", cfg.SignalWire.RoomName)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("openai:\n  api_key: sk-test\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr default: got %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.OpenAI.Model != config.DefaultRealtimeModel {
		t.Errorf("model default: got %q, want %q", cfg.OpenAI.Model, config.DefaultRealtimeModel)
	}
	if cfg.OpenAI.Voice != config.DefaultVoice {
		t.Errorf("voice default: got %q, want %q", cfg.OpenAI.Voice, config.DefaultVoice)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	const badYAML = `
openai:
  api_key: sk-test
  tempreature: 0.5
`
	if _, err := config.LoadFromReader(strings.NewReader(badYAML)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_APIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("api_key: got %q, want sk-from-env", cfg.OpenAI.APIKey)
	}
}

func TestLoadFromReader_MissingAPIKey_Fails(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := config.LoadFromReader(strings.NewReader("{}")); err == nil {
		t.Fatal("expected error when no API key is configured")
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_InvalidLogLevel(t *testing.T) {
	const badYAML = `
server:
  log_level: verbose
openai:
  api_key: sk-test
`
	_, err := config.LoadFromReader(strings.NewReader(badYAML))
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error %q should mention log_level", err)
	}
}

func TestValidate_PartialSignalWireCredentials(t *testing.T) {
	const badYAML = `
openai:
  api_key: sk-test
signalwire:
  space_url: example.signalwire.com
`
	t.Setenv("SIGNALWIRE_API_TOKEN", "")

	_, err := config.LoadFromReader(strings.NewReader(badYAML))
	if err == nil {
		t.Fatal("expected error for partial signalwire credentials")
	}
	if !strings.Contains(err.Error(), "signalwire") {
		t.Errorf("error %q should mention signalwire", err)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	const badYAML = `
server:
  log_level: loud
signalwire:
  project_id: proj-1
`
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SIGNALWIRE_API_TOKEN", "")

	_, err := config.LoadFromReader(strings.NewReader(badYAML))
	if err == nil {
		t.Fatal("expected joined validation error")
	}
	for _, want := range []string{"log_level", "api_key", "signalwire"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	for _, lvl := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !lvl.IsValid() {
			t.Errorf("%q should be valid", lvl)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error("trace should not be valid")
	}
}

// ── File loading ──────────────────────────────────────────────────────────────

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("api_key: got %q, want sk-test", cfg.OpenAI.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
