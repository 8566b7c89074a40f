package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment fallbacks
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills environment fallbacks for credentials and package
// defaults for empty session parameters.
func applyDefaults(cfg *Config) {
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = DefaultRealtimeModel
	}
	if cfg.OpenAI.Voice == "" {
		cfg.OpenAI.Voice = DefaultVoice
	}
	if cfg.SignalWire.APIToken == "" {
		cfg.SignalWire.APIToken = os.Getenv("SIGNALWIRE_API_TOKEN")
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key is required (or set OPENAI_API_KEY)"))
	}

	// The SignalWire space block is only needed by the relay room helper;
	// when partially filled it is almost certainly a mistake.
	sw := cfg.SignalWire
	if sw.SpaceURL != "" || sw.ProjectID != "" || sw.APIToken != "" {
		if sw.SpaceURL == "" || sw.ProjectID == "" || sw.APIToken == "" {
			errs = append(errs, errors.New("signalwire.space_url, signalwire.project_id, and signalwire.api_token must be set together"))
		}
	} else {
		slog.Warn("signalwire credentials not configured; the relay room helper is disabled")
	}

	if sw.StreamURL == "" {
		slog.Warn("signalwire.stream_url is empty; the voice webhook will return a placeholder stream URL")
	}

	return errors.Join(errs...)
}
