package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation, warns for unknown names.
	validateProviderName("llm", cfg.Providers.LLM.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the tutoring endpoints will not be able to respond")
	}

	// Speech credentials are resolved per request, so missing values are not
	// an error here. Half-configured credentials are still worth flagging.
	hasKey := cfg.Speech.Key != "" || os.Getenv("AZURE_SPEECH_KEY") != ""
	hasRegion := cfg.Speech.Region != "" || os.Getenv("AZURE_SPEECH_REGION") != ""
	if hasKey != hasRegion {
		slog.Warn("speech credentials are incomplete; /api/tts will fail until both key and region are set",
			"has_key", hasKey,
			"has_region", hasRegion,
		)
	}

	// Tutor tuning
	if cfg.Tutor.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("tutor.call_timeout %s must not be negative", cfg.Tutor.CallTimeout))
	}
	if cfg.Tutor.Temperature < 0 || cfg.Tutor.Temperature > 2 {
		errs = append(errs, fmt.Errorf("tutor.temperature %.2f is out of range [0, 2]", cfg.Tutor.Temperature))
	}
	if cfg.Tutor.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("tutor.max_tokens %d must not be negative", cfg.Tutor.MaxTokens))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

// SpeechKey returns the effective Azure subscription key, preferring the
// AZURE_SPEECH_KEY environment variable over the config file.
func (c *Config) SpeechKey() string {
	if v := os.Getenv("AZURE_SPEECH_KEY"); v != "" {
		return v
	}
	return c.Speech.Key
}

// SpeechRegion returns the effective Azure region, preferring the
// AZURE_SPEECH_REGION environment variable over the config file.
func (c *Config) SpeechRegion() string {
	if v := os.Getenv("AZURE_SPEECH_REGION"); v != "" {
		return v
	}
	return c.Speech.Region
}
