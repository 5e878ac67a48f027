// Package config provides the configuration schema, loader, and provider
// registry for the LinguaLeap tutoring server.
package config

import "time"

// LogLevel controls log verbosity for the LinguaLeap server.
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

// Config is the root configuration structure for LinguaLeap.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Speech    SpeechConfig    `yaml:"speech"`
	Tutor     TutorConfig     `yaml:"tutor"`
}

// ServerConfig holds network and logging settings for the LinguaLeap server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which model provider implementation backs the
// tutoring gateway. The entry selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// SpeechConfig holds Azure Cognitive Services credentials and defaults for
// the text-to-speech endpoint. Key and Region may be left empty in the file
// and supplied through the AZURE_SPEECH_KEY and AZURE_SPEECH_REGION
// environment variables instead; resolution happens per synthesis request,
// so the server starts fine without them.
type SpeechConfig struct {
	// Key is the Azure subscription key. Overridden by AZURE_SPEECH_KEY when
	// that variable is set.
	Key string `yaml:"key"`

	// Region is the Azure service region (e.g., "westeurope"). Overridden by
	// AZURE_SPEECH_REGION when that variable is set.
	Region string `yaml:"region"`

	// DefaultVoice overrides the per-language voice table when non-empty.
	DefaultVoice string `yaml:"default_voice"`

	// OutputFormat is the Azure audio output format identifier. Leave empty
	// for the provider default (24 kHz 48 kbit/s mono MP3).
	OutputFormat string `yaml:"output_format"`
}

// TutorConfig tunes the model-call behaviour of the tutoring service.
type TutorConfig struct {
	// CallTimeout bounds each individual model call within a turn.
	// Zero means the service default.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// Temperature is the sampling temperature passed to the model.
	// Zero means the provider default.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the completion length per model call. Zero means no cap.
	MaxTokens int `yaml:"max_tokens"`
}
