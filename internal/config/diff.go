package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TutorChanged is true when call timeout, temperature, or max tokens
	// changed. These apply to the next turn without a restart.
	TutorChanged bool

	// SpeechChanged is true when the speech credentials or defaults changed.
	// Credentials are resolved per request, so this takes effect immediately.
	SpeechChanged bool

	// ProviderChanged is true when the LLM provider entry changed. Swapping
	// the provider requires a restart; the watcher only reports it.
	ProviderChanged bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Tutor != new.Tutor {
		d.TutorChanged = true
	}

	if old.Speech != new.Speech {
		d.SpeechChanged = true
	}

	if !providerEntryEqual(old.Providers.LLM, new.Providers.LLM) {
		d.ProviderChanged = true
	}

	return d
}

// providerEntryEqual compares entries including the free-form Options map,
// whose values may be nested maps from YAML decoding.
func providerEntryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return reflect.DeepEqual(a.Options, b.Options)
}
