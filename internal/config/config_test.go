package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lingualeap/lingualeap/internal/config"
	"github.com/lingualeap/lingualeap/pkg/provider/llm"
	llmmock "github.com/lingualeap/lingualeap/pkg/provider/llm/mock"
	"github.com/lingualeap/lingualeap/pkg/provider/speech"
	speechmock "github.com/lingualeap/lingualeap/pkg/provider/speech/mock"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
    options:
      organization: org-123

speech:
  key: azkey
  region: westeurope
  default_voice: en-US-AvaMultilingualNeural

tutor:
  call_timeout: 30s
  temperature: 0.8
  max_tokens: 2048
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Providers.LLM.Name != "openai" {
		t.Errorf("providers.llm.name: got %q, want %q", cfg.Providers.LLM.Name, "openai")
	}
	if got := cfg.Providers.LLM.Options["organization"]; got != "org-123" {
		t.Errorf("providers.llm.options.organization: got %v", got)
	}
	if cfg.Speech.Region != "westeurope" {
		t.Errorf("speech.region: got %q", cfg.Speech.Region)
	}
	if cfg.Tutor.CallTimeout != 30*time.Second {
		t.Errorf("tutor.call_timeout: got %s", cfg.Tutor.CallTimeout)
	}
	if cfg.Tutor.MaxTokens != 2048 {
		t.Errorf("tutor.max_tokens: got %d", cfg.Tutor.MaxTokens)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	// An empty config should succeed (no required top-level fields).
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownLLM(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "nonexistent"})
	if err == nil {
		t.Fatal("expected error for unknown LLM provider")
	}
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownSpeech(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateSpeech("nonexistent", config.SpeechConfig{})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_RegisteredLLM(t *testing.T) {
	reg := config.NewRegistry()
	want := &llmmock.Provider{}
	reg.RegisterLLM("stub", func(e config.ProviderEntry) (llm.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateLLM(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_RegisteredSpeech(t *testing.T) {
	reg := config.NewRegistry()
	want := &speechmock.Provider{}
	reg.RegisterSpeech("stub", func(c config.SpeechConfig) (speech.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateSpeech("stub", config.SpeechConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

// TestRegistry_SpeechConfigForwarded checks that the config handed to
// CreateSpeech reaches the factory unchanged; the server resolves credentials
// per request and passes the result through here.
func TestRegistry_SpeechConfigForwarded(t *testing.T) {
	reg := config.NewRegistry()
	var got config.SpeechConfig
	reg.RegisterSpeech("stub", func(c config.SpeechConfig) (speech.Provider, error) {
		got = c
		return &speechmock.Provider{}, nil
	})
	want := config.SpeechConfig{Key: "k1", Region: "westeurope", OutputFormat: "riff-16khz-16bit-mono-pcm"}
	if _, err := reg.CreateSpeech("stub", want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("factory received %+v, want %+v", got, want)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterLLM("broken", func(e config.ProviderEntry) (llm.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}
