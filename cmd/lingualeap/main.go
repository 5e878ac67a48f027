// Command lingualeap is the main entry point for the LinguaLeap tutoring server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/lingualeap/lingualeap/internal/config"
	"github.com/lingualeap/lingualeap/internal/gateway"
	"github.com/lingualeap/lingualeap/internal/health"
	"github.com/lingualeap/lingualeap/internal/httpapi"
	"github.com/lingualeap/lingualeap/internal/observe"
	"github.com/lingualeap/lingualeap/internal/tutor"
	"github.com/lingualeap/lingualeap/pkg/provider/llm"
	"github.com/lingualeap/lingualeap/pkg/provider/llm/anyllm"
	oaillm "github.com/lingualeap/lingualeap/pkg/provider/llm/openai"
	"github.com/lingualeap/lingualeap/pkg/provider/speech"
	"github.com/lingualeap/lingualeap/pkg/provider/speech/azure"
)

const defaultListenAddr = ":8080"

// speechProviderName selects the registered speech synthesis backend.
const speechProviderName = "azure"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lingualeap: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lingualeap: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("lingualeap starting",
		"config", *configPath,
		"listen_addr", listenAddr(cfg),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "lingualeap",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	modelProvider, err := buildModelProvider(cfg, reg)
	if err != nil {
		slog.Error("failed to build model provider", "err", err)
		return 1
	}

	// ── Tutoring core ─────────────────────────────────────────────────────────
	gwOpts := []gateway.Option{gateway.WithMetrics(metrics)}
	if cfg.Tutor.Temperature != 0 {
		gwOpts = append(gwOpts, gateway.WithTemperature(cfg.Tutor.Temperature))
	}
	if cfg.Tutor.MaxTokens != 0 {
		gwOpts = append(gwOpts, gateway.WithMaxTokens(cfg.Tutor.MaxTokens))
	}
	gw := gateway.New(modelProvider, gwOpts...)

	svcOpts := []tutor.Option{tutor.WithMetrics(metrics)}
	if cfg.Tutor.CallTimeout > 0 {
		svcOpts = append(svcOpts, tutor.WithCallTimeout(cfg.Tutor.CallTimeout))
	}
	svc := tutor.New(gw, svcOpts...)

	// ── Speech synthesis ──────────────────────────────────────────────────────
	// Credentials are resolved on every request so that keys provided through
	// the environment after startup still work, and missing credentials fail
	// the synthesis call rather than the server.
	speechFactory := func() (speech.Provider, error) {
		sc := cfg.Speech
		sc.Key, sc.Region = cfg.SpeechKey(), cfg.SpeechRegion()
		return reg.CreateSpeech(speechProviderName, sc)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	healthHandler := health.New(
		health.ModelProvider(modelProvider),
		health.SpeechCredentials(func() (string, string) {
			return cfg.SpeechKey(), cfg.SpeechRegion()
		}),
	)

	server := httpapi.New(svc, speechFactory,
		httpapi.WithHealth(healthHandler),
		httpapi.WithMetrics(metrics),
		httpapi.WithDefaultVoice(cfg.Speech.DefaultVoice),
	)

	httpServer := &http.Server{
		Addr:              listenAddr(cfg),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config watcher: hot-reload the log level ──────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.ProviderChanged {
			slog.Warn("providers.llm changed on disk; restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// "openai" uses the native SDK adapter for its JSON response mode; the other
// LLM backends go through the any-llm bridge. Speech synthesis is Azure.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile all
	// share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})

	reg.RegisterSpeech(speechProviderName, func(sc config.SpeechConfig) (speech.Provider, error) {
		var opts []azure.Option
		if sc.OutputFormat != "" {
			opts = append(opts, azure.WithOutputFormat(sc.OutputFormat))
		}
		return azure.New(sc.Key, sc.Region, opts...)
	})
}

// buildModelProvider instantiates the configured LLM provider.
func buildModelProvider(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	name := cfg.Providers.LLM.Name
	if name == "" {
		return nil, errors.New("providers.llm.name is not configured")
	}
	p, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", p.Name(), "model", cfg.Providers.LLM.Model)
	return p, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func listenAddr(cfg *config.Config) string {
	if cfg.Server.ListenAddr != "" {
		return cfg.Server.ListenAddr
	}
	return defaultListenAddr
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
