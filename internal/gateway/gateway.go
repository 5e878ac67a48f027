// Package gateway abstracts the generative-language-model backend behind a
// narrow capability: render a prompt template, request one completion, and
// validate the model's structured output against a JSON schema.
//
// Requesters depend only on [Invoker]; nothing above this package knows which
// provider SDK is in use or how the model was coaxed into emitting JSON.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lingualeap/lingualeap/internal/observe"
	"github.com/lingualeap/lingualeap/pkg/provider/llm"
)

// ErrSchemaViolation is returned when the model's output parses as JSON but
// does not conform to the prompt's output schema.
var ErrSchemaViolation = errors.New("model output violates schema")

// ErrMalformedOutput is returned when no JSON document can be extracted from
// the model's reply at all.
var ErrMalformedOutput = errors.New("model output is not valid JSON")

// Prompt pairs a named template with the schema its output must satisfy.
// Prompts are package-level constants in the calling package; the schema is
// compiled once at init.
type Prompt struct {
	// Name identifies the prompt in logs, metrics, and errors.
	Name string

	// Text is the template body. Placeholders use {{field}} syntax and are
	// substituted from the input map on each Invoke.
	Text string

	// Schema validates the model's JSON output before it is handed back to
	// the requester.
	Schema *jsonschema.Schema
}

// MustCompileSchema compiles a JSON schema literal, panicking on error.
// Intended for package-level prompt definitions only.
func MustCompileSchema(raw string) *jsonschema.Schema {
	return jsonschema.MustCompileString("schema.json", raw)
}

// Invoker is the capability the requesters consume: exactly one model call
// per invocation, schema-validated output or an error.
type Invoker interface {
	// Invoke renders prompt.Text with input, requests a single completion,
	// validates the reply against prompt.Schema, and unmarshals it into out.
	// out must be a pointer to a JSON-unmarshalable value.
	Invoke(ctx context.Context, prompt Prompt, input map[string]string, out any) error
}

// Option is a functional option for Gateway.
type Option func(*Gateway)

// WithTemperature sets the sampling temperature for all completions.
func WithTemperature(t float64) Option {
	return func(g *Gateway) {
		g.temperature = t
	}
}

// WithMaxTokens caps completion length for all completions.
func WithMaxTokens(n int) Option {
	return func(g *Gateway) {
		g.maxTokens = n
	}
}

// WithMetrics wires the observe instruments into the gateway. When nil (the
// default), no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// Gateway implements [Invoker] on top of an llm.Provider.
// It holds no per-request state and is safe for concurrent use.
type Gateway struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
	metrics     *observe.Metrics
}

// Compile-time interface assertion.
var _ Invoker = (*Gateway)(nil)

// New creates a Gateway over the given provider.
func New(provider llm.Provider, opts ...Option) *Gateway {
	g := &Gateway{provider: provider}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Invoke implements [Invoker]. Each call issues exactly one completion; there
// is no internal retry — transient model failures surface to the caller.
func (g *Gateway) Invoke(ctx context.Context, prompt Prompt, input map[string]string, out any) error {
	rendered, err := render(prompt.Text, input)
	if err != nil {
		return fmt.Errorf("gateway: render %q: %w", prompt.Name, err)
	}

	start := time.Now()
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  rendered,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		ForceJSON:   true,
	})
	g.record(ctx, prompt.Name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("gateway: complete %q: %w", prompt.Name, err)
	}

	raw, err := extractJSON(resp.Content)
	if err != nil {
		return fmt.Errorf("gateway: %q: %w", prompt.Name, err)
	}

	// Validate against the decoded generic value; jsonschema operates on the
	// result of a plain json.Unmarshal.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("gateway: %q: %w: %v", prompt.Name, ErrMalformedOutput, err)
	}
	if err := prompt.Schema.Validate(decoded); err != nil {
		return fmt.Errorf("gateway: %q: %w: %v", prompt.Name, ErrSchemaViolation, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway: %q: unmarshal into %T: %w", prompt.Name, out, err)
	}
	return nil
}

// record updates gateway metrics when instruments are wired.
func (g *Gateway) record(ctx context.Context, promptName string, d time.Duration, err error) {
	if g.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		g.metrics.GatewayErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", g.provider.Name()),
			attribute.String("prompt", promptName),
		))
	}
	g.metrics.GatewayRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", g.provider.Name()),
		attribute.String("prompt", promptName),
		attribute.String("status", status),
	))
	g.metrics.GatewayDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("prompt", promptName),
	))
}

// render substitutes {{field}} placeholders in tmpl from input. Unresolved
// placeholders are an error — a prompt must never reach the model with a
// literal "{{" in it.
func render(tmpl string, input map[string]string) (string, error) {
	out := tmpl
	for k, v := range input {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	if i := strings.Index(out, "{{"); i >= 0 {
		end := i + 20
		if end > len(out) {
			end = len(out)
		}
		return "", fmt.Errorf("unresolved placeholder near %q", out[i:end])
	}
	return out, nil
}

// extractJSON locates the JSON document in a model reply, tolerating
// surrounding prose and markdown code fences.
func extractJSON(content string) ([]byte, error) {
	s := strings.TrimSpace(content)

	// Strip a ```json … ``` fence if present.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, ErrMalformedOutput
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return nil, ErrMalformedOutput
	}
	raw := []byte(s[start : end+1])
	if !json.Valid(raw) {
		return nil, ErrMalformedOutput
	}
	return raw, nil
}
