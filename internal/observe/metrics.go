// Package observe provides application-wide observability primitives for
// LinguaLeap: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all LinguaLeap metrics.
const meterName = "github.com/lingualeap/lingualeap"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TurnDuration tracks end-to-end tutoring turn latency, covering the
	// full fan-out and merge.
	TurnDuration metric.Float64Histogram

	// RequesterDuration tracks latency of an individual model call within a
	// turn. Use with attributes:
	//   attribute.String("requester", ...), attribute.String("status", ...)
	RequesterDuration metric.Float64Histogram

	// GatewayDuration tracks latency of a single gateway invocation, from
	// prompt rendering through schema validation.
	GatewayDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// GatewayRequests counts model invocations through the gateway. Use with
	// attributes:
	//   attribute.String("prompt", ...), attribute.String("provider", ...)
	GatewayRequests metric.Int64Counter

	// GatewayErrors counts failed gateway invocations. Use with attributes:
	//   attribute.String("prompt", ...), attribute.String("reason", ...)
	GatewayErrors metric.Int64Counter

	// SynthesisRequests counts speech synthesis requests. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	SynthesisRequests metric.Int64Counter

	// --- Gauges ---

	// ActiveTurns tracks the number of tutoring turns currently in flight.
	ActiveTurns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// model-call latencies, which routinely run into multiple seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TurnDuration, err = m.Float64Histogram("lingualeap.turn.duration",
		metric.WithDescription("End-to-end latency of a tutoring turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RequesterDuration, err = m.Float64Histogram("lingualeap.requester.duration",
		metric.WithDescription("Latency of individual model calls by requester and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GatewayDuration, err = m.Float64Histogram("lingualeap.gateway.duration",
		metric.WithDescription("Latency of gateway invocations by prompt."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("lingualeap.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.GatewayRequests, err = m.Int64Counter("lingualeap.gateway.requests",
		metric.WithDescription("Total gateway model invocations by prompt and provider."),
	); err != nil {
		return nil, err
	}
	if met.GatewayErrors, err = m.Int64Counter("lingualeap.gateway.errors",
		metric.WithDescription("Total failed gateway invocations by prompt and reason."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisRequests, err = m.Int64Counter("lingualeap.synthesis.requests",
		metric.WithDescription("Total speech synthesis requests by provider and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTurns, err = m.Int64UpDownCounter("lingualeap.active_turns",
		metric.WithDescription("Number of tutoring turns currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lingualeap.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGatewayRequest records a gateway invocation counter increment with
// the standard attribute set.
func (m *Metrics) RecordGatewayRequest(ctx context.Context, prompt, provider string) {
	m.GatewayRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("prompt", prompt),
			attribute.String("provider", provider),
		),
	)
}

// RecordGatewayError records a failed gateway invocation counter increment.
func (m *Metrics) RecordGatewayError(ctx context.Context, prompt, reason string) {
	m.GatewayErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("prompt", prompt),
			attribute.String("reason", reason),
		),
	)
}

// RecordSynthesis records one speech synthesis request with its latency.
func (m *Metrics) RecordSynthesis(ctx context.Context, provider, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.SynthesisRequests.Add(ctx, 1, attrs)
	m.SynthesisDuration.Record(ctx, seconds, attrs)
}
