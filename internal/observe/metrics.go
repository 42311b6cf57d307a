// Package observe provides application-wide observability primitives for
// Voxlate: OpenTelemetry metrics, distributed tracing, structured logging,
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

	"github.com/voxlate/voxlate/pkg/provider"
)

// meterName is the instrumentation scope name used for all Voxlate metrics.
const meterName = "github.com/voxlate/voxlate"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// DetectDuration tracks language detection latency.
	DetectDuration metric.Float64Histogram

	// TranslateDuration tracks translation latency (per provider attempt).
	TranslateDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end audio-to-audio latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("capability", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("capability", ...)
	ProviderErrors metric.Int64Counter

	// Jobs counts completed pipeline jobs. Use with attribute:
	//   attribute.String("status", "completed"|"degraded"|"failed")
	Jobs metric.Int64Counter

	// DegradedStages counts stage-level degradations. Use with attribute:
	//   attribute.String("stage", "transcript"|"translation"|"audio")
	DegradedStages metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live WebSocket sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote inference latencies, which routinely stretch into tens of seconds
// on cold model loads.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("voxlate.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DetectDuration, err = m.Float64Histogram("voxlate.detect.duration",
		metric.WithDescription("Latency of language detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("voxlate.translate.duration",
		metric.WithDescription("Latency of translation provider attempts."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxlate.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("voxlate.pipeline.duration",
		metric.WithDescription("End-to-end audio translation latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("voxlate.provider.requests",
		metric.WithDescription("Total provider API requests by provider, capability, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("voxlate.provider.errors",
		metric.WithDescription("Total provider errors by provider and capability."),
	); err != nil {
		return nil, err
	}
	if met.Jobs, err = m.Int64Counter("voxlate.pipeline.jobs",
		metric.WithDescription("Total pipeline jobs by terminal status."),
	); err != nil {
		return nil, err
	}
	if met.DegradedStages, err = m.Int64Counter("voxlate.pipeline.degraded_stages",
		metric.WithDescription("Total stage-level degradations by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxlate.active_sessions",
		metric.WithDescription("Number of live WebSocket sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxlate.http.request.duration",
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

// stageHistogram maps a capability to its latency histogram.
func (m *Metrics) stageHistogram(capability provider.Capability) metric.Float64Histogram {
	switch capability {
	case provider.CapabilitySTT:
		return m.STTDuration
	case provider.CapabilityDetect:
		return m.DetectDuration
	case provider.CapabilityTranslate:
		return m.TranslateDuration
	case provider.CapabilityTTS:
		return m.TTSDuration
	default:
		return nil
	}
}

// RecordAttempts records counter increments and latency observations for a
// batch of provider attempts. Attempts skipped by an open circuit breaker
// (zero latency, failed) are counted as requests with status "skipped" but
// not recorded in the latency histogram. Nil-safe.
func (m *Metrics) RecordAttempts(ctx context.Context, attempts []provider.Attempt) {
	if m == nil {
		return
	}
	for _, a := range attempts {
		status := "ok"
		switch {
		case a.OK:
		case a.Latency == 0:
			status = "skipped"
		default:
			status = "error"
		}
		m.ProviderRequests.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("provider", a.Provider),
				attribute.String("capability", string(a.Capability)),
				attribute.String("status", status),
			),
		)
		if status == "error" {
			m.ProviderErrors.Add(ctx, 1,
				metric.WithAttributes(
					attribute.String("provider", a.Provider),
					attribute.String("capability", string(a.Capability)),
				),
			)
		}
		if status != "skipped" {
			if h := m.stageHistogram(a.Capability); h != nil {
				h.Record(ctx, a.Latency.Seconds(),
					metric.WithAttributes(
						attribute.String("provider", a.Provider),
						attribute.String("status", status),
					),
				)
			}
		}
	}
}

// RecordJob records a finished pipeline job with its end-to-end latency and
// terminal status ("completed", "degraded", or "failed"). Nil-safe.
func (m *Metrics) RecordJob(ctx context.Context, seconds float64, status string) {
	if m == nil {
		return
	}
	m.PipelineDuration.Record(ctx, seconds)
	m.Jobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordDegradedStage records one stage-level degradation. Nil-safe.
func (m *Metrics) RecordDegradedStage(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.DegradedStages.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// SessionStarted increments the active session gauge. Nil-safe.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active session gauge. Nil-safe.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
