// Package observe provides observability primitives for minutes:
// OpenTelemetry metrics and traces, structured logging setup, and HTTP
// middleware.
//
// Components take a *Metrics explicitly. [DefaultMetrics] binds to the global
// provider, which [InitProvider] points at a Prometheus exporter; tests build
// their own with [NewMetrics] and a manual reader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/emmett/minutes"

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// TranscriptionDuration tracks per-chunk speech-to-text latency.
	TranscriptionDuration metric.Float64Histogram

	// ChunksTranscribed counts chunks handed to the engine. Attribute:
	//   attribute.String("status", "ok"|"empty"|"error")
	ChunksTranscribed metric.Int64Counter

	// TranscriptionErrors counts failed engine calls.
	TranscriptionErrors metric.Int64Counter

	// FramesDropped counts frames lost to queue overflow. Attribute:
	//   attribute.String("source", "mic"|"system")
	FramesDropped metric.Int64Counter

	// SourcesUnavailable counts devices that could not be opened. Attribute:
	//   attribute.String("source", ...)
	SourcesUnavailable metric.Int64Counter

	// ActiveSessions tracks running capture sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API request time. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram bounds in seconds. Chunks are long, so the
// range reaches well past real time.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("minutes.transcription.duration",
		metric.WithDescription("Latency of transcribing one chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunksTranscribed, err = m.Int64Counter("minutes.chunks.transcribed",
		metric.WithDescription("Chunks handed to the speech-to-text engine by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionErrors, err = m.Int64Counter("minutes.transcription.errors",
		metric.WithDescription("Failed speech-to-text calls."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("minutes.frames.dropped",
		metric.WithDescription("Audio frames dropped on queue overflow by source."),
	); err != nil {
		return nil, err
	}
	if met.SourcesUnavailable, err = m.Int64Counter("minutes.sources.unavailable",
		metric.WithDescription("Audio sources that could not be opened by source."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("minutes.sessions.active",
		metric.WithDescription("Number of running capture sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("minutes.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance bound to the
// global meter provider at first call.
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

// RecordChunk records one transcription call with its outcome.
func (m *Metrics) RecordChunk(ctx context.Context, d time.Duration, status string) {
	m.TranscriptionDuration.Record(ctx, d.Seconds())
	m.ChunksTranscribed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if status == "error" {
		m.TranscriptionErrors.Add(ctx, 1)
	}
}

// RecordDropped adds n dropped frames for source.
func (m *Metrics) RecordDropped(ctx context.Context, source string, n int64) {
	if n <= 0 {
		return
	}
	m.FramesDropped.Add(ctx, n, metric.WithAttributes(attribute.String("source", source)))
}

// RecordUnavailable counts a source that failed to open.
func (m *Metrics) RecordUnavailable(ctx context.Context, source string) {
	m.SourcesUnavailable.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
