// Package observe provides application-wide observability primitives for
// Lectio: OpenTelemetry metrics, tracing, trace-aware structured logging and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through a Prometheus exporter bridge set up by [InitProvider]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lectio metrics.
const meterName = "github.com/MrWong99/lectio"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// ActiveSessions tracks the number of assessment sessions currently
	// consuming recognizer events.
	ActiveSessions metric.Int64UpDownCounter

	// Sessions counts finished sessions. Use with attribute:
	//   attribute.String("outcome", "stopped"|"canceled"|"aborted")
	Sessions metric.Int64Counter

	// Utterances counts recognized utterances folded into sessions.
	Utterances metric.Int64Counter

	// AssessmentDuration tracks the time spent finalizing a session
	// (segmentation, alignment, aggregation, content scoring).
	AssessmentDuration metric.Float64Histogram

	// Scores records final scores. Use with attribute:
	//   attribute.String("metric", "accuracy"|"prosody"|...)
	Scores metric.Float64Histogram

	// Miscues counts classified miscues. Use with attribute:
	//   attribute.String("type", "Omission"|"Insertion")
	Miscues metric.Int64Counter

	// ScorerRequests counts content scorer calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ScorerRequests metric.Int64Counter

	// ScorerDuration tracks content scorer latency.
	ScorerDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Finalization is CPU
// bound and fast; scorer calls go over the network.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// scoreBuckets are histogram boundaries for 0-100 scores.
var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ActiveSessions, err = m.Int64UpDownCounter("lectio.sessions.active",
		metric.WithDescription("Number of assessment sessions currently receiving events."),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("lectio.sessions",
		metric.WithDescription("Finished assessment sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("lectio.utterances",
		metric.WithDescription("Recognized utterances folded into sessions."),
	); err != nil {
		return nil, err
	}
	if met.AssessmentDuration, err = m.Float64Histogram("lectio.assessment.duration",
		metric.WithDescription("Time spent finalizing an assessment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Scores, err = m.Float64Histogram("lectio.score",
		metric.WithDescription("Final assessment scores by metric."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Miscues, err = m.Int64Counter("lectio.miscues",
		metric.WithDescription("Classified miscues by error type."),
	); err != nil {
		return nil, err
	}
	if met.ScorerRequests, err = m.Int64Counter("lectio.scorer.requests",
		metric.WithDescription("Content scorer requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ScorerDuration, err = m.Float64Histogram("lectio.scorer.duration",
		metric.WithDescription("Latency of content scorer requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("lectio.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSessionEnd records a finished session with the given outcome.
func (m *Metrics) RecordSessionEnd(ctx context.Context, outcome string) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordScores records one value per named score.
func (m *Metrics) RecordScores(ctx context.Context, scores map[string]float64) {
	for name, v := range scores {
		m.Scores.Record(ctx, v, metric.WithAttributes(attribute.String("metric", name)))
	}
}

// RecordMiscues adds n miscues of the given error type. n <= 0 is a no-op.
func (m *Metrics) RecordMiscues(ctx context.Context, errorType string, n int) {
	if n <= 0 {
		return
	}
	m.Miscues.Add(ctx, int64(n), metric.WithAttributes(attribute.String("type", errorType)))
}

// RecordScorerRequest records one content scorer call and its latency.
func (m *Metrics) RecordScorerRequest(ctx context.Context, provider, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.ScorerRequests.Add(ctx, 1, attrs)
	m.ScorerDuration.Record(ctx, d.Seconds(), attrs)
}
