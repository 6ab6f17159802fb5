// Package observe provides application-wide observability primitives for
// Lexio: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Lexio metrics.
const meterName = "github.com/kalini-labs/lexio"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// PlanDuration tracks session planning latency (due query + selection +
	// slotting).
	PlanDuration metric.Float64Histogram

	// GenerateDuration tracks passage generation latency.
	GenerateDuration metric.Float64Histogram

	// --- Counters ---

	// Attempts counts scored reading attempts. Use with attributes:
	//   attribute.String("language", ...), attribute.String("outcome", ...)
	// UNCERTAIN attempts are counted here too, which is how classifier
	// abstentions are tracked.
	Attempts metric.Int64Counter

	// Promotions counts words promoted to Mastered. Use with attribute:
	//   attribute.String("language", ...)
	Promotions metric.Int64Counter

	// Demotions counts Mastered words sent back to review. Use with attribute:
	//   attribute.String("language", ...)
	Demotions metric.Int64Counter

	// LessonsServed counts micro-lesson plans surfaced for NeedsInstruction
	// words.
	LessonsServed metric.Int64Counter

	// GeneratorRequests counts passage generator calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	GeneratorRequests metric.Int64Counter

	// --- Error counters ---

	// StoreErrors counts word store failures. Use with attribute:
	//   attribute.String("op", ...)
	StoreErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of open practice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// BufferedWrites tracks scored attempts waiting for a store flush.
	BufferedWrites metric.Int64UpDownCounter

	// --- Distributions ---

	// DueSetSize records the size of the due set at each planning round.
	DueSetSize metric.Int64Histogram

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// both in-process planning and remote generation calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// dueSetBuckets covers the expected due-set sizes around the daily cap.
var dueSetBuckets = []float64{0, 5, 10, 20, 30, 50, 100, 200}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.PlanDuration, err = m.Float64Histogram("lexio.plan.duration",
		metric.WithDescription("Latency of session planning."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerateDuration, err = m.Float64Histogram("lexio.generate.duration",
		metric.WithDescription("Latency of passage generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DueSetSize, err = m.Int64Histogram("lexio.plan.due_set_size",
		metric.WithDescription("Number of due words per planning round."),
		metric.WithExplicitBucketBoundaries(dueSetBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Attempts, err = m.Int64Counter("lexio.attempts",
		metric.WithDescription("Total reading attempts by language and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Promotions, err = m.Int64Counter("lexio.promotions",
		metric.WithDescription("Total promotions to Mastered by language."),
	); err != nil {
		return nil, err
	}
	if met.Demotions, err = m.Int64Counter("lexio.demotions",
		metric.WithDescription("Total demotions out of Mastered by language."),
	); err != nil {
		return nil, err
	}
	if met.LessonsServed, err = m.Int64Counter("lexio.lessons.served",
		metric.WithDescription("Total micro-lesson plans surfaced."),
	); err != nil {
		return nil, err
	}
	if met.GeneratorRequests, err = m.Int64Counter("lexio.generator.requests",
		metric.WithDescription("Total passage generator requests by provider and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.StoreErrors, err = m.Int64Counter("lexio.store.errors",
		metric.WithDescription("Total word store failures by operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("lexio.active_sessions",
		metric.WithDescription("Number of open practice sessions."),
	); err != nil {
		return nil, err
	}
	if met.BufferedWrites, err = m.Int64UpDownCounter("lexio.buffered_writes",
		metric.WithDescription("Scored attempts buffered while the store is unavailable."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lexio.http.request.duration",
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

// RecordAttempt records one scored (or abstained) reading attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, language, outcome string) {
	m.Attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("language", language),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordPromotion records a promotion to Mastered.
func (m *Metrics) RecordPromotion(ctx context.Context, language string) {
	m.Promotions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("language", language)),
	)
}

// RecordDemotion records a demotion out of Mastered.
func (m *Metrics) RecordDemotion(ctx context.Context, language string) {
	m.Demotions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("language", language)),
	)
}

// RecordStoreError records a word store failure for the named operation.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordGeneratorRequest records a passage generator call and its status.
func (m *Metrics) RecordGeneratorRequest(ctx context.Context, provider, status string) {
	m.GeneratorRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}
