// Package observe provides application-wide observability primitives for
// Echowire: OpenTelemetry metrics, tracing helpers, and HTTP middleware that
// ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [Setup] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Echowire metrics.
const meterName = "github.com/MrWong99/echowire"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// CallDuration tracks the wall-clock duration of bridged calls.
	CallDuration metric.Float64Histogram

	// ActiveCalls tracks the number of calls currently bridged.
	ActiveCalls metric.Int64UpDownCounter

	// InboundFrames counts telephony frames by kind. Use with attribute:
	//   attribute.String("kind", ...)
	InboundFrames metric.Int64Counter

	// OutboundAudio counts audio delta frames forwarded to the telephony peer.
	OutboundAudio metric.Int64Counter

	// UpstreamErrors counts non-fatal error events reported by the Realtime
	// service.
	UpstreamErrors metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// callDurationBuckets defines histogram bucket boundaries (in seconds) for
// phone call durations.
var callDurationBuckets = []float64{
	1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CallDuration, err = m.Float64Histogram("echowire.call.duration",
		metric.WithDescription("Duration of bridged telephony calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveCalls, err = m.Int64UpDownCounter("echowire.calls.active",
		metric.WithDescription("Number of calls currently bridged."),
	); err != nil {
		return nil, err
	}
	if met.InboundFrames, err = m.Int64Counter("echowire.frames.inbound",
		metric.WithDescription("Total inbound telephony frames by kind."),
	); err != nil {
		return nil, err
	}
	if met.OutboundAudio, err = m.Int64Counter("echowire.audio.outbound",
		metric.WithDescription("Total audio delta frames forwarded to the telephony peer."),
	); err != nil {
		return nil, err
	}
	if met.UpstreamErrors, err = m.Int64Counter("echowire.upstream.errors",
		metric.WithDescription("Total non-fatal error events reported by the Realtime service."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("echowire.http.request.duration",
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

// CallStarted records the beginning of a bridged call.
func (m *Metrics) CallStarted(ctx context.Context) {
	m.ActiveCalls.Add(ctx, 1)
}

// CallEnded records the end of a bridged call and its duration.
func (m *Metrics) CallEnded(ctx context.Context, d time.Duration) {
	m.ActiveCalls.Add(ctx, -1)
	m.CallDuration.Record(ctx, d.Seconds())
}

// RecordInboundFrame counts one inbound telephony frame of the given kind.
func (m *Metrics) RecordInboundFrame(ctx context.Context, kind string) {
	m.InboundFrames.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordOutboundAudio counts one audio frame forwarded to the telephony peer.
func (m *Metrics) RecordOutboundAudio(ctx context.Context) {
	m.OutboundAudio.Add(ctx, 1)
}

// RecordUpstreamError counts one non-fatal Realtime service error event.
func (m *Metrics) RecordUpstreamError(ctx context.Context) {
	m.UpstreamErrors.Add(ctx, 1)
}
