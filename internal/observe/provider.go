package observe

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Telemetry owns the SDK providers installed by [Setup]. Shut it down from
// main once the HTTP server has drained.
type Telemetry struct {
	metrics *sdkmetric.MeterProvider
	traces  *sdktrace.TracerProvider
}

// SetupOption adjusts how [Setup] builds the providers.
type SetupOption func(*setupConfig)

type setupConfig struct {
	spanExporter sdktrace.SpanExporter
}

// WithSpanExporter exports spans to exp, batched. Without this option spans
// are recorded in process only, which keeps trace propagation and
// correlation IDs working without an OTLP endpoint.
func WithSpanExporter(exp sdktrace.SpanExporter) SetupOption {
	return func(c *setupConfig) { c.spanExporter = exp }
}

// Setup installs the global OpenTelemetry providers: a Prometheus-backed
// meter provider feeding the /metrics endpoint, and a tracer provider for
// the per-request spans opened by [Middleware]. service and version are
// reported as the telemetry resource.
func Setup(service, version string, opts ...SetupOption) (*Telemetry, error) {
	var sc setupConfig
	for _, o := range opts {
		o(&sc)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}

	t := &Telemetry{
		metrics: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		),
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if sc.spanExporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(sc.spanExporter))
	}
	t.traces = sdktrace.NewTracerProvider(traceOpts...)

	otel.SetMeterProvider(t.metrics)
	otel.SetTracerProvider(t.traces)
	return t, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.metrics.Shutdown(ctx),
		t.traces.Shutdown(ctx),
	)
}
