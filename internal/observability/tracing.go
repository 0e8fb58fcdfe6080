// Package observability wires OpenTelemetry distributed tracing.
//
// Traces are exported over OTLP HTTP to whatever collector the endpoint
// names: an otel-collector, a Jaeger all-in-one, or a vendor agent with
// an OTLP receiver. Tracing is off unless an endpoint is configured, and
// a collector that cannot be reached degrades to a warning instead of
// failing startup.
//
// # Running a local collector
//
// Jaeger all-in-one accepts OTLP HTTP on 4318 and serves its UI on
// 16686:
//
//	docker run --rm -p 4318:4318 -p 16686:16686 \
//	  jaegertracing/all-in-one:latest
//
// Then set:
//
//	RAGBENCH_OTLP_ENDPOINT=localhost:4318
//
// and open http://localhost:16686 after issuing a few requests. Spans
// flush in batches; the final batch flushes on shutdown.
//
// # What gets traced
//
// The HTTP layer wraps every route in a server span, and the engine
// opens child spans per pipeline stage, so a compare request shows one
// generate span per provider running side by side.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config for tracing setup.
type Config struct {
	// Endpoint is the OTLP HTTP collector address as host:port.
	// Empty disables tracing entirely.
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// ServiceName identifies this service in the trace backend.
	ServiceName string
}

// DefaultServiceName is used when the config names no service.
const DefaultServiceName = "ragbench"

// Setup installs a global TracerProvider exporting to the configured
// collector. The returned shutdown flushes pending spans; it is safe to
// call even when tracing is disabled.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		logger.Debug("tracing disabled, no collector endpoint configured")
		return noop, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return noop, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		logger.Warn("failed to build trace resource, tracing disabled", "error", err)
		return noop, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", serviceName,
		"environment", cfg.Environment,
	)
	return tp.Shutdown, nil
}
