package sqltrace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// NewTracerProvider initializes an OpenTelemetry TracerProvider from cfg
// and registers it, together with the configured propagator, as the
// process-global default. The provider batches spans to the configured
// exporter.
//
// Applications that already run their own provider do not need this; the
// injector and notice handler fall back to the global provider and
// propagator, or take explicit ones via [WithTracerProvider] and
// [WithPropagator].
func NewTracerProvider(ctx context.Context, cfg *Config) (*sdktrace.TracerProvider, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = instrumentationName
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := buildTraceExporter(ctx, cfg.Exporter)
	if err != nil {
		return nil, fmt.Errorf("build trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	// Set global provider and propagator
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(buildPropagator(cfg.Propagation))

	return tp, nil
}
