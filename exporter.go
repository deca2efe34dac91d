package sqltrace

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// nopSpanExporter is a no-op span exporter.
type nopSpanExporter struct{}

func (nopSpanExporter) ExportSpans(_ context.Context, _ []sdktrace.ReadOnlySpan) error { return nil }
func (nopSpanExporter) Shutdown(_ context.Context) error                               { return nil }

// buildTraceExporter creates a trace exporter based on configuration.
func buildTraceExporter(ctx context.Context, cfg *ExporterConfig) (sdktrace.SpanExporter, error) {
	if cfg == nil {
		cfg = &ExporterConfig{}
	}

	switch normalizeExporterType(cfg.Type) {
	case "console":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "nop":
		return nopSpanExporter{}, nil
	default:
		return buildOTLPTraceExporter(ctx, cfg)
	}
}

func buildOTLPTraceExporter(ctx context.Context, cfg *ExporterConfig) (sdktrace.SpanExporter, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	if cfg.Protocol == "http/protobuf" || cfg.Protocol == "http" {
		opts := []otlptracehttp.Option{}
		if host, path := splitEndpointURL(endpoint); host != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(host))
			if path != "" {
				opts = append(opts, otlptracehttp.WithURLPath(path))
			}
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}

		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
		}
		if cfg.IsInsecure() {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	}

	// Default to gRPC
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}
	if cfg.IsInsecure() {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

// normalizeExporterType maps config aliases to canonical exporter types.
func normalizeExporterType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "console", "stdout":
		return "console"
	case "none", "nop", "noop":
		return "none"
	case "":
		return "otlp"
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}

// splitEndpointURL splits a full URL endpoint into host:port and path.
// Returns empty host if the endpoint is not a URL with a scheme, in which
// case the caller should treat it as a bare host:port.
func splitEndpointURL(endpoint string) (host, path string) {
	if !strings.Contains(endpoint, "://") {
		return "", ""
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", ""
	}

	return u.Host, u.Path
}
