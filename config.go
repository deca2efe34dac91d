package sqltrace

import (
	"slices"
	"strings"
	"time"
)

// Config is the top-level sqltrace configuration, loadable from YAML/JSON
// via [LoadConfig]. Environment variable names follow the OTel
// specification where one exists.
type Config struct {
	// ServiceName identifies the service emitting reconstructed spans.
	// Maps to OTEL_SERVICE_NAME.
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME" default:"sqltrace"`

	// AutoExplain configures the server-side auto_explain module. These
	// values are applied by the pgx subpackage's SetupAutoExplain.
	AutoExplain *AutoExplainConfig `yaml:"autoExplain,omitempty"`

	// Exporter configures the trace exporter used by NewTracerProvider.
	Exporter *ExporterConfig `yaml:"exporter,omitempty"`

	// Propagation configures context propagation (W3C TraceContext, Baggage).
	// Maps to OTEL_PROPAGATORS.
	Propagation *PropConfig `yaml:"propagation,omitempty"`
}

// AutoExplainConfig mirrors the auto_explain server settings that
// SetupAutoExplain writes via ALTER SYSTEM. Log format and level are not
// configurable: the notice handler requires JSON plans delivered as
// notices.
type AutoExplainConfig struct {
	// MinDuration is the minimum statement duration, in milliseconds,
	// before auto_explain logs a plan. 0 logs every statement; -1 disables
	// logging. Maps to auto_explain.log_min_duration.
	MinDuration int `yaml:"minDurationMillis" env:"SQLTRACE_MIN_DURATION_MS" default:"100" validate:"gte=-1"`

	// SampleRate is the fraction of statements to explain, 0.0 to 1.0.
	// Unset means 1.0; an explicit 0 disables plan logging entirely.
	// Maps to auto_explain.sample_rate.
	SampleRate *float64 `yaml:"sampleRate" env:"SQLTRACE_SAMPLE_RATE" validate:"omitempty,gte=0,lte=1"`

	// Analyze enables EXPLAIN ANALYZE output (actual row counts and times).
	// Maps to auto_explain.log_analyze.
	Analyze *bool `yaml:"analyze" default:"true"`

	// Buffers includes buffer usage in the plan. Requires Analyze.
	Buffers *bool `yaml:"buffers" default:"true"`

	// Timing includes per-node timing in the plan. Requires Analyze.
	Timing *bool `yaml:"timing" default:"true"`

	// Triggers includes trigger execution statistics.
	Triggers *bool `yaml:"triggers" default:"true"`

	// NestedStatements logs statements executed inside functions.
	NestedStatements *bool `yaml:"nestedStatements" default:"true"`

	// Settings includes modified configuration parameters in the plan.
	Settings *bool `yaml:"settings" default:"true"`

	// WAL includes WAL usage in the plan. Requires Analyze.
	WAL *bool `yaml:"wal" default:"true"`

	// Verbose includes verbose plan details, notably the query text the
	// notice handler parses the trace comment out of.
	Verbose *bool `yaml:"verbose" default:"true"`
}

// IsAnalyze returns true if EXPLAIN ANALYZE output is enabled.
// Defaults to true if nil.
func (c *AutoExplainConfig) IsAnalyze() bool {
	return c == nil || c.Analyze == nil || *c.Analyze
}

// IsBuffers returns true if buffer usage logging is enabled.
func (c *AutoExplainConfig) IsBuffers() bool {
	return c == nil || c.Buffers == nil || *c.Buffers
}

// IsTiming returns true if per-node timing is enabled.
func (c *AutoExplainConfig) IsTiming() bool {
	return c == nil || c.Timing == nil || *c.Timing
}

// IsTriggers returns true if trigger statistics logging is enabled.
func (c *AutoExplainConfig) IsTriggers() bool {
	return c == nil || c.Triggers == nil || *c.Triggers
}

// IsNestedStatements returns true if nested statement logging is enabled.
func (c *AutoExplainConfig) IsNestedStatements() bool {
	return c == nil || c.NestedStatements == nil || *c.NestedStatements
}

// IsSettings returns true if settings logging is enabled.
func (c *AutoExplainConfig) IsSettings() bool {
	return c == nil || c.Settings == nil || *c.Settings
}

// IsWAL returns true if WAL usage logging is enabled.
func (c *AutoExplainConfig) IsWAL() bool {
	return c == nil || c.WAL == nil || *c.WAL
}

// IsVerbose returns true if verbose plan output is enabled.
func (c *AutoExplainConfig) IsVerbose() bool {
	return c == nil || c.Verbose == nil || *c.Verbose
}

// GetSampleRate returns the configured sample rate, or 1.0 when unset.
// An explicit zero is preserved.
func (c *AutoExplainConfig) GetSampleRate() float64 {
	if c == nil || c.SampleRate == nil {
		return 1.0
	}

	return *c.SampleRate
}

// ExporterConfig configures the trace exporter.
type ExporterConfig struct {
	// Type determines the exporter implementation.
	// Maps to OTEL_TRACES_EXPORTER.
	// Options: "otlp", "console", "stdout", "none".
	Type string `yaml:"type" env:"OTEL_TRACES_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint is the OTLP collector endpoint.
	//
	// Format depends on protocol:
	//   - gRPC: "host:port" (e.g., "localhost:4317"). Do NOT include scheme.
	//   - HTTP: Full URL with scheme (e.g., "http://localhost:4318/v1/traces").
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Insecure disables TLS for the OTLP connection.
	Insecure *bool `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// Headers adds custom headers to OTLP requests.
	// Avoid logging this value, as it may contain sensitive credentials.
	Headers map[string]string `yaml:"headers,omitempty" env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Protocol determines the OTLP transport protocol.
	Protocol string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc" validate:"omitempty,oneof=grpc http/protobuf http"`

	// Timeout is the timeout for exporter operations.
	Timeout time.Duration `yaml:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" default:"10s" validate:"gte=0"`
}

// IsInsecure returns true if insecure connection is enabled.
// Defaults to true if nil.
func (c *ExporterConfig) IsInsecure() bool {
	return c == nil || c.Insecure == nil || *c.Insecure
}

// PropConfig configures context propagation.
// Maps to OTEL_PROPAGATORS.
type PropConfig struct {
	// Propagators specifies which propagators to use.
	// Maps to OTEL_PROPAGATORS (comma-separated list).
	// Defaults to "tracecontext,baggage" (W3C standards).
	Propagators string `yaml:"propagators" env:"OTEL_PROPAGATORS" default:"tracecontext,baggage"`
}

// HasTraceContext returns true if the tracecontext propagator is enabled.
func (c *PropConfig) HasTraceContext() bool {
	if c == nil || c.Propagators == "" {
		return true // default includes tracecontext
	}

	return containsPropagator(c.Propagators, "tracecontext")
}

// HasBaggage returns true if the baggage propagator is enabled.
func (c *PropConfig) HasBaggage() bool {
	if c == nil || c.Propagators == "" {
		return true // default includes baggage
	}

	return containsPropagator(c.Propagators, "baggage")
}

// containsPropagator checks if a propagator is in the comma-separated list.
func containsPropagator(propagators, name string) bool {
	return slices.Contains(splitPropagators(propagators), name)
}

// splitPropagators splits a comma-separated propagator list.
func splitPropagators(propagators string) []string {
	if propagators == "" {
		return nil
	}

	var result []string
	for p := range strings.SplitSeq(propagators, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}

// boolPtr returns a pointer to the given boolean value.
// It is useful for initializing config fields.
func boolPtr(v bool) *bool { return &v }

// floatPtr returns a pointer to the given float64 value.
func floatPtr(v float64) *float64 { return &v }
