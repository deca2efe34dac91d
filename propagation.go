package sqltrace

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// knownPropagators lists the propagator names recognized in OTEL_PROPAGATORS.
// b3, b3multi, jaeger, xray, ottrace require additional contrib packages and
// are not wired here.
var knownPropagators = map[string]bool{
	"tracecontext": true,
	"baggage":      true,
	"b3":           true,
	"b3multi":      true,
	"jaeger":       true,
	"xray":         true,
	"ottrace":      true,
	"none":         true,
}

// buildPropagator creates a text map propagator based on configuration.
// The same propagator shapes both directions of the wire format: what
// AddComment injects into the SQL comment and what the notice handler
// extracts from it. Unknown propagator names are reported via otel.Handle
// and ignored.
func buildPropagator(cfg *PropConfig) propagation.TextMapPropagator {
	if cfg == nil {
		cfg = &PropConfig{Propagators: "tracecontext,baggage"}
	}

	var propagators []propagation.TextMapPropagator

	// Check for unknown propagators and warn
	for _, name := range splitPropagators(cfg.Propagators) {
		if !knownPropagators[name] {
			otel.Handle(errors.New("sqltrace: unknown propagator \"" + name + "\" in OTEL_PROPAGATORS, ignoring"))
		}
	}

	if cfg.HasTraceContext() {
		propagators = append(propagators, propagation.TraceContext{})
	}
	if cfg.HasBaggage() {
		propagators = append(propagators, propagation.Baggage{})
	}

	if len(propagators) == 0 {
		return propagation.NewCompositeTextMapPropagator()
	}

	return propagation.NewCompositeTextMapPropagator(propagators...)
}
