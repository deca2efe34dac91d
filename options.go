package sqltrace

import (
	"github.com/arloliu/sqltrace/internal/tracker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "sqltrace"

// options holds configuration shared by the comment injector and the
// auto_explain notice handler.
type options struct {
	tracerName string
	tp         trace.TracerProvider
	prop       propagation.TextMapPropagator
	hooks      []Hook
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		tracerName: instrumentationName,
		prop:       nil, // Will use global propagator
	}
}

// Option configures comment injection and notice handling behavior.
type Option func(*options)

// WithTracerName sets a custom tracer name.
// Default is "sqltrace".
func WithTracerName(name string) Option {
	return func(o *options) {
		o.tracerName = name
	}
}

// WithTracerProvider sets the provider used to obtain the tracer for
// reconstructed spans. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// WithPropagator sets a custom propagator for context injection/extraction.
// If not set, the global propagator is used.
//
// Both directions of the wire format (comment injection and notice
// decoding) must be configured with the same propagator, otherwise the
// decode side will not recognize the injected keys.
func WithPropagator(prop propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.prop = prop
	}
}

// WithHooks appends attribute hooks applied, in order, to each
// reconstructed span before emission. See [Hook].
func WithHooks(hooks ...Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// applyOptions applies option functions to the default options.
func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// SetTracer sets the package-global tracer used when no provider is
// supplied via options. Call once during application initialization:
//
//	sqltrace.SetTracer(tp.Tracer("my-service"))
func SetTracer(t trace.Tracer) {
	tracker.Set(t)
}

// getTracer returns a tracer honoring, in order: an explicit provider or
// tracer name from options, the package-global tracer, then the global
// provider.
func getTracer(o options) trace.Tracer {
	if o.tracerName != instrumentationName {
		tp := o.tp
		if tp == nil {
			tp = otel.GetTracerProvider()
		}

		return tp.Tracer(o.tracerName)
	}

	if o.tp != nil {
		return o.tp.Tracer(o.tracerName)
	}

	if t := tracker.Tracer(); t != nil {
		return t
	}

	return otel.GetTracerProvider().Tracer(o.tracerName)
}

// getPropagator returns the configured or global propagator.
func getPropagator(o options) propagation.TextMapPropagator {
	if o.prop != nil {
		return o.prop
	}

	return otel.GetTextMapPropagator()
}
