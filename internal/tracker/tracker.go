// Package tracker holds the package-global tracer shared by the comment
// injector and the auto_explain notice handler.
package tracker

import (
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

type state struct {
	tracer trace.Tracer
}

var global atomic.Pointer[state]

func init() {
	global.Store(&state{})
}

// Set updates the global tracer.
func Set(t trace.Tracer) {
	global.Store(&state{tracer: t})
}

// Tracer returns the configured global tracer, or nil if not set.
func Tracer() trace.Tracer {
	return global.Load().tracer
}
