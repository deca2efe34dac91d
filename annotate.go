package sqltrace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartTimeKey is the carrier key holding the statement's submission time
// as Unix seconds (float, string-encoded). The notice handler reads it back
// to anchor the reconstructed span, since auto_explain reports only a
// duration.
const StartTimeKey = "start_time"

// Statement constrains the statement representations AddComment accepts.
// Both text and binary statements get identical treatment.
type Statement interface {
	~string | ~[]byte
}

// AddComment appends the current trace context to sql as a trailing SQL
// comment in sqlcommenter format. If the statement ends with ';' the
// comment is inserted before the terminator, otherwise it is appended.
//
// The call is a no-op unless the span in ctx is recording, so unsampled
// traffic carries no comment and produces no extra log volume. There is no
// detection of an existing comment: annotating an already-annotated
// statement appends a second comment. Callers are expected to annotate
// once, at execution time.
func AddComment[S Statement](ctx context.Context, sql S, opts ...Option) S {
	if !trace.SpanFromContext(ctx).IsRecording() {
		return sql
	}

	comment := EncodeComment(traceValues(ctx, getPropagator(applyOptions(opts))))
	if comment == "" {
		return sql
	}

	stmt := strings.TrimRight(string(sql), " \t\r\n")
	if strings.HasSuffix(stmt, ";") {
		stmt = stmt[:len(stmt)-1] + comment + ";"
	} else {
		stmt += comment
	}

	return S(stmt)
}

// traceValues injects the trace context from ctx into a flat carrier and
// stamps it with the current time under [StartTimeKey]. Returns an empty
// carrier when the propagator has nothing to inject (e.g. no valid span
// context), in which case no comment is emitted.
func traceValues(ctx context.Context, prop propagation.TextMapPropagator) map[string]string {
	carrier := propagation.MapCarrier{}
	prop.Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}

	carrier[StartTimeKey] = formatUnixSeconds(time.Now())

	return carrier
}

// formatUnixSeconds renders t as fractional Unix seconds with nanosecond
// digits. The two parts are formatted as integers because float64 cannot
// hold a modern nanosecond timestamp exactly.
func formatUnixSeconds(t time.Time) string {
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}
