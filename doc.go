// Package sqltrace propagates OpenTelemetry trace context through SQL
// statements and reconstructs server-side timing spans from Postgres
// auto_explain notices.
//
// # Overview
//
// The package has two halves that share one wire format:
//   - [AddComment] appends the active trace context to an outgoing SQL
//     statement as a sqlcommenter-style trailing comment, but only when the
//     current span is recording.
//   - [HandleAutoExplain] inspects an auto_explain notice emitted by the
//     server, recovers the trace context and submission time from the
//     comment embedded in the logged query text, and emits a "query-plan"
//     span covering the server-reported duration, parented to the original
//     trace.
//
// The wire format is a SQL comment of the form " /*k1=v1,k2=v2*/" with keys
// sorted and values percent-encoded ('%' doubled to '%%'), carrying at
// minimum a W3C traceparent and a start_time key. See [EncodeComment].
//
// # Quick Start
//
// Initialize a tracer provider and annotate statements at execution time:
//
//	cfg, err := sqltrace.LoadConfig("sqltrace.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tp, err := sqltrace.NewTracerProvider(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tp.Shutdown(ctx)
//	sqltrace.SetTracer(tp.Tracer("my-service"))
//
//	sql := sqltrace.AddComment(ctx, "SELECT * FROM orders WHERE id = $1;")
//
// Wire the notice side through your driver's notice callback:
//
//	handler := func(diag sqltrace.Diagnostic) {
//	    sqltrace.HandleAutoExplain(diag)
//	}
//
// The sqltrace/pgx sub-package does both for jackc/pgx/v5, including the
// ALTER SYSTEM commands that enable auto_explain with JSON notices. See
// that package for details.
//
// # Timing Semantics
//
// A reconstructed span starts at the statement's submission time (the
// start_time carrier key written by AddComment) and ends exactly
// start+duration later, where duration is the value auto_explain reports.
// The span covers server-side planning and execution only; network
// transfer and driver overhead before and after are not captured.
//
// # Failure Semantics
//
// Notice handling is best-effort by design. Notices from other sources,
// queries without a trace comment, malformed messages, and failing hooks
// all result in no span and no error: the handler runs inside the driver's
// notice-delivery path, where tracing must never affect query execution.
package sqltrace
