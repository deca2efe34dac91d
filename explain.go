package sqltrace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// autoExplainSource is the source-file identifier Postgres stamps on
// notices emitted by the auto_explain module.
const autoExplainSource = "auto_explain.c"

// spanName is the name of every reconstructed query-plan span.
const spanName = "query-plan"

// Attribute keys following OTel database semantic conventions, plus the
// plan payload.
const (
	attrDBStatement = "db.statement"
	attrDBPlan      = "db.plan"
)

// Message layout produced by auto_explain with log_format = JSON:
//
//	duration: 123.456 ms  plan:
//	{"Query Text": "...", "Plan": {...}}
const (
	durationPrefix = "duration: "
	planMarker     = "plan:\n"
)

// Diagnostic is a database notice reduced to the two fields the handler
// needs: the server source file that raised it and the primary message.
// Driver integrations (see the pgx subpackage) adapt their native notice
// type to this.
type Diagnostic struct {
	SourceFile string
	Message    string
}

// QueryPlan is the parsed auto_explain JSON payload. "Query Text" and
// "Plan" are the keys the handler itself reads; everything else
// (Settings, Triggers, ...) is retained for hooks.
type QueryPlan map[string]any

// Hook enriches or replaces the attribute set of a reconstructed span
// before emission. Hooks run in registration order, each receiving the
// previous hook's output. Returning an error aborts span emission for that
// notice; it is swallowed by the handler's outer guard and never reaches
// the driver.
type Hook func(plan QueryPlan, duration time.Duration, query string, attrs []attribute.KeyValue) ([]attribute.KeyValue, error)

// HandleAutoExplain inspects a database notice and, when it is an
// auto_explain plan for a statement annotated by [AddComment], emits a
// "query-plan" span parented to the original trace with the server-reported
// timing.
//
// The handler is strictly best-effort: any notice that is not an
// auto_explain plan, carries no trace comment, or fails to parse is
// silently ignored. It never returns or raises an error, because it runs
// inside the driver's notice-delivery callback where a failure would
// disturb the caller's query execution. It performs no I/O and does not
// block, so it is safe to invoke from a driver's read loop.
func HandleAutoExplain(diag Diagnostic, opts ...Option) {
	defer func() {
		// A panicking hook must not take down the driver callback.
		_ = recover()
	}()

	_ = handleAutoExplain(diag, applyOptions(opts))
}

// handleAutoExplain is the fallible pipeline behind HandleAutoExplain. The
// returned error exists for control flow only; the exported wrapper
// collapses every failure into "no span emitted".
func handleAutoExplain(diag Diagnostic, o options) error {
	if diag.SourceFile != autoExplainSource {
		return errNotApplicable
	}

	duration, plan, err := parseExplainMessage(diag.Message)
	if err != nil {
		return err
	}

	queryText, _ := plan["Query Text"].(string)
	// Heuristic gate: only attempt comment extraction when the traceparent
	// key is visibly present. This can miss an unusually-encoded comment and
	// can trigger on user data containing the literal; both are accepted.
	if !strings.Contains(queryText, "traceparent=") {
		return errNotApplicable
	}

	// The comment is not necessarily the literal suffix of the statement:
	// AddComment places it before a trailing ';', so slice to the closing
	// delimiter rather than to the end of the text.
	commentStart := strings.LastIndex(queryText, "/*")
	commentEnd := strings.LastIndex(queryText, "*/")
	if commentStart < 0 || commentEnd < commentStart+2 {
		return errNotApplicable
	}

	carrier, err := DecodeComment(strings.TrimSpace(queryText[commentStart+2 : commentEnd]))
	if err != nil {
		return err
	}

	parent := getPropagator(o).Extract(context.Background(), propagation.MapCarrier(carrier))

	start, err := parseUnixSeconds(carrier[StartTimeKey])
	if err != nil {
		return err
	}

	planJSON, err := json.Marshal(plan["Plan"])
	if err != nil {
		return err
	}

	query := strings.TrimSpace(queryText[:commentStart]) + ";"

	attrs := make([]attribute.KeyValue, 0, len(carrier)+2)
	attrs = append(attrs,
		attribute.String(attrDBStatement, query),
		attribute.String(attrDBPlan, string(planJSON)),
	)
	for k, v := range carrier {
		attrs = append(attrs, attribute.String(k, v))
	}

	for _, hook := range o.hooks {
		attrs, err = hook(plan, duration, query, attrs)
		if err != nil {
			return err
		}
	}

	// The parent context is passed explicitly to Start, so no global
	// context activation is needed and nothing can leak across driver
	// callbacks.
	_, span := getTracer(o).Start(parent, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(start),
	)

	// End at start+duration rather than now: the duration is reported by
	// the server after its own completion and the notice arrives
	// asynchronously. The span therefore covers server-side planning and
	// execution only, not network transfer or driver overhead.
	span.End(trace.WithTimestamp(start.Add(duration)))

	return nil
}

// parseExplainMessage splits an auto_explain notice message into the
// reported duration and the JSON plan that follows the plan marker.
func parseExplainMessage(message string) (time.Duration, QueryPlan, error) {
	rest, found := strings.CutPrefix(message, durationPrefix)
	if !found {
		return 0, nil, fmt.Errorf("sqltrace: notice message missing %q prefix", durationPrefix)
	}

	ms, _, _ := strings.Cut(rest, " ")
	durationMs, err := strconv.ParseFloat(ms, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("sqltrace: parse duration: %w", err)
	}

	_, payload, found := strings.Cut(message, planMarker)
	if !found {
		return 0, nil, fmt.Errorf("sqltrace: notice message missing %q marker", planMarker)
	}

	var plan QueryPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return 0, nil, fmt.Errorf("sqltrace: parse plan JSON: %w", err)
	}

	return time.Duration(durationMs * float64(time.Millisecond)), plan, nil
}

// parseUnixSeconds parses a fractional Unix-seconds string written by
// [AddComment] into a wall-clock timestamp.
func parseUnixSeconds(s string) (time.Time, error) {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqltrace: parse %s: %w", StartTimeKey, err)
	}

	return time.Unix(0, int64(seconds*1e9)), nil
}

// errNotApplicable marks notices that are well-formed but simply not
// traced auto_explain plans.
var errNotApplicable = errors.New("sqltrace: notice not applicable")
