package sqltrace

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

const (
	testTraceID     = "0af7651916cd43dd8448eb211c80319c"
	testSpanID      = "b7ad6b7169203331"
	testTraceparent = "00-" + testTraceID + "-" + testSpanID + "-01"
)

// explainMessage builds an auto_explain notice message around the given
// query text.
func explainMessage(t *testing.T, durationMs float64, queryText string) string {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"Query Text": queryText,
		"Plan":       map[string]any{},
	})
	require.NoError(t, err)

	return fmt.Sprintf("duration: %g ms  plan:\n%s", durationMs, payload)
}

func spanAttrMap(span tracetest.SpanStub) map[string]any {
	result := make(map[string]any)
	for _, attr := range span.Attributes {
		result[string(attr.Key)] = attr.Value.AsInterface()
	}

	return result
}

func TestHandleAutoExplain_EmitsSpan(t *testing.T) {
	exporter, _, span := setupTest(t)
	span.End()
	exporter.Reset()

	queryText := "SELECT pg_sleep(1) /*start_time=1700000000.0,traceparent=" + testTraceparent + "*/;"
	HandleAutoExplain(Diagnostic{
		SourceFile: "auto_explain.c",
		Message:    explainMessage(t, 123.4, queryText),
	})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	got := spans[0]
	assert.Equal(t, "query-plan", got.Name)
	assert.Equal(t, trace.SpanKindInternal, got.SpanKind)

	// Parented to the context recovered from the comment
	assert.Equal(t, testTraceID, got.SpanContext.TraceID().String())
	assert.Equal(t, testTraceID, got.Parent.TraceID().String())
	assert.Equal(t, testSpanID, got.Parent.SpanID().String())

	// Timing anchored at start_time, ended exactly duration later
	assert.Equal(t, int64(1700000000)*1e9, got.StartTime.UnixNano())
	assert.Equal(t, int64(1700000000)*1e9+123400000, got.EndTime.UnixNano())

	attrs := spanAttrMap(got)
	assert.Equal(t, "SELECT pg_sleep(1);", attrs["db.statement"])
	assert.Equal(t, "{}", attrs["db.plan"])
	assert.Equal(t, testTraceparent, attrs["traceparent"])
	assert.Equal(t, "1700000000.0", attrs["start_time"])
}

func TestHandleAutoExplain_EndToEndWithAddComment(t *testing.T) {
	exporter, ctx, parent := setupTest(t)

	annotated := AddComment(ctx, "SELECT count(*) FROM orders")
	parent.End()
	exporter.Reset()

	HandleAutoExplain(Diagnostic{
		SourceFile: "auto_explain.c",
		Message:    explainMessage(t, 5.0, annotated),
	})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	got := spans[0]
	assert.Equal(t, parent.SpanContext().TraceID(), got.Parent.TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), got.Parent.SpanID())
	assert.Equal(t, got.StartTime.Add(5*time.Millisecond).UnixNano(), got.EndTime.UnixNano())

	attrs := spanAttrMap(got)
	assert.Equal(t, "SELECT count(*) FROM orders;", attrs["db.statement"])
}

func TestHandleAutoExplain_CommentBeforeTerminator(t *testing.T) {
	exporter, _, span := setupTest(t)
	span.End()

	comment := "/*start_time=1700000000.0,traceparent=" + testTraceparent + "*/"
	cases := []struct {
		name      string
		queryText string
	}{
		{name: "terminated", queryText: "SELECT 1 " + comment + ";"},
		{name: "unterminated", queryText: "SELECT 1 " + comment},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			HandleAutoExplain(Diagnostic{
				SourceFile: "auto_explain.c",
				Message:    explainMessage(t, 1.0, tt.queryText),
			})

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)

			// A terminator after the comment must not corrupt the last pair.
			assert.Equal(t, testSpanID, spans[0].Parent.SpanID().String())
			assert.Equal(t, testTraceparent, spanAttrMap(spans[0])["traceparent"])
		})
	}
}

func TestHandleAutoExplain_Noops(t *testing.T) {
	queryText := "SELECT 1 /*start_time=1700000000.0,traceparent=" + testTraceparent + "*/;"

	cases := []struct {
		name string
		diag Diagnostic
	}{
		{
			name: "wrong source file",
			diag: Diagnostic{SourceFile: "other.c", Message: "duration: 1.0 ms  plan:\n{}"},
		},
		{
			name: "missing duration prefix",
			diag: Diagnostic{SourceFile: "auto_explain.c", Message: "something else entirely"},
		},
		{
			name: "missing plan marker",
			diag: Diagnostic{SourceFile: "auto_explain.c", Message: "duration: 1.0 ms no plan here"},
		},
		{
			name: "malformed plan JSON",
			diag: Diagnostic{SourceFile: "auto_explain.c", Message: "duration: 1.0 ms  plan:\n{not json"},
		},
		{
			name: "query without traceparent",
			diag: Diagnostic{SourceFile: "auto_explain.c", Message: `duration: 1.0 ms  plan:` + "\n" + `{"Query Text": "SELECT 1;", "Plan": {}}`},
		},
		{
			name: "unparseable duration",
			diag: Diagnostic{SourceFile: "auto_explain.c", Message: "duration: abc ms  plan:\n" + `{"Query Text": "` + strings.ReplaceAll(queryText, `"`, `\"`) + `", "Plan": {}}`},
		},
		{
			name: "missing start_time key",
			diag: Diagnostic{SourceFile: "auto_explain.c", Message: `duration: 1.0 ms  plan:` + "\n" + `{"Query Text": "SELECT 1 /*traceparent=` + testTraceparent + `*/;", "Plan": {}}`},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			exporter, _, span := setupTest(t)
			span.End()
			exporter.Reset()

			assert.NotPanics(t, func() {
				HandleAutoExplain(tt.diag)
			})
			assert.Empty(t, exporter.GetSpans())
		})
	}
}

func TestHandleAutoExplain_HookOrdering(t *testing.T) {
	exporter, _, span := setupTest(t)
	span.End()
	exporter.Reset()

	var calls []string
	h1 := func(plan QueryPlan, duration time.Duration, query string, attrs []attribute.KeyValue) ([]attribute.KeyValue, error) {
		calls = append(calls, "h1")
		assert.Equal(t, 123400*time.Microsecond, duration)
		assert.Equal(t, "SELECT pg_sleep(1);", query)
		assert.Contains(t, plan, "Plan")

		return append(attrs, attribute.String("hook.first", "yes")), nil
	}
	h2 := func(_ QueryPlan, _ time.Duration, _ string, attrs []attribute.KeyValue) ([]attribute.KeyValue, error) {
		calls = append(calls, "h2")
		// h2 sees h1's output
		assert.Equal(t, "hook.first", string(attrs[len(attrs)-1].Key))

		return append(attrs, attribute.String("hook.second", "yes")), nil
	}

	queryText := "SELECT pg_sleep(1) /*start_time=1700000000.0,traceparent=" + testTraceparent + "*/;"
	HandleAutoExplain(Diagnostic{
		SourceFile: "auto_explain.c",
		Message:    explainMessage(t, 123.4, queryText),
	}, WithHooks(h1, h2))

	assert.Equal(t, []string{"h1", "h2"}, calls)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := spanAttrMap(spans[0])
	assert.Equal(t, "yes", attrs["hook.first"])
	assert.Equal(t, "yes", attrs["hook.second"])
}

func TestHandleAutoExplain_HookErrorSuppressesSpan(t *testing.T) {
	exporter, _, span := setupTest(t)
	span.End()
	exporter.Reset()

	failing := func(QueryPlan, time.Duration, string, []attribute.KeyValue) ([]attribute.KeyValue, error) {
		return nil, errors.New("hook failure")
	}

	queryText := "SELECT 1 /*start_time=1700000000.0,traceparent=" + testTraceparent + "*/;"
	assert.NotPanics(t, func() {
		HandleAutoExplain(Diagnostic{
			SourceFile: "auto_explain.c",
			Message:    explainMessage(t, 1.0, queryText),
		}, WithHooks(failing))
	})

	assert.Empty(t, exporter.GetSpans())
}

func TestHandleAutoExplain_HookPanicContained(t *testing.T) {
	exporter, _, span := setupTest(t)
	span.End()
	exporter.Reset()

	panicking := func(QueryPlan, time.Duration, string, []attribute.KeyValue) ([]attribute.KeyValue, error) {
		panic("broken hook")
	}

	queryText := "SELECT 1 /*start_time=1700000000.0,traceparent=" + testTraceparent + "*/;"
	assert.NotPanics(t, func() {
		HandleAutoExplain(Diagnostic{
			SourceFile: "auto_explain.c",
			Message:    explainMessage(t, 1.0, queryText),
		}, WithHooks(panicking))
	})

	assert.Empty(t, exporter.GetSpans())
}

func TestHandleAutoExplain_EscapedValuesRoundTrip(t *testing.T) {
	exporter, _, span := setupTest(t)
	span.End()
	exporter.Reset()

	// A carrier value with delimiter characters survives encode, embedding
	// into the logged query, and decode.
	encoded := EncodeComment(map[string]string{
		"traceparent": testTraceparent,
		"start_time":  "1700000000.0",
		"custom":      "10%,5=x",
	})
	queryText := "SELECT 1" + encoded + ";"

	HandleAutoExplain(Diagnostic{
		SourceFile: "auto_explain.c",
		Message:    explainMessage(t, 1.0, queryText),
	})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := spanAttrMap(spans[0])
	assert.Equal(t, "10%,5=x", attrs["custom"])
}
