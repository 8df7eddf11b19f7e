package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTracerDisabledReturnsNoop(t *testing.T) {
	tr := NewTracer(false)
	assert.True(t, tr.Noop())

	_, span := tr.StartSpan(context.Background(), "op")
	span.SetAttribute("k", "v")
	span.End()
	assert.Equal(t, SpanContext{}, span.Context())
}

func TestNewTracerEnabledStartsSpanWithIDs(t *testing.T) {
	tr := NewTracer(true)
	assert.False(t, tr.Noop())

	ctx, span := tr.StartSpan(context.Background(), "op")
	defer span.End()

	assert.NotEmpty(t, span.Context().TraceID)
	assert.NotEmpty(t, span.Context().SpanID)

	traceID, spanID := ExtractIDs(ctx)
	assert.Equal(t, span.Context().TraceID, traceID)
	assert.Equal(t, span.Context().SpanID, spanID)
}

func TestNestedSpansShareTraceID(t *testing.T) {
	tr := NewTracer(true)

	ctx, parent := tr.StartSpan(context.Background(), "parent")
	defer parent.End()

	_, child := tr.StartSpan(ctx, "child")
	defer child.End()

	assert.Equal(t, parent.Context().TraceID, child.Context().TraceID)
}

func TestExtractIDsOnEmptyContextReturnsEmptyStrings(t *testing.T) {
	traceID, spanID := ExtractIDs(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}

func TestOTelTracerStartsRealSpans(t *testing.T) {
	tr := NewOTelTracer("cogrouterd-test", "test")
	assert.False(t, tr.Noop())

	_, span := tr.StartSpan(context.Background(), "router.HandleTask")
	span.SetAttribute("task_id", "t1")
	span.SetAttribute("priority", 0.5)
	span.End()

	assert.NotEmpty(t, span.Context().TraceID)
}
