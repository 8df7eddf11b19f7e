package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogbandwidth/router/internal/telemetry/tracing"
)

func newJSONLogger(buf *bytes.Buffer) Logger {
	return New(slog.New(slog.NewJSONHandler(buf, nil)))
}

func TestLoggerWithoutSpanOmitsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf)

	log.InfoCtx(context.Background(), "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasTrace := entry["trace_id"]
	assert.False(t, hasTrace)
}

func TestLoggerWithSpanAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf)

	tracer := tracing.NewTracer(true)
	ctx, span := tracer.StartSpan(context.Background(), "op")
	defer span.End()

	log.WarnCtx(ctx, "careful")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotEmpty(t, entry["trace_id"])
	assert.NotEmpty(t, entry["span_id"])
}

func TestNewFallsBackToDefaultWhenNilBase(t *testing.T) {
	assert.NotPanics(t, func() {
		log := New(nil)
		log.ErrorCtx(context.Background(), "boom")
	})
}
