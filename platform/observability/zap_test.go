package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTraceFields(t *testing.T) {
	assert.Nil(t, TraceFields(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := TraceFields(ctx)
	if assert.Len(t, fields, 2) {
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, sc.TraceID().String(), fields[0].String)
	}
}

func TestWithFields_AccumulatesAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, L(context.Background(), base))

	ctx := WithFields(context.Background(), zap.String("event_id", "evt_1"))
	child := WithFields(ctx, zap.String("booking_reference", "CC-ABC12345"))

	// родительский ctx не меняется
	assert.Len(t, ContextFields(ctx), 1)
	assert.Len(t, ContextFields(child), 2)

	L(child, base).Info("booking created")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "evt_1", fields["event_id"])
	assert.Equal(t, "CC-ABC12345", fields["booking_reference"])
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))

	other := zap.NewExample()
	ctx := withLogger(context.Background(), other)
	assert.Same(t, other, LoggerFromContext(ctx, fallback))
}
