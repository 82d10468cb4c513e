package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type fieldsKey struct{}

// TraceFields trace_id и span_id активного span-а, nil без span-а
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// WithFields кладёт в ctx поля корреляции (event_id, booking_reference, action_id),
// которые L добавит к каждой записи ниже по стеку. Поля родителя сохраняются.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	parent := ContextFields(ctx)
	merged := make([]zap.Field, 0, len(parent)+len(fields))
	merged = append(merged, parent...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// ContextFields поля, положенные через WithFields
func ContextFields(ctx context.Context) []zap.Field {
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}

// L logger с полями trace и корреляции из ctx: observability.L(ctx, logger).Info(...)
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	fields := append(TraceFields(ctx), ContextFields(ctx)...)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
