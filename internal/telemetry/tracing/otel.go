package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// otelTracer bridges Tracer to a real OpenTelemetry SDK tracer provider,
// grounded on the teacher's OpenTelemetryTracer (engine/monitoring/
// monitoring.go). Spans still satisfy this package's narrow Span
// interface so HandleTask's call sites do not need to know which backend
// is active, but the underlying otel span is what a configured exporter
// would actually ship.
type otelTracer struct {
	tracer oteltrace.Tracer
}

// NewOTelTracer builds a Tracer backed by a new in-process TracerProvider
// tagged with serviceName/environment and installs that provider as the
// global otel TracerProvider. No exporter is attached, so spans are not
// shipped anywhere, the same posture the teacher's comment documents ("no
// external exporter to avoid deprecated Jaeger usage").
func NewOTelTracer(serviceName, environment string) Tracer {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.DeploymentEnvironmentKey.String(environment),
		)),
	)
	otel.SetTracerProvider(tp)
	return otelTracer{tracer: otel.Tracer(serviceName)}
}

func (t otelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	spanCtx, span := t.tracer.Start(ctx, name)
	return spanCtx, otelSpan{span: span}
}

func (otelTracer) Noop() bool { return false }

type otelSpan struct {
	span oteltrace.Span
}

func (s otelSpan) End() { s.span.End() }

func (s otelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(attributeFor(key, value))
}

func (s otelSpan) Context() SpanContext {
	sc := s.span.SpanContext()
	return SpanContext{TraceID: sc.TraceID().String(), SpanID: sc.SpanID().String()}
}

func attributeFor(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
