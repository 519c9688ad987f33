// Package otelhelper sets up OTLP tracing and the span attributes used across nurture.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	WorkflowIDKey   = "nurture.workflow.id"
	EnrollmentIDKey = "nurture.enrollment.id"
	ContactIDKey    = "nurture.contact.id"
	StepIDKey       = "nurture.step.id"
	StepTypeKey     = "nurture.step.type"
	ActionTypeKey   = "nurture.action.type"
	TriggerTypeKey  = "nurture.trigger.type"
	JobIDKey        = "nurture.job.id"
	AttemptKey      = "nurture.attempt"
)

// NewTracer installs a global OTLP/HTTP tracer provider and returns its tracer. The returned
// shutdown flushes pending spans.
func NewTracer(ctx context.Context, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// Tracer returns the named tracer of the global provider, a no-op until NewTracer runs.
// nolint:ireturn
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// nolint:spancheck
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}
