package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "intentgate"

// StartInvocationSpan starts a span for one governed tool invocation.
func StartInvocationSpan(ctx context.Context, invocationID, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "invocation",
		trace.WithAttributes(
			attribute.String("invocation.id", invocationID),
			attribute.String("invocation.action", action),
		),
	)
}

// StartEvaluationSpan starts a span for a judge scoring call.
func StartEvaluationSpan(ctx context.Context, threshold float64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "evaluation",
		trace.WithAttributes(
			attribute.Float64("evaluation.threshold", threshold),
		),
	)
}

// StartEscalationSpan starts a span for escalation delivery.
func StartEscalationSpan(ctx context.Context, sink string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "escalation",
		trace.WithAttributes(
			attribute.String("escalation.sink", sink),
		),
	)
}
