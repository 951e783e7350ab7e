package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bespoke/patches-api"

// GetTracer returns the tracer for the patches service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartPatchSpan starts an internal span for a patch workflow step.
func StartPatchSpan(ctx context.Context, operation, patchID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "patch."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("patch.uuid", patchID)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddStatusTransition adds a status transition event to a span.
func AddStatusTransition(span trace.Span, fromStatus, toStatus string) {
	span.AddEvent("status.transition",
		trace.WithAttributes(
			attribute.String("status.from", fromStatus),
			attribute.String("status.to", toStatus),
		),
	)
}
