package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/outdial/attempt"
)

// tracerName is the instrumentation scope name for outdial tracing.
const tracerName = "github.com/xraph/outdial"

// Tracing returns middleware that wraps call placement in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through with zero
// overhead.
//
// Span attributes include: outdial.attempt.id, outdial.campaign.id,
// outdial.contact.id, outdial.attempt.number. On error, the span status
// is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, a *attempt.CallAttempt, next Handler) error {
		ctx, span := tracer.Start(ctx, "outdial.call.place",
			trace.WithAttributes(
				attribute.String("outdial.attempt.id", a.ID.String()),
				attribute.String("outdial.campaign.id", a.CampaignID.String()),
				attribute.String("outdial.contact.id", a.ContactID.String()),
				attribute.Int("outdial.attempt.number", a.AttemptNumber),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
