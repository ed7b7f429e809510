package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/outdial/attempt"
)

// meterName is the instrumentation scope name for outdial metrics.
const meterName = "github.com/xraph/outdial"

// Metrics returns middleware that records per-placement metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - outdial.call.place.duration (Float64Histogram): placement time in
//     seconds, with attributes: campaign_id, status ("ok" or "error")
//   - outdial.call.placements (Int64Counter): total placement requests,
//     with attributes: campaign_id, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"outdial.call.place.duration",
		metric.WithDescription("Duration of call placement in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	placements, pErr := meter.Int64Counter(
		"outdial.call.placements",
		metric.WithDescription("Total number of call placement requests"),
		metric.WithUnit("{placement}"),
	)
	_ = pErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, a *attempt.CallAttempt, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("campaign_id", a.CampaignID.String()),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		placements.Add(ctx, 1, attrs)

		return err
	}
}
