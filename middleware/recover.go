package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/outdial/attempt"
)

// Recover returns middleware that recovers from panics in the placement chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *attempt.CallAttempt, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("call placement panicked",
					slog.String("attempt_id", a.ID.String()),
					slog.String("campaign_id", a.CampaignID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic placing call for attempt %s: %v", a.ID, r)
			}
		}()
		return next(ctx)
	}
}
