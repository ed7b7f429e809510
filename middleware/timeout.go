package middleware

import (
	"context"
	"time"

	"github.com/xraph/outdial/attempt"
)

// Timeout returns middleware that enforces a per-placement deadline.
// A zero or negative duration disables the deadline. When the deadline is
// exceeded the context is cancelled and the provider call returns
// context.DeadlineExceeded, which classifies as a transient failure.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, a *attempt.CallAttempt, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
