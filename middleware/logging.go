package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/outdial/attempt"
)

// Logging returns middleware that logs call placement start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *attempt.CallAttempt, next Handler) error {
		logger.Info("placing call",
			slog.String("attempt_id", a.ID.String()),
			slog.String("campaign_id", a.CampaignID.String()),
			slog.String("contact_id", a.ContactID.String()),
			slog.Int("attempt_number", a.AttemptNumber),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("call placement failed",
				slog.String("attempt_id", a.ID.String()),
				slog.String("campaign_id", a.CampaignID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("call placed",
				slog.String("attempt_id", a.ID.String()),
				slog.String("campaign_id", a.CampaignID.String()),
				slog.String("provider_call_id", a.ProviderCallID),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
