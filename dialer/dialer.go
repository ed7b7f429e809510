// Package dialer turns one dequeued contact into one call attempt row. It
// invokes the provider through the middleware chain, classifies the result
// into a normalized outcome, and persists the attempt. Provider failures
// become attempt outcomes; store failures are returned to the caller as
// systemic errors and never recorded as call results.
package dialer

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/hook"
	"github.com/xraph/outdial/id"
	"github.com/xraph/outdial/middleware"
	"github.com/xraph/outdial/provider"
)

// Dialer places single calls and records them as attempt rows.
type Dialer struct {
	provider provider.Provider
	attempts attempt.Store
	contacts campaign.Store
	hooks    *hook.Registry
	mw       middleware.Middleware
	logger   *slog.Logger
}

// New creates a Dialer with the given dependencies.
func New(
	p provider.Provider,
	attempts attempt.Store,
	contacts campaign.Store,
	hooks *hook.Registry,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Dialer {
	return &Dialer{
		provider: p,
		attempts: attempts,
		contacts: contacts,
		hooks:    hooks,
		mw:       middleware.Chain(mws...),
		logger:   logger,
	}
}

// Dial places one call for the contact and returns the finished attempt.
//
// The attempt row is inserted with a pending outcome BEFORE the provider
// is invoked, so a crash mid-placement leaves a row behind for recovery.
// Provider errors are classified into the attempt's outcome and do not
// surface as Dial errors; a non-nil error return means a store failure,
// which callers must treat as systemic rather than as a call result.
func (d *Dialer) Dial(ctx context.Context, c *campaign.Campaign, agent *campaign.Agent, contact *campaign.Contact, attemptNumber int) (*attempt.CallAttempt, error) {
	now := time.Now().UTC()
	a := &attempt.CallAttempt{
		ID:            id.NewAttemptID(),
		CampaignID:    c.ID,
		ContactID:     contact.ID,
		ExecutionID:   c.ExecutionID,
		AttemptNumber: attemptNumber,
		Outcome:       attempt.OutcomePending,
		StartedAt:     now,
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := d.attempts.InsertAttempt(ctx, a); err != nil {
		d.logger.Error("failed to insert attempt",
			slog.String("campaign_id", c.ID.String()),
			slog.String("contact_id", contact.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	// The terminal handler that invokes the provider.
	terminal := func(ctx context.Context) error {
		res, callErr := d.provider.PlaceCall(ctx, provider.PlaceCallRequest{
			AssistantID: agent.ProviderAssistantID,
			PhoneNumber: contact.PhoneNumber,
			ContactName: contact.Name,
			Metadata: map[string]string{
				"campaign_id": c.ID.String(),
				"contact_id":  contact.ID.String(),
				"attempt_id":  a.ID.String(),
			},
		})
		if callErr != nil {
			return callErr
		}
		a.ProviderCallID = res.ProviderCallID
		return nil
	}

	callErr := d.mw(ctx, a, terminal)

	a.Outcome = provider.Classify(callErr)
	if callErr != nil {
		a.ErrorReason = callErr.Error()
	}
	a.Touch()

	if err := d.attempts.UpdateAttempt(ctx, a); err != nil {
		d.logger.Error("failed to update attempt outcome",
			slog.String("attempt_id", a.ID.String()),
			slog.String("outcome", string(a.Outcome)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if a.Outcome == attempt.OutcomeSucceeded {
		d.hooks.EmitCallPlaced(ctx, a)
	}
	d.hooks.EmitCallFinished(ctx, a, callErr)

	// Contact result is informational; a write failure here must not
	// change the attempt's outcome.
	if err := d.contacts.UpdateContactResult(ctx, contact.ID, string(a.Outcome)); err != nil {
		d.logger.Warn("failed to update contact result",
			slog.String("contact_id", contact.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return a, nil
}

// NextAttemptNumber derives the attempt number for a contact's next call
// from the execution's persisted history. Recovery paths use it instead
// of queue state.
func (d *Dialer) NextAttemptNumber(ctx context.Context, executionID id.ExecutionID, contactID id.ContactID) (int, error) {
	n, err := d.attempts.CountContactAttempts(ctx, executionID, contactID)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}
