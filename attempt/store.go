package attempt

import (
	"context"

	"github.com/xraph/outdial/id"
)

// ListOpts controls pagination for attempt list queries.
type ListOpts struct {
	// Limit is the maximum number of attempts to return. Zero means no limit.
	Limit int
	// Offset is the number of attempts to skip.
	Offset int
}

// Counts aggregates one execution's attempts by outcome. It backs both
// status reads for non-resident campaigns and crash-recovery counter
// rebuilds.
type Counts struct {
	Pending         int64 `json:"pending"`
	InProgress      int64 `json:"in_progress"`
	Succeeded       int64 `json:"succeeded"`
	FailedTransient int64 `json:"failed_transient"`
	FailedPermanent int64 `json:"failed_permanent"`
}

// Total returns the total number of attempts across all outcomes.
func (c Counts) Total() int64 {
	return c.Pending + c.InProgress + c.Succeeded + c.FailedTransient + c.FailedPermanent
}

// Store defines the persistence contract for call attempts.
type Store interface {
	// InsertAttempt persists a new attempt row.
	InsertAttempt(ctx context.Context, a *CallAttempt) error

	// UpdateAttempt persists changes to an existing attempt.
	UpdateAttempt(ctx context.Context, a *CallAttempt) error

	// GetAttempt retrieves an attempt by ID.
	GetAttempt(ctx context.Context, attemptID id.AttemptID) (*CallAttempt, error)

	// CountContactAttempts returns how many attempts exist for a contact
	// within one execution, used to derive the next attempt number.
	CountContactAttempts(ctx context.Context, executionID id.ExecutionID, contactID id.ContactID) (int, error)

	// ListAttempts returns a campaign's attempts ordered by StartedAt,
	// across all of its runs.
	ListAttempts(ctx context.Context, campaignID id.CampaignID, opts ListOpts) ([]*CallAttempt, error)

	// CountsByOutcome aggregates one execution's attempts by outcome.
	CountsByOutcome(ctx context.Context, executionID id.ExecutionID) (Counts, error)

	// ListTerminalContactIDs returns the IDs of contacts with a terminal
	// attempt (succeeded or failed_permanent) in the given execution.
	// Crash recovery excludes these from the rebuilt queue.
	ListTerminalContactIDs(ctx context.Context, executionID id.ExecutionID) ([]id.ContactID, error)

	// ListUnreconciled returns succeeded attempts that carry a provider
	// call ID but no end time, for asynchronous status reconciliation.
	ListUnreconciled(ctx context.Context, limit int) ([]*CallAttempt, error)
}
