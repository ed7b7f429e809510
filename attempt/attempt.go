// Package attempt defines the call attempt entity — one row per placed (or
// attempted) call — and its persistence contract. Attempt rows are the
// engine's audit trail: they are created by the dialer, mutated on
// reconciliation, and never deleted.
package attempt

import (
	"time"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/id"
)

// Outcome is the normalized result of a call placement. Provider-specific
// response shapes are collapsed into this tag at the dialer boundary so no
// other component inspects provider payloads.
type Outcome string

const (
	// OutcomePending means the attempt row exists but the provider has not
	// been invoked yet.
	OutcomePending Outcome = "pending"
	// OutcomeInProgress means the provider accepted the call and it has
	// not yet ended.
	OutcomeInProgress Outcome = "in_progress"
	// OutcomeSucceeded means the provider accepted the placement (2xx with
	// a call identifier). Call end time and duration are reconciled
	// asynchronously.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailedTransient means placement failed in a way expected to
	// succeed on retry: timeouts, rate limits, provider 5xx.
	OutcomeFailedTransient Outcome = "failed_transient"
	// OutcomeFailedPermanent means placement failed in a way that will not
	// succeed on retry: invalid number, missing consent, provider 4xx.
	OutcomeFailedPermanent Outcome = "failed_permanent"
)

// Terminal reports whether the outcome ends the contact's participation in
// the run: succeeded and failed_permanent contacts are never redialed.
func (o Outcome) Terminal() bool {
	return o == OutcomeSucceeded || o == OutcomeFailedPermanent
}

// Retryable reports whether the outcome is eligible for the retry
// coordinator.
func (o Outcome) Retryable() bool {
	return o == OutcomeFailedTransient
}

// CallAttempt is one placed (or attempted) call.
type CallAttempt struct {
	outdial.Entity

	ID         id.AttemptID  `json:"id"`
	CampaignID id.CampaignID `json:"campaign_id"`
	ContactID  id.ContactID  `json:"contact_id"`

	// ExecutionID scopes the attempt to one run of the campaign. Attempt
	// numbering, retry-budget checks, and crash recovery all read within a
	// single execution; rows from earlier runs of the same campaign are
	// history only.
	ExecutionID id.ExecutionID `json:"execution_id"`

	// ProviderCallID is the provider's identifier for the call, empty
	// until the provider accepts the placement. Once recorded it makes
	// post-crash reconciliation idempotent.
	ProviderCallID string `json:"provider_call_id,omitempty"`

	// AttemptNumber is 1 for the contact's first attempt in this campaign
	// and increments on every retry, bounded by the retry budget.
	AttemptNumber int `json:"attempt_number"`

	Outcome     Outcome `json:"outcome"`
	ErrorReason string  `json:"error_reason,omitempty"`

	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
}
