// Package provider defines the voice-call provider boundary: a contract to
// place outbound calls and query their status, plus the normalization of
// provider responses into the engine's three-way outcome tag.
//
// No provider SDK shapes leak past this package. The dialer classifies
// every placement error exactly once, here, so no other component inspects
// provider-specific payloads.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/xraph/outdial/attempt"
)

// Provider errors. Adapters return these (wrapped) so classification can
// use errors.Is regardless of transport.
var (
	// ErrProviderUnavailable means the provider could not be reached at
	// all. Always classified transient.
	ErrProviderUnavailable = errors.New("provider: unavailable")

	// ErrInvalidDestination means the destination number was rejected.
	// Always classified permanent.
	ErrInvalidDestination = errors.New("provider: invalid destination number")
)

// PlaceCallRequest is a provider-agnostic call placement request.
type PlaceCallRequest struct {
	// AssistantID is the voice agent's identity at the provider.
	AssistantID string

	// PhoneNumber is the destination, E.164 where possible.
	PhoneNumber string

	// ContactName is optional display context for the call.
	ContactName string

	// Metadata links the provider call back to the engine's entities
	// (campaign_id, contact_id, attempt_id).
	Metadata map[string]string
}

// PlaceCallResult is the provider's acceptance of a placement.
type PlaceCallResult struct {
	// ProviderCallID is the provider's unique identifier for the call.
	ProviderCallID string
}

// CallStatus is a provider-agnostic snapshot of a placed call, used by the
// reconciler to backfill end times and durations.
type CallStatus struct {
	ProviderCallID  string
	Ended           bool
	EndedAt         *time.Time
	DurationSeconds int
	EndReason       string
}

// Provider is the network contract against the external voice-call service.
type Provider interface {
	Name() string

	// PlaceCall submits one outbound call. A nil error with a call ID
	// means the provider accepted the placement; the call itself runs to
	// its own completion asynchronously.
	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)

	// GetCall returns the current status of a previously placed call.
	GetCall(ctx context.Context, providerCallID string) (CallStatus, error)
}

// StatusError is a placement failure carrying an HTTP-style status code,
// the raw material for transient/permanent classification.
type StatusError struct {
	Code   int
	Reason string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("provider: status %d", e.Code)
	}
	return fmt.Sprintf("provider: status %d: %s", e.Code, e.Reason)
}

// Transient reports whether the status code indicates a retryable failure:
// rate limits (429) and server errors (5xx).
func (e *StatusError) Transient() bool {
	return e.Code == 429 || e.Code >= 500
}

// Classify maps a placement error to the normalized outcome tag.
//
// Policy: network timeouts, provider unavailability, 429, and 5xx are
// transient; invalid destinations and other 4xx are permanent. A nil error
// is a successful placement. Unknown errors classify transient — the retry
// budget bounds the damage, and dropping a callable contact on an unknown
// error is the worse failure mode.
func Classify(err error) attempt.Outcome {
	if err == nil {
		return attempt.OutcomeSucceeded
	}

	if errors.Is(err, ErrInvalidDestination) {
		return attempt.OutcomeFailedPermanent
	}
	if errors.Is(err, ErrProviderUnavailable) {
		return attempt.OutcomeFailedTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return attempt.OutcomeFailedTransient
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Transient() {
			return attempt.OutcomeFailedTransient
		}
		if statusErr.Code >= 400 && statusErr.Code < 500 {
			return attempt.OutcomeFailedPermanent
		}
		return attempt.OutcomeFailedTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return attempt.OutcomeFailedTransient
	}

	return attempt.OutcomeFailedTransient
}
