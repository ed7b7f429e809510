// Package hook defines the extension system for outdial.
// Hooks are notified of lifecycle events (campaign started, call placed,
// call finished, etc.) and can react to them — logging, metrics, audit.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/id"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ──────────────────────────────────────────────────
// Campaign lifecycle hooks
// ──────────────────────────────────────────────────

// CampaignStarted is called when a campaign execution begins, with the
// number of contacts queued for dialing.
type CampaignStarted interface {
	OnCampaignStarted(ctx context.Context, c *campaign.Campaign, totalContacts int) error
}

// CampaignPaused is called when a running execution is paused.
type CampaignPaused interface {
	OnCampaignPaused(ctx context.Context, campaignID id.CampaignID) error
}

// CampaignResumed is called when a paused execution resumes.
type CampaignResumed interface {
	OnCampaignResumed(ctx context.Context, campaignID id.CampaignID) error
}

// CampaignDegraded is called when an execution enters the degraded state
// after consecutive systemic failures.
type CampaignDegraded interface {
	OnCampaignDegraded(ctx context.Context, campaignID id.CampaignID, consecutiveFailures int) error
}

// CampaignFinished is called when an execution reaches a terminal status
// (completed, failed, or cancelled).
type CampaignFinished interface {
	OnCampaignFinished(ctx context.Context, campaignID id.CampaignID, status campaign.Status, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Call lifecycle hooks
// ──────────────────────────────────────────────────

// CallPlaced is called after a call attempt is submitted to the provider,
// before its outcome is known.
type CallPlaced interface {
	OnCallPlaced(ctx context.Context, a *attempt.CallAttempt) error
}

// CallFinished is called when a call attempt reaches a terminal outcome.
// callErr is nil for successful placements.
type CallFinished interface {
	OnCallFinished(ctx context.Context, a *attempt.CallAttempt, callErr error) error
}

// CallRetrying is called when a failed attempt is scheduled for retry.
type CallRetrying interface {
	OnCallRetrying(ctx context.Context, a *attempt.CallAttempt, nextAttempt int, readyAt time.Time) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful engine shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
