package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/id"
)

// Named entry types pair a hook implementation with the hook name
// captured at registration time. This avoids type-asserting back to
// Hook inside the emit methods.
type campaignStartedEntry struct {
	name string
	hook CampaignStarted
}

type campaignPausedEntry struct {
	name string
	hook CampaignPaused
}

type campaignResumedEntry struct {
	name string
	hook CampaignResumed
}

type campaignDegradedEntry struct {
	name string
	hook CampaignDegraded
}

type campaignFinishedEntry struct {
	name string
	hook CampaignFinished
}

type callPlacedEntry struct {
	name string
	hook CallPlaced
}

type callFinishedEntry struct {
	name string
	hook CallFinished
}

type callRetryingEntry struct {
	name string
	hook CallRetrying
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	// Type-cached slices for each lifecycle event.
	campaignStarted  []campaignStartedEntry
	campaignPaused   []campaignPausedEntry
	campaignResumed  []campaignResumedEntry
	campaignDegraded []campaignDegradedEntry
	campaignFinished []campaignFinishedEntry
	callPlaced       []callPlacedEntry
	callFinished     []callFinishedEntry
	callRetrying     []callRetryingEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if e, ok := h.(CampaignStarted); ok {
		r.campaignStarted = append(r.campaignStarted, campaignStartedEntry{name, e})
	}
	if e, ok := h.(CampaignPaused); ok {
		r.campaignPaused = append(r.campaignPaused, campaignPausedEntry{name, e})
	}
	if e, ok := h.(CampaignResumed); ok {
		r.campaignResumed = append(r.campaignResumed, campaignResumedEntry{name, e})
	}
	if e, ok := h.(CampaignDegraded); ok {
		r.campaignDegraded = append(r.campaignDegraded, campaignDegradedEntry{name, e})
	}
	if e, ok := h.(CampaignFinished); ok {
		r.campaignFinished = append(r.campaignFinished, campaignFinishedEntry{name, e})
	}
	if e, ok := h.(CallPlaced); ok {
		r.callPlaced = append(r.callPlaced, callPlacedEntry{name, e})
	}
	if e, ok := h.(CallFinished); ok {
		r.callFinished = append(r.callFinished, callFinishedEntry{name, e})
	}
	if e, ok := h.(CallRetrying); ok {
		r.callRetrying = append(r.callRetrying, callRetryingEntry{name, e})
	}
	if e, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, e})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// ──────────────────────────────────────────────────
// Campaign event emitters
// ──────────────────────────────────────────────────

// EmitCampaignStarted notifies all hooks that implement CampaignStarted.
func (r *Registry) EmitCampaignStarted(ctx context.Context, c *campaign.Campaign, totalContacts int) {
	for _, e := range r.campaignStarted {
		if err := e.hook.OnCampaignStarted(ctx, c, totalContacts); err != nil {
			r.logHookError("OnCampaignStarted", e.name, err)
		}
	}
}

// EmitCampaignPaused notifies all hooks that implement CampaignPaused.
func (r *Registry) EmitCampaignPaused(ctx context.Context, campaignID id.CampaignID) {
	for _, e := range r.campaignPaused {
		if err := e.hook.OnCampaignPaused(ctx, campaignID); err != nil {
			r.logHookError("OnCampaignPaused", e.name, err)
		}
	}
}

// EmitCampaignResumed notifies all hooks that implement CampaignResumed.
func (r *Registry) EmitCampaignResumed(ctx context.Context, campaignID id.CampaignID) {
	for _, e := range r.campaignResumed {
		if err := e.hook.OnCampaignResumed(ctx, campaignID); err != nil {
			r.logHookError("OnCampaignResumed", e.name, err)
		}
	}
}

// EmitCampaignDegraded notifies all hooks that implement CampaignDegraded.
func (r *Registry) EmitCampaignDegraded(ctx context.Context, campaignID id.CampaignID, consecutiveFailures int) {
	for _, e := range r.campaignDegraded {
		if err := e.hook.OnCampaignDegraded(ctx, campaignID, consecutiveFailures); err != nil {
			r.logHookError("OnCampaignDegraded", e.name, err)
		}
	}
}

// EmitCampaignFinished notifies all hooks that implement CampaignFinished.
func (r *Registry) EmitCampaignFinished(ctx context.Context, campaignID id.CampaignID, status campaign.Status, elapsed time.Duration) {
	for _, e := range r.campaignFinished {
		if err := e.hook.OnCampaignFinished(ctx, campaignID, status, elapsed); err != nil {
			r.logHookError("OnCampaignFinished", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Call event emitters
// ──────────────────────────────────────────────────

// EmitCallPlaced notifies all hooks that implement CallPlaced.
func (r *Registry) EmitCallPlaced(ctx context.Context, a *attempt.CallAttempt) {
	for _, e := range r.callPlaced {
		if err := e.hook.OnCallPlaced(ctx, a); err != nil {
			r.logHookError("OnCallPlaced", e.name, err)
		}
	}
}

// EmitCallFinished notifies all hooks that implement CallFinished.
func (r *Registry) EmitCallFinished(ctx context.Context, a *attempt.CallAttempt, callErr error) {
	for _, e := range r.callFinished {
		if err := e.hook.OnCallFinished(ctx, a, callErr); err != nil {
			r.logHookError("OnCallFinished", e.name, err)
		}
	}
}

// EmitCallRetrying notifies all hooks that implement CallRetrying.
func (r *Registry) EmitCallRetrying(ctx context.Context, a *attempt.CallAttempt, nextAttempt int, readyAt time.Time) {
	for _, e := range r.callRetrying {
		if err := e.hook.OnCallRetrying(ctx, a, nextAttempt, readyAt); err != nil {
			r.logHookError("OnCallRetrying", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block dialing.
func (r *Registry) logHookError(event, hookName string, err error) {
	r.logger.Warn("lifecycle hook error",
		slog.String("event", event),
		slog.String("hook", hookName),
		slog.String("error", err.Error()),
	)
}
