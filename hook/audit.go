package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/id"
)

// Audit event actions. Each constant corresponds to one lifecycle event
// and becomes the Action field of the audit event.
const (
	ActionCampaignStarted  = "campaign.started"
	ActionCampaignPaused   = "campaign.paused"
	ActionCampaignResumed  = "campaign.resumed"
	ActionCampaignDegraded = "campaign.degraded"
	ActionCampaignFinished = "campaign.finished"
	ActionCallPlaced       = "call.placed"
	ActionCallFinished     = "call.finished"
	ActionCallRetrying     = "call.retrying"
)

// Severity levels assigned to audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AuditEvent is one structured record of a lifecycle event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Severity   string         `json:"severity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Recorder is the interface audit backends must implement. The default
// backend writes events through slog; callers bridge to an external audit
// store by injecting their own Recorder.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Compile-time interface checks.
var (
	_ Hook             = (*AuditHook)(nil)
	_ CampaignStarted  = (*AuditHook)(nil)
	_ CampaignPaused   = (*AuditHook)(nil)
	_ CampaignResumed  = (*AuditHook)(nil)
	_ CampaignDegraded = (*AuditHook)(nil)
	_ CampaignFinished = (*AuditHook)(nil)
	_ CallPlaced       = (*AuditHook)(nil)
	_ CallFinished     = (*AuditHook)(nil)
	_ CallRetrying     = (*AuditHook)(nil)
)

// AuditHook records every lifecycle event as a structured audit event.
// Normal operations record at info, retries and degradation at warning,
// terminal failures at critical.
type AuditHook struct {
	recorder Recorder
}

// NewAuditHook creates an audit hook. A nil recorder writes events
// through the given logger.
func NewAuditHook(recorder Recorder, logger *slog.Logger) *AuditHook {
	if recorder == nil {
		recorder = slogRecorder(logger)
	}
	return &AuditHook{recorder: recorder}
}

func slogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("severity", evt.Severity),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		for k, v := range evt.Metadata {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)
		return nil
	})
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

func (h *AuditHook) OnCampaignStarted(ctx context.Context, c *campaign.Campaign, totalContacts int) error {
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCampaignStarted,
		Resource:   "campaign",
		ResourceID: c.ID.String(),
		Severity:   SeverityInfo,
		Metadata: map[string]any{
			"name":           c.Name,
			"agent_id":       c.AgentID.String(),
			"total_contacts": totalContacts,
		},
	})
}

func (h *AuditHook) OnCampaignPaused(ctx context.Context, campaignID id.CampaignID) error {
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCampaignPaused,
		Resource:   "campaign",
		ResourceID: campaignID.String(),
		Severity:   SeverityInfo,
	})
}

func (h *AuditHook) OnCampaignResumed(ctx context.Context, campaignID id.CampaignID) error {
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCampaignResumed,
		Resource:   "campaign",
		ResourceID: campaignID.String(),
		Severity:   SeverityInfo,
	})
}

func (h *AuditHook) OnCampaignDegraded(ctx context.Context, campaignID id.CampaignID, consecutiveFailures int) error {
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCampaignDegraded,
		Resource:   "campaign",
		ResourceID: campaignID.String(),
		Severity:   SeverityWarning,
		Metadata: map[string]any{
			"consecutive_failures": consecutiveFailures,
		},
	})
}

func (h *AuditHook) OnCampaignFinished(ctx context.Context, campaignID id.CampaignID, status campaign.Status, elapsed time.Duration) error {
	severity := SeverityInfo
	if status == campaign.StatusFailed {
		severity = SeverityCritical
	}
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCampaignFinished,
		Resource:   "campaign",
		ResourceID: campaignID.String(),
		Severity:   severity,
		Metadata: map[string]any{
			"status":     string(status),
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

func (h *AuditHook) OnCallPlaced(ctx context.Context, a *attempt.CallAttempt) error {
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCallPlaced,
		Resource:   "call_attempt",
		ResourceID: a.ID.String(),
		Severity:   SeverityInfo,
		Metadata: map[string]any{
			"campaign_id":    a.CampaignID.String(),
			"contact_id":     a.ContactID.String(),
			"attempt_number": a.AttemptNumber,
		},
	})
}

func (h *AuditHook) OnCallFinished(ctx context.Context, a *attempt.CallAttempt, callErr error) error {
	evt := &AuditEvent{
		Action:     ActionCallFinished,
		Resource:   "call_attempt",
		ResourceID: a.ID.String(),
		Severity:   SeverityInfo,
		Metadata: map[string]any{
			"campaign_id":    a.CampaignID.String(),
			"contact_id":     a.ContactID.String(),
			"attempt_number": a.AttemptNumber,
			"outcome":        string(a.Outcome),
		},
	}
	if a.Outcome == attempt.OutcomeFailedPermanent {
		evt.Severity = SeverityCritical
	}
	if callErr != nil {
		evt.Reason = callErr.Error()
	}
	return h.recorder.Record(ctx, evt)
}

func (h *AuditHook) OnCallRetrying(ctx context.Context, a *attempt.CallAttempt, nextAttempt int, readyAt time.Time) error {
	return h.recorder.Record(ctx, &AuditEvent{
		Action:     ActionCallRetrying,
		Resource:   "call_attempt",
		ResourceID: a.ID.String(),
		Severity:   SeverityWarning,
		Metadata: map[string]any{
			"campaign_id":  a.CampaignID.String(),
			"contact_id":   a.ContactID.String(),
			"next_attempt": nextAttempt,
			"ready_at":     readyAt,
		},
	})
}
