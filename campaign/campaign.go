package campaign

import (
	"time"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/id"
)

// Status represents the lifecycle state of a campaign.
type Status string

const (
	// StatusDraft means the campaign is configured but has never been started.
	StatusDraft Status = "draft"
	// StatusRunning means an execution is actively dispatching calls.
	StatusRunning Status = "running"
	// StatusPaused means an execution exists but is not releasing new work.
	StatusPaused Status = "paused"
	// StatusCompleted means the run drained within the failure-rate threshold.
	StatusCompleted Status = "completed"
	// StatusFailed means the run drained but exceeded the failure-rate threshold.
	StatusFailed Status = "failed"
	// StatusCancelled means the run was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal campaigns may be
// started again, which begins a fresh run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Startable reports whether a campaign in this status may begin a new run.
func (s Status) Startable() bool {
	return s == StatusDraft || s.Terminal()
}

// Campaign is one configured outbound-calling run.
type Campaign struct {
	outdial.Entity

	ID            id.CampaignID `json:"id"`
	Name          string        `json:"name"`
	AgentID       id.AgentID    `json:"agent_id"`
	ContactListID string        `json:"contact_list_id"`
	Status        Status        `json:"status"`

	// ExecutionID identifies the campaign's current (or most recent) run.
	// It is assigned when a run starts and scopes the run's attempt rows,
	// so restarting a terminal campaign never conflates histories.
	ExecutionID id.ExecutionID `json:"execution_id,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Agent is the AI voice agent a campaign dials with. The engine only needs
// its provider-side identity and whether it may be used.
type Agent struct {
	outdial.Entity

	ID     id.AgentID `json:"id"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`

	// ProviderAssistantID is the agent's identity at the voice-call
	// provider, passed verbatim in placement requests.
	ProviderAssistantID string `json:"provider_assistant_id"`
}

// Contact is a callable target belonging to a contact list.
type Contact struct {
	outdial.Entity

	ID            id.ContactID `json:"id"`
	ContactListID string       `json:"contact_list_id"`
	Name          string       `json:"name"`

	// PhoneNumber is E.164 where possible.
	PhoneNumber string `json:"phone_number"`

	// Active marks the contact as eligible for calling.
	Active bool `json:"active"`

	// LastCallResult is the outcome of the contact's most recent attempt,
	// written by the dispatcher after each placement.
	LastCallResult string `json:"last_call_result,omitempty"`
}
