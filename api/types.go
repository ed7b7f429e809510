package api

import (
	"github.com/xraph/outdial/engine"
)

// maxListLimit caps page sizes so a single request cannot drag the whole
// attempt history over the wire.
const maxListLimit = 500

// StartCampaignRequest is the (empty) body of a campaign start.
type StartCampaignRequest struct{}

// StartCampaignResponse confirms admission of a new run.
type StartCampaignResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// PauseCampaignRequest is the (empty) body of a campaign pause.
type PauseCampaignRequest struct{}

// ResumeCampaignRequest is the (empty) body of a campaign resume.
type ResumeCampaignRequest struct{}

// CancelCampaignRequest is the (empty) body of a campaign cancel.
type CancelCampaignRequest struct{}

// GetCampaignRequest is the (empty) query of a campaign read.
type GetCampaignRequest struct{}

// CampaignStatusRequest is the (empty) query of a status read.
type CampaignStatusRequest struct{}

// ListAttemptsRequest filters and paginates a campaign's attempt history.
type ListAttemptsRequest struct {
	Limit  int `query:"limit" json:"limit,omitempty"`
	Offset int `query:"offset" json:"offset,omitempty"`
}

// CreateScheduleRequest registers a recurring campaign start.
type CreateScheduleRequest struct {
	Name       string `json:"name"`
	CampaignID string `json:"campaign_id"`

	// Schedule is a standard 5-field cron expression or a descriptor like
	// "@every 24h".
	Schedule string `json:"schedule"`
}

// ListSchedulesRequest paginates the schedule listing.
type ListSchedulesRequest struct {
	Limit  int `query:"limit" json:"limit,omitempty"`
	Offset int `query:"offset" json:"offset,omitempty"`
}

// GetScheduleRequest is the (empty) query of a schedule read.
type GetScheduleRequest struct{}

// EnableScheduleRequest is the (empty) body of a schedule enable.
type EnableScheduleRequest struct{}

// DisableScheduleRequest is the (empty) body of a schedule disable.
type DisableScheduleRequest struct{}

// DeleteScheduleRequest is the (empty) body of a schedule delete.
type DeleteScheduleRequest struct{}

// AttemptCountsResponse groups a campaign's attempts by outcome.
type AttemptCountsResponse struct {
	Pending         int64 `json:"pending"`
	InProgress      int64 `json:"in_progress"`
	Succeeded       int64 `json:"succeeded"`
	FailedTransient int64 `json:"failed_transient"`
	FailedPermanent int64 `json:"failed_permanent"`
}

// StatsResponse is the aggregate dispatch statistics payload.
type StatsResponse struct {
	ActiveExecutions int                      `json:"active_executions"`
	ActiveCalls      int                      `json:"active_calls"`
	Executions       []engine.ExecutionStatus `json:"executions"`
}

// defaultLimit clamps a requested page size into (0, maxListLimit].
func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
