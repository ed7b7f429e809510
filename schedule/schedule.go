// Package schedule starts campaigns on cron schedules. A Scheduler polls
// its store for due entries and asks the engine to start the referenced
// campaign. Entries with a recurring expression re-arm after each fire;
// a campaign that is already running is skipped, not an error.
package schedule

import (
	"time"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/id"
)

// Entry represents a scheduled campaign start.
type Entry struct {
	outdial.Entity

	ID         id.ScheduleID `json:"id"`
	Name       string        `json:"name"`
	CampaignID id.CampaignID `json:"campaign_id"`

	// Schedule is a standard 5-field cron expression or a descriptor like
	// "@every 24h".
	Schedule string `json:"schedule"`

	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	Enabled   bool       `json:"enabled"`
}
