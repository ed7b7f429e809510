package schedule

import (
	"context"

	"github.com/xraph/outdial/id"
)

// Store defines the persistence contract for schedule entries.
type Store interface {
	// RegisterSchedule persists a new schedule entry. Returns an error if
	// the name already exists.
	RegisterSchedule(ctx context.Context, entry *Entry) error

	// GetSchedule retrieves a schedule entry by ID.
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*Entry, error)

	// ListSchedules returns all schedule entries.
	ListSchedules(ctx context.Context) ([]*Entry, error)

	// UpdateSchedule updates a schedule entry (Enabled, NextRunAt, etc.).
	UpdateSchedule(ctx context.Context, entry *Entry) error

	// DeleteSchedule removes a schedule entry by ID.
	DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error
}
