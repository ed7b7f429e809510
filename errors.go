package outdial

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("outdial: no store configured")
	ErrStoreClosed     = errors.New("outdial: store closed")
	ErrMigrationFailed = errors.New("outdial: migration failed")

	// Not found errors.
	ErrCampaignNotFound  = errors.New("outdial: campaign not found")
	ErrAgentNotFound     = errors.New("outdial: agent not found")
	ErrContactNotFound   = errors.New("outdial: contact not found")
	ErrAttemptNotFound   = errors.New("outdial: call attempt not found")
	ErrExecutionNotFound = errors.New("outdial: no active execution for campaign")
	ErrScheduleNotFound  = errors.New("outdial: schedule not found")

	// Conflict errors.
	ErrExecutionExists       = errors.New("outdial: campaign already has an active execution")
	ErrAttemptAlreadyExists  = errors.New("outdial: call attempt already exists")
	ErrScheduleAlreadyExists = errors.New("outdial: schedule already exists")

	// Lifecycle errors. These are the validation class of the control
	// surface: surfaced synchronously to the caller, never retried.
	ErrCampaignNotStartable = errors.New("outdial: campaign not startable")
	ErrNoEligibleContacts   = errors.New("outdial: campaign has no eligible contacts")
	ErrNotRunning           = errors.New("outdial: campaign is not running")
	ErrNotPaused            = errors.New("outdial: campaign is not paused")
	ErrInvalidTransition    = errors.New("outdial: invalid lifecycle transition")
)
