package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/id"
	"github.com/xraph/outdial/schedule"
)

const scheduleColumns = `
	id, name, campaign_id, schedule, last_run_at, next_run_at, enabled,
	created_at, updated_at`

// RegisterSchedule persists a new schedule entry. Names are unique.
func (s *Store) RegisterSchedule(ctx context.Context, entry *schedule.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dial_schedules (
			id, name, campaign_id, schedule, last_run_at, next_run_at, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID.String(), entry.Name, entry.CampaignID.String(), entry.Schedule,
		entry.LastRunAt, entry.NextRunAt, entry.Enabled,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return outdial.ErrScheduleAlreadyExists
		}
		return fmt.Errorf("outdial/postgres: register schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+scheduleColumns+` FROM dial_schedules WHERE id = $1`,
		scheduleID.String(),
	)
	entry, err := scanSchedule(row)
	if err != nil {
		if isNoRows(err) {
			return nil, outdial.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("outdial/postgres: get schedule: %w", err)
	}
	return entry, nil
}

// ListSchedules returns all schedule entries.
func (s *Store) ListSchedules(ctx context.Context) ([]*schedule.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+scheduleColumns+` FROM dial_schedules ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: list schedules: %w", err)
	}
	defer rows.Close()

	var out []*schedule.Entry
	for rows.Next() {
		entry, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("outdial/postgres: scan schedule: %w", scanErr)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// UpdateSchedule persists changes to an existing schedule entry.
func (s *Store) UpdateSchedule(ctx context.Context, entry *schedule.Entry) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dial_schedules SET
			name = $2, campaign_id = $3, schedule = $4,
			last_run_at = $5, next_run_at = $6, enabled = $7,
			updated_at = NOW()
		WHERE id = $1`,
		entry.ID.String(), entry.Name, entry.CampaignID.String(), entry.Schedule,
		entry.LastRunAt, entry.NextRunAt, entry.Enabled,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outdial.ErrScheduleNotFound
	}
	return nil
}

// DeleteSchedule removes a schedule entry.
func (s *Store) DeleteSchedule(ctx context.Context, scheduleID id.ScheduleID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dial_schedules WHERE id = $1`,
		scheduleID.String(),
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outdial.ErrScheduleNotFound
	}
	return nil
}

func scanSchedule(row pgx.Row) (*schedule.Entry, error) {
	var (
		entry   schedule.Entry
		rawID   string
		rawCamp string
	)
	err := row.Scan(&rawID, &entry.Name, &rawCamp, &entry.Schedule,
		&entry.LastRunAt, &entry.NextRunAt, &entry.Enabled,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if entry.ID, err = id.ParseScheduleID(rawID); err != nil {
		return nil, fmt.Errorf("parse schedule id %q: %w", rawID, err)
	}
	if entry.CampaignID, err = id.ParseCampaignID(rawCamp); err != nil {
		return nil, fmt.Errorf("parse campaign id %q: %w", rawCamp, err)
	}
	return &entry, nil
}
