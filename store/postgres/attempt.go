package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/id"
)

const attemptColumns = `
	id, campaign_id, contact_id, execution_id, provider_call_id,
	attempt_number, outcome, error_reason, started_at, ended_at,
	duration_seconds, created_at, updated_at`

// InsertAttempt persists a new attempt row.
func (s *Store) InsertAttempt(ctx context.Context, a *attempt.CallAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dial_call_attempts (
			id, campaign_id, contact_id, execution_id, provider_call_id,
			attempt_number, outcome, error_reason, started_at, ended_at,
			duration_seconds, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID.String(), a.CampaignID.String(), a.ContactID.String(),
		a.ExecutionID.String(), a.ProviderCallID, a.AttemptNumber,
		string(a.Outcome), a.ErrorReason, a.StartedAt, a.EndedAt,
		a.DurationSeconds, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return outdial.ErrAttemptAlreadyExists
		}
		return fmt.Errorf("outdial/postgres: insert attempt: %w", err)
	}
	return nil
}

// UpdateAttempt persists changes to an existing attempt.
func (s *Store) UpdateAttempt(ctx context.Context, a *attempt.CallAttempt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dial_call_attempts SET
			provider_call_id = $2, attempt_number = $3, outcome = $4,
			error_reason = $5, started_at = $6, ended_at = $7,
			duration_seconds = $8, updated_at = NOW()
		WHERE id = $1`,
		a.ID.String(), a.ProviderCallID, a.AttemptNumber, string(a.Outcome),
		a.ErrorReason, a.StartedAt, a.EndedAt, a.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outdial.ErrAttemptNotFound
	}
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (s *Store) GetAttempt(ctx context.Context, attemptID id.AttemptID) (*attempt.CallAttempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+attemptColumns+` FROM dial_call_attempts WHERE id = $1`,
		attemptID.String(),
	)
	a, err := scanAttempt(row)
	if err != nil {
		if isNoRows(err) {
			return nil, outdial.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("outdial/postgres: get attempt: %w", err)
	}
	return a, nil
}

// CountContactAttempts returns how many attempts exist for a contact
// within one execution.
func (s *Store) CountContactAttempts(ctx context.Context, executionID id.ExecutionID, contactID id.ContactID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dial_call_attempts
		WHERE execution_id = $1 AND contact_id = $2`,
		executionID.String(), contactID.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("outdial/postgres: count contact attempts: %w", err)
	}
	return n, nil
}

// ListAttempts returns a campaign's attempts ordered by start time.
func (s *Store) ListAttempts(ctx context.Context, campaignID id.CampaignID, opts attempt.ListOpts) ([]*attempt.CallAttempt, error) {
	query := `SELECT` + attemptColumns + ` FROM dial_call_attempts
		WHERE campaign_id = $1
		ORDER BY started_at ASC, id ASC`
	args := []any{campaignID.String()}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: list attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// CountsByOutcome aggregates one execution's attempts by outcome.
func (s *Store) CountsByOutcome(ctx context.Context, executionID id.ExecutionID) (attempt.Counts, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT outcome, COUNT(*) FROM dial_call_attempts
		WHERE execution_id = $1
		GROUP BY outcome`,
		executionID.String(),
	)
	if err != nil {
		return attempt.Counts{}, fmt.Errorf("outdial/postgres: counts by outcome: %w", err)
	}
	defer rows.Close()

	var counts attempt.Counts
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if scanErr := rows.Scan(&outcome, &n); scanErr != nil {
			return attempt.Counts{}, fmt.Errorf("outdial/postgres: scan outcome count: %w", scanErr)
		}
		switch attempt.Outcome(outcome) {
		case attempt.OutcomePending:
			counts.Pending = n
		case attempt.OutcomeInProgress:
			counts.InProgress = n
		case attempt.OutcomeSucceeded:
			counts.Succeeded = n
		case attempt.OutcomeFailedTransient:
			counts.FailedTransient = n
		case attempt.OutcomeFailedPermanent:
			counts.FailedPermanent = n
		}
	}
	return counts, rows.Err()
}

// ListTerminalContactIDs returns the contacts of an execution that have
// at least one terminal attempt, ordered by contact ID.
func (s *Store) ListTerminalContactIDs(ctx context.Context, executionID id.ExecutionID) ([]id.ContactID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT contact_id FROM dial_call_attempts
		WHERE execution_id = $1 AND outcome IN ('succeeded', 'failed_permanent')
		ORDER BY contact_id ASC`,
		executionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: list terminal contacts: %w", err)
	}
	defer rows.Close()

	var out []id.ContactID
	for rows.Next() {
		var raw string
		if scanErr := rows.Scan(&raw); scanErr != nil {
			return nil, fmt.Errorf("outdial/postgres: scan contact id: %w", scanErr)
		}
		contactID, parseErr := id.ParseContactID(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("outdial/postgres: parse contact id %q: %w", raw, parseErr)
		}
		out = append(out, contactID)
	}
	return out, rows.Err()
}

// ListUnreconciled returns succeeded attempts with a provider call ID but
// no end time, oldest first.
func (s *Store) ListUnreconciled(ctx context.Context, limit int) ([]*attempt.CallAttempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+attemptColumns+` FROM dial_call_attempts
		WHERE outcome = 'succeeded' AND provider_call_id <> '' AND ended_at IS NULL
		ORDER BY started_at ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: list unreconciled: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// ── scan helpers ──

func scanAttempt(row pgx.Row) (*attempt.CallAttempt, error) {
	var (
		a              attempt.CallAttempt
		rawID, rawCamp string
		rawContact     string
		rawExec        string
		outcome        string
	)
	err := row.Scan(&rawID, &rawCamp, &rawContact, &rawExec,
		&a.ProviderCallID, &a.AttemptNumber, &outcome, &a.ErrorReason,
		&a.StartedAt, &a.EndedAt, &a.DurationSeconds, &a.CreatedAt,
		&a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.ID, err = id.ParseAttemptID(rawID); err != nil {
		return nil, fmt.Errorf("parse attempt id %q: %w", rawID, err)
	}
	if a.CampaignID, err = id.ParseCampaignID(rawCamp); err != nil {
		return nil, fmt.Errorf("parse campaign id %q: %w", rawCamp, err)
	}
	if a.ContactID, err = id.ParseContactID(rawContact); err != nil {
		return nil, fmt.Errorf("parse contact id %q: %w", rawContact, err)
	}
	if rawExec != "" {
		if a.ExecutionID, err = id.ParseExecutionID(rawExec); err != nil {
			return nil, fmt.Errorf("parse execution id %q: %w", rawExec, err)
		}
	}
	a.Outcome = attempt.Outcome(outcome)
	return &a, nil
}

func collectAttempts(rows pgx.Rows) ([]*attempt.CallAttempt, error) {
	var out []*attempt.CallAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("outdial/postgres: scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
