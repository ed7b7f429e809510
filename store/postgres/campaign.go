package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/id"
)

const campaignColumns = `
	id, name, agent_id, contact_list_id, status, execution_id,
	started_at, completed_at, created_at, updated_at`

// CreateCampaign persists a new campaign.
func (s *Store) CreateCampaign(ctx context.Context, c *campaign.Campaign) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dial_campaigns (
			id, name, agent_id, contact_list_id, status, execution_id,
			started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID.String(), c.Name, c.AgentID.String(), c.ContactListID, string(c.Status),
		c.ExecutionID.String(), c.StartedAt, c.CompletedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: create campaign: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+campaignColumns+` FROM dial_campaigns WHERE id = $1`,
		campaignID.String(),
	)
	c, err := scanCampaign(row)
	if err != nil {
		if isNoRows(err) {
			return nil, outdial.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("outdial/postgres: get campaign: %w", err)
	}
	return c, nil
}

// UpdateCampaign persists changes to an existing campaign.
func (s *Store) UpdateCampaign(ctx context.Context, c *campaign.Campaign) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dial_campaigns SET
			name = $2, agent_id = $3, contact_list_id = $4, status = $5,
			execution_id = $6, started_at = $7, completed_at = $8,
			updated_at = NOW()
		WHERE id = $1`,
		c.ID.String(), c.Name, c.AgentID.String(), c.ContactListID, string(c.Status),
		c.ExecutionID.String(), c.StartedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outdial.ErrCampaignNotFound
	}
	return nil
}

// ListCampaignsByStatus returns campaigns in the given status, oldest first.
func (s *Store) ListCampaignsByStatus(ctx context.Context, status campaign.Status) ([]*campaign.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+campaignColumns+` FROM dial_campaigns WHERE status = $1 ORDER BY created_at ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: list campaigns: %w", err)
	}
	defer rows.Close()

	var out []*campaign.Campaign
	for rows.Next() {
		c, scanErr := scanCampaign(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("outdial/postgres: scan campaign: %w", scanErr)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateAgent persists a new agent.
func (s *Store) CreateAgent(ctx context.Context, a *campaign.Agent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dial_agents (
			id, name, active, provider_assistant_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID.String(), a.Name, a.Active, a.ProviderAssistantID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: create agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID.
func (s *Store) GetAgent(ctx context.Context, agentID id.AgentID) (*campaign.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, active, provider_assistant_id, created_at, updated_at
		FROM dial_agents WHERE id = $1`,
		agentID.String(),
	)

	var (
		a     campaign.Agent
		rawID string
	)
	err := row.Scan(&rawID, &a.Name, &a.Active, &a.ProviderAssistantID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, outdial.ErrAgentNotFound
		}
		return nil, fmt.Errorf("outdial/postgres: get agent: %w", err)
	}
	a.ID, err = id.ParseAgentID(rawID)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: parse agent id %q: %w", rawID, err)
	}
	return &a, nil
}

// CreateContact persists a new contact.
func (s *Store) CreateContact(ctx context.Context, c *campaign.Contact) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dial_contacts (
			id, contact_list_id, name, phone_number, active, last_call_result,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID.String(), c.ContactListID, c.Name, c.PhoneNumber, c.Active,
		c.LastCallResult, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: create contact: %w", err)
	}
	return nil
}

// GetContact retrieves a contact by ID.
func (s *Store) GetContact(ctx context.Context, contactID id.ContactID) (*campaign.Contact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+contactColumns+` FROM dial_contacts WHERE id = $1`,
		contactID.String(),
	)
	c, err := scanContact(row)
	if err != nil {
		if isNoRows(err) {
			return nil, outdial.ErrContactNotFound
		}
		return nil, fmt.Errorf("outdial/postgres: get contact: %w", err)
	}
	return c, nil
}

// ListActiveContacts returns the active contacts of a list in insertion
// order.
func (s *Store) ListActiveContacts(ctx context.Context, contactListID string) ([]*campaign.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+contactColumns+` FROM dial_contacts
		WHERE contact_list_id = $1 AND active
		ORDER BY created_at ASC, id ASC`,
		contactListID,
	)
	if err != nil {
		return nil, fmt.Errorf("outdial/postgres: list active contacts: %w", err)
	}
	defer rows.Close()

	var out []*campaign.Contact
	for rows.Next() {
		c, scanErr := scanContact(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("outdial/postgres: scan contact: %w", scanErr)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateContactResult records the outcome of a contact's most recent call.
func (s *Store) UpdateContactResult(ctx context.Context, contactID id.ContactID, result string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dial_contacts SET last_call_result = $2, updated_at = NOW()
		WHERE id = $1`,
		contactID.String(), result,
	)
	if err != nil {
		return fmt.Errorf("outdial/postgres: update contact result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return outdial.ErrContactNotFound
	}
	return nil
}

// ── scan helpers ──

const contactColumns = `
	id, contact_list_id, name, phone_number, active, last_call_result,
	created_at, updated_at`

func scanCampaign(row pgx.Row) (*campaign.Campaign, error) {
	var (
		c       campaign.Campaign
		rawID   string
		rawAgt  string
		rawExec string
		status  string
	)
	err := row.Scan(&rawID, &c.Name, &rawAgt, &c.ContactListID, &status,
		&rawExec, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = id.ParseCampaignID(rawID); err != nil {
		return nil, fmt.Errorf("parse campaign id %q: %w", rawID, err)
	}
	if c.AgentID, err = id.ParseAgentID(rawAgt); err != nil {
		return nil, fmt.Errorf("parse agent id %q: %w", rawAgt, err)
	}
	if rawExec != "" {
		if c.ExecutionID, err = id.ParseExecutionID(rawExec); err != nil {
			return nil, fmt.Errorf("parse execution id %q: %w", rawExec, err)
		}
	}
	c.Status = campaign.Status(status)
	return &c, nil
}

func scanContact(row pgx.Row) (*campaign.Contact, error) {
	var (
		c     campaign.Contact
		rawID string
	)
	err := row.Scan(&rawID, &c.ContactListID, &c.Name, &c.PhoneNumber,
		&c.Active, &c.LastCallResult, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = id.ParseContactID(rawID); err != nil {
		return nil, fmt.Errorf("parse contact id %q: %w", rawID, err)
	}
	return &c, nil
}
