package campaign

import (
	"context"

	"github.com/xraph/outdial/id"
)

// Store defines the persistence contract for campaigns, agents, and
// contacts. The engine reads configuration through it and writes campaign
// status transitions and per-contact call results back.
type Store interface {
	// GetCampaign retrieves a campaign by ID.
	GetCampaign(ctx context.Context, campaignID id.CampaignID) (*Campaign, error)

	// UpdateCampaign persists changes to an existing campaign, including
	// status, StartedAt, and CompletedAt.
	UpdateCampaign(ctx context.Context, c *Campaign) error

	// ListCampaignsByStatus returns campaigns in the given status, used
	// for crash recovery of interrupted runs.
	ListCampaignsByStatus(ctx context.Context, status Status) ([]*Campaign, error)

	// GetAgent retrieves an agent by ID.
	GetAgent(ctx context.Context, agentID id.AgentID) (*Agent, error)

	// GetContact retrieves a contact by ID.
	GetContact(ctx context.Context, contactID id.ContactID) (*Contact, error)

	// ListActiveContacts returns the eligible contacts of a contact list
	// in insertion order.
	ListActiveContacts(ctx context.Context, contactListID string) ([]*Contact, error)

	// UpdateContactResult records the result of a contact's most recent
	// call attempt.
	UpdateContactResult(ctx context.Context, contactID id.ContactID, result string) error
}
