// Package memory provides a fully in-memory store backend. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/id"
	"github.com/xraph/outdial/schedule"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ campaign.Store = (*Store)(nil)
	_ attempt.Store  = (*Store)(nil)
	_ schedule.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	campaigns map[string]*campaign.Campaign
	agents    map[string]*campaign.Agent
	contacts  map[string]*campaign.Contact
	attempts  map[string]*attempt.CallAttempt
	schedules map[string]*schedule.Entry

	// attemptOrder preserves insertion order for list queries.
	attemptOrder []string
	// contactOrder preserves insertion order within contact lists.
	contactOrder []string
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		campaigns: make(map[string]*campaign.Campaign),
		agents:    make(map[string]*campaign.Agent),
		contacts:  make(map[string]*campaign.Contact),
		attempts:  make(map[string]*attempt.CallAttempt),
		schedules: make(map[string]*schedule.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Seeding — campaigns, agents, contacts
// ──────────────────────────────────────────────────

// CreateCampaign persists a new campaign.
func (m *Store) CreateCampaign(_ context.Context, c *campaign.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.campaigns[c.ID.String()] = &cp
	return nil
}

// CreateAgent persists a new agent.
func (m *Store) CreateAgent(_ context.Context, a *campaign.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.agents[a.ID.String()] = &cp
	return nil
}

// CreateContact persists a new contact. List order follows insertion order.
func (m *Store) CreateContact(_ context.Context, c *campaign.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := c.ID.String()
	if _, exists := m.contacts[key]; !exists {
		m.contactOrder = append(m.contactOrder, key)
	}
	cp := *c
	m.contacts[key] = &cp
	return nil
}

// ──────────────────────────────────────────────────
// Campaign Store
// ──────────────────────────────────────────────────

// GetCampaign retrieves a campaign by ID.
func (m *Store) GetCampaign(_ context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[campaignID.String()]
	if !ok {
		return nil, outdial.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

// UpdateCampaign persists changes to an existing campaign.
func (m *Store) UpdateCampaign(_ context.Context, c *campaign.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := c.ID.String()
	if _, ok := m.campaigns[key]; !ok {
		return outdial.ErrCampaignNotFound
	}
	cp := *c
	m.campaigns[key] = &cp
	return nil
}

// ListCampaignsByStatus returns campaigns in the given status.
func (m *Store) ListCampaignsByStatus(_ context.Context, status campaign.Status) ([]*campaign.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*campaign.Campaign
	for _, c := range m.campaigns {
		if c.Status != status {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].ID.String() < result[k].ID.String()
	})
	return result, nil
}

// GetAgent retrieves an agent by ID.
func (m *Store) GetAgent(_ context.Context, agentID id.AgentID) (*campaign.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.agents[agentID.String()]
	if !ok {
		return nil, outdial.ErrAgentNotFound
	}
	cp := *a
	return &cp, nil
}

// GetContact retrieves a contact by ID.
func (m *Store) GetContact(_ context.Context, contactID id.ContactID) (*campaign.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contacts[contactID.String()]
	if !ok {
		return nil, outdial.ErrContactNotFound
	}
	cp := *c
	return &cp, nil
}

// ListActiveContacts returns a contact list's active contacts in
// insertion order.
func (m *Store) ListActiveContacts(_ context.Context, contactListID string) ([]*campaign.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*campaign.Contact
	for _, key := range m.contactOrder {
		c := m.contacts[key]
		if c.ContactListID != contactListID || !c.Active {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

// UpdateContactResult records the result of a contact's latest attempt.
func (m *Store) UpdateContactResult(_ context.Context, contactID id.ContactID, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contacts[contactID.String()]
	if !ok {
		return outdial.ErrContactNotFound
	}
	c.LastCallResult = result
	c.Touch()
	return nil
}

// ──────────────────────────────────────────────────
// Attempt Store
// ──────────────────────────────────────────────────

// InsertAttempt persists a new attempt row.
func (m *Store) InsertAttempt(_ context.Context, a *attempt.CallAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := a.ID.String()
	if _, exists := m.attempts[key]; exists {
		return outdial.ErrAttemptAlreadyExists
	}
	cp := *a
	m.attempts[key] = &cp
	m.attemptOrder = append(m.attemptOrder, key)
	return nil
}

// UpdateAttempt persists changes to an existing attempt.
func (m *Store) UpdateAttempt(_ context.Context, a *attempt.CallAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := a.ID.String()
	if _, ok := m.attempts[key]; !ok {
		return outdial.ErrAttemptNotFound
	}
	cp := *a
	m.attempts[key] = &cp
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (m *Store) GetAttempt(_ context.Context, attemptID id.AttemptID) (*attempt.CallAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.attempts[attemptID.String()]
	if !ok {
		return nil, outdial.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

// CountContactAttempts returns how many attempts exist for a contact
// within one execution.
func (m *Store) CountContactAttempts(_ context.Context, executionID id.ExecutionID, contactID id.ContactID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, a := range m.attempts {
		if a.ExecutionID == executionID && a.ContactID == contactID {
			n++
		}
	}
	return n, nil
}

// ListAttempts returns a campaign's attempts in insertion order.
func (m *Store) ListAttempts(_ context.Context, campaignID id.CampaignID, opts attempt.ListOpts) ([]*attempt.CallAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*attempt.CallAttempt
	for _, key := range m.attemptOrder {
		a := m.attempts[key]
		if a.CampaignID != campaignID {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// CountsByOutcome aggregates one execution's attempts by outcome.
func (m *Store) CountsByOutcome(_ context.Context, executionID id.ExecutionID) (attempt.Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var counts attempt.Counts
	for _, a := range m.attempts {
		if a.ExecutionID != executionID {
			continue
		}
		switch a.Outcome {
		case attempt.OutcomePending:
			counts.Pending++
		case attempt.OutcomeInProgress:
			counts.InProgress++
		case attempt.OutcomeSucceeded:
			counts.Succeeded++
		case attempt.OutcomeFailedTransient:
			counts.FailedTransient++
		case attempt.OutcomeFailedPermanent:
			counts.FailedPermanent++
		}
	}
	return counts, nil
}

// ListTerminalContactIDs returns contacts whose participation in the
// execution has ended (any attempt succeeded or failed permanently).
func (m *Store) ListTerminalContactIDs(_ context.Context, executionID id.ExecutionID) ([]id.ContactID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]id.ContactID)
	for _, a := range m.attempts {
		if a.ExecutionID != executionID || !a.Outcome.Terminal() {
			continue
		}
		seen[a.ContactID.String()] = a.ContactID
	}

	result := make([]id.ContactID, 0, len(seen))
	for _, cid := range seen {
		result = append(result, cid)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].String() < result[k].String()
	})
	return result, nil
}

// ListUnreconciled returns succeeded attempts with a provider call ID but
// no recorded end time, oldest first.
func (m *Store) ListUnreconciled(_ context.Context, limit int) ([]*attempt.CallAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*attempt.CallAttempt
	for _, key := range m.attemptOrder {
		a := m.attempts[key]
		if a.Outcome != attempt.OutcomeSucceeded || a.ProviderCallID == "" || a.EndedAt != nil {
			continue
		}
		cp := *a
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Schedule Store
// ──────────────────────────────────────────────────

// RegisterSchedule persists a new schedule entry.
func (m *Store) RegisterSchedule(_ context.Context, entry *schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.schedules {
		if e.Name == entry.Name {
			return outdial.ErrScheduleAlreadyExists
		}
	}
	cp := *entry
	m.schedules[entry.ID.String()] = &cp
	return nil
}

// GetSchedule retrieves a schedule entry by ID.
func (m *Store) GetSchedule(_ context.Context, scheduleID id.ScheduleID) (*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.schedules[scheduleID.String()]
	if !ok {
		return nil, outdial.ErrScheduleNotFound
	}
	cp := *e
	return &cp, nil
}

// ListSchedules returns all schedule entries.
func (m *Store) ListSchedules(_ context.Context) ([]*schedule.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*schedule.Entry, 0, len(m.schedules))
	for _, e := range m.schedules {
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].ID.String() < result[k].ID.String()
	})
	return result, nil
}

// UpdateSchedule updates a schedule entry.
func (m *Store) UpdateSchedule(_ context.Context, entry *schedule.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ID.String()
	if _, ok := m.schedules[key]; !ok {
		return outdial.ErrScheduleNotFound
	}
	cp := *entry
	m.schedules[key] = &cp
	return nil
}

// DeleteSchedule removes a schedule entry by ID.
func (m *Store) DeleteSchedule(_ context.Context, scheduleID id.ScheduleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scheduleID.String()
	if _, ok := m.schedules[key]; !ok {
		return outdial.ErrScheduleNotFound
	}
	delete(m.schedules, key)
	return nil
}
