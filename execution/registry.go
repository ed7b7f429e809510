package execution

import (
	"sync"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/id"
)

// Registry tracks live executions by campaign. One campaign has at most
// one execution at a time; the registry is the in-process authority on
// which campaigns are currently running.
type Registry struct {
	mu         sync.RWMutex
	executions map[string]*Execution
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executions: make(map[string]*Execution)}
}

// Add registers an execution. It returns ErrExecutionExists when the
// campaign already has one.
func (r *Registry) Add(e *Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := e.CampaignID().String()
	if _, ok := r.executions[key]; ok {
		return outdial.ErrExecutionExists
	}
	r.executions[key] = e
	return nil
}

// Get returns the live execution for a campaign.
func (r *Registry) Get(campaignID id.CampaignID) (*Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executions[campaignID.String()]
	if !ok {
		return nil, outdial.ErrExecutionNotFound
	}
	return e, nil
}

// Remove evicts a campaign's execution. Removing an absent campaign is
// a no-op.
func (r *Registry) Remove(campaignID id.CampaignID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.executions, campaignID.String())
}

// List returns all live executions in unspecified order.
func (r *Registry) List() []*Execution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Execution, 0, len(r.executions))
	for _, e := range r.executions {
		out = append(out, e)
	}
	return out
}

// Len returns the number of live executions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executions)
}
