// Package governor enforces concurrency ceilings and dispatch pacing for
// call placement. A single Governor instance is shared by all running
// campaign executions so the global ceiling holds across campaigns.
package governor

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/xraph/outdial/id"
)

// Config defines the global ceilings and pacing applied to call placement.
type Config struct {
	// MaxConcurrentPerCampaign limits simultaneous in-flight calls for a
	// single campaign. Zero means no per-campaign limit (the global
	// ceiling still applies). Campaigns may override this individually
	// via SetCampaignLimit.
	MaxConcurrentPerCampaign int

	// MaxConcurrentGlobal limits simultaneous in-flight calls across all
	// campaigns. Zero disables the global ceiling.
	MaxConcurrentGlobal int

	// DispatchRate is the maximum sustained call placements per second
	// across all campaigns. Zero disables pacing.
	DispatchRate float64

	// DispatchBurst is the burst size for the token-bucket pacer.
	// Defaults to 1 if DispatchRate is set but DispatchBurst is zero.
	DispatchBurst int
}

// campaignState tracks runtime state for a single campaign.
type campaignState struct {
	maxConcurrency int
	active         int
}

// Governor controls global and per-campaign concurrency and paces call
// placement with a token bucket. It is safe for concurrent use.
//
// Acquire is non-blocking: callers that are denied a slot are expected to
// back off and try again on their next dispatch tick rather than queueing
// goroutines against the governor.
type Governor struct {
	mu        sync.Mutex
	config    Config
	limiter   *rate.Limiter
	campaigns map[id.CampaignID]*campaignState
	active    int
}

// New creates a Governor with the given configuration.
func New(cfg Config) *Governor {
	g := &Governor{
		config:    cfg,
		campaigns: make(map[id.CampaignID]*campaignState),
	}
	if cfg.DispatchRate > 0 {
		burst := cfg.DispatchBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.DispatchRate), burst)
	}
	return g
}

// Acquire attempts to reserve a placement slot for the campaign. If the
// global ceiling, the campaign ceiling, and the pacer all allow it, the
// slot is reserved and Acquire returns true. The caller MUST call Release
// once the call reaches a terminal outcome or fails to place.
func (g *Governor) Acquire(campaignID id.CampaignID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.config.MaxConcurrentGlobal > 0 && g.active >= g.config.MaxConcurrentGlobal {
		return false
	}

	cs := g.campaigns[campaignID]
	limit := g.config.MaxConcurrentPerCampaign
	if cs != nil && cs.maxConcurrency > 0 {
		limit = cs.maxConcurrency
	}
	if limit > 0 {
		if cs != nil && cs.active >= limit {
			return false
		}
	}

	// Pacer check comes last so a denied ceiling does not consume a token.
	if g.limiter != nil && !g.limiter.Allow() {
		return false
	}

	if cs == nil {
		cs = &campaignState{}
		g.campaigns[campaignID] = cs
	}
	cs.active++
	g.active++
	return true
}

// Release returns a previously acquired slot.
func (g *Governor) Release(campaignID id.CampaignID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active > 0 {
		g.active--
	}
	if cs := g.campaigns[campaignID]; cs != nil && cs.active > 0 {
		cs.active--
	}
}

// SetCampaignLimit overrides the per-campaign concurrency ceiling for one
// campaign. Zero restores the configured default.
func (g *Governor) SetCampaignLimit(campaignID id.CampaignID, maxConcurrency int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cs := g.campaigns[campaignID]
	if cs == nil {
		cs = &campaignState{}
		g.campaigns[campaignID] = cs
	}
	cs.maxConcurrency = maxConcurrency
}

// Forget drops per-campaign state once an execution reaches a terminal
// status. Safe to call for unknown campaigns.
func (g *Governor) Forget(campaignID id.CampaignID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.campaigns, campaignID)
}

// ActiveCount returns the number of in-flight calls across all campaigns.
func (g *Governor) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// CampaignActiveCount returns the number of in-flight calls for one campaign.
func (g *Governor) CampaignActiveCount(campaignID id.CampaignID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cs := g.campaigns[campaignID]; cs != nil {
		return cs.active
	}
	return 0
}
