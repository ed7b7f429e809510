// Package outdial is the campaign dispatch engine for outbound AI voice
// calling. Given a configured campaign (an agent plus a contact list) it
// places individual calls against an external voice-call provider, bounds
// in-flight concurrency, paces dispatch, retries transient placement
// failures with backoff, and tracks per-call and aggregate progress across
// a multi-state run lifecycle.
//
// Outdial is a library, not a service. Construct an engine with a store
// and a provider, then drive it through the control surface:
//
//	eng, err := engine.New(store, prov,
//	    engine.WithConfig(outdial.DefaultConfig()),
//	)
//	res, err := eng.StartCampaign(ctx, campaignID)
//
// # Architecture
//
// Each subsystem lives in its own package: campaign and attempt define the
// persisted entities and their store contracts, queue supplies contacts in
// order with delayed re-entry for retries, governor bounds concurrency and
// paces dispatch, dialer places one call per queue item and normalizes the
// provider outcome, retry decides the fate of transient failures, and
// execution owns the per-campaign run loop, counters, and the process-wide
// registry of active runs. A single backend implements the composite store
// interface (store/memory for tests, store/postgres for production).
//
// The engine is safe under at-least-once call placement: the provider call
// ID, once recorded, makes post-crash reconciliation idempotent.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package outdial
