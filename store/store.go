// Package store defines the aggregate persistence interface. Each
// subsystem (campaign, attempt, schedule) defines its own store interface.
// The composite Store composes them all. Backends: Postgres and Memory.
package store

import (
	"context"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/schedule"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, memory) implements all of them.
type Store interface {
	campaign.Store
	attempt.Store
	schedule.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
