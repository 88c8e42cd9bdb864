// Package store defines the composite Store interface for all relay persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them, so a single backend serves the registry, the ledger and
// the event log.
package store

import (
	"context"

	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
)

// Store is the aggregate persistence interface.
type Store interface {
	registry.Store
	ledger.Store
	event.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
