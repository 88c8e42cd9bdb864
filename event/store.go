package event

import (
	"context"
)

// Store defines the persistence contract for the event log.
type Store interface {
	// AppendEvent persists an event. Must be durable before returning.
	AppendEvent(ctx context.Context, evt *Event) error

	// ListEvents returns events newest first, optionally filtered by kind or time range.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)
}
