// Package event defines the observable, append-only log of relay actions.
package event

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
)

// Kind names an event type.
type Kind string

// Event kinds emitted by the relay.
const (
	KindRelayerAdded   Kind = "relayer.added"
	KindRelayerRemoved Kind = "relayer.removed"
	KindRelayExecuted  Kind = "relay.executed"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRelayerAdded, KindRelayerRemoved, KindRelayExecuted:
		return true
	}
	return false
}

// Event is one committed relay action.
type Event struct {
	entity.Entity

	// ID is the unique TypeID for this event.
	ID id.ID `json:"id"`

	// Kind is the event type.
	Kind Kind `json:"kind"`

	// Relayer is the affected relayer for membership events.
	Relayer common.Address `json:"relayer"`

	// Target is the forwarded-to contract for relay.executed.
	Target common.Address `json:"target"`

	// Fingerprint is the executed request identity for relay.executed.
	Fingerprint common.Hash `json:"fingerprint"`
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Offset int
	Limit  int
	Kind   Kind
	From   *time.Time
	To     *time.Time
}

// Matches reports whether evt satisfies the Kind and time-range filters.
func (o ListOpts) Matches(evt *Event) bool {
	if o.Kind != "" && evt.Kind != o.Kind {
		return false
	}
	if o.From != nil && evt.CreatedAt.Before(*o.From) {
		return false
	}
	if o.To != nil && evt.CreatedAt.After(*o.To) {
		return false
	}
	return true
}
