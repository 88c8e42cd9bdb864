package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store defines the persistence contract for the relayer set.
type Store interface {
	// AddRelayer persists a new membership.
	// Returns ErrAlreadyRegistered if the address is already a member.
	AddRelayer(ctx context.Context, r *Relayer) error

	// RemoveRelayer deletes a membership.
	// Returns ErrNotRegistered if the address is not a member.
	RemoveRelayer(ctx context.Context, addr common.Address) error

	// GetRelayer returns the membership for an address.
	GetRelayer(ctx context.Context, addr common.Address) (*Relayer, error)

	// IsRelayer reports whether addr is currently a member.
	IsRelayer(ctx context.Context, addr common.Address) (bool, error)

	// ListRelayers returns members ordered by registration time, oldest first.
	ListRelayers(ctx context.Context, opts ListOpts) ([]*Relayer, error)

	// CountRelayers returns the current number of members.
	CountRelayers(ctx context.Context) (int, error)
}
