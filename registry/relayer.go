package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
)

// Relayer is a registered relayer membership.
type Relayer struct {
	entity.Entity

	// ID is the unique TypeID for this membership.
	ID id.ID `json:"id"`

	// Address is the relayer's signing account.
	Address common.Address `json:"address"`

	// AddedBy is the owner account that registered the relayer.
	AddedBy common.Address `json:"added_by"`
}

// ListOpts configures pagination for relayer listing.
type ListOpts struct {
	Offset int
	Limit  int
}
