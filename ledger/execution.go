// Package ledger records which request fingerprints have been executed.
//
// The processed set only grows from the caller's point of view. A mark is
// undone solely when the forward it guarded failed, which aborts the whole
// invocation as if it never happened.
package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
)

// Execution is the record kept for a processed fingerprint.
type Execution struct {
	entity.Entity

	// ID is the unique TypeID for this execution.
	ID id.ID `json:"id"`

	// Fingerprint is the replay-protection identity of the request.
	Fingerprint common.Hash `json:"fingerprint"`

	// Target is the contract address the payload was forwarded to.
	Target common.Address `json:"target"`

	// Expiration is the request deadline in unix seconds.
	Expiration uint64 `json:"expiration"`

	// Signers are the distinct registered relayers whose signatures counted.
	Signers []common.Address `json:"signers"`

	// PayloadSize is the length of the forwarded payload in bytes.
	PayloadSize int `json:"payload_size"`

	// ExecutedAt is the ledger time at which the request was accepted.
	ExecutedAt time.Time `json:"executed_at"`
}

// ListOpts configures filtering and pagination for execution listing.
type ListOpts struct {
	Offset int
	Limit  int

	// Target restricts results to one target when non-zero.
	Target common.Address
}
