package bftrelay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/forward"
	"github.com/xraph/bftrelay/ledger"
)

// Request is a relay submission. It is never persisted as a whole.
type Request struct {
	// Target is the address the payload is forwarded to.
	Target common.Address

	// Payload is the opaque call data.
	Payload []byte

	// Expiration is the deadline in unix seconds. The request is accepted
	// up to and including this second.
	Expiration uint64

	// Signatures are 65-byte r || s || v signatures over the request digest.
	Signatures [][]byte
}

// Receipt is the outcome of a committed relay.
type Receipt struct {
	Execution *ledger.Execution `json:"execution"`
	Result    forward.Result    `json:"result"`
	State     State             `json:"state"`
}

func (r *Relay) validate(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if req.Target == (common.Address{}) {
		return fmt.Errorf("%w: zero target", ErrInvalidRequest)
	}
	if r.config.MaxPayloadSize > 0 && len(req.Payload) > r.config.MaxPayloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidRequest, len(req.Payload), r.config.MaxPayloadSize)
	}
	if r.config.MaxSignatures > 0 && len(req.Signatures) > r.config.MaxSignatures {
		return fmt.Errorf("%w: %d signatures exceeds %d", ErrInvalidRequest, len(req.Signatures), r.config.MaxSignatures)
	}
	return nil
}
