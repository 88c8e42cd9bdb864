package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ---------------------------------------------------------------------------
// Relay requests
// ---------------------------------------------------------------------------

// RelayForgeRequest binds the body for POST /relay.
type RelayForgeRequest struct {
	Target     common.Address  `description:"Address the payload is forwarded to"      json:"target"`
	Payload    hexutil.Bytes   `description:"0x-hex call data"                          json:"payload"`
	Expiration uint64          `description:"Deadline in unix seconds, inclusive"      json:"expiration"`
	Signatures []hexutil.Bytes `description:"65-byte relayer signatures, 0x-hex"        json:"signatures"`
}

// ThresholdForgeRequest is empty; GET /threshold has no parameters.
type ThresholdForgeRequest struct{}

// ---------------------------------------------------------------------------
// Relayer requests
// ---------------------------------------------------------------------------

// ListRelayersForgeRequest binds query parameters for GET /relayers.
type ListRelayersForgeRequest struct {
	Offset int `description:"Pagination offset"      query:"offset"`
	Limit  int `description:"Page size (default 50)" query:"limit"`
}

// GetRelayerForgeRequest binds the path for GET /relayers/:address.
type GetRelayerForgeRequest struct {
	Address string `description:"Relayer address (0x-hex)" path:"address"`
}

// ---------------------------------------------------------------------------
// Ledger requests
// ---------------------------------------------------------------------------

// ListExecutionsForgeRequest binds query parameters for GET /executions.
type ListExecutionsForgeRequest struct {
	Target string `description:"Filter by target address" query:"target"`
	Offset int    `description:"Pagination offset"        query:"offset"`
	Limit  int    `description:"Page size (default 50)"   query:"limit"`
}

// GetExecutionForgeRequest binds the path for GET /executions/:fingerprint.
type GetExecutionForgeRequest struct {
	Fingerprint string `description:"Request fingerprint (0x-hex)" path:"fingerprint"`
}

// GetProcessedForgeRequest binds the path for GET /processed/:fingerprint.
type GetProcessedForgeRequest struct {
	Fingerprint string `description:"Request fingerprint (0x-hex)" path:"fingerprint"`
}

// ---------------------------------------------------------------------------
// Event requests
// ---------------------------------------------------------------------------

// ListEventsForgeRequest binds query parameters for GET /events.
type ListEventsForgeRequest struct {
	Kind   string `description:"Filter by event kind"   query:"kind"`
	Offset int    `description:"Pagination offset"      query:"offset"`
	Limit  int    `description:"Page size (default 50)" query:"limit"`
}

// ---------------------------------------------------------------------------
// Stats requests
// ---------------------------------------------------------------------------

// StatsForgeRequest is empty; GET /stats has no parameters.
type StatsForgeRequest struct{}
