package redis

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Key prefixes for primary entity storage.
const (
	prefixRelayer   = "bftrelay:rlyr:"
	prefixExecution = "bftrelay:exec:"
	prefixEvent     = "bftrelay:evt:"
)

// Key prefixes for sorted set indexes.
const (
	zRelayerAll      = "bftrelay:z:rlyr:all"
	zExecutionAll    = "bftrelay:z:exec:all"
	zExecutionTarget = "bftrelay:z:exec:target:" // + target address
	zEventAll        = "bftrelay:z:evt:all"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

func addrKey(a common.Address) string { return strings.ToLower(a.Hex()) }
func hashKey(h common.Hash) string    { return h.Hex() }
