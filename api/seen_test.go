package api

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestSeenAuthClaim(t *testing.T) {
	s := newSeenAuth()
	now := time.Unix(1_700_000_000, 0)
	msg := common.HexToHash("0x01")

	if !s.claim(msg, now.Add(time.Minute), now) {
		t.Fatal("first claim must succeed")
	}
	if s.claim(msg, now.Add(time.Minute), now.Add(30*time.Second)) {
		t.Fatal("second claim inside the window must fail")
	}
	if !s.claim(common.HexToHash("0x02"), now.Add(time.Minute), now) {
		t.Fatal("a different message must be claimable")
	}
}

func TestSeenAuthPrunesExpired(t *testing.T) {
	s := newSeenAuth()
	now := time.Unix(1_700_000_000, 0)

	s.claim(common.HexToHash("0x01"), now.Add(time.Minute), now)
	s.claim(common.HexToHash("0x02"), now.Add(time.Hour), now)

	s.claim(common.HexToHash("0x03"), now.Add(3*time.Minute), now.Add(2*time.Minute))
	if got := s.len(); got != 2 {
		t.Fatalf("expected the expired entry pruned, %d remain", got)
	}
}
