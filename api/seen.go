package api

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// seenAuth remembers accepted admin messages until their timestamps fall
// out of the skew window.
type seenAuth struct {
	mu      sync.Mutex
	expires map[common.Hash]time.Time
}

func newSeenAuth() *seenAuth {
	return &seenAuth{expires: make(map[common.Hash]time.Time)}
}

// claim records msg and reports whether it was unused. Entries expired at
// now are dropped first.
func (s *seenAuth) claim(msg common.Hash, expires, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, exp := range s.expires {
		if now.After(exp) {
			delete(s.expires, k)
		}
	}
	if _, ok := s.expires[msg]; ok {
		return false
	}
	s.expires[msg] = expires
	return true
}

func (s *seenAuth) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}
