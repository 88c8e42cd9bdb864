package signature

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// SignerSet is a set of recovered signer addresses.
// Adding the same address twice has no effect, so Len is always the number
// of distinct signers regardless of how many signatures produced them.
type SignerSet struct {
	members map[common.Address]struct{}
}

// NewSignerSet returns an empty set sized for n signers.
func NewSignerSet(n int) *SignerSet {
	return &SignerSet{members: make(map[common.Address]struct{}, n)}
}

// Add inserts addr and reports whether it was not already present.
func (s *SignerSet) Add(addr common.Address) bool {
	if _, ok := s.members[addr]; ok {
		return false
	}
	s.members[addr] = struct{}{}
	return true
}

// Has reports whether addr is in the set.
func (s *SignerSet) Has(addr common.Address) bool {
	_, ok := s.members[addr]
	return ok
}

// Len returns the number of distinct signers.
func (s *SignerSet) Len() int {
	return len(s.members)
}

// Filter returns a new set holding only the members for which keep returns true.
// It stops at the first error.
func (s *SignerSet) Filter(keep func(common.Address) (bool, error)) (*SignerSet, error) {
	out := NewSignerSet(len(s.members))
	for addr := range s.members {
		ok, err := keep(addr)
		if err != nil {
			return nil, err
		}
		if ok {
			out.members[addr] = struct{}{}
		}
	}
	return out, nil
}

// Addresses returns the members in ascending byte order.
func (s *SignerSet) Addresses() []common.Address {
	out := make([]common.Address, 0, len(s.members))
	for addr := range s.members {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
