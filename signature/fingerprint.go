// Package signature provides request fingerprinting and secp256k1 signature
// recovery for relay requests.
//
// A request fingerprint is keccak256(abi.encode(target, payload, expiration)).
// Relayers sign the EIP-191 personal-message digest of that fingerprint, which
// is what Ethereum wallets produce for signMessage(fingerprint).
package signature

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// requestArgs is the ABI tuple (address, bytes, uint256) hashed into a fingerprint.
var requestArgs = mustArguments("address", "bytes", "uint256")

func mustArguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("signature: abi type %q: %v", t, err))
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

// Encode returns the ABI encoding of (target, payload, expiration).
func Encode(target common.Address, payload []byte, expiration uint64) ([]byte, error) {
	if payload == nil {
		payload = []byte{}
	}
	packed, err := requestArgs.Pack(target, payload, new(big.Int).SetUint64(expiration))
	if err != nil {
		return nil, fmt.Errorf("signature: encode request: %w", err)
	}
	return packed, nil
}

// Fingerprint returns the replay-protection identity of a request.
// Requests with identical (target, payload, expiration) share a fingerprint.
func Fingerprint(target common.Address, payload []byte, expiration uint64) common.Hash {
	packed, err := Encode(target, payload, expiration)
	if err != nil {
		// Pack only fails on type mismatches, which the signature above rules out.
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// Digest returns the EIP-191 personal-message hash of a fingerprint.
// This is the 32-byte value relayers actually sign.
func Digest(fp common.Hash) common.Hash {
	return common.BytesToHash(accounts.TextHash(fp.Bytes()))
}
