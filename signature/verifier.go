package signature

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Length is the size of an r || s || v signature.
const Length = crypto.SignatureLength

// ErrInvalid is returned for malformed or non-canonical signatures.
var ErrInvalid = errors.New("signature: invalid signature")

// Recover returns the address that produced sig over digest.
//
// sig must be 65 bytes laid out as r || s || v with v in {0, 1, 27, 28}.
// r and s must lie in [1, N-1] and s must be in the lower half of the curve
// order; the high-S twin of a valid signature is rejected so that one key can
// never yield two distinct signatures over the same digest.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != Length {
		return common.Address{}, fmt.Errorf("%w: length %d, want %d", ErrInvalid, len(sig), Length)
	}

	v := sig[crypto.RecoveryIDOffset]
	switch v {
	case 0, 1:
	case 27, 28:
		v -= 27
	default:
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalid, sig[crypto.RecoveryIDOffset])
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, fmt.Errorf("%w: non-canonical r/s values", ErrInvalid)
	}

	normalized := make([]byte, Length)
	copy(normalized, sig)
	normalized[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverRequest recovers the signer of a request signature.
func RecoverRequest(target common.Address, payload []byte, expiration uint64, sig []byte) (common.Address, error) {
	return Recover(Digest(Fingerprint(target, payload, expiration)), sig)
}

// ParseHex decodes a 0x-prefixed hex signature.
func ParseHex(s string) ([]byte, error) {
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return sig, nil
}

// EncodeHex encodes a signature as 0x-prefixed hex.
func EncodeHex(sig []byte) string {
	return hexutil.Encode(sig)
}
