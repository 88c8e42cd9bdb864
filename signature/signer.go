package signature

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces relay request signatures with a secp256k1 key.
// It is what an off-chain relayer runs; the relay itself only recovers.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps an existing private key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// GenerateSigner creates a Signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("signature: generate key: %w", err)
	}
	return NewSigner(key), nil
}

// SignerFromHex loads a Signer from a hex-encoded private key (no 0x prefix).
func SignerFromHex(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signature: load key: %w", err)
	}
	return NewSigner(key), nil
}

// Address returns the signer's account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign signs the EIP-191 digest of a fingerprint and returns r || s || v
// with v in {27, 28}. The S value is always in canonical low form.
func (s *Signer) Sign(fp common.Hash) ([]byte, error) {
	return s.SignDigest(Digest(fp))
}

// SignDigest signs a raw 32-byte digest and returns r || s || v with v in {27, 28}.
func (s *Signer) SignDigest(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("signature: sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SignRequest fingerprints (target, payload, expiration) and signs it.
func (s *Signer) SignRequest(target common.Address, payload []byte, expiration uint64) ([]byte, error) {
	return s.Sign(Fingerprint(target, payload, expiration))
}
