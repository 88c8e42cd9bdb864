package bftrelay

import (
	"errors"

	"github.com/xraph/bftrelay/signature"
)

// Sentinel errors returned by Relay operations.
var (
	// ErrNoStore is returned when a Relay is created without a store.
	ErrNoStore = errors.New("relay: store is required")

	// ErrNoOwner is returned when a Relay is created without an owner address.
	ErrNoOwner = errors.New("relay: owner is required")

	// ErrNoForwarder is returned when a Relay is created without a forwarder.
	ErrNoForwarder = errors.New("relay: forwarder is required")

	// ErrUnauthorized is returned when the caller is not the owner.
	ErrUnauthorized = errors.New("relay: caller is not the owner")

	// ErrAlreadyRegistered is returned when adding a relayer that is already a member.
	ErrAlreadyRegistered = errors.New("relay: relayer already registered")

	// ErrNotRegistered is returned when removing a relayer that is not a member.
	ErrNotRegistered = errors.New("relay: relayer not registered")

	// ErrInvalidRelayer is returned for the zero address or other unusable identities.
	ErrInvalidRelayer = errors.New("relay: invalid relayer address")

	// ErrInvalidSignature matches every malformed or non-canonical signature
	// error from the signature package. Within a relay request it is never
	// fatal on its own; the signature is skipped.
	ErrInvalidSignature = signature.ErrInvalid

	// ErrInsufficientSignatures is returned when fewer unique registered relayers
	// signed the request than the current threshold requires.
	ErrInsufficientSignatures = errors.New("relay: insufficient valid signatures")

	// ErrRequestExpired is returned when ledger time is past the request expiration.
	ErrRequestExpired = errors.New("relay: request expired")

	// ErrAlreadyProcessed is returned when the request fingerprint was already executed.
	ErrAlreadyProcessed = errors.New("relay: request already processed")

	// ErrForwardingFailed is returned when the target call failed. The invocation
	// is rolled back and the request may be resubmitted before it expires.
	ErrForwardingFailed = errors.New("relay: forwarding failed")

	// ErrInvalidRequest is returned for structurally unusable requests
	// (zero target, oversized payload, too many signatures).
	ErrInvalidRequest = errors.New("relay: invalid request")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("relay: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("relay: migration failed")

	// ErrRelayerNotFound is returned when a relayer record cannot be found.
	ErrRelayerNotFound = errors.New("relay: relayer not found")

	// ErrExecutionNotFound is returned when no execution exists for a fingerprint.
	ErrExecutionNotFound = errors.New("relay: execution not found")
)
