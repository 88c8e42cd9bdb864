// Package id defines the TypeID-based identifiers of bftrelay records.
//
// Relayer memberships, executions and events each carry an ID whose prefix
// names the record type. IDs are UUIDv7-based, so they sort by creation
// time, and render as "prefix_suffix".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record type encoded in an ID.
type Prefix string

// Record prefixes.
const (
	PrefixRelayer   Prefix = "rlyr"
	PrefixExecution Prefix = "exec"
	PrefixEvent     Prefix = "evt"
)

// ID is a prefix-qualified TypeID. The zero value is Nil.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates an ID with the given prefix. It panics on an invalid prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a "prefix_suffix" string of any prefix.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and requires its prefix to equal expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

func NewRelayerID() ID   { return New(PrefixRelayer) }
func NewExecutionID() ID { return New(PrefixExecution) }
func NewEventID() ID     { return New(PrefixEvent) }

func ParseRelayerID(s string) (ID, error)   { return ParseWithPrefix(s, PrefixRelayer) }
func ParseExecutionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixExecution) }
func ParseEventID(s string) (ID, error)     { return ParseWithPrefix(s, PrefixEvent) }

// String returns the "prefix_suffix" form, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the record prefix, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler. Nil marshals to "".
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" unmarshals to Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
