// Package scope carries the authenticated caller identity through a context.
//
// Transports (the HTTP API, an embedding application) authenticate the caller
// and attach its address with WithCaller; owner-gated operations read it back
// with Caller.
package scope

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type callerKey struct{}

// WithCaller returns a copy of ctx carrying the given caller address.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller extracts the caller address from the context.
// The boolean is false when no caller was attached.
func Caller(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}
