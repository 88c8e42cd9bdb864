package event

import (
	"context"
	"strings"
)

// Match reports whether k matches a subscription pattern.
//
// Supported patterns:
//
//	"relay.executed"  exact match
//	"relayer.*"       any kind with that first segment
//	"*"               every kind
func (k Kind) Match(pattern string) bool {
	if pattern == "*" || pattern == string(k) {
		return true
	}

	pp := strings.Split(pattern, ".")
	kp := strings.Split(string(k), ".")
	if len(pp) != len(kp) {
		return false
	}
	for i, p := range pp {
		if p != "*" && p != kp[i] {
			return false
		}
	}
	return true
}

// Filter wraps h so it only receives events whose kind matches pattern.
func Filter(pattern string, h Handler) Handler {
	return func(ctx context.Context, evt *Event) {
		if evt.Kind.Match(pattern) {
			h(ctx, evt)
		}
	}
}
