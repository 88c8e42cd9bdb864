package bftrelay

// State is a stage of a relay invocation.
type State int

// Relay states in processing order. Committed and RolledBack are terminal.
const (
	StateReceived State = iota
	StateSignatureChecked
	StateFreshnessChecked
	StateReplayChecked
	StateForwarded
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateSignatureChecked:
		return "signature_checked"
	case StateFreshnessChecked:
		return "freshness_checked"
	case StateReplayChecked:
		return "replay_checked"
	case StateForwarded:
		return "forwarded"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
