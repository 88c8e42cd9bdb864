package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/bftrelay/id"
)

func TestNewPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() id.ID
		prefix id.Prefix
	}{
		{"relayer", id.NewRelayerID, id.PrefixRelayer},
		{"execution", id.NewExecutionID, id.PrefixExecution},
		{"event", id.NewEventID, id.PrefixEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.gen()
			if got.Prefix() != tt.prefix {
				t.Fatalf("prefix = %q, want %q", got.Prefix(), tt.prefix)
			}
			if !strings.HasPrefix(got.String(), string(tt.prefix)+"_") {
				t.Fatalf("unexpected string form %q", got.String())
			}
			if got.IsNil() {
				t.Fatal("generated ID must not be nil")
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	orig := id.NewExecutionID()

	parsed, err := id.ParseExecutionID(orig.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != orig.String() {
		t.Fatalf("round trip changed ID: %s != %s", parsed, orig)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if _, err := id.Parse("not an id"); err == nil {
		t.Fatal("expected error for garbage")
	}
	if _, err := id.ParseRelayerID(id.NewEventID().String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		ID id.ID `json:"id"`
	}

	orig := wrapper{ID: id.NewRelayerID()}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}

	var decoded wrapper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID.String() != orig.ID.String() {
		t.Fatalf("JSON round trip changed ID: %s != %s", decoded.ID, orig.ID)
	}

	var empty wrapper
	if err := json.Unmarshal([]byte(`{"id":""}`), &empty); err != nil {
		t.Fatal(err)
	}
	if !empty.ID.IsNil() {
		t.Fatal("empty string must decode to Nil")
	}
}
