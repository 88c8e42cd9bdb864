package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bftrelayd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
relay:
  owner: "0x00000000000000000000000000000000000000f0"
  base_path: /relay
  forward_timeout: 3s
  max_signatures: 32
  target_rate_limit: 5
targets:
  "0x5FbDB2315678afecb367f032d93F642f64180aa3": "http://localhost:8545/call"
logging:
  level: debug
store:
  driver: postgres
  dsn: postgres://relay@localhost:5432/relay?sslmode=disable
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("listen: got %q", cfg.Listen)
	}
	if cfg.Relay.BasePath != "/relay" {
		t.Errorf("base_path: got %q", cfg.Relay.BasePath)
	}
	if cfg.Relay.ForwardTimeout != 3*time.Second {
		t.Errorf("forward_timeout: got %v", cfg.Relay.ForwardTimeout)
	}
	if cfg.Relay.MaxSignatures != 32 {
		t.Errorf("max_signatures: got %d", cfg.Relay.MaxSignatures)
	}
	if cfg.Relay.MaxPayloadSize != 128<<10 {
		t.Errorf("max_payload_size default lost: got %d", cfg.Relay.MaxPayloadSize)
	}
	if cfg.Relay.TargetRateLimit != 5 {
		t.Errorf("target_rate_limit: got %d", cfg.Relay.TargetRateLimit)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging: got %+v", cfg.Logging)
	}
	if cfg.Store.Driver != StorePostgres || !strings.HasPrefix(cfg.Store.DSN, "postgres://") {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics defaults lost: %+v", cfg.Metrics)
	}

	urls := cfg.TargetURLs()
	target := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	if urls[target] != "http://localhost:8545/call" {
		t.Errorf("targets: got %v", urls)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing owner", `listen: ":1"`, "relay.owner"},
		{"bad owner", "relay:\n  owner: nope", "not a hex address"},
		{"bad target address", "relay:\n  owner: \"0x00000000000000000000000000000000000000f0\"\ntargets:\n  foo: http://x", "not a hex address"},
		{"bad target url", "relay:\n  owner: \"0x00000000000000000000000000000000000000f0\"\ntargets:\n  \"0x00000000000000000000000000000000000000aa\": ftp://x", "invalid url"},
		{"unknown store", "relay:\n  owner: \"0x00000000000000000000000000000000000000f0\"\nstore:\n  driver: etcd", "unknown store driver"},
		{"postgres without dsn", "relay:\n  owner: \"0x00000000000000000000000000000000000000f0\"\nstore:\n  driver: postgres", "store.dsn"},
		{"bad yaml", "listen: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultStoreIsMemory(t *testing.T) {
	if got := Default().Store.Driver; got != StoreMemory {
		t.Fatalf("expected memory driver by default, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
