package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
)

// Addresses and hashes are stored as lowercase 0x-hex so equality is textual.
func addrKey(a common.Address) string { return strings.ToLower(a.Hex()) }
func hashKey(h common.Hash) string    { return h.Hex() }

// --- Relayer models ---

type relayerModel struct {
	grove.BaseModel `grove:"table:bftrelay_relayers"`

	Address   string    `grove:"address,pk"`
	ID        string    `grove:"id,unique"`
	AddedBy   string    `grove:"added_by"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toRelayerModel(r *registry.Relayer) *relayerModel {
	return &relayerModel{
		Address:   addrKey(r.Address),
		ID:        r.ID.String(),
		AddedBy:   addrKey(r.AddedBy),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromRelayerModel(m *relayerModel) (*registry.Relayer, error) {
	rID, err := id.ParseRelayerID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse relayer ID %q: %w", m.ID, err)
	}
	return &registry.Relayer{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:      rID,
		Address: common.HexToAddress(m.Address),
		AddedBy: common.HexToAddress(m.AddedBy),
	}, nil
}

// --- Execution models ---

type executionModel struct {
	grove.BaseModel `grove:"table:bftrelay_executions"`

	Fingerprint string    `grove:"fingerprint,pk"`
	ID          string    `grove:"id,unique"`
	Target      string    `grove:"target"`
	Expiration  string    `grove:"expiration"`
	Signers     []string  `grove:"signers,type:jsonb"`
	PayloadSize int       `grove:"payload_size"`
	ExecutedAt  time.Time `grove:"executed_at"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toExecutionModel(e *ledger.Execution) *executionModel {
	signers := make([]string, len(e.Signers))
	for i, a := range e.Signers {
		signers[i] = addrKey(a)
	}
	return &executionModel{
		Fingerprint: hashKey(e.Fingerprint),
		ID:          e.ID.String(),
		Target:      addrKey(e.Target),
		Expiration:  strconv.FormatUint(e.Expiration, 10),
		Signers:     signers,
		PayloadSize: e.PayloadSize,
		ExecutedAt:  e.ExecutedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func fromExecutionModel(m *executionModel) (*ledger.Execution, error) {
	eID, err := id.ParseExecutionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse execution ID %q: %w", m.ID, err)
	}
	exp, err := strconv.ParseUint(m.Expiration, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expiration %q: %w", m.Expiration, err)
	}
	signers := make([]common.Address, len(m.Signers))
	for i, s := range m.Signers {
		signers[i] = common.HexToAddress(s)
	}
	return &ledger.Execution{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          eID,
		Fingerprint: common.HexToHash(m.Fingerprint),
		Target:      common.HexToAddress(m.Target),
		Expiration:  exp,
		Signers:     signers,
		PayloadSize: m.PayloadSize,
		ExecutedAt:  m.ExecutedAt,
	}, nil
}

// --- Event models ---

type eventModel struct {
	grove.BaseModel `grove:"table:bftrelay_events"`

	ID          string    `grove:"id,pk"`
	Kind        string    `grove:"kind"`
	Relayer     string    `grove:"relayer"`
	Target      string    `grove:"target"`
	Fingerprint string    `grove:"fingerprint"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:          evt.ID.String(),
		Kind:        string(evt.Kind),
		Relayer:     addrKey(evt.Relayer),
		Target:      addrKey(evt.Target),
		Fingerprint: hashKey(evt.Fingerprint),
		CreatedAt:   evt.CreatedAt,
		UpdatedAt:   evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          evtID,
		Kind:        event.Kind(m.Kind),
		Relayer:     common.HexToAddress(m.Relayer),
		Target:      common.HexToAddress(m.Target),
		Fingerprint: common.HexToHash(m.Fingerprint),
	}, nil
}
