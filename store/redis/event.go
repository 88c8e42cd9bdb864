package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
)

// eventModel is the JSON representation stored in Redis.
type eventModel struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Relayer     string    `json:"relayer"`
	Target      string    `json:"target"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
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

func (s *Store) AppendEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	if err := s.setEntity(ctx, entityKey(prefixEvent, m.ID), m); err != nil {
		return fmt.Errorf("bftrelay/redis: append event: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zEventAll, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}).Err(); err != nil {
		return fmt.Errorf("bftrelay/redis: append event index: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	minScore := math.Inf(-1)
	maxScore := math.Inf(1)
	if opts.From != nil {
		minScore = scoreFromTime(*opts.From)
	}
	if opts.To != nil {
		maxScore = scoreFromTime(*opts.To)
	}

	ids, err := s.zRangeByScoreIDs(ctx, zEventAll, minScore, maxScore)
	if err != nil {
		return nil, fmt.Errorf("bftrelay/redis: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for DESC order
		var m eventModel
		if err := s.getEntity(ctx, entityKey(prefixEvent, ids[i]), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.Kind != "" && m.Kind != string(opts.Kind) {
			continue
		}
		evt, err := fromEventModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, evt)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}
