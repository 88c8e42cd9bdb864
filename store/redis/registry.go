package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
	"github.com/xraph/bftrelay/registry"
)

// relayerModel is the JSON representation stored in Redis.
type relayerModel struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRelayerModel(r *registry.Relayer) *relayerModel {
	return &relayerModel{
		ID:        r.ID.String(),
		Address:   addrKey(r.Address),
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

func (s *Store) AddRelayer(ctx context.Context, r *registry.Relayer) error {
	m := toRelayerModel(r)

	ok, err := createIndexed(ctx, s.rdb, entityKey(prefixRelayer, m.Address), m,
		scoreFromTime(m.CreatedAt), m.Address, zRelayerAll)
	if err != nil {
		return fmt.Errorf("bftrelay/redis: add relayer: %w", err)
	}
	if !ok {
		return bftrelay.ErrAlreadyRegistered
	}
	return nil
}

func (s *Store) RemoveRelayer(ctx context.Context, addr common.Address) error {
	key := addrKey(addr)

	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, entityKey(prefixRelayer, key))
	pipe.ZRem(ctx, zRelayerAll, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bftrelay/redis: remove relayer: %w", err)
	}
	if del.Val() == 0 {
		return bftrelay.ErrNotRegistered
	}
	return nil
}

func (s *Store) GetRelayer(ctx context.Context, addr common.Address) (*registry.Relayer, error) {
	var m relayerModel
	if err := s.getEntity(ctx, entityKey(prefixRelayer, addrKey(addr)), &m); err != nil {
		if isNotFound(err) {
			return nil, bftrelay.ErrRelayerNotFound
		}
		return nil, fmt.Errorf("bftrelay/redis: get relayer: %w", err)
	}
	return fromRelayerModel(&m)
}

func (s *Store) IsRelayer(ctx context.Context, addr common.Address) (bool, error) {
	n, err := s.rdb.Exists(ctx, entityKey(prefixRelayer, addrKey(addr))).Result()
	if err != nil {
		return false, fmt.Errorf("bftrelay/redis: is relayer: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListRelayers(ctx context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	keys, err := s.rdb.ZRange(ctx, zRelayerAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("bftrelay/redis: list relayers: %w", err)
	}

	result := make([]*registry.Relayer, 0, len(keys))
	for _, k := range keys {
		var m relayerModel
		if err := s.getEntity(ctx, entityKey(prefixRelayer, k), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		r, err := fromRelayerModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountRelayers(ctx context.Context) (int, error) {
	n, err := s.rdb.ZCard(ctx, zRelayerAll).Result()
	if err != nil {
		return 0, fmt.Errorf("bftrelay/redis: count relayers: %w", err)
	}
	return int(n), nil
}
