package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
	"github.com/xraph/bftrelay/ledger"
)

// executionModel is the JSON representation stored in Redis.
type executionModel struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Target      string    `json:"target"`
	Expiration  uint64    `json:"expiration"`
	Signers     []string  `json:"signers"`
	PayloadSize int       `json:"payload_size"`
	ExecutedAt  time.Time `json:"executed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toExecutionModel(e *ledger.Execution) *executionModel {
	signers := make([]string, len(e.Signers))
	for i, a := range e.Signers {
		signers[i] = addrKey(a)
	}
	return &executionModel{
		ID:          e.ID.String(),
		Fingerprint: hashKey(e.Fingerprint),
		Target:      addrKey(e.Target),
		Expiration:  e.Expiration,
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
		Expiration:  m.Expiration,
		Signers:     signers,
		PayloadSize: m.PayloadSize,
		ExecutedAt:  m.ExecutedAt,
	}, nil
}

func (s *Store) IsProcessed(ctx context.Context, fp common.Hash) (bool, error) {
	n, err := s.rdb.Exists(ctx, entityKey(prefixExecution, hashKey(fp))).Result()
	if err != nil {
		return false, fmt.Errorf("bftrelay/redis: is processed: %w", err)
	}
	return n > 0, nil
}

func (s *Store) MarkProcessed(ctx context.Context, exec *ledger.Execution) error {
	m := toExecutionModel(exec)

	ok, err := createIndexed(ctx, s.rdb, entityKey(prefixExecution, m.Fingerprint), m,
		scoreFromTime(m.CreatedAt), m.Fingerprint, zExecutionAll, zExecutionTarget+m.Target)
	if err != nil {
		return fmt.Errorf("bftrelay/redis: mark processed: %w", err)
	}
	if !ok {
		return bftrelay.ErrAlreadyProcessed
	}
	return nil
}

func (s *Store) UnmarkProcessed(ctx context.Context, fp common.Hash) error {
	key := hashKey(fp)

	var m executionModel
	err := s.getEntity(ctx, entityKey(prefixExecution, key), &m)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bftrelay/redis: unmark processed: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, entityKey(prefixExecution, key))
	pipe.ZRem(ctx, zExecutionAll, key)
	pipe.ZRem(ctx, zExecutionTarget+m.Target, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bftrelay/redis: unmark processed: %w", err)
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, fp common.Hash) (*ledger.Execution, error) {
	var m executionModel
	if err := s.getEntity(ctx, entityKey(prefixExecution, hashKey(fp)), &m); err != nil {
		if isNotFound(err) {
			return nil, bftrelay.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("bftrelay/redis: get execution: %w", err)
	}
	return fromExecutionModel(&m)
}

func (s *Store) ListExecutions(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Execution, error) {
	index := zExecutionAll
	if opts.Target != (common.Address{}) {
		index = zExecutionTarget + addrKey(opts.Target)
	}

	keys, err := s.rdb.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("bftrelay/redis: list executions: %w", err)
	}

	result := make([]*ledger.Execution, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- { // reverse for DESC order
		var m executionModel
		if err := s.getEntity(ctx, entityKey(prefixExecution, keys[i]), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		e, err := fromExecutionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountExecutions(ctx context.Context) (int, error) {
	n, err := s.rdb.ZCard(ctx, zExecutionAll).Result()
	if err != nil {
		return 0, fmt.Errorf("bftrelay/redis: count executions: %w", err)
	}
	return int(n), nil
}
