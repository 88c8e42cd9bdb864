package mongo

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/registry"
)

// AddRelayer inserts a relayer keyed by address. The unique _id makes the
// insert the membership check.
func (s *Store) AddRelayer(ctx context.Context, r *registry.Relayer) error {
	m := toRelayerModel(r)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return bftrelay.ErrAlreadyRegistered
		}

		return fmt.Errorf("bftrelay/mongo: add relayer: %w", err)
	}

	return nil
}

// RemoveRelayer deletes a relayer by address.
func (s *Store) RemoveRelayer(ctx context.Context, addr common.Address) error {
	res, err := s.mdb.NewDelete((*relayerModel)(nil)).
		Filter(bson.M{"_id": addrKey(addr)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bftrelay/mongo: remove relayer: %w", err)
	}

	if res.DeletedCount() == 0 {
		return bftrelay.ErrNotRegistered
	}

	return nil
}

// GetRelayer returns a relayer by address.
func (s *Store) GetRelayer(ctx context.Context, addr common.Address) (*registry.Relayer, error) {
	var m relayerModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addrKey(addr)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, bftrelay.ErrRelayerNotFound
		}

		return nil, fmt.Errorf("bftrelay/mongo: get relayer: %w", err)
	}

	return fromRelayerModel(&m)
}

// IsRelayer reports whether addr is registered.
func (s *Store) IsRelayer(ctx context.Context, addr common.Address) (bool, error) {
	count, err := s.mdb.NewFind((*relayerModel)(nil)).
		Filter(bson.M{"_id": addrKey(addr)}).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("bftrelay/mongo: is relayer: %w", err)
	}

	return count > 0, nil
}

// ListRelayers returns relayers in registration order.
func (s *Store) ListRelayers(ctx context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	var models []relayerModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bftrelay/mongo: list relayers: %w", err)
	}

	result := make([]*registry.Relayer, 0, len(models))

	for i := range models {
		r, err := fromRelayerModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, r)
	}

	return result, nil
}

// CountRelayers returns the registry size.
func (s *Store) CountRelayers(ctx context.Context) (int, error) {
	count, err := s.mdb.NewFind((*relayerModel)(nil)).
		Filter(bson.M{}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bftrelay/mongo: count relayers: %w", err)
	}

	return int(count), nil
}
