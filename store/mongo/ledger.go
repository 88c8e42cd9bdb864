package mongo

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/ledger"
)

// IsProcessed reports whether fp has a committed execution.
func (s *Store) IsProcessed(ctx context.Context, fp common.Hash) (bool, error) {
	count, err := s.mdb.NewFind((*executionModel)(nil)).
		Filter(bson.M{"_id": hashKey(fp)}).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("bftrelay/mongo: is processed: %w", err)
	}

	return count > 0, nil
}

// MarkProcessed inserts the execution record keyed by fingerprint.
func (s *Store) MarkProcessed(ctx context.Context, exec *ledger.Execution) error {
	m := toExecutionModel(exec)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return bftrelay.ErrAlreadyProcessed
		}

		return fmt.Errorf("bftrelay/mongo: mark processed: %w", err)
	}

	return nil
}

// UnmarkProcessed removes the execution record for fp. Missing records are
// not an error.
func (s *Store) UnmarkProcessed(ctx context.Context, fp common.Hash) error {
	_, err := s.mdb.NewDelete((*executionModel)(nil)).
		Filter(bson.M{"_id": hashKey(fp)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bftrelay/mongo: unmark processed: %w", err)
	}

	return nil
}

// GetExecution returns the execution record for fp.
func (s *Store) GetExecution(ctx context.Context, fp common.Hash) (*ledger.Execution, error) {
	var m executionModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": hashKey(fp)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, bftrelay.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("bftrelay/mongo: get execution: %w", err)
	}

	return fromExecutionModel(&m)
}

// ListExecutions returns executions newest first, optionally for one target.
func (s *Store) ListExecutions(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Execution, error) {
	var models []executionModel

	filter := bson.M{}
	if opts.Target != (common.Address{}) {
		filter["target"] = addrKey(opts.Target)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bftrelay/mongo: list executions: %w", err)
	}

	result := make([]*ledger.Execution, 0, len(models))

	for i := range models {
		e, err := fromExecutionModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, e)
	}

	return result, nil
}

// CountExecutions returns the number of committed executions.
func (s *Store) CountExecutions(ctx context.Context) (int, error) {
	count, err := s.mdb.NewFind((*executionModel)(nil)).
		Filter(bson.M{}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bftrelay/mongo: count executions: %w", err)
	}

	return int(count), nil
}
