// Package bunstore provides a Store implementation on the Bun ORM. It works
// with any Bun dialect that supports ON CONFLICT (PostgreSQL, SQLite).
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
	relaystore "github.com/xraph/bftrelay/store"
)

// compile-time interface check
var _ relaystore.Store = (*Store)(nil)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a new Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables using Bun's CreateTable.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*relayerModel)(nil),
		(*executionModel)(nil),
		(*eventModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("%w: %w", bftrelay.ErrMigrationFailed, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bftrelay_relayers_created ON bftrelay_relayers (created_at)",
		"CREATE INDEX IF NOT EXISTS idx_bftrelay_executions_target ON bftrelay_executions (target, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_bftrelay_executions_created ON bftrelay_executions (created_at)",
		"CREATE INDEX IF NOT EXISTS idx_bftrelay_events_kind ON bftrelay_events (kind, created_at)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%w: %w", bftrelay.ErrMigrationFailed, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Registry Store ====================

func (s *Store) AddRelayer(ctx context.Context, r *registry.Relayer) error {
	res, err := s.db.NewInsert().
		Model(toRelayerModel(r)).
		On("CONFLICT (address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bftrelay/bun: add relayer: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return bftrelay.ErrAlreadyRegistered
	}
	return nil
}

func (s *Store) RemoveRelayer(ctx context.Context, addr common.Address) error {
	res, err := s.db.NewDelete().
		Model((*relayerModel)(nil)).
		Where("address = ?", addrKey(addr)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bftrelay/bun: remove relayer: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return bftrelay.ErrNotRegistered
	}
	return nil
}

func (s *Store) GetRelayer(ctx context.Context, addr common.Address) (*registry.Relayer, error) {
	m := new(relayerModel)
	err := s.db.NewSelect().
		Model(m).
		Where("address = ?", addrKey(addr)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bftrelay.ErrRelayerNotFound
		}
		return nil, fmt.Errorf("bftrelay/bun: get relayer: %w", err)
	}
	return fromRelayerModel(m)
}

func (s *Store) IsRelayer(ctx context.Context, addr common.Address) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*relayerModel)(nil)).
		Where("address = ?", addrKey(addr)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("bftrelay/bun: is relayer: %w", err)
	}
	return ok, nil
}

func (s *Store) ListRelayers(ctx context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	var models []relayerModel
	q := s.db.NewSelect().Model(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at ASC", "id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bftrelay/bun: list relayers: %w", err)
	}

	result := make([]*registry.Relayer, len(models))
	for i := range models {
		r, err := fromRelayerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) CountRelayers(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*relayerModel)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bftrelay/bun: count relayers: %w", err)
	}
	return n, nil
}

// ==================== Ledger Store ====================

func (s *Store) IsProcessed(ctx context.Context, fp common.Hash) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*executionModel)(nil)).
		Where("fingerprint = ?", hashKey(fp)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("bftrelay/bun: is processed: %w", err)
	}
	return ok, nil
}

func (s *Store) MarkProcessed(ctx context.Context, exec *ledger.Execution) error {
	res, err := s.db.NewInsert().
		Model(toExecutionModel(exec)).
		On("CONFLICT (fingerprint) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bftrelay/bun: mark processed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return bftrelay.ErrAlreadyProcessed
	}
	return nil
}

func (s *Store) UnmarkProcessed(ctx context.Context, fp common.Hash) error {
	_, err := s.db.NewDelete().
		Model((*executionModel)(nil)).
		Where("fingerprint = ?", hashKey(fp)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bftrelay/bun: unmark processed: %w", err)
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, fp common.Hash) (*ledger.Execution, error) {
	m := new(executionModel)
	err := s.db.NewSelect().
		Model(m).
		Where("fingerprint = ?", hashKey(fp)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bftrelay.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("bftrelay/bun: get execution: %w", err)
	}
	return fromExecutionModel(m)
}

func (s *Store) ListExecutions(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Execution, error) {
	var models []executionModel
	q := s.db.NewSelect().Model(&models)
	if opts.Target != (common.Address{}) {
		q = q.Where("target = ?", addrKey(opts.Target))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC", "id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bftrelay/bun: list executions: %w", err)
	}

	result := make([]*ledger.Execution, len(models))
	for i := range models {
		e, err := fromExecutionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountExecutions(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*executionModel)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bftrelay/bun: count executions: %w", err)
	}
	return n, nil
}

// ==================== Event Store ====================

func (s *Store) AppendEvent(ctx context.Context, evt *event.Event) error {
	if _, err := s.db.NewInsert().Model(toEventModel(evt)).Exec(ctx); err != nil {
		return fmt.Errorf("bftrelay/bun: append event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.db.NewSelect().Model(&models)

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.From != nil {
		q = q.Where("created_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("created_at <= ?", *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC", "id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bftrelay/bun: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}
