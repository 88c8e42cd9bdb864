// Package postgres provides a PostgreSQL Store implementation using Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
	relaystore "github.com/xraph/bftrelay/store"
)

// compile-time interface check
var _ relaystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("bftrelay/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", bftrelay.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Registry Store ====================

func (s *Store) AddRelayer(ctx context.Context, r *registry.Relayer) error {
	res, err := s.pg.NewInsert(toRelayerModel(r)).
		OnConflict("(address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
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
	res, err := s.pg.NewDelete((*relayerModel)(nil)).
		Where("address = $1", addrKey(addr)).
		Exec(ctx)
	if err != nil {
		return err
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
	err := s.pg.NewSelect(m).
		Where("address = $1", addrKey(addr)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, bftrelay.ErrRelayerNotFound
		}
		return nil, err
	}
	return fromRelayerModel(m)
}

func (s *Store) IsRelayer(ctx context.Context, addr common.Address) (bool, error) {
	count, err := s.pg.NewSelect((*relayerModel)(nil)).
		Where("address = $1", addrKey(addr)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListRelayers(ctx context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	var models []relayerModel
	q := s.pg.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	count, err := s.pg.NewSelect((*relayerModel)(nil)).Count(ctx)
	return int(count), err
}

// ==================== Ledger Store ====================

func (s *Store) IsProcessed(ctx context.Context, fp common.Hash) (bool, error) {
	count, err := s.pg.NewSelect((*executionModel)(nil)).
		Where("fingerprint = $1", hashKey(fp)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed relies on the fingerprint primary key: of two concurrent
// inserts exactly one affects a row.
func (s *Store) MarkProcessed(ctx context.Context, exec *ledger.Execution) error {
	res, err := s.pg.NewInsert(toExecutionModel(exec)).
		OnConflict("(fingerprint) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
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
	_, err := s.pg.NewDelete((*executionModel)(nil)).
		Where("fingerprint = $1", hashKey(fp)).
		Exec(ctx)
	return err
}

func (s *Store) GetExecution(ctx context.Context, fp common.Hash) (*ledger.Execution, error) {
	m := new(executionModel)
	err := s.pg.NewSelect(m).
		Where("fingerprint = $1", hashKey(fp)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, bftrelay.ErrExecutionNotFound
		}
		return nil, err
	}
	return fromExecutionModel(m)
}

func (s *Store) ListExecutions(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Execution, error) {
	var models []executionModel
	q := s.pg.NewSelect(&models)

	if opts.Target != (common.Address{}) {
		q = q.Where("target = $1", addrKey(opts.Target))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	count, err := s.pg.NewSelect((*executionModel)(nil)).Count(ctx)
	return int(count), err
}

// ==================== Event Store ====================

func (s *Store) AppendEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.pg.NewInsert(toEventModel(evt)).Exec(ctx)
	return err
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.From != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at >= $%d", argIdx), *opts.From)
	}
	if opts.To != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at <= $%d", argIdx), *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
