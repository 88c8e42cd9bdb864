// Package sqlite provides a SQLite Store implementation using Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
	relaystore "github.com/xraph/bftrelay/store"
)

// compile-time interface check
var _ relaystore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("bftrelay/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", bftrelay.ErrMigrationFailed, err)
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
	res, err := s.sdb.NewInsert(toRelayerModel(r)).
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
	res, err := s.sdb.NewDelete((*relayerModel)(nil)).
		Where("address = ?", addrKey(addr)).
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
	err := s.sdb.NewSelect(m).
		Where("address = ?", addrKey(addr)).
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
	count, err := s.sdb.NewSelect((*relayerModel)(nil)).
		Where("address = ?", addrKey(addr)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListRelayers(ctx context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	var models []relayerModel
	q := s.sdb.NewSelect(&models)
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
	count, err := s.sdb.NewSelect((*relayerModel)(nil)).Count(ctx)
	return int(count), err
}

// ==================== Ledger Store ====================

func (s *Store) IsProcessed(ctx context.Context, fp common.Hash) (bool, error) {
	count, err := s.sdb.NewSelect((*executionModel)(nil)).
		Where("fingerprint = ?", hashKey(fp)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed relies on the fingerprint primary key; SQLite serializes
// writers, so exactly one of two racing inserts affects a row.
func (s *Store) MarkProcessed(ctx context.Context, exec *ledger.Execution) error {
	res, err := s.sdb.NewInsert(toExecutionModel(exec)).
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
	_, err := s.sdb.NewDelete((*executionModel)(nil)).
		Where("fingerprint = ?", hashKey(fp)).
		Exec(ctx)
	return err
}

func (s *Store) GetExecution(ctx context.Context, fp common.Hash) (*ledger.Execution, error) {
	m := new(executionModel)
	err := s.sdb.NewSelect(m).
		Where("fingerprint = ?", hashKey(fp)).
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
	q := s.sdb.NewSelect(&models)

	if opts.Target != (common.Address{}) {
		q = q.Where("target = ?", addrKey(opts.Target))
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
	count, err := s.sdb.NewSelect((*executionModel)(nil)).Count(ctx)
	return int(count), err
}

// ==================== Event Store ====================

func (s *Store) AppendEvent(ctx context.Context, evt *event.Event) error {
	_, err := s.sdb.NewInsert(toEventModel(evt)).Exec(ctx)
	return err
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.sdb.NewSelect(&models)

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
