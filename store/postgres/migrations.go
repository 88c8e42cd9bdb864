package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the relay store.
// It can be registered with the grove extension for orchestrated migration
// management (locking, version tracking, rollback support).
var Migrations = migrate.NewGroup("bftrelay")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_bftrelay_relayers",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bftrelay_relayers (
    address     TEXT PRIMARY KEY,
    id          TEXT NOT NULL UNIQUE,
    added_by    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bftrelay_relayers_created ON bftrelay_relayers (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bftrelay_relayers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_bftrelay_executions",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bftrelay_executions (
    fingerprint   TEXT PRIMARY KEY,
    id            TEXT NOT NULL UNIQUE,
    target        TEXT NOT NULL,
    expiration    TEXT NOT NULL,
    signers       JSONB NOT NULL DEFAULT '[]',
    payload_size  INT NOT NULL DEFAULT 0,
    executed_at   TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bftrelay_executions_target ON bftrelay_executions (target, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bftrelay_executions_created ON bftrelay_executions (created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bftrelay_executions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_bftrelay_events",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bftrelay_events (
    id           TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    relayer      TEXT NOT NULL DEFAULT '',
    target       TEXT NOT NULL DEFAULT '',
    fingerprint  TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bftrelay_events_kind_created ON bftrelay_events (kind, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bftrelay_events_created ON bftrelay_events (created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bftrelay_events`)
				return err
			},
		},
	)
}
