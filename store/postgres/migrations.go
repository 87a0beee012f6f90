package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tab store.
var Migrations = migrate.NewGroup("tab")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tab_orders",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tab_orders (
    id                    BIGINT PRIMARY KEY,
    table_no              TEXT NOT NULL DEFAULT '',
    server                TEXT NOT NULL DEFAULT '',
    covers                INT NOT NULL DEFAULT 1,
    status                TEXT NOT NULL DEFAULT 'new',
    consumption_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    comment               TEXT NOT NULL DEFAULT '',
    main_note             JSONB NOT NULL,
    sub_notes             JSONB NOT NULL DEFAULT '[]',
    total_amount          BIGINT NOT NULL DEFAULT 0,
    currency              TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    archived_at           TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tab_orders_table ON tab_orders (table_no);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tab_orders`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tab_archive",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tab_archive (
    id             TEXT PRIMARY KEY,
    kind           TEXT NOT NULL DEFAULT 'note',
    table_no       TEXT NOT NULL DEFAULT '',
    order_id       BIGINT NOT NULL DEFAULT 0,
    note_id        TEXT NOT NULL DEFAULT '',
    name           TEXT NOT NULL DEFAULT '',
    server         TEXT NOT NULL DEFAULT '',
    covers         INT NOT NULL DEFAULT 1,
    items          JSONB NOT NULL DEFAULT '[]',
    total_amount   BIGINT NOT NULL DEFAULT 0,
    currency       TEXT NOT NULL DEFAULT '',
    payment_status TEXT NOT NULL DEFAULT '',
    order_snapshot JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    archived_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tab_archive_table ON tab_archive (table_no, archived_at DESC);
CREATE INDEX IF NOT EXISTS idx_tab_archive_order ON tab_archive (order_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tab_archive`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tab_bills",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tab_bills (
    id           BIGINT PRIMARY KEY,
    table_no     TEXT NOT NULL DEFAULT '',
    order_ids    JSONB NOT NULL DEFAULT '[]',
    total_amount BIGINT NOT NULL DEFAULT 0,
    currency     TEXT NOT NULL DEFAULT '',
    payments     JSONB NOT NULL DEFAULT '[]',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tab_bills_table ON tab_bills (table_no);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tab_bills`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tab_service_requests",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tab_service_requests (
    id           BIGINT PRIMARY KEY,
    table_no     TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'new',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tab_service_requests_status ON tab_service_requests (status, table_no);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tab_service_requests`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tab_counters",
			Version: "20260301000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tab_counters (
    name            TEXT PRIMARY KEY,
    next_order_id   BIGINT NOT NULL DEFAULT 1,
    next_bill_id    BIGINT NOT NULL DEFAULT 1,
    next_service_id BIGINT NOT NULL DEFAULT 1
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tab_counters`)
				return err
			},
		},
	)
}
