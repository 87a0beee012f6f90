package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tab store (SQLite).
var Migrations = migrate.NewGroup("tab")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tab_orders",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tab_orders (
    id                    INTEGER PRIMARY KEY,
    table_no              TEXT NOT NULL DEFAULT '',
    server                TEXT NOT NULL DEFAULT '',
    covers                INTEGER NOT NULL DEFAULT 1,
    status                TEXT NOT NULL DEFAULT 'new',
    consumption_confirmed INTEGER NOT NULL DEFAULT 0,
    comment               TEXT NOT NULL DEFAULT '',
    main_note             TEXT NOT NULL,
    sub_notes             TEXT NOT NULL DEFAULT '[]',
    total_amount          INTEGER NOT NULL DEFAULT 0,
    currency              TEXT NOT NULL DEFAULT '',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now')),
    archived_at           TEXT
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
    order_id       INTEGER NOT NULL DEFAULT 0,
    note_id        TEXT NOT NULL DEFAULT '',
    name           TEXT NOT NULL DEFAULT '',
    server         TEXT NOT NULL DEFAULT '',
    covers         INTEGER NOT NULL DEFAULT 1,
    items          TEXT NOT NULL DEFAULT '[]',
    total_amount   INTEGER NOT NULL DEFAULT 0,
    currency       TEXT NOT NULL DEFAULT '',
    payment_status TEXT NOT NULL DEFAULT '',
    order_snapshot TEXT,
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    archived_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tab_archive_table ON tab_archive (table_no, archived_at);
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
    id           INTEGER PRIMARY KEY,
    table_no     TEXT NOT NULL DEFAULT '',
    order_ids    TEXT NOT NULL DEFAULT '[]',
    total_amount INTEGER NOT NULL DEFAULT 0,
    currency     TEXT NOT NULL DEFAULT '',
    payments     TEXT NOT NULL DEFAULT '[]',
    created_at   TEXT NOT NULL DEFAULT (datetime('now'))
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
    id           INTEGER PRIMARY KEY,
    table_no     TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'new',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    processed_at TEXT
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
    next_order_id   INTEGER NOT NULL DEFAULT 1,
    next_bill_id    INTEGER NOT NULL DEFAULT 1,
    next_service_id INTEGER NOT NULL DEFAULT 1
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
