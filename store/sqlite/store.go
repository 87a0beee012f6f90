package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	tabstore "github.com/xraph/tab/store"
)

// compile-time interface check
var _ tabstore.Store = (*Store)(nil)

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
		return fmt.Errorf("tab/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tab/sqlite: migration failed: %w", err)
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

// ==================== Order Store ====================

func (s *Store) LoadOrders(ctx context.Context) ([]*order.Order, error) {
	var models []orderModel
	if err := s.sdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/sqlite: load orders: %w", err)
	}
	result := make([]*order.Order, 0, len(models))
	for i := range models {
		o, err := fromOrderModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/sqlite: decode order %d: %w", models[i].ID, err)
		}
		result = append(result, o)
	}
	return result, nil
}

// SaveOrders replaces the active order set. The clear and the insert run
// in one transaction, so a failed save leaves the previous set in place.
func (s *Store) SaveOrders(ctx context.Context, orders []*order.Order) error {
	models := make([]orderModel, 0, len(orders))
	for _, o := range orders {
		m, err := toOrderModel(o)
		if err != nil {
			return fmt.Errorf("tab/sqlite: encode order %d: %w", o.ID, err)
		}
		models = append(models, *m)
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tab/sqlite: begin orders: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.NewDelete((*orderModel)(nil)).Where("id > ?", 0).Exec(ctx); err != nil {
		return fmt.Errorf("tab/sqlite: clear orders: %w", err)
	}
	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("tab/sqlite: save orders: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tab/sqlite: commit orders: %w", err)
	}
	return nil
}

// ==================== Archive Store ====================

func (s *Store) LoadArchive(ctx context.Context) ([]*archive.Record, error) {
	var models []archiveModel
	if err := s.sdb.NewSelect(&models).OrderExpr("archived_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/sqlite: load archive: %w", err)
	}
	result := make([]*archive.Record, 0, len(models))
	for i := range models {
		r, err := fromArchiveModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/sqlite: decode archive record %s: %w", models[i].ID, err)
		}
		result = append(result, r)
	}
	return result, nil
}

// SaveArchive writes records not yet stored. The archive is append-only, so
// rows already present are left untouched.
func (s *Store) SaveArchive(ctx context.Context, records []*archive.Record) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]archiveModel, 0, len(records))
	for _, r := range records {
		m, err := toArchiveModel(r)
		if err != nil {
			return fmt.Errorf("tab/sqlite: encode archive record: %w", err)
		}
		models = append(models, *m)
	}
	_, err := s.sdb.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tab/sqlite: save archive: %w", err)
	}
	return nil
}

// ==================== Bill Store ====================

func (s *Store) LoadBills(ctx context.Context) ([]*bill.Bill, error) {
	var models []billModel
	if err := s.sdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/sqlite: load bills: %w", err)
	}
	result := make([]*bill.Bill, 0, len(models))
	for i := range models {
		b, err := fromBillModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/sqlite: decode bill %d: %w", models[i].ID, err)
		}
		result = append(result, b)
	}
	return result, nil
}

func (s *Store) SaveBills(ctx context.Context, bills []*bill.Bill) error {
	models := make([]billModel, 0, len(bills))
	for _, b := range bills {
		m, err := toBillModel(b)
		if err != nil {
			return fmt.Errorf("tab/sqlite: encode bill %d: %w", b.ID, err)
		}
		models = append(models, *m)
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tab/sqlite: begin bills: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.NewDelete((*billModel)(nil)).Where("id > ?", 0).Exec(ctx); err != nil {
		return fmt.Errorf("tab/sqlite: clear bills: %w", err)
	}
	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("tab/sqlite: save bills: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tab/sqlite: commit bills: %w", err)
	}
	return nil
}

// ==================== Service Request Store ====================

func (s *Store) LoadServiceRequests(ctx context.Context) ([]*request.ServiceRequest, error) {
	var models []serviceRequestModel
	if err := s.sdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/sqlite: load service requests: %w", err)
	}
	result := make([]*request.ServiceRequest, len(models))
	for i := range models {
		result[i] = fromServiceRequestModel(&models[i])
	}
	return result, nil
}

func (s *Store) SaveServiceRequests(ctx context.Context, reqs []*request.ServiceRequest) error {
	models := make([]serviceRequestModel, len(reqs))
	for i, r := range reqs {
		models[i] = *toServiceRequestModel(r)
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tab/sqlite: begin service requests: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.NewDelete((*serviceRequestModel)(nil)).Where("id > ?", 0).Exec(ctx); err != nil {
		return fmt.Errorf("tab/sqlite: clear service requests: %w", err)
	}
	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("tab/sqlite: save service requests: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tab/sqlite: commit service requests: %w", err)
	}
	return nil
}

// ==================== Counter Store ====================

func (s *Store) LoadCounters(ctx context.Context) (tabstore.Counters, error) {
	m := new(countersModel)
	err := s.sdb.NewSelect(m).
		Where("name = ?", countersKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return tabstore.Counters{}, nil
		}
		return tabstore.Counters{}, fmt.Errorf("tab/sqlite: load counters: %w", err)
	}
	return fromCountersModel(m), nil
}

// SaveCounters upserts the counters row. Stored values never move
// backwards.
func (s *Store) SaveCounters(ctx context.Context, c tabstore.Counters) error {
	m := toCountersModel(c)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(name) DO UPDATE").
		Set("next_order_id = MAX(tab_counters.next_order_id, excluded.next_order_id)").
		Set("next_bill_id = MAX(tab_counters.next_bill_id, excluded.next_bill_id)").
		Set("next_service_id = MAX(tab_counters.next_service_id, excluded.next_service_id)").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tab/sqlite: save counters: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
