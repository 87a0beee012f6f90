package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	tabstore "github.com/xraph/tab/store"
)

// compile-time interface check
var _ tabstore.Store = (*Store)(nil)

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
		return fmt.Errorf("tab/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tab/postgres: migration failed: %w", err)
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
	if err := s.pg.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/postgres: load orders: %w", err)
	}
	result := make([]*order.Order, 0, len(models))
	for i := range models {
		o, err := fromOrderModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/postgres: decode order %d: %w", models[i].ID, err)
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
			return fmt.Errorf("tab/postgres: encode order %d: %w", o.ID, err)
		}
		models = append(models, *m)
	}

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tab/postgres: begin orders: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.NewDelete((*orderModel)(nil)).Where("id > $1", 0).Exec(ctx); err != nil {
		return fmt.Errorf("tab/postgres: clear orders: %w", err)
	}
	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("tab/postgres: save orders: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tab/postgres: commit orders: %w", err)
	}
	return nil
}

// ==================== Archive Store ====================

func (s *Store) LoadArchive(ctx context.Context) ([]*archive.Record, error) {
	var models []archiveModel
	if err := s.pg.NewSelect(&models).OrderExpr("archived_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/postgres: load archive: %w", err)
	}
	result := make([]*archive.Record, 0, len(models))
	for i := range models {
		r, err := fromArchiveModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/postgres: decode archive record %s: %w", models[i].ID, err)
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
			return fmt.Errorf("tab/postgres: encode archive record: %w", err)
		}
		models = append(models, *m)
	}
	_, err := s.pg.NewInsert(&models).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tab/postgres: save archive: %w", err)
	}
	return nil
}

// ==================== Bill Store ====================

func (s *Store) LoadBills(ctx context.Context) ([]*bill.Bill, error) {
	var models []billModel
	if err := s.pg.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/postgres: load bills: %w", err)
	}
	result := make([]*bill.Bill, 0, len(models))
	for i := range models {
		b, err := fromBillModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/postgres: decode bill %d: %w", models[i].ID, err)
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
			return fmt.Errorf("tab/postgres: encode bill %d: %w", b.ID, err)
		}
		models = append(models, *m)
	}

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tab/postgres: begin bills: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.NewDelete((*billModel)(nil)).Where("id > $1", 0).Exec(ctx); err != nil {
		return fmt.Errorf("tab/postgres: clear bills: %w", err)
	}
	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("tab/postgres: save bills: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tab/postgres: commit bills: %w", err)
	}
	return nil
}

// ==================== Service Request Store ====================

func (s *Store) LoadServiceRequests(ctx context.Context) ([]*request.ServiceRequest, error) {
	var models []serviceRequestModel
	if err := s.pg.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("tab/postgres: load service requests: %w", err)
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

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tab/postgres: begin service requests: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.NewDelete((*serviceRequestModel)(nil)).Where("id > $1", 0).Exec(ctx); err != nil {
		return fmt.Errorf("tab/postgres: clear service requests: %w", err)
	}
	if len(models) > 0 {
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("tab/postgres: save service requests: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tab/postgres: commit service requests: %w", err)
	}
	return nil
}

// ==================== Counter Store ====================

func (s *Store) LoadCounters(ctx context.Context) (tabstore.Counters, error) {
	m := new(countersModel)
	err := s.pg.NewSelect(m).
		Where("name = $1", countersKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return tabstore.Counters{}, nil
		}
		return tabstore.Counters{}, fmt.Errorf("tab/postgres: load counters: %w", err)
	}
	return fromCountersModel(m), nil
}

// SaveCounters upserts the counters row. Stored values never move
// backwards.
func (s *Store) SaveCounters(ctx context.Context, c tabstore.Counters) error {
	m := toCountersModel(c)
	_, err := s.pg.NewInsert(m).
		OnConflict("(name) DO UPDATE").
		Set("next_order_id = GREATEST(tab_counters.next_order_id, EXCLUDED.next_order_id)").
		Set("next_bill_id = GREATEST(tab_counters.next_bill_id, EXCLUDED.next_bill_id)").
		Set("next_service_id = GREATEST(tab_counters.next_service_id, EXCLUDED.next_service_id)").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tab/postgres: save counters: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
