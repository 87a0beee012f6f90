package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	tabstore "github.com/xraph/tab/store"
)

// Collection name constants.
const (
	colOrders          = "tab_orders"
	colArchive         = "tab_archive"
	colBills           = "tab_bills"
	colServiceRequests = "tab_service_requests"
	colCounters        = "tab_counters"
)

// compile-time interface check
var _ tabstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tab collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tab/mongo: migrate %s indexes: %w", col, err)
		}
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tab/mongo: load orders: %w", err)
	}
	result := make([]*order.Order, len(models))
	for i := range models {
		result[i] = fromOrderModel(&models[i])
	}
	return result, nil
}

func (s *Store) SaveOrders(ctx context.Context, orders []*order.Order) error {
	docs := make([]any, len(orders))
	for i, o := range orders {
		docs[i] = toOrderModel(o)
	}
	return s.replace(ctx, colOrders, docs)
}

// ==================== Archive Store ====================

func (s *Store) LoadArchive(ctx context.Context) ([]*archive.Record, error) {
	var models []archiveModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "archived_at", Value: 1}}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tab/mongo: load archive: %w", err)
	}
	result := make([]*archive.Record, 0, len(models))
	for i := range models {
		r, err := fromArchiveModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/mongo: decode archive record %s: %w", models[i].ID, err)
		}
		result = append(result, r)
	}
	return result, nil
}

// SaveArchive inserts records not yet stored; existing ids are skipped.
func (s *Store) SaveArchive(ctx context.Context, records []*archive.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = toArchiveModel(r)
	}
	_, err := s.mdb.Collection(colArchive).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("tab/mongo: save archive: %w", err)
	}
	return nil
}

// ==================== Bill Store ====================

func (s *Store) LoadBills(ctx context.Context) ([]*bill.Bill, error) {
	var models []billModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tab/mongo: load bills: %w", err)
	}
	result := make([]*bill.Bill, 0, len(models))
	for i := range models {
		b, err := fromBillModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tab/mongo: decode bill %d: %w", models[i].ID, err)
		}
		result = append(result, b)
	}
	return result, nil
}

func (s *Store) SaveBills(ctx context.Context, bills []*bill.Bill) error {
	docs := make([]any, len(bills))
	for i, b := range bills {
		docs[i] = toBillModel(b)
	}
	return s.replace(ctx, colBills, docs)
}

// ==================== Service Request Store ====================

func (s *Store) LoadServiceRequests(ctx context.Context) ([]*request.ServiceRequest, error) {
	var models []serviceRequestModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tab/mongo: load service requests: %w", err)
	}
	result := make([]*request.ServiceRequest, len(models))
	for i := range models {
		result[i] = fromServiceRequestModel(&models[i])
	}
	return result, nil
}

func (s *Store) SaveServiceRequests(ctx context.Context, reqs []*request.ServiceRequest) error {
	docs := make([]any, len(reqs))
	for i, r := range reqs {
		docs[i] = toServiceRequestModel(r)
	}
	return s.replace(ctx, colServiceRequests, docs)
}

// ==================== Counter Store ====================

func (s *Store) LoadCounters(ctx context.Context) (tabstore.Counters, error) {
	var m countersModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": countersKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return tabstore.Counters{}, nil
		}
		return tabstore.Counters{}, fmt.Errorf("tab/mongo: load counters: %w", err)
	}
	return fromCountersModel(&m), nil
}

// SaveCounters upserts the counters document with $max so stored values
// never move backwards.
func (s *Store) SaveCounters(ctx context.Context, c tabstore.Counters) error {
	_, err := s.mdb.NewUpdate((*countersModel)(nil)).
		Filter(bson.M{"_id": countersKey}).
		SetUpdate(bson.M{"$max": bson.M{
			"next_order_id":   c.NextOrderID,
			"next_bill_id":    c.NextBillID,
			"next_service_id": c.NextServiceID,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tab/mongo: save counters: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// replace swaps the whole content of col for docs. The delete and the
// insert are not transactional; a failed insert leaves col empty until the
// next flush retries it.
func (s *Store) replace(ctx context.Context, col string, docs []any) error {
	c := s.mdb.Collection(col)
	if _, err := c.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("tab/mongo: clear %s: %w", col, err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("tab/mongo: save %s: %w", col, err)
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tab collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colOrders: {
			{Keys: bson.D{{Key: "table_no", Value: 1}}},
		},
		colArchive: {
			{Keys: bson.D{{Key: "table_no", Value: 1}, {Key: "archived_at", Value: -1}}},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		colBills: {
			{Keys: bson.D{{Key: "table_no", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colServiceRequests: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "table_no", Value: 1}}},
		},
		colCounters: {},
	}
}
