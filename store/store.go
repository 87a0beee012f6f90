package store

import (
	"context"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
)

// Counters holds the next id of every int64 id space.
type Counters struct {
	NextOrderID   int64 `json:"next_order_id"`
	NextBillID    int64 `json:"next_bill_id"`
	NextServiceID int64 `json:"next_service_id"`
}

// Normalize raises every counter to at least 1.
func (c Counters) Normalize() Counters {
	c.NextOrderID = max(c.NextOrderID, 1)
	c.NextBillID = max(c.NextBillID, 1)
	c.NextServiceID = max(c.NextServiceID, 1)
	return c
}

// Store is the unified storage interface for all tab collections. Every
// Save call replaces the whole stored collection, so each collection can be
// loaded and saved independently.
// Instead of embedding the sub-interfaces, we explicitly declare all methods.
type Store interface {
	// Order methods
	LoadOrders(ctx context.Context) ([]*order.Order, error)
	SaveOrders(ctx context.Context, orders []*order.Order) error

	// Archive methods
	LoadArchive(ctx context.Context) ([]*archive.Record, error)
	SaveArchive(ctx context.Context, records []*archive.Record) error

	// Bill methods
	LoadBills(ctx context.Context) ([]*bill.Bill, error)
	SaveBills(ctx context.Context, bills []*bill.Bill) error

	// Service request methods
	LoadServiceRequests(ctx context.Context) ([]*request.ServiceRequest, error)
	SaveServiceRequests(ctx context.Context, reqs []*request.ServiceRequest) error

	// Counter methods
	LoadCounters(ctx context.Context) (Counters, error)
	SaveCounters(ctx context.Context, c Counters) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ order.Store   = Store(nil)
	_ archive.Store = Store(nil)
	_ bill.Store    = Store(nil)
	_ request.Store = Store(nil)
)
