// Package plugin provides the hook system tab uses to publish state changes.
// Plugins implement any subset of the hook interfaces below; the registry
// discovers them by type at registration time.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderCreated is called when a table's first submission opens an order.
type OnOrderCreated interface {
	Plugin
	OnOrderCreated(ctx context.Context, o *order.Order) error
}

// OnOrderUpdated is called after any change to an active order.
type OnOrderUpdated interface {
	Plugin
	OnOrderUpdated(ctx context.Context, o *order.Order) error
}

// OnOrderArchived is called when a fully settled order leaves the active set.
type OnOrderArchived interface {
	Plugin
	OnOrderArchived(ctx context.Context, o *order.Order, rec *archive.Record) error
}

// OnNoteClosed is called when a settled sub-note is archived.
type OnNoteClosed interface {
	Plugin
	OnNoteClosed(ctx context.Context, rec *archive.Record) error
}

// ──────────────────────────────────────────────────
// Table hooks
// ──────────────────────────────────────────────────

// OnTableCreated is called when a transfer opens an order on a new table.
type OnTableCreated interface {
	Plugin
	OnTableCreated(ctx context.Context, table string, o *order.Order) error
}

// OnTableTransferred is called when every order of a table moves to another.
type OnTableTransferred interface {
	Plugin
	OnTableTransferred(ctx context.Context, from, to string, orders []*order.Order) error
}

// OnServerTransferred is called when a table is handed to another server.
type OnServerTransferred interface {
	Plugin
	OnServerTransferred(ctx context.Context, table, server string, orders []*order.Order) error
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillCreated is called when a table's orders are snapshotted into a bill.
type OnBillCreated interface {
	Plugin
	OnBillCreated(ctx context.Context, b *bill.Bill) error
}

// OnBillPaid is called after a payment is recorded against a bill.
type OnBillPaid interface {
	Plugin
	OnBillPaid(ctx context.Context, b *bill.Bill, p *bill.Payment) error
}

// ──────────────────────────────────────────────────
// Service request hooks
// ──────────────────────────────────────────────────

// OnServiceRequested is called when a table calls for service.
type OnServiceRequested interface {
	Plugin
	OnServiceRequested(ctx context.Context, r *request.ServiceRequest) error
}

// OnServiceCompleted is called when staff mark a service request done.
type OnServiceCompleted interface {
	Plugin
	OnServiceCompleted(ctx context.Context, r *request.ServiceRequest) error
}

// ──────────────────────────────────────────────────
// Persistence hooks
// ──────────────────────────────────────────────────

// OnStateFlushed is called after dirty collections were saved.
type OnStateFlushed interface {
	Plugin
	OnStateFlushed(ctx context.Context, collections []string, elapsed time.Duration) error
}

// OnPersistFailed is called when saving a collection fails. The mutation
// that dirtied it has already succeeded; the save is retried on the next
// flush.
type OnPersistFailed interface {
	Plugin
	OnPersistFailed(ctx context.Context, collection string, err error) error
}
