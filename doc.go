// Package tab provides an in-memory table order ledger for restaurants.
//
// Tab is designed as a library, not a service. Import it into your Go
// application, or run the tabd daemon that wraps it with an HTTP API. It
// provides:
//
//   - Order notes per table: a main note plus guest sub-notes
//   - Item transfers between notes, orders and tables
//   - Partial settlement with automatic archival of paid notes and orders
//   - Bills that snapshot a table's orders and track payments and tips
//   - Pluggable persistence (memory, PostgreSQL, SQLite, MongoDB)
//   - Post-commit event hooks for audit, metrics and broadcast
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/tab"
//	    "github.com/xraph/tab/store/memory"
//	)
//
//	l := tab.New(memory.New(), tab.WithCurrency("eur"))
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	o, err := l.Submit(ctx, tab.SubmitRequest{
//	    Table: "5",
//	    Items: []tab.Item{{ID: 1, Name: "Couscous", UnitPrice: tab.EUR(1200), Quantity: 2}},
//	})
//
// # Notes and orders
//
// Every order belongs to exactly one table and holds a main note ("main")
// and any number of sub-notes. Totals are recomputed from the items after
// every change:
//
//	note.Total  == Σ item.UnitPrice * item.Quantity
//	order.Total == main.Total + Σ sub.Total
//
// A table's submissions join its open order until ConfirmConsumption is
// called; the next submission then opens a new order.
//
// # Settlement
//
// Settle removes paid quantities from a note. A sub-note reaching zero is
// closed into the archive, and an order whose main note is empty with no
// sub-notes left is archived. Bill payments (PayBill) only record what was
// paid; they never remove items.
//
// # Concurrency
//
// Each table is guarded by its own lock. Transfers touching two tables lock
// both in ascending table order. Persistence and plugin hooks run after the
// locks are released: dirty collections are saved by a background worker,
// and events are queued into an outbox drained by another.
//
// All monetary calculations use integer arithmetic in minor units.
package tab
