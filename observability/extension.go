// Package observability provides a metrics extension for tab that records
// event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/plugin"
	"github.com/xraph/tab/request"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnOrderCreated      = (*MetricsExtension)(nil)
	_ plugin.OnOrderUpdated      = (*MetricsExtension)(nil)
	_ plugin.OnOrderArchived     = (*MetricsExtension)(nil)
	_ plugin.OnNoteClosed        = (*MetricsExtension)(nil)
	_ plugin.OnTableCreated      = (*MetricsExtension)(nil)
	_ plugin.OnTableTransferred  = (*MetricsExtension)(nil)
	_ plugin.OnServerTransferred = (*MetricsExtension)(nil)
	_ plugin.OnBillCreated       = (*MetricsExtension)(nil)
	_ plugin.OnBillPaid          = (*MetricsExtension)(nil)
	_ plugin.OnServiceRequested  = (*MetricsExtension)(nil)
	_ plugin.OnServiceCompleted  = (*MetricsExtension)(nil)
	_ plugin.OnStateFlushed      = (*MetricsExtension)(nil)
	_ plugin.OnPersistFailed     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide event metrics.
// Register it as a tab plugin to track orders, payments and persistence.
type MetricsExtension struct {
	factory MetricFactory

	// Order metrics
	OrderCreated  Counter
	OrderUpdated  Counter
	OrderArchived Counter
	NoteClosed    Counter
	SettledAmount Histogram

	// Table metrics
	TableCreated     Counter
	TableTransferred Counter
	ServerAssigned   Counter

	// Bill metrics
	BillCreated  Counter
	BillPaid     Counter
	BillTotal    Histogram
	PaymentValue Histogram
	TipAmount    Histogram

	// Service metrics
	ServiceRequested Counter
	ServiceCompleted Counter

	// Persistence metrics
	FlushLatency Histogram
	StoreErrors  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Order metrics
		OrderCreated:  factory.Counter("tab.order.created"),
		OrderUpdated:  factory.Counter("tab.order.updated"),
		OrderArchived: factory.Counter("tab.order.archived"),
		NoteClosed:    factory.Counter("tab.note.closed"),
		SettledAmount: factory.Histogram("tab.settled.amount_minor"),

		// Table metrics
		TableCreated:     factory.Counter("tab.table.created"),
		TableTransferred: factory.Counter("tab.table.transferred"),
		ServerAssigned:   factory.Counter("tab.server.assigned"),

		// Bill metrics
		BillCreated:  factory.Counter("tab.bill.created"),
		BillPaid:     factory.Counter("tab.bill.paid"),
		BillTotal:    factory.Histogram("tab.bill.total_minor"),
		PaymentValue: factory.Histogram("tab.payment.amount_minor"),
		TipAmount:    factory.Histogram("tab.payment.tip_minor"),

		// Service metrics
		ServiceRequested: factory.Counter("tab.service.requested"),
		ServiceCompleted: factory.Counter("tab.service.completed"),

		// Persistence metrics
		FlushLatency: factory.Histogram("tab.store.flush.latency_ms"),
		StoreErrors:  factory.Counter("tab.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (m *MetricsExtension) OnOrderCreated(_ context.Context, _ *order.Order) error {
	m.OrderCreated.Inc()
	return nil
}

// OnOrderUpdated implements plugin.OnOrderUpdated.
func (m *MetricsExtension) OnOrderUpdated(_ context.Context, _ *order.Order) error {
	m.OrderUpdated.Inc()
	return nil
}

// OnOrderArchived implements plugin.OnOrderArchived.
func (m *MetricsExtension) OnOrderArchived(_ context.Context, _ *order.Order, rec *archive.Record) error {
	m.OrderArchived.Inc()
	m.SettledAmount.Observe(float64(rec.Total.Amount))
	return nil
}

// OnNoteClosed implements plugin.OnNoteClosed.
func (m *MetricsExtension) OnNoteClosed(_ context.Context, rec *archive.Record) error {
	m.NoteClosed.Inc()
	m.SettledAmount.Observe(float64(rec.Total.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Table hooks
// ──────────────────────────────────────────────────

// OnTableCreated implements plugin.OnTableCreated.
func (m *MetricsExtension) OnTableCreated(_ context.Context, _ string, _ *order.Order) error {
	m.TableCreated.Inc()
	return nil
}

// OnTableTransferred implements plugin.OnTableTransferred.
func (m *MetricsExtension) OnTableTransferred(_ context.Context, _, _ string, _ []*order.Order) error {
	m.TableTransferred.Inc()
	return nil
}

// OnServerTransferred implements plugin.OnServerTransferred.
func (m *MetricsExtension) OnServerTransferred(_ context.Context, _, _ string, _ []*order.Order) error {
	m.ServerAssigned.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillCreated implements plugin.OnBillCreated.
func (m *MetricsExtension) OnBillCreated(_ context.Context, b *bill.Bill) error {
	m.BillCreated.Inc()
	m.BillTotal.Observe(float64(b.Total.Amount))
	return nil
}

// OnBillPaid implements plugin.OnBillPaid.
func (m *MetricsExtension) OnBillPaid(_ context.Context, _ *bill.Bill, p *bill.Payment) error {
	m.BillPaid.Inc()
	m.PaymentValue.Observe(float64(p.Amount.Amount))
	m.TipAmount.Observe(float64(p.Tip.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Service and persistence hooks
// ──────────────────────────────────────────────────

// OnServiceRequested implements plugin.OnServiceRequested.
func (m *MetricsExtension) OnServiceRequested(_ context.Context, _ *request.ServiceRequest) error {
	m.ServiceRequested.Inc()
	return nil
}

// OnServiceCompleted implements plugin.OnServiceCompleted.
func (m *MetricsExtension) OnServiceCompleted(_ context.Context, _ *request.ServiceRequest) error {
	m.ServiceCompleted.Inc()
	return nil
}

// OnStateFlushed implements plugin.OnStateFlushed.
func (m *MetricsExtension) OnStateFlushed(_ context.Context, _ []string, elapsed time.Duration) error {
	m.FlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnPersistFailed implements plugin.OnPersistFailed.
func (m *MetricsExtension) OnPersistFailed(_ context.Context, _ string, _ error) error {
	m.StoreErrors.Inc()
	return nil
}
