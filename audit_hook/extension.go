// Package audithook bridges tab events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any audit product. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/plugin"
	"github.com/xraph/tab/request"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnOrderCreated      = (*Extension)(nil)
	_ plugin.OnOrderUpdated      = (*Extension)(nil)
	_ plugin.OnOrderArchived     = (*Extension)(nil)
	_ plugin.OnNoteClosed        = (*Extension)(nil)
	_ plugin.OnTableCreated      = (*Extension)(nil)
	_ plugin.OnTableTransferred  = (*Extension)(nil)
	_ plugin.OnServerTransferred = (*Extension)(nil)
	_ plugin.OnBillCreated       = (*Extension)(nil)
	_ plugin.OnBillPaid          = (*Extension)(nil)
	_ plugin.OnServiceRequested  = (*Extension)(nil)
	_ plugin.OnServiceCompleted  = (*Extension)(nil)
	_ plugin.OnPersistFailed     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges tab events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (e *Extension) OnOrderCreated(ctx context.Context, o *order.Order) error {
	return e.record(ctx, ActionOrderCreated, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderID(o.ID), CategoryOrders, nil,
		"table", o.Table,
		"server", o.Server,
		"total", o.Total.Amount,
	)
}

// OnOrderUpdated implements plugin.OnOrderUpdated.
func (e *Extension) OnOrderUpdated(ctx context.Context, o *order.Order) error {
	return e.record(ctx, ActionOrderUpdated, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderID(o.ID), CategoryOrders, nil,
		"table", o.Table,
		"status", string(o.Status),
		"sub_notes", len(o.SubNotes),
		"total", o.Total.Amount,
	)
}

// OnOrderArchived implements plugin.OnOrderArchived.
func (e *Extension) OnOrderArchived(ctx context.Context, o *order.Order, rec *archive.Record) error {
	return e.record(ctx, ActionOrderArchived, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderID(o.ID), CategoryPayment, nil,
		"table", o.Table,
		"archive_id", rec.ID.String(),
		"settled_total", rec.Total.Amount,
	)
}

// OnNoteClosed implements plugin.OnNoteClosed.
func (e *Extension) OnNoteClosed(ctx context.Context, rec *archive.Record) error {
	return e.record(ctx, ActionNoteClosed, SeverityInfo, OutcomeSuccess,
		ResourceNote, rec.NoteID, CategoryPayment, nil,
		"order_id", rec.OrderID,
		"name", rec.Name,
		"archive_id", rec.ID.String(),
		"settled_total", rec.Total.Amount,
	)
}

// ──────────────────────────────────────────────────
// Table hooks
// ──────────────────────────────────────────────────

// OnTableCreated implements plugin.OnTableCreated.
func (e *Extension) OnTableCreated(ctx context.Context, table string, o *order.Order) error {
	return e.record(ctx, ActionTableCreated, SeverityInfo, OutcomeSuccess,
		ResourceTable, table, CategoryTables, nil,
		"order_id", o.ID,
	)
}

// OnTableTransferred implements plugin.OnTableTransferred.
func (e *Extension) OnTableTransferred(ctx context.Context, from, to string, orders []*order.Order) error {
	return e.record(ctx, ActionTableTransferred, SeverityInfo, OutcomeSuccess,
		ResourceTable, from, CategoryTables, nil,
		"to", to,
		"orders", len(orders),
	)
}

// OnServerTransferred implements plugin.OnServerTransferred.
func (e *Extension) OnServerTransferred(ctx context.Context, table, server string, orders []*order.Order) error {
	return e.record(ctx, ActionServerAssigned, SeverityInfo, OutcomeSuccess,
		ResourceTable, table, CategoryTables, nil,
		"server", server,
		"orders", len(orders),
	)
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillCreated implements plugin.OnBillCreated.
func (e *Extension) OnBillCreated(ctx context.Context, b *bill.Bill) error {
	return e.record(ctx, ActionBillCreated, SeverityInfo, OutcomeSuccess,
		ResourceBill, strconv.FormatInt(b.ID, 10), CategoryPayment, nil,
		"table", b.Table,
		"orders", len(b.OrderIDs),
		"total", b.Total.Amount,
	)
}

// OnBillPaid implements plugin.OnBillPaid.
func (e *Extension) OnBillPaid(ctx context.Context, b *bill.Bill, p *bill.Payment) error {
	return e.record(ctx, ActionBillPaid, SeverityInfo, OutcomeSuccess,
		ResourceBill, strconv.FormatInt(b.ID, 10), CategoryPayment, nil,
		"payment_id", p.ID.String(),
		"amount", p.Amount.Amount,
		"tip", p.Tip.Amount,
		"remaining", b.Remaining().Amount,
	)
}

// ──────────────────────────────────────────────────
// Service request hooks
// ──────────────────────────────────────────────────

// OnServiceRequested implements plugin.OnServiceRequested.
func (e *Extension) OnServiceRequested(ctx context.Context, r *request.ServiceRequest) error {
	return e.record(ctx, ActionServiceRequested, SeverityInfo, OutcomeSuccess,
		ResourceService, strconv.FormatInt(r.ID, 10), CategoryService, nil,
		"table", r.Table,
		"type", r.Type,
	)
}

// OnServiceCompleted implements plugin.OnServiceCompleted.
func (e *Extension) OnServiceCompleted(ctx context.Context, r *request.ServiceRequest) error {
	return e.record(ctx, ActionServiceCompleted, SeverityInfo, OutcomeSuccess,
		ResourceService, strconv.FormatInt(r.ID, 10), CategoryService, nil,
		"table", r.Table,
		"type", r.Type,
	)
}

// OnPersistFailed implements plugin.OnPersistFailed.
func (e *Extension) OnPersistFailed(ctx context.Context, collection string, err error) error {
	return e.record(ctx, ActionPersistFailed, SeverityCritical, OutcomeFailure,
		ResourceStore, collection, CategorySystem, err,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func orderID(id int64) string { return strconv.FormatInt(id, 10) }

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
