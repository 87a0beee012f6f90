package tab

import (
	"context"
	"time"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

// SettleResult reports what a settlement removed and which terminal states
// it reached. Order is nil when the order was archived.
type SettleResult struct {
	Order         *order.Order `json:"order,omitempty"`
	RemovedTotal  types.Money  `json:"removed_total"`
	NoteClosed    bool         `json:"note_closed"`
	OrderArchived bool         `json:"order_archived"`
	Settled       []order.Item `json:"settled"`
}

// Settle removes paid quantities from a note. A sub-note whose total reaches
// zero is closed into the archive; an order whose main note is empty and
// which has no sub-notes left is archived as a whole. Requested lines that
// match nothing are skipped.
func (l *Ledger) Settle(ctx context.Context, orderID int64, noteID string, lines []order.Line) (*SettleResult, error) {
	const op = "settle"

	if len(lines) == 0 {
		return nil, invalid(op, ValidationError{Field: "items", Message: "at least one item is required"})
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, invalid(op, ValidationError{Field: "items.quantity", Message: "must be positive"})
		}
	}

	s, o, err := l.lockOrder(op, orderID)
	if err != nil {
		return nil, err
	}
	note := o.Note(noteID)
	if note == nil {
		s.mu.Unlock()
		return nil, notFound(op, ErrNoteNotFound, "note %q not found in order %d", noteID, orderID)
	}

	now := l.now()
	taken, removed := note.Take(lines)
	note.Settled = append(note.Settled, taken...)
	o.Recompute()

	res := &SettleResult{RemovedTotal: removed, Settled: taken}
	if removed.Currency == "" {
		res.RemovedTotal = types.Zero(l.currency)
	}

	var (
		events  []event
		records []*archive.Record
	)
	if !note.IsMain() && note.Total.IsZero() {
		note.Paid = true
		o.RemoveSubNote(note.ID)
		o.Recompute()
		rec := l.noteRecord(o, note, now)
		records = append(records, rec)
		events = append(events, event{kind: evNoteClosed, record: rec.Clone()})
		res.NoteClosed = true
	}

	changed := len(taken) > 0 || res.NoteClosed
	if o.Settled() {
		s.remove(o.ID)
		l.unindexOrder(o.ID)
		o.MainNote.Paid = true
		o.Status = order.StatusArchived
		archivedAt := now.UTC()
		o.ArchivedAt = &archivedAt
		o.Touch(now)

		rec := l.orderRecord(o, now)
		records = append(records, rec)
		events = append(events, event{kind: evOrderArchived, order: o.Clone(), record: rec.Clone()})
		res.OrderArchived = true
		changed = true
	} else {
		if changed {
			o.Touch(now)
			events = append(events, orderEvent(evOrderUpdated, o))
		}
		res.Order = o.Clone()
	}

	if len(records) > 0 {
		l.appendRecords(records...)
	}
	s.mu.Unlock()

	if changed {
		l.markDirty(dirtyOrders)
		l.publish(ctx, events...)
	}

	l.logger.Debug("note settled",
		"order_id", orderID,
		"note_id", note.ID,
		"removed", res.RemovedTotal.String(),
		"note_closed", res.NoteClosed,
		"order_archived", res.OrderArchived,
	)
	return res, nil
}

// noteRecord captures a closed sub-note: everything settled off it plus any
// zero-priced lines it still held.
func (l *Ledger) noteRecord(o *order.Order, n *order.Note, now time.Time) *archive.Record {
	items := append(append([]order.Item(nil), n.Settled...), n.Items...)
	return &archive.Record{
		ID:            id.NewArchiveID(),
		Kind:          archive.KindNote,
		Table:         o.Table,
		OrderID:       o.ID,
		NoteID:        n.ID,
		Name:          n.Name,
		Server:        o.Server,
		Covers:        n.Covers,
		Items:         items,
		Total:         l.itemsTotal(items),
		PaymentStatus: archive.PaymentStatusPaid,
		CreatedAt:     n.CreatedAt,
		ArchivedAt:    now.UTC(),
	}
}

// orderRecord captures an archived order with its final state.
func (l *Ledger) orderRecord(o *order.Order, now time.Time) *archive.Record {
	items := append(append([]order.Item(nil), o.MainNote.Settled...), o.MainNote.Items...)
	return &archive.Record{
		ID:            id.NewArchiveID(),
		Kind:          archive.KindOrder,
		Table:         o.Table,
		OrderID:       o.ID,
		NoteID:        order.MainNoteID,
		Name:          o.MainNote.Name,
		Server:        o.Server,
		Covers:        o.Covers,
		Items:         items,
		Total:         l.itemsTotal(items),
		PaymentStatus: archive.PaymentStatusPaid,
		CreatedAt:     o.CreatedAt,
		ArchivedAt:    now.UTC(),
		Order:         o.Clone(),
	}
}

func (l *Ledger) itemsTotal(items []order.Item) types.Money {
	total := types.Zero(l.currency)
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
