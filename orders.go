package tab

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

const mainNoteName = "Main"

// SubmitRequest is a table's item submission.
type SubmitRequest struct {
	Table string       `json:"table"`
	Items []order.Item `json:"items"`
	// NoteID targets a note; a sub-note id that does not exist yet is
	// created on the fly.
	NoteID string `json:"note_id,omitempty"`
	// NoteName without NoteID opens a fresh sub-note.
	NoteName string `json:"note_name,omitempty"`
	Server   string `json:"server,omitempty"`
	Covers   int    `json:"covers,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// ──────────────────────────────────────────────────
// Submission
// ──────────────────────────────────────────────────

// Submit appends items to the table's open order, opening one when the
// table has none. An order is open until its consumption is confirmed.
func (l *Ledger) Submit(ctx context.Context, req SubmitRequest) (*order.Order, error) {
	const op = "submit"

	if strings.TrimSpace(req.Table) == "" {
		return nil, invalid(op, ValidationError{Field: "table", Message: "is required"})
	}
	items, err := l.normalizeItems(op, req.Items, false)
	if err != nil {
		return nil, err
	}

	s := l.shard(req.Table)
	s.mu.Lock()

	now := l.now()
	o := s.open()
	created := o == nil
	if created {
		o = l.newOrder(req.Table, req.Server, req.Covers, now)
		s.add(o)
		l.indexOrder(o.ID, o.Table)
	}

	var note *order.Note
	switch {
	case req.NoteID != "" && req.NoteID != order.MainNoteID:
		if note = o.Note(req.NoteID); note == nil {
			name := req.NoteName
			if name == "" {
				name = req.NoteID
			}
			note = l.newNote(req.NoteID, name, 1, now)
			o.AddSubNote(note)
		}
	case req.NoteID == "" && req.NoteName != "":
		note = l.newNote(id.NewNoteID().String(), req.NoteName, 1, now)
		o.AddSubNote(note)
	default:
		note = o.MainNote
	}
	note.Append(items)

	if !created {
		if o.Status == order.StatusProcessed {
			o.Status = order.StatusNew
		}
		if req.Server != "" {
			o.Server = req.Server
		}
		if req.Covers > o.Covers {
			o.Covers = req.Covers
		}
	}
	if req.Comment != "" {
		o.Comment = req.Comment
	}
	o.Recompute()
	o.Touch(now)

	kind := evOrderUpdated
	if created {
		kind = evOrderCreated
	}
	ev := orderEvent(kind, o)
	out := o.Clone()
	s.mu.Unlock()

	l.markDirty(dirtyOrders)
	l.publish(ctx, ev)

	l.logger.Debug("items submitted",
		"table", out.Table,
		"order_id", out.ID,
		"note_id", note.ID,
		"items", len(items),
		"created", created,
	)
	return out, nil
}

// AppendItems appends items to an existing note of an existing order.
func (l *Ledger) AppendItems(ctx context.Context, orderID int64, noteID string, items []order.Item) (*order.Order, error) {
	const op = "append_items"

	items, err := l.normalizeItems(op, items, false)
	if err != nil {
		return nil, err
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

	note.Append(items)
	if o.Status == order.StatusProcessed {
		o.Status = order.StatusNew
	}
	o.Recompute()
	o.Touch(l.now())

	ev := orderEvent(evOrderUpdated, o)
	out := o.Clone()
	s.mu.Unlock()

	l.markDirty(dirtyOrders)
	l.publish(ctx, ev)
	return out, nil
}

// AddSubNote opens a guest sub-note on an order. An empty name becomes
// "Guest N"; items may be empty.
func (l *Ledger) AddSubNote(ctx context.Context, orderID int64, name string, covers int, items []order.Item) (*order.Note, *order.Order, error) {
	const op = "add_sub_note"

	items, err := l.normalizeItems(op, items, true)
	if err != nil {
		return nil, nil, err
	}

	s, o, err := l.lockOrder(op, orderID)
	if err != nil {
		return nil, nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Guest %d", len(o.SubNotes)+1)
	}
	now := l.now()
	note := l.newNote(id.NewNoteID().String(), name, covers, now)
	o.AddSubNote(note)
	if len(items) > 0 {
		note.Append(items)
	}
	o.Recompute()
	o.Touch(now)

	ev := orderEvent(evOrderUpdated, o)
	outNote, out := note.Clone(), o.Clone()
	s.mu.Unlock()

	l.markDirty(dirtyOrders)
	l.publish(ctx, ev)
	return outNote, out, nil
}

// ──────────────────────────────────────────────────
// Status
// ──────────────────────────────────────────────────

// MarkProcessed marks an order as handled by the kitchen.
func (l *Ledger) MarkProcessed(ctx context.Context, orderID int64) (*order.Order, error) {
	return l.updateOrder(ctx, "mark_processed", orderID, func(o *order.Order) bool {
		if o.Status == order.StatusProcessed {
			return false
		}
		o.Status = order.StatusProcessed
		return true
	})
}

// ConfirmConsumption closes an order to further submissions; the table's
// next submission opens a new order.
func (l *Ledger) ConfirmConsumption(ctx context.Context, orderID int64) (*order.Order, error) {
	return l.updateOrder(ctx, "confirm_consumption", orderID, func(o *order.Order) bool {
		if o.ConsumptionConfirmed {
			return false
		}
		o.ConsumptionConfirmed = true
		return true
	})
}

// updateOrder applies fn under the order's table lock. fn reports whether it
// changed anything; unchanged orders are neither persisted nor announced.
func (l *Ledger) updateOrder(ctx context.Context, op string, orderID int64, fn func(*order.Order) bool) (*order.Order, error) {
	s, o, err := l.lockOrder(op, orderID)
	if err != nil {
		return nil, err
	}
	changed := fn(o)
	var ev event
	if changed {
		o.Touch(l.now())
		ev = orderEvent(evOrderUpdated, o)
	}
	out := o.Clone()
	s.mu.Unlock()

	if changed {
		l.markDirty(dirtyOrders)
		l.publish(ctx, ev)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Order returns a copy of an active order.
func (l *Ledger) Order(_ context.Context, orderID int64) (*order.Order, error) {
	return l.readOrder("get_order", orderID)
}

// ActiveOrders lists active orders by ascending id. Archived orders never
// appear here.
func (l *Ledger) ActiveOrders(_ context.Context, opts order.ListOpts) ([]*order.Order, error) {
	var out []*order.Order
	collect := func(s *tableShard) {
		for _, o := range s.orders {
			if opts.OpenOnly && !o.Open() {
				continue
			}
			out = append(out, o.Clone())
		}
	}

	if opts.Table != "" {
		s := l.existingShard(opts.Table)
		if s == nil {
			return []*order.Order{}, nil
		}
		s.mu.RLock()
		collect(s)
		s.mu.RUnlock()
	} else {
		shards, unlock := l.rlockAll()
		for _, s := range shards {
			collect(s)
		}
		unlock()
	}

	if out == nil {
		out = []*order.Order{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// normalizeItems validates submitted items and returns copies priced in the
// ledger currency.
func (l *Ledger) normalizeItems(op string, items []order.Item, allowEmpty bool) ([]order.Item, error) {
	if len(items) == 0 {
		if allowEmpty {
			return nil, nil
		}
		return nil, invalid(op, ValidationError{Field: "items", Message: "at least one item is required"})
	}

	out := make([]order.Item, len(items))
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.Name) == "" {
			return nil, invalid(op, ValidationError{Field: field + ".name", Message: "is required"})
		}
		if it.Quantity <= 0 {
			return nil, invalid(op, ValidationError{Field: field + ".quantity", Message: "must be positive"})
		}
		if it.UnitPrice.IsNegative() {
			return nil, invalid(op, ValidationError{Field: field + ".unit_price", Message: "must not be negative"})
		}
		currency := strings.ToLower(it.UnitPrice.Currency)
		if currency == "" {
			currency = l.currency
		}
		if currency != l.currency {
			return nil, invalid(op, ValidationError{
				Field:   field + ".unit_price",
				Message: fmt.Sprintf("currency %q does not match ledger currency %q", currency, l.currency),
			})
		}
		it.UnitPrice.Currency = currency
		out[i] = it
	}
	return out, nil
}

func (l *Ledger) newOrder(table, server string, covers int, now time.Time) *order.Order {
	covers = max(covers, 1)
	return &order.Order{
		Entity:   types.NewEntity(now),
		ID:       l.nextOrderID(),
		Table:    table,
		Server:   server,
		Covers:   covers,
		Status:   order.StatusNew,
		MainNote: l.newNote(order.MainNoteID, mainNoteName, covers, now),
		SubNotes: []*order.Note{},
		Total:    types.Zero(l.currency),
	}
}

func (l *Ledger) newNote(noteID, name string, covers int, now time.Time) *order.Note {
	return &order.Note{
		ID:        noteID,
		Name:      name,
		Covers:    max(covers, 1),
		Items:     []order.Item{},
		Total:     types.Zero(l.currency),
		CreatedAt: now.UTC(),
	}
}
