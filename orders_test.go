package tab_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/tab"
	"github.com/xraph/tab/order"
)

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		req  tab.SubmitRequest
	}{
		{"missing table", tab.SubmitRequest{Items: []tab.Item{item(1, "Tea", 250, 1)}}},
		{"blank table", tab.SubmitRequest{Table: "  ", Items: []tab.Item{item(1, "Tea", 250, 1)}}},
		{"no items", tab.SubmitRequest{Table: "1"}},
		{"zero quantity", tab.SubmitRequest{Table: "1", Items: []tab.Item{item(1, "Tea", 250, 0)}}},
		{"negative quantity", tab.SubmitRequest{Table: "1", Items: []tab.Item{item(1, "Tea", 250, -2)}}},
		{"negative price", tab.SubmitRequest{Table: "1", Items: []tab.Item{item(1, "Tea", -1, 1)}}},
		{"missing name", tab.SubmitRequest{Table: "1", Items: []tab.Item{item(1, "", 250, 1)}}},
		{"foreign currency", tab.SubmitRequest{Table: "1", Items: []tab.Item{{ID: 1, Name: "Tea", UnitPrice: tab.USD(250), Quantity: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, rec := newTestLedger(t)
			_, err := l.Submit(context.Background(), tt.req)
			assertKind(t, err, tab.KindInvalidRequest)
			if !errors.Is(err, tab.ErrInvalidRequest) || !tab.IsInvalid(err) {
				t.Errorf("error does not match ErrInvalidRequest: %v", err)
			}
			if n := len(rec.Events()); n != 0 {
				t.Errorf("rejected submission emitted %d events", n)
			}
			if tables, _ := l.Tables(context.Background()); len(tables) != 0 {
				t.Errorf("rejected submission left %d tables", len(tables))
			}
		})
	}
}

func TestSubmitJoinsOpenOrder(t *testing.T) {
	ctx := context.Background()
	l, rec := newTestLedger(t)

	first := submit(t, l, "5", item(1, "Couscous", 1200, 2))
	if first.Total.Amount != 2400 || first.MainNote.Total.Amount != 2400 {
		t.Fatalf("first order: total %d main %d", first.Total.Amount, first.MainNote.Total.Amount)
	}
	second := submit(t, l, "5", item(2, "Tea", 250, 1))
	if second.ID != first.ID {
		t.Fatalf("open table got a second order: %d vs %d", second.ID, first.ID)
	}
	if second.Total.Amount != 2650 || len(second.MainNote.Items) != 2 {
		t.Errorf("appended order: total %d lines %d", second.Total.Amount, len(second.MainNote.Items))
	}
	assertTotals(t, second)

	if _, err := l.ConfirmConsumption(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	third := submit(t, l, "5", item(2, "Tea", 250, 1))
	if third.ID == first.ID {
		t.Fatal("confirmed order accepted a new submission")
	}

	active, _ := l.ActiveOrders(ctx, order.ListOpts{Table: "5"})
	if len(active) != 2 {
		t.Errorf("active orders on table 5: got %d, want 2", len(active))
	}
	if got := rec.Count("order.created"); got != 2 {
		t.Errorf("order.created events: got %d, want 2", got)
	}
}

func TestSubmitNoteTargets(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	o := submit(t, l, "3", item(1, "Couscous", 1200, 1))

	// Unknown note ids are created on the fly.
	o, err := l.Submit(ctx, tab.SubmitRequest{Table: "3", NoteID: "guest-1", Items: []tab.Item{item(2, "Tea", 250, 2)}})
	if err != nil {
		t.Fatal(err)
	}
	n := o.Note("guest-1")
	if n == nil || n.Name != "guest-1" || n.Total.Amount != 500 {
		t.Fatalf("lazy sub-note: %+v", n)
	}

	o, err = l.Submit(ctx, tab.SubmitRequest{Table: "3", NoteID: "guest-1", Items: []tab.Item{item(2, "Tea", 250, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.SubNotes) != 1 || o.Note("guest-1").Total.Amount != 750 {
		t.Errorf("append to existing sub-note: %d notes, total %d", len(o.SubNotes), o.Note("guest-1").Total.Amount)
	}

	o, err = l.Submit(ctx, tab.SubmitRequest{Table: "3", NoteName: "Ana", Items: []tab.Item{item(3, "Water", 100, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.SubNotes) != 2 {
		t.Fatalf("named submission: %d sub-notes", len(o.SubNotes))
	}
	ana := o.SubNotes[1]
	if ana.Name != "Ana" || !strings.HasPrefix(ana.ID, "note_") {
		t.Errorf("named sub-note: id %q name %q", ana.ID, ana.Name)
	}
	if o.Total.Amount != 1200+750+100 {
		t.Errorf("order total: %d", o.Total.Amount)
	}
	assertTotals(t, o)
}

func TestSubmitReopensProcessedOrder(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	o := submit(t, l, "2", item(1, "Tea", 250, 1))
	if _, err := l.MarkProcessed(ctx, o.ID); err != nil {
		t.Fatal(err)
	}
	o, err := l.Submit(ctx, tab.SubmitRequest{Table: "2", Server: "maria", Comment: "no ice", Items: []tab.Item{item(2, "Cola", 300, 1)}})
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != order.StatusNew {
		t.Errorf("status: got %s, want new", o.Status)
	}
	if o.Server != "maria" || o.Comment != "no ice" {
		t.Errorf("metadata: server %q comment %q", o.Server, o.Comment)
	}
}

func TestAppendItems(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	o := submit(t, l, "1", item(1, "Tea", 250, 1))
	note, _, err := l.AddSubNote(ctx, o.ID, "", 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := l.AppendItems(ctx, o.ID, note.ID, []tab.Item{item(2, "Cake", 450, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Note(note.ID).Total.Amount != 900 || got.Total.Amount != 1150 {
		t.Errorf("totals: note %d order %d", got.Note(note.ID).Total.Amount, got.Total.Amount)
	}

	tests := []struct {
		name    string
		orderID int64
		noteID  string
		items   []tab.Item
		kind    tab.Kind
		target  error
	}{
		{"missing order", 999, "main", []tab.Item{item(1, "Tea", 250, 1)}, tab.KindNotFound, tab.ErrOrderNotFound},
		{"missing note", o.ID, "ghost", []tab.Item{item(1, "Tea", 250, 1)}, tab.KindNotFound, tab.ErrNoteNotFound},
		{"no items", o.ID, "main", nil, tab.KindInvalidRequest, tab.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.AppendItems(ctx, tt.orderID, tt.noteID, tt.items)
			assertKind(t, err, tt.kind)
			if !errors.Is(err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.target)
			}
		})
	}
}

func TestAddSubNoteDefaults(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	o := submit(t, l, "1", item(1, "Tea", 250, 1))

	first, _, err := l.AddSubNote(ctx, o.ID, "", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, got, err := l.AddSubNote(ctx, o.ID, "  ", 2, []tab.Item{item(2, "Cake", 450, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if first.Name != "Guest 1" || second.Name != "Guest 2" {
		t.Errorf("names: %q, %q", first.Name, second.Name)
	}
	if first.Covers != 1 || second.Covers != 2 {
		t.Errorf("covers: %d, %d", first.Covers, second.Covers)
	}
	if first.ID == second.ID {
		t.Error("sub-note ids reused")
	}
	if got.Total.Amount != 700 {
		t.Errorf("order total: %d", got.Total.Amount)
	}

	_, _, err = l.AddSubNote(ctx, 404, "Ana", 1, nil)
	assertKind(t, err, tab.KindNotFound)
}

func TestStatusTransitionsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	l, rec := newTestLedger(t)
	o := submit(t, l, "1", item(1, "Tea", 250, 1))
	rec.Reset()

	for range 2 {
		got, err := l.MarkProcessed(ctx, o.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != order.StatusProcessed {
			t.Errorf("status: %s", got.Status)
		}
	}
	for range 2 {
		got, err := l.ConfirmConsumption(ctx, o.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.ConsumptionConfirmed {
			t.Error("consumption not confirmed")
		}
	}
	if got := rec.Count("order.updated"); got != 2 {
		t.Errorf("order.updated events: got %d, want 2", got)
	}

	_, err := l.MarkProcessed(ctx, 77)
	assertKind(t, err, tab.KindNotFound)
}

func TestActiveOrdersAndTables(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	a := submit(t, l, "1", item(1, "Tea", 250, 2))
	b := submit(t, l, "2", item(2, "Cake", 450, 1))
	if _, err := l.ConfirmConsumption(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	all, _ := l.ActiveOrders(ctx, order.ListOpts{})
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("all active: %+v", all)
	}
	open, _ := l.ActiveOrders(ctx, order.ListOpts{OpenOnly: true})
	if len(open) != 1 || open[0].ID != a.ID {
		t.Errorf("open only: %+v", open)
	}
	none, _ := l.ActiveOrders(ctx, order.ListOpts{Table: "99"})
	if none == nil || len(none) != 0 {
		t.Errorf("unknown table: %+v", none)
	}

	// Returned orders are copies.
	all[0].MainNote.Items[0].Quantity = 100
	again, _ := l.Order(ctx, a.ID)
	if again.MainNote.Items[0].Quantity != 2 {
		t.Error("ActiveOrders exposed internal state")
	}

	tables, _ := l.Tables(ctx)
	if len(tables) != 2 {
		t.Fatalf("tables: %+v", tables)
	}
	if tables[0].Table != "1" || tables[0].OpenOrderID != a.ID || tables[0].Total.Amount != 500 {
		t.Errorf("table 1 summary: %+v", tables[0])
	}
	if tables[1].OpenOrderID != 0 {
		t.Errorf("confirmed table reported open order %d", tables[1].OpenOrderID)
	}
}
