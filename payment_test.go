package tab_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/tab"
	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/order"
)

func TestSettleClosesSubNote(t *testing.T) {
	ctx := context.Background()
	l, rec := newTestLedger(t)

	o := submit(t, l, "1", item(1, "Couscous", 1200, 1))
	ana, _, err := l.AddSubNote(ctx, o.ID, "Ana", 2, []tab.Item{item(2, "Tea", 250, 2), item(3, "Cake", 450, 1)})
	if err != nil {
		t.Fatal(err)
	}

	partial, err := l.Settle(ctx, o.ID, ana.ID, []tab.Line{line(2, "Tea", 2)})
	if err != nil {
		t.Fatal(err)
	}
	if partial.NoteClosed || partial.OrderArchived {
		t.Fatalf("partial settle closed something: %+v", partial)
	}
	if got := partial.Order.Note(ana.ID).Total.Amount; got != 450 {
		t.Errorf("sub-note total: %d", got)
	}
	assertTotals(t, partial.Order)

	closed, err := l.Settle(ctx, o.ID, ana.ID, []tab.Line{line(3, "Cake", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if !closed.NoteClosed || closed.OrderArchived {
		t.Fatalf("settle result: %+v", closed)
	}
	if closed.Order == nil || len(closed.Order.SubNotes) != 0 || closed.Order.Total.Amount != 1200 {
		t.Fatalf("order after note closure: %+v", closed.Order)
	}

	records, _ := l.Archive(ctx, archive.Query{OrderID: o.ID})
	if len(records) != 1 {
		t.Fatalf("archive records: %d", len(records))
	}
	r := records[0]
	if r.Kind != archive.KindNote || r.NoteID != ana.ID || r.Name != "Ana" || r.PaymentStatus != archive.PaymentStatusPaid {
		t.Errorf("note record: %+v", r)
	}
	if len(r.Items) != 2 || r.Total.Amount != 950 {
		t.Errorf("record items %d total %d", len(r.Items), r.Total.Amount)
	}
	if rec.Count("note.closed") != 1 {
		t.Errorf("note.closed events: %d", rec.Count("note.closed"))
	}
}

func TestSettleArchivesOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	l, rec := newTestLedger(t, tab.WithClock(func() time.Time { return now }))

	o := submit(t, l, "7", item(1, "Couscous", 1200, 2))
	ana, _, _ := l.AddSubNote(ctx, o.ID, "Ana", 1, []tab.Item{item(2, "Tea", 250, 1)})

	// Settling the main note first leaves the sub-note open.
	res, err := l.Settle(ctx, o.ID, "main", []tab.Line{line(1, "Couscous", 2)})
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderArchived || res.Order.Total.Amount != 250 {
		t.Fatalf("main settled: %+v", res)
	}

	res, err = l.Settle(ctx, o.ID, ana.ID, []tab.Line{line(2, "Tea", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if !res.NoteClosed || !res.OrderArchived || res.Order != nil {
		t.Fatalf("final settle: %+v", res)
	}

	if active, _ := l.ActiveOrders(ctx, order.ListOpts{}); len(active) != 0 {
		t.Errorf("archived order still listed: %+v", active)
	}
	if _, err := l.Order(ctx, o.ID); !tab.IsNotFound(err) {
		t.Errorf("Order after archival: %v", err)
	}

	records, _ := l.Archive(ctx, archive.Query{Table: "7"})
	if len(records) != 2 {
		t.Fatalf("records: %d", len(records))
	}
	var orderRec *archive.Record
	for _, r := range records {
		if r.Kind == archive.KindOrder {
			orderRec = r
		}
	}
	if orderRec == nil || orderRec.Order == nil {
		t.Fatalf("no order record in %+v", records)
	}
	if orderRec.Order.Status != order.StatusArchived || orderRec.Order.ArchivedAt == nil || !orderRec.ArchivedAt.Equal(now) {
		t.Errorf("order record: %+v", orderRec.Order)
	}
	if orderRec.Total.Amount != 2400 {
		t.Errorf("order record total: %d", orderRec.Total.Amount)
	}
	if rec.Count("order.archived") != 1 {
		t.Errorf("events: %v", rec.Events())
	}

	// The table opens a fresh order afterwards.
	next := submit(t, l, "7", item(1, "Couscous", 1200, 1))
	if next.ID == o.ID {
		t.Error("archived order reused")
	}
}

func TestSettleFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	o := submit(t, l, "1", item(1, "Couscous", 1200, 2), item(2, "Tea", 250, 1))

	res, err := l.Settle(ctx, o.ID, "main", []tab.Line{line(1, "Couscous", 50), line(1, "Couscous", 50)})
	if err != nil {
		t.Fatal(err)
	}
	if res.RemovedTotal.Amount != 2400 {
		t.Errorf("removed: %d", res.RemovedTotal.Amount)
	}
	if res.Order.Total.Amount != 250 || res.Order.Total.IsNegative() {
		t.Errorf("order total: %d", res.Order.Total.Amount)
	}
	assertTotals(t, res.Order)
}

func TestSettleSkipsUnmatchedLines(t *testing.T) {
	ctx := context.Background()
	l, rec := newTestLedger(t)
	o := submit(t, l, "1", item(1, "Couscous", 1200, 1))
	rec.Reset()

	res, err := l.Settle(ctx, o.ID, "", []tab.Line{line(9, "Ghost", 1), line(1, "Tagine", 1)})
	if err != nil {
		t.Fatal(err)
	}
	if !res.RemovedTotal.IsZero() || res.NoteClosed || res.OrderArchived {
		t.Errorf("result: %+v", res)
	}
	if res.Order.Total.Amount != 1200 {
		t.Errorf("order changed: %d", res.Order.Total.Amount)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("no-op settle emitted %v", rec.Events())
	}
}

func TestSettleErrors(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	o := submit(t, l, "1", item(1, "Couscous", 1200, 1))

	tests := []struct {
		name    string
		orderID int64
		noteID  string
		lines   []tab.Line
		kind    tab.Kind
	}{
		{"no lines", o.ID, "main", nil, tab.KindInvalidRequest},
		{"zero quantity", o.ID, "main", []tab.Line{line(1, "Couscous", 0)}, tab.KindInvalidRequest},
		{"missing order", 404, "main", []tab.Line{line(1, "Couscous", 1)}, tab.KindNotFound},
		{"missing note", o.ID, "ghost", []tab.Line{line(1, "Couscous", 1)}, tab.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Settle(ctx, tt.orderID, tt.noteID, tt.lines)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestArchiveQuery(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(t, tab.WithClock(func() time.Time { return clock }))

	archiveTable := func(table string) int64 {
		o := submit(t, l, table, item(1, "Tea", 250, 1))
		if _, err := l.Settle(ctx, o.ID, "main", []tab.Line{line(1, "Tea", 1)}); err != nil {
			t.Fatal(err)
		}
		return o.ID
	}
	first := archiveTable("1")
	clock = clock.Add(time.Hour)
	second := archiveTable("2")
	clock = clock.Add(time.Hour)
	third := archiveTable("1")

	tests := []struct {
		name string
		q    archive.Query
		want []int64
	}{
		{"all newest first", archive.Query{}, []int64{third, second, first}},
		{"by table", archive.Query{Table: "1"}, []int64{third, first}},
		{"by order", archive.Query{OrderID: second}, []int64{second}},
		{"from inclusive", archive.Query{From: time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC)}, []int64{third, second}},
		{"to inclusive", archive.Query{To: time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC)}, []int64{second, first}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Archive(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("records: got %d, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.OrderID != tt.want[i] {
					t.Errorf("record %d: order %d, want %d", i, r.OrderID, tt.want[i])
				}
			}
		})
	}

	_, err := l.Archive(ctx, archive.Query{From: clock, To: clock.Add(-time.Minute)})
	assertKind(t, err, tab.KindInvalidRequest)
}
