package tab_test

import (
	"context"
	"testing"

	"github.com/xraph/tab"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/id"
)

// twoOrderTable opens two orders on table 5 worth 50.00 and 30.00.
func twoOrderTable(t *testing.T, l *tab.Ledger) (*tab.Order, *tab.Order) {
	t.Helper()
	a := submit(t, l, "5", item(1, "Menu", 2500, 2))
	if _, err := l.ConfirmConsumption(context.Background(), a.ID); err != nil {
		t.Fatal(err)
	}
	b := submit(t, l, "5", item(2, "Wine", 1000, 3))
	return a, b
}

func TestBillSnapshotAndPayment(t *testing.T) {
	ctx := context.Background()
	l, rec := newTestLedger(t)
	a, b := twoOrderTable(t, l)

	created, err := l.CreateBill(ctx, "5")
	if err != nil {
		t.Fatal(err)
	}
	if created.Total.Amount != 8000 || len(created.OrderIDs) != 2 {
		t.Fatalf("bill: total %d orders %v", created.Total.Amount, created.OrderIDs)
	}

	res, err := l.PayBill(ctx, created.ID, []bill.Line{{OrderID: b.ID, ItemID: 2, Name: "Wine", Quantity: 2}}, tab.EUR(500))
	if err != nil {
		t.Fatal(err)
	}
	if res.Payment.Amount.Amount != 2000 || res.Payment.Tip.Amount != 500 {
		t.Errorf("payment: %+v", res.Payment)
	}
	if res.Paid.Amount != 2500 || res.Remaining.Amount != 5500 {
		t.Errorf("paid %d remaining %d, want 2500 and 5500", res.Paid.Amount, res.Remaining.Amount)
	}
	if res.Payment.ID.IsNil() || res.Payment.ID.Prefix() != id.PrefixPayment {
		t.Errorf("payment id: %s", res.Payment.ID)
	}

	// Paying a bill never touches the orders.
	live, _ := l.Order(ctx, b.ID)
	if live.Total.Amount != 3000 {
		t.Errorf("order total after bill payment: %d", live.Total.Amount)
	}

	// The bill total is a snapshot.
	submit(t, l, "5", item(3, "Coffee", 200, 1))
	view, err := l.Bill(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Bill.Total.Amount != 8000 || view.Paid.Amount != 2500 || view.Remaining.Amount != 5500 {
		t.Errorf("bill view: total %d paid %d remaining %d", view.Bill.Total.Amount, view.Paid.Amount, view.Remaining.Amount)
	}
	if !view.Bill.References(a.ID) || !view.Bill.References(b.ID) {
		t.Errorf("bill references: %v", view.Bill.OrderIDs)
	}
	if rec.Count("bill.created") != 1 || rec.Count("bill.paid") != 1 {
		t.Errorf("events: %v", rec.Events())
	}
}

func TestPayBillPricing(t *testing.T) {
	tests := []struct {
		name   string
		before func(t *testing.T, l *tab.Ledger)
		lines  func(a, b, other *tab.Order) []bill.Line
		amount int64
		paid   int
	}{
		{
			name: "clamps to the live quantity",
			lines: func(a, _, _ *tab.Order) []bill.Line {
				return []bill.Line{{OrderID: a.ID, ItemID: 1, Name: "Menu", Quantity: 9}}
			},
			amount: 5000,
			paid:   1,
		},
		{
			name: "repeated lines share the available quantity",
			lines: func(_, b, _ *tab.Order) []bill.Line {
				return []bill.Line{
					{OrderID: b.ID, ItemID: 2, Name: "Wine", Quantity: 2},
					{OrderID: b.ID, ItemID: 2, Name: "Wine", Quantity: 2},
				}
			},
			amount: 3000,
			paid:   2,
		},
		{
			name: "orders outside the bill are skipped",
			lines: func(_, _, other *tab.Order) []bill.Line {
				return []bill.Line{{OrderID: other.ID, ItemID: 4, Name: "Tea", Quantity: 1}}
			},
			amount: 0,
			paid:   0,
		},
		{
			name: "unknown lines are skipped",
			lines: func(a, _, _ *tab.Order) []bill.Line {
				return []bill.Line{{OrderID: a.ID, ItemID: 1, Name: "Steak", Quantity: 1}}
			},
			amount: 0,
			paid:   0,
		},
		{
			name: "explicit note id",
			lines: func(a, _, _ *tab.Order) []bill.Line {
				return []bill.Line{{OrderID: a.ID, NoteID: "main", ItemID: 1, Name: "Menu", Quantity: 1}}
			},
			amount: 2500,
			paid:   1,
		},
		{
			name: "duplicate lines keep their own unit price",
			before: func(t *testing.T, l *tab.Ledger) {
				submit(t, l, "5", item(2, "Wine", 1800, 1))
			},
			lines: func(_, b, _ *tab.Order) []bill.Line {
				return []bill.Line{{OrderID: b.ID, ItemID: 2, Name: "Wine", Quantity: 4}}
			},
			amount: 4800,
			paid:   2,
		},
		{
			name: "duplicate lines across requests",
			before: func(t *testing.T, l *tab.Ledger) {
				submit(t, l, "5", item(2, "Wine", 1800, 1))
			},
			lines: func(_, b, _ *tab.Order) []bill.Line {
				return []bill.Line{
					{OrderID: b.ID, ItemID: 2, Name: "Wine", Quantity: 3},
					{OrderID: b.ID, ItemID: 2, Name: "Wine", Quantity: 3},
				}
			},
			amount: 4800,
			paid:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, _ := newTestLedger(t)
			a, b := twoOrderTable(t, l)
			if tt.before != nil {
				tt.before(t, l)
			}
			created, err := l.CreateBill(ctx, "5")
			if err != nil {
				t.Fatal(err)
			}
			other := submit(t, l, "6", item(4, "Tea", 250, 1))

			res, err := l.PayBill(ctx, created.ID, tt.lines(a, b, other), tab.Zero("eur"))
			if err != nil {
				t.Fatal(err)
			}
			if res.Payment.Amount.Amount != tt.amount {
				t.Errorf("amount: got %d, want %d", res.Payment.Amount.Amount, tt.amount)
			}
			if len(res.Payment.Items) != tt.paid {
				t.Errorf("paid lines: got %d, want %d", len(res.Payment.Items), tt.paid)
			}
		})
	}
}

func TestPayBillSearchesSubNotes(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	o := submit(t, l, "2", item(1, "Menu", 2500, 1))
	ana, _, _ := l.AddSubNote(ctx, o.ID, "Ana", 1, []tab.Item{item(2, "Tea", 250, 2)})
	b, _ := l.CreateBill(ctx, "2")

	res, err := l.PayBill(ctx, b.ID, []bill.Line{{OrderID: o.ID, ItemID: 2, Name: "Tea", Quantity: 2}}, tab.Zero("eur"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Payment.Amount.Amount != 500 || res.Payment.Items[0].NoteID != ana.ID {
		t.Errorf("payment: %+v", res.Payment)
	}
}

func TestPayBillSkipsArchivedOrders(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	o := submit(t, l, "2", item(1, "Menu", 2500, 1))
	b, _ := l.CreateBill(ctx, "2")
	if _, err := l.Settle(ctx, o.ID, "main", []tab.Line{line(1, "Menu", 1)}); err != nil {
		t.Fatal(err)
	}

	res, err := l.PayBill(ctx, b.ID, []bill.Line{{OrderID: o.ID, ItemID: 1, Name: "Menu", Quantity: 1}}, tab.EUR(300))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Payment.Amount.IsZero() || res.Paid.Amount != 300 || res.Remaining.Amount != 2200 {
		t.Errorf("payment on archived order: amount %d paid %d remaining %d", res.Payment.Amount.Amount, res.Paid.Amount, res.Remaining.Amount)
	}
}

func TestBillErrors(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	submit(t, l, "5", item(1, "Menu", 2500, 1))
	b, _ := l.CreateBill(ctx, "5")
	valid := []bill.Line{{OrderID: 1, ItemID: 1, Name: "Menu", Quantity: 1}}

	_, err := l.CreateBill(ctx, "9")
	assertKind(t, err, tab.KindNotFound)
	_, err = l.CreateBill(ctx, "")
	assertKind(t, err, tab.KindInvalidRequest)
	_, err = l.Bill(ctx, 404)
	assertKind(t, err, tab.KindNotFound)

	tests := []struct {
		name   string
		billID int64
		lines  []bill.Line
		tip    tab.Money
		kind   tab.Kind
	}{
		{"missing bill", 404, valid, tab.Zero("eur"), tab.KindNotFound},
		{"negative tip", b.ID, valid, tab.EUR(-1), tab.KindInvalidRequest},
		{"foreign tip", b.ID, valid, tab.USD(100), tab.KindInvalidRequest},
		{"nothing to pay", b.ID, nil, tab.Zero("eur"), tab.KindInvalidRequest},
		{"zero quantity", b.ID, []bill.Line{{OrderID: 1, ItemID: 1, Name: "Menu"}}, tab.Zero("eur"), tab.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.PayBill(ctx, tt.billID, tt.lines, tt.tip)
			assertKind(t, err, tt.kind)
		})
	}

	// A tip alone is a valid payment.
	res, err := l.PayBill(ctx, b.ID, nil, tab.Money{Amount: 200})
	if err != nil {
		t.Fatal(err)
	}
	if res.Paid.Amount != 200 || res.Payment.Tip.Currency != "eur" {
		t.Errorf("tip-only payment: %+v", res)
	}
}

func TestBillsListing(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	submit(t, l, "1", item(1, "Tea", 250, 1))
	submit(t, l, "2", item(1, "Tea", 250, 2))
	first, _ := l.CreateBill(ctx, "1")
	second, _ := l.CreateBill(ctx, "2")
	if _, err := l.PayBill(ctx, first.ID, nil, tab.EUR(250)); err != nil {
		t.Fatal(err)
	}

	all, _ := l.Bills(ctx, bill.ListOpts{})
	if len(all) != 2 || all[0].Bill.ID != first.ID {
		t.Fatalf("bills: %+v", all)
	}
	open, _ := l.Bills(ctx, bill.ListOpts{Open: true})
	if len(open) != 1 || open[0].Bill.ID != second.ID {
		t.Errorf("open bills: %+v", open)
	}
	byTable, _ := l.Bills(ctx, bill.ListOpts{Table: "1"})
	if len(byTable) != 1 || !byTable[0].Remaining.IsZero() {
		t.Errorf("table 1 bills: %+v", byTable)
	}
}
