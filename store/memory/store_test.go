package memory

import (
	"context"
	"testing"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/store"
	"github.com/xraph/tab/types"
)

func testOrder(oid int64) *order.Order {
	main := &order.Note{ID: order.MainNoteID, Name: "main", Covers: 1, Total: types.EUR(0)}
	main.Append([]order.Item{{ID: 1, Name: "Tea", UnitPrice: types.EUR(250), Quantity: 2}})
	o := &order.Order{ID: oid, Table: "5", Status: order.StatusNew, MainNote: main, Total: types.EUR(0)}
	o.Recompute()
	return o
}

func TestSaveReplacesCollection(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.SaveOrders(ctx, []*order.Order{testOrder(1), testOrder(2)}); err != nil {
		t.Fatalf("SaveOrders: %v", err)
	}
	if err := s.SaveOrders(ctx, []*order.Order{testOrder(3)}); err != nil {
		t.Fatalf("SaveOrders: %v", err)
	}

	got, err := s.LoadOrders(ctx)
	if err != nil {
		t.Fatalf("LoadOrders: %v", err)
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("expected only order 3, got %d orders", len(got))
	}
	if got[0].Total.Amount != 500 {
		t.Errorf("total: got %d", got[0].Total.Amount)
	}
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()

	o := testOrder(1)
	if err := s.SaveOrders(ctx, []*order.Order{o}); err != nil {
		t.Fatal(err)
	}
	o.MainNote.Items[0].Quantity = 99

	got, _ := s.LoadOrders(ctx)
	if got[0].MainNote.Items[0].Quantity != 2 {
		t.Error("store shares memory with the saved order")
	}
	got[0].Table = "changed"
	again, _ := s.LoadOrders(ctx)
	if again[0].Table != "5" {
		t.Error("store shares memory with the loaded order")
	}
}

func TestCollectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := &archive.Record{ID: id.NewArchiveID(), Kind: archive.KindNote, Table: "5", Total: types.EUR(0)}
	b := &bill.Bill{ID: 1, Table: "5", OrderIDs: []int64{1}, Total: types.EUR(500)}
	sr := &request.ServiceRequest{ID: 1, Table: "5", Type: "water", Status: request.StatusNew}

	if err := s.SaveArchive(ctx, []*archive.Record{rec}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveBills(ctx, []*bill.Bill{b}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveServiceRequests(ctx, []*request.ServiceRequest{sr}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCounters(ctx, store.Counters{NextOrderID: 7, NextBillID: 2, NextServiceID: 2}); err != nil {
		t.Fatal(err)
	}

	orders, _ := s.LoadOrders(ctx)
	if len(orders) != 0 {
		t.Errorf("orders: got %d", len(orders))
	}
	records, _ := s.LoadArchive(ctx)
	if len(records) != 1 || records[0].ID.String() != rec.ID.String() {
		t.Errorf("archive mismatch: %+v", records)
	}
	bills, _ := s.LoadBills(ctx)
	if len(bills) != 1 || bills[0].Total.Amount != 500 {
		t.Errorf("bills mismatch: %+v", bills)
	}
	reqs, _ := s.LoadServiceRequests(ctx)
	if len(reqs) != 1 || reqs[0].Type != "water" {
		t.Errorf("requests mismatch: %+v", reqs)
	}
	c, _ := s.LoadCounters(ctx)
	if c.NextOrderID != 7 {
		t.Errorf("counters: %+v", c)
	}
	if s.Saves() != 4 {
		t.Errorf("saves: got %d", s.Saves())
	}
}

func TestCountersNormalize(t *testing.T) {
	c := store.Counters{NextOrderID: 0, NextBillID: -3, NextServiceID: 12}.Normalize()
	if c.NextOrderID != 1 || c.NextBillID != 1 || c.NextServiceID != 12 {
		t.Errorf("Normalize: %+v", c)
	}
}
