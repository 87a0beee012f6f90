package mongo

import (
	"testing"
	"time"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

func sampleOrder() *order.Order {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	main := &order.Note{ID: order.MainNoteID, Name: "main", Covers: 2, Total: types.EUR(0), CreatedAt: now}
	main.Append([]order.Item{{ID: 1, Name: "Couscous", UnitPrice: types.EUR(1200), Quantity: 2}})
	sub := &order.Note{ID: "note_x", Name: "Ali", Covers: 1, Total: types.EUR(0), CreatedAt: now}
	sub.Append([]order.Item{{ID: 2, Name: "Tea", UnitPrice: types.EUR(250), Quantity: 1}})
	o := &order.Order{
		Entity:   types.NewEntity(now),
		ID:       4,
		Table:    "5",
		Server:   "sam",
		Covers:   3,
		Status:   order.StatusProcessed,
		MainNote: main,
		SubNotes: []*order.Note{sub},
		Total:    types.EUR(0),
	}
	o.Recompute()
	return o
}

func TestOrderModelConversion(t *testing.T) {
	o := sampleOrder()
	back := fromOrderModel(toOrderModel(o))

	if back.ID != o.ID || back.Table != "5" || back.Server != "sam" || back.Status != order.StatusProcessed {
		t.Fatalf("scalar fields lost: %+v", back)
	}
	if !back.Total.Equal(types.EUR(2650)) {
		t.Errorf("total: got %v", back.Total)
	}
	if len(back.SubNotes) != 1 || back.SubNotes[0].Name != "Ali" {
		t.Fatalf("sub-notes lost: %+v", back.SubNotes)
	}
	if it := back.MainNote.Items[0]; it.UnitPrice.Currency != "eur" || it.Quantity != 2 {
		t.Errorf("item lost price currency or quantity: %+v", it)
	}
}

func TestArchiveModelKeepsSnapshot(t *testing.T) {
	o := sampleOrder()
	r := &archive.Record{
		ID:            id.NewArchiveID(),
		Kind:          archive.KindOrder,
		Table:         o.Table,
		OrderID:       o.ID,
		Total:         types.EUR(0),
		PaymentStatus: archive.PaymentStatusPaid,
		ArchivedAt:    time.Now().UTC(),
		Order:         o,
	}
	back, err := fromArchiveModel(toArchiveModel(r))
	if err != nil {
		t.Fatalf("fromArchiveModel: %v", err)
	}
	if back.ID.String() != r.ID.String() || back.Order == nil || back.Order.ID != o.ID {
		t.Errorf("record not preserved: %+v", back)
	}
}

func TestBillModelCarriesCurrency(t *testing.T) {
	b := &bill.Bill{
		ID:       2,
		Table:    "5",
		OrderIDs: []int64{1, 2},
		Total:    types.EUR(8000),
		Payments: []bill.Payment{{
			ID:     id.NewPaymentID(),
			Amount: types.EUR(2000),
			Tip:    types.EUR(500),
			Items:  []bill.PaidLine{{OrderID: 1, ItemID: 1, Name: "Couscous", Quantity: 1, UnitPrice: types.EUR(2000)}},
		}},
	}
	back, err := fromBillModel(toBillModel(b))
	if err != nil {
		t.Fatalf("fromBillModel: %v", err)
	}
	if !back.Paid().Equal(types.EUR(2500)) || !back.Remaining().Equal(types.EUR(5500)) {
		t.Errorf("paid %v remaining %v", back.Paid(), back.Remaining())
	}
}
