// Package bill defines table bills: immutable snapshots of a table's order
// totals against which payments and tips accumulate.
package bill

import (
	"time"

	"github.com/xraph/tab/id"
	"github.com/xraph/tab/types"
)

// Bill snapshots the orders of one table. OrderIDs and Total never change
// after creation; only Payments grows.
type Bill struct {
	ID        int64       `json:"id"`
	Table     string      `json:"table"`
	OrderIDs  []int64     `json:"order_ids"`
	Total     types.Money `json:"total"`
	Payments  []Payment   `json:"payments"`
	CreatedAt time.Time   `json:"created_at"`
}

// Payment records which item quantities a guest paid for. Amount is priced
// from the live lines at payment time, not from the bill snapshot.
type Payment struct {
	ID        id.PaymentID `json:"id"`
	Amount    types.Money  `json:"amount"`
	Tip       types.Money  `json:"tip"`
	Items     []PaidLine   `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
}

// Value returns Amount + Tip.
func (p Payment) Value() types.Money {
	return p.Amount.Add(p.Tip)
}

// PaidLine is one settled quantity of an order line.
type PaidLine struct {
	OrderID   int64       `json:"order_id"`
	NoteID    string      `json:"note_id,omitempty"`
	ItemID    int64       `json:"item_id"`
	Name      string      `json:"name"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unit_price"`
}

// Paid returns the sum of amount and tip over every payment.
func (b *Bill) Paid() types.Money {
	paid := types.Zero(b.Total.Currency)
	for _, p := range b.Payments {
		paid = paid.Add(p.Value())
	}
	return paid
}

// Remaining returns max(0, Total - Paid).
func (b *Bill) Remaining() types.Money {
	return b.Total.Subtract(b.Paid()).ClampZero()
}

// References reports whether orderID is part of the bill.
func (b *Bill) References(orderID int64) bool {
	for _, oid := range b.OrderIDs {
		if oid == orderID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of b.
func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	cp := *b
	cp.OrderIDs = append([]int64(nil), b.OrderIDs...)
	cp.Payments = make([]Payment, len(b.Payments))
	for i, p := range b.Payments {
		p.Items = append([]PaidLine(nil), p.Items...)
		cp.Payments[i] = p
	}
	return &cp
}

// Line is a requested bill payment line. NoteID narrows the match to one
// note; empty searches the main note first, then the sub-notes.
type Line struct {
	OrderID  int64  `json:"order_id"`
	NoteID   string `json:"note_id,omitempty"`
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// ListOpts filters bill listings.
type ListOpts struct {
	Table string
	// Open keeps only bills with a remaining balance.
	Open bool
}
