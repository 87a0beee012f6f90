package tab

import (
	"context"
	"sort"
	"strings"

	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

// BillView is a bill with its settlement state.
type BillView struct {
	Bill      *bill.Bill  `json:"bill"`
	Paid      types.Money `json:"paid"`
	Remaining types.Money `json:"remaining"`
}

// PayResult is the outcome of a bill payment.
type PayResult struct {
	Payment   *bill.Payment `json:"payment"`
	Paid      types.Money   `json:"paid"`
	Remaining types.Money   `json:"remaining"`
	Bill      *bill.Bill    `json:"bill"`
}

func newBillView(b *bill.Bill) *BillView {
	return &BillView{Bill: b.Clone(), Paid: b.Paid(), Remaining: b.Remaining()}
}

// CreateBill snapshots every active order of a table, confirmed or not.
// The bill total never follows later order changes.
func (l *Ledger) CreateBill(ctx context.Context, table string) (*bill.Bill, error) {
	const op = "create_bill"

	if strings.TrimSpace(table) == "" {
		return nil, invalid(op, ValidationError{Field: "table", Message: "is required"})
	}

	s := l.existingShard(table)
	if s == nil {
		return nil, notFound(op, ErrTableNotFound, "table %q has no orders", table)
	}
	s.mu.RLock()
	if len(s.orders) == 0 {
		s.mu.RUnlock()
		return nil, notFound(op, ErrTableNotFound, "table %q has no orders", table)
	}
	orderIDs := make([]int64, 0, len(s.orders))
	total := types.Zero(l.currency)
	for _, o := range s.orders {
		orderIDs = append(orderIDs, o.ID)
		total = total.Add(o.Total)
	}
	s.mu.RUnlock()

	b := &bill.Bill{
		ID:        l.nextBillID(),
		Table:     table,
		OrderIDs:  orderIDs,
		Total:     total,
		Payments:  []bill.Payment{},
		CreatedAt: l.now().UTC(),
	}

	l.billMu.Lock()
	l.bills[b.ID] = b
	out := b.Clone()
	l.billMu.Unlock()

	l.markDirty(dirtyBills)
	l.publish(ctx, event{kind: evBillCreated, bill: out.Clone()})

	l.logger.Info("bill created",
		"bill_id", out.ID,
		"table", table,
		"orders", len(orderIDs),
		"total", total.String(),
	)
	return out, nil
}

// Bill returns a bill with what has been paid and what remains.
func (l *Ledger) Bill(_ context.Context, billID int64) (*BillView, error) {
	l.billMu.RLock()
	defer l.billMu.RUnlock()

	b, ok := l.bills[billID]
	if !ok {
		return nil, notFound("get_bill", ErrBillNotFound, "bill %d not found", billID)
	}
	return newBillView(b), nil
}

// Bills lists bills by ascending id.
func (l *Ledger) Bills(_ context.Context, opts bill.ListOpts) ([]*BillView, error) {
	l.billMu.RLock()
	defer l.billMu.RUnlock()

	out := make([]*BillView, 0, len(l.bills))
	for _, b := range l.bills {
		if opts.Table != "" && b.Table != opts.Table {
			continue
		}
		if opts.Open && !b.Remaining().IsPositive() {
			continue
		}
		out = append(out, newBillView(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bill.ID < out[j].Bill.ID })
	return out, nil
}

// PayBill records a payment against a bill. The amount is priced from the
// referenced orders' current lines; requested quantities are clamped to what
// those lines hold. Lines of orders outside the bill, or already archived,
// are skipped. Paying a bill never removes items from the orders; use
// Settle for that.
func (l *Ledger) PayBill(ctx context.Context, billID int64, lines []bill.Line, tip types.Money) (*PayResult, error) {
	const op = "pay_bill"

	tip, err := l.normalizeTip(op, tip)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 && tip.IsZero() {
		return nil, invalid(op, ValidationError{Field: "items", Message: "items or a tip are required"})
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, invalid(op, ValidationError{Field: "items.quantity", Message: "must be positive"})
		}
	}

	l.billMu.RLock()
	b, ok := l.bills[billID]
	var orderIDs []int64
	if ok {
		orderIDs = append(orderIDs, b.OrderIDs...)
	}
	l.billMu.RUnlock()
	if !ok {
		return nil, notFound(op, ErrBillNotFound, "bill %d not found", billID)
	}

	orders := make(map[int64]*order.Order, len(orderIDs))
	for _, oid := range orderIDs {
		if o, err := l.readOrder(op, oid); err == nil {
			orders[oid] = o
		}
	}

	now := l.now().UTC()
	pay := &bill.Payment{
		ID:        id.NewPaymentID(),
		Amount:    types.Zero(l.currency),
		Tip:       tip,
		Items:     []bill.PaidLine{},
		CreatedAt: now,
	}
	pricePaidLines(pay, lines, orders)

	l.billMu.Lock()
	b = l.bills[billID]
	b.Payments = append(b.Payments, *pay)
	res := &PayResult{
		Payment:   clonePayment(pay),
		Paid:      b.Paid(),
		Remaining: b.Remaining(),
		Bill:      b.Clone(),
	}
	ev := event{kind: evBillPaid, bill: b.Clone(), payment: clonePayment(pay)}
	l.billMu.Unlock()

	l.markDirty(dirtyBills)
	l.publish(ctx, ev)

	l.logger.Info("bill paid",
		"bill_id", billID,
		"payment_id", pay.ID.String(),
		"amount", pay.Amount.String(),
		"tip", pay.Tip.String(),
		"remaining", res.Remaining.String(),
	)
	return res, nil
}

// itemKey identifies one source line of a note by position.
type itemKey struct {
	orderID int64
	noteID  string
	index   int
}

// pricePaidLines fills pay.Items and pay.Amount from the live orders. Each
// request walks every matching source line in note order, pricing units at
// their own line's unit price and emitting one paid line per source line. A
// scratch tally of the quantities already claimed keeps repeated requests
// within one payment from paying the same units twice; the orders are never
// mutated.
func pricePaidLines(pay *bill.Payment, lines []bill.Line, orders map[int64]*order.Order) {
	used := make(map[itemKey]int64)
	for _, line := range lines {
		o, ok := orders[line.OrderID]
		if !ok {
			continue
		}
		want := line.Quantity
		for _, n := range paidLineNotes(o, line.NoteID) {
			for i := range n.Items {
				if want <= 0 {
					break
				}
				it := &n.Items[i]
				if it.ID != line.ItemID || it.Name != line.Name {
					continue
				}
				key := itemKey{o.ID, n.ID, i}
				qty := min(want, it.Quantity-used[key])
				if qty <= 0 {
					continue
				}
				used[key] += qty
				want -= qty

				pay.Items = append(pay.Items, bill.PaidLine{
					OrderID:   o.ID,
					NoteID:    n.ID,
					ItemID:    it.ID,
					Name:      it.Name,
					Quantity:  qty,
					UnitPrice: it.UnitPrice,
				})
				pay.Amount = pay.Amount.Add(it.UnitPrice.Multiply(qty))
			}
		}
	}
}

// paidLineNotes returns the notes a paid line may draw from. Without a note
// id that is the main note first, then the sub-notes in order.
func paidLineNotes(o *order.Order, noteID string) []*order.Note {
	if noteID == "" {
		return o.Notes()
	}
	if n := o.Note(noteID); n != nil {
		return []*order.Note{n}
	}
	return nil
}

func (l *Ledger) normalizeTip(op string, tip types.Money) (types.Money, error) {
	if tip.IsNegative() {
		return tip, invalid(op, ValidationError{Field: "tip", Message: "must not be negative"})
	}
	tip.Currency = strings.ToLower(tip.Currency)
	if tip.Currency == "" {
		tip.Currency = l.currency
	}
	if tip.Currency != l.currency {
		return tip, invalidf(op, "tip currency %q does not match ledger currency %q", tip.Currency, l.currency)
	}
	return tip, nil
}

func clonePayment(p *bill.Payment) *bill.Payment {
	cp := *p
	cp.Items = append([]bill.PaidLine(nil), p.Items...)
	return &cp
}
