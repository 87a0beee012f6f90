package tab

import (
	"context"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
)

type eventKind uint8

const (
	evOrderCreated eventKind = iota + 1
	evOrderUpdated
	evOrderArchived
	evNoteClosed
	evTableCreated
	evTableTransferred
	evServerTransferred
	evBillCreated
	evBillPaid
	evServiceRequested
	evServiceCompleted
)

// event is one committed state change waiting for the plugins. Payloads are
// deep copies taken while the table locks were still held.
type event struct {
	kind    eventKind
	order   *order.Order
	orders  []*order.Order
	record  *archive.Record
	bill    *bill.Bill
	payment *bill.Payment
	request *request.ServiceRequest
	table   string
	target  string
}

// publish queues events for delivery. Callers must not hold any ledger lock.
// While the ledger runs, events go through the outbox worker; otherwise, or
// when the outbox is full, they are dispatched inline so none is dropped.
func (l *Ledger) publish(ctx context.Context, events ...event) {
	l.runMu.RLock()
	defer l.runMu.RUnlock()

	for i, ev := range events {
		if !l.running {
			l.dispatchAll(context.WithoutCancel(ctx), events[i:])
			return
		}
		select {
		case l.outbox <- ev:
		default:
			l.logger.Warn("tab outbox full, dispatching inline", "pending", len(l.outbox))
			l.dispatch(context.WithoutCancel(ctx), ev)
		}
	}
}

// outboxWorker delivers queued events until stop, then drains the rest.
func (l *Ledger) outboxWorker() {
	defer l.wg.Done()

	ctx := context.Background()
	for {
		select {
		case ev := <-l.outbox:
			l.dispatch(ctx, ev)
		case <-l.stopChan:
			for {
				select {
				case ev := <-l.outbox:
					l.dispatch(ctx, ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Ledger) dispatchAll(ctx context.Context, events []event) {
	for _, ev := range events {
		l.dispatch(ctx, ev)
	}
}

func (l *Ledger) dispatch(ctx context.Context, ev event) {
	r := l.plugins
	switch ev.kind {
	case evOrderCreated:
		r.EmitOrderCreated(ctx, ev.order)
	case evOrderUpdated:
		r.EmitOrderUpdated(ctx, ev.order)
	case evOrderArchived:
		r.EmitOrderArchived(ctx, ev.order, ev.record)
	case evNoteClosed:
		r.EmitNoteClosed(ctx, ev.record)
	case evTableCreated:
		r.EmitTableCreated(ctx, ev.table, ev.order)
	case evTableTransferred:
		r.EmitTableTransferred(ctx, ev.table, ev.target, ev.orders)
	case evServerTransferred:
		r.EmitServerTransferred(ctx, ev.table, ev.target, ev.orders)
	case evBillCreated:
		r.EmitBillCreated(ctx, ev.bill)
	case evBillPaid:
		r.EmitBillPaid(ctx, ev.bill, ev.payment)
	case evServiceRequested:
		r.EmitServiceRequested(ctx, ev.request)
	case evServiceCompleted:
		r.EmitServiceCompleted(ctx, ev.request)
	}
}

func orderEvent(kind eventKind, o *order.Order) event {
	return event{kind: kind, order: o.Clone()}
}

func cloneOrders(orders []*order.Order) []*order.Order {
	out := make([]*order.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
