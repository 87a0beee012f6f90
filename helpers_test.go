package tab_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tab"
	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/store/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLedger returns an unstarted ledger; events are dispatched inline.
func newTestLedger(t *testing.T, opts ...tab.Option) (*tab.Ledger, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]tab.Option{tab.WithLogger(quietLogger()), tab.WithPlugin(rec)}, opts...)
	return tab.New(memory.New(), opts...), rec
}

func item(id int64, name string, cents, qty int64) tab.Item {
	return tab.Item{ID: id, Name: name, UnitPrice: tab.EUR(cents), Quantity: qty}
}

func line(id int64, name string, qty int64) tab.Line {
	return tab.Line{ID: id, Name: name, Quantity: qty}
}

func submit(t *testing.T, l *tab.Ledger, table string, items ...tab.Item) *tab.Order {
	t.Helper()
	o, err := l.Submit(context.Background(), tab.SubmitRequest{Table: table, Items: items})
	if err != nil {
		t.Fatalf("submit to table %s: %v", table, err)
	}
	return o
}

// assertTotals checks the note and order sum invariants on o.
func assertTotals(t *testing.T, o *order.Order) {
	t.Helper()
	sum := int64(0)
	for _, n := range o.Notes() {
		want := int64(0)
		for _, it := range n.Items {
			if it.Quantity <= 0 {
				t.Errorf("order %d note %s: zero-quantity line %+v", o.ID, n.ID, it)
			}
			want += it.UnitPrice.Amount * it.Quantity
		}
		if n.Total.Amount != want {
			t.Errorf("order %d note %s: total %d, items sum %d", o.ID, n.ID, n.Total.Amount, want)
		}
		if n.Total.IsNegative() {
			t.Errorf("order %d note %s: negative total", o.ID, n.ID)
		}
		sum += n.Total.Amount
	}
	if o.Total.Amount != sum {
		t.Errorf("order %d: total %d, notes sum %d", o.ID, o.Total.Amount, sum)
	}
}

// activeSum returns the sum of every active order total.
func activeSum(t *testing.T, l *tab.Ledger) int64 {
	t.Helper()
	orders, err := l.ActiveOrders(context.Background(), order.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, o := range orders {
		assertTotals(t, o)
		sum += o.Total.Amount
	}
	return sum
}

func assertKind(t *testing.T, err error, want tab.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := tab.KindOf(err); got != want {
		t.Fatalf("kind: got %s, want %s (%v)", got, want, err)
	}
}

// ──────────────────────────────────────────────────
// Recording plugin
// ──────────────────────────────────────────────────

type recorder struct {
	mu     sync.Mutex
	events []string
	orders []*order.Order
	failed []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(name string, o *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	if o != nil {
		r.orders = append(r.orders, o)
	}
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Count(name string) int {
	n := 0
	for _, e := range r.Events() {
		if e == name {
			n++
		}
	}
	return n
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.orders = nil
}

func (r *recorder) OnOrderCreated(_ context.Context, o *order.Order) error {
	r.add("order.created", o)
	return nil
}

func (r *recorder) OnOrderUpdated(_ context.Context, o *order.Order) error {
	r.add("order.updated", o)
	return nil
}

func (r *recorder) OnOrderArchived(_ context.Context, o *order.Order, _ *archive.Record) error {
	r.add("order.archived", o)
	return nil
}

func (r *recorder) OnNoteClosed(_ context.Context, _ *archive.Record) error {
	r.add("note.closed", nil)
	return nil
}

func (r *recorder) OnTableCreated(_ context.Context, _ string, o *order.Order) error {
	r.add("table.created", o)
	return nil
}

func (r *recorder) OnTableTransferred(_ context.Context, _, _ string, _ []*order.Order) error {
	r.add("table.transferred", nil)
	return nil
}

func (r *recorder) OnServerTransferred(_ context.Context, _, _ string, _ []*order.Order) error {
	r.add("server.transferred", nil)
	return nil
}

func (r *recorder) OnBillCreated(_ context.Context, _ *bill.Bill) error {
	r.add("bill.created", nil)
	return nil
}

func (r *recorder) OnBillPaid(_ context.Context, _ *bill.Bill, _ *bill.Payment) error {
	r.add("bill.paid", nil)
	return nil
}

func (r *recorder) OnServiceRequested(_ context.Context, _ *request.ServiceRequest) error {
	r.add("service.requested", nil)
	return nil
}

func (r *recorder) OnServiceCompleted(_ context.Context, _ *request.ServiceRequest) error {
	r.add("service.completed", nil)
	return nil
}

func (r *recorder) OnStateFlushed(_ context.Context, _ []string, _ time.Duration) error {
	r.add("state.flushed", nil)
	return nil
}

func (r *recorder) OnPersistFailed(_ context.Context, collection string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, collection)
	return nil
}

func (r *recorder) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

// ──────────────────────────────────────────────────
// Failing store
// ──────────────────────────────────────────────────

var errDiskFull = errors.New("disk full")

// flakyStore fails SaveOrders while failing is set.
type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *flakyStore) SaveOrders(ctx context.Context, orders []*order.Order) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return s.Store.SaveOrders(ctx, orders)
}
