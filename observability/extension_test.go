package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

type fakeMetric struct {
	mu       sync.Mutex
	count    float64
	observed []float64
}

func (f *fakeMetric) Inc()          { f.Add(1) }
func (f *fakeMetric) Add(v float64) { f.mu.Lock(); f.count += v; f.mu.Unlock() }
func (f *fakeMetric) Observe(v float64) {
	f.mu.Lock()
	f.observed = append(f.observed, v)
	f.mu.Unlock()
}

type fakeFactory struct {
	metrics map[string]*fakeMetric
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{metrics: make(map[string]*fakeMetric)}
}

func (f *fakeFactory) get(name string) *fakeMetric {
	m, ok := f.metrics[name]
	if !ok {
		m = &fakeMetric{}
		f.metrics[name] = m
	}
	return m
}

func (f *fakeFactory) Counter(name string) Counter     { return f.get(name) }
func (f *fakeFactory) Histogram(name string) Histogram { return f.get(name) }

func TestMetricsExtensionCounts(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	m := NewMetricsExtension(f)

	o := &order.Order{ID: 1}
	_ = m.OnOrderCreated(ctx, o)
	_ = m.OnOrderUpdated(ctx, o)
	_ = m.OnOrderUpdated(ctx, o)
	_ = m.OnNoteClosed(ctx, &archive.Record{Total: types.EUR(500)})
	_ = m.OnOrderArchived(ctx, o, &archive.Record{Total: types.EUR(2400)})
	_ = m.OnBillCreated(ctx, &bill.Bill{Total: types.EUR(8000)})
	_ = m.OnBillPaid(ctx, &bill.Bill{}, &bill.Payment{Amount: types.EUR(2000), Tip: types.EUR(500)})
	_ = m.OnStateFlushed(ctx, []string{"orders"}, 12*time.Millisecond)
	_ = m.OnPersistFailed(ctx, "orders", errors.New("boom"))

	tests := []struct {
		name  string
		count float64
	}{
		{"tab.order.created", 1},
		{"tab.order.updated", 2},
		{"tab.order.archived", 1},
		{"tab.note.closed", 1},
		{"tab.bill.created", 1},
		{"tab.bill.paid", 1},
		{"tab.store.errors", 1},
		{"tab.table.created", 0},
	}
	for _, tt := range tests {
		if got := f.get(tt.name).count; got != tt.count {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.count)
		}
	}

	if got := f.get("tab.settled.amount_minor").observed; len(got) != 2 || got[0] != 500 || got[1] != 2400 {
		t.Errorf("settled amounts: %v", got)
	}
	if got := f.get("tab.payment.tip_minor").observed; len(got) != 1 || got[0] != 500 {
		t.Errorf("tips: %v", got)
	}
	if got := f.get("tab.store.flush.latency_ms").observed; len(got) != 1 || got[0] != 12 {
		t.Errorf("flush latency: %v", got)
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	f := NewPrometheusFactory(reg)

	c := f.Counter("tab.order.created")
	c.Inc()
	c.Add(2)
	if again := f.Counter("tab.order.created"); again != c {
		t.Error("counter not cached")
	}
	if got := testutil.ToFloat64(c.(prometheus.Counter)); got != 3 {
		t.Errorf("counter value: %v", got)
	}

	f.Histogram("tab.bill.total_minor").Observe(8000)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"tab_order_created_total", "tab_bill_total_minor"} {
		if !names[want] {
			t.Errorf("metric %s not registered; got %v", want, names)
		}
	}

	// A second factory on the same registry reuses the collectors.
	other := NewPrometheusFactory(reg)
	other.Counter("tab.order.created").Inc()
	if got := testutil.ToFloat64(c.(prometheus.Counter)); got != 4 {
		t.Errorf("shared counter value: %v", got)
	}
}
