package tab

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/plugin"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/store"
)

// Ledger is the table order engine. All state lives in memory, partitioned
// by table; the store receives asynchronous snapshots.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// Active orders. mu guards the two maps only; order contents are
	// guarded by their table shard.
	mu         sync.RWMutex
	tables     map[string]*tableShard
	orderTable map[int64]string

	archiveMu sync.RWMutex
	records   []*archive.Record

	billMu sync.RWMutex
	bills  map[int64]*bill.Bill

	requestMu sync.RWMutex
	requests  map[int64]*request.ServiceRequest

	counterMu sync.Mutex
	counters  store.Counters

	// Persistence
	dirty   atomic.Uint32
	flushMu sync.Mutex

	// Background workers
	runMu    sync.RWMutex
	running  bool
	outbox   chan event
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	currency      string
	flushInterval time.Duration
	outboxSize    int
	loadOnStart   bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		now:           time.Now,
		tables:        make(map[string]*tableShard),
		orderTable:    make(map[int64]string),
		bills:         make(map[int64]*bill.Bill),
		requests:      make(map[int64]*request.ServiceRequest),
		counters:      store.Counters{}.Normalize(),
		currency:      "eur",
		flushInterval: 2 * time.Second,
		outboxSize:    1024,
		loadOnStart:   true,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.outbox = make(chan event, l.outboxSize)
	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCurrency sets the ledger currency. Items and tips without a currency
// take it; any other currency is rejected.
func WithCurrency(currency string) Option {
	return func(l *Ledger) {
		if currency != "" {
			l.currency = strings.ToLower(currency)
		}
	}
}

// WithFlushInterval sets how often dirty collections are saved.
func WithFlushInterval(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.flushInterval = d
		}
	}
}

// WithOutboxSize sets the event outbox capacity.
func WithOutboxSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.outboxSize = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLoadOnStart controls whether Start restores state from the store.
func WithLoadOnStart(load bool) Option {
	return func(l *Ledger) {
		l.loadOnStart = load
	}
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Store returns the backing store.
func (l *Ledger) Store() store.Store { return l.store }

// Currency returns the ledger currency.
func (l *Ledger) Currency() string { return l.currency }

// Start migrates the store, restores persisted state and begins background
// workers.
func (l *Ledger) Start(ctx context.Context) error {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.running {
		return ErrAlreadyStarted
	}

	if err := l.store.Migrate(ctx); err != nil {
		return err
	}
	if l.loadOnStart {
		if err := l.load(ctx); err != nil {
			return err
		}
	}

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	l.stopChan = make(chan struct{})
	l.running = true

	l.wg.Add(2)
	go l.flushWorker()
	go l.outboxWorker()

	l.logger.Info("tab ledger started",
		"currency", l.currency,
		"flush_interval", l.flushInterval,
		"outbox_size", l.outboxSize,
	)

	return nil
}

// Stop drains the outbox, saves dirty state and closes the store.
func (l *Ledger) Stop() error {
	l.runMu.Lock()
	if !l.running {
		l.runMu.Unlock()
		return nil
	}
	l.running = false
	close(l.stopChan)
	l.runMu.Unlock()

	l.wg.Wait()

	ctx := context.Background()
	flushErr := l.Flush(ctx)
	l.plugins.EmitShutdown(ctx)

	l.logger.Info("tab ledger stopped")
	return errors.Join(flushErr, l.store.Close())
}

// ──────────────────────────────────────────────────
// Loading
// ──────────────────────────────────────────────────

func (l *Ledger) load(ctx context.Context) error {
	orders, err := l.store.LoadOrders(ctx)
	if err != nil {
		return err
	}
	records, err := l.store.LoadArchive(ctx)
	if err != nil {
		return err
	}
	bills, err := l.store.LoadBills(ctx)
	if err != nil {
		return err
	}
	reqs, err := l.store.LoadServiceRequests(ctx)
	if err != nil {
		return err
	}
	counters, err := l.store.LoadCounters(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.tables = make(map[string]*tableShard)
	l.orderTable = make(map[int64]string, len(orders))
	for _, o := range orders {
		if o.MainNote == nil {
			o.MainNote = l.newNote(order.MainNoteID, mainNoteName, o.Covers, o.CreatedAt)
		}
		o.Recompute()
		s, ok := l.tables[o.Table]
		if !ok {
			s = &tableShard{table: o.Table}
			l.tables[o.Table] = s
		}
		s.add(o)
		l.orderTable[o.ID] = o.Table
		counters.NextOrderID = max(counters.NextOrderID, o.ID+1)
	}
	l.mu.Unlock()

	for _, r := range records {
		counters.NextOrderID = max(counters.NextOrderID, r.OrderID+1)
	}
	l.archiveMu.Lock()
	l.records = records
	l.archiveMu.Unlock()

	l.billMu.Lock()
	l.bills = make(map[int64]*bill.Bill, len(bills))
	for _, b := range bills {
		l.bills[b.ID] = b
		counters.NextBillID = max(counters.NextBillID, b.ID+1)
	}
	l.billMu.Unlock()

	l.requestMu.Lock()
	l.requests = make(map[int64]*request.ServiceRequest, len(reqs))
	for _, r := range reqs {
		l.requests[r.ID] = r
		counters.NextServiceID = max(counters.NextServiceID, r.ID+1)
	}
	l.requestMu.Unlock()

	l.counterMu.Lock()
	c := counters.Normalize()
	l.counters = store.Counters{
		NextOrderID:   max(l.counters.NextOrderID, c.NextOrderID),
		NextBillID:    max(l.counters.NextBillID, c.NextBillID),
		NextServiceID: max(l.counters.NextServiceID, c.NextServiceID),
	}
	l.counterMu.Unlock()

	l.logger.Debug("tab state loaded",
		"orders", len(orders),
		"archive_records", len(records),
		"bills", len(bills),
		"service_requests", len(reqs),
	)
	return nil
}

// ──────────────────────────────────────────────────
// Counters
// ──────────────────────────────────────────────────

func (l *Ledger) nextOrderID() int64 {
	l.counterMu.Lock()
	defer l.counterMu.Unlock()
	v := l.counters.NextOrderID
	l.counters.NextOrderID++
	l.markDirty(dirtyCounters)
	return v
}

func (l *Ledger) nextBillID() int64 {
	l.counterMu.Lock()
	defer l.counterMu.Unlock()
	v := l.counters.NextBillID
	l.counters.NextBillID++
	l.markDirty(dirtyCounters)
	return v
}

func (l *Ledger) nextServiceID() int64 {
	l.counterMu.Lock()
	defer l.counterMu.Unlock()
	v := l.counters.NextServiceID
	l.counters.NextServiceID++
	l.markDirty(dirtyCounters)
	return v
}

// Counters returns the next ids of every id space.
func (l *Ledger) Counters() store.Counters {
	l.counterMu.Lock()
	defer l.counterMu.Unlock()
	return l.counters
}

// ──────────────────────────────────────────────────
// Persistence
// ──────────────────────────────────────────────────

const (
	dirtyOrders uint32 = 1 << iota
	dirtyArchive
	dirtyBills
	dirtyRequests
	dirtyCounters
)

var collectionNames = []struct {
	bit  uint32
	name string
}{
	{dirtyOrders, "orders"},
	{dirtyArchive, "archive"},
	{dirtyBills, "bills"},
	{dirtyRequests, "service_requests"},
	{dirtyCounters, "counters"},
}

func (l *Ledger) markDirty(bits uint32) {
	l.dirty.Or(bits)
}

// flushWorker saves dirty collections every flush interval.
func (l *Ledger) flushWorker() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			_ = l.Flush(context.Background()) //nolint:errcheck // failures are logged and retried
		}
	}
}

// Flush saves every dirty collection now. Failed collections stay dirty and
// are retried by the next flush; the in-memory state is never rolled back.
func (l *Ledger) Flush(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	bits := l.dirty.Swap(0)
	if bits == 0 {
		return nil
	}

	start := l.now()
	var (
		errs  MultiError
		saved []string
	)
	for _, c := range collectionNames {
		if bits&c.bit == 0 {
			continue
		}
		if err := l.save(ctx, c.bit); err != nil {
			l.markDirty(c.bit)
			l.logger.Error("failed to save collection",
				"collection", c.name,
				"error", err,
			)
			l.plugins.EmitPersistFailed(ctx, c.name, err)
			errs.Add(err)
			continue
		}
		saved = append(saved, c.name)
	}

	if len(saved) > 0 {
		elapsed := l.now().Sub(start)
		l.plugins.EmitStateFlushed(ctx, saved, elapsed)
		l.logger.Debug("flushed tab state",
			"collections", saved,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (l *Ledger) save(ctx context.Context, bit uint32) error {
	switch bit {
	case dirtyOrders:
		return l.store.SaveOrders(ctx, l.snapshotOrders())
	case dirtyArchive:
		l.archiveMu.RLock()
		records := make([]*archive.Record, len(l.records))
		for i, r := range l.records {
			records[i] = r.Clone()
		}
		l.archiveMu.RUnlock()
		return l.store.SaveArchive(ctx, records)
	case dirtyBills:
		l.billMu.RLock()
		bills := make([]*bill.Bill, 0, len(l.bills))
		for _, b := range l.bills {
			bills = append(bills, b.Clone())
		}
		l.billMu.RUnlock()
		return l.store.SaveBills(ctx, bills)
	case dirtyRequests:
		l.requestMu.RLock()
		reqs := make([]*request.ServiceRequest, 0, len(l.requests))
		for _, r := range l.requests {
			cp := *r
			reqs = append(reqs, &cp)
		}
		l.requestMu.RUnlock()
		return l.store.SaveServiceRequests(ctx, reqs)
	case dirtyCounters:
		return l.store.SaveCounters(ctx, l.Counters())
	}
	return nil
}

// snapshotOrders deep-copies every active order under a consistent view.
func (l *Ledger) snapshotOrders() []*order.Order {
	shards, unlock := l.rlockAll()
	defer unlock()

	var out []*order.Order
	for _, s := range shards {
		for _, o := range s.orders {
			out = append(out, o.Clone())
		}
	}
	return out
}
