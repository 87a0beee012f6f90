package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onOrderCreated      []OnOrderCreated
	onOrderUpdated      []OnOrderUpdated
	onOrderArchived     []OnOrderArchived
	onNoteClosed        []OnNoteClosed
	onTableCreated      []OnTableCreated
	onTableTransferred  []OnTableTransferred
	onServerTransferred []OnServerTransferred
	onBillCreated       []OnBillCreated
	onBillPaid          []OnBillPaid
	onServiceRequested  []OnServiceRequested
	onServiceCompleted  []OnServiceCompleted
	onStateFlushed      []OnStateFlushed
	onPersistFailed     []OnPersistFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnOrderCreated); ok {
		r.onOrderCreated = append(r.onOrderCreated, v)
	}
	if v, ok := p.(OnOrderUpdated); ok {
		r.onOrderUpdated = append(r.onOrderUpdated, v)
	}
	if v, ok := p.(OnOrderArchived); ok {
		r.onOrderArchived = append(r.onOrderArchived, v)
	}
	if v, ok := p.(OnNoteClosed); ok {
		r.onNoteClosed = append(r.onNoteClosed, v)
	}
	if v, ok := p.(OnTableCreated); ok {
		r.onTableCreated = append(r.onTableCreated, v)
	}
	if v, ok := p.(OnTableTransferred); ok {
		r.onTableTransferred = append(r.onTableTransferred, v)
	}
	if v, ok := p.(OnServerTransferred); ok {
		r.onServerTransferred = append(r.onServerTransferred, v)
	}
	if v, ok := p.(OnBillCreated); ok {
		r.onBillCreated = append(r.onBillCreated, v)
	}
	if v, ok := p.(OnBillPaid); ok {
		r.onBillPaid = append(r.onBillPaid, v)
	}
	if v, ok := p.(OnServiceRequested); ok {
		r.onServiceRequested = append(r.onServiceRequested, v)
	}
	if v, ok := p.(OnServiceCompleted); ok {
		r.onServiceCompleted = append(r.onServiceCompleted, v)
	}
	if v, ok := p.(OnStateFlushed); ok {
		r.onStateFlushed = append(r.onStateFlushed, v)
	}
	if v, ok := p.(OnPersistFailed); ok {
		r.onPersistFailed = append(r.onPersistFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnOrderCreated", reflect.TypeFor[OnOrderCreated]()},
	{"OnOrderUpdated", reflect.TypeFor[OnOrderUpdated]()},
	{"OnOrderArchived", reflect.TypeFor[OnOrderArchived]()},
	{"OnNoteClosed", reflect.TypeFor[OnNoteClosed]()},
	{"OnTableCreated", reflect.TypeFor[OnTableCreated]()},
	{"OnTableTransferred", reflect.TypeFor[OnTableTransferred]()},
	{"OnServerTransferred", reflect.TypeFor[OnServerTransferred]()},
	{"OnBillCreated", reflect.TypeFor[OnBillCreated]()},
	{"OnBillPaid", reflect.TypeFor[OnBillPaid]()},
	{"OnServiceRequested", reflect.TypeFor[OnServiceRequested]()},
	{"OnServiceCompleted", reflect.TypeFor[OnServiceCompleted]()},
	{"OnStateFlushed", reflect.TypeFor[OnStateFlushed]()},
	{"OnPersistFailed", reflect.TypeFor[OnPersistFailed]()},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every plugin in list, logging failures. Hooks never
// fail the operation that triggered them.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list []T, fn func(T) error) {
	for _, p := range list {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// snapshot returns the cached list under the read lock.
func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitOrderCreated emits an order created event.
func (r *Registry) EmitOrderCreated(ctx context.Context, o *order.Order) {
	emit(ctx, r, "OnOrderCreated", snapshot(r, &r.onOrderCreated), func(p OnOrderCreated) error {
		return p.OnOrderCreated(ctx, o)
	})
}

// EmitOrderUpdated emits an order updated event.
func (r *Registry) EmitOrderUpdated(ctx context.Context, o *order.Order) {
	emit(ctx, r, "OnOrderUpdated", snapshot(r, &r.onOrderUpdated), func(p OnOrderUpdated) error {
		return p.OnOrderUpdated(ctx, o)
	})
}

// EmitOrderArchived emits an order archived event.
func (r *Registry) EmitOrderArchived(ctx context.Context, o *order.Order, rec *archive.Record) {
	emit(ctx, r, "OnOrderArchived", snapshot(r, &r.onOrderArchived), func(p OnOrderArchived) error {
		return p.OnOrderArchived(ctx, o, rec)
	})
}

// EmitNoteClosed emits a note closed event.
func (r *Registry) EmitNoteClosed(ctx context.Context, rec *archive.Record) {
	emit(ctx, r, "OnNoteClosed", snapshot(r, &r.onNoteClosed), func(p OnNoteClosed) error {
		return p.OnNoteClosed(ctx, rec)
	})
}

// EmitTableCreated emits a table created event.
func (r *Registry) EmitTableCreated(ctx context.Context, table string, o *order.Order) {
	emit(ctx, r, "OnTableCreated", snapshot(r, &r.onTableCreated), func(p OnTableCreated) error {
		return p.OnTableCreated(ctx, table, o)
	})
}

// EmitTableTransferred emits a table transferred event.
func (r *Registry) EmitTableTransferred(ctx context.Context, from, to string, orders []*order.Order) {
	emit(ctx, r, "OnTableTransferred", snapshot(r, &r.onTableTransferred), func(p OnTableTransferred) error {
		return p.OnTableTransferred(ctx, from, to, orders)
	})
}

// EmitServerTransferred emits a server transferred event.
func (r *Registry) EmitServerTransferred(ctx context.Context, table, server string, orders []*order.Order) {
	emit(ctx, r, "OnServerTransferred", snapshot(r, &r.onServerTransferred), func(p OnServerTransferred) error {
		return p.OnServerTransferred(ctx, table, server, orders)
	})
}

// EmitBillCreated emits a bill created event.
func (r *Registry) EmitBillCreated(ctx context.Context, b *bill.Bill) {
	emit(ctx, r, "OnBillCreated", snapshot(r, &r.onBillCreated), func(p OnBillCreated) error {
		return p.OnBillCreated(ctx, b)
	})
}

// EmitBillPaid emits a bill paid event.
func (r *Registry) EmitBillPaid(ctx context.Context, b *bill.Bill, pay *bill.Payment) {
	emit(ctx, r, "OnBillPaid", snapshot(r, &r.onBillPaid), func(p OnBillPaid) error {
		return p.OnBillPaid(ctx, b, pay)
	})
}

// EmitServiceRequested emits a service requested event.
func (r *Registry) EmitServiceRequested(ctx context.Context, req *request.ServiceRequest) {
	emit(ctx, r, "OnServiceRequested", snapshot(r, &r.onServiceRequested), func(p OnServiceRequested) error {
		return p.OnServiceRequested(ctx, req)
	})
}

// EmitServiceCompleted emits a service completed event.
func (r *Registry) EmitServiceCompleted(ctx context.Context, req *request.ServiceRequest) {
	emit(ctx, r, "OnServiceCompleted", snapshot(r, &r.onServiceCompleted), func(p OnServiceCompleted) error {
		return p.OnServiceCompleted(ctx, req)
	})
}

// EmitStateFlushed emits a state flushed event.
func (r *Registry) EmitStateFlushed(ctx context.Context, collections []string, elapsed time.Duration) {
	emit(ctx, r, "OnStateFlushed", snapshot(r, &r.onStateFlushed), func(p OnStateFlushed) error {
		return p.OnStateFlushed(ctx, collections, elapsed)
	})
}

// EmitPersistFailed emits a persist failed event.
func (r *Registry) EmitPersistFailed(ctx context.Context, collection string, err error) {
	emit(ctx, r, "OnPersistFailed", snapshot(r, &r.onPersistFailed), func(p OnPersistFailed) error {
		return p.OnPersistFailed(ctx, collection, err)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
