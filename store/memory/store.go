package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/store"
)

// Store keeps every collection in process memory. Values are copied in and
// out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	// Order storage, keyed by order id
	orders map[int64]*order.Order

	// Archive storage, append order preserved
	records []*archive.Record

	// Bill storage
	bills map[int64]*bill.Bill

	// Service request storage
	requests map[int64]*request.ServiceRequest

	counters store.Counters

	saves int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		orders:   make(map[int64]*order.Order),
		records:  make([]*archive.Record, 0),
		bills:    make(map[int64]*bill.Bill),
		requests: make(map[int64]*request.ServiceRequest),
	}
}

// Order Store implementation
func (s *Store) LoadOrders(_ context.Context) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		result = append(result, o.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SaveOrders(_ context.Context, orders []*order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[int64]*order.Order, len(orders))
	for _, o := range orders {
		s.orders[o.ID] = o.Clone()
	}
	s.saves++
	return nil
}

// Archive Store implementation
func (s *Store) LoadArchive(_ context.Context) ([]*archive.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*archive.Record, len(s.records))
	for i, r := range s.records {
		result[i] = r.Clone()
	}
	return result, nil
}

func (s *Store) SaveArchive(_ context.Context, records []*archive.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make([]*archive.Record, len(records))
	for i, r := range records {
		s.records[i] = r.Clone()
	}
	s.saves++
	return nil
}

// Bill Store implementation
func (s *Store) LoadBills(_ context.Context) ([]*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*bill.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SaveBills(_ context.Context, bills []*bill.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bills = make(map[int64]*bill.Bill, len(bills))
	for _, b := range bills {
		s.bills[b.ID] = b.Clone()
	}
	s.saves++
	return nil
}

// Service request Store implementation
func (s *Store) LoadServiceRequests(_ context.Context) ([]*request.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*request.ServiceRequest, 0, len(s.requests))
	for _, r := range s.requests {
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SaveServiceRequests(_ context.Context, reqs []*request.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = make(map[int64]*request.ServiceRequest, len(reqs))
	for _, r := range reqs {
		cp := *r
		s.requests[r.ID] = &cp
	}
	s.saves++
	return nil
}

// Counter Store implementation
func (s *Store) LoadCounters(_ context.Context) (store.Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.counters, nil
}

func (s *Store) SaveCounters(_ context.Context, c store.Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = c
	s.saves++
	return nil
}

// Saves returns how many Save calls the store has served.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saves
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
