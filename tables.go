package tab

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

// maxRelock bounds how often an operation re-resolves its tables when
// orders move between tables underneath it.
const maxRelock = 16

// tableShard owns the active orders of one table. Every mutation of those
// orders happens under mu.
type tableShard struct {
	mu     sync.RWMutex
	table  string
	orders []*order.Order // ascending id
}

func (s *tableShard) find(orderID int64) *order.Order {
	for _, o := range s.orders {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}

// open returns the order new submissions for the table join, if any.
func (s *tableShard) open() *order.Order {
	for _, o := range s.orders {
		if o.Open() {
			return o
		}
	}
	return nil
}

// primary returns the open order, else the most recent active one.
func (s *tableShard) primary() *order.Order {
	if o := s.open(); o != nil {
		return o
	}
	if len(s.orders) == 0 {
		return nil
	}
	return s.orders[len(s.orders)-1]
}

func (s *tableShard) add(o *order.Order) {
	s.orders = append(s.orders, o)
	sort.Slice(s.orders, func(i, j int) bool { return s.orders[i].ID < s.orders[j].ID })
}

func (s *tableShard) remove(orderID int64) {
	s.orders = slices.DeleteFunc(s.orders, func(o *order.Order) bool { return o.ID == orderID })
}

// TableSummary describes one table with active orders.
type TableSummary struct {
	Table       string      `json:"table"`
	Orders      int         `json:"orders"`
	OpenOrderID int64       `json:"open_order_id,omitempty"`
	Server      string      `json:"server,omitempty"`
	Covers      int         `json:"covers"`
	Total       types.Money `json:"total"`
}

// ──────────────────────────────────────────────────
// Shard lookup and locking
// ──────────────────────────────────────────────────

// shard returns the shard of table, creating it on first use. Shards are
// never dropped, so a pointer stays valid after l.mu is released.
func (l *Ledger) shard(table string) *tableShard {
	l.mu.RLock()
	s, ok := l.tables[table]
	l.mu.RUnlock()
	if ok {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok = l.tables[table]; !ok {
		s = &tableShard{table: table}
		l.tables[table] = s
	}
	return s
}

// existingShard returns the shard of table without creating one.
func (l *Ledger) existingShard(table string) *tableShard {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tables[table]
}

func (l *Ledger) tableOf(orderID int64) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.orderTable[orderID]
	return t, ok
}

func (l *Ledger) indexOrder(orderID int64, table string) {
	l.mu.Lock()
	l.orderTable[orderID] = table
	l.mu.Unlock()
}

func (l *Ledger) unindexOrder(orderID int64) {
	l.mu.Lock()
	delete(l.orderTable, orderID)
	l.mu.Unlock()
}

// lockOrder write-locks the shard currently holding orderID. The caller
// must call unlock. The index is updated under the shard lock whenever an
// order moves, so a miss after locking is re-checked against the index.
func (l *Ledger) lockOrder(op string, orderID int64) (*tableShard, *order.Order, error) {
	for range maxRelock {
		table, ok := l.tableOf(orderID)
		if !ok {
			return nil, nil, notFound(op, ErrOrderNotFound, "order %d not found", orderID)
		}
		s := l.shard(table)
		s.mu.Lock()
		if o := s.find(orderID); o != nil {
			return s, o, nil
		}
		s.mu.Unlock()
		if now, ok := l.tableOf(orderID); !ok || now == table {
			return nil, nil, notFound(op, ErrOrderNotFound, "order %d not found", orderID)
		}
	}
	return nil, nil, &Error{Kind: KindConflict, Op: op, Message: "order keeps moving between tables"}
}

// readOrder returns a deep copy of orderID taken under the shard read lock.
func (l *Ledger) readOrder(op string, orderID int64) (*order.Order, error) {
	for range maxRelock {
		table, ok := l.tableOf(orderID)
		if !ok {
			return nil, notFound(op, ErrOrderNotFound, "order %d not found", orderID)
		}
		s := l.shard(table)
		s.mu.RLock()
		o := s.find(orderID)
		var cp *order.Order
		if o != nil {
			cp = o.Clone()
		}
		s.mu.RUnlock()
		if cp != nil {
			return cp, nil
		}
		if now, ok := l.tableOf(orderID); !ok || now == table {
			return nil, notFound(op, ErrOrderNotFound, "order %d not found", orderID)
		}
	}
	return nil, &Error{Kind: KindConflict, Op: op, Message: "order keeps moving between tables"}
}

// lockTables write-locks the shards of the given tables in ascending table
// order and returns them keyed by table, plus the unlock func.
func (l *Ledger) lockTables(tables ...string) (map[string]*tableShard, func()) {
	names := slices.Clone(tables)
	slices.Sort(names)
	names = slices.Compact(names)

	shards := make(map[string]*tableShard, len(names))
	locked := make([]*tableShard, 0, len(names))
	for _, t := range names {
		s := l.shard(t)
		s.mu.Lock()
		shards[t] = s
		locked = append(locked, s)
	}
	return shards, func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}

// rlockAll read-locks every shard in ascending table order, giving a
// consistent view across tables.
func (l *Ledger) rlockAll() ([]*tableShard, func()) {
	l.mu.RLock()
	shards := make([]*tableShard, 0, len(l.tables))
	for _, s := range l.tables {
		shards = append(shards, s)
	}
	l.mu.RUnlock()

	sort.Slice(shards, func(i, j int) bool { return shards[i].table < shards[j].table })
	for _, s := range shards {
		s.mu.RLock()
	}
	return shards, func() {
		for i := len(shards) - 1; i >= 0; i-- {
			shards[i].mu.RUnlock()
		}
	}
}

// ──────────────────────────────────────────────────
// Table queries
// ──────────────────────────────────────────────────

// Tables lists every table with at least one active order.
func (l *Ledger) Tables(_ context.Context) ([]TableSummary, error) {
	shards, unlock := l.rlockAll()
	defer unlock()

	result := make([]TableSummary, 0, len(shards))
	for _, s := range shards {
		if len(s.orders) == 0 {
			continue
		}
		sum := TableSummary{Table: s.table, Orders: len(s.orders), Total: types.Zero(l.currency)}
		for _, o := range s.orders {
			sum.Total = sum.Total.Add(o.Total)
			sum.Covers += o.Covers
			if sum.Server == "" {
				sum.Server = o.Server
			}
		}
		if o := s.open(); o != nil {
			sum.OpenOrderID = o.ID
		}
		result = append(result, sum)
	}
	return result, nil
}
