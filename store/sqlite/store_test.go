package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, filepath.Join(t.TempDir(), "tab.db")); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		t.Fatalf("grove open: %v", err)
	}
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func testOrder(oid int64) *order.Order {
	main := &order.Note{ID: order.MainNoteID, Name: "main", Covers: 1, Total: types.EUR(0)}
	main.Append([]order.Item{{ID: 1, Name: "Tea", UnitPrice: types.EUR(250), Quantity: 2}})
	o := &order.Order{ID: oid, Table: "5", Status: order.StatusNew, MainNote: main, Total: types.EUR(0)}
	o.Recompute()
	return o
}

// orderIDs reads the stored ids with a plain query.
func orderIDs(t *testing.T, s *Store) []int64 {
	t.Helper()
	rows, err := s.sdb.Query(context.Background(), "SELECT id FROM tab_orders ORDER BY id")
	if err != nil {
		t.Fatalf("query orders: %v", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return ids
}

func TestSaveOrders(t *testing.T) {
	tests := []struct {
		name    string
		second  []*order.Order
		wantErr bool
		want    []int64
	}{
		{
			name:   "replaces the previous set",
			second: []*order.Order{testOrder(3)},
			want:   []int64{3},
		},
		{
			name:   "empty set clears",
			second: nil,
			want:   []int64{},
		},
		{
			// The duplicate key fails the insert after the clear has run.
			name:    "failed insert keeps the previous set",
			second:  []*order.Order{testOrder(4), testOrder(4)},
			wantErr: true,
			want:    []int64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t)

			if err := s.SaveOrders(ctx, []*order.Order{testOrder(1), testOrder(2)}); err != nil {
				t.Fatalf("SaveOrders: %v", err)
			}
			err := s.SaveOrders(ctx, tt.second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SaveOrders error = %v, wantErr %v", err, tt.wantErr)
			}

			got := orderIDs(t, s)
			if len(got) != len(tt.want) {
				t.Fatalf("orders: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("orders: got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}
