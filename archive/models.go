// Package archive holds the append-only history of settled notes and
// orders.
package archive

import (
	"sort"
	"time"

	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

// Kind says what a Record captures.
type Kind string

const (
	KindNote  Kind = "note"
	KindOrder Kind = "order"
)

// PaymentStatusPaid marks a record closed by settlement.
const PaymentStatusPaid = "paid"

// Record is one archived note or order. Records are never modified once
// appended.
type Record struct {
	ID            id.ArchiveID `json:"id"`
	Kind          Kind         `json:"kind"`
	Table         string       `json:"table"`
	OrderID       int64        `json:"order_id"`
	NoteID        string       `json:"note_id,omitempty"`
	Name          string       `json:"name,omitempty"`
	Server        string       `json:"server,omitempty"`
	Covers        int          `json:"covers"`
	Items         []order.Item `json:"items"`
	Total         types.Money  `json:"total"`
	PaymentStatus string       `json:"payment_status"`
	CreatedAt     time.Time    `json:"created_at"`
	ArchivedAt    time.Time    `json:"archived_at"`
	// Order is the final order state for KindOrder records.
	Order *order.Order `json:"order,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Items = append([]order.Item(nil), r.Items...)
	cp.Order = r.Order.Clone()
	return &cp
}

// Query filters archive reads. Zero fields match everything; From and To
// bound ArchivedAt inclusively.
type Query struct {
	Table   string
	OrderID int64
	From    time.Time
	To      time.Time
}

// Match reports whether r satisfies q.
func (q Query) Match(r *Record) bool {
	if q.Table != "" && r.Table != q.Table {
		return false
	}
	if q.OrderID != 0 && r.OrderID != q.OrderID {
		return false
	}
	if !q.From.IsZero() && r.ArchivedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.ArchivedAt.After(q.To) {
		return false
	}
	return true
}

// Filter returns clones of the records matching q, newest first.
func Filter(records []*Record, q Query) []*Record {
	out := make([]*Record, 0)
	for _, r := range records {
		if q.Match(r) {
			out = append(out, r.Clone())
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders records by ArchivedAt descending, then by ID.
func SortNewestFirst(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.ArchivedAt.Equal(b.ArchivedAt) {
			return a.ArchivedAt.After(b.ArchivedAt)
		}
		return a.ID.String() > b.ID.String()
	})
}
