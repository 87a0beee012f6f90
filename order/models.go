// Package order defines the note tree of a table's order: Items held by
// Notes, Notes held by an Order.
package order

import (
	"time"

	"github.com/xraph/tab/types"
)

// MainNoteID is the id of every order's main note.
const MainNoteID = "main"

// Status is the kitchen/lifecycle status of an order.
type Status string

const (
	StatusNew       Status = "new"
	StatusProcessed Status = "processed"
	StatusArchived  Status = "archived"
)

// Item is one line of a note. A line whose quantity drops to zero is
// removed from its note.
type Item struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	UnitPrice types.Money `json:"unit_price"`
	Quantity  int64       `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (it Item) Subtotal() types.Money {
	return it.UnitPrice.Multiply(it.Quantity)
}

// Note is a named tab inside an order: the main note or a guest sub-note.
type Note struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Covers    int         `json:"covers"`
	Items     []Item      `json:"items"`
	Total     types.Money `json:"total"`
	Paid      bool        `json:"paid"`
	CreatedAt time.Time   `json:"created_at"`
	// Settled accumulates the lines paid off this note.
	Settled []Item `json:"settled,omitempty"`
}

// IsMain reports whether n is its order's main note.
func (n *Note) IsMain() bool { return n.ID == MainNoteID }

// Recompute sets Total to the sum of the item subtotals.
func (n *Note) Recompute() {
	total := types.Zero(n.Total.Currency)
	for _, it := range n.Items {
		if total.Currency == "" {
			total.Currency = it.UnitPrice.Currency
		}
		total = total.Add(it.Subtotal())
	}
	n.Total = total.ClampZero()
}

// Append adds items as fresh lines and recomputes the total.
func (n *Note) Append(items []Item) {
	n.Items = append(n.Items, items...)
	n.Recompute()
}

// Clone returns a deep copy of n.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Items = append([]Item(nil), n.Items...)
	cp.Settled = append([]Item(nil), n.Settled...)
	return &cp
}

// Order is one table's session: a main note plus guest sub-notes.
type Order struct {
	types.Entity
	ID                   int64       `json:"id"`
	Table                string      `json:"table"`
	Server               string      `json:"server,omitempty"`
	Covers               int         `json:"covers"`
	Status               Status      `json:"status"`
	ConsumptionConfirmed bool        `json:"consumption_confirmed"`
	Comment              string      `json:"comment,omitempty"`
	MainNote             *Note       `json:"main_note"`
	SubNotes             []*Note     `json:"sub_notes"`
	Total                types.Money `json:"total"`
	ArchivedAt           *time.Time  `json:"archived_at,omitempty"`
}

// Note returns the note with the given id; "" and "main" name the main note.
func (o *Order) Note(noteID string) *Note {
	if noteID == "" || noteID == MainNoteID {
		return o.MainNote
	}
	for _, n := range o.SubNotes {
		if n.ID == noteID {
			return n
		}
	}
	return nil
}

// Notes returns the main note followed by the sub-notes.
func (o *Order) Notes() []*Note {
	out := make([]*Note, 0, len(o.SubNotes)+1)
	out = append(out, o.MainNote)
	return append(out, o.SubNotes...)
}

// AddSubNote appends a sub-note.
func (o *Order) AddSubNote(n *Note) {
	o.SubNotes = append(o.SubNotes, n)
}

// RemoveSubNote drops the sub-note with the given id and returns it.
func (o *Order) RemoveSubNote(noteID string) *Note {
	for i, n := range o.SubNotes {
		if n.ID == noteID {
			o.SubNotes = append(o.SubNotes[:i:i], o.SubNotes[i+1:]...)
			return n
		}
	}
	return nil
}

// PruneEmptySubNotes drops sub-notes without items and returns their ids.
func (o *Order) PruneEmptySubNotes() []string {
	var pruned []string
	kept := o.SubNotes[:0:0]
	for _, n := range o.SubNotes {
		if len(n.Items) == 0 {
			pruned = append(pruned, n.ID)
			continue
		}
		kept = append(kept, n)
	}
	o.SubNotes = kept
	return pruned
}

// Recompute recomputes every note and then the order total, bottom-up.
func (o *Order) Recompute() {
	total := types.Zero(o.Total.Currency)
	for _, n := range o.Notes() {
		n.Recompute()
		if total.Currency == "" {
			total.Currency = n.Total.Currency
		}
		if n.Total.Currency == "" {
			n.Total.Currency = total.Currency
		}
		total = total.Add(n.Total)
	}
	o.Total = total
}

// Settled reports whether the order has reached its terminal state:
// an empty main note total and no sub-notes.
func (o *Order) Settled() bool {
	return o.MainNote.Total.IsZero() && len(o.SubNotes) == 0
}

// Open reports whether new submissions for the table may join this order.
func (o *Order) Open() bool {
	return !o.ConsumptionConfirmed && o.Status != StatusArchived
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.MainNote = o.MainNote.Clone()
	cp.SubNotes = make([]*Note, len(o.SubNotes))
	for i, n := range o.SubNotes {
		cp.SubNotes[i] = n.Clone()
	}
	if o.ArchivedAt != nil {
		t := *o.ArchivedAt
		cp.ArchivedAt = &t
	}
	return &cp
}

// ListOpts filters active order listings.
type ListOpts struct {
	Table string
	// OpenOnly excludes consumption-confirmed orders.
	OpenOnly bool
}
