package order

import "github.com/xraph/tab/types"

// Line names a quantity of an existing item, matched by (ID, Name).
type Line struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// Take removes the requested quantities from n and returns what was
// actually removed, as fresh lines, with its value. Requests that match no
// line are skipped. A request larger than what remains takes what remains,
// walking further lines with the same (ID, Name) before giving up. Lines
// reduced to zero are dropped.
func (n *Note) Take(lines []Line) ([]Item, types.Money) {
	removed := types.Zero(n.Total.Currency)
	var taken []Item

	for _, req := range lines {
		want := req.Quantity
		for i := range n.Items {
			if want <= 0 {
				break
			}
			it := &n.Items[i]
			if it.ID != req.ID || it.Name != req.Name || it.Quantity == 0 {
				continue
			}
			q := min(want, it.Quantity)
			it.Quantity -= q
			want -= q

			out := *it
			out.Quantity = q
			taken = append(taken, out)
			if removed.Currency == "" {
				removed.Currency = it.UnitPrice.Currency
			}
			removed = removed.Add(out.Subtotal())
		}
	}

	if len(taken) > 0 {
		kept := n.Items[:0]
		for _, it := range n.Items {
			if it.Quantity > 0 {
				kept = append(kept, it)
			}
		}
		n.Items = kept
		n.Recompute()
	}
	return taken, removed
}

// Available returns the quantity n currently holds for (itemID, name).
func (n *Note) Available(itemID int64, name string) (int64, *Item) {
	var (
		total int64
		first *Item
	)
	for i := range n.Items {
		it := &n.Items[i]
		if it.ID == itemID && it.Name == name {
			total += it.Quantity
			if first == nil {
				first = it
			}
		}
	}
	return total, first
}
