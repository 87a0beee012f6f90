package tab

import (
	"context"
	"strings"
	"time"

	"github.com/xraph/tab/id"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

// Directives ask a transfer to create its destination.
type Directives struct {
	// CreateTable opens a brand-new order on this table.
	CreateTable string `json:"create_table,omitempty"`
	// CreateNote puts the items into a new sub-note of the destination.
	CreateNote bool `json:"create_note,omitempty"`
	// NoteName names the created sub-note; defaults to the source note name.
	NoteName string `json:"note_name,omitempty"`
}

// TransferRequest moves item quantities from one note to another.
type TransferRequest struct {
	FromTable   string       `json:"from_table"`
	FromOrderID int64        `json:"from_order_id,omitempty"`
	FromNoteID  string       `json:"from_note_id,omitempty"`
	ToTable     string       `json:"to_table,omitempty"`
	ToOrderID   int64        `json:"to_order_id,omitempty"`
	ToNoteID    string       `json:"to_note_id,omitempty"`
	Items       []order.Line `json:"items"`
	Directives  Directives   `json:"directives"`
}

// TransferResult reports both sides of a transfer. FromOrder and ToOrder are
// the same order when items moved between two of its notes.
type TransferResult struct {
	FromOrder        *order.Order `json:"from_order"`
	ToOrder          *order.Order `json:"to_order,omitempty"`
	ToNoteID         string       `json:"to_note_id,omitempty"`
	TransferredTotal types.Money  `json:"transferred_total"`
	Moved            []order.Item `json:"moved"`
	CreatedOrder     bool         `json:"created_order"`
	CreatedNote      bool         `json:"created_note"`
}

// Transfer moves items between notes, orders and tables. Requested lines
// that match nothing in the source note are skipped; quantities larger than
// what remains move what remains. The destination is resolved completely
// before anything is mutated.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	const op = "transfer"

	if err := validateTransfer(op, req); err != nil {
		return nil, err
	}

	for range maxRelock {
		srcTable, dstTable, err := l.transferTables(op, req)
		if err != nil {
			return nil, err
		}

		shards, unlock := l.lockTables(srcTable, dstTable)
		res, events, retry, err := l.transferLocked(op, req, shards[srcTable], shards[dstTable], l.now())
		unlock()

		if retry {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			l.markDirty(dirtyOrders)
			l.publish(ctx, events...)
		}

		l.logger.Debug("items transferred",
			"from_order_id", res.FromOrder.ID,
			"to_note_id", res.ToNoteID,
			"total", res.TransferredTotal.String(),
			"created_order", res.CreatedOrder,
		)
		return res, nil
	}
	return nil, &Error{Kind: KindConflict, Op: op, Message: "orders keep moving between tables"}
}

func validateTransfer(op string, req TransferRequest) error {
	if strings.TrimSpace(req.FromTable) == "" && req.FromOrderID == 0 {
		return invalid(op, ValidationError{Field: "from_table", Message: "source table or order is required"})
	}
	if len(req.Items) == 0 {
		return invalid(op, ValidationError{Field: "items", Message: "at least one item is required"})
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return invalid(op, ValidationError{Field: "items.quantity", Message: "must be positive"})
		}
	}
	return nil
}

// transferTables returns the tables a transfer has to lock.
func (l *Ledger) transferTables(op string, req TransferRequest) (string, string, error) {
	src := req.FromTable
	if req.FromOrderID != 0 {
		table, ok := l.tableOf(req.FromOrderID)
		if !ok {
			return "", "", notFound(op, ErrOrderNotFound, "order %d not found", req.FromOrderID)
		}
		src = table
	}

	dst := src
	switch {
	case req.Directives.CreateTable != "":
		dst = req.Directives.CreateTable
	case req.ToOrderID != 0:
		table, ok := l.tableOf(req.ToOrderID)
		if !ok {
			return "", "", notFound(op, ErrOrderNotFound, "destination order %d not found", req.ToOrderID)
		}
		dst = table
	case req.ToTable != "":
		dst = req.ToTable
	}
	return src, dst, nil
}

// transferLocked runs a transfer with both table shards write-locked. retry
// is set when an order moved to another table before the locks were taken.
func (l *Ledger) transferLocked(op string, req TransferRequest, srcShard, dstShard *tableShard, now time.Time) (*TransferResult, []event, bool, error) {
	// Source
	var src *order.Order
	if req.FromOrderID != 0 {
		if src = srcShard.find(req.FromOrderID); src == nil {
			return nil, nil, l.moved(req.FromOrderID, srcShard.table), notFound(op, ErrOrderNotFound, "order %d not found", req.FromOrderID)
		}
		if req.FromTable != "" && req.FromTable != src.Table {
			return nil, nil, false, notFound(op, ErrOrderNotFound, "order %d is not on table %q", src.ID, req.FromTable)
		}
	} else if src = srcShard.primary(); src == nil {
		return nil, nil, false, notFound(op, ErrTableNotFound, "table %q has no active orders", srcShard.table)
	}
	srcNote := src.Note(req.FromNoteID)
	if srcNote == nil {
		return nil, nil, false, notFound(op, ErrNoteNotFound, "note %q not found in order %d", req.FromNoteID, src.ID)
	}

	// Destination order; nil means a new order on dstShard.
	d := req.Directives
	var dst *order.Order
	switch {
	case d.CreateTable != "":
	case req.ToOrderID != 0:
		if dst = dstShard.find(req.ToOrderID); dst == nil {
			return nil, nil, l.moved(req.ToOrderID, dstShard.table), notFound(op, ErrOrderNotFound, "destination order %d not found", req.ToOrderID)
		}
	case req.ToTable != "":
		dst = dstShard.primary()
	default:
		dst = src
	}

	// Destination note; nil means a new sub-note named newNoteName.
	var (
		dstNote     *order.Note
		newNoteName string
	)
	switch {
	case d.CreateNote:
		newNoteName = d.NoteName
		if newNoteName == "" {
			newNoteName = srcNote.Name
		}
	case !srcNote.IsMain() && req.ToNoteID == "" && d.CreateTable == "" && dst != src:
		// A guest's tab keeps its identity on the other order. Within one
		// order the items land on the main note instead.
		newNoteName = srcNote.Name
	default:
		if dst != nil {
			dstNote = dst.Note(req.ToNoteID)
		} else if req.ToNoteID == "" || req.ToNoteID == order.MainNoteID {
			dstNote = &order.Note{ID: order.MainNoteID}
		}
		if dstNote == nil {
			return nil, nil, false, notFound(op, ErrNoteNotFound, "destination note %q not found", req.ToNoteID)
		}
		if dstNote == srcNote {
			return nil, nil, false, invalidf(op, "source and destination are the same note")
		}
	}

	res := &TransferResult{TransferredTotal: types.Zero(l.currency)}
	if !anyAvailable(srcNote, req.Items) {
		res.FromOrder = src.Clone()
		res.ToOrder = dst.Clone()
		if dstNote != nil {
			res.ToNoteID = dstNote.ID
		}
		return res, nil, false, nil
	}

	// Mutation starts here; nothing below fails.
	taken, total := srcNote.Take(req.Items)

	var events []event
	if dst == nil {
		dst = l.newOrder(dstShard.table, src.Server, 1, now)
		dstShard.add(dst)
		l.indexOrder(dst.ID, dst.Table)
		res.CreatedOrder = true
		if dstNote != nil {
			dstNote = dst.MainNote
		}
	}
	if dstNote == nil {
		dstNote = l.newNote(id.NewNoteID().String(), newNoteName, srcNote.Covers, now)
		dst.AddSubNote(dstNote)
		res.CreatedNote = true
	}
	dstNote.Append(taken)
	// Pruned after the append so an empty destination sub-note survives.
	src.PruneEmptySubNotes()

	src.Recompute()
	src.Touch(now)
	events = append(events, orderEvent(evOrderUpdated, src))
	if dst != src {
		dst.Recompute()
		dst.Touch(now)
		if res.CreatedOrder {
			events = append(events,
				orderEvent(evOrderCreated, dst),
				event{kind: evTableCreated, table: dst.Table, order: dst.Clone()},
			)
		} else {
			events = append(events, orderEvent(evOrderUpdated, dst))
		}
	}

	res.FromOrder = src.Clone()
	res.ToOrder = dst.Clone()
	res.ToNoteID = dstNote.ID
	res.TransferredTotal = total
	res.Moved = taken
	return res, events, false, nil
}

// moved reports whether orderID is now indexed under a table other than
// table, meaning the caller locked a stale shard.
func (l *Ledger) moved(orderID int64, table string) bool {
	now, ok := l.tableOf(orderID)
	return ok && now != table
}

func anyAvailable(n *order.Note, lines []order.Line) bool {
	for _, line := range lines {
		if qty, _ := n.Available(line.ID, line.Name); qty > 0 {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────
// Table moves
// ──────────────────────────────────────────────────

// MoveTable reassigns every active order of a table to another table. The
// orders keep their notes untouched.
func (l *Ledger) MoveTable(ctx context.Context, from, to string) ([]*order.Order, error) {
	const op = "move_table"

	if from == "" || to == "" {
		return nil, invalid(op, ValidationError{Field: "table", Message: "source and destination tables are required"})
	}
	if from == to {
		return nil, invalidf(op, "table %q cannot move onto itself", from)
	}

	shards, unlock := l.lockTables(from, to)
	src, dst := shards[from], shards[to]
	if len(src.orders) == 0 {
		unlock()
		return nil, notFound(op, ErrTableNotFound, "table %q has no active orders", from)
	}

	now := l.now()
	moved := src.orders
	src.orders = nil
	for _, o := range moved {
		o.Table = to
		o.Touch(now)
		dst.add(o)
		l.indexOrder(o.ID, to)
	}

	out := cloneOrders(moved)
	events := []event{{kind: evTableTransferred, table: from, target: to, orders: cloneOrders(moved)}}
	for _, o := range moved {
		events = append(events, orderEvent(evOrderUpdated, o))
	}
	unlock()

	l.markDirty(dirtyOrders)
	l.publish(ctx, events...)

	l.logger.Info("table moved", "from", from, "to", to, "orders", len(out))
	return out, nil
}

// ReassignServer hands every active order of a table to another server.
func (l *Ledger) ReassignServer(ctx context.Context, table, server string) ([]*order.Order, error) {
	const op = "reassign_server"

	if table == "" {
		return nil, invalid(op, ValidationError{Field: "table", Message: "is required"})
	}
	if strings.TrimSpace(server) == "" {
		return nil, invalid(op, ValidationError{Field: "server", Message: "is required"})
	}

	s := l.existingShard(table)
	if s == nil {
		return nil, notFound(op, ErrTableNotFound, "table %q has no active orders", table)
	}
	s.mu.Lock()
	if len(s.orders) == 0 {
		s.mu.Unlock()
		return nil, notFound(op, ErrTableNotFound, "table %q has no active orders", table)
	}

	now := l.now()
	for _, o := range s.orders {
		o.Server = server
		o.Touch(now)
	}
	out := cloneOrders(s.orders)
	events := []event{{kind: evServerTransferred, table: table, target: server, orders: cloneOrders(s.orders)}}
	for _, o := range s.orders {
		events = append(events, orderEvent(evOrderUpdated, o))
	}
	s.mu.Unlock()

	l.markDirty(dirtyOrders)
	l.publish(ctx, events...)
	return out, nil
}
