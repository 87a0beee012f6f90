package tab

import (
	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/types"
)

// Re-export common types for convenience so users don't have to import every package.

// Money is re-exported from types package.
type Money = types.Money

type (
	Item           = order.Item
	Line           = order.Line
	Note           = order.Note
	Order          = order.Order
	Bill           = bill.Bill
	Payment        = bill.Payment
	BillLine       = bill.Line
	ArchiveRecord  = archive.Record
	ArchiveQuery   = archive.Query
	ServiceRequest = request.ServiceRequest
)

// Re-export Money constructors
var (
	EUR        = types.EUR
	USD        = types.USD
	GBP        = types.GBP
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMoney = types.ParseMoney
)

// MainNoteID is the id of every order's main note.
const MainNoteID = order.MainNoteID
