package api

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/tab"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/types"
)

// itemDTO carries a menu line. Price is in major units ("12.50" or 12.5).
type itemDTO struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type submitOrderRequest struct {
	Table    string    `json:"table"`
	Server   string    `json:"server"`
	Covers   int       `json:"covers"`
	Comment  string    `json:"comment"`
	NoteID   string    `json:"note_id"`
	NoteName string    `json:"note_name"`
	Items    []itemDTO `json:"items"`
}

type addNoteRequest struct {
	Name   string    `json:"name"`
	Covers int       `json:"covers"`
	Items  []itemDTO `json:"items"`
}

type appendItemsRequest struct {
	Items []itemDTO `json:"items"`
}

type settleRequest struct {
	Items []order.Line `json:"items"`
}

type moveTableRequest struct {
	To string `json:"to"`
}

type assignServerRequest struct {
	Server string `json:"server"`
}

type createBillRequest struct {
	Table string `json:"table"`
}

type payBillRequest struct {
	Items []bill.Line     `json:"items"`
	Tip   decimal.Decimal `json:"tip"`
}

type serviceRequestBody struct {
	Table string `json:"table"`
	Type  string `json:"type"`
}

type addNoteResponse struct {
	Note  *order.Note  `json:"note"`
	Order *order.Order `json:"order"`
}

type errorResponse struct {
	Error string   `json:"error"`
	Kind  tab.Kind `json:"kind"`
}

func toItems(in []itemDTO, currency string) []order.Item {
	items := make([]order.Item, 0, len(in))
	for _, it := range in {
		items = append(items, order.Item{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: types.FromDecimal(it.Price, currency),
			Quantity:  it.Quantity,
		})
	}
	return items
}
