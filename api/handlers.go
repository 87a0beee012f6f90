package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/tab"
	"github.com/xraph/tab/archive"
	"github.com/xraph/tab/bill"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/request"
	"github.com/xraph/tab/types"
)

// ──────────────────────────────────────────────────
// Orders and notes
// ──────────────────────────────────────────────────

func (h *Handler) submitOrder(c *gin.Context) {
	var body submitOrderRequest
	if !bindJSON(c, &body) {
		return
	}
	o, err := h.ledger.Submit(c.Request.Context(), tab.SubmitRequest{
		Table:    body.Table,
		Items:    toItems(body.Items, h.ledger.Currency()),
		NoteID:   body.NoteID,
		NoteName: body.NoteName,
		Server:   body.Server,
		Covers:   body.Covers,
		Comment:  body.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.ledger.ActiveOrders(c.Request.Context(), order.ListOpts{
		Table:    c.Query("table"),
		OpenOnly: c.Query("open") == "true",
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.ledger.Order(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) markProcessed(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.ledger.MarkProcessed(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) confirmConsumption(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.ledger.ConfirmConsumption(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) addNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body addNoteRequest
	if !bindJSON(c, &body) {
		return
	}
	n, o, err := h.ledger.AddSubNote(c.Request.Context(), id, body.Name, body.Covers,
		toItems(body.Items, h.ledger.Currency()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, addNoteResponse{Note: n, Order: o})
}

func (h *Handler) appendItems(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body appendItemsRequest
	if !bindJSON(c, &body) {
		return
	}
	o, err := h.ledger.AppendItems(c.Request.Context(), id, c.Param("note"),
		toItems(body.Items, h.ledger.Currency()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) settle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body settleRequest
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.ledger.Settle(c.Request.Context(), id, c.Param("note"), body.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ──────────────────────────────────────────────────
// Transfers and tables
// ──────────────────────────────────────────────────

func (h *Handler) transfer(c *gin.Context) {
	var body tab.TransferRequest
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.ledger.Transfer(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listTables(c *gin.Context) {
	tables, err := h.ledger.Tables(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (h *Handler) moveTable(c *gin.Context) {
	var body moveTableRequest
	if !bindJSON(c, &body) {
		return
	}
	orders, err := h.ledger.MoveTable(c.Request.Context(), c.Param("table"), body.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) assignServer(c *gin.Context) {
	var body assignServerRequest
	if !bindJSON(c, &body) {
		return
	}
	orders, err := h.ledger.ReassignServer(c.Request.Context(), c.Param("table"), body.Server)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ──────────────────────────────────────────────────
// Bills
// ──────────────────────────────────────────────────

func (h *Handler) createBill(c *gin.Context) {
	var body createBillRequest
	if !bindJSON(c, &body) {
		return
	}
	b, err := h.ledger.CreateBill(c.Request.Context(), body.Table)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) listBills(c *gin.Context) {
	bills, err := h.ledger.Bills(c.Request.Context(), bill.ListOpts{
		Table: c.Query("table"),
		Open:  c.Query("open") == "true",
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

func (h *Handler) getBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.ledger.Bill(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) payBill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body payBillRequest
	if !bindJSON(c, &body) {
		return
	}
	tip := types.FromDecimal(body.Tip, h.ledger.Currency())
	res, err := h.ledger.PayBill(c.Request.Context(), id, body.Items, tip)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ──────────────────────────────────────────────────
// Archive
// ──────────────────────────────────────────────────

func (h *Handler) listArchive(c *gin.Context) {
	q := archive.Query{Table: c.Query("table")}
	if v := c.Query("order_id"); v != "" {
		oid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "order_id: " + errBadID.Error(), Kind: tab.KindInvalidRequest})
			return
		}
		q.OrderID = oid
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		v := c.Query(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: p.key + ": expected RFC 3339 time", Kind: tab.KindInvalidRequest})
			return
		}
		*p.dst = t
	}

	records, err := h.ledger.Archive(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ──────────────────────────────────────────────────
// Service requests
// ──────────────────────────────────────────────────

func (h *Handler) requestService(c *gin.Context) {
	var body serviceRequestBody
	if !bindJSON(c, &body) {
		return
	}
	r, err := h.ledger.RequestService(c.Request.Context(), body.Table, body.Type)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) listServiceRequests(c *gin.Context) {
	reqs, err := h.ledger.ServiceRequests(c.Request.Context(), request.ListOpts{
		Table:  c.Query("table"),
		Status: request.Status(c.Query("status")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) completeServiceRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.ledger.CompleteServiceRequest(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
