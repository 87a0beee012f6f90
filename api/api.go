// Package api exposes the tab ledger over HTTP with gin.
//
// Handlers are thin: they bind JSON, convert decimal prices to minor units
// in the ledger currency and map ledger error kinds to status codes.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xraph/tab"
)

// Handler serves the ledger routes.
type Handler struct {
	ledger *tab.Ledger
	logger *slog.Logger
}

// New creates a Handler. A nil logger falls back to slog.Default.
func New(l *tab.Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: l, logger: logger}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	orders := r.Group("/orders")
	orders.POST("", h.submitOrder)
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)
	orders.POST("/:id/process", h.markProcessed)
	orders.POST("/:id/confirm", h.confirmConsumption)
	orders.POST("/:id/notes", h.addNote)
	orders.POST("/:id/notes/:note/items", h.appendItems)
	orders.POST("/:id/notes/:note/settle", h.settle)

	r.POST("/transfers", h.transfer)

	tables := r.Group("/tables")
	tables.GET("", h.listTables)
	tables.POST("/:table/move", h.moveTable)
	tables.POST("/:table/server", h.assignServer)

	bills := r.Group("/bills")
	bills.POST("", h.createBill)
	bills.GET("", h.listBills)
	bills.GET("/:id", h.getBill)
	bills.POST("/:id/payments", h.payBill)

	r.GET("/archive", h.listArchive)

	requests := r.Group("/service-requests")
	requests.POST("", h.requestService)
	requests.GET("", h.listServiceRequests)
	requests.POST("/:id/complete", h.completeServiceRequest)
}

// Router builds a gin engine with the request-id and logging middleware and
// the ledger routes mounted under basePath.
func (h *Handler) Router(basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(h.logger))
	r.GET("/healthz", func(c *gin.Context) {
		if err := h.ledger.Store().Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.Register(r.Group(basePath))
	return r
}

var errBadID = errors.New("id must be a positive integer")

func pathID(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: name + ": " + errBadID.Error(),
			Kind:  tab.KindInvalidRequest,
		})
		return 0, false
	}
	return v, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: "invalid json: " + err.Error(),
			Kind:  tab.KindInvalidRequest,
		})
		return false
	}
	return true
}

func statusFor(kind tab.Kind) int {
	switch kind {
	case tab.KindInvalidRequest:
		return http.StatusBadRequest
	case tab.KindNotFound:
		return http.StatusNotFound
	case tab.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := tab.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("api: request failed",
			"request_id", c.GetString(requestIDKey),
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Kind: kind})
}
