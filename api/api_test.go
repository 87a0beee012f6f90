package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/xraph/tab"
	"github.com/xraph/tab/order"
	"github.com/xraph/tab/store/memory"
)

func newTestRouter(t *testing.T) (*gin.Engine, *tab.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := tab.New(memory.New(), tab.WithLogger(logger))
	return New(l, logger).Router("/v1"), l
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

const twoSoups = `{"table":"5","server":"ana","covers":2,"items":[{"id":1,"name":"Soup","price":"12.50","quantity":2}]}`

func TestSubmitAndGetOrder(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/orders", twoSoups)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	o := decode[order.Order](t, w)
	if o.Total.Amount != 2500 || o.Total.Currency != "eur" {
		t.Fatalf("total: %+v", o.Total)
	}

	w = do(t, r, http.MethodGet, "/v1/orders/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if got := decode[order.Order](t, w); got.Table != "5" || got.Server != "ana" {
		t.Errorf("order: %+v", got)
	}

	w = do(t, r, http.MethodGet, "/v1/orders?table=5", "")
	if list := decode[[]order.Order](t, w); len(list) != 1 {
		t.Errorf("list: %d orders", len(list))
	}
}

func TestNoteSettleArchivesOrder(t *testing.T) {
	r, l := newTestRouter(t)
	do(t, r, http.MethodPost, "/v1/orders", twoSoups)

	w := do(t, r, http.MethodPost, "/v1/orders/1/notes",
		`{"name":"Guest","items":[{"id":2,"name":"Wine","price":6,"quantity":1}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add note status=%d body=%s", w.Code, w.Body.String())
	}
	added := decode[addNoteResponse](t, w)
	if added.Order.Total.Amount != 3100 {
		t.Fatalf("order total: %d", added.Order.Total.Amount)
	}

	w = do(t, r, http.MethodPost, "/v1/orders/1/notes/"+added.Note.ID+"/settle",
		`{"items":[{"id":2,"name":"Wine","quantity":1}]}`)
	if res := decode[tab.SettleResult](t, w); !res.NoteClosed || res.OrderArchived {
		t.Fatalf("settle guest: %+v", res)
	}

	w = do(t, r, http.MethodPost, "/v1/orders/1/notes/main/settle",
		`{"items":[{"id":1,"name":"Soup","quantity":2}]}`)
	if res := decode[tab.SettleResult](t, w); !res.OrderArchived {
		t.Fatalf("settle main: %+v", res)
	}

	if w = do(t, r, http.MethodGet, "/v1/orders/1", ""); w.Code != http.StatusNotFound {
		t.Errorf("archived order still active: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/v1/archive?order_id=1", "")
	if recs := decode[[]map[string]any](t, w); len(recs) != 2 {
		t.Errorf("archive records: %d", len(recs))
	}
	if active, _ := l.ActiveOrders(t.Context(), order.ListOpts{}); len(active) != 0 {
		t.Errorf("active orders: %d", len(active))
	}
}

func TestBillPayment(t *testing.T) {
	r, _ := newTestRouter(t)
	do(t, r, http.MethodPost, "/v1/orders", twoSoups)

	w := do(t, r, http.MethodPost, "/v1/bills", `{"table":"5"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create bill status=%d body=%s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/v1/bills/1/payments",
		`{"items":[{"order_id":1,"item_id":1,"name":"Soup","quantity":1}],"tip":"2.00"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("pay status=%d body=%s", w.Code, w.Body.String())
	}
	res := decode[tab.PayResult](t, w)
	if res.Paid.Amount != 1450 || res.Remaining.Amount != 1050 {
		t.Errorf("paid %d remaining %d", res.Paid.Amount, res.Remaining.Amount)
	}

	w = do(t, r, http.MethodGet, "/v1/bills?open=true", "")
	if views := decode[[]tab.BillView](t, w); len(views) != 1 {
		t.Errorf("open bills: %d", len(views))
	}
}

func TestErrorStatus(t *testing.T) {
	r, _ := newTestRouter(t)
	do(t, r, http.MethodPost, "/v1/orders", twoSoups)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   tab.Kind
	}{
		{"missing order", http.MethodGet, "/v1/orders/99", "", http.StatusNotFound, tab.KindNotFound},
		{"bad id", http.MethodGet, "/v1/orders/abc", "", http.StatusBadRequest, tab.KindInvalidRequest},
		{"bad json", http.MethodPost, "/v1/orders", "{", http.StatusBadRequest, tab.KindInvalidRequest},
		{"missing table", http.MethodPost, "/v1/orders", `{"items":[{"id":1,"name":"x","price":1,"quantity":1}]}`, http.StatusBadRequest, tab.KindInvalidRequest},
		{"missing note", http.MethodPost, "/v1/orders/1/notes/nope/items", `{"items":[{"id":1,"name":"x","price":1,"quantity":1}]}`, http.StatusNotFound, tab.KindNotFound},
		{"bill for empty table", http.MethodPost, "/v1/bills", `{"table":"9"}`, http.StatusNotFound, tab.KindNotFound},
		{"inverted archive range", http.MethodGet, "/v1/archive?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", "", http.StatusBadRequest, tab.KindInvalidRequest},
		{"bad archive time", http.MethodGet, "/v1/archive?from=yesterday", "", http.StatusBadRequest, tab.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if got := decode[errorResponse](t, w); got.Kind != tt.kind {
				t.Errorf("kind=%q", got.Kind)
			}
		})
	}
}

func TestTransferAndTables(t *testing.T) {
	r, _ := newTestRouter(t)
	do(t, r, http.MethodPost, "/v1/orders", twoSoups)

	w := do(t, r, http.MethodPost, "/v1/transfers",
		`{"from_table":"5","to_table":"8","items":[{"id":1,"name":"Soup","quantity":1}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("transfer status=%d body=%s", w.Code, w.Body.String())
	}
	res := decode[tab.TransferResult](t, w)
	if !res.CreatedOrder || res.TransferredTotal.Amount != 1250 {
		t.Errorf("transfer: %+v", res)
	}

	w = do(t, r, http.MethodGet, "/v1/tables", "")
	if tables := decode[[]tab.TableSummary](t, w); len(tables) != 2 {
		t.Errorf("tables: %+v", tables)
	}

	w = do(t, r, http.MethodPost, "/v1/tables/8/server", `{"server":"luis"}`)
	if orders := decode[[]order.Order](t, w); len(orders) != 1 || orders[0].Server != "luis" {
		t.Errorf("server reassignment: %+v", orders)
	}
}

func TestServiceRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/service-requests", `{"table":"3","type":"water"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w = do(t, r, http.MethodPost, "/v1/service-requests/1/complete", ""); w.Code != http.StatusOK {
		t.Fatalf("complete status=%d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/v1/service-requests?status=processed", "")
	if list := decode[[]map[string]any](t, w); len(list) != 1 {
		t.Errorf("processed requests: %d", len(list))
	}
}

func TestRequestIDHeader(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("propagated id: %q", got)
	}

	w = do(t, r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Header().Get("X-Request-ID") == "" {
		t.Errorf("status=%d id=%q", w.Code, w.Header().Get("X-Request-ID"))
	}
}
