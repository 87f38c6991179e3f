package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lixing-Zhang/account-storefront/internal/idempotency"
	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/repository"
	"github.com/Lixing-Zhang/account-storefront/internal/service"
	"github.com/Lixing-Zhang/account-storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type orderEnvelope struct {
	Success bool         `json:"success"`
	Data    models.Order `json:"data"`
	Message string       `json:"message"`
}

func newOrderRouter() http.Handler {
	svc := service.NewOrderService(
		repository.NewInMemoryProductRepository(),
		repository.NewInMemoryOrderRepository(),
		logger.Discard(),
	)
	handler := NewOrderHandler(svc, logger.Discard())

	r := chi.NewRouter()
	r.Post("/api/orders", handler.CreateOrder)
	r.Get("/api/orders", handler.ListOrders)
	r.Get("/api/orders/{orderId}", handler.GetOrder)
	r.Post("/api/orders/{orderId}/payment", handler.StartPayment)
	r.Patch("/api/orders/{orderId}/status", handler.UpdateStatus)
	return r
}

// orderBody is product 1 (0.278) from vendor 1, 44 accounts = 12.232
func orderBody() models.OrderRequest {
	return models.OrderRequest{
		ProductID:     1,
		VendorID:      1,
		Email:         "buyer@example.com",
		Quantity:      44,
		PaymentMethod: models.DefaultPaymentMethod,
		TotalPrice:    decimal.RequireFromString("12.232"),
		Status:        models.OrderStatusPending,
	}
}

func postOrder(t *testing.T, r http.Handler, body interface{}, key string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(idempotency.Header, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) orderEnvelope {
	t.Helper()

	var resp orderEnvelope
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(r *models.OrderRequest)
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "successful order",
			mutate:     func(r *models.OrderRequest) {},
			wantStatus: http.StatusCreated,
		},
		{
			name:        "unknown product",
			mutate:      func(r *models.OrderRequest) { r.ProductID = 999 },
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid product",
		},
		{
			name:        "out of stock product",
			mutate:      func(r *models.OrderRequest) { r.ProductID = 2 },
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Product is out of stock",
		},
		{
			name:        "zero quantity",
			mutate:      func(r *models.OrderRequest) { r.Quantity = 0 },
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Quantity must be at least 1",
		},
		{
			name:        "bad email",
			mutate:      func(r *models.OrderRequest) { r.Email = "not-an-email" },
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid email format",
		},
		{
			name: "below minimum",
			mutate: func(r *models.OrderRequest) {
				r.Quantity = 10
				r.TotalPrice = decimal.RequireFromString("2.78")
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Minimum order amount is $12",
		},
		{
			name:        "stale total",
			mutate:      func(r *models.OrderRequest) { r.TotalPrice = decimal.RequireFromString("12.00") },
			wantStatus:  http.StatusConflict,
			wantMessage: "Price has changed. Please review your order and try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := orderBody()
			tt.mutate(&body)

			w := postOrder(t, newOrderRouter(), body, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			resp := decodeOrder(t, w)
			if tt.wantMessage != "" {
				if resp.Success || resp.Message != tt.wantMessage {
					t.Errorf("expected failure %q, got success=%v message=%q", tt.wantMessage, resp.Success, resp.Message)
				}
				return
			}
			if !resp.Success || resp.Data.ID == "" {
				t.Fatalf("expected created order, got %+v", resp)
			}
			if resp.Data.Status != models.OrderStatusPending {
				t.Errorf("expected pending status, got %s", resp.Data.Status)
			}
			if !resp.Data.TotalPrice.Equal(decimal.RequireFromString("12.232")) {
				t.Errorf("expected total 12.232, got %s", resp.Data.TotalPrice)
			}
		})
	}
}

func TestOrderHandler_CreateOrder_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	newOrderRouter().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestOrderHandler_CreateOrder_Replay(t *testing.T) {
	r := newOrderRouter()

	first := postOrder(t, r, orderBody(), "checkout-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	original := decodeOrder(t, first)

	second := postOrder(t, r, orderBody(), "checkout-1")
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected Idempotent-Replayed header")
	}
	if replay := decodeOrder(t, second); replay.Data.ID != original.Data.ID {
		t.Errorf("expected replayed order %s, got %s", original.Data.ID, replay.Data.ID)
	}

	changed := orderBody()
	changed.Quantity = 100
	changed.TotalPrice = decimal.RequireFromString("27.8")
	reused := postOrder(t, r, changed, "checkout-1")
	if reused.Code != http.StatusConflict {
		t.Errorf("expected 409 for a key reused with another order, got %d", reused.Code)
	}

	bad := postOrder(t, r, orderBody(), strings.Repeat("k", idempotency.MaxKeyLength+1))
	if bad.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized key, got %d", bad.Code)
	}
}

func TestOrderHandler_GetOrder(t *testing.T) {
	r := newOrderRouter()
	created := decodeOrder(t, postOrder(t, r, orderBody(), ""))

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"existing order", created.Data.ID, http.StatusOK},
		{"missing order", "does-not-exist", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.id, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestOrderHandler_StartPayment(t *testing.T) {
	r := newOrderRouter()
	created := decodeOrder(t, postOrder(t, r, orderBody(), ""))

	pay := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+created.Data.ID+"/payment", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := pay()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool                  `json:"success"`
		Data    models.PaymentHandoff `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Status != models.OrderStatusProcessing {
		t.Errorf("expected processing, got %s", resp.Data.Status)
	}
	if !strings.Contains(resp.Data.PaymentURL, "order_id="+created.Data.ID) {
		t.Errorf("payment url %q does not carry the order id", resp.Data.PaymentURL)
	}

	if again := pay(); again.Code != http.StatusOK {
		t.Errorf("expected repeated handoff to succeed, got %d", again.Code)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+created.Data.ID+"/status",
		strings.NewReader(`{"status":"cancelled"}`))
	cancel := httptest.NewRecorder()
	r.ServeHTTP(cancel, req)
	if cancel.Code != http.StatusOK {
		t.Fatalf("expected cancel to succeed, got %d", cancel.Code)
	}

	if w := pay(); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for cancelled order, got %d", w.Code)
	}
}

func TestOrderHandler_ListOrders_HugePage(t *testing.T) {
	r := newOrderRouter()
	postOrder(t, r, orderBody(), "")

	req := httptest.NewRequest(http.MethodGet, "/api/orders?page=4611686018427387904&per_page=100", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOrderHandler_ListOrders(t *testing.T) {
	r := newOrderRouter()
	for i := 0; i < 3; i++ {
		postOrder(t, r, orderBody(), "")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders?page=2&per_page=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Success    bool              `json:"success"`
		Data       []models.Order    `json:"data"`
		Pagination models.Pagination `json:"pagination"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Errorf("expected 1 order on page 2, got %d", len(resp.Data))
	}
	want := models.Pagination{Page: 2, Pages: 2, Total: 3, PerPage: 2}
	if resp.Pagination != want {
		t.Errorf("expected pagination %+v, got %+v", want, resp.Pagination)
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	r := newOrderRouter()
	created := decodeOrder(t, postOrder(t, r, orderBody(), ""))

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{"complete order", created.Data.ID, `{"status":"completed"}`, http.StatusOK},
		{"unknown status", created.Data.ID, `{"status":"shipped"}`, http.StatusBadRequest},
		{"missing order", "nope", `{"status":"completed"}`, http.StatusNotFound},
		{"bad body", created.Data.ID, `status`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+tt.id+"/status", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}
