package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/account-storefront/internal/idempotency"
	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// CreateOrder handles POST /api/orders
// A replayed Idempotency-Key answers 200 with the original order.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest

	if err := decodeJSON(w, r, &req); err != nil {
		h.log.Warn("failed to decode order request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	order, replayed, err := h.orderService.CreateOrder(r.Context(), req, idempotency.Key(r))
	if err != nil {
		status, message := orderErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to create order", "error", err)
		} else {
			h.log.Info("order rejected", "product_id", req.ProductID, "reason", err)
		}
		WriteError(w, status, message, h.log)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
		w.Header().Set("Idempotent-Replayed", "true")
	}
	WriteData(w, status, order, h.log)
}

// GetOrder handles GET /api/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		status, message := orderErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to get order", "order_id", orderID, "error", err)
		}
		WriteError(w, status, message, h.log)
		return
	}

	WriteData(w, http.StatusOK, order, h.log)
}

// StartPayment handles POST /api/orders/{orderId}/payment
func (h *OrderHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	handoff, err := h.orderService.StartPayment(r.Context(), orderID)
	if err != nil {
		status, message := orderErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to start payment", "order_id", orderID, "error", err)
		}
		WriteError(w, status, message, h.log)
		return
	}

	h.log.Info("payment started", "order_id", orderID)
	WriteData(w, http.StatusOK, handoff, h.log)
}

// ListOrders handles GET /api/orders (admin)
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", service.DefaultPerPage)

	orders, pagination, err := h.orderService.ListOrders(r.Context(), page, perPage)
	if err != nil {
		h.log.Error("failed to list orders", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}

	WritePage(w, orders, pagination, h.log)
}

type statusUpdate struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/orders/{orderId}/status (admin)
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body statusUpdate
	if err := decodeJSON(w, r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, body.Status)
	if err != nil {
		status, message := orderErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to update order status", "order_id", orderID, "error", err)
		}
		WriteError(w, status, message, h.log)
		return
	}

	WriteData(w, http.StatusOK, order, h.log)
}

// orderErrorResponse maps service errors to a status and a buyer-facing message
func orderErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidProduct):
		return http.StatusBadRequest, "Invalid product"
	case errors.Is(err, service.ErrOutOfStock):
		return http.StatusBadRequest, "Product is out of stock"
	case errors.Is(err, service.ErrInvalidVendor):
		return http.StatusBadRequest, "Invalid vendor"
	case errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusBadRequest, "Quantity must be at least 1"
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest, "Quantity exceeds available stock"
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email format"
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, "Unsupported payment method"
	case errors.Is(err, service.ErrBelowMinimum):
		return http.StatusBadRequest, "Minimum order amount is $12"
	case errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest, "Invalid order status"
	case errors.Is(err, service.ErrInvalidIdempotencyKey):
		return http.StatusBadRequest, "Invalid Idempotency-Key header"
	case errors.Is(err, service.ErrTotalMismatch):
		return http.StatusConflict, "Price has changed. Please review your order and try again."
	case errors.Is(err, service.ErrIdempotencyKeyReused):
		return http.StatusConflict, "Idempotency-Key was already used for a different order"
	case errors.Is(err, service.ErrPaymentNotAllowed):
		return http.StatusConflict, "Order can no longer be paid"
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
