package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/account-storefront/internal/backend"
	"github.com/Lixing-Zhang/account-storefront/internal/checkout"
	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/go-chi/chi/v5"
)

// ProductSource loads the product a checkout is opened for
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// CheckoutHandler drives checkout sessions over HTTP
type CheckoutHandler struct {
	products ProductSource
	sessions *checkout.Registry
	log      *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(products ProductSource, sessions *checkout.Registry, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		products: products,
		sessions: sessions,
		log:      log,
	}
}

type openCheckoutRequest struct {
	ProductID int64 `json:"product_id"`
}

type selectVendorRequest struct {
	VendorID int64 `json:"vendor_id"`
}

type checkoutView struct {
	SessionID string `json:"session_id"`
	checkout.Snapshot
}

type submitResult struct {
	Order        *models.Order      `json:"order"`
	Confirmation checkout.OrderView `json:"confirmation"`
}

type validationResponse struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message"`
	Errors  checkout.ValidationErrors `json:"errors"`
}

// PaymentMethods handles GET /api/payment-methods
func (h *CheckoutHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	WriteData(w, http.StatusOK, map[string]interface{}{
		"methods": models.PaymentMethods,
		"default": models.DefaultPaymentMethod,
	}, h.log)
}

// Open handles POST /api/checkout
func (h *CheckoutHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ProductID <= 0 {
		WriteError(w, http.StatusBadRequest, "product_id is required", h.log)
		return
	}

	product, err := h.products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Product not found", h.log)
			return
		}
		h.log.Error("failed to load product", "product_id", req.ProductID, "error", err)
		WriteError(w, http.StatusBadGateway, "Failed to load product", h.log)
		return
	}

	s, err := h.sessions.Open(*product)
	if err != nil {
		if errors.Is(err, checkout.ErrOutOfStock) {
			WriteError(w, http.StatusConflict, "Out of Stock", h.log)
			return
		}
		h.log.Error("failed to open checkout", "product_id", req.ProductID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}

	h.log.Info("checkout opened", "session_id", s.ID, "product_id", product.ID)
	WriteData(w, http.StatusCreated, view(s), h.log)
}

// Get handles GET /api/checkout/{sessionId}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteData(w, http.StatusOK, view(s), h.log)
}

// UpdateForm handles PATCH /api/checkout/{sessionId}/form
func (h *CheckoutHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var patch models.FormPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	if err := s.Workflow().Apply(patch); err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	WriteData(w, http.StatusOK, view(s), h.log)
}

// SelectVendor handles PUT /api/checkout/{sessionId}/vendor
func (h *CheckoutHandler) SelectVendor(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req selectVendorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	if err := s.Workflow().SelectVendor(req.VendorID); err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	WriteData(w, http.StatusOK, view(s), h.log)
}

// Submit handles POST /api/checkout/{sessionId}/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	order, err := s.Submit(r.Context())
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	conf, err := s.Confirmation()
	if err != nil {
		h.log.Error("confirmation missing after submit", "session_id", s.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}
	v, err := conf.View()
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	WriteData(w, http.StatusOK, submitResult{Order: order, Confirmation: v}, h.log)
}

// Close handles DELETE /api/checkout/{sessionId}
func (h *CheckoutHandler) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Workflow().Close(); err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	h.sessions.Release(s.ID)
	WriteData(w, http.StatusOK, view(s), h.log)
}

// Confirmation handles GET /api/checkout/{sessionId}/confirmation
func (h *CheckoutHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.confirmation(w, r)
	if !ok {
		return
	}
	v, err := conf.View()
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	WriteData(w, http.StatusOK, v, h.log)
}

// ContinueToPayment handles POST /api/checkout/{sessionId}/confirmation/payment
func (h *CheckoutHandler) ContinueToPayment(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.confirmation(w, r)
	if !ok {
		return
	}

	handoff, err := conf.ContinueToPayment(r.Context())
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	h.sessions.Release(chi.URLParam(r, "sessionId"))
	WriteData(w, http.StatusOK, handoff, h.log)
}

// DismissConfirmation handles DELETE /api/checkout/{sessionId}/confirmation
func (h *CheckoutHandler) DismissConfirmation(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.confirmation(w, r)
	if !ok {
		return
	}

	if err := conf.Dismiss(); err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	h.sessions.Release(chi.URLParam(r, "sessionId"))
	WriteData(w, http.StatusOK, map[string]bool{"dismissed": true}, h.log)
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "Checkout session not found", h.log)
		return nil, false
	}
	return s, true
}

func (h *CheckoutHandler) confirmation(w http.ResponseWriter, r *http.Request) (*checkout.Confirmation, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	conf, err := s.Confirmation()
	if err != nil {
		WriteError(w, http.StatusNotFound, "No order awaiting payment", h.log)
		return nil, false
	}
	return conf, true
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	var serr *checkout.SubmissionError

	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Success: false,
			Message: "Please correct the highlighted fields",
			Errors:  verr.Fields,
		}, h.log)
	case errors.As(err, &serr):
		WriteError(w, http.StatusBadGateway, serr.Notice, h.log)
	case errors.Is(err, checkout.ErrUnknownPaymentMethod):
		WriteError(w, http.StatusBadRequest, "Unsupported payment method", h.log)
	case errors.Is(err, checkout.ErrSubmitInProgress):
		WriteError(w, http.StatusConflict, "Order submission in progress", h.log)
	case errors.Is(err, checkout.ErrPaymentInProgress):
		WriteError(w, http.StatusConflict, "Payment in progress", h.log)
	case errors.Is(err, checkout.ErrNotReady):
		WriteError(w, http.StatusConflict, "Checkout is not open", h.log)
	case errors.Is(err, checkout.ErrConfirmationClosed):
		WriteError(w, http.StatusNotFound, "No order awaiting payment", h.log)
	default:
		h.log.Error("checkout request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
	}
}

func view(s *checkout.Session) checkoutView {
	return checkoutView{SessionID: s.ID, Snapshot: s.Workflow().Snapshot()}
}
