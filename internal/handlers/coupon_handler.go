package handlers

import (
	"net/http"

	"github.com/Lixing-Zhang/account-storefront/internal/coupon"
	"github.com/go-chi/chi/v5"
)

// couponCatalog is the interface for coupon lookup
type couponCatalog interface {
	Lookup(code string) (coupon.Coupon, bool)
	GetStats() map[string]interface{}
}

// CouponHandler handles HTTP requests for coupon validation
type CouponHandler struct {
	catalog couponCatalog
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(catalog couponCatalog) *CouponHandler {
	return &CouponHandler{
		catalog: catalog,
	}
}

// ValidateCoupon handles GET /api/coupons/{couponCode}
// Codes match case-insensitively; the response echoes the code as sent.
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	couponCode := chi.URLParam(r, "couponCode")

	c, ok := h.catalog.Lookup(couponCode)
	if ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":            true,
			"coupon":           couponCode,
			"discount_percent": c.DiscountPercent,
		})
	} else {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"valid":   false,
			"coupon":  couponCode,
			"message": "Coupon not found or invalid",
		})
	}
}

// GetStats handles GET /api/coupons/stats
func (h *CouponHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.GetStats())
}
