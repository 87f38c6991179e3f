package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/account-storefront/internal/coupon"
	"github.com/go-chi/chi/v5"
)

func TestCouponHandler_ValidateCoupon(t *testing.T) {
	tests := []struct {
		name            string
		couponCode      string
		expectedStatus  int
		expectedValid   bool
		expectedPercent float64
	}{
		{
			name:            "newsletter coupon",
			couponCode:      "news",
			expectedStatus:  http.StatusOK,
			expectedValid:   true,
			expectedPercent: 9,
		},
		{
			name:            "case-insensitive",
			couponCode:      "NeWs",
			expectedStatus:  http.StatusOK,
			expectedValid:   true,
			expectedPercent: 9,
		},
		{
			name:           "surrounding whitespace is not trimmed",
			couponCode:     " news",
			expectedStatus: http.StatusNotFound,
			expectedValid:  false,
		},
		{
			name:           "unknown coupon",
			couponCode:     "FIFTYOFF",
			expectedStatus: http.StatusNotFound,
			expectedValid:  false,
		},
		{
			name:           "empty coupon code",
			couponCode:     "",
			expectedStatus: http.StatusNotFound,
			expectedValid:  false,
		},
	}

	h := NewCouponHandler(coupon.Default())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/coupons/x", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("couponCode", tt.couponCode)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			rr := httptest.NewRecorder()
			h.ValidateCoupon(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			valid, ok := response["valid"].(bool)
			if !ok {
				t.Fatalf("valid field is not a boolean")
			}
			if valid != tt.expectedValid {
				t.Errorf("expected valid=%v, got valid=%v", tt.expectedValid, valid)
			}

			if responseCoupon, _ := response["coupon"].(string); responseCoupon != tt.couponCode {
				t.Errorf("expected coupon=%q, got coupon=%q", tt.couponCode, responseCoupon)
			}

			if tt.expectedValid {
				pct, ok := response["discount_percent"].(float64)
				if !ok || pct != tt.expectedPercent {
					t.Errorf("expected discount_percent=%v, got %v", tt.expectedPercent, response["discount_percent"])
				}
			}
		})
	}
}

func TestCouponHandler_GetStats(t *testing.T) {
	handler := NewCouponHandler(coupon.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/coupons/stats", nil)
	rr := httptest.NewRecorder()
	handler.GetStats(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var stats map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	totalCoupons, ok := stats["total_coupons"].(float64)
	if !ok {
		t.Fatalf("total_coupons is not a number")
	}
	if int(totalCoupons) != 1 {
		t.Errorf("expected total_coupons=1, got %v", totalCoupons)
	}
}
