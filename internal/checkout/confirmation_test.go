package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

func testOrder() models.Order {
	return models.Order{
		ID:                  "ord_123",
		ProductID:           1,
		ProductName:         "FB Accounts | Verified by e-mail",
		VendorID:            2,
		Email:               "buyer@example.com",
		Quantity:            50,
		PaymentMethod:       "Bitcoin (BTC)",
		CouponCode:          "NEWS",
		TotalPrice:          decimal.RequireFromString("13.28145"),
		Status:              models.OrderStatusPending,
		SubscribeNewsletter: true,
		CreatedAt:           time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRenderOrder(t *testing.T) {
	v := RenderOrder(testOrder())

	checks := map[string][2]string{
		"order_id":     {v.OrderID, "ord_123"},
		"status_label": {v.StatusLabel, "Pending Payment"},
		"vendor_name":  {v.VendorName, "Partner #2"},
		"unit_price":   {v.UnitPrice, "$0.266"},
		"total_price":  {v.TotalPrice, "$13.281"},
		"newsletter":   {v.Newsletter, "Subscribed"},
		"coupon_code":  {v.CouponCode, "NEWS"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
}

func TestRenderOrder_Fallbacks(t *testing.T) {
	o := testOrder()
	o.ProductName = ""
	o.VendorName = "Partner #1892"
	o.SubscribeNewsletter = false
	o.Quantity = 0
	o.CreatedAt = time.Time{}

	v := RenderOrder(o)
	if v.ProductName != "Product #1" {
		t.Errorf("product name = %q", v.ProductName)
	}
	if v.VendorName != "Partner #1892" {
		t.Errorf("vendor name = %q", v.VendorName)
	}
	if v.Newsletter != "Not subscribed" {
		t.Errorf("newsletter = %q", v.Newsletter)
	}
	if v.UnitPrice != "$0.000" {
		t.Errorf("unit price = %q", v.UnitPrice)
	}
	if v.CreatedAt.IsZero() {
		t.Error("created_at should fall back to now")
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status models.OrderStatus
		want   string
	}{
		{models.OrderStatusPending, "Pending Payment"},
		{"", "Pending Payment"},
		{models.OrderStatusProcessing, "Processing"},
		{models.OrderStatusCompleted, "Completed"},
		{models.OrderStatusCancelled, "Cancelled"},
		{"refunded", "refunded"},
		{"émis", "émis"},
	}
	for _, tt := range tests {
		if got := StatusLabel(tt.status); got != tt.want {
			t.Errorf("StatusLabel(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestConfirmation_ContinueToPayment(t *testing.T) {
	gw := &fakeGateway{}
	c := NewConfirmation(testOrder(), gw, logger.Discard())

	handoff, err := c.ContinueToPayment(context.Background())
	if err != nil {
		t.Fatalf("ContinueToPayment() error = %v", err)
	}
	if handoff.PaymentURL != "https://pay.example.com/orders/ord_123" {
		t.Errorf("payment url = %q", handoff.PaymentURL)
	}
	if c.IsOpen() {
		t.Error("confirmation still open after handoff")
	}
	if _, err := c.View(); !errors.Is(err, ErrConfirmationClosed) {
		t.Errorf("View() error = %v, want ErrConfirmationClosed", err)
	}
	if _, err := c.ContinueToPayment(context.Background()); !errors.Is(err, ErrConfirmationClosed) {
		t.Errorf("second ContinueToPayment() error = %v", err)
	}
	if gw.Calls() != 1 {
		t.Errorf("gateway called %d times", gw.Calls())
	}
}

func TestConfirmation_FailureKeepsOrder(t *testing.T) {
	gw := &fakeGateway{err: errors.New("503")}
	c := NewConfirmation(testOrder(), gw, logger.Discard())

	_, err := c.ContinueToPayment(context.Background())
	var serr *SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *SubmissionError", err)
	}
	if serr.Notice != "Error proceeding to payment. Please try again." {
		t.Errorf("notice = %q", serr.Notice)
	}

	v, err := c.View()
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if v.Notice != serr.Notice || v.Paying {
		t.Errorf("view = %+v", v)
	}

	gw.mu.Lock()
	gw.err = nil
	gw.mu.Unlock()
	if _, err := c.ContinueToPayment(context.Background()); err != nil {
		t.Fatalf("retry error = %v", err)
	}
}

func TestConfirmation_PaymentInProgress(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), started: make(chan struct{}, 1)}
	c := NewConfirmation(testOrder(), gw, logger.Discard())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.ContinueToPayment(context.Background())
	}()
	<-gw.started

	if _, err := c.ContinueToPayment(context.Background()); !errors.Is(err, ErrPaymentInProgress) {
		t.Errorf("concurrent ContinueToPayment() error = %v", err)
	}
	if err := c.Dismiss(); !errors.Is(err, ErrPaymentInProgress) {
		t.Errorf("Dismiss() error = %v", err)
	}
	if v, _ := c.View(); !v.Paying {
		t.Error("view should report paying")
	}

	close(gw.release)
	wg.Wait()

	if gw.Calls() != 1 {
		t.Errorf("gateway called %d times, want 1", gw.Calls())
	}
}

func TestConfirmation_Dismiss(t *testing.T) {
	gw := &fakeGateway{}
	c := NewConfirmation(testOrder(), gw, logger.Discard())

	if err := c.Dismiss(); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if c.IsOpen() {
		t.Error("still open after dismiss")
	}
	if gw.Calls() != 0 {
		t.Error("dismiss should not call the gateway")
	}
}
