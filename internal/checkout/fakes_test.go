package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type createCall struct {
	req models.OrderRequest
	key string
}

// fakeCreator records order requests and answers with a canned order or error
type fakeCreator struct {
	mu      sync.Mutex
	calls   []createCall
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeCreator) CreateOrder(ctx context.Context, req models.OrderRequest, key string) (*models.Order, error) {
	f.mu.Lock()
	f.calls = append(f.calls, createCall{req: req, key: key})
	err := f.err
	n := len(f.calls)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if err != nil {
		return nil, err
	}
	return &models.Order{
		ID:                  "order-" + string(rune('0'+n)),
		ProductID:           req.ProductID,
		VendorID:            req.VendorID,
		Email:               req.Email,
		Quantity:            req.Quantity,
		PaymentMethod:       req.PaymentMethod,
		CouponCode:          req.CouponCode,
		TotalPrice:          req.TotalPrice,
		Status:              req.Status,
		SubscribeNewsletter: req.SubscribeNewsletter,
		CreatedAt:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (f *fakeCreator) Calls() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]createCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// fakeGateway answers payment handoffs
type fakeGateway struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeGateway) StartPayment(ctx context.Context, order models.Order) (*models.PaymentHandoff, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if err != nil {
		return nil, err
	}
	return &models.PaymentHandoff{
		OrderID:    order.ID,
		Status:     models.OrderStatusProcessing,
		PaymentURL: "https://pay.example.com/orders/" + order.ID,
	}, nil
}

func (f *fakeGateway) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// rejection mimics a backend error that carries a buyer-facing message
type rejection struct{ msg string }

func (r *rejection) Error() string       { return "backend rejected order: " + r.msg }
func (r *rejection) UserMessage() string { return r.msg }

func testProduct(price string) models.Product {
	return models.Product{
		ID:            1,
		Name:          "FB Accounts | Verified by e-mail",
		BasePrice:     decimal.RequireFromString(price),
		StockQuantity: 345,
		Rating:        4.6,
		ReturnRate:    2.1,
		DeliveryTime:  "48h",
	}
}
