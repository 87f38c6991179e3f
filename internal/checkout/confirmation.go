package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// PaymentGateway hands a created order over to payment
type PaymentGateway interface {
	StartPayment(ctx context.Context, order models.Order) (*models.PaymentHandoff, error)
}

// Confirmation presents a created order and offers the continue-to-payment
// step. A successful handoff closes it and drops the order; a failed one
// leaves it open for another attempt.
type Confirmation struct {
	mu sync.Mutex

	gateway PaymentGateway
	log     *slog.Logger

	order  *models.Order
	paying bool
	notice string
}

// NewConfirmation opens a confirmation for order
func NewConfirmation(order models.Order, gateway PaymentGateway, log *slog.Logger) *Confirmation {
	return &Confirmation{
		gateway: gateway,
		log:     log,
		order:   &order,
	}
}

// IsOpen reports whether the confirmation still holds an order
func (c *Confirmation) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order != nil
}

// OrderView is the rendered order confirmation
type OrderView struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"status_label"`
	ProductName   string    `json:"product_name"`
	VendorName    string    `json:"vendor_name"`
	Quantity      int       `json:"quantity"`
	UnitPrice     string    `json:"unit_price"`
	PaymentMethod string    `json:"payment_method"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	TotalPrice    string    `json:"total_price"`
	Email         string    `json:"email"`
	Newsletter    string    `json:"newsletter"`
	CreatedAt     time.Time `json:"created_at"`
	Paying        bool      `json:"paying"`
	Notice        string    `json:"notice,omitempty"`
}

// View renders the order
func (c *Confirmation) View() (OrderView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order == nil {
		return OrderView{}, ErrConfirmationClosed
	}
	v := RenderOrder(*c.order)
	v.Paying = c.paying
	v.Notice = c.notice
	return v, nil
}

// ContinueToPayment makes one handoff attempt. Calls made while a handoff
// is in flight get ErrPaymentInProgress.
func (c *Confirmation) ContinueToPayment(ctx context.Context) (*models.PaymentHandoff, error) {
	c.mu.Lock()
	if c.order == nil {
		c.mu.Unlock()
		return nil, ErrConfirmationClosed
	}
	if c.paying {
		c.mu.Unlock()
		return nil, ErrPaymentInProgress
	}
	c.paying = true
	c.notice = ""
	order := *c.order
	c.mu.Unlock()

	handoff, err := c.gateway.StartPayment(ctx, order)
	if err == nil && handoff == nil {
		err = errors.New("payment gateway returned no handoff")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.paying = false

	if err != nil {
		c.notice = noticeFor(err, noticePaymentFailed)
		c.log.Warn("payment handoff failed", "order_id", order.ID, "error", err)
		return nil, &SubmissionError{Notice: c.notice, Err: err}
	}

	c.log.Info("redirecting to payment gateway", "order_id", order.ID, "payment_url", handoff.PaymentURL)
	c.order = nil
	return handoff, nil
}

// Dismiss closes the confirmation without paying
func (c *Confirmation) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paying {
		return ErrPaymentInProgress
	}
	c.order = nil
	c.notice = ""
	return nil
}

// RenderOrder formats order for display
func RenderOrder(order models.Order) OrderView {
	vendorName := order.VendorName
	if vendorName == "" {
		vendorName = fmt.Sprintf("Partner #%d", order.VendorID)
	}
	productName := order.ProductName
	if productName == "" {
		productName = fmt.Sprintf("Product #%d", order.ProductID)
	}

	unitPrice := decimal.Zero
	if order.Quantity > 0 {
		unitPrice = order.TotalPrice.Div(decimal.NewFromInt(int64(order.Quantity)))
	}

	newsletter := "Not subscribed"
	if order.SubscribeNewsletter {
		newsletter = "Subscribed"
	}

	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return OrderView{
		OrderID:       order.ID,
		Status:        string(order.Status),
		StatusLabel:   StatusLabel(order.Status),
		ProductName:   productName,
		VendorName:    vendorName,
		Quantity:      order.Quantity,
		UnitPrice:     pricing.Format(unitPrice),
		PaymentMethod: order.PaymentMethod,
		CouponCode:    order.CouponCode,
		TotalPrice:    pricing.Format(order.TotalPrice),
		Email:         order.Email,
		Newsletter:    newsletter,
		CreatedAt:     createdAt,
	}
}

var statusLabels = map[models.OrderStatus]string{
	"":                           "Pending Payment",
	models.OrderStatusPending:    "Pending Payment",
	models.OrderStatusProcessing: "Processing",
	models.OrderStatusCompleted:  "Completed",
	models.OrderStatusCancelled:  "Cancelled",
}

// StatusLabel is the buyer-facing name of a status. Unknown statuses are
// shown as sent.
func StatusLabel(status models.OrderStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}
