package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a server-side order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderRequest is the payload of POST /api/orders
type OrderRequest struct {
	ProductID           int64           `json:"product_id"`
	VendorID            int64           `json:"vendor_id"`
	Email               string          `json:"email"`
	Quantity            int             `json:"quantity"`
	PaymentMethod       string          `json:"payment_method"`
	CouponCode          string          `json:"coupon_code"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	Status              OrderStatus     `json:"status"`
	SubscribeNewsletter bool            `json:"subscribe_newsletter"`
}

// Order is an order as created and owned by the backend
type Order struct {
	ID                  string          `json:"id"`
	ProductID           int64           `json:"product_id"`
	ProductName         string          `json:"product_name,omitempty"`
	VendorID            int64           `json:"vendor_id"`
	VendorName          string          `json:"vendor_name,omitempty"`
	Email               string          `json:"email"`
	Quantity            int             `json:"quantity"`
	PaymentMethod       string          `json:"payment_method"`
	CouponCode          string          `json:"coupon_code,omitempty"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	Status              OrderStatus     `json:"status"`
	SubscribeNewsletter bool            `json:"subscribe_newsletter"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PaymentHandoff is returned when an order is passed to the payment gateway
type PaymentHandoff struct {
	OrderID    string      `json:"order_id"`
	Status     OrderStatus `json:"status"`
	PaymentURL string      `json:"payment_url"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
	PerPage int `json:"per_page"`
}

// OrderCreatedEvent is published after an order is stored
type OrderCreatedEvent struct {
	OrderID             string          `json:"order_id"`
	ProductID           int64           `json:"product_id"`
	VendorID            int64           `json:"vendor_id"`
	Email               string          `json:"email"`
	Quantity            int             `json:"quantity"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	SubscribeNewsletter bool            `json:"subscribe_newsletter"`
	Timestamp           time.Time       `json:"timestamp"`
}
