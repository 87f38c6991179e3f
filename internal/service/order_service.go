package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/checkout"
	"github.com/Lixing-Zhang/account-storefront/internal/coupon"
	"github.com/Lixing-Zhang/account-storefront/internal/idempotency"
	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/pricing"
	"github.com/Lixing-Zhang/account-storefront/internal/repository"
	"github.com/Lixing-Zhang/account-storefront/internal/vendor"
	"github.com/google/uuid"
)

var (
	ErrInvalidProduct        = errors.New("invalid product")
	ErrOutOfStock            = errors.New("product is out of stock")
	ErrInvalidVendor         = errors.New("invalid vendor")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInsufficientStock     = errors.New("quantity exceeds available stock")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrBelowMinimum          = errors.New("order total is below the minimum purchase")
	ErrTotalMismatch         = errors.New("total price does not match current pricing")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotAllowed     = errors.New("order cannot be paid in its current status")
	ErrIdempotencyKeyReused  = errors.New("idempotency key was used for a different order")
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ProductRepository interface for product data access
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// EventPublisher publishes order events
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// OrderObserver is told the outcome of every create attempt
type OrderObserver func(outcome string)

// OrderService is the authority on orders: it re-checks every client-side
// rule, recomputes the total and stores the order.
type OrderService struct {
	productRepo ProductRepository
	orderRepo   repository.OrderRepository
	coupons     *coupon.Catalog
	keys        *idempotency.Index
	publisher   EventPublisher
	observe     OrderObserver
	paymentURL  string
	log         *slog.Logger
}

// OrderServiceOption configures an OrderService
type OrderServiceOption func(*OrderService)

// WithCoupons replaces the default coupon catalog
func WithCoupons(c *coupon.Catalog) OrderServiceOption {
	return func(s *OrderService) { s.coupons = c }
}

// WithIdempotencyIndex sets the index consulted before key lookups
func WithIdempotencyIndex(idx *idempotency.Index) OrderServiceOption {
	return func(s *OrderService) { s.keys = idx }
}

// WithPublisher publishes an event for every created order
func WithPublisher(p EventPublisher) OrderServiceOption {
	return func(s *OrderService) { s.publisher = p }
}

// WithObserver reports create outcomes, e.g. to metrics
func WithObserver(fn OrderObserver) OrderServiceOption {
	return func(s *OrderService) { s.observe = fn }
}

// WithPaymentURL sets the gateway base URL orders are handed off to
func WithPaymentURL(u string) OrderServiceOption {
	return func(s *OrderService) { s.paymentURL = u }
}

// NewOrderService creates a new order service
func NewOrderService(productRepo ProductRepository, orderRepo repository.OrderRepository, log *slog.Logger, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		coupons:     coupon.Default(),
		paymentURL:  "https://pay.example.com/checkout",
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates req and stores a new pending order. When key was
// already used the original order is returned with replayed set.
func (s *OrderService) CreateOrder(ctx context.Context, req models.OrderRequest, key string) (order *models.Order, replayed bool, err error) {
	defer func() {
		switch {
		case err != nil:
			s.report("rejected")
		case replayed:
			s.report("replayed")
		default:
			s.report("created")
		}
	}()

	if key != "" {
		if !idempotency.Valid(key) {
			return nil, false, ErrInvalidIdempotencyKey
		}
		if s.keys == nil || s.keys.MaybeSeen(key) {
			existing, err := s.orderRepo.GetByKey(ctx, key)
			if err == nil {
				return s.replay(existing, req)
			}
			if !errors.Is(err, repository.ErrOrderNotFound) {
				return nil, false, fmt.Errorf("look up idempotency key: %w", err)
			}
		}
	}

	order, err = s.buildOrder(ctx, req)
	if err != nil {
		return nil, false, err
	}

	if err := s.orderRepo.CreateWithKey(ctx, key, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			existing, lookupErr := s.orderRepo.GetByKey(ctx, key)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("replay order: %w", lookupErr)
			}
			return s.replay(existing, req)
		}
		return nil, false, fmt.Errorf("store order: %w", err)
	}
	if key != "" && s.keys != nil {
		s.keys.Add(key)
	}

	s.publish(ctx, order)
	s.log.Info("order created",
		"order_id", order.ID,
		"product_id", order.ProductID,
		"vendor_id", order.VendorID,
		"quantity", order.Quantity,
		"total_price", order.TotalPrice.String(),
	)
	return order, false, nil
}

// replay returns the order already bound to a key, provided req asks for
// the same order
func (s *OrderService) replay(existing *models.Order, req models.OrderRequest) (*models.Order, bool, error) {
	if !sameOrder(existing, req) {
		s.log.Warn("idempotency key reused with a different payload", "order_id", existing.ID)
		return nil, false, ErrIdempotencyKeyReused
	}
	s.log.Info("replaying order for idempotency key", "order_id", existing.ID)
	return existing, true, nil
}

// sameOrder compares req, normalized the way buildOrder stores it, with order
func sameOrder(order *models.Order, req models.OrderRequest) bool {
	method := req.PaymentMethod
	if method == "" {
		method = models.DefaultPaymentMethod
	}
	return order.ProductID == req.ProductID &&
		order.VendorID == req.VendorID &&
		order.Email == strings.TrimSpace(req.Email) &&
		order.Quantity == req.Quantity &&
		order.PaymentMethod == method &&
		order.CouponCode == req.CouponCode &&
		order.SubscribeNewsletter == req.SubscribeNewsletter &&
		order.TotalPrice.Equal(req.TotalPrice)
}

func (s *OrderService) buildOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrInvalidProduct
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	if !product.InStock() {
		return nil, ErrOutOfStock
	}

	offer, ok := vendor.FindOffer(vendor.GenerateOffers(*product), req.VendorID)
	if !ok {
		return nil, ErrInvalidVendor
	}
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if req.Quantity > offer.Stock {
		return nil, fmt.Errorf("%w (max %d)", ErrInsufficientStock, offer.Stock)
	}

	email := strings.TrimSpace(req.Email)
	if !checkout.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.DefaultPaymentMethod
	}
	if !models.IsPaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.Status != "" && req.Status != models.OrderStatusPending {
		return nil, ErrInvalidStatus
	}

	expected := pricing.ComputeTotalWith(s.coupons, offer.Price, req.Quantity, req.CouponCode)
	if !pricing.MeetsMinimum(expected) {
		return nil, ErrBelowMinimum
	}
	if !req.TotalPrice.Equal(expected) {
		return nil, fmt.Errorf("%w: got %s, expected %s", ErrTotalMismatch, req.TotalPrice, expected)
	}

	return &models.Order{
		ID:                  uuid.NewString(),
		ProductID:           product.ID,
		ProductName:         product.Name,
		VendorID:            offer.ID,
		VendorName:          offer.Name,
		Email:               email,
		Quantity:            req.Quantity,
		PaymentMethod:       method,
		CouponCode:          req.CouponCode,
		TotalPrice:          expected,
		Status:              models.OrderStatusPending,
		SubscribeNewsletter: req.SubscribeNewsletter,
	}, nil
}

// GetOrder returns the order with id
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// ListOrders returns one page of orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, page, perPage int) ([]models.Order, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}

	orders, total, err := s.orderRepo.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list orders: %w", err)
	}

	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	return orders, models.Pagination{Page: page, Pages: pages, Total: total, PerPage: perPage}, nil
}

// UpdateStatus sets an order's status
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	order, err := s.orderRepo.UpdateStatus(ctx, id, status)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("order status updated", "order_id", id, "status", status)
	return order, nil
}

// StartPayment hands a pending order to the payment gateway and moves it
// to processing. Repeating it for a processing order returns the same
// handoff.
func (s *OrderService) StartPayment(ctx context.Context, id string) (*models.PaymentHandoff, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderStatusPending:
		if _, err := s.orderRepo.UpdateStatus(ctx, id, models.OrderStatusProcessing); err != nil {
			return nil, fmt.Errorf("mark order processing: %w", err)
		}
	case models.OrderStatusProcessing:
	default:
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotAllowed, order.Status)
	}

	paymentURL, err := s.paymentLink(order)
	if err != nil {
		return nil, err
	}
	return &models.PaymentHandoff{
		OrderID:    order.ID,
		Status:     models.OrderStatusProcessing,
		PaymentURL: paymentURL,
	}, nil
}

func (s *OrderService) paymentLink(order *models.Order) (string, error) {
	u, err := url.Parse(s.paymentURL)
	if err != nil {
		return "", fmt.Errorf("parse payment gateway url: %w", err)
	}
	q := u.Query()
	q.Set("order_id", order.ID)
	q.Set("amount", order.TotalPrice.String())
	q.Set("method", order.PaymentMethod)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *OrderService) publish(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := models.OrderCreatedEvent{
		OrderID:             order.ID,
		ProductID:           order.ProductID,
		VendorID:            order.VendorID,
		Email:               order.Email,
		Quantity:            order.Quantity,
		TotalPrice:          order.TotalPrice,
		SubscribeNewsletter: order.SubscribeNewsletter,
		Timestamp:           time.Now().UTC(),
	}
	// The order is already stored; a lost event is logged, not fatal.
	if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
		s.log.Error("failed to publish order event", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) report(outcome string) {
	if s.observe != nil {
		s.observe(outcome)
	}
}
