package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrDuplicateKey  = errors.New("idempotency key already used")
	ErrInvalidPage   = errors.New("offset and limit must not be negative")
)

// OrderRepository stores orders. CreateWithKey stores the order and binds
// it to an idempotency key in one step; a key that is already bound yields
// ErrDuplicateKey.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateWithKey(ctx context.Context, key string, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByKey(ctx context.Context, key string) (*models.Order, error)
	List(ctx context.Context, offset, limit int) ([]models.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

// InMemoryOrderRepository implements OrderRepository in memory
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	keys   map[string]string
	now    func() time.Time
}

// NewInMemoryOrderRepository creates an empty order repository
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]models.Order),
		keys:   make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.CreateWithKey(ctx, "", order)
}

func (r *InMemoryOrderRepository) CreateWithKey(ctx context.Context, key string, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key != "" {
		if _, ok := r.keys[key]; ok {
			return ErrDuplicateKey
		}
	}

	now := r.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = *order
	if key != "" {
		r.keys[key] = order.ID
	}
	return nil
}

func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (r *InMemoryOrderRepository) GetByKey(ctx context.Context, key string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[key]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order := r.orders[id]
	return &order, nil
}

// List returns a page of orders, newest first, and the total count
func (r *InMemoryOrderRepository) List(ctx context.Context, offset, limit int) ([]models.Order, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, ErrInvalidPage
	}

	r.mu.RLock()
	all := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		all = append(all, o)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []models.Order{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *InMemoryOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = r.now()
	r.orders[id] = order
	return &order, nil
}
