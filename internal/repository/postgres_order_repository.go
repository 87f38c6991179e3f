package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/lib/pq"
)

const orderColumns = `id, product_id, product_name, vendor_id, vendor_name, email, quantity,
	payment_method, coupon_code, total_price, status, subscribe_newsletter, created_at, updated_at`

// PostgresOrderRepository implements OrderRepository on PostgreSQL
type PostgresOrderRepository struct {
	db *sql.DB
}

// NewPostgresOrderRepository wraps an open database handle
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.CreateWithKey(ctx, "", order)
}

func (r *PostgresOrderRepository) CreateWithKey(ctx context.Context, key string, order *models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (id, product_id, product_name, vendor_id, vendor_name, email, quantity,
			payment_method, coupon_code, total_price, status, subscribe_newsletter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING created_at, updated_at
	`, order.ID, order.ProductID, order.ProductName, order.VendorID, order.VendorName, order.Email,
		order.Quantity, order.PaymentMethod, order.CouponCode, order.TotalPrice, order.Status,
		order.SubscribeNewsletter, order.CreatedAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	if key != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO idempotency_keys (key, order_id) VALUES ($1, $2)
		`, key, order.ID)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateKey
		}
		if err != nil {
			return fmt.Errorf("insert idempotency key: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *PostgresOrderRepository) GetByKey(ctx context.Context, key string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = (SELECT order_id FROM idempotency_keys WHERE key = $1)
	`, key)
	return scanOrder(row)
}

func (r *PostgresOrderRepository) List(ctx context.Context, offset, limit int) ([]models.Order, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, ErrInvalidPage
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+orderColumns, status, id)
	return scanOrder(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.ProductID, &o.ProductName, &o.VendorID, &o.VendorName, &o.Email,
		&o.Quantity, &o.PaymentMethod, &o.CouponCode, &o.TotalPrice, &o.Status,
		&o.SubscribeNewsletter, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
