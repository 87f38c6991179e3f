package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for catalog data access
type ProductRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetAll(ctx context.Context, categoryID int64) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	categories []models.Category
	products   map[int64]models.Product
}

func parent(id int64) *int64 { return &id }

// NewInMemoryProductRepository creates a new in-memory product repository with seed data
func NewInMemoryProductRepository() *InMemoryProductRepository {
	categories := []models.Category{
		{
			ID:          1,
			Name:        "Facebook Accounts",
			Slug:        "facebook-accounts",
			Description: "High-quality Facebook accounts for various purposes",
			Children: []models.Category{
				{ID: 2, ParentID: parent(1), Name: "Facebook Softregs", Slug: "facebook-softregs"},
				{ID: 3, ParentID: parent(1), Name: "Facebook With friends", Slug: "facebook-with-friends"},
			},
		},
		{
			ID:          6,
			Name:        "Instagram Accounts",
			Slug:        "instagram-accounts",
			Description: "Premium Instagram accounts with various features",
			Children: []models.Category{
				{ID: 7, ParentID: parent(6), Name: "Instagram Softreg", Slug: "instagram-softreg"},
				{ID: 8, ParentID: parent(6), Name: "Instagram Aged", Slug: "instagram-aged"},
			},
		},
	}

	seed := []models.Product{
		{
			ID:            1,
			CategoryID:    2,
			Name:          "FB Accounts | Verified by e-mail, there is no email in the set. Male or female. 2FA included. Cookies are included. Registered in United Kingdom IP.",
			Description:   "High quality Facebook accounts verified by email",
			BasePrice:     decimal.RequireFromString("0.278"),
			StockQuantity: 345,
			Rating:        4.6,
			ReturnRate:    2.1,
			DeliveryTime:  "48h",
		},
		{
			ID:            2,
			CategoryID:    3,
			Name:          "FB Accounts | Aged 2+ years, 50+ friends. Profile filled. Cookies and UserAgent included.",
			Description:   "Aged Facebook accounts with an established friend list",
			BasePrice:     decimal.RequireFromString("1.45"),
			StockQuantity: 0,
			Rating:        4.4,
			ReturnRate:    3.8,
			DeliveryTime:  "72h",
		},
		{
			ID:            4,
			CategoryID:    7,
			Name:          "IG Accounts | Verified by email, email NOT included. Male or female. 2FA included. UserAgent, cookies included. Registered from USA IP.",
			Description:   "Instagram soft registered accounts from USA",
			BasePrice:     decimal.RequireFromString("0.183"),
			StockQuantity: 99,
			Rating:        4.9,
			ReturnRate:    1.6,
			DeliveryTime:  "48h",
		},
		{
			ID:            5,
			CategoryID:    8,
			Name:          "IG Accounts | Aged 1+ year, posts and followers. Email included.",
			Description:   "Aged Instagram accounts with activity history",
			BasePrice:     decimal.RequireFromString("2.10"),
			StockQuantity: 1200,
			Rating:        4.7,
			ReturnRate:    1.2,
			DeliveryTime:  "24h",
		},
	}

	names := make(map[int64]string)
	for _, c := range categories {
		names[c.ID] = c.Name
		for _, child := range c.Children {
			names[child.ID] = child.Name
		}
	}

	products := make(map[int64]models.Product, len(seed))
	for _, p := range seed {
		p.Category = &models.CategoryRef{ID: p.CategoryID, Name: names[p.CategoryID]}
		products[p.ID] = p
	}

	return &InMemoryProductRepository{
		categories: categories,
		products:   products,
	}
}

// ListCategories returns the category tree
func (r *InMemoryProductRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, len(r.categories))
	copy(out, r.categories)
	return out, nil
}

// GetAll returns products ordered by id. A non-zero categoryID keeps only
// that category and its children.
func (r *InMemoryProductRepository) GetAll(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var allowed map[int64]bool
	if categoryID != 0 {
		allowed = r.categorySubtree(categoryID)
	}

	products := make([]models.Product, 0, len(r.products))
	for _, product := range r.products {
		if allowed != nil && !allowed[product.CategoryID] {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// GetByID returns a product by its ID
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	product, exists := r.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (r *InMemoryProductRepository) categorySubtree(id int64) map[int64]bool {
	ids := map[int64]bool{id: true}
	for _, c := range r.categories {
		if c.ID != id {
			continue
		}
		for _, child := range c.Children {
			ids[child.ID] = true
		}
	}
	return ids
}
