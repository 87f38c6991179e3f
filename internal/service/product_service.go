package service

import (
	"context"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
	"github.com/Lixing-Zhang/account-storefront/internal/repository"
)

// ProductService handles business logic for the catalog
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListCategories returns the category tree
func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// ListProducts returns products, optionally limited to a category and its children
func (s *ProductService) ListProducts(ctx context.Context, categoryID int64) ([]models.Product, error) {
	return s.repo.GetAll(ctx, categoryID)
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}
