package service

import (
	"context"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/port"
)

// CatalogService is the read-side data contract the ordering core's
// collaborators consume: given a product id, its price and stock.
type CatalogService struct {
	store port.ProductRepository
}

func NewCatalogService(store port.ProductRepository) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	if productID <= 0 {
		return nil, &domain.ValidationError{Reason: "valid product id is required"}
	}
	return s.store.GetProduct(ctx, productID)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.store.ListProducts(ctx)
}
