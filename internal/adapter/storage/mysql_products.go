package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, name, description, category, price, stock, created_at, updated_at
		FROM products WHERE product_id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (s *ProductStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, description, category, price, stock, created_at, updated_at
		FROM products ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
