package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Customer struct {
	ID    int64
	Name  string
	Email string
	Phone string
}
