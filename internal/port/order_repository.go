package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
)

// LineItem is one product/quantity pair of a purchase request. Unit prices
// are never accepted from callers; they are read under lock inside the
// transaction.
type LineItem struct {
	ProductID int64
	Quantity  int
}

// OrderRepository owns the order-placement transaction and the order reads
// the reporting/status components consume.
type OrderRepository interface {
	// PlaceOrder runs the whole purchase workflow as one transaction:
	// customer check, row-locked stock validation, total computation from
	// locked prices, order + line persistence, stock decrement. On any
	// error no rows are written.
	PlaceOrder(ctx context.Context, customerID int64, items []LineItem, method domain.PaymentMethod) (*domain.Order, error)

	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)

	// UpdateOrderStatus applies lifecycle transitions; cancelling a paid
	// order marks the payment refunded, completing stamps the completion
	// date. Empty values leave the corresponding field untouched.
	UpdateOrderStatus(ctx context.Context, orderID int64, current domain.OrderStatus, kitchen domain.KitchenStatus) (*domain.Order, error)

	// UpdateAmountPaid settles an outstanding balance, bounded by the
	// order total, and forces the payment status to paid.
	UpdateAmountPaid(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Order, error)
}

type ProductRepository interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type ReservationRepository interface {
	// BookTable reserves a table for a date/time slot. The table row is
	// locked for the duration of the conflict check so two concurrent
	// bookings of the same slot serialize.
	BookTable(ctx context.Context, res domain.Reservation) (*domain.Reservation, error)

	ListReservations(ctx context.Context) ([]domain.Reservation, error)
	ListAvailableTables(ctx context.Context) ([]domain.Table, error)
}
