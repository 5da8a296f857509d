package port

import (
	"context"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
)

// OrderNotifier delivers placed orders to the kitchen feed. Delivery is
// best effort and happens after commit; a failed publish never unwinds a
// committed order.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, order domain.Order) error
	Close() error
}
