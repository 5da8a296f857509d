package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
	"github.com/minhvu2510/resto-ordering/internal/port"
	"github.com/minhvu2510/resto-ordering/pkg/metrics"
)

// PlaceOrderInput is a checkout request. RequestID is optional; when set it
// deduplicates retried submissions.
type PlaceOrderInput struct {
	RequestID     string
	CustomerID    int64
	Items         []port.LineItem
	PaymentMethod domain.PaymentMethod
}

type OrderService struct {
	store      port.OrderRepository
	idem       port.IdempotencyStore
	metrics    *metrics.Metrics
	log        *zap.Logger
	orderQueue chan domain.Order
}

func NewOrderService(store port.OrderRepository, idem port.IdempotencyStore, m *metrics.Metrics, log *zap.Logger, queueSize int) *OrderService {
	return &OrderService{
		store:      store,
		idem:       idem,
		metrics:    m,
		log:        log,
		orderQueue: make(chan domain.Order, queueSize),
	}
}

// PlaceOrder validates the request, claims its request id, and hands the
// workflow to the transactional store. On success the order is queued for
// the kitchen feed; queueing never blocks the caller.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if err := validatePlaceOrder(input); err != nil {
		s.metrics.OrderFailures.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	if input.RequestID != "" && s.idem != nil {
		ok, err := s.idem.SetIdempotency(ctx, input.RequestID)
		if err != nil {
			s.metrics.OrderFailures.WithLabelValues("idempotency").Inc()
			return nil, err
		}
		if !ok {
			s.metrics.OrderFailures.WithLabelValues("duplicate").Inc()
			return nil, domain.ErrDuplicateRequest
		}
	}

	order, err := s.store.PlaceOrder(ctx, input.CustomerID, input.Items, input.PaymentMethod)
	if err != nil {
		s.metrics.OrderFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	s.metrics.OrdersPlaced.Inc()
	s.log.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.String("payment_method", string(order.PaymentMethod)),
	)

	select {
	case s.orderQueue <- *order:
	default:
		s.metrics.OrderQueueDropped.Inc()
		s.log.Warn("kitchen notification dropped, queue full", zap.Int64("order_id", order.ID))
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if customerID <= 0 {
		return nil, &domain.ValidationError{Reason: "valid customer id is required"}
	}
	return s.store.ListOrdersByCustomer(ctx, customerID)
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, current domain.OrderStatus, kitchen domain.KitchenStatus) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, &domain.ValidationError{Reason: "order id is required"}
	}
	if current == "" && kitchen == "" {
		return nil, &domain.ValidationError{Reason: "either order status or kitchen status must be provided"}
	}
	if current != "" && !current.Valid() {
		return nil, &domain.ValidationError{Reason: "invalid order status value"}
	}
	if kitchen != "" && !kitchen.Valid() {
		return nil, &domain.ValidationError{Reason: "invalid kitchen status value"}
	}
	return s.store.UpdateOrderStatus(ctx, orderID, current, kitchen)
}

func (s *OrderService) UpdateAmountPaid(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, &domain.ValidationError{Reason: "order id is required"}
	}
	return s.store.UpdateAmountPaid(ctx, orderID, amount)
}

// GetOrderQueue exposes placed orders for the notification workers.
func (s *OrderService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *OrderService) Close() {
	close(s.orderQueue)
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if input.CustomerID <= 0 {
		return &domain.ValidationError{Reason: "valid customer id is required"}
	}
	if len(input.Items) == 0 {
		return &domain.ValidationError{Reason: "at least one line item is required"}
	}
	for _, item := range input.Items {
		if item.ProductID <= 0 {
			return &domain.ValidationError{Reason: "valid product id is required"}
		}
		if item.Quantity <= 0 {
			return &domain.ValidationError{Reason: "quantity must be a positive integer"}
		}
	}
	if !input.PaymentMethod.Valid() {
		return &domain.ValidationError{Reason: "payment method must be 'full' or 'advance'"}
	}
	return nil
}

func failureReason(err error) string {
	var (
		notFound     *domain.ProductNotFoundError
		insufficient *domain.InsufficientStockError
	)
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "customer_not_found"
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	}
	return "persistence"
}
