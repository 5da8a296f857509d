package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodFull    PaymentMethod = "full"
	PaymentMethodAdvance PaymentMethod = "advance"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodFull || m == PaymentMethodAdvance
}

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderStatus is the customer-facing lifecycle status. Orders are created
// as "processing" and mutated later by the status-update flow.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusReadyToPickup OrderStatus = "ready to pickup"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusReadyToPickup,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// KitchenStatus is the kitchen's ETA indicator, independent of OrderStatus.
type KitchenStatus string

const (
	KitchenStatusReady KitchenStatus = "ready"
	KitchenStatus20Min KitchenStatus = "20min"
	KitchenStatus30Min KitchenStatus = "30min"
	KitchenStatus45Min KitchenStatus = "45min"
	KitchenStatus60Min KitchenStatus = "60min"
)

func (s KitchenStatus) Valid() bool {
	switch s {
	case KitchenStatusReady, KitchenStatus20Min, KitchenStatus30Min,
		KitchenStatus45Min, KitchenStatus60Min:
		return true
	}
	return false
}

type Order struct {
	ID             int64
	OrderNumber    string
	CustomerID     int64
	TotalAmount    decimal.Decimal
	PaymentMethod  PaymentMethod
	AmountPaid     decimal.Decimal
	PaymentStatus  PaymentStatus
	CurrentStatus  OrderStatus
	KitchenStatus  KitchenStatus
	OrderDate      time.Time
	CompletionDate *time.Time
	Lines          []OrderLine
}

// Balance is the amount still owed on an advance-paid order.
func (o Order) Balance() decimal.Decimal {
	return o.TotalAmount.Sub(o.AmountPaid)
}

// OrderLine snapshots the unit price at purchase time; later product
// price changes never affect committed orders.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrderNumber returns the external reference for a new order.
func NewOrderNumber() string {
	return uuid.NewString()
}
