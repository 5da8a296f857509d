package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the ordering core.
type Metrics struct {
	OrdersPlaced      prometheus.Counter
	OrderFailures     *prometheus.CounterVec
	ReservationsMade  prometheus.Counter
	OrderQueueDropped prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders committed successfully.",
		}),
		OrderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "order_failures_total",
			Help: "Order attempts rolled back, by reason.",
		}, []string{"reason"}),
		ReservationsMade: factory.NewCounter(prometheus.CounterOpts{
			Name: "reservations_made_total",
			Help: "Table reservations booked.",
		}),
		OrderQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_notifications_dropped_total",
			Help: "Kitchen notifications dropped because the queue was full.",
		}),
	}
}
