package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/minhvu2510/resto-ordering/internal/core/domain"
)

// OrderPlacedEvent is the wire shape of the kitchen feed message.
type OrderPlacedEvent struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	TotalAmount string          `json:"total_amount"`
	PlacedAt    time.Time       `json:"placed_at"`
	Items       []OrderItemInfo `json:"items"`
}

type OrderItemInfo struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// AMQPPublisher pushes order-placed events onto a durable queue for the
// kitchen display. Publishing happens after commit and is best effort.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, queue: queue}, nil
}

func (p *AMQPPublisher) OrderPlaced(ctx context.Context, order domain.Order) error {
	event := OrderPlacedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		PlacedAt:    order.OrderDate,
	}
	for _, line := range order.Lines {
		event.Items = append(event.Items, OrderItemInfo{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish order %d: %w", order.ID, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
