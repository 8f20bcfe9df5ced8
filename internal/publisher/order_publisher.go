package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/minhtran-dev/ordersys/internal/messaging"
	"github.com/minhtran-dev/ordersys/internal/models"
)

const (
	OrdersExchange         = "orders.exchange"
	OrderCreatedQueue      = "order.created"
	OrderCreatedRoutingKey = "order.created"
)

type OrderPublisher struct {
	mq *messaging.RabbitMQ
}

func NewOrderPublisher(mq *messaging.RabbitMQ) (*OrderPublisher, error) {
	if err := mq.DeclareTopology(OrdersExchange, OrderCreatedQueue, OrderCreatedRoutingKey); err != nil {
		return nil, err
	}

	return &OrderPublisher{mq: mq}, nil
}

// PublishOrderCreated publishes an order.created event carrying the order id
func (p *OrderPublisher) PublishOrderCreated(orderID int) error {
	data, err := json.Marshal(models.OrderCreatedEvent{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(OrdersExchange, OrderCreatedRoutingKey, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		DeliveryMode: amqp.Persistent,
		Body:         data,
	})
}
