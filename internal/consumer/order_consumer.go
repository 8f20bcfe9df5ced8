package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/minhtran-dev/ordersys/internal/models"
	"github.com/minhtran-dev/ordersys/internal/service"
)

// OrderConsumer drives fulfillment from order.created deliveries. The ack
// protocol is what makes at-least-once safe here: a delivery is only acked
// after the updated order is persisted, a transient failure is nacked with
// requeue so the broker redelivers, and poison messages (bad payload or an
// order id that doesn't exist) are dropped without requeue.
type OrderConsumer struct {
	orders *service.OrderService
}

func NewOrderConsumer(orders *service.OrderService) *OrderConsumer {
	return &OrderConsumer{orders: orders}
}

// ProcessOrderCreated handles order.created events until the channel closes
func (c *OrderConsumer) ProcessOrderCreated(messages <-chan amqp.Delivery) {
	ctx := context.Background()

	for msg := range messages {
		var event models.OrderCreatedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Printf("❌ Failed to parse event: %v", err)
			msg.Nack(false, false) // Don't requeue bad messages
			continue
		}

		log.Printf("📥 Received order.created event for order #%d", event.OrderID)

		err := c.orders.ProcessOrderCreated(ctx, event.OrderID)
		switch {
		case err == nil:
			msg.Ack(false)
			log.Printf("✅ Order #%d processed", event.OrderID)
		case errors.Is(err, service.ErrOrderNotFound):
			log.Printf("❌ Order #%d not found, dropping event", event.OrderID)
			msg.Nack(false, false)
		default:
			log.Printf("⚠️ Order #%d failed, requeued: %v", event.OrderID, err)
			msg.Nack(false, true) // Requeue for redelivery
		}
	}
}
