package models

// OrderCreatedEvent is published once per created order. The channel is
// at-least-once, so consumers may see the same event more than once and
// must treat redelivery as a no-op once the order is fully processed.
type OrderCreatedEvent struct {
	OrderID int `json:"order_id"`
}
