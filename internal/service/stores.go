package service

import (
	"context"
	"errors"

	"github.com/minhtran-dev/ordersys/internal/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInventoryNotFound = errors.New("inventory not found")
)

// OrderStore is the persistence surface the order service mutates orders
// through. GetByID returns (nil, nil) when the order doesn't exist.
//
// CancelWithRestock persists the given order and adds its quantity back to
// its product's stock in one atomic write: on error neither change is
// visible, so a retried cancellation can never compensate stock twice.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int) (*models.Order, error)
	GetAll(ctx context.Context) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	CancelWithRestock(ctx context.Context, order *models.Order) error
}

// InventoryStore is the persistence surface for inventory records.
// GetByProductID and GetByID return (nil, nil) when the record is absent.
type InventoryStore interface {
	GetByProductID(ctx context.Context, productID string) (*models.Inventory, error)
	GetByID(ctx context.Context, id int) (*models.Inventory, error)
	GetAll(ctx context.Context) ([]models.Inventory, error)
	Create(ctx context.Context, inv *models.Inventory) error
	Update(ctx context.Context, inv *models.Inventory) error
	Delete(ctx context.Context, id int) error
}

// EventPublisher publishes the OrderCreated event for a freshly created
// order onto the durable channel.
type EventPublisher interface {
	PublishOrderCreated(orderID int) error
}
