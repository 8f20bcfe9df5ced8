package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/minhtran-dev/ordersys/internal/models"
)

// OrderService owns the order lifecycle: creation plus event publication,
// fulfillment processing driven by event delivery, cancellation with stock
// compensation, and the derived stats. Fulfillment and cancellation of the
// same order take the same per-order lock, so their read-modify-write of
// the order's flags never interleaves.
type OrderService struct {
	orders    OrderStore
	inventory *InventoryService
	publisher EventPublisher
	locks     *keyedMutex
}

func NewOrderService(orders OrderStore, inventory *InventoryService, publisher EventPublisher) *OrderService {
	return &OrderService{
		orders:    orders,
		inventory: inventory,
		publisher: publisher,
		locks:     newKeyedMutex(),
	}
}

// Create persists a new order and publishes its OrderCreated event. A
// publish failure doesn't fail the request; the order stays pending and is
// visible via stats until the event is re-sent out of band.
func (s *OrderService) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	order := &models.Order{
		CustomerName: req.CustomerName,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		TotalPrice:   req.TotalPrice,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.publisher.PublishOrderCreated(order.ID); err != nil {
		log.Printf("⚠️ Failed to publish order.created for order #%d: %v", order.ID, err)
	} else {
		log.Printf("📤 Published order.created event for order #%d", order.ID)
	}

	return order, nil
}

// Get returns an order by id.
func (s *OrderService) Get(ctx context.Context, id int) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List returns all orders.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return s.orders.GetAll(ctx)
}

// ProcessOrderCreated is the fulfillment path, invoked once per delivered
// OrderCreated event. The channel is at-least-once, so the whole sequence
// is idempotent: a cancelled or fully processed order is a no-op, and the
// stock decrement is skipped once StockUpdated is true so a redelivered
// event can never decrement twice. A nil return means the delivery can be
// acknowledged; any error means it must not be, so the channel redelivers.
func (s *OrderService) ProcessOrderCreated(ctx context.Context, orderID int) error {
	unlock := s.locks.Lock(strconv.Itoa(orderID))
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	if order.Cancelled {
		log.Printf("🚫 Order #%d already cancelled, skipping fulfillment", orderID)
		return nil
	}
	if order.EmailSent && order.StockUpdated && order.LogWritten {
		log.Printf("🔁 Order #%d already processed, ignoring redelivery", orderID)
		return nil
	}

	log.Printf("📧 [EMAIL] Sending confirmation to %s for order #%d", order.CustomerName, order.ID)

	stockOK := order.StockUpdated
	if !stockOK {
		_, stockOK, err = s.inventory.Decrease(ctx, order.ProductID, order.Quantity)
		if err != nil {
			return fmt.Errorf("failed to decrease stock for order %d: %w", orderID, err)
		}
	}

	log.Printf("📝 [AUDIT] Order #%d processed (stock ok: %v)", order.ID, stockOK)

	order.EmailSent = true
	order.StockUpdated = stockOK
	order.LogWritten = true

	if err := s.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	return nil
}

// cacheInvalidator is implemented by inventory stores that keep cached
// copies which must be dropped after a write bypasses them.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

// Cancel marks an order cancelled, first reversing the stock decrement if
// fulfillment had applied one. Cancelling an already-cancelled order is a
// no-op that returns the current state. Compensation and the order write
// go through the store's atomic CancelWithRestock, so a transient failure
// rolls both back and a retried cancel can never compensate twice;
// clearing StockUpdated in that same write keeps a still-in-flight or
// redelivered fulfillment event from treating the stock as already
// decremented.
func (s *OrderService) Cancel(ctx context.Context, orderID int) (*models.Order, error) {
	unlock := s.locks.Lock(strconv.Itoa(orderID))
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if order.Cancelled {
		return order, nil
	}

	if order.StockUpdated && order.ProductID != "" && order.Quantity > 0 {
		order.StockUpdated = false
		order.Cancelled = true

		// The restock mutates the product's quantity, so it runs inside
		// that product's critical section like every other mutation.
		unlockProduct := s.inventory.locks.Lock(order.ProductID)
		err := s.orders.CancelWithRestock(ctx, order)
		unlockProduct()
		if err != nil {
			return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
		}

		if c, ok := s.inventory.store.(cacheInvalidator); ok {
			if err := c.Invalidate(ctx, order.ProductID); err != nil {
				log.Printf("⚠️ Failed to invalidate inventory cache for %s: %v", order.ProductID, err)
			}
		}

		log.Printf("📦 [INVENTORY] Restocked product %s with %d from cancelled order #%d",
			order.ProductID, order.Quantity, orderID)
		log.Printf("🚫 Order #%d cancelled", orderID)
		return order, nil
	}

	order.Cancelled = true
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	log.Printf("🚫 Order #%d cancelled", orderID)
	return order, nil
}

// Stats classifies every order into exactly one bucket. Cancelled wins over
// everything else; processed means all three effect flags are set; failed
// means fulfillment ran but the stock decrement didn't stick; pending is
// the remainder, including orders the worker hasn't seen yet.
func (s *OrderService) Stats(ctx context.Context) (models.OrderStats, error) {
	orders, err := s.orders.GetAll(ctx)
	if err != nil {
		return models.OrderStats{}, err
	}

	stats := models.OrderStats{TotalOrders: len(orders)}
	for _, o := range orders {
		switch {
		case o.Cancelled:
			stats.CancelledOrders++
		case o.EmailSent && o.StockUpdated && o.LogWritten:
			stats.ProcessedOrders++
		case o.EmailSent && !o.StockUpdated && o.LogWritten:
			stats.FailedOrders++
		default:
			stats.PendingOrders++
		}
	}

	return stats, nil
}
