package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran-dev/ordersys/internal/db"
	"github.com/minhtran-dev/ordersys/internal/models"
)

// fakePublisher records published order ids instead of touching a broker.
type fakePublisher struct {
	mu       sync.Mutex
	orderIDs []int
	err      error
}

func (p *fakePublisher) PublishOrderCreated(orderID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orderIDs = append(p.orderIDs, orderID)
	return nil
}

// failingOrderStore makes every Update fail, simulating a transient
// persistence outage during fulfillment.
type failingOrderStore struct {
	*db.MemoryOrderStore
}

func (s *failingOrderStore) Update(ctx context.Context, order *models.Order) error {
	return errors.New("connection reset")
}

// flakyCancelStore fails the first N cancellation writes before anything is
// persisted, simulating a transaction that rolled back.
type flakyCancelStore struct {
	*db.MemoryOrderStore
	failures int
}

func (s *flakyCancelStore) CancelWithRestock(ctx context.Context, order *models.Order) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	return s.MemoryOrderStore.CancelWithRestock(ctx, order)
}

type testEnv struct {
	orders    *OrderService
	inventory *InventoryService
	publisher *fakePublisher
}

func newTestEnv() *testEnv {
	pub := &fakePublisher{}
	invStore := db.NewMemoryInventoryStore()
	inventory := NewInventoryService(invStore)
	orders := NewOrderService(db.NewMemoryOrderStore(invStore), inventory, pub)
	return &testEnv{orders: orders, inventory: inventory, publisher: pub}
}

func (e *testEnv) createOrder(t *testing.T, productID string, qty int) *models.Order {
	t.Helper()
	order, err := e.orders.Create(context.Background(), models.CreateOrderRequest{
		CustomerName: "Alice",
		ProductID:    productID,
		Quantity:     qty,
		TotalPrice:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) stock(t *testing.T, productID string) int {
	t.Helper()
	inv, err := e.inventory.GetOrCreate(context.Background(), productID)
	require.NoError(t, err)
	return inv.Quantity
}

func TestCreateOrder_PersistsAndPublishes(t *testing.T) {
	env := newTestEnv()

	order := env.createOrder(t, "P1", 3)

	assert.NotZero(t, order.ID)
	assert.False(t, order.EmailSent)
	assert.False(t, order.StockUpdated)
	assert.False(t, order.LogWritten)
	assert.False(t, order.Cancelled)
	assert.Equal(t, []int{order.ID}, env.publisher.orderIDs)
}

func TestCreateOrder_PublishFailureStillCreatesOrder(t *testing.T) {
	env := newTestEnv()
	env.publisher.err = errors.New("broker down")

	order := env.createOrder(t, "P1", 3)

	loaded, err := env.orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, loaded.ID)

	stats, err := env.orders.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingOrders)
}

func TestProcessOrderCreated_FulfillsAndDecrementsStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 10)
	require.NoError(t, err)
	order := env.createOrder(t, "P1", 3)

	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))

	processed, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, processed.EmailSent)
	assert.True(t, processed.StockUpdated)
	assert.True(t, processed.LogWritten)
	assert.Equal(t, 7, env.stock(t, "P1"))
}

func TestProcessOrderCreated_RedeliveryIsNoOp(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 10)
	require.NoError(t, err)
	order := env.createOrder(t, "P1", 3)

	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))
	require.Equal(t, 7, env.stock(t, "P1"))

	// Redeliver the same event several times; nothing may change.
	for i := 0; i < 3; i++ {
		require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))
	}

	assert.Equal(t, 7, env.stock(t, "P1"))
	processed, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, processed.StockUpdated)
}

func TestProcessOrderCreated_InsufficientStockIsRecordedNotErrored(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P2", 2)
	require.NoError(t, err)
	order := env.createOrder(t, "P2", 5)

	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))

	failed, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, failed.EmailSent)
	assert.False(t, failed.StockUpdated)
	assert.True(t, failed.LogWritten)
	assert.Equal(t, 2, env.stock(t, "P2"))

	stats, err := env.orders.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedOrders)
}

func TestProcessOrderCreated_RedeliveryAfterRestockCompletesOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order := env.createOrder(t, "P1", 5)
	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))

	failed, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, failed.StockUpdated)

	_, err = env.inventory.Increase(ctx, "P1", 8)
	require.NoError(t, err)

	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))

	done, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, done.StockUpdated)
	assert.Equal(t, 3, env.stock(t, "P1"))
}

func TestProcessOrderCreated_CancelledOrderIsSkipped(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 10)
	require.NoError(t, err)
	order := env.createOrder(t, "P1", 3)

	_, err = env.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))

	cancelled, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, cancelled.EmailSent)
	assert.False(t, cancelled.StockUpdated)
	assert.False(t, cancelled.LogWritten)
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, 10, env.stock(t, "P1"))
}

func TestProcessOrderCreated_UnknownOrder(t *testing.T) {
	env := newTestEnv()

	err := env.orders.ProcessOrderCreated(context.Background(), 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestProcessOrderCreated_PersistFailurePropagates(t *testing.T) {
	pub := &fakePublisher{}
	invStore := db.NewMemoryInventoryStore()
	inventory := NewInventoryService(invStore)
	store := &failingOrderStore{MemoryOrderStore: db.NewMemoryOrderStore(invStore)}
	orders := NewOrderService(store, inventory, pub)
	ctx := context.Background()

	order := &models.Order{CustomerName: "Alice", ProductID: "P1", Quantity: 1}
	require.NoError(t, store.MemoryOrderStore.Create(ctx, order))

	err := orders.ProcessOrderCreated(ctx, order.ID)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelOrder_CompensatesAppliedDecrement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 7)
	require.NoError(t, err)
	order := env.createOrder(t, "P1", 3)

	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))
	require.Equal(t, 4, env.stock(t, "P1"))

	cancelled, err := env.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)

	assert.True(t, cancelled.Cancelled)
	assert.False(t, cancelled.StockUpdated)
	assert.Equal(t, 7, env.stock(t, "P1"))

	stats, err := env.orders.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CancelledOrders)
	assert.Zero(t, stats.ProcessedOrders)
	assert.Zero(t, stats.FailedOrders)
}

func TestCancelOrder_TwiceIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 7)
	require.NoError(t, err)
	order := env.createOrder(t, "P1", 3)
	require.NoError(t, env.orders.ProcessOrderCreated(ctx, order.ID))

	first, err := env.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)
	second, err := env.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// No double compensation.
	assert.Equal(t, 7, env.stock(t, "P1"))
}

func TestCancelOrder_RetryAfterWriteFailureCompensatesOnce(t *testing.T) {
	pub := &fakePublisher{}
	invStore := db.NewMemoryInventoryStore()
	inventory := NewInventoryService(invStore)
	store := &flakyCancelStore{MemoryOrderStore: db.NewMemoryOrderStore(invStore), failures: 1}
	orders := NewOrderService(store, inventory, pub)
	ctx := context.Background()

	_, err := inventory.Increase(ctx, "P1", 10)
	require.NoError(t, err)
	order, err := orders.Create(ctx, models.CreateOrderRequest{
		CustomerName: "Alice",
		ProductID:    "P1",
		Quantity:     3,
		TotalPrice:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.NoError(t, orders.ProcessOrderCreated(ctx, order.ID))

	// The first cancellation write fails; nothing may have been persisted.
	_, err = orders.Cancel(ctx, order.ID)
	require.Error(t, err)

	inv, err := inventory.GetOrCreate(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 7, inv.Quantity)

	unchanged, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.Cancelled)
	assert.True(t, unchanged.StockUpdated)

	// The retry succeeds and compensates exactly once.
	cancelled, err := orders.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	assert.False(t, cancelled.StockUpdated)

	inv, err = inventory.GetOrCreate(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Quantity)

	// A third cancellation is a no-op.
	_, err = orders.Cancel(ctx, order.ID)
	require.NoError(t, err)
	inv, err = inventory.GetOrCreate(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Quantity)
}

func TestCancelOrder_PendingOrderNeedsNoCompensation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 10)
	require.NoError(t, err)
	order := env.createOrder(t, "P1", 3)

	cancelled, err := env.orders.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, 10, env.stock(t, "P1"))
}

func TestCancelOrder_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.orders.Cancel(context.Background(), 404)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStats_BucketsAreExclusiveAndSumToTotal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.inventory.Increase(ctx, "P1", 100)
	require.NoError(t, err)

	// Two pending orders the worker never sees.
	env.createOrder(t, "P1", 1)
	env.createOrder(t, "P1", 2)

	// One processed.
	processed := env.createOrder(t, "P1", 3)
	require.NoError(t, env.orders.ProcessOrderCreated(ctx, processed.ID))

	// One failed on stock.
	failed := env.createOrder(t, "P9", 5)
	require.NoError(t, env.orders.ProcessOrderCreated(ctx, failed.ID))

	// One cancelled after processing.
	toCancel := env.createOrder(t, "P1", 4)
	require.NoError(t, env.orders.ProcessOrderCreated(ctx, toCancel.ID))
	_, err = env.orders.Cancel(ctx, toCancel.ID)
	require.NoError(t, err)

	stats, err := env.orders.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalOrders)
	assert.Equal(t, 2, stats.PendingOrders)
	assert.Equal(t, 1, stats.ProcessedOrders)
	assert.Equal(t, 1, stats.FailedOrders)
	assert.Equal(t, 1, stats.CancelledOrders)
	assert.Equal(t, stats.TotalOrders,
		stats.PendingOrders+stats.ProcessedOrders+stats.FailedOrders+stats.CancelledOrders)
}

// Fulfillment and cancellation racing on the same order must converge:
// whatever the interleaving, the order ends cancelled with no stock held,
// so the inventory always returns to its initial level with no double
// decrement and no double compensation.
func TestConcurrentCancelAndFulfillConverge(t *testing.T) {
	const iterations = 100

	for i := 0; i < iterations; i++ {
		env := newTestEnv()
		ctx := context.Background()

		_, err := env.inventory.Increase(ctx, "P1", 10)
		require.NoError(t, err)
		order := env.createOrder(t, "P1", 3)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := env.orders.ProcessOrderCreated(ctx, order.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := env.orders.Cancel(ctx, order.ID)
			assert.NoError(t, err)
		}()
		wg.Wait()

		final, err := env.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, final.Cancelled)
		assert.False(t, final.StockUpdated)
		assert.Equal(t, 10, env.stock(t, "P1"))
	}
}
