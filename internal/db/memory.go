package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/minhtran-dev/ordersys/internal/models"
)

// MemoryOrderStore is a map-backed order store. Reads hand out copies, so
// no caller ever holds a reference into the store's own state.
type MemoryOrderStore struct {
	mu        sync.RWMutex
	nextID    int
	orders    map[int]models.Order
	inventory *MemoryInventoryStore
}

func NewMemoryOrderStore(inventory *MemoryInventoryStore) *MemoryOrderStore {
	return &MemoryOrderStore{
		nextID:    1,
		orders:    make(map[int]models.Order),
		inventory: inventory,
	}
}

func (s *MemoryOrderStore) Create(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = s.nextID
	s.nextID++
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	s.orders[order.ID] = *order
	return nil
}

func (s *MemoryOrderStore) GetByID(ctx context.Context, id int) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (s *MemoryOrderStore) GetAll(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (s *MemoryOrderStore) Update(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return fmt.Errorf("order not found")
	}
	s.orders[order.ID] = *order
	return nil
}

// CancelWithRestock persists the cancelled order and restocks its product
// under the order lock, so a failed call leaves both maps untouched.
func (s *MemoryOrderStore) CancelWithRestock(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return fmt.Errorf("order not found")
	}
	s.inventory.addQuantity(order.ProductID, order.Quantity)
	s.orders[order.ID] = *order
	return nil
}

// MemoryInventoryStore is a map-backed inventory store with the same
// snapshot semantics as MemoryOrderStore.
type MemoryInventoryStore struct {
	mu        sync.RWMutex
	nextID    int
	byID      map[int]models.Inventory
	byProduct map[string]int
}

func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{
		nextID:    1,
		byID:      make(map[int]models.Inventory),
		byProduct: make(map[string]int),
	}
}

func (s *MemoryInventoryStore) GetByProductID(ctx context.Context, productID string) (*models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byProduct[productID]
	if !ok {
		return nil, nil
	}
	inv := s.byID[id]
	return &inv, nil
}

func (s *MemoryInventoryStore) GetByID(ctx context.Context, id int) (*models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (s *MemoryInventoryStore) GetAll(ctx context.Context) ([]models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.Inventory, 0, len(s.byID))
	for _, inv := range s.byID {
		records = append(records, inv)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *MemoryInventoryStore) Create(ctx context.Context, inv *models.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byProduct[inv.ProductID]; ok {
		return fmt.Errorf("inventory already exists for product %s", inv.ProductID)
	}

	inv.ID = s.nextID
	s.nextID++
	s.byID[inv.ID] = *inv
	s.byProduct[inv.ProductID] = inv.ID
	return nil
}

func (s *MemoryInventoryStore) Update(ctx context.Context, inv *models.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[inv.ID]
	if !ok {
		return fmt.Errorf("inventory not found")
	}
	if old.ProductID != inv.ProductID {
		delete(s.byProduct, old.ProductID)
		s.byProduct[inv.ProductID] = inv.ID
	}
	s.byID[inv.ID] = *inv
	return nil
}

// addQuantity adds qty to a product's stock, creating the record when the
// product has none yet. Mirrors the upsert the SQL store runs during a
// cancellation restock.
func (s *MemoryInventoryStore) addQuantity(productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byProduct[productID]; ok {
		inv := s.byID[id]
		inv.Quantity += qty
		s.byID[id] = inv
		return
	}

	inv := models.Inventory{ID: s.nextID, ProductID: productID, Quantity: qty}
	s.nextID++
	s.byID[inv.ID] = inv
	s.byProduct[productID] = inv.ID
}

func (s *MemoryInventoryStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("inventory not found")
	}
	delete(s.byID, id)
	delete(s.byProduct, inv.ProductID)
	return nil
}
