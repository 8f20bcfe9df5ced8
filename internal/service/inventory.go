package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/minhtran-dev/ordersys/internal/models"
)

// InventoryService owns all quantity mutation. Every read-modify-write on a
// product runs inside that product's critical section, so concurrent
// increases and decreases on the same product are serialized while
// different products proceed in parallel.
type InventoryService struct {
	store InventoryStore
	locks *keyedMutex
}

func NewInventoryService(store InventoryStore) *InventoryService {
	return &InventoryService{
		store: store,
		locks: newKeyedMutex(),
	}
}

// GetOrCreate returns the record for a product, creating it with quantity 0
// on first reference.
func (s *InventoryService) GetOrCreate(ctx context.Context, productID string) (*models.Inventory, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	return s.getOrCreateLocked(ctx, productID)
}

// getOrCreateLocked must be called with the product's lock held.
func (s *InventoryService) getOrCreateLocked(ctx context.Context, productID string) (*models.Inventory, error) {
	inv, err := s.store.GetByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return inv, nil
	}

	inv = &models.Inventory{ProductID: productID, Quantity: 0}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}

	log.Printf("🆕 [INVENTORY] Created inventory for product %s with quantity 0", productID)
	return inv, nil
}

// Increase adds qty to the product's quantity, creating the record first if
// it doesn't exist yet.
func (s *InventoryService) Increase(ctx context.Context, productID string, qty int) (*models.Inventory, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", qty)
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	inv, err := s.getOrCreateLocked(ctx, productID)
	if err != nil {
		return nil, err
	}

	before := inv.Quantity
	inv.Quantity = before + qty
	if err := s.store.Update(ctx, inv); err != nil {
		return nil, err
	}

	log.Printf("📦 [INVENTORY] Increased product %s: %d -> %d", productID, before, inv.Quantity)
	return inv, nil
}

// Decrease subtracts qty from the product's quantity if enough stock is on
// hand and reports whether it did. Quantity never goes below zero; an
// insufficient balance leaves the record untouched and returns false. The
// returned record is the state observed inside the critical section, so
// callers report a quantity consistent with their own write.
func (s *InventoryService) Decrease(ctx context.Context, productID string, qty int) (*models.Inventory, bool, error) {
	if qty <= 0 {
		return nil, false, fmt.Errorf("quantity must be positive, got %d", qty)
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	inv, err := s.getOrCreateLocked(ctx, productID)
	if err != nil {
		return nil, false, err
	}

	before := inv.Quantity
	if before < qty {
		log.Printf("⚠️ [INVENTORY] Not enough stock for product %s: have %d, need %d", productID, before, qty)
		return inv, false, nil
	}

	inv.Quantity = before - qty
	if err := s.store.Update(ctx, inv); err != nil {
		return nil, false, err
	}

	log.Printf("📦 [INVENTORY] Decreased product %s: %d -> %d", productID, before, inv.Quantity)
	return inv, true, nil
}

// List returns all inventory records.
func (s *InventoryService) List(ctx context.Context) ([]models.Inventory, error) {
	return s.store.GetAll(ctx)
}

// CreateOrReplace sets the quantity for a product, creating the record if
// it doesn't exist and overwriting the quantity if it does.
func (s *InventoryService) CreateOrReplace(ctx context.Context, productID string, qty int) (*models.Inventory, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	inv, err := s.store.GetByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if inv != nil {
		inv.Quantity = qty
		if err := s.store.Update(ctx, inv); err != nil {
			return nil, err
		}
		return inv, nil
	}

	inv = &models.Inventory{ProductID: productID, Quantity: qty}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateByID rewrites an inventory record by its row id. When the update
// moves the record to a new product id, both products' locks are held (in
// sorted order) so no concurrent write on either id can interleave.
func (s *InventoryService) UpdateByID(ctx context.Context, id int, productID string, qty int) (*models.Inventory, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}

	keys := []string{inv.ProductID}
	if productID != inv.ProductID {
		keys = append(keys, productID)
		sort.Strings(keys)
	}
	for _, key := range keys {
		unlock := s.locks.Lock(key)
		defer unlock()
	}

	// Re-read under the locks: the record may have moved between the first
	// lookup and lock acquisition.
	inv, err = s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}

	if productID != inv.ProductID {
		existing, err := s.store.GetByProductID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, fmt.Errorf("inventory already exists for product %s", productID)
		}
	}

	inv.ProductID = productID
	inv.Quantity = qty
	if err := s.store.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// DeleteByID removes an inventory record by its row id.
func (s *InventoryService) DeleteByID(ctx context.Context, id int) error {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv == nil {
		return ErrInventoryNotFound
	}

	unlock := s.locks.Lock(inv.ProductID)
	defer unlock()

	return s.store.Delete(ctx, id)
}
