package db

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/minhtran-dev/ordersys/internal/cache"
	"github.com/minhtran-dev/ordersys/internal/models"
)

// CachedInventoryRepository wraps the Postgres inventory repository with a
// Redis read-through cache. Every mutation invalidates the touched keys so
// the worker's stock decrements are visible to cached reads immediately.
type CachedInventoryRepository struct {
	repo  *InventoryRepository
	cache *cache.RedisCache
}

func NewCachedInventoryRepository(repo *InventoryRepository, cache *cache.RedisCache) *CachedInventoryRepository {
	return &CachedInventoryRepository{
		repo:  repo,
		cache: cache,
	}
}

// Cache key helpers
func productKey(productID string) string {
	return fmt.Sprintf("inventory:product:%s", productID)
}

func inventoryKey(id int) string {
	return fmt.Sprintf("inventory:id:%d", id)
}

func allInventoryKey() string {
	return "inventory:all"
}

// GetByProductID returns the record for a product (with caching)
func (r *CachedInventoryRepository) GetByProductID(ctx context.Context, productID string) (*models.Inventory, error) {
	cacheKey := productKey(productID)

	var inv models.Inventory
	err := r.cache.Get(ctx, cacheKey, &inv)
	if err == nil {
		return &inv, nil
	}

	if err != redis.Nil {
		log.Printf("⚠️ Cache error: %v", err)
	}

	record, err := r.repo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, nil
	}

	if err := r.cache.Set(ctx, cacheKey, record); err != nil {
		log.Printf("⚠️ Failed to cache inventory: %v", err)
	}

	return record, nil
}

// GetByID returns a single record (with caching)
func (r *CachedInventoryRepository) GetByID(ctx context.Context, id int) (*models.Inventory, error) {
	cacheKey := inventoryKey(id)

	var inv models.Inventory
	err := r.cache.Get(ctx, cacheKey, &inv)
	if err == nil {
		return &inv, nil
	}

	if err != redis.Nil {
		log.Printf("⚠️ Cache error: %v", err)
	}

	record, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, nil
	}

	if err := r.cache.Set(ctx, cacheKey, record); err != nil {
		log.Printf("⚠️ Failed to cache inventory: %v", err)
	}

	return record, nil
}

// GetAll returns all records (with caching)
func (r *CachedInventoryRepository) GetAll(ctx context.Context) ([]models.Inventory, error) {
	cacheKey := allInventoryKey()

	var records []models.Inventory
	err := r.cache.Get(ctx, cacheKey, &records)
	if err == nil {
		return records, nil
	}

	records, err = r.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, records); err != nil {
		log.Printf("⚠️ Failed to cache inventory list: %v", err)
	}

	return records, nil
}

// Create inserts a new record and invalidates the list cache
func (r *CachedInventoryRepository) Create(ctx context.Context, inv *models.Inventory) error {
	if err := r.repo.Create(ctx, inv); err != nil {
		return err
	}

	r.invalidate(ctx, inv)
	return nil
}

// Update replaces a record and invalidates its cache entries
func (r *CachedInventoryRepository) Update(ctx context.Context, inv *models.Inventory) error {
	if err := r.repo.Update(ctx, inv); err != nil {
		return err
	}

	r.invalidate(ctx, inv)
	return nil
}

// Delete removes a record and invalidates its cache entries
func (r *CachedInventoryRepository) Delete(ctx context.Context, id int) error {
	// Look the record up first so the product key can be invalidated too.
	record, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	if record != nil {
		r.invalidate(ctx, record)
	} else {
		r.invalidate(ctx, &models.Inventory{ID: id})
	}
	return nil
}

// Invalidate drops the cache entries for a product. Used when a write
// bypasses this repository, such as the restock inside a cancellation
// transaction.
func (r *CachedInventoryRepository) Invalidate(ctx context.Context, productID string) error {
	keys := []string{productKey(productID), allInventoryKey()}

	record, err := r.repo.GetByProductID(ctx, productID)
	if err != nil {
		return err
	}
	if record != nil {
		keys = append(keys, inventoryKey(record.ID))
	}

	return r.cache.Delete(ctx, keys...)
}

func (r *CachedInventoryRepository) invalidate(ctx context.Context, inv *models.Inventory) {
	keys := []string{inventoryKey(inv.ID), allInventoryKey()}
	if inv.ProductID != "" {
		keys = append(keys, productKey(inv.ProductID))
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		log.Printf("⚠️ Failed to invalidate cache: %v", err)
	}
}
