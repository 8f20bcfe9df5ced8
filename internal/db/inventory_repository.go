package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/minhtran-dev/ordersys/internal/models"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(database *PostgresDB) *InventoryRepository {
	return &InventoryRepository{db: database.Conn}
}

// GetByProductID returns the record for a product, or nil if it doesn't exist
func (r *InventoryRepository) GetByProductID(ctx context.Context, productID string) (*models.Inventory, error) {
	query := "SELECT id, product_id, quantity FROM inventory WHERE product_id = $1"

	var inv models.Inventory
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&inv.ID, &inv.ProductID, &inv.Quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return &inv, nil
}

// GetByID returns a single inventory record, or nil if it doesn't exist
func (r *InventoryRepository) GetByID(ctx context.Context, id int) (*models.Inventory, error) {
	query := "SELECT id, product_id, quantity FROM inventory WHERE id = $1"

	var inv models.Inventory
	err := r.db.QueryRowContext(ctx, query, id).Scan(&inv.ID, &inv.ProductID, &inv.Quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return &inv, nil
}

// GetAll returns all inventory records
func (r *InventoryRepository) GetAll(ctx context.Context) ([]models.Inventory, error) {
	query := "SELECT id, product_id, quantity FROM inventory ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var records []models.Inventory
	for rows.Next() {
		var inv models.Inventory
		if err := rows.Scan(&inv.ID, &inv.ProductID, &inv.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		records = append(records, inv)
	}

	return records, rows.Err()
}

// Create inserts a new inventory record
func (r *InventoryRepository) Create(ctx context.Context, inv *models.Inventory) error {
	query := `
		INSERT INTO inventory (product_id, quantity)
		VALUES ($1, $2)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, inv.ProductID, inv.Quantity).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create inventory: %w", err)
	}

	return nil
}

// Update replaces the mutable fields of an inventory record
func (r *InventoryRepository) Update(ctx context.Context, inv *models.Inventory) error {
	query := "UPDATE inventory SET product_id = $1, quantity = $2 WHERE id = $3"

	result, err := r.db.ExecContext(ctx, query, inv.ProductID, inv.Quantity, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("inventory not found")
	}

	return nil
}

// Delete removes an inventory record
func (r *InventoryRepository) Delete(ctx context.Context, id int) error {
	query := "DELETE FROM inventory WHERE id = $1"

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("inventory not found")
	}

	return nil
}
