package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/minhtran-dev/ordersys/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(database *PostgresDB) *OrderRepository {
	return &OrderRepository{db: database.Conn}
}

// Create inserts a new order with all processing flags false
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (customer_name, product_id, quantity, total_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		order.CustomerName, order.ProductID, order.Quantity, order.TotalPrice).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID returns a single order, or nil if it doesn't exist
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	query := `
		SELECT id, customer_name, product_id, quantity, total_price, created_at,
		       email_sent, stock_updated, log_written, cancelled
		FROM orders WHERE id = $1
	`

	var o models.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.CustomerName, &o.ProductID, &o.Quantity, &o.TotalPrice, &o.CreatedAt,
		&o.EmailSent, &o.StockUpdated, &o.LogWritten, &o.Cancelled,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}

// GetAll returns all orders
func (r *OrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	query := `
		SELECT id, customer_name, product_id, quantity, total_price, created_at,
		       email_sent, stock_updated, log_written, cancelled
		FROM orders ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.CustomerName, &o.ProductID, &o.Quantity, &o.TotalPrice, &o.CreatedAt,
			&o.EmailSent, &o.StockUpdated, &o.LogWritten, &o.Cancelled,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// CancelWithRestock persists a cancelled order and adds its quantity back
// to its product's stock in a single transaction, so a failure leaves
// neither write behind.
func (r *OrderRepository) CancelWithRestock(ctx context.Context, order *models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invQuery := `
		INSERT INTO inventory (product_id, quantity)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity
	`
	if _, err := tx.ExecContext(ctx, invQuery, order.ProductID, order.Quantity); err != nil {
		return fmt.Errorf("failed to restock inventory: %w", err)
	}

	orderQuery := `
		UPDATE orders
		SET email_sent = $1, stock_updated = $2, log_written = $3, cancelled = $4
		WHERE id = $5
	`
	result, err := tx.ExecContext(ctx, orderQuery,
		order.EmailSent, order.StockUpdated, order.LogWritten, order.Cancelled, order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("order not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update replaces the mutable fields of an order
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET customer_name = $1, product_id = $2, quantity = $3, total_price = $4,
		    email_sent = $5, stock_updated = $6, log_written = $7, cancelled = $8
		WHERE id = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		order.CustomerName, order.ProductID, order.Quantity, order.TotalPrice,
		order.EmailSent, order.StockUpdated, order.LogWritten, order.Cancelled,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("order not found")
	}

	return nil
}
