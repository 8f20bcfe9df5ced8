package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer order plus the processing state the background
// worker maintains. EmailSent, StockUpdated and LogWritten record which
// fulfillment side effects have been applied; Cancelled is only ever set
// by cancellation, which may also clear StockUpdated when it compensates
// a previous stock decrement.
type Order struct {
	ID           int             `json:"id"`
	CustomerName string          `json:"customer_name"`
	ProductID    string          `json:"product_id"`
	Quantity     int             `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`

	EmailSent    bool `json:"email_sent"`
	StockUpdated bool `json:"stock_updated"`
	LogWritten   bool `json:"log_written"`
	Cancelled    bool `json:"cancelled"`
}

type CreateOrderRequest struct {
	CustomerName string          `json:"customer_name" binding:"required"`
	ProductID    string          `json:"product_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required,gt=0"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// OrderStats is recomputed from the full order set on every call. The
// four buckets are mutually exclusive and always sum to TotalOrders.
type OrderStats struct {
	TotalOrders     int `json:"total_orders"`
	ProcessedOrders int `json:"processed_orders"`
	PendingOrders   int `json:"pending_orders"`
	FailedOrders    int `json:"failed_orders"`
	CancelledOrders int `json:"cancelled_orders"`
}
