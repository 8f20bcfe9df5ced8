package models

// Inventory tracks the on-hand quantity for one product. Quantity is
// never negative; all mutation goes through the inventory service.
type Inventory struct {
	ID        int    `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type InventoryRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gte=0"`
}
