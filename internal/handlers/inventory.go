package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/ordersys/internal/models"
	"github.com/minhtran-dev/ordersys/internal/service"
)

type InventoryHandler struct {
	inventory *service.InventoryService
}

func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// IncreaseStock adds stock for a product via query parameters
func (h *InventoryHandler) IncreaseStock(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	qty, err := strconv.Atoi(c.Query("quantity"))
	if err != nil || qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
		return
	}

	inv, err := h.inventory.Increase(c.Request.Context(), productID, qty)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inv)
}

// DecreaseStock removes stock for a product if enough is on hand. An
// insufficient balance is reported in the response, not as an error.
func (h *InventoryHandler) DecreaseStock(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	qty, err := strconv.Atoi(c.Query("quantity"))
	if err != nil || qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
		return
	}

	inv, ok, err := h.inventory.Decrease(c.Request.Context(), productID, qty)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": inv.ProductID,
		"quantity":   inv.Quantity,
		"decreased":  ok,
	})
}

// GetInventory returns the record for a product, creating it if absent
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	productID := c.Param("productId")

	inv, err := h.inventory.GetOrCreate(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inv)
}

// ListInventories returns all inventory records
func (h *InventoryHandler) ListInventories(c *gin.Context) {
	records, err := h.inventory.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// CreateInventory creates a record or overwrites the quantity of an
// existing one
func (h *InventoryHandler) CreateInventory(c *gin.Context) {
	var req models.InventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.inventory.CreateOrReplace(c.Request.Context(), req.ProductID, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// UpdateInventory rewrites a record by its row id
func (h *InventoryHandler) UpdateInventory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inventory ID"})
		return
	}

	var req models.InventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.inventory.UpdateByID(c.Request.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrInventoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inv)
}

// DeleteInventory removes a record by its row id
func (h *InventoryHandler) DeleteInventory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inventory ID"})
		return
	}

	if err := h.inventory.DeleteByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrInventoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
