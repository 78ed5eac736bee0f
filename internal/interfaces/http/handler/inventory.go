package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/orderdesk/backend/internal/application/inventory"
	"github.com/shopspring/decimal"
)

// InventoryHandler handles stock endpoints nested under a product
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// AdjustStockRequest represents a supplier restock or correction
// @Description Positive delta restocks, negative delta corrects downwards. Unit defaults to the product's base unit.
type AdjustStockRequest struct {
	Delta  decimal.Decimal `json:"delta" binding:"required" swaggertype:"string" example:"12.5"`
	Unit   string          `json:"unit" binding:"omitempty,uom" example:"KG"`
	Reason string          `json:"reason" binding:"max=500" example:"Weekly restock"`
}

// CheckStockQuery represents the stock check query string
type CheckStockQuery struct {
	Quantity decimal.Decimal `form:"quantity" binding:"decimal_non_negative"`
	Unit     string          `form:"unit" binding:"omitempty,uom"`
}

// GetInventory godoc
// @ID           getInventory
// @Summary      Get a product's stock
// @Tags         inventory
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.InventoryResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id}/stock [get]
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	if _, ok := h.actorFrom(c); !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}

	inv, err := h.inventoryService.GetInventory(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// CheckStock godoc
// @ID           checkStock
// @Summary      Check stock availability
// @Description  Reports whether the quantity could be deducted right now. Nothing is reserved.
// @Tags         inventory
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role"
// @Param        id path string true "Product ID" format(uuid)
// @Param        quantity query string true "Quantity in the given unit"
// @Param        unit query string false "Unit code, defaults to the base unit"
// @Success      200 {object} APIResponse[inventoryapp.StockAvailabilityResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /products/{id}/stock/check [get]
func (h *InventoryHandler) CheckStock(c *gin.Context) {
	if _, ok := h.actorFrom(c); !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}
	var query CheckStockQuery
	if !h.bindQuery(c, &query) {
		return
	}

	result, err := h.inventoryService.CheckStock(c.Request.Context(), inventoryapp.CheckStockRequest{
		ProductID: productID,
		Quantity:  query.Quantity,
		Unit:      query.Unit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AdjustStock godoc
// @ID           adjustStock
// @Summary      Adjust a product's stock
// @Description  Owning supplier or admin only. The result may never drop below zero.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role" Enums(SUPPLIER, ADMIN)
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body AdjustStockRequest true "Adjustment"
// @Success      200 {object} APIResponse[inventoryapp.InventoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /products/{id}/stock/adjustments [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}
	var req AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.inventoryService.AdjustStock(c.Request.Context(), actor, inventoryapp.AdjustStockRequest{
		ProductID: productID,
		Delta:     req.Delta,
		Unit:      req.Unit,
		Reason:    req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// ListMovements godoc
// @ID           listStockMovements
// @Summary      List a product's stock movements
// @Description  Newest first. Owning supplier or admin only.
// @Tags         inventory
// @Produce      json
// @Param        X-User-ID header string true "Caller ID" format(uuid)
// @Param        X-User-Role header string true "Caller role" Enums(SUPPLIER, ADMIN)
// @Param        id path string true "Product ID" format(uuid)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]inventoryapp.StockMovementResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id}/stock/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", "product")
	if !ok {
		return
	}
	var filter inventoryapp.MovementListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	movements, total, err := h.inventoryService.ListMovements(c.Request.Context(), actor, productID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pageOrDefault(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, movements, total, page, pageSize)
}
