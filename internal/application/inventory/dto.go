package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryResponse represents a product's stock in API responses
type InventoryResponse struct {
	ProductID         uuid.UUID       `json:"product_id"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	BaseUOM           string          `json:"base_uom,omitempty"`
	QuantityInBaseUOM decimal.Decimal `json:"quantity_in_base_uom"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// StockAvailabilityResponse is the result of a stock check
type StockAvailabilityResponse struct {
	ProductID        uuid.UUID       `json:"product_id"`
	Available        bool            `json:"available"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	AvailableQty     decimal.Decimal `json:"available_qty"`
	TotalStock       decimal.Decimal `json:"total_stock"`
	Reserved         decimal.Decimal `json:"reserved"`
	BaseUOM          string          `json:"base_uom"`
}

// StockMovementResponse represents one ledger entry
type StockMovementResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	OrderID        *uuid.UUID      `json:"order_id,omitempty"`
	ActorID        uuid.UUID       `json:"actor_id"`
	Reason         string          `json:"reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CheckStockRequest asks whether a quantity can currently be deducted.
// An empty Unit means the product's base unit.
type CheckStockRequest struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	Unit      string
}

// AdjustStockRequest is a supplier restock (positive) or correction (negative)
type AdjustStockRequest struct {
	ProductID uuid.UUID
	Delta     decimal.Decimal
	Unit      string
	Reason    string
}

// MovementListFilter represents filter options for the movement list
type MovementListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToInventoryResponse converts a domain Inventory to a response
func ToInventoryResponse(inv *inventory.Inventory, baseUOM string) InventoryResponse {
	return InventoryResponse{
		ProductID:         inv.ProductID,
		SupplierID:        inv.SupplierID,
		BaseUOM:           baseUOM,
		QuantityInBaseUOM: inv.QuantityInBaseUOM,
		ReservedQuantity:  inv.ReservedQuantity,
		AvailableQuantity: inv.Available(),
		UpdatedAt:         inv.UpdatedAt,
		Version:           inv.Version,
	}
}

// ToStockMovementResponse converts a domain StockMovement to a response
func ToStockMovementResponse(m *inventory.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		Type:           string(m.Type),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		OrderID:        m.OrderID,
		ActorID:        m.ActorID,
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
	}
}
