package inventory

import (
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInventory = "Inventory"

// Event type constants
const (
	EventTypeStockChanged = "StockChanged"
)

// StockChangedEvent is raised on every change of the stock quantity
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	OldQty       decimal.Decimal `json:"old_qty"`
	NewQty       decimal.Decimal `json:"new_qty"`
	MovementType MovementType    `json:"movement_type"`
	Reason       string          `json:"reason,omitempty"`
}

// NewStockChangedEvent creates a new StockChangedEvent
func NewStockChangedEvent(inv *Inventory, oldQty decimal.Decimal, kind MovementType, reason string) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeInventory, inv.ID),
		ProductID:       inv.ProductID,
		SupplierID:      inv.SupplierID,
		OldQty:          oldQty,
		NewQty:          inv.QuantityInBaseUOM,
		MovementType:    kind,
		Reason:          reason,
	}
}
