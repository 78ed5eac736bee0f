package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InventoryModel is the persistence model for the Inventory aggregate root.
// One row per product.
type InventoryModel struct {
	AggregateModel
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventories_product"`
	SupplierID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityInBaseUOM decimal.Decimal `gorm:"column:quantity_in_base_uom;type:numeric;not null;default:0"`
	ReservedQuantity  decimal.Decimal `gorm:"type:numeric;not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryModel) TableName() string {
	return "inventories"
}

// ToDomain converts the persistence model to a domain Inventory entity.
func (m *InventoryModel) ToDomain() *inventory.Inventory {
	return &inventory.Inventory{
		BaseAggregateRoot: m.root(),
		ProductID:         m.ProductID,
		SupplierID:        m.SupplierID,
		QuantityInBaseUOM: m.QuantityInBaseUOM,
		ReservedQuantity:  m.ReservedQuantity,
	}
}

// FromDomain populates the persistence model from a domain Inventory entity.
func (m *InventoryModel) FromDomain(i *inventory.Inventory) {
	m.setRoot(i.BaseAggregateRoot)
	m.ProductID = i.ProductID
	m.SupplierID = i.SupplierID
	m.QuantityInBaseUOM = i.QuantityInBaseUOM
	m.ReservedQuantity = i.ReservedQuantity
}

// InventoryModelFromDomain creates a new persistence model from a domain Inventory entity.
func InventoryModelFromDomain(i *inventory.Inventory) *InventoryModel {
	m := &InventoryModel{}
	m.FromDomain(i)
	return m
}

// StockMovementModel is the persistence model for the append-only stock ledger.
type StockMovementModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_product_created,priority:1"`
	MovementType   string          `gorm:"type:varchar(20);not null"`
	Quantity       decimal.Decimal `gorm:"type:numeric;not null"`
	QuantityBefore decimal.Decimal `gorm:"type:numeric;not null"`
	QuantityAfter  decimal.Decimal `gorm:"type:numeric;not null"`
	OrderID        *uuid.UUID      `gorm:"type:uuid;index"`
	ActorID        uuid.UUID       `gorm:"type:uuid;not null"`
	Reason         string          `gorm:"type:varchar(500)"`
	CreatedAt      time.Time       `gorm:"not null;index:idx_stock_movements_product_created,priority:2"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement.
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.CreatedAt,
		},
		ProductID:      m.ProductID,
		Type:           inventory.MovementType(m.MovementType),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		OrderID:        m.OrderID,
		ActorID:        m.ActorID,
		Reason:         m.Reason,
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement.
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:             s.ID,
		ProductID:      s.ProductID,
		MovementType:   string(s.Type),
		Quantity:       s.Quantity,
		QuantityBefore: s.QuantityBefore,
		QuantityAfter:  s.QuantityAfter,
		OrderID:        s.OrderID,
		ActorID:        s.ActorID,
		Reason:         s.Reason,
		CreatedAt:      s.CreatedAt,
	}
}
