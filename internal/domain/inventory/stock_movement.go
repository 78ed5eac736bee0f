package inventory

import (
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeDeduct  MovementType = "DEDUCT"
	MovementTypeRestore MovementType = "RESTORE"
	MovementTypeAdjust  MovementType = "ADJUST"
)

// StockMovement is an immutable ledger entry written with every stock change
type StockMovement struct {
	shared.BaseEntity
	ProductID      uuid.UUID
	Type           MovementType
	Quantity       decimal.Decimal // signed change in base units
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal
	OrderID        *uuid.UUID
	ActorID        uuid.UUID
	Reason         string
}

func newStockMovement(productID uuid.UUID, kind MovementType, delta, before, after decimal.Decimal, ref MovementRef) *StockMovement {
	return &StockMovement{
		BaseEntity:     shared.NewBaseEntity(),
		ProductID:      productID,
		Type:           kind,
		Quantity:       delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		OrderID:        ref.OrderID,
		ActorID:        ref.ActorID,
		Reason:         ref.Reason,
	}
}
