package inventory

import (
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Inventory is the stock record of one product, in the product's base unit.
// Invariants: QuantityInBaseUOM >= 0 and 0 <= ReservedQuantity <= QuantityInBaseUOM.
type Inventory struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID
	SupplierID        uuid.UUID
	QuantityInBaseUOM decimal.Decimal
	ReservedQuantity  decimal.Decimal
}

// StockAvailability is the result of an availability check
type StockAvailability struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Available    bool            `json:"available"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	TotalStock   decimal.Decimal `json:"total_stock"`
	Reserved     decimal.Decimal `json:"reserved"`
}

// MovementRef carries who and what triggered a stock change
type MovementRef struct {
	OrderID *uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

// NewInventory creates the zero-stock record that accompanies a new product
func NewInventory(productID, supplierID uuid.UUID) (*Inventory, error) {
	if productID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Product ID cannot be empty")
	}
	return &Inventory{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		SupplierID:        supplierID,
		QuantityInBaseUOM: decimal.Zero,
		ReservedQuantity:  decimal.Zero,
	}, nil
}

// Available returns the stock that can still be deducted
func (i *Inventory) Available() decimal.Decimal {
	return i.QuantityInBaseUOM.Sub(i.ReservedQuantity)
}

// CheckAvailability reports whether required base units can be deducted right now
func (i *Inventory) CheckAvailability(required decimal.Decimal) StockAvailability {
	available := i.Available()
	return StockAvailability{
		ProductID:    i.ProductID,
		Available:    available.GreaterThanOrEqual(required),
		AvailableQty: available,
		TotalStock:   i.QuantityInBaseUOM,
		Reserved:     i.ReservedQuantity,
	}
}

// Deduct removes quantity from stock. The availability check runs against the current state,
// so callers must hold the row lock for the surrounding transaction.
func (i *Inventory) Deduct(quantity decimal.Decimal, ref MovementRef) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Deduct quantity must be positive")
	}
	available := i.Available()
	if available.LessThan(quantity) {
		return nil, InsufficientStockError(i.ProductID, available, quantity)
	}

	return i.apply(MovementTypeDeduct, quantity.Neg(), ref), nil
}

// Restore adds back quantity that an earlier Deduct removed
func (i *Inventory) Restore(quantity decimal.Decimal, ref MovementRef) (*StockMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Restore quantity must be positive")
	}

	return i.apply(MovementTypeRestore, quantity, ref), nil
}

// Adjust applies a supplier restock (positive delta) or correction (negative delta).
// The result may not go below zero nor below the reserved quantity.
func (i *Inventory) Adjust(delta decimal.Decimal, ref MovementRef) (*StockMovement, error) {
	if delta.IsZero() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Adjustment cannot be zero")
	}
	result := i.QuantityInBaseUOM.Add(delta)
	if result.IsNegative() || result.LessThan(i.ReservedQuantity) {
		return nil, shared.ErrNegativeStockRejected.
			WithDetail("product_id", i.ProductID.String()).
			WithDetail("current", i.QuantityInBaseUOM.String()).
			WithDetail("delta", delta.String())
	}

	return i.apply(MovementTypeAdjust, delta, ref), nil
}

func (i *Inventory) apply(kind MovementType, delta decimal.Decimal, ref MovementRef) *StockMovement {
	before := i.QuantityInBaseUOM
	i.QuantityInBaseUOM = before.Add(delta)
	i.Changed(NewStockChangedEvent(i, before, kind, ref.Reason))
	return newStockMovement(i.ProductID, kind, delta, before, i.QuantityInBaseUOM, ref)
}

// InsufficientStockError builds INSUFFICIENT_STOCK with the amounts involved
func InsufficientStockError(productID uuid.UUID, available, required decimal.Decimal) *shared.DomainError {
	return shared.ErrInsufficientStock.
		WithMessage("Insufficient stock for product "+productID.String()).
		WithDetail("product_id", productID.String()).
		WithDetail("available", available.String()).
		WithDetail("required", required.String())
}
