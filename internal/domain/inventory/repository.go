package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// InventoryRepository defines the interface for inventory persistence
type InventoryRepository interface {
	// FindByProductID returns the stock record of a product without locking it.
	// Returns shared.ErrProductNotFound if the product has no stock record.
	FindByProductID(ctx context.Context, productID uuid.UUID) (*Inventory, error)

	// FindByProductIDsForUpdate locks and returns the stock records of the given products.
	// Rows are locked in ascending product id order. Missing records are absent from the result.
	FindByProductIDsForUpdate(ctx context.Context, productIDs []uuid.UUID) ([]*Inventory, error)

	// Create inserts a new stock record
	Create(ctx context.Context, inv *Inventory) error

	// SaveWithLock persists quantity changes if the stored version is inv.Version-1.
	// Returns shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, inv *Inventory) error
}

// StockMovementRepository is the append-only store for stock movements
type StockMovementRepository interface {
	// Create appends movements
	Create(ctx context.Context, movements ...*StockMovement) error

	// FindByProductID lists movements of a product, newest first
	FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockMovement, int64, error)
}
