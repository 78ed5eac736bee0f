package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	SupplierID *uuid.UUID
	ActiveOnly bool
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID. Returns shared.ErrProductNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs; missing ids are simply absent from the result
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindAll finds products matching the filter and returns the total count before paging
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)

	// Create inserts a new product. Returns shared.ErrAlreadyExists on a duplicate SKU.
	Create(ctx context.Context, product *Product) error

	// SaveWithLock persists changes if the stored version is product.Version-1.
	// Returns shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, product *Product) error

	// ExistsBySKU checks if a product with the given SKU exists
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
}
