package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
)

// OrderFilter narrows order listings. BuyerID and SupplierID scope the result to what a
// caller may see.
type OrderFilter struct {
	shared.Filter
	Status     *OrderStatus
	BuyerID    *uuid.UUID
	SupplierID *uuid.UUID
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID loads an order with its items. Returns shared.ErrOrderNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate loads an order with its items and holds its row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindAll lists orders (with items) matching the filter and the total count before paging
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// FindHistory returns the status chain of an order, oldest first
	FindHistory(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error)

	// Create inserts the order, its items and its pending history entries
	Create(ctx context.Context, order *Order) error

	// SaveWithLock persists status changes and pending history if the stored version is
	// order.Version-1. Returns shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, order *Order) error
}

// OrderNumberSequence hands out per-year order sequence numbers
type OrderNumberSequence interface {
	// Next increments and returns the sequence for a year. Must run inside the creating
	// transaction so a rolled back order does not leak its number.
	Next(ctx context.Context, year int) (int64, error)
}
