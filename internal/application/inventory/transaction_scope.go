package inventory

import (
	"context"

	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
)

// TransactionScope runs fn in one database transaction, committing when fn
// returns nil and rolling back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are bound to the transaction of the Execute call
// that produced them and must not escape it.
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	InventoryRepo() inventory.InventoryRepository
	MovementRepo() inventory.StockMovementRepository // append-only
}
