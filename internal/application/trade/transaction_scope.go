package trade

import (
	"context"

	appinv "github.com/orderdesk/backend/internal/application/inventory"
	"github.com/orderdesk/backend/internal/domain/trade"
)

// TransactionScope runs order workflows atomically.
// Every repository handed to fn shares one database transaction; returning an error rolls
// back the order, its history and all stock changes together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories extends the stock repositories with order persistence
type TransactionalRepositories interface {
	appinv.TransactionalRepositories
	OrderRepo() trade.OrderRepository
	OrderNumbers() trade.OrderNumberSequence
}
