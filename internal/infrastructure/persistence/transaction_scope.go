package persistence

import (
	"context"

	appinv "github.com/orderdesk/backend/internal/application/inventory"
	apptrade "github.com/orderdesk/backend/internal/application/trade"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements the catalog and stock TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return runInTransaction(ctx, s.db, func(repos *gormTransactionalRepositories) error {
		return fn(repos)
	})
}

// GormOrderTransactionScope is the order workflow variant of GormTransactionScope. Its
// repositories additionally expose orders and the order number sequence.
type GormOrderTransactionScope struct {
	db *gorm.DB
}

// NewGormOrderTransactionScope creates a new GormOrderTransactionScope.
func NewGormOrderTransactionScope(db *gorm.DB) *GormOrderTransactionScope {
	return &GormOrderTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormOrderTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return runInTransaction(ctx, s.db, func(repos *gormTransactionalRepositories) error {
		return fn(repos)
	})
}

func runInTransaction(ctx context.Context, db *gorm.DB, fn func(repos *gormTransactionalRepositories) error) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	// serialization failures surface at COMMIT as well
	return translateError(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ProductRepo returns the product repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// InventoryRepo returns the inventory repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InventoryRepo() inventory.InventoryRepository {
	return NewGormInventoryRepository(r.tx)
}

// MovementRepo returns the stock movement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// OrderNumbers returns the order number sequence scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderNumbers() trade.OrderNumberSequence {
	return NewGormOrderNumberSequence(r.tx)
}

var (
	_ appinv.TransactionScope            = (*GormTransactionScope)(nil)
	_ apptrade.TransactionScope          = (*GormOrderTransactionScope)(nil)
	_ appinv.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
	_ apptrade.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
