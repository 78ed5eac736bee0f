// Package sqlitetest opens throwaway in-memory SQLite databases with the full schema, for
// repository and service tests that need real SQL without a Postgres server.
package sqlitetest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/orderdesk/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns an in-memory database migrated with every model.
// The pool is capped at one connection so transactions run one at a time, standing in
// for the row locks SQLite lacks.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Product describes a catalog row seeded by SeedProduct
type Product struct {
	SupplierID uuid.UUID
	Name       string
	BaseUOM    valueobject.UnitCode
	Factor     decimal.Decimal
	Price      decimal.Decimal
	Stock      decimal.Decimal
}

// SeedProduct inserts an active product and its inventory row directly through the models
func SeedProduct(t *testing.T, db *gorm.DB, p Product) *catalog.Product {
	t.Helper()
	if p.BaseUOM == "" {
		p.BaseUOM = valueobject.UnitGram
	}
	if p.Name == "" {
		p.Name = "Product " + uuid.NewString()[:8]
	}

	product, err := catalog.NewProduct(p.SupplierID, p.Name, "", p.BaseUOM, p.Factor, p.Price)
	require.NoError(t, err)
	inv, err := inventory.NewInventory(product.ID, p.SupplierID)
	require.NoError(t, err)
	inv.QuantityInBaseUOM = p.Stock

	require.NoError(t, db.Create(models.ProductModelFromDomain(product)).Error)
	require.NoError(t, db.Create(models.InventoryModelFromDomain(inv)).Error)
	product.TakeEvents()
	return product
}
