package persistence

import (
	"context"

	"github.com/orderdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockLevelProvider answers stock-health questions for the metrics collector
type GormStockLevelProvider struct {
	db *gorm.DB
}

// NewGormStockLevelProvider creates a new GormStockLevelProvider
func NewGormStockLevelProvider(db *gorm.DB) *GormStockLevelProvider {
	return &GormStockLevelProvider{db: db}
}

// CountOutOfStock counts active products whose available quantity is zero or below
func (p *GormStockLevelProvider) CountOutOfStock(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&models.InventoryModel{}).
		Joins("JOIN products ON products.id = inventories.product_id").
		Where("products.is_active = ?", true).
		Where("inventories.quantity_in_base_uom - inventories.reserved_quantity <= 0").
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}
