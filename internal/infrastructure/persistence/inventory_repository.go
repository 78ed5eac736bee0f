package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryRepository implements InventoryRepository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindByProductID returns the stock record of a product without locking it
func (r *GormInventoryRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*inventory.Inventory, error) {
	var model models.InventoryModel
	if err := r.db.WithContext(ctx).First(&model, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrProductNotFound.WithDetail("product_id", productID.String())
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByProductIDsForUpdate locks the stock rows of the given products with SELECT ... FOR UPDATE.
// Rows are read in ascending product id order so every transaction acquires the locks in
// the same sequence.
func (r *GormInventoryRepository) FindByProductIDsForUpdate(ctx context.Context, productIDs []uuid.UUID) ([]*inventory.Inventory, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	var rows []models.InventoryModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id IN ?", productIDs).
		Order("product_id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	out := make([]*inventory.Inventory, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a new stock record
func (r *GormInventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	if err := r.db.WithContext(ctx).Create(models.InventoryModelFromDomain(inv)).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInventoryRepository) SaveWithLock(ctx context.Context, inv *inventory.Inventory) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version-1).
		Updates(map[string]interface{}{
			"quantity_in_base_uom": inv.QuantityInBaseUOM,
			"reserved_quantity":    inv.ReservedQuantity,
			"version":              inv.Version,
			"updated_at":           inv.UpdatedAt,
		})

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.
			WithMessage("Inventory was modified by another transaction").
			WithDetail("product_id", inv.ProductID.String())
	}
	return nil
}

// Ensure GormInventoryRepository implements InventoryRepository
var _ inventory.InventoryRepository = (*GormInventoryRepository)(nil)

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends movements in one statement
func (r *GormStockMovementRepository) Create(ctx context.Context, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([]*models.StockMovementModel, len(movements))
	for i, m := range movements {
		rows[i] = models.StockMovementModelFromDomain(m)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// FindByProductID lists movements of a product, newest first
func (r *GormStockMovementRepository) FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovementModel{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	f := filter.Normalize()
	var rows []models.StockMovementModel
	if err := query.
		Order(movementSort.orderBy(f.OrderBy, f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	out := make([]inventory.StockMovement, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
