package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/trade"
	"github.com/orderdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an order with its items and locks the order row (SELECT ... FOR UPDATE).
// Item rows are immutable and are read without a lock.
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormOrderRepository) findOne(query *gorm.DB, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := query.Preload("Items", preloadItems).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrOrderNotFound.WithDetail("order_id", id.String())
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds orders matching the filter and the total count before paging
func (r *GormOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]trade.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.BuyerID != nil {
		query = query.Where("buyer_id = ?", *filter.BuyerID)
	}
	if filter.SupplierID != nil {
		query = query.Where("id IN (?)",
			r.db.WithContext(ctx).Model(&models.OrderItemModel{}).
				Select("order_id").
				Where("supplier_id = ?", *filter.SupplierID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	f := filter.Filter.Normalize()
	var rows []models.OrderModel
	if err := query.
		Preload("Items", preloadItems).
		Order(orderSort.orderBy(f.OrderBy, f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	out := make([]trade.Order, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// FindHistory returns the status chain of an order, oldest first
func (r *GormOrderRepository) FindHistory(ctx context.Context, orderID uuid.UUID) ([]trade.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistoryModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	out := make([]trade.OrderStatusHistory, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts the order together with its items and pending history
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(models.OrderModelFromDomain(order)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.WithMessage("Order already exists").
				WithDetail("order_number", order.OrderNumber)
		}
		return translateError(err)
	}
	if err := r.insertHistory(db, order); err != nil {
		return err
	}
	return nil
}

// SaveWithLock saves status changes with optimistic locking (checks version)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	result := db.
		Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version-1).
		Updates(map[string]interface{}{
			"status":     order.Status.String(),
			"version":    order.Version,
			"updated_at": order.UpdatedAt,
		})

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.
			WithMessage("Order was modified by another transaction").
			WithDetail("order_id", order.ID.String())
	}
	return r.insertHistory(db, order)
}

func (r *GormOrderRepository) insertHistory(db *gorm.DB, order *trade.Order) error {
	pending := order.PendingHistory()
	if len(pending) == 0 {
		return nil
	}
	rows := make([]*models.OrderStatusHistoryModel, len(pending))
	for i := range pending {
		rows[i] = models.OrderStatusHistoryModelFromDomain(&pending[i])
	}
	if err := db.Create(&rows).Error; err != nil {
		return translateError(err)
	}
	order.ClearPendingHistory()
	return nil
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)

// GormOrderNumberSequence implements OrderNumberSequence on the order_number_sequences table.
// The upsert takes the row lock of the year, so concurrent creators are serialized until
// their transactions end.
type GormOrderNumberSequence struct {
	db *gorm.DB
}

// NewGormOrderNumberSequence creates a new GormOrderNumberSequence
func NewGormOrderNumberSequence(db *gorm.DB) *GormOrderNumberSequence {
	return &GormOrderNumberSequence{db: db}
}

// Next increments and returns the sequence of a year, starting at 1
func (s *GormOrderNumberSequence) Next(ctx context.Context, year int) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO order_number_sequences (year, last_value) VALUES (?, 1)
		 ON CONFLICT (year) DO UPDATE SET last_value = order_number_sequences.last_value + 1
		 RETURNING last_value`, year,
	).Scan(&next).Error
	if err != nil {
		return 0, translateError(err)
	}
	return next, nil
}

// Ensure GormOrderNumberSequence implements OrderNumberSequence
var _ trade.OrderNumberSequence = (*GormOrderNumberSequence)(nil)
