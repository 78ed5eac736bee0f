package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/service"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockMetrics receives stock counters
type StockMetrics interface {
	RecordStockAdjustment(ctx context.Context, delta decimal.Decimal)
	RecordStockRejection(ctx context.Context, code string)
}

type noopStockMetrics struct{}

func (noopStockMetrics) RecordStockAdjustment(context.Context, decimal.Decimal) {}
func (noopStockMetrics) RecordStockRejection(context.Context, string)           {}

// InventoryService handles stock queries and supplier stock adjustments
type InventoryService struct {
	txScope        TransactionScope
	productRepo    catalog.ProductRepository
	inventoryRepo  inventory.InventoryRepository
	movementRepo   inventory.StockMovementRepository
	ledger         *Ledger
	conv           *service.UnitConversionService
	eventPublisher shared.EventPublisher
	metrics        StockMetrics
	retry          RetryPolicy
	logger         *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	txScope TransactionScope,
	productRepo catalog.ProductRepository,
	inventoryRepo inventory.InventoryRepository,
	movementRepo inventory.StockMovementRepository,
	logger *zap.Logger,
) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		txScope:       txScope,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		movementRepo:  movementRepo,
		ledger:        NewLedger(),
		conv:          service.NewUnitConversionService(),
		metrics:       noopStockMetrics{},
		retry:         DefaultRetryPolicy(),
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (s *InventoryService) SetMetrics(metrics StockMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetRetryPolicy overrides the conflict retry policy
func (s *InventoryService) SetRetryPolicy(policy RetryPolicy) {
	s.retry = policy
}

// publishDomainEvents publishes all pending domain events of the aggregate
func (s *InventoryService) publishDomainEvents(ctx context.Context, aggregates ...shared.EventSource) {
	PublishDomainEvents(ctx, s.eventPublisher, aggregates...)
}

// PublishDomainEvents publishes and clears the pending events of committed aggregates.
// Errors are logged by the event bus, not propagated.
func PublishDomainEvents(ctx context.Context, publisher shared.EventPublisher, aggregates ...shared.EventSource) {
	if publisher == nil {
		return
	}
	for _, agg := range aggregates {
		if events := agg.TakeEvents(); len(events) > 0 {
			_ = publisher.Publish(ctx, events...)
		}
	}
}

// GetInventory returns the stock record of a product
func (s *InventoryService) GetInventory(ctx context.Context, productID uuid.UUID) (*InventoryResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	inv, err := s.inventoryRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	resp := ToInventoryResponse(inv, product.BaseUOM.String())
	return &resp, nil
}

// CheckStock reports whether the requested quantity could be deducted right now.
// It is a plain read and reserves nothing.
func (s *InventoryService) CheckStock(ctx context.Context, req CheckStockRequest) (*StockAvailabilityResponse, error) {
	if req.Quantity.IsNegative() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Required quantity cannot be negative")
	}
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	required := req.Quantity
	if strings.TrimSpace(req.Unit) != "" {
		unit, err := valueobject.ParseUnitCode(req.Unit)
		if err != nil {
			return nil, shared.ErrInvalidInput.WithMessage(err.Error())
		}
		required, err = product.ToBaseQuantity(s.conv, req.Quantity, unit)
		if err != nil {
			return nil, err
		}
	}

	inv, err := s.inventoryRepo.FindByProductID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	res := inv.CheckAvailability(required)
	return &StockAvailabilityResponse{
		ProductID:        res.ProductID,
		Available:        res.Available,
		RequiredQuantity: required,
		AvailableQty:     res.AvailableQty,
		TotalStock:       res.TotalStock,
		Reserved:         res.Reserved,
		BaseUOM:          product.BaseUOM.String(),
	}, nil
}

// AdjustStock applies a supplier restock or correction. The delta is converted into the
// product's base unit first (an empty unit means the base unit); the result may not drop
// below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, actor shared.Actor, req AdjustStockRequest) (*InventoryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "adjust_stock",
		telemetry.ProductID(req.ProductID),
		telemetry.Quantity(req.Delta),
		telemetry.Unit(req.Unit),
		telemetry.ActorID(actor.ID),
	)
	defer span.End()

	if err := actor.Require(shared.RoleSupplier, shared.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Delta.IsZero() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Adjustment cannot be zero")
	}
	if err := valueobject.ValidateInputQuantity(req.Delta.Abs()); err != nil {
		return nil, shared.ErrInvalidQuantity.WithMessage(err.Error())
	}
	var unit valueobject.UnitCode
	if strings.TrimSpace(req.Unit) != "" {
		parsed, err := valueobject.ParseUnitCode(req.Unit)
		if err != nil {
			return nil, shared.ErrInvalidInput.WithMessage(err.Error())
		}
		unit = parsed
	}

	var result *inventory.Inventory
	var baseUOM string
	var baseDelta decimal.Decimal
	err := RetryOnConflict(ctx, s.retry, s.logger, "adjust_stock", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			product, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
			if err != nil {
				return err
			}
			if !product.CanBeManagedBy(actor) {
				return shared.ErrForbidden.WithMessage("Only the owning supplier may adjust this product's stock")
			}
			from := unit
			if from == "" {
				from = product.BaseUOM
			}
			delta, err := product.ToBaseQuantity(s.conv, req.Delta, from)
			if err != nil {
				return err
			}
			inv, err := s.ledger.Adjust(ctx, repos, product.ID, delta, inventory.MovementRef{
				ActorID: actor.ID,
				Reason:  req.Reason,
			})
			if err != nil {
				return err
			}
			result = inv
			baseUOM = product.BaseUOM.String()
			baseDelta = delta
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if de, ok := asDomainError(err); ok && de.Code == shared.CodeNegativeStockRejected {
			s.metrics.RecordStockRejection(ctx, de.Code)
		}
		return nil, err
	}

	s.metrics.RecordStockAdjustment(ctx, baseDelta)
	s.publishDomainEvents(ctx, result)
	telemetry.SetOK(span)

	s.logger.Info("stock adjusted",
		zap.String("product_id", result.ProductID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("quantity", result.QuantityInBaseUOM.String()),
	)

	resp := ToInventoryResponse(result, baseUOM)
	return &resp, nil
}

// ListMovements lists the stock ledger of a product, visible to the owning supplier and admins
func (s *InventoryService) ListMovements(ctx context.Context, actor shared.Actor, productID uuid.UUID, filter MovementListFilter) ([]StockMovementResponse, int64, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, 0, err
	}
	if !product.CanBeManagedBy(actor) {
		return nil, 0, shared.ErrForbidden.WithMessage("Only the owning supplier may view this product's stock ledger")
	}

	f := shared.DefaultFilter()
	f.Page = filter.Page
	f.PageSize = filter.PageSize
	movements, total, err := s.movementRepo.FindByProductID(ctx, productID, f.Normalize())
	if err != nil {
		return nil, 0, err
	}

	out := make([]StockMovementResponse, len(movements))
	for i := range movements {
		out[i] = ToStockMovementResponse(&movements[i])
	}
	return out, total, nil
}

func asDomainError(err error) (*shared.DomainError, bool) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
