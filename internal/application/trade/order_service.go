package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appinv "github.com/orderdesk/backend/internal/application/inventory"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/service"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/orderdesk/backend/internal/domain/trade"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const idempotencyKeyPrefix = "order:create:"

// OrderMetrics receives order counters
type OrderMetrics interface {
	RecordOrderCreated(ctx context.Context, amount decimal.Decimal, itemCount int)
	RecordOrderTransition(ctx context.Context, from, to string)
	RecordOrderRejected(ctx context.Context, operation, code string)
}

type noopOrderMetrics struct{}

func (noopOrderMetrics) RecordOrderCreated(context.Context, decimal.Decimal, int) {}
func (noopOrderMetrics) RecordOrderTransition(context.Context, string, string)    {}
func (noopOrderMetrics) RecordOrderRejected(context.Context, string, string)      {}

// OrderService handles order creation and the order status workflow
type OrderService struct {
	txScope        TransactionScope
	orderRepo      trade.OrderRepository
	ledger         *appinv.Ledger
	conv           *service.UnitConversionService
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	eventPublisher shared.EventPublisher
	metrics        OrderMetrics
	retry          appinv.RetryPolicy
	now            func() time.Time
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(txScope TransactionScope, orderRepo trade.OrderRepository, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		txScope:        txScope,
		orderRepo:      orderRepo,
		ledger:         appinv.NewLedger(),
		conv:           service.NewUnitConversionService(),
		idempotencyTTL: shared.DefaultIdempotencyTTL,
		metrics:        noopOrderMetrics{},
		retry:          appinv.DefaultRetryPolicy(),
		now:            time.Now,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key handling for order creation
func (s *OrderService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// SetMetrics sets the metrics sink
func (s *OrderService) SetMetrics(metrics OrderMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetRetryPolicy overrides the conflict retry policy
func (s *OrderService) SetRetryPolicy(policy appinv.RetryPolicy) {
	s.retry = policy
}

// SetClock overrides the clock used for order number years
func (s *OrderService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type orderLine struct {
	productID uuid.UUID
	quantity  decimal.Decimal
	unit      valueobject.UnitCode
}

// CreateOrder validates buyer input and persists a PENDING order with its items and
// initial history entry. Stock is only checked here, never deducted.
func (s *OrderService) CreateOrder(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create_order",
		telemetry.ActorID(actor.ID),
		telemetry.ItemCount(len(req.Items)),
	)
	defer span.End()

	if err := actor.Require(shared.RoleBuyer); err != nil {
		return nil, err
	}
	lines, err := parseOrderLines(req.Items)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := idempotencyKeyPrefix + actor.ID.String() + ":" + req.IdempotencyKey
		claimed, existing, err := s.idempotency.Claim(ctx, key, orderID.String(), s.idempotencyTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			s.logger.Info("replaying idempotent order creation",
				zap.String("buyer_id", actor.ID.String()),
				zap.String("order_id", existing),
			)
			return s.replayCreated(ctx, actor, existing)
		}

		resp, err := s.createOrder(ctx, actor, orderID, lines, req.Notes)
		if err != nil {
			if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
				s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(releaseErr))
			}
			telemetry.RecordError(span, err)
			return nil, err
		}
		telemetry.SetOK(span)
		return resp, nil
	}

	resp, err := s.createOrder(ctx, actor, orderID, lines, req.Notes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return resp, nil
}

func (s *OrderService) createOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID, lines []orderLine, notes string) (*OrderResponse, error) {
	var order *trade.Order
	err := appinv.RetryOnConflict(ctx, s.retry, s.logger, "create_order", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			items, err := s.buildItems(ctx, repos, lines)
			if err != nil {
				return err
			}

			year := s.now().UTC().Year()
			seq, err := repos.OrderNumbers().Next(ctx, year)
			if err != nil {
				return err
			}
			created, err := trade.NewOrderWithID(orderID, actor.ID, trade.FormatOrderNumber(year, seq), items, notes)
			if err != nil {
				return err
			}
			if err := repos.OrderRepo().Create(ctx, created); err != nil {
				return err
			}
			order = created
			return nil
		})
	})
	if err != nil {
		s.recordRejection(ctx, "create", err)
		return nil, err
	}

	s.metrics.RecordOrderCreated(ctx, order.TotalAmount, order.ItemCount())
	appinv.PublishDomainEvents(ctx, s.eventPublisher, order)

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.Int("item_count", order.ItemCount()),
		zap.String("total_amount", order.TotalAmount.String()),
	)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// buildItems loads products, converts quantities into base units and runs the advisory
// stock check across the whole order
func (s *OrderService) buildItems(ctx context.Context, repos TransactionalRepositories, lines []orderLine) ([]trade.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.productID]; !ok {
			seen[line.productID] = struct{}{}
			ids = append(ids, line.productID)
		}
	}

	found, err := repos.ProductRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	items := make([]trade.OrderItem, 0, len(lines))
	required := make([]appinv.StockLine, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.productID]
		if !ok {
			return nil, shared.ErrProductNotFound.WithDetail("product_id", line.productID.String())
		}
		if !product.IsActive {
			return nil, shared.ErrProductInactive.WithDetail("product_id", product.ID.String())
		}
		base, err := product.ToBaseQuantity(s.conv, line.quantity, line.unit)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, de.WithDetail("product_id", product.ID.String())
			}
			return nil, err
		}
		item, err := trade.NewOrderItem(
			product.ID,
			product.SupplierID,
			product.Name,
			line.quantity,
			line.unit,
			base,
			product.BaseUOM,
			product.PricePerBaseUOM,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
		required = append(required, appinv.StockLine{ProductID: product.ID, Quantity: base})
	}

	if err := s.softCheck(ctx, repos.InventoryRepo(), required); err != nil {
		return nil, err
	}
	return items, nil
}

// softCheck compares requested quantities with current availability without locking or
// reserving anything. Approval re-checks under lock.
func (s *OrderService) softCheck(ctx context.Context, repo inventory.InventoryRepository, lines []appinv.StockLine) error {
	totals := make(map[uuid.UUID]decimal.Decimal, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := totals[line.ProductID]; !ok {
			ids = append(ids, line.ProductID)
		}
		totals[line.ProductID] = totals[line.ProductID].Add(line.Quantity)
	}
	appinv.SortProductIDs(ids)

	for _, id := range ids {
		inv, err := repo.FindByProductID(ctx, id)
		if err != nil {
			return err
		}
		if res := inv.CheckAvailability(totals[id]); !res.Available {
			return inventory.InsufficientStockError(id, res.AvailableQty, totals[id])
		}
	}
	return nil
}

func (s *OrderService) replayCreated(ctx context.Context, actor shared.Actor, existing string) (*OrderResponse, error) {
	id, err := uuid.Parse(existing)
	if err != nil {
		return nil, fmt.Errorf("stored idempotency value %q: %w", existing, err)
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrOrderNotFound) {
			return nil, shared.ErrConcurrencyConflict.WithMessage("An order with this idempotency key is still being created")
		}
		return nil, err
	}
	if order.BuyerID != actor.ID {
		return nil, shared.ErrOrderNotFound
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder returns an order the actor may see. Orders outside the actor's visibility are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.findVisible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrderHistory returns the status chain of an order, oldest first
func (s *OrderService) GetOrderHistory(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]OrderHistoryResponse, error) {
	if _, err := s.findVisible(ctx, actor, orderID); err != nil {
		return nil, err
	}
	history, err := s.orderRepo.FindHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderHistoryResponses(history), nil
}

// ListOrders lists the orders visible to the actor
func (s *OrderService) ListOrders(ctx context.Context, actor shared.Actor, filter OrderListFilter) ([]OrderResponse, int64, error) {
	f := trade.OrderFilter{Filter: shared.DefaultFilter()}
	f.Page = filter.Page
	f.PageSize = filter.PageSize
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Filter = f.Filter.Normalize()

	if filter.Status != "" {
		status, ok := trade.ParseOrderStatus(filter.Status)
		if !ok {
			return nil, 0, shared.ErrInvalidInput.WithMessage("Unknown order status: " + filter.Status)
		}
		f.Status = &status
	}

	id := actor.ID
	switch actor.Role {
	case shared.RoleBuyer:
		f.BuyerID = &id
	case shared.RoleSupplier:
		f.SupplierID = &id
	case shared.RoleAdmin:
	default:
		return nil, 0, shared.ErrForbidden
	}

	orders, total, err := s.orderRepo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// TransitionOrderStatus moves an order to a new status and applies the stock effect of the
// transition in the same transaction. The order row stays locked for the whole operation,
// so concurrent transitions on one order run one after another and the later one is
// validated against the status the earlier one left behind.
func (s *OrderService) TransitionOrderStatus(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req TransitionOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "transition_status",
		telemetry.OrderID(orderID),
		telemetry.TargetStatus(req.Status),
		telemetry.ActorID(actor.ID),
		telemetry.ActorRole(actor.Role.String()),
	)
	defer span.End()

	target, ok := trade.ParseOrderStatus(req.Status)
	if !ok {
		return nil, shared.ErrInvalidInput.WithMessage("Unknown order status: " + req.Status)
	}

	var (
		order    *trade.Order
		from     trade.OrderStatus
		effect   trade.StockEffect
		affected []*inventory.Inventory
	)
	err := appinv.RetryOnConflict(ctx, s.retry, s.logger, "transition_order", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			o, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if !trade.CanView(o, actor) {
				return shared.ErrOrderNotFound
			}

			prev := o.Status
			eff, err := o.TransitionTo(target, actor, req.Reason)
			if err != nil {
				return err
			}

			invs, err := s.applyStockEffect(ctx, repos, o, eff, actor, target, req.Reason)
			if err != nil {
				return err
			}
			if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
				return err
			}

			order, from, effect, affected = o, prev, eff, invs
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordRejection(ctx, "transition", err)
		return nil, err
	}

	span.SetAttributes(
		telemetry.OrderNumber(order.OrderNumber),
		telemetry.StockEffect(effect.String()),
	)
	telemetry.SetOK(span)
	s.metrics.RecordOrderTransition(ctx, from.String(), order.Status.String())

	aggregates := make([]shared.EventSource, 0, len(affected)+1)
	aggregates = append(aggregates, order)
	for _, inv := range affected {
		aggregates = append(aggregates, inv)
	}
	appinv.PublishDomainEvents(ctx, s.eventPublisher, aggregates...)

	s.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", from.String()),
		zap.String("to", order.Status.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("stock_effect", effect.String()),
	)

	resp := ToOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) applyStockEffect(
	ctx context.Context,
	repos TransactionalRepositories,
	order *trade.Order,
	effect trade.StockEffect,
	actor shared.Actor,
	target trade.OrderStatus,
	reason string,
) ([]*inventory.Inventory, error) {
	if effect == trade.StockEffectNone {
		return nil, nil
	}

	lines := make([]appinv.StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, appinv.StockLine{ProductID: item.ProductID, Quantity: item.QuantityInBaseUOM})
	}
	orderID := order.ID
	ref := inventory.MovementRef{
		OrderID: &orderID,
		ActorID: actor.ID,
		Reason:  movementReason(order.OrderNumber, target, reason),
	}

	switch effect {
	case trade.StockEffectDeduct:
		return s.ledger.Deduct(ctx, repos, lines, ref)
	case trade.StockEffectRestore:
		return s.ledger.Restore(ctx, repos, lines, ref)
	}
	return nil, fmt.Errorf("unknown stock effect %d", effect)
}

func (s *OrderService) findVisible(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !trade.CanView(order, actor) {
		return nil, shared.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) recordRejection(ctx context.Context, operation string, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		s.metrics.RecordOrderRejected(ctx, operation, de.Code)
	}
}

func parseOrderLines(inputs []CreateOrderItemInput) ([]orderLine, error) {
	if len(inputs) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("Order must contain at least one item")
	}
	lines := make([]orderLine, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("items[%d]: product_id is required", i))
		}
		if err := valueobject.ValidateInputQuantity(in.Quantity); err != nil {
			return nil, shared.ErrInvalidQuantity.WithMessage(fmt.Sprintf("items[%d]: %s", i, err.Error()))
		}
		unit, err := valueobject.ParseUnitCode(in.Unit)
		if err != nil {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("items[%d]: %s", i, err.Error()))
		}
		lines = append(lines, orderLine{productID: in.ProductID, quantity: in.Quantity, unit: unit})
	}
	return lines, nil
}

func movementReason(orderNumber string, target trade.OrderStatus, reason string) string {
	out := "order " + orderNumber + " " + target.String()
	if reason != "" {
		out += ": " + reason
	}
	return out
}
