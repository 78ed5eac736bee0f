package trade

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const maxNotesLength = 2000

// OrderNumberPrefix starts every order number
const OrderNumberPrefix = "ORD"

// FormatOrderNumber renders ORD-<year>-<sequence>
func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", OrderNumberPrefix, year, seq)
}

// OrderItem is an immutable order line. Base quantity and price are frozen at creation
// so later product changes do not alter existing orders.
type OrderItem struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	ProductID          uuid.UUID
	SupplierID         uuid.UUID
	ProductName        string
	QuantityRequested  decimal.Decimal
	RequestedUOM       valueobject.UnitCode
	QuantityInBaseUOM  decimal.Decimal
	BaseUOM            valueobject.UnitCode
	UnitPriceInBaseUOM decimal.Decimal
	LineTotal          decimal.Decimal
	CreatedAt          time.Time
}

// NewOrderItem creates an order line; lineTotal = baseQuantity * unitPrice
func NewOrderItem(
	productID, supplierID uuid.UUID,
	productName string,
	quantityRequested decimal.Decimal,
	requestedUOM valueobject.UnitCode,
	quantityInBase decimal.Decimal,
	baseUOM valueobject.UnitCode,
	unitPriceInBase decimal.Decimal,
) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Product ID cannot be empty")
	}
	if !quantityRequested.IsPositive() || !quantityInBase.IsPositive() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Quantity must be positive")
	}
	if unitPriceInBase.IsNegative() {
		return nil, shared.ErrInvalidInput.WithMessage("Unit price cannot be negative")
	}

	return &OrderItem{
		ID:                 uuid.New(),
		ProductID:          productID,
		SupplierID:         supplierID,
		ProductName:        productName,
		QuantityRequested:  quantityRequested,
		RequestedUOM:       requestedUOM,
		QuantityInBaseUOM:  quantityInBase,
		BaseUOM:            baseUOM,
		UnitPriceInBaseUOM: unitPriceInBase,
		LineTotal:          quantityInBase.Mul(unitPriceInBase),
		CreatedAt:          time.Now(),
	}, nil
}

// OrderStatusHistory is one append-only entry of the status chain
type OrderStatusHistory struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus *OrderStatus
	ToStatus   OrderStatus
	ActorID    uuid.UUID
	Reason     string
	CreatedAt  time.Time
}

// Order is the aggregate root for a buyer's multi-line order
type Order struct {
	shared.BaseAggregateRoot
	BuyerID     uuid.UUID
	OrderNumber string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	Notes       string
	Items       []OrderItem

	// history entries created in this unit of work, persisted by the repository
	pendingHistory []OrderStatusHistory
}

// NewOrder creates a PENDING order with its initial history entry
func NewOrder(buyerID uuid.UUID, orderNumber string, items []OrderItem, notes string) (*Order, error) {
	return NewOrderWithID(uuid.New(), buyerID, orderNumber, items, notes)
}

// NewOrderWithID is NewOrder with a caller-chosen id, used when the id must be known before
// the order exists (idempotency keys)
func NewOrderWithID(id, buyerID uuid.UUID, orderNumber string, items []OrderItem, notes string) (*Order, error) {
	if id == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Order ID cannot be empty")
	}
	if buyerID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Buyer ID cannot be empty")
	}
	if orderNumber == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Order number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("Order must contain at least one item")
	}
	if len(notes) > maxNotesLength {
		return nil, shared.ErrInvalidInput.WithMessage("Notes cannot exceed 2000 characters")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BuyerID:           buyerID,
		OrderNumber:       orderNumber,
		Status:            OrderStatusPending,
		Notes:             notes,
		Items:             make([]OrderItem, len(items)),
	}
	order.ID = id
	copy(order.Items, items)
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	order.recalculateTotal()

	order.appendHistory(nil, OrderStatusPending, buyerID, "")
	order.Raise(NewOrderCreatedEvent(order))

	return order, nil
}

// TransitionTo moves the order to a new status and reports the stock effect the caller must
// apply in the same transaction
func (o *Order) TransitionTo(target OrderStatus, actor shared.Actor, reason string) (StockEffect, error) {
	effect, ok := TransitionEffect(o.Status, target)
	if !ok {
		return StockEffectNone, InvalidTransitionError(o.Status, target)
	}
	if err := o.authorizeTransition(actor, target); err != nil {
		return StockEffectNone, err
	}

	from := o.Status
	o.Status = target
	o.appendHistory(&from, target, actor.ID, reason)
	o.Changed(NewOrderStatusChangedEvent(o, from, actor, reason))

	return effect, nil
}

// Admins drive every transition; a buyer may only cancel their own pending order
func (o *Order) authorizeTransition(actor shared.Actor, target OrderStatus) error {
	switch actor.Role {
	case shared.RoleAdmin:
		return nil
	case shared.RoleBuyer:
		if target == OrderStatusCancelled && o.Status == OrderStatusPending && o.BuyerID == actor.ID {
			return nil
		}
	}
	return shared.ErrForbidden.WithMessage(fmt.Sprintf("Role %s cannot move order to %s", actor.Role, target))
}

func (o *Order) appendHistory(from *OrderStatus, to OrderStatus, actorID uuid.UUID, reason string) {
	o.pendingHistory = append(o.pendingHistory, OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  time.Now(),
	})
}

// PendingHistory returns history entries not yet persisted
func (o *Order) PendingHistory() []OrderStatusHistory {
	return o.pendingHistory
}

// ClearPendingHistory is called by the repository after persisting
func (o *Order) ClearPendingHistory() {
	o.pendingHistory = nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal)
	}
	o.TotalAmount = total
}

// ItemCount returns the number of order lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// SupplierIDs returns the distinct suppliers on the order, sorted
func (o *Order) SupplierIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.SupplierID]; ok {
			continue
		}
		seen[item.SupplierID] = struct{}{}
		ids = append(ids, item.SupplierID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// BaseQuantitiesByProduct sums base quantities per product, for orders that list the
// same product more than once
func (o *Order) BaseQuantitiesByProduct() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(o.Items))
	for _, item := range o.Items {
		out[item.ProductID] = out[item.ProductID].Add(item.QuantityInBaseUOM)
	}
	return out
}

// IsPending returns true if the order awaits approval
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsTerminal returns true if the order can no longer change
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// CanView applies the visibility rule: buyers see their own orders, suppliers see orders
// containing their products, admins see everything
func CanView(o *Order, actor shared.Actor) bool {
	switch actor.Role {
	case shared.RoleAdmin:
		return true
	case shared.RoleBuyer:
		return o.BuyerID == actor.ID
	case shared.RoleSupplier:
		for _, item := range o.Items {
			if item.SupplierID == actor.ID {
				return true
			}
		}
	}
	return false
}
