package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, supplierID uuid.UUID, baseQty, price string) OrderItem {
	t.Helper()
	item, err := NewOrderItem(uuid.New(), supplierID, "Flour",
		decimal.RequireFromString(baseQty), valueobject.UnitGram,
		decimal.RequireFromString(baseQty), valueobject.UnitGram,
		decimal.RequireFromString(price))
	require.NoError(t, err)
	return *item
}

func newPendingOrder(t *testing.T, buyerID uuid.UUID, items ...OrderItem) *Order {
	t.Helper()
	if len(items) == 0 {
		items = []OrderItem{mustItem(t, uuid.New(), "2000", "0.0025")}
	}
	order, err := NewOrder(buyerID, FormatOrderNumber(2026, 1), items, "")
	require.NoError(t, err)
	return order
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-2026-00001", FormatOrderNumber(2026, 1))
	assert.Equal(t, "ORD-2026-123456", FormatOrderNumber(2026, 123456))
}

func TestNewOrderItem(t *testing.T) {
	item, err := NewOrderItem(uuid.New(), uuid.New(), "Flour",
		decimal.NewFromInt(2), valueobject.UnitKilogram,
		decimal.NewFromInt(2000), valueobject.UnitGram,
		decimal.RequireFromString("0.0025"))
	require.NoError(t, err)
	assert.True(t, item.LineTotal.Equal(decimal.NewFromInt(5)))

	_, err = NewOrderItem(uuid.New(), uuid.New(), "Flour", decimal.Zero, valueobject.UnitGram, decimal.Zero, valueobject.UnitGram, decimal.Zero)
	assert.ErrorIs(t, err, shared.ErrInvalidQuantity)

	_, err = NewOrderItem(uuid.New(), uuid.New(), "Flour", decimal.NewFromInt(1), valueobject.UnitGram, decimal.NewFromInt(1), valueobject.UnitGram, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewOrder(t *testing.T) {
	buyerID := uuid.New()
	supplierA, supplierB := uuid.New(), uuid.New()

	t.Run("computes total and initial history", func(t *testing.T) {
		order := newPendingOrder(t, buyerID,
			mustItem(t, supplierA, "2000", "0.0025"),
			mustItem(t, supplierB, "3", "1.10"),
			mustItem(t, supplierA, "1", "0.5"),
		)

		assert.Equal(t, OrderStatusPending, order.Status)
		assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("8.8")), order.TotalAmount.String())
		assert.Equal(t, 3, order.ItemCount())
		for _, item := range order.Items {
			assert.Equal(t, order.ID, item.OrderID)
		}
		assert.ElementsMatch(t, []uuid.UUID{supplierA, supplierB}, order.SupplierIDs())

		history := order.PendingHistory()
		require.Len(t, history, 1)
		assert.Nil(t, history[0].FromStatus)
		assert.Equal(t, OrderStatusPending, history[0].ToStatus)
		assert.Equal(t, buyerID, history[0].ActorID)

		events := order.PendingEvents()
		require.Len(t, events, 1)
		created := events[0].(*OrderCreatedEvent)
		assert.Equal(t, buyerID, created.BuyerID)
		assert.Equal(t, 3, created.ItemCount)
		assert.Len(t, created.SupplierIDs, 2)
	})

	t.Run("rejects empty order", func(t *testing.T) {
		_, err := NewOrder(buyerID, "ORD-2026-00001", nil, "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects missing buyer", func(t *testing.T) {
		_, err := NewOrder(uuid.Nil, "ORD-2026-00001", []OrderItem{mustItem(t, supplierA, "1", "1")}, "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestOrderStatus_Transitions(t *testing.T) {
	all := []OrderStatus{OrderStatusPending, OrderStatusApproved, OrderStatusFulfilled, OrderStatusCancelled}
	legal := map[[2]OrderStatus]StockEffect{
		{OrderStatusPending, OrderStatusApproved}:   StockEffectDeduct,
		{OrderStatusPending, OrderStatusCancelled}:  StockEffectNone,
		{OrderStatusApproved, OrderStatusFulfilled}: StockEffectNone,
		{OrderStatusApproved, OrderStatusCancelled}: StockEffectRestore,
	}

	for _, from := range all {
		for _, to := range all {
			want, wantOK := legal[[2]OrderStatus{from, to}]
			effect, ok := TransitionEffect(from, to)
			assert.Equal(t, wantOK, ok, "%s->%s", from, to)
			assert.Equal(t, wantOK, from.CanTransitionTo(to), "%s->%s", from, to)
			if wantOK {
				assert.Equal(t, want, effect, "%s->%s", from, to)
			}
		}
	}
}

func TestOrder_TransitionTo(t *testing.T) {
	admin := shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}
	buyerID := uuid.New()
	buyer := shared.Actor{ID: buyerID, Role: shared.RoleBuyer}

	t.Run("approve then fulfill", func(t *testing.T) {
		order := newPendingOrder(t, buyerID)
		order.ClearPendingHistory()
		order.TakeEvents()

		effect, err := order.TransitionTo(OrderStatusApproved, admin, "ok")
		require.NoError(t, err)
		assert.Equal(t, StockEffectDeduct, effect)
		assert.Equal(t, 2, order.Version)

		effect, err = order.TransitionTo(OrderStatusFulfilled, admin, "")
		require.NoError(t, err)
		assert.Equal(t, StockEffectNone, effect)

		history := order.PendingHistory()
		require.Len(t, history, 2)
		assert.Equal(t, OrderStatusPending, *history[0].FromStatus)
		assert.Equal(t, OrderStatusApproved, history[0].ToStatus)
		assert.Equal(t, "ok", history[0].Reason)
		assert.Equal(t, OrderStatusApproved, *history[1].FromStatus)

		events := order.PendingEvents()
		require.Len(t, events, 2)
		changed := events[1].(*OrderStatusChangedEvent)
		assert.Equal(t, OrderStatusApproved, changed.FromStatus)
		assert.Equal(t, OrderStatusFulfilled, changed.ToStatus)
		assert.Equal(t, admin.ID, changed.ActorID)
	})

	t.Run("pending to fulfilled is invalid", func(t *testing.T) {
		order := newPendingOrder(t, buyerID)
		_, err := order.TransitionTo(OrderStatusFulfilled, admin, "")
		require.ErrorIs(t, err, shared.ErrInvalidTransition)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "PENDING", de.Details["current"])
		assert.Equal(t, "FULFILLED", de.Details["attempted"])
		assert.Equal(t, OrderStatusPending, order.Status)
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		for _, terminal := range []OrderStatus{OrderStatusFulfilled, OrderStatusCancelled} {
			for _, target := range []OrderStatus{OrderStatusPending, OrderStatusApproved, OrderStatusFulfilled, OrderStatusCancelled} {
				order := newPendingOrder(t, buyerID)
				order.Status = terminal
				version := order.Version

				_, err := order.TransitionTo(target, admin, "")
				assert.ErrorIs(t, err, shared.ErrInvalidTransition, "%s->%s", terminal, target)
				assert.Equal(t, version, order.Version)
			}
		}
	})

	t.Run("buyer cancels own pending order", func(t *testing.T) {
		order := newPendingOrder(t, buyerID)
		effect, err := order.TransitionTo(OrderStatusCancelled, buyer, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, StockEffectNone, effect)
	})

	t.Run("buyer cannot approve or cancel approved", func(t *testing.T) {
		order := newPendingOrder(t, buyerID)
		_, err := order.TransitionTo(OrderStatusApproved, buyer, "")
		assert.ErrorIs(t, err, shared.ErrForbidden)

		order.Status = OrderStatusApproved
		_, err = order.TransitionTo(OrderStatusCancelled, buyer, "")
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("other buyer and suppliers are forbidden", func(t *testing.T) {
		order := newPendingOrder(t, buyerID)
		_, err := order.TransitionTo(OrderStatusCancelled, shared.Actor{ID: uuid.New(), Role: shared.RoleBuyer}, "")
		assert.ErrorIs(t, err, shared.ErrForbidden)

		_, err = order.TransitionTo(OrderStatusApproved, shared.Actor{ID: order.Items[0].SupplierID, Role: shared.RoleSupplier}, "")
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.Equal(t, OrderStatusPending, order.Status)
	})
}

func TestOrder_BaseQuantitiesByProduct(t *testing.T) {
	a := mustItem(t, uuid.New(), "10", "1")
	b := a
	b.ID = uuid.New()
	b.QuantityInBaseUOM = decimal.NewFromInt(5)
	order := newPendingOrder(t, uuid.New(), a, b)

	sums := order.BaseQuantitiesByProduct()
	require.Len(t, sums, 1)
	assert.True(t, sums[a.ProductID].Equal(decimal.NewFromInt(15)))
}

func TestCanView(t *testing.T) {
	buyerID, supplierID := uuid.New(), uuid.New()
	order := newPendingOrder(t, buyerID, mustItem(t, supplierID, "1", "1"))

	tests := []struct {
		name  string
		actor shared.Actor
		want  bool
	}{
		{name: "admin", actor: shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}, want: true},
		{name: "owning buyer", actor: shared.Actor{ID: buyerID, Role: shared.RoleBuyer}, want: true},
		{name: "other buyer", actor: shared.Actor{ID: uuid.New(), Role: shared.RoleBuyer}},
		{name: "supplier on order", actor: shared.Actor{ID: supplierID, Role: shared.RoleSupplier}, want: true},
		{name: "unrelated supplier", actor: shared.Actor{ID: uuid.New(), Role: shared.RoleSupplier}},
		{name: "buyer id with supplier role", actor: shared.Actor{ID: buyerID, Role: shared.RoleSupplier}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(order, tt.actor))
		})
	}
}
