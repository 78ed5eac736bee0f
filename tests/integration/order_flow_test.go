//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	catalogapp "github.com/orderdesk/backend/internal/application/catalog"
	inventoryapp "github.com/orderdesk/backend/internal/application/inventory"
	tradeapp "github.com/orderdesk/backend/internal/application/trade"
	"github.com/orderdesk/backend/internal/domain/catalog"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/trade"
	"github.com/orderdesk/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderLifecycle_Postgres(t *testing.T) {
	s := newStack(t)
	supplier := testutil.Supplier("mill")
	buyer := testutil.Buyer("bakery")

	flour := s.createProduct(t, supplier, map[string]any{
		"name":               "Rye flour",
		"sku":                "RYE-1",
		"base_uom":           "KG",
		"price_per_base_uom": "1.25",
	})
	assert.Equal(t, "KILOGRAM", flour.BaseUOM)

	inv := s.adjust(t, supplier, flour.ID, "500", "KG")
	assert.Equal(t, "500", inv.QuantityInBaseUOM.String())

	order := s.placeOrder(t, buyer, line(flour.ID, "2500", "G"), line(flour.ID, "10", "KG"))
	assert.Equal(t, "PENDING", order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "2.5", order.Items[0].QuantityInBaseUOM.String())
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("15.625")), order.TotalAmount.String())
	assert.NotEmpty(t, order.OrderNumber)

	// The price change does not touch the captured line prices
	s.api.Do(supplier, http.MethodPatch, "/products/"+flour.ID.String()+"/price",
		map[string]any{"price_per_base_uom": "9.99"}).RequireStatus(t, http.StatusOK)

	approved := testutil.DataAs[tradeapp.OrderResponse](t, s.transition(testutil.Admin(), order.ID, "APPROVED").RequireStatus(t, http.StatusOK))
	assert.Equal(t, "APPROVED", approved.Status)
	assert.True(t, approved.TotalAmount.Equal(order.TotalAmount))
	assert.Equal(t, "487.5", s.stockOf(t, flour.ID).QuantityInBaseUOM.String())

	fulfilled := s.transition(testutil.Admin(), order.ID, "FULFILLED").RequireStatus(t, http.StatusOK)
	assert.Equal(t, "FULFILLED", testutil.DataAs[tradeapp.OrderResponse](t, fulfilled).Status)

	// Terminal: nothing leaves FULFILLED and stock is untouched
	resp := s.transition(testutil.Admin(), order.ID, "CANCELLED").RequireStatus(t, http.StatusConflict)
	assert.Equal(t, "ERR_INVALID_TRANSITION", resp.ErrorCode())
	assert.Equal(t, "487.5", s.stockOf(t, flour.ID).QuantityInBaseUOM.String())

	history := testutil.DataAs[[]tradeapp.OrderHistoryResponse](t,
		s.api.Do(buyer, http.MethodGet, "/orders/"+order.ID.String()+"/history", nil).RequireStatus(t, http.StatusOK))
	require.Len(t, history, 3)
	assert.Equal(t, "PENDING", history[0].ToStatus)
	assert.Equal(t, "FULFILLED", history[2].ToStatus)

	movements := testutil.DataAs[[]inventoryapp.StockMovementResponse](t,
		s.api.Do(supplier, http.MethodGet, "/products/"+flour.ID.String()+"/stock/movements", nil).RequireStatus(t, http.StatusOK))
	require.Len(t, movements, 2)
	assert.Equal(t, string(inventory.MovementTypeDeduct), movements[0].Type)
	assert.Equal(t, string(inventory.MovementTypeAdjust), movements[1].Type)

	types := s.events.Types()
	assert.Contains(t, types, catalog.EventTypeProductCreated)
	assert.Contains(t, types, catalog.EventTypeProductPriceChanged)
	assert.Contains(t, types, trade.EventTypeOrderCreated)
	assert.Contains(t, types, trade.EventTypeOrderStatusChanged)
	assert.Contains(t, types, inventory.EventTypeStockChanged)

	for _, ev := range s.events.For(order.ID.String()) {
		assert.Contains(t, []string{trade.EventTypeOrderCreated, trade.EventTypeOrderStatusChanged}, ev.EventType())
	}
	assert.Len(t, s.events.For(order.ID.String()), 3)
}

func TestCancelApprovedOrderRestoresStock_Postgres(t *testing.T) {
	s := newStack(t)
	supplier := testutil.Supplier("dairy")
	buyer := testutil.Buyer("cafe")

	milk := s.createProduct(t, supplier, map[string]any{
		"name": "Milk", "base_uom": "L", "price_per_base_uom": "0.9",
	})
	s.adjust(t, supplier, milk.ID, "40", "L")

	order := s.placeOrder(t, buyer, line(milk.ID, "12000", "MILLILITER"))
	resp := s.transition(supplier, order.ID, "APPROVED").RequireStatus(t, http.StatusForbidden)
	assert.Equal(t, "ERR_FORBIDDEN", resp.ErrorCode())
	assert.Equal(t, "40", s.stockOf(t, milk.ID).QuantityInBaseUOM.String())

	s.transition(testutil.Admin(), order.ID, "APPROVED").RequireStatus(t, http.StatusOK)
	assert.Equal(t, "28", s.stockOf(t, milk.ID).QuantityInBaseUOM.String())

	s.transition(testutil.Admin(), order.ID, "CANCELLED").RequireStatus(t, http.StatusOK)
	assert.Equal(t, "40", s.stockOf(t, milk.ID).QuantityInBaseUOM.String())

	resp = s.transition(testutil.Admin(), order.ID, "CANCELLED").RequireStatus(t, http.StatusConflict)
	assert.Equal(t, "ERR_INVALID_TRANSITION", resp.ErrorCode())
	assert.Equal(t, "40", s.stockOf(t, milk.ID).QuantityInBaseUOM.String())
}

func TestMultiSupplierOrderVisibility_Postgres(t *testing.T) {
	s := newStack(t)
	mill := testutil.Supplier("mill")
	farm := testutil.Supplier("farm")
	other := testutil.Supplier("other")
	buyer := testutil.Buyer("grocer")

	flour := s.createProduct(t, mill, map[string]any{"name": "Flour", "base_uom": "KG", "price_per_base_uom": "1"})
	eggs := s.createProduct(t, farm, map[string]any{"name": "Eggs", "base_uom": "PIECE", "price_per_base_uom": "0.25"})
	s.adjust(t, mill, flour.ID, "10", "KG")
	s.adjust(t, farm, eggs.ID, "5", "DOZEN")

	order := s.placeOrder(t, buyer, line(flour.ID, "1", "KG"), line(eggs.ID, "2", "DOZEN"))
	assert.ElementsMatch(t, []uuid.UUID{mill.ID, farm.ID}, order.SupplierIDs)
	assert.Equal(t, "24", order.Items[1].QuantityInBaseUOM.String())

	s.api.Do(mill, http.MethodGet, "/orders/"+order.ID.String(), nil).RequireStatus(t, http.StatusOK)
	s.api.Do(farm, http.MethodGet, "/orders/"+order.ID.String(), nil).RequireStatus(t, http.StatusOK)
	s.api.Do(other, http.MethodGet, "/orders/"+order.ID.String(), nil).RequireStatus(t, http.StatusNotFound)
	s.api.Do(testutil.Buyer("stranger"), http.MethodGet, "/orders/"+order.ID.String(), nil).RequireStatus(t, http.StatusNotFound)

	resp := s.api.Do(other, http.MethodGet, "/orders", nil).RequireStatus(t, http.StatusOK)
	require.NotNil(t, resp.Envelope.Meta)
	assert.Zero(t, resp.Envelope.Meta.Total)

	list := testutil.DataAs[[]catalogapp.ProductResponse](t,
		s.api.Do(buyer, http.MethodGet, "/products?supplier_id="+farm.ID.String(), nil).RequireStatus(t, http.StatusOK))
	require.Len(t, list, 1)
	assert.Equal(t, eggs.ID, list[0].ID)
}
