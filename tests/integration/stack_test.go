//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/orderdesk/backend/internal/application/catalog"
	inventoryapp "github.com/orderdesk/backend/internal/application/inventory"
	tradeapp "github.com/orderdesk/backend/internal/application/trade"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/cache"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/orderdesk/backend/internal/infrastructure/event"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
	"github.com/orderdesk/backend/internal/interfaces/http/handler"
	"github.com/orderdesk/backend/internal/interfaces/http/router"
	"github.com/orderdesk/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stack is the full service wired the way the server wires it, minus Redis and Kafka
type stack struct {
	db        *TestDB
	products  *catalogapp.ProductService
	inventory *inventoryapp.InventoryService
	orders    *tradeapp.OrderService
	events    *testutil.RecordingHandler
	api       *testutil.APIClient
}

func newStack(t *testing.T) *stack {
	t.Helper()
	tdb := NewTestDB(t)
	log := zaptest.NewLogger(t)

	bus := event.NewInMemoryEventBus(log)
	recorder := testutil.NewRecordingHandler()
	bus.Subscribe(recorder)
	require.NoError(t, bus.Start(testutil.ContextWithTimeout(t, time.Second)))

	retry := inventoryapp.RetryPolicy{MaxRetries: 10, InitialInterval: 5 * time.Millisecond, MaxInterval: 100 * time.Millisecond}
	txScope := persistence.NewGormTransactionScope(tdb.DB)
	productRepo := persistence.NewGormProductRepository(tdb.DB)

	products := catalogapp.NewProductService(txScope, productRepo, log)
	products.SetEventPublisher(bus)

	stock := inventoryapp.NewInventoryService(txScope, productRepo,
		persistence.NewGormInventoryRepository(tdb.DB), persistence.NewGormStockMovementRepository(tdb.DB), log)
	stock.SetEventPublisher(bus)
	stock.SetRetryPolicy(retry)

	orders := tradeapp.NewOrderService(persistence.NewGormOrderTransactionScope(tdb.DB), persistence.NewGormOrderRepository(tdb.DB), log)
	orders.SetEventPublisher(bus)
	orders.SetRetryPolicy(retry)
	orders.SetIdempotencyStore(cache.NewInMemoryIdempotencyStore(), time.Hour)

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    "orderdesk-integration",
		HTTP:           config.HTTPConfig{MaxBodySize: 1 << 20},
		Logger:         log,
		RequestTimeout: 10 * time.Second,
	}, router.Handlers{
		Product:   handler.NewProductHandler(products),
		Inventory: handler.NewInventoryHandler(stock),
		Order:     handler.NewOrderHandler(orders),
		System:    handler.NewSystemHandler("orderdesk", "test"),
	})
	require.NoError(t, err)

	return &stack{
		db:        tdb,
		products:  products,
		inventory: stock,
		orders:    orders,
		events:    recorder,
		api:       testutil.NewAPIClient(t, engine, "/api/v1"),
	}
}

func (s *stack) createProduct(t *testing.T, supplier shared.Actor, body map[string]any) catalogapp.ProductResponse {
	t.Helper()
	resp := s.api.Do(supplier, http.MethodPost, "/products", body).RequireStatus(t, http.StatusCreated)
	return testutil.DataAs[catalogapp.ProductResponse](t, resp)
}

func (s *stack) adjust(t *testing.T, supplier shared.Actor, productID uuid.UUID, delta, unit string) inventoryapp.InventoryResponse {
	t.Helper()
	resp := s.api.Do(supplier, http.MethodPost, "/products/"+productID.String()+"/stock/adjustments",
		map[string]any{"delta": delta, "unit": unit, "reason": "integration"}).RequireStatus(t, http.StatusOK)
	return testutil.DataAs[inventoryapp.InventoryResponse](t, resp)
}

func (s *stack) stockOf(t *testing.T, productID uuid.UUID) inventoryapp.InventoryResponse {
	t.Helper()
	resp := s.api.Do(testutil.Admin(), http.MethodGet, "/products/"+productID.String()+"/stock", nil).RequireStatus(t, http.StatusOK)
	return testutil.DataAs[inventoryapp.InventoryResponse](t, resp)
}

func (s *stack) placeOrder(t *testing.T, buyer shared.Actor, items ...map[string]any) tradeapp.OrderResponse {
	t.Helper()
	resp := s.api.Do(buyer, http.MethodPost, "/orders", map[string]any{"items": items}).RequireStatus(t, http.StatusCreated)
	return testutil.DataAs[tradeapp.OrderResponse](t, resp)
}

func (s *stack) transition(actor shared.Actor, orderID uuid.UUID, status string) *testutil.APIResponse {
	return s.api.Do(actor, http.MethodPost, "/orders/"+orderID.String()+"/status", map[string]any{"status": status})
}

func line(productID uuid.UUID, quantity, unit string) map[string]any {
	return map[string]any{"product_id": productID, "quantity": quantity, "unit": unit}
}
