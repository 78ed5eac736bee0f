package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/orderdesk/backend/internal/interfaces/http/handler"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestMountAPI(t *testing.T) {
	engine := gin.New()
	groups := []Group{{
		Name:   "test",
		Prefix: "/test",
		Routes: []Route{{http.MethodGet, "/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }}},
	}}
	api := MountAPI(engine, groups, func(c *gin.Context) {
		c.Header("X-API", "1")
		c.Next()
	})
	assert.Equal(t, "/api/v1", api.BasePath())

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-API"))

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/test/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMount(t *testing.T) {
	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		Mount(engine.Group("/api/v1"), Group{
			Prefix: "/items",
			Routes: []Route{
				{http.MethodGet, "/:id", func(c *gin.Context) { c.String(http.StatusOK, "get") }},
				{http.MethodPost, "", func(c *gin.Context) { c.String(http.StatusCreated, "post") }},
				{http.MethodPatch, "/:id", func(c *gin.Context) { c.String(http.StatusOK, "patch") }},
			},
		})

		tests := []struct {
			method string
			path   string
			status int
			body   string
		}{
			{http.MethodGet, "/api/v1/items/1", http.StatusOK, "get"},
			{http.MethodPost, "/api/v1/items", http.StatusCreated, "post"},
			{http.MethodPatch, "/api/v1/items/1", http.StatusOK, "patch"},
		}
		for _, tt := range tests {
			w := serve(engine, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code, tt.method)
			assert.Equal(t, tt.body, w.Body.String(), tt.method)
		}
	})

	t.Run("middleware applies to nested groups", func(t *testing.T) {
		engine := gin.New()
		Mount(engine.Group("/api/v1"), Group{
			Prefix: "/products",
			Middleware: []gin.HandlerFunc{func(c *gin.Context) {
				c.Header("X-Group", "catalog")
				c.Next()
			}},
			Groups: []Group{{
				Prefix: "/:id/stock",
				Routes: []Route{{http.MethodGet, "", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) }}},
			}},
		})

		w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc/stock", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Body.String())
		assert.Equal(t, "catalog", w.Header().Get("X-Group"))
	})
}

func testHandlers() Handlers {
	return Handlers{
		Product:   handler.NewProductHandler(nil),
		Inventory: handler.NewInventoryHandler(nil),
		Order:     handler.NewOrderHandler(nil),
		System: handler.NewSystemHandler("orderdesk", "test", handler.HealthCheck{
			Name:  "database",
			Check: func(context.Context) error { return nil },
		}),
	}
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		ServiceName: "orderdesk-test",
		HTTP: config.HTTPConfig{
			MaxBodySize: 1024,
		},
		RequestTimeout: 5 * time.Second,
	}
}

func TestDomainGroups_RouteTable(t *testing.T) {
	engine, err := NewEngine(testEngineConfig(), testHandlers())
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /swagger/*any",
		"POST /api/v1/products",
		"GET /api/v1/products",
		"GET /api/v1/products/:id",
		"PATCH /api/v1/products/:id/price",
		"PATCH /api/v1/products/:id/active",
		"GET /api/v1/products/:id/stock",
		"GET /api/v1/products/:id/stock/check",
		"POST /api/v1/products/:id/stock/adjustments",
		"GET /api/v1/products/:id/stock/movements",
		"POST /api/v1/orders",
		"GET /api/v1/orders",
		"GET /api/v1/orders/:id",
		"GET /api/v1/orders/:id/history",
		"POST /api/v1/orders/:id/status",
		"GET /api/v1/system/info",
		"GET /api/v1/system/ping",
	}
	for _, route := range want {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, engine.Routes(), len(want))
}

func TestNewEngine_Chain(t *testing.T) {
	engine, err := NewEngine(testEngineConfig(), testHandlers())
	require.NoError(t, err)

	t.Run("health needs no actor", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("system ping needs no actor", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("api requires an actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.Header.Set(middleware.RequestIDHeader, "trace-me")
		w := serve(engine, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "trace-me")
	})

	t.Run("oversized body is rejected before the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(strings.Repeat("x", 2048)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderActorID, uuid.NewString())
		req.Header.Set(middleware.HeaderActorRole, "BUYER")
		w := serve(engine, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("swagger hidden when disabled", func(t *testing.T) {
		w := serve(engine, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNewEngine_RateLimit(t *testing.T) {
	cfg := testEngineConfig()
	cfg.RateLimiter = middleware.NewRateLimiter(1, time.Minute)
	defer cfg.RateLimiter.Stop()

	engine, err := NewEngine(cfg, testHandlers())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)).Code)
}
