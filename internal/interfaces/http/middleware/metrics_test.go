package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mw, err := HTTPMetrics(provider.Meter("http.server"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw, ActorMiddleware(DefaultActorConfig()))
	router.GET("/api/v1/orders/:id", func(c *gin.Context) { c.String(http.StatusOK, "order") })

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/v1/orders/"+uuid.NewString(), nil)
		req.Header.Set(HeaderActorID, uuid.NewString())
		req.Header.Set(HeaderActorRole, "BUYER")
		serve(router, req)
	}
	serve(router, httptest.NewRequest("GET", "/nowhere", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	var durations uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != "http_server_request_total" {
					continue
				}
				for _, dp := range data.DataPoints {
					route, _ := dp.Attributes.Value(telemetry.LabelRoute)
					role, _ := dp.Attributes.Value(telemetry.LabelRole)
					counts[route.AsString()+"|"+role.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name == "http_server_request_duration_seconds" {
					for _, dp := range data.DataPoints {
						durations += dp.Count
					}
				}
			}
		}
	}

	assert.Equal(t, int64(3), counts["/api/v1/orders/:id|BUYER"])
	assert.Equal(t, int64(1), counts["unknown|"])
	assert.Equal(t, uint64(4), durations)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	mw, err := HTTPMetrics(nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest("GET", "/x", nil)).Code)
}
