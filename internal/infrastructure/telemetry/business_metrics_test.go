package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type stubStockProvider struct {
	count int64
	err   error
	calls atomic.Int32
}

func (s *stubStockProvider) CountOutOfStock(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.count, s.err
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Logger: zap.NewNop()})

	assert.ErrorIs(t, err, telemetry.ErrNoMeter)
	assert.Nil(t, bm)
}

func TestBusinessMetrics_Orders(t *testing.T) {
	meter, reader := newTestMeter(t)
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)
	ctx := context.Background()

	bm.RecordOrderCreated(ctx, decimal.RequireFromString("120.50"), 2)
	bm.RecordOrderCreated(ctx, decimal.NewFromInt(80), 1)
	bm.RecordOrderTransition(ctx, "PENDING", "APPROVED")
	bm.RecordOrderTransition(ctx, "APPROVED", "FULFILLED")
	bm.RecordOrderTransition(ctx, "PENDING", "APPROVED")
	bm.RecordOrderRejected(ctx, "create_order", "INSUFFICIENT_STOCK")

	rm := collect(t, reader)
	assert.Equal(t, int64(2), counterValue(t, rm, "orderdesk_order_created_total"))
	assert.Equal(t, int64(2), counterValue(t, rm, "orderdesk_order_transition_total",
		attribute.String("from_status", "PENDING"), attribute.String("to_status", "APPROVED")))
	assert.Equal(t, int64(1), counterValue(t, rm, "orderdesk_order_rejected_total",
		attribute.String("operation", "create_order"), attribute.String("error_code", "INSUFFICIENT_STOCK")))

	count, sum := histogramCount(t, rm, "orderdesk_order_amount")
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 200.5, sum, 1e-9)

	count, sum = histogramCount(t, rm, "orderdesk_order_item_count")
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 3, sum, 1e-9)
}

func TestBusinessMetrics_Stock(t *testing.T) {
	meter, reader := newTestMeter(t)
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)
	ctx := context.Background()

	bm.RecordStockAdjustment(ctx, decimal.NewFromInt(500))
	bm.RecordStockAdjustment(ctx, decimal.NewFromInt(-20))
	bm.RecordStockAdjustment(ctx, decimal.NewFromInt(5))
	bm.RecordStockRejection(ctx, "INSUFFICIENT_STOCK")
	bm.RecordOutOfStockCount(ctx, 4)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), counterValue(t, rm, "orderdesk_stock_adjustment_total", attribute.String("direction", "increase")))
	assert.Equal(t, int64(1), counterValue(t, rm, "orderdesk_stock_adjustment_total", attribute.String("direction", "decrease")))
	assert.Equal(t, int64(1), counterValue(t, rm, "orderdesk_stock_rejected_total"))

	v, ok := gaugeValue(t, rm, "orderdesk_inventory_out_of_stock_count")
	require.True(t, ok)
	assert.Equal(t, int64(4), v)
}

func TestBusinessMetrics_PeriodicCollection(t *testing.T) {
	meter, reader := newTestMeter(t)
	provider := &stubStockProvider{count: 3}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:         meter,
		StockProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bm.StartPeriodicCollection(ctx, 10*time.Millisecond)
	bm.StartPeriodicCollection(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return provider.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	bm.Stop()
	bm.Stop()

	v, ok := gaugeValue(t, collect(t, reader), "orderdesk_inventory_out_of_stock_count")
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
}

func TestBusinessMetrics_PeriodicCollection_ProviderError(t *testing.T) {
	meter, reader := newTestMeter(t)
	provider := &stubStockProvider{err: errors.New("db down")}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:         meter,
		StockProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	bm.StartPeriodicCollection(ctx, time.Hour)
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	_, ok := gaugeValue(t, collect(t, reader), "orderdesk_inventory_out_of_stock_count")
	assert.False(t, ok)
}

func TestBusinessMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter, _ := newTestMeter(t)
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		bm.StartPeriodicCollection(context.Background(), time.Millisecond)
		bm.Stop()
	})
}
