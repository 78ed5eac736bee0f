package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StockLevelProvider reports stock health for the periodic out-of-stock gauge.
type StockLevelProvider interface {
	CountOutOfStock(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	StockProvider StockLevelProvider // optional
}

// BusinessMetrics records order and stock outcomes. It satisfies the metrics
// ports of the trade and inventory services.
type BusinessMetrics struct {
	logger *zap.Logger
	stock  StockLevelProvider

	created     metric.Int64Counter
	transitions metric.Int64Counter
	orderErrors metric.Int64Counter
	adjustments metric.Int64Counter
	stockErrors metric.Int64Counter
	amount      metric.Float64Histogram
	lines       metric.Float64Histogram
	outOfStock  metric.Int64Gauge

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
}

func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrNoMeter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bm := &BusinessMetrics{logger: logger, stock: cfg.StockProvider, stop: make(chan struct{})}

	var err error
	for _, c := range []struct {
		dst *metric.Int64Counter
		in  Instrument
	}{
		{&bm.created, OrdersCreated},
		{&bm.transitions, OrderTransitions},
		{&bm.orderErrors, OrderRejections},
		{&bm.adjustments, StockAdjustments},
		{&bm.stockErrors, StockRejections},
	} {
		if *c.dst, err = c.in.Counter(cfg.Meter); err != nil {
			return nil, err
		}
	}
	if bm.amount, err = OrderAmount.Histogram(cfg.Meter); err != nil {
		return nil, err
	}
	if bm.lines, err = OrderLines.Histogram(cfg.Meter); err != nil {
		return nil, err
	}
	if bm.outOfStock, err = OutOfStock.Gauge(cfg.Meter); err != nil {
		return nil, err
	}
	return bm, nil
}

func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, amount decimal.Decimal, itemCount int) {
	bm.created.Add(ctx, 1)
	bm.amount.Record(ctx, amount.InexactFloat64())
	bm.lines.Record(ctx, float64(itemCount))
}

func (bm *BusinessMetrics) RecordOrderTransition(ctx context.Context, from, to string) {
	bm.transitions.Add(ctx, 1, metric.WithAttributes(LabelFromStatus.String(from), LabelToStatus.String(to)))
}

// RecordOrderRejected counts an order operation refused with a domain error code.
func (bm *BusinessMetrics) RecordOrderRejected(ctx context.Context, operation, code string) {
	bm.orderErrors.Add(ctx, 1, metric.WithAttributes(LabelOperation.String(operation), LabelErrorCode.String(code)))
}

// RecordStockAdjustment counts a supplier adjustment by sign of delta.
func (bm *BusinessMetrics) RecordStockAdjustment(ctx context.Context, delta decimal.Decimal) {
	direction := "increase"
	if delta.IsNegative() {
		direction = "decrease"
	}
	bm.adjustments.Add(ctx, 1, metric.WithAttributes(LabelDirection.String(direction)))
}

func (bm *BusinessMetrics) RecordStockRejection(ctx context.Context, code string) {
	bm.stockErrors.Add(ctx, 1, metric.WithAttributes(LabelErrorCode.String(code)))
}

func (bm *BusinessMetrics) RecordOutOfStockCount(ctx context.Context, count int64) {
	bm.outOfStock.Record(ctx, count)
}

// StartPeriodicCollection samples the out-of-stock gauge every interval until
// ctx ends or Stop is called. Only the first call starts the sampler.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if bm.stock == nil {
		bm.logger.Warn("No stock provider configured, skipping periodic stock metrics")
		return
	}
	bm.startOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				bm.sampleStock(ctx)
				select {
				case <-ctx.Done():
					return
				case <-bm.stop:
					return
				case <-ticker.C:
				}
			}
		}()
	})
}

func (bm *BusinessMetrics) sampleStock(ctx context.Context) {
	count, err := bm.stock.CountOutOfStock(ctx)
	if err != nil {
		bm.logger.Error("Failed to collect out of stock count", zap.Error(err))
		return
	}
	bm.RecordOutOfStockCount(ctx, count)
}

func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() { close(bm.stop) })
}
