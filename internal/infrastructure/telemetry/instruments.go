package telemetry

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNoMeter is returned by recorders constructed without a meter.
var ErrNoMeter = errors.New("telemetry: meter is required")

// Instrument names one metric so every recorder registers it identically.
type Instrument struct {
	Name        string
	Description string
	Unit        string
	Buckets     []float64 // histograms only
}

// Counter registers i as a monotonic int64 counter.
func (i Instrument) Counter(meter metric.Meter) (metric.Int64Counter, error) {
	c, err := meter.Int64Counter(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", i.Name, err)
	}
	return c, nil
}

// UpDownCounter registers i as an int64 counter that may decrease.
func (i Instrument) UpDownCounter(meter metric.Meter) (metric.Int64UpDownCounter, error) {
	c, err := meter.Int64UpDownCounter(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("up-down counter %s: %w", i.Name, err)
	}
	return c, nil
}

// Histogram registers i as a float64 histogram using i.Buckets when set.
func (i Instrument) Histogram(meter metric.Meter) (metric.Float64Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(i.Description), metric.WithUnit(i.Unit)}
	if len(i.Buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(i.Buckets...))
	}
	h, err := meter.Float64Histogram(i.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", i.Name, err)
	}
	return h, nil
}

// Gauge registers i as an int64 gauge.
func (i Instrument) Gauge(meter metric.Meter) (metric.Int64Gauge, error) {
	g, err := meter.Int64Gauge(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("gauge %s: %w", i.Name, err)
	}
	return g, nil
}

// ObservableGauge registers i as an int64 gauge read by a callback at collection time.
func (i Instrument) ObservableGauge(meter metric.Meter) (metric.Int64ObservableGauge, error) {
	g, err := meter.Int64ObservableGauge(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("observable gauge %s: %w", i.Name, err)
	}
	return g, nil
}

// Labels shared by the recorders. Values must stay low-cardinality: routes are
// patterns, callers are reported by role, and no ids are ever attached.
var (
	LabelMethod = attribute.Key("http.method")
	LabelRoute  = attribute.Key("http.route")
	LabelStatus = attribute.Key("http.status_code")
	LabelRole   = attribute.Key("actor_role")

	LabelQuery     = attribute.Key("db.operation")
	LabelTable     = attribute.Key("db.table")
	LabelPoolState = attribute.Key("db.pool.state")

	LabelFromStatus = attribute.Key("from_status")
	LabelToStatus   = attribute.Key("to_status")
	LabelOperation  = attribute.Key("operation")
	LabelErrorCode  = attribute.Key("error_code")
	LabelDirection  = attribute.Key("direction")

	LabelHandler = attribute.Key("handler")
	LabelOutcome = attribute.Key("outcome")
)

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	queryBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)

// HTTP server
var (
	HTTPRequests     = Instrument{Name: "http_server_request_total", Description: "HTTP requests served", Unit: "{request}"}
	HTTPDuration     = Instrument{Name: "http_server_request_duration_seconds", Description: "HTTP request latency", Unit: "s", Buckets: latencyBuckets}
	HTTPResponseSize = Instrument{Name: "http_server_response_size_bytes", Description: "HTTP response body size", Unit: "By", Buckets: []float64{100, 1000, 10000, 100000, 1000000}}
	HTTPInFlight     = Instrument{Name: "http_server_active_requests", Description: "HTTP requests being served", Unit: "{request}"}
)

// Database
var (
	DBQueries         = Instrument{Name: "orderdesk_db_queries_total", Description: "Database statements executed", Unit: "{queries}"}
	DBQueryErrors     = Instrument{Name: "orderdesk_db_query_errors_total", Description: "Database statements that returned an error", Unit: "{queries}"}
	DBSlowQueries     = Instrument{Name: "orderdesk_db_slow_queries_total", Description: "Statements slower than the slow query threshold", Unit: "{queries}"}
	DBQueryDuration   = Instrument{Name: "orderdesk_db_query_duration", Description: "Database statement duration", Unit: "s", Buckets: queryBuckets}
	DBPoolConnections = Instrument{Name: "orderdesk_db_pool_connections", Description: "Pooled connections by state", Unit: "{connections}"}
)

// Orders and stock
var (
	OrdersCreated    = Instrument{Name: "orderdesk_order_created_total", Description: "Orders placed", Unit: "{orders}"}
	OrderTransitions = Instrument{Name: "orderdesk_order_transition_total", Description: "Order status changes", Unit: "{transitions}"}
	OrderRejections  = Instrument{Name: "orderdesk_order_rejected_total", Description: "Order operations refused with a domain error", Unit: "{requests}"}
	OrderAmount      = Instrument{Name: "orderdesk_order_amount", Description: "Total amount of placed orders", Unit: "{currency}", Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000}}
	OrderLines       = Instrument{Name: "orderdesk_order_item_count", Description: "Lines per placed order", Unit: "{items}", Buckets: []float64{1, 2, 5, 10, 20, 50, 100}}
	StockAdjustments = Instrument{Name: "orderdesk_stock_adjustment_total", Description: "Supplier stock adjustments", Unit: "{adjustments}"}
	StockRejections  = Instrument{Name: "orderdesk_stock_rejected_total", Description: "Stock operations refused with a domain error", Unit: "{requests}"}
	EventDeliveries  = Instrument{Name: "orderdesk_event_deliveries_total", Description: "Domain events delivered to subscribers by outcome", Unit: "{events}"}
	OutOfStock       = Instrument{Name: "orderdesk_inventory_out_of_stock_count", Description: "Active products with nothing available", Unit: "{products}"}
)
