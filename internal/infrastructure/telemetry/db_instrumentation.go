package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// DBInstrumentationConfig controls the GORM instrumentation plugin.
type DBInstrumentationConfig struct {
	TracingEnabled     bool          // install otelgorm spans
	LogFullSQL         bool          // keep bound parameters in span statements
	SlowQueryThreshold time.Duration // default 200ms
	DBName             string

	// TracerProvider overrides the global provider for otelgorm spans.
	TracerProvider trace.TracerProvider
}

// DBInstrumentation is a GORM plugin that counts and times statements, flags
// slow ones on the active span and reports pool usage when metrics are read.
type DBInstrumentation struct {
	config DBInstrumentationConfig
	logger *zap.Logger
	meter  metric.Meter

	queries  metric.Int64Counter
	failures metric.Int64Counter
	slow     metric.Int64Counter
	duration metric.Float64Histogram
	pool     metric.Int64ObservableGauge

	mu       sync.Mutex
	poolStat metric.Registration
}

type statementStartKey struct{}

func NewDBInstrumentation(meter metric.Meter, cfg DBInstrumentationConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if meter == nil {
		return nil, ErrNoMeter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaultSlowQueryThreshold
	}
	d := &DBInstrumentation{config: cfg, logger: logger, meter: meter}

	var err error
	if d.queries, err = DBQueries.Counter(meter); err != nil {
		return nil, err
	}
	if d.failures, err = DBQueryErrors.Counter(meter); err != nil {
		return nil, err
	}
	if d.slow, err = DBSlowQueries.Counter(meter); err != nil {
		return nil, err
	}
	if d.duration, err = DBQueryDuration.Histogram(meter); err != nil {
		return nil, err
	}
	if d.pool, err = DBPoolConnections.ObservableGauge(meter); err != nil {
		return nil, err
	}
	return d, nil
}

// Name implements gorm.Plugin.
func (d *DBInstrumentation) Name() string {
	return "orderdesk:db_instrumentation"
}

// Initialize implements gorm.Plugin.
func (d *DBInstrumentation) Initialize(db *gorm.DB) error {
	if d.config.TracingEnabled {
		if err := db.Use(otelgorm.NewPlugin(d.tracingOptions()...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register("orderdesk:before_create", stampStart),
		cb.Create().After("gorm:create").Register("orderdesk:after_create", d.recordStatement("INSERT")),
		cb.Query().Before("gorm:query").Register("orderdesk:before_query", stampStart),
		cb.Query().After("gorm:query").Register("orderdesk:after_query", d.recordStatement("SELECT")),
		cb.Update().Before("gorm:update").Register("orderdesk:before_update", stampStart),
		cb.Update().After("gorm:update").Register("orderdesk:after_update", d.recordStatement("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("orderdesk:before_delete", stampStart),
		cb.Delete().After("gorm:delete").Register("orderdesk:after_delete", d.recordStatement("DELETE")),
		cb.Row().Before("gorm:row").Register("orderdesk:before_row", stampStart),
		cb.Row().After("gorm:row").Register("orderdesk:after_row", d.recordStatement("")),
		cb.Raw().Before("gorm:raw").Register("orderdesk:before_raw", stampStart),
		cb.Raw().After("gorm:raw").Register("orderdesk:after_raw", d.recordStatement("")),
	)
	if err != nil {
		return err
	}

	if err := d.observePool(db); err != nil {
		return err
	}

	d.logger.Info("Database instrumentation registered",
		zap.Bool("tracing", d.config.TracingEnabled),
		zap.Duration("slow_query_threshold", d.config.SlowQueryThreshold),
	)
	return nil
}

func (d *DBInstrumentation) tracingOptions() []otelgorm.Option {
	var opts []otelgorm.Option
	if d.config.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(d.config.DBName))
	}
	if !d.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if d.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(d.config.TracerProvider))
	}
	return opts
}

// observePool reports idle, in-use and max connections each time metrics are collected.
func (d *DBInstrumentation) observePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		d.logger.Warn("Connection pool metrics unavailable", zap.Error(err))
		return nil
	}
	reg, err := d.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(d.pool, int64(stats.Idle), metric.WithAttributes(LabelPoolState.String("idle")))
		o.ObserveInt64(d.pool, int64(stats.InUse), metric.WithAttributes(LabelPoolState.String("in_use")))
		o.ObserveInt64(d.pool, int64(stats.MaxOpenConnections), metric.WithAttributes(LabelPoolState.String("max")))
		return nil
	}, d.pool)
	if err != nil {
		return fmt.Errorf("register pool callback: %w", err)
	}

	d.mu.Lock()
	d.poolStat = reg
	d.mu.Unlock()
	return nil
}

func stampStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, statementStartKey{}, time.Now())
}

// recordStatement returns the after-callback; an empty operation is read from the SQL text.
func (d *DBInstrumentation) recordStatement(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(statementStartKey{}).(time.Time)
		if !ok {
			return
		}
		op := operation
		if op == "" {
			op = statementKind(db.Statement.SQL.String())
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		d.RecordQuery(ctx, op, table, time.Since(start), db.Error)
	}
}

// RecordQuery records one completed statement. Record-not-found is not a failure.
func (d *DBInstrumentation) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration, err error) {
	labels := metric.WithAttributes(LabelQuery.String(operation), LabelTable.String(table))

	d.queries.Add(ctx, 1, labels)
	d.duration.Record(ctx, elapsed.Seconds(), labels)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		d.failures.Add(ctx, 1, labels)
	}
	if elapsed >= d.config.SlowQueryThreshold {
		d.slow.Add(ctx, 1, labels)
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
	}
}

// Stop unregisters the pool callback. Safe to call more than once.
func (d *DBInstrumentation) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.poolStat == nil {
		return
	}
	if err := d.poolStat.Unregister(); err != nil {
		d.logger.Warn("Failed to unregister pool callback", zap.Error(err))
	}
	d.poolStat = nil
}

// statementKind maps raw SQL to the operation label; CTEs count as reads.
func statementKind(sql string) string {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return "OTHER"
	}
	switch op := strings.ToUpper(words[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}

var _ gorm.Plugin = (*DBInstrumentation)(nil)
