package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/orderdesk/backend/internal/application/catalog"
	inventoryapp "github.com/orderdesk/backend/internal/application/inventory"
	"github.com/orderdesk/backend/internal/application/notification"
	tradeapp "github.com/orderdesk/backend/internal/application/trade"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/cache"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/orderdesk/backend/internal/infrastructure/event"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
	"github.com/orderdesk/backend/internal/infrastructure/messaging"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"github.com/orderdesk/backend/internal/interfaces/http/handler"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
	"github.com/orderdesk/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/orderdesk/backend/docs"
)

//	@title			Orderdesk API
//	@version		1.0
//	@description	B2B order management: product catalog with unit conversion, inventory ledger and order workflow.

//	@contact.name	API Support
//	@contact.url	https://github.com/orderdesk/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

// Compile-time checks that the business metrics recorder serves both services
var (
	_ inventoryapp.StockMetrics = (*telemetry.BusinessMetrics)(nil)
	_ tradeapp.OrderMetrics     = (*telemetry.BusinessMetrics)(nil)
)

const (
	appVersion            = "1.0.0"
	stockMetricsInterval  = time.Minute
	telemetryFlushTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// Disabled signals fall back to the otel no-op globals
	otelProviders, err := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName:       serviceName,
		Environment:       cfg.App.Env,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		Tracing:           cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		Metrics:           cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsExportInterval,
		Logs:              cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if otelProviders.LogsEnabled() {
		bridge, err := otelProviders.ZapCore(logger.ParseLevel(cfg.Log.Level))
		if err != nil {
			log.Fatal("Failed to create OTLP log core", zap.Error(err))
		}
		// Records go to the collector as well as the local output
		log = log.WithOptions(logger.Tee(bridge))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Orderdesk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("tracing", otelProviders.TracingEnabled()),
		zap.Bool("metrics", otelProviders.MetricsEnabled()),
		zap.Bool("otlp_logs", otelProviders.LogsEnabled()),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormConfig{
		Level:         logger.GormLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		FullSQL:       cfg.Telemetry.DBLogFullSQL,
	})
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	meter := otelProviders.Meter()

	dbInstr, err := telemetry.NewDBInstrumentation(meter, telemetry.DBInstrumentationConfig{
		TracingEnabled:     cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBName:             cfg.Database.DBName,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := db.DB.Use(dbInstr); err != nil {
		log.Fatal("Failed to register database instrumentation", zap.Error(err))
	}
	defer dbInstr.Stop()

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:         meter,
		Logger:        log,
		StockProvider: persistence.NewGormStockLevelProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	businessMetrics.StartPeriodicCollection(ctx, stockMetricsInterval)
	defer businessMetrics.Stop()

	// Redis is optional: it backs idempotency keys and notification fan-out when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.DialRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	}

	opts := cache.StoreOptions{RequireRedis: cfg.App.Env == "production", Logger: log}
	if redisClient != nil {
		opts.Client = redisClient
	}
	idempotencyStore, err := cache.NewIdempotencyStore(opts)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Repositories and services
	txScope := persistence.NewGormTransactionScope(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	retryPolicy := inventoryapp.RetryPolicy{
		MaxRetries:      uint64(cfg.Order.MaxConflictRetries),
		InitialInterval: cfg.Order.RetryInitialInterval,
		MaxInterval:     cfg.Order.RetryMaxInterval,
	}

	eventBus := event.NewInMemoryEventBus(log)

	productService := catalogapp.NewProductService(txScope, productRepo, log)
	productService.SetEventPublisher(eventBus)

	inventoryService := inventoryapp.NewInventoryService(txScope, productRepo, inventoryRepo, movementRepo, log)
	inventoryService.SetRetryPolicy(retryPolicy)
	inventoryService.SetMetrics(businessMetrics)
	inventoryService.SetEventPublisher(eventBus)

	orderService := tradeapp.NewOrderService(persistence.NewGormOrderTransactionScope(db.DB), orderRepo, log)
	orderService.SetRetryPolicy(retryPolicy)
	orderService.SetMetrics(businessMetrics)
	orderService.SetEventPublisher(eventBus)
	orderService.SetIdempotencyStore(idempotencyStore, cfg.Order.IdempotencyTTL)

	// Event subscribers. Each is wrapped so a redelivered event is handled at most once.
	deliveries, err := event.NewDeliveryRecorder(meter)
	if err != nil {
		log.Fatal("Failed to create event delivery metrics", zap.Error(err))
	}
	dedup := event.DedupConfig{TTL: cfg.Events.HandlerDedupTTL, Recorder: deliveries, Logger: log}
	// External subscribers run behind their own inbox so a slow broker never
	// holds a request open.
	var dispatchers []*event.AsyncHandler
	dispatch := func(h shared.EventHandler) *event.AsyncHandler {
		a := event.NewAsyncHandler(h, event.AsyncConfig{Buffer: cfg.Events.DispatchBuffer, Logger: log})
		dispatchers = append(dispatchers, a)
		return a
	}

	if cfg.Events.NotificationsEnabled {
		var notifier notification.Notifier = notification.NewLoggingNotifier(log)
		if redisClient != nil {
			notifier = messaging.NewRedisNotifier(redisClient, cfg.Events.NotificationChannelPrefix, log)
		}
		notifications := notification.NewOrderNotificationHandler(log).WithNotifier(notifier)
		eventBus.Subscribe(dispatch(event.NewIdempotentHandler("notifications", notifications, idempotencyStore, dedup)))
	}

	if cfg.Events.KafkaEnabled {
		serializer := event.NewEventSerializer()
		event.RegisterAllEvents(serializer)
		forwarder := messaging.NewKafkaEventForwarder(messaging.NewKafkaWriter(messaging.KafkaWriterConfig{
			Brokers:      cfg.Events.KafkaBrokers,
			Topic:        cfg.Events.KafkaTopic,
			WriteTimeout: cfg.Events.KafkaWriteTimeout,
		}), serializer, log)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		eventBus.Subscribe(dispatch(event.NewIdempotentHandler("kafka", forwarder, idempotencyStore, dedup)))
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Events.KafkaBrokers),
			zap.String("topic", cfg.Events.KafkaTopic),
		)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// HTTP
	checks := []handler.HealthCheck{{
		Name:  "database",
		Check: db.Ping,
	}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    serviceName,
		HTTP:           cfg.HTTP,
		Swagger:        cfg.Swagger,
		Logger:         log,
		TracingEnabled: otelProviders.TracingEnabled(),
		Meter:          meter,
		RateLimiter:    rateLimiter,
		RequestTimeout: cfg.HTTP.WriteTimeout,
	}, router.Handlers{
		Product:   handler.NewProductHandler(productService),
		Inventory: handler.NewInventoryHandler(inventoryService),
		Order:     handler.NewOrderHandler(orderService),
		System:    handler.NewSystemHandler(cfg.App.Name, appVersion, checks...),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	for _, d := range dispatchers {
		if err := d.Close(shutdownCtx); err != nil {
			log.Error("Event dispatcher not drained", zap.String("handler", d.Name()), zap.Error(err))
		}
	}
	stopBackground()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer flushCancel()
	_ = otelProviders.Shutdown(flushCtx)

	stats := deliveries.Stats()
	log.Info("Server exited gracefully",
		zap.Int64("events_handled", stats.Handled),
		zap.Int64("events_duplicate", stats.Duplicate),
		zap.Int64("events_failed", stats.Failed),
	)
}
