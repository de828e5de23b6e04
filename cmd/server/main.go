package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	inventoryapp "github.com/rxsupply/backend/internal/application/inventory"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/infrastructure/auth"
	"github.com/rxsupply/backend/internal/infrastructure/cache"
	"github.com/rxsupply/backend/internal/infrastructure/config"
	"github.com/rxsupply/backend/internal/infrastructure/event"
	"github.com/rxsupply/backend/internal/infrastructure/logger"
	"github.com/rxsupply/backend/internal/infrastructure/migration"
	"github.com/rxsupply/backend/internal/infrastructure/persistence"
	"github.com/rxsupply/backend/internal/infrastructure/telemetry"
	"github.com/rxsupply/backend/internal/interfaces/http/handler"
	"github.com/rxsupply/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title						Lot Inventory API
//	@version					1.0
//	@description				Lot-based pharmacy inventory: lot receiving, FEFO allocation and atomic deduction.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting lot inventory service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdownWithTimeout(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownWithTimeout(log, "meter provider", meterProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Profiling.SpanProfiles && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL && !cfg.IsProduction(),
		SlowQueryThresh: cfg.Database.SlowThreshold,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Caches
	stores, err := cache.NewFactory(cfg.Inventory.CacheBackend, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create inventory caches", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing inventory caches", zap.Error(err))
		}
	}()

	// Repositories and services
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	txRepo := persistence.NewGormBatchTransactionRepository(db.DB)
	sizeRepo := persistence.NewGormProductSizeRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	strategy, err := inventory.NewAllocationStrategy(inventory.AllocationStrategyType(cfg.Inventory.AllocationStrategy))
	if err != nil {
		log.Fatal("Invalid allocation strategy", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(inventoryapp.NewStockCacheInvalidationHandler(stores.Stock, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	batchService := inventoryapp.NewBatchInventoryService(batchRepo, txRepo, sizeRepo, txScope, log)
	batchService.SetAllocationStrategy(strategy)
	batchService.SetEventPublisher(eventBus)
	batchService.SetIdempotencyStore(stores.Idempotency, cfg.Inventory.IdempotencyTTL)
	batchService.SetStockCache(stores.Stock, cfg.Inventory.StockCacheTTL)

	sweepService := inventoryapp.NewExpirySweepService(batchRepo, batchService, cfg.Inventory.ExpirySweepBatch, log)

	var meter metric.Meter
	if cfg.Telemetry.MetricsEnabled {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
		invMetrics, err := telemetry.NewInventoryMetrics(telemetry.InventoryMetricsConfig{
			Meter:          meter,
			Logger:         log,
			StockLevels:    telemetry.NewGormStockLevelProvider(db.DB),
			ExpiringWithin: time.Duration(cfg.Inventory.ExpiringWindowDays) * 24 * time.Hour,
		})
		if err != nil {
			log.Fatal("Failed to create inventory metrics", zap.Error(err))
		}
		batchService.SetMetrics(invMetrics)
		sweepService.SetMetrics(invMetrics)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Inventory.ExpirySweepEnabled {
		go sweepService.Run(sweepCtx, cfg.Inventory.ExpirySweepInterval)
		log.Info("Expiry sweep started",
			zap.Duration("interval", cfg.Inventory.ExpirySweepInterval),
			zap.Int("batch_size", cfg.Inventory.ExpirySweepBatch),
		)
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	health := handler.NewHealthHandler(cfg.App.Name, version).
		AddCheck("database", db.Ping).
		AddCheck("cache", stores.Ping)

	engineOpts := router.EngineOptions{
		Batches:          handler.NewBatchHandler(batchService, cfg.Inventory.ExpiringWindowDays),
		Health:           health,
		Logger:           log,
		HTTP:             cfg.HTTP,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		Meter:            meter,
		ProfilingEnabled: profiler.IsEnabled(),
	}
	if cfg.JWT.Enabled {
		engineOpts.Validator = auth.NewJWTService(cfg.JWT)
	} else {
		log.Warn("JWT authentication disabled; inventory API is open and movements carry no performer")
	}
	engine := router.NewEngine(engineOpts)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// migrateUp applies the embedded migrations on a dedicated connection;
// the migrator closes the connection it is given.
func migrateUp(cfg *config.Config, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func shutdownWithTimeout(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
