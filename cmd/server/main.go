package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	anticipoapp "github.com/finanzas/liquidaciones/internal/application/anticipo"
	calendarioapp "github.com/finanzas/liquidaciones/internal/application/calendario"
	eventapp "github.com/finanzas/liquidaciones/internal/application/event"
	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/finanzas/liquidaciones/internal/infrastructure/cache"
	"github.com/finanzas/liquidaciones/internal/infrastructure/config"
	"github.com/finanzas/liquidaciones/internal/infrastructure/event"
	"github.com/finanzas/liquidaciones/internal/infrastructure/logger"
	"github.com/finanzas/liquidaciones/internal/infrastructure/migration"
	"github.com/finanzas/liquidaciones/internal/infrastructure/persistence"
	"github.com/finanzas/liquidaciones/internal/infrastructure/storage"
	"github.com/finanzas/liquidaciones/internal/infrastructure/telemetry"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/handler"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/middleware"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers come first so the bridged logger and the GORM
	// plugins see the global providers.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	log := loggerProvider.Bridge(baseLog, zapcore.InfoLevel)
	zap.ReplaceGlobals(log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting liquidaciones",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	if err := telemetry.RegisterDBMetrics(db.DB, meter, log); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Shared stores and receipt storage
	stores, err := cache.NewStores(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize cache stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()

	receipts, err := storage.NewReceiptStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize receipt storage", zap.Error(err))
	}

	// Repositories
	facturaRepo := persistence.NewGormFacturaRepository(db.DB)
	detalleRepo := persistence.NewGormDetalleRepository(db.DB)
	anticipoRepo := persistence.NewGormAnticipoRepository(db.DB)
	autorizacionGateway := persistence.NewGormAutorizacionGateway(db.DB)
	solicitudRepo := persistence.NewGormSolicitudTransferenciaRepository(db.DB)
	feriadoRepo := persistence.NewGormFeriadoRepository(db.DB)

	// Event bus and business metrics
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:            meter,
		Logger:           log,
		TransferProvider: solicitudRepo,
	})
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}
	businessMetrics.StartPeriodicCollection(ctx, time.Minute)
	defer businessMetrics.Stop()

	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := eventapp.NewAuditHandler(log)
	metricsHandler := eventapp.NewMetricsHandler(businessMetrics, log)
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)
	eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
	log.Info("Event handlers registered",
		zap.Strings("audit_events", auditHandler.EventTypes()),
		zap.Strings("metrics_events", metricsHandler.EventTypes()),
	)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		log.Fatal("Failed to load calendar timezone", zap.Error(err))
	}
	calendarService := calendarioapp.NewService(calendarioapp.ServiceConfig{
		Repo:           feriadoRepo,
		Cache:          stores.Holidays,
		CacheTTL:       cfg.Calendar.HolidaysTTL,
		DiasPermitidos: cfg.Calendar.DiasPermitidos,
		Location:       loc,
		Logger:         log,
	})
	tolerance := cfg.Liquidacion.ToleranceDecimal()
	facturaService := liquidacionapp.NewFacturaService(liquidacionapp.FacturaServiceConfig{
		FacturaRepo:    facturaRepo,
		DetalleRepo:    detalleRepo,
		Calendar:       calendarService,
		Guard:          stores.Guard,
		EventPublisher: eventBus,
		Tolerance:      tolerance,
		Metrics:        businessMetrics,
		Logger:         log,
	})
	detalleService := liquidacionapp.NewDetalleService(facturaRepo, detalleRepo, stores.Guard, tolerance)
	anticipoService := anticipoapp.NewService(anticipoapp.ServiceConfig{
		Repo:                  anticipoRepo,
		Gateway:               autorizacionGateway,
		Guard:                 stores.Guard,
		OpenRequestVocabulary: cfg.Liquidacion.OpenRequestVocabulary,
		Logger:                log,
	})
	transferenciaService := transferenciaapp.NewService(transferenciaapp.ServiceConfig{
		Repo:           solicitudRepo,
		FacturaRepo:    facturaRepo,
		DetalleRepo:    detalleRepo,
		Storage:        receipts,
		Guard:          stores.Guard,
		EventPublisher: eventBus,
		ArchivoRules: transferencia.ArchivoRules{
			AllowedMimeTypes: cfg.Liquidacion.AllowedReceiptTypes,
			MaxSize:          cfg.Liquidacion.MaxReceiptFileSize,
		},
		DownloadURLExpiry: cfg.Liquidacion.DownloadURLExpiry,
		Logger:            log,
	})

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if stores.UsesRedis() {
		checks["redis"] = stores.Ping
	}
	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine, err := router.NewEngine(router.Config{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meter,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Factura:       handler.NewFacturaHandler(facturaService),
		Detalle:       handler.NewDetalleHandler(detalleService),
		Anticipo:      handler.NewAnticipoHandler(anticipoService),
		Transferencia: handler.NewTransferenciaHandler(transferenciaService),
		Feriado:       handler.NewFeriadoHandler(calendarService),
		System:        handler.NewSystemHandler(cfg.App.Name, version, checks),
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logger": loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared connection pool.
	return m.Up()
}
