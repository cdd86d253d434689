package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans (dev only)
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default "postgresql"
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type dbTracingKey struct{}

// RegisterDBTracing installs the otelgorm plugin on db plus a callback that
// flags and logs queries slower than the configured threshold.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, dbTracingKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		start, ok := tx.Statement.Context.Value(dbTracingKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		if elapsed < cfg.SlowQueryThresh {
			return
		}
		trace.SpanFromContext(tx.Statement.Context).SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
		logger.Warn("Slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("duration", elapsed),
			zap.Duration("threshold", cfg.SlowQueryThresh))
	}

	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("liq:trace_before_create", before),
		cb.Query().Before("gorm:query").Register("liq:trace_before_query", before),
		cb.Update().Before("gorm:update").Register("liq:trace_before_update", before),
		cb.Delete().Before("gorm:delete").Register("liq:trace_before_delete", before),
		cb.Raw().Before("gorm:raw").Register("liq:trace_before_raw", before),
		cb.Create().After("gorm:create").Register("liq:trace_after_create", after),
		cb.Query().After("gorm:query").Register("liq:trace_after_query", after),
		cb.Update().After("gorm:update").Register("liq:trace_after_update", after),
		cb.Delete().After("gorm:delete").Register("liq:trace_after_delete", after),
		cb.Raw().After("gorm:raw").Register("liq:trace_after_raw", after),
	}
	for _, err := range registrations {
		if err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}
