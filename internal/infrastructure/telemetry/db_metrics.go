package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type dbMetricsKey struct{}

// RegisterDBMetrics records a duration histogram for every gorm operation and
// exposes connection pool statistics as observable gauges.
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter, logger *zap.Logger) error {
	if meter == nil {
		return ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "liq_db_query_duration_seconds",
		Description: "Database query duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return err
	}
	errorsTotal, err := NewCounter(meter, "liq_db_query_errors_total", "Failed database queries", "{queries}")
	if err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, dbMetricsKey{}, time.Now())
		}
	}
	afterFor := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			start, ok := tx.Statement.Context.Value(dbMetricsKey{}).(time.Time)
			if !ok {
				return
			}
			duration.RecordDuration(tx.Statement.Context, time.Since(start),
				AttrDBOperation.String(operation), AttrDBTable.String(tx.Statement.Table))
			if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
				errorsTotal.Inc(tx.Statement.Context,
					AttrDBOperation.String(operation), AttrDBTable.String(tx.Statement.Table))
			}
		}
	}

	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("liq:metrics_before_create", before),
		cb.Query().Before("gorm:query").Register("liq:metrics_before_query", before),
		cb.Update().Before("gorm:update").Register("liq:metrics_before_update", before),
		cb.Delete().Before("gorm:delete").Register("liq:metrics_before_delete", before),
		cb.Create().After("gorm:create").Register("liq:metrics_after_create", afterFor("insert")),
		cb.Query().After("gorm:query").Register("liq:metrics_after_query", afterFor("select")),
		cb.Update().After("gorm:update").Register("liq:metrics_after_update", afterFor("update")),
		cb.Delete().After("gorm:delete").Register("liq:metrics_after_delete", afterFor("delete")),
	}
	for _, err := range registrations {
		if err != nil {
			return err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	open, err := meter.Int64ObservableGauge("liq_db_pool_connections",
		metric.WithDescription("Database connections by state"),
		metric.WithUnit("{connections}"))
	if err != nil {
		return fmt.Errorf("failed to create pool gauge: %w", err)
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(open, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(open, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(open, int64(stats.WaitCount), metric.WithAttributes(AttrDBState.String("waited")))
		return nil
	}, open)
	if err != nil {
		return fmt.Errorf("failed to register pool callback: %w", err)
	}

	logger.Info("Database metrics enabled")
	return nil
}
