package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/finanzas/liquidaciones/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type feriadoRow struct {
	ID          uint `gorm:"primaryKey"`
	Descripcion string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&feriadoRow{}))
	return db
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := installRecorder(t)
	db := openSQLite(t)
	core, logs := observer.New(zapcore.WarnLevel)

	cfg := telemetry.DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	cfg.SlowQueryThresh = time.Nanosecond
	require.NoError(t, telemetry.RegisterDBTracing(db, cfg, zap.New(core)))

	require.NoError(t, db.WithContext(context.Background()).Create(&feriadoRow{Descripcion: "Año nuevo"}).Error)

	assert.NotEmpty(t, recorder.Ended())
	assert.NotZero(t, logs.FilterMessage("Slow query").Len())
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	recorder := installRecorder(t)
	db := openSQLite(t)

	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DefaultDBTracingConfig(), nil))
	require.NoError(t, db.Create(&feriadoRow{Descripcion: "Navidad"}).Error)
	assert.Empty(t, recorder.Ended())
}

func TestRegisterDBMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	db := openSQLite(t)

	require.NoError(t, telemetry.RegisterDBMetrics(db, provider.Meter("test"), nil))
	require.NoError(t, db.Create(&feriadoRow{Descripcion: "Independencia"}).Error)
	var rows []feriadoRow
	require.NoError(t, db.Find(&rows).Error)

	metrics := collect(t, reader)
	hist, ok := metrics["liq_db_query_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.GreaterOrEqual(t, count, uint64(2))

	_, ok = metrics["liq_db_pool_connections"]
	assert.True(t, ok)
}

func TestRegisterDBMetrics_NilMeter(t *testing.T) {
	assert.ErrorIs(t, telemetry.RegisterDBMetrics(openSQLite(t), nil, nil), telemetry.ErrMeterNil)
}
