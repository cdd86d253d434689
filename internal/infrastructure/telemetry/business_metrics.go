package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks transfer request transitions, completed transfer
// amounts, invoice liquidations and tardiness authorizations.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	transferTransitions *Counter
	transferAmount      *Counter
	liquidations        *Counter
	liquidatedAmount    *Counter
	authorizations      *Counter
	calendarDegraded    *Counter

	pendingTransfers *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	transferProvider TransferMetricsProvider
}

// TransferMetricsProvider reports how many transfer requests sit in each state.
// It lets the telemetry layer sample the backlog without depending on the domain.
type TransferMetricsProvider interface {
	CountByEstado(ctx context.Context) (map[string]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	TransferProvider TransferMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		transferProvider: cfg.TransferProvider,
	}

	counters := []struct {
		target           **Counter
		name, desc, unit string
	}{
		{&bm.transferTransitions, "liq_transferencia_transitions_total", "Transfer request state transitions", "{transitions}"},
		{&bm.transferAmount, "liq_transferencia_amount_total", "Completed transfer amount in cents", "{cents}"},
		{&bm.liquidations, "liq_factura_liquidated_total", "Invoices liquidated", "{invoices}"},
		{&bm.liquidatedAmount, "liq_factura_liquidated_amount_total", "Liquidated invoice amount in cents", "{cents}"},
		{&bm.authorizations, "liq_factura_authorization_total", "Tardiness authorization requests and decisions", "{requests}"},
		{&bm.calendarDegraded, "liq_calendar_degraded_total", "Tardiness evaluations made without the business-day calendar", "{evaluations}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	bm.pendingTransfers, err = NewGauge(cfg.Meter,
		"liq_transferencia_backlog",
		"Transfer requests per state",
		"{requests}")
	if err != nil {
		return nil, err
	}
	return bm, nil
}

func cents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// RecordTransferTransition counts a transfer request reaching a new state.
func (bm *BusinessMetrics) RecordTransferTransition(ctx context.Context, eventType, estado string) {
	bm.transferTransitions.Inc(ctx, AttrEventType.String(eventType), AttrEstado.String(estado))
}

// RecordTransferCompleted adds the amount of a completed transfer.
func (bm *BusinessMetrics) RecordTransferCompleted(ctx context.Context, monto decimal.Decimal) {
	bm.transferAmount.Add(ctx, cents(monto))
}

// RecordLiquidation counts a liquidated invoice and its amount.
func (bm *BusinessMetrics) RecordLiquidation(ctx context.Context, moneda string, monto decimal.Decimal) {
	bm.liquidations.Inc(ctx, AttrMoneda.String(moneda))
	bm.liquidatedAmount.Add(ctx, cents(monto), AttrMoneda.String(moneda))
}

// AuthorizationResult labels a tardiness authorization metric.
type AuthorizationResult string

const (
	AuthorizationRequested AuthorizationResult = "solicitada"
	AuthorizationApproved  AuthorizationResult = "aprobada"
	AuthorizationRejected  AuthorizationResult = "rechazada"
)

// RecordAuthorization counts a tardiness authorization request or decision.
func (bm *BusinessMetrics) RecordAuthorization(ctx context.Context, result AuthorizationResult) {
	bm.authorizations.Inc(ctx, AttrResultado.String(string(result)))
}

// RecordCalendarDegraded counts an evaluation that fell back without the calendar.
func (bm *BusinessMetrics) RecordCalendarDegraded(ctx context.Context) {
	bm.calendarDegraded.Inc(ctx)
}

// RecordBacklog records the number of transfer requests in a state.
func (bm *BusinessMetrics) RecordBacklog(ctx context.Context, estado string, count int64) {
	bm.pendingTransfers.Record(ctx, count, AttrEstado.String(estado))
}

// StartPeriodicCollection samples the transfer backlog every interval
// (default 5 minutes) until Stop is called or ctx ends. Non-blocking.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectBacklog(ctx)
	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.collectBacklog(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectBacklog(ctx context.Context) {
	if bm.transferProvider == nil {
		return
	}
	counts, err := bm.transferProvider.CountByEstado(ctx)
	if err != nil {
		bm.logger.Warn("Failed to sample transfer backlog", zap.Error(err))
		return
	}
	for estado, n := range counts {
		bm.RecordBacklog(ctx, estado, n)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
