package event

import (
	"context"
	"fmt"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/finanzas/liquidaciones/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MetricsRecorder is the subset of telemetry.BusinessMetrics fed by domain events
type MetricsRecorder interface {
	RecordTransferTransition(ctx context.Context, eventType, estado string)
	RecordTransferCompleted(ctx context.Context, monto decimal.Decimal)
	RecordLiquidation(ctx context.Context, moneda string, monto decimal.Decimal)
	RecordAuthorization(ctx context.Context, result telemetry.AuthorizationResult)
}

// MetricsHandler turns transfer and invoice events into business metrics
type MetricsHandler struct {
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics MetricsRecorder, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{metrics: metrics, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		transferencia.EventTypeSolicitudCreada,
		transferencia.EventTypeSolicitudEditada,
		transferencia.EventTypeSolicitudAprobada,
		transferencia.EventTypeSolicitudRechazada,
		transferencia.EventTypeSolicitudCompletada,
		transferencia.EventTypeSolicitudCancelada,
		liquidacion.EventTypeAutorizacionSolicitada,
		liquidacion.EventTypeAutorizacionResuelta,
		liquidacion.EventTypeFacturaLiquidada,
	}
}

// Handle records the metric that matches the event
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *transferencia.SolicitudEvent:
		h.metrics.RecordTransferTransition(ctx, e.EventType(), string(e.Estado))
		if e.EventType() == transferencia.EventTypeSolicitudCompletada {
			h.metrics.RecordTransferCompleted(ctx, e.Monto)
		}
	case *liquidacion.AutorizacionSolicitadaEvent:
		h.metrics.RecordAuthorization(ctx, telemetry.AuthorizationRequested)
	case *liquidacion.AutorizacionResueltaEvent:
		result := telemetry.AuthorizationRejected
		if e.Estado == liquidacion.EstadoAutorizacionAprobada {
			result = telemetry.AuthorizationApproved
		}
		h.metrics.RecordAuthorization(ctx, result)
	case *liquidacion.FacturaLiquidadaEvent:
		h.metrics.RecordLiquidation(ctx, e.Moneda, e.MontoLiquidado)
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

var _ shared.EventHandler = (*MetricsHandler)(nil)
var _ MetricsRecorder = (*telemetry.BusinessMetrics)(nil)
