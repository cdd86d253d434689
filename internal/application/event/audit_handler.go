// Package event holds the application-level subscribers of the domain event bus.
package event

import (
	"context"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"go.uber.org/zap"
)

// AuditHandler writes every domain event to the audit log
type AuditHandler struct {
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil; the audit trail receives all events
func (h *AuditHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with the fields relevant to its type
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *transferencia.SolicitudEvent:
		fields = append(fields,
			zap.String("numero", e.Numero),
			zap.String("estado_anterior", string(e.EstadoAnterior)),
			zap.String("estado", string(e.Estado)),
			zap.String("monto", e.Monto.String()),
			zap.Int("pares", len(e.Pares)),
			zap.String("usuario", e.Usuario.String()))
		if e.Comentario != "" {
			fields = append(fields, zap.String("comentario", e.Comentario))
		}
	case *liquidacion.AutorizacionSolicitadaEvent:
		fields = append(fields,
			zap.String("numero_dte", e.NumeroDTE),
			zap.Int("dias_transcurridos", e.DiasTranscurridos),
			zap.String("solicitado_por", e.SolicitadoPor.String()))
	case *liquidacion.AutorizacionResueltaEvent:
		fields = append(fields,
			zap.String("numero_dte", e.NumeroDTE),
			zap.String("estado", string(e.Estado)),
			zap.String("aprobado_por", e.AprobadoPor.String()))
	case *liquidacion.FacturaLiquidadaEvent:
		fields = append(fields,
			zap.String("numero_dte", e.NumeroDTE),
			zap.String("monto_liquidado", e.MontoLiquidado.String()),
			zap.String("moneda", e.Moneda),
			zap.String("liquidado_por", e.LiquidadoPor.String()))
	}

	h.logger.Info("domain event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
