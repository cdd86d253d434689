package transferencia

import (
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeSolicitud is the aggregate type name used in events
const AggregateTypeSolicitud = "SolicitudTransferencia"

// Event type names
const (
	EventTypeSolicitudCreada     = "SolicitudTransferenciaCreada"
	EventTypeSolicitudEditada    = "SolicitudTransferenciaEditada"
	EventTypeSolicitudAprobada   = "SolicitudTransferenciaAprobada"
	EventTypeSolicitudRechazada  = "SolicitudTransferenciaRechazada"
	EventTypeSolicitudCompletada = "SolicitudTransferenciaCompletada"
	EventTypeSolicitudCancelada  = "SolicitudTransferenciaCancelada"
	EventTypeComprobanteEditado  = "ComprobanteTransferenciaEditado"
)

// SolicitudEvent is raised on every transfer request transition
type SolicitudEvent struct {
	shared.BaseDomainEvent
	SolicitudID    uuid.UUID       `json:"solicitud_id"`
	Numero         string          `json:"numero"`
	EstadoAnterior Estado          `json:"estado_anterior,omitempty"`
	Estado         Estado          `json:"estado"`
	Monto          decimal.Decimal `json:"monto"`
	Pares          []Par           `json:"pares"`
	Usuario        uuid.UUID       `json:"usuario"`
	Comentario     string          `json:"comentario,omitempty"`
}

func newSolicitudEvent(eventType string, s *Solicitud, prev Estado, usuario uuid.UUID, comentario string) *SolicitudEvent {
	return &SolicitudEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeSolicitud, s.ID),
		SolicitudID:     s.ID,
		Numero:          s.Numero,
		EstadoAnterior:  prev,
		Estado:          s.Estado,
		Monto:           s.MontoTotal,
		Pares:           append([]Par(nil), s.Pares...),
		Usuario:         usuario,
		Comentario:      comentario,
	}
}
