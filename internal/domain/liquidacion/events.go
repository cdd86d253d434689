package liquidacion

import (
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeFactura is the aggregate type name used in events
const AggregateTypeFactura = "Factura"

// Event type names
const (
	EventTypeAutorizacionSolicitada = "FacturaAutorizacionSolicitada"
	EventTypeAutorizacionResuelta   = "FacturaAutorizacionResuelta"
	EventTypeFacturaLiquidada       = "FacturaLiquidada"
)

// AutorizacionSolicitadaEvent is raised when a tardiness authorization is requested
type AutorizacionSolicitadaEvent struct {
	shared.BaseDomainEvent
	FacturaID         uuid.UUID `json:"factura_id"`
	NumeroDTE         string    `json:"numero_dte"`
	Motivo            string    `json:"motivo"`
	DiasTranscurridos int       `json:"dias_transcurridos"`
	SolicitadoPor     uuid.UUID `json:"solicitado_por"`
}

// EventType returns the event type name
func (e *AutorizacionSolicitadaEvent) EventType() string {
	return EventTypeAutorizacionSolicitada
}

// NewAutorizacionSolicitadaEvent creates a new AutorizacionSolicitadaEvent
func NewAutorizacionSolicitadaEvent(f *Factura) *AutorizacionSolicitadaEvent {
	var solicitante uuid.UUID
	if f.Autorizacion.SolicitadoPor != nil {
		solicitante = *f.Autorizacion.SolicitadoPor
	}
	return &AutorizacionSolicitadaEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeAutorizacionSolicitada, AggregateTypeFactura, f.ID),
		FacturaID:         f.ID,
		NumeroDTE:         f.NumeroDTE,
		Motivo:            f.Autorizacion.Motivo,
		DiasTranscurridos: f.Autorizacion.DiasTranscurridos,
		SolicitadoPor:     solicitante,
	}
}

// AutorizacionResueltaEvent is raised when the approver decides on a request
type AutorizacionResueltaEvent struct {
	shared.BaseDomainEvent
	FacturaID   uuid.UUID          `json:"factura_id"`
	NumeroDTE   string             `json:"numero_dte"`
	Estado      EstadoAutorizacion `json:"estado"`
	AprobadoPor uuid.UUID          `json:"aprobado_por"`
}

// EventType returns the event type name
func (e *AutorizacionResueltaEvent) EventType() string {
	return EventTypeAutorizacionResuelta
}

// NewAutorizacionResueltaEvent creates a new AutorizacionResueltaEvent
func NewAutorizacionResueltaEvent(f *Factura) *AutorizacionResueltaEvent {
	var aprobador uuid.UUID
	if f.Autorizacion.AprobadoPor != nil {
		aprobador = *f.Autorizacion.AprobadoPor
	}
	return &AutorizacionResueltaEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAutorizacionResuelta, AggregateTypeFactura, f.ID),
		FacturaID:       f.ID,
		NumeroDTE:       f.NumeroDTE,
		Estado:          f.Autorizacion.Estado,
		AprobadoPor:     aprobador,
	}
}

// FacturaLiquidadaEvent is raised when an invoice is liquidated
type FacturaLiquidadaEvent struct {
	shared.BaseDomainEvent
	FacturaID      uuid.UUID       `json:"factura_id"`
	NumeroDTE      string          `json:"numero_dte"`
	MontoLiquidado decimal.Decimal `json:"monto_liquidado"`
	Moneda         string          `json:"moneda"`
	LiquidadoPor   uuid.UUID       `json:"liquidado_por"`
}

// EventType returns the event type name
func (e *FacturaLiquidadaEvent) EventType() string {
	return EventTypeFacturaLiquidada
}

// NewFacturaLiquidadaEvent creates a new FacturaLiquidadaEvent
func NewFacturaLiquidadaEvent(f *Factura) *FacturaLiquidadaEvent {
	var liquidador uuid.UUID
	if f.LiquidadoPor != nil {
		liquidador = *f.LiquidadoPor
	}
	return &FacturaLiquidadaEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFacturaLiquidada, AggregateTypeFactura, f.ID),
		FacturaID:       f.ID,
		NumeroDTE:       f.NumeroDTE,
		MontoLiquidado:  f.MontoLiquidado,
		Moneda:          f.Moneda,
		LiquidadoPor:    liquidador,
	}
}
