package anticipo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipoPago is how an advance was disbursed
type TipoPago string

const (
	TipoPagoCheque        TipoPago = "CHEQUE"
	TipoPagoEfectivo      TipoPago = "EFECTIVO"
	TipoPagoTransferencia TipoPago = "TRANSFERENCIA"
)

// IsValid checks if the payment type is known
func (t TipoPago) IsValid() bool {
	switch t {
	case TipoPagoCheque, TipoPagoEfectivo, TipoPagoTransferencia:
		return true
	}
	return false
}

// EstadoLiquidacion is the settlement-timeliness classification of an advance
type EstadoLiquidacion string

const (
	EstadoNoLiquidado   EstadoLiquidacion = "NO_LIQUIDADO"
	EstadoReciente      EstadoLiquidacion = "RECIENTE"
	EstadoEnTiempo      EstadoLiquidacion = "EN_TIEMPO"
	EstadoFueraDeTiempo EstadoLiquidacion = "FUERA_DE_TIEMPO"
	EstadoLiquidado     EstadoLiquidacion = "LIQUIDADO"
)

// MotivoFueraDeTiempo is the inclusion motive of advances flagged as late
const MotivoFueraDeTiempo = "FUERA_DE_TIEMPO"

// IsValid checks if the state is a valid EstadoLiquidacion
func (e EstadoLiquidacion) IsValid() bool {
	switch e {
	case EstadoNoLiquidado, EstadoReciente, EstadoEnTiempo, EstadoFueraDeTiempo, EstadoLiquidado:
		return true
	}
	return false
}

// String returns the string representation of EstadoLiquidacion
func (e EstadoLiquidacion) String() string {
	return string(e)
}

// Seguimiento is a tracking entry of an authorization request filed for an advance
type Seguimiento struct {
	Estado      string     `json:"estado"`
	Comentarios string     `json:"comentarios,omitempty"`
	Fecha       time.Time  `json:"fecha"`
	FechaCierre *time.Time `json:"fecha_cierre,omitempty"`
}

// Anticipo is a disbursed advance awaiting reconciliation against an order
type Anticipo struct {
	ID                   uuid.UUID         `json:"id_solicitud"`
	NumeroOrden          string            `json:"numero_orden"`
	Monto                decimal.Decimal   `json:"monto"`
	TipoPago             TipoPago          `json:"tipo_pago"`
	EstadoLiquidacion    EstadoLiquidacion `json:"estado_liquidacion"`
	DiasTranscurridos    *int              `json:"dias_transcurridos,omitempty"`
	DiasPermitidos       *int              `json:"dias_permitidos,omitempty"`
	MotivoInclusion      string            `json:"motivo_inclusion,omitempty"`
	RequiereAutorizacion bool              `json:"requiere_autorizacion"`
	UltimoSeguimiento    *Seguimiento      `json:"ultimo_seguimiento,omitempty"`
	FechaDesembolso      time.Time         `json:"fecha_desembolso"`
}

// TipoSolicitudAutorizacion is the request kind sent for advance authorizations
const TipoSolicitudAutorizacion = "autorizacion"

// SolicitudAutorizacionCmd is the command emitted when an authorization is requested
type SolicitudAutorizacionCmd struct {
	IDSolicitud   uuid.UUID  `json:"id_solicitud"`
	Justificacion string     `json:"justificacion"`
	Tipo          string     `json:"tipo"`
	SolicitadoPor *uuid.UUID `json:"solicitado_por,omitempty"`
}

// Repository defines the interface for advance persistence
type Repository interface {
	// FindByID finds an advance by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Anticipo, error)

	// FindPendientesByOrden lists the advances awaiting reconciliation for an order
	FindPendientesByOrden(ctx context.Context, numeroOrden string) ([]Anticipo, error)
}

// AutorizacionGateway delivers authorization requests to whoever tracks them
type AutorizacionGateway interface {
	SolicitarAutorizacion(ctx context.Context, cmd SolicitudAutorizacionCmd) error
}
