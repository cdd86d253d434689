package liquidacion

import (
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FacturaResponse represents an invoice in API responses
type FacturaResponse struct {
	ID                 uuid.UUID                `json:"id"`
	NumeroDTE          string                   `json:"numero_dte"`
	FechaEmision       time.Time                `json:"fecha_emision"`
	MontoTotal         decimal.Decimal          `json:"monto_total"`
	Moneda             string                   `json:"moneda"`
	EstadoLiquidacion  string                   `json:"estado_liquidacion"`
	MontoLiquidado     decimal.Decimal          `json:"monto_liquidado"`
	MontoPendientePago decimal.Decimal          `json:"monto_pendiente_pago"`
	LiquidadoEn        *time.Time               `json:"liquidado_en,omitempty"`
	Autorizacion       liquidacion.Autorizacion `json:"autorizacion"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
	Version            int                      `json:"version"`
}

// DetalleResponse represents a liquidation detail in API responses
type DetalleResponse struct {
	ID            uuid.UUID       `json:"id"`
	FacturaID     uuid.UUID       `json:"factura_id"`
	NumeroOrden   string          `json:"numero_orden"`
	Agencia       string          `json:"agencia"`
	Descripcion   string          `json:"descripcion"`
	Monto         decimal.Decimal `json:"monto"`
	FormaPago     string          `json:"forma_pago"`
	Banco         string          `json:"banco,omitempty"`
	NumeroCuenta  string          `json:"numero_cuenta,omitempty"`
	Beneficiario  string          `json:"beneficiario,omitempty"`
	NoNegociable  bool            `json:"no_negociable"`
	Observaciones string          `json:"observaciones,omitempty"`
	Posicion      int             `json:"posicion"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// DetalleListResponse is a detail list together with its reconciliation summary
type DetalleListResponse struct {
	Detalles []DetalleResponse   `json:"detalles"`
	Resumen  liquidacion.Resumen `json:"resumen"`
}

// CreateDetalleRequest represents a request to create a liquidation detail
type CreateDetalleRequest struct {
	NumeroOrden   string          `json:"numero_orden" binding:"max=50"`
	Agencia       string          `json:"agencia" binding:"max=100"`
	Descripcion   string          `json:"descripcion" binding:"max=500"`
	Monto         decimal.Decimal `json:"monto" binding:"required"`
	FormaPago     string          `json:"forma_pago" binding:"omitempty,oneof=deposito transferencia cheque tarjeta anticipo"`
	Banco         string          `json:"banco" binding:"max=100"`
	NumeroCuenta  string          `json:"numero_cuenta" binding:"max=50"`
	Beneficiario  string          `json:"beneficiario" binding:"max=200"`
	NoNegociable  bool            `json:"no_negociable"`
	Observaciones string          `json:"observaciones" binding:"max=500"`
	Posicion      *int            `json:"posicion"`
}

// UpdateDetalleRequest represents a partial update of a liquidation detail
type UpdateDetalleRequest struct {
	liquidacion.DetallePatch
	Posicion *int `json:"posicion"`
}

// CopyDetalleRequest overrides the amount and description of the copy
type CopyDetalleRequest struct {
	Monto       *decimal.Decimal `json:"monto"`
	Descripcion *string          `json:"descripcion"`
	Marcar      bool             `json:"marcar_copia"`
}

// SolicitarAutorizacionRequest represents a tardiness authorization request
type SolicitarAutorizacionRequest struct {
	Motivo string `json:"motivo" binding:"required,min=10,max=500"`
}

// ResolverAutorizacionRequest carries the approver's decision
type ResolverAutorizacionRequest struct {
	Aprobada   bool   `json:"aprobada"`
	Comentario string `json:"comentario" binding:"max=500"`
}

// VencimientoResponse is the gate evaluation plus the actions it enables
type VencimientoResponse struct {
	liquidacion.ValidacionVencimiento
	EstadoAutorizacion       string `json:"estado_autorizacion"`
	CanLiquidate             bool   `json:"can_liquidate"`
	NeedsAuthorizationAction bool   `json:"needs_authorization_action"`
}

func toFacturaResponse(f *liquidacion.Factura) *FacturaResponse {
	return &FacturaResponse{
		ID:                 f.ID,
		NumeroDTE:          f.NumeroDTE,
		FechaEmision:       f.FechaEmision,
		MontoTotal:         f.MontoTotal,
		Moneda:             f.Moneda,
		EstadoLiquidacion:  string(f.EstadoLiquidacion),
		MontoLiquidado:     f.MontoLiquidado,
		MontoPendientePago: f.MontoPendientePago(),
		LiquidadoEn:        f.LiquidadoEn,
		Autorizacion:       f.Autorizacion,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
		Version:            f.Version,
	}
}

func toDetalleResponse(d *liquidacion.Detalle) *DetalleResponse {
	resp := &DetalleResponse{
		FacturaID:     d.FacturaID,
		NumeroOrden:   d.NumeroOrden,
		Agencia:       d.Agencia,
		Descripcion:   d.Descripcion,
		Monto:         d.Monto,
		FormaPago:     string(d.FormaPago),
		Banco:         d.Banco,
		NumeroCuenta:  d.NumeroCuenta,
		Beneficiario:  d.Beneficiario,
		NoNegociable:  d.NoNegociable,
		Observaciones: d.Observaciones,
		Posicion:      d.Posicion,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Version:       d.Version,
	}
	if d.ID != nil {
		resp.ID = *d.ID
	}
	return resp
}

// ToDomain converts the response back into a domain detail
func (r DetalleResponse) ToDomain() liquidacion.Detalle {
	id := r.ID
	return liquidacion.Detalle{
		ID:            &id,
		FacturaID:     r.FacturaID,
		NumeroOrden:   r.NumeroOrden,
		Agencia:       r.Agencia,
		Descripcion:   r.Descripcion,
		Monto:         r.Monto,
		FormaPago:     liquidacion.FormaPago(r.FormaPago),
		Banco:         r.Banco,
		NumeroCuenta:  r.NumeroCuenta,
		Beneficiario:  r.Beneficiario,
		NoNegociable:  r.NoNegociable,
		Observaciones: r.Observaciones,
		Posicion:      r.Posicion,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ToDomain converts the response back into a domain invoice
func (r FacturaResponse) ToDomain() *liquidacion.Factura {
	f := &liquidacion.Factura{
		NumeroDTE:         r.NumeroDTE,
		FechaEmision:      r.FechaEmision,
		MontoTotal:        r.MontoTotal,
		Moneda:            r.Moneda,
		EstadoLiquidacion: liquidacion.EstadoLiquidacion(r.EstadoLiquidacion),
		MontoLiquidado:    r.MontoLiquidado,
		MontoTransferido:  r.MontoTotal.Sub(r.MontoPendientePago),
		LiquidadoEn:       r.LiquidadoEn,
		Autorizacion:      r.Autorizacion,
	}
	f.ID = r.ID
	f.CreatedAt = r.CreatedAt
	f.UpdatedAt = r.UpdatedAt
	f.Version = r.Version
	return f
}
