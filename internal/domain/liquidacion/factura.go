package liquidacion

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoLiquidacion represents the liquidation state of an invoice
type EstadoLiquidacion string

const (
	EstadoLiquidacionPendiente  EstadoLiquidacion = "Pendiente"
	EstadoLiquidacionEnRevision EstadoLiquidacion = "EnRevision"
	EstadoLiquidacionLiquidado  EstadoLiquidacion = "Liquidado"
)

// IsValid checks if the state is a valid EstadoLiquidacion
func (e EstadoLiquidacion) IsValid() bool {
	switch e {
	case EstadoLiquidacionPendiente, EstadoLiquidacionEnRevision, EstadoLiquidacionLiquidado:
		return true
	}
	return false
}

// String returns the string representation of EstadoLiquidacion
func (e EstadoLiquidacion) String() string {
	return string(e)
}

// EstadoAutorizacion represents the tardiness-authorization lifecycle of an invoice
type EstadoAutorizacion string

const (
	EstadoAutorizacionNinguna   EstadoAutorizacion = "Ninguna"
	EstadoAutorizacionPendiente EstadoAutorizacion = "Pendiente"
	EstadoAutorizacionAprobada  EstadoAutorizacion = "Aprobada"
	EstadoAutorizacionRechazada EstadoAutorizacion = "Rechazada"
)

// IsValid checks if the state is a valid EstadoAutorizacion
func (e EstadoAutorizacion) IsValid() bool {
	switch e {
	case EstadoAutorizacionNinguna, EstadoAutorizacionPendiente,
		EstadoAutorizacionAprobada, EstadoAutorizacionRechazada:
		return true
	}
	return false
}

// String returns the string representation of EstadoAutorizacion
func (e EstadoAutorizacion) String() string {
	return string(e)
}

// CanRequest returns true if a new authorization request may be filed.
// A rejected request may be filed again with a new motive.
func (e EstadoAutorizacion) CanRequest() bool {
	return e == "" || e == EstadoAutorizacionNinguna || e == EstadoAutorizacionRechazada
}

// CanResolve returns true if the request is waiting for the approver
func (e EstadoAutorizacion) CanResolve() bool {
	return e == EstadoAutorizacionPendiente
}

// Motive length limits for a tardiness authorization request
const (
	MotivoMinLength = 10
	MotivoMaxLength = 500
)

// Autorizacion is the tardiness-authorization record embedded in an invoice
type Autorizacion struct {
	Estado            EstadoAutorizacion `json:"estado_autorizacion"`
	SolicitadoPor     *uuid.UUID         `json:"solicitado_por,omitempty"`
	AprobadoPor       *uuid.UUID         `json:"aprobado_por,omitempty"`
	Motivo            string             `json:"motivo,omitempty"`
	Comentario        string             `json:"comentario,omitempty"`
	DiasTranscurridos int                `json:"dias_transcurridos"`
	SolicitadoEn      *time.Time         `json:"solicitado_en,omitempty"`
	ResueltoEn        *time.Time         `json:"resuelto_en,omitempty"`
}

// Factura represents an invoice aggregate root
type Factura struct {
	shared.BaseAggregateRoot
	NumeroDTE         string            `json:"numero_dte"`
	FechaEmision      time.Time         `json:"fecha_emision"`
	MontoTotal        decimal.Decimal   `json:"monto_total"`
	Moneda            string            `json:"moneda"`
	EstadoLiquidacion EstadoLiquidacion `json:"estado_liquidacion"`
	MontoLiquidado    decimal.Decimal   `json:"monto_liquidado"`
	MontoTransferido  decimal.Decimal   `json:"monto_transferido"`
	LiquidadoEn       *time.Time        `json:"liquidado_en,omitempty"`
	LiquidadoPor      *uuid.UUID        `json:"liquidado_por,omitempty"`
	Autorizacion      Autorizacion      `json:"autorizacion"`
}

var _ shared.AggregateRoot = (*Factura)(nil)

// NewFactura creates a new invoice
func NewFactura(numeroDTE string, fechaEmision time.Time, montoTotal decimal.Decimal, moneda string) (*Factura, error) {
	numeroDTE = strings.TrimSpace(numeroDTE)
	if numeroDTE == "" {
		return nil, shared.NewDomainError("INVALID_DTE", "El número de DTE es obligatorio")
	}
	if utf8.RuneCountInString(numeroDTE) > 50 {
		return nil, shared.NewDomainError("INVALID_DTE", "El número de DTE no puede superar 50 caracteres")
	}
	if fechaEmision.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "La fecha de emisión es obligatoria")
	}
	if montoTotal.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "El monto total debe ser mayor a 0")
	}
	if moneda == "" {
		moneda = "GTQ"
	}

	return &Factura{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		NumeroDTE:         numeroDTE,
		FechaEmision:      fechaEmision,
		MontoTotal:        montoTotal,
		Moneda:            moneda,
		EstadoLiquidacion: EstadoLiquidacionPendiente,
		MontoLiquidado:    decimal.Zero,
		MontoTransferido:  decimal.Zero,
		Autorizacion:      Autorizacion{Estado: EstadoAutorizacionNinguna},
	}, nil
}

// IsLiquidada returns true once the invoice has been liquidated
func (f *Factura) IsLiquidada() bool {
	return f.EstadoLiquidacion == EstadoLiquidacionLiquidado
}

// MontoPendientePago returns the amount not yet covered by transfers
func (f *Factura) MontoPendientePago() decimal.Decimal {
	pending := f.MontoTotal.Sub(f.MontoTransferido)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// EnsureDetallesEditables returns an error when the detail list is frozen
func (f *Factura) EnsureDetallesEditables() error {
	if f.IsLiquidada() {
		return shared.NewDomainError("INVALID_STATE", "La factura ya fue liquidada, sus detalles no se pueden modificar")
	}
	return nil
}

// ValidateMotivo checks the motive of a tardiness authorization request
func ValidateMotivo(motivo string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(motivo))
	if n < MotivoMinLength {
		return shared.NewDomainError("MOTIVE_TOO_SHORT", fmt.Sprintf("El motivo debe tener al menos %d caracteres", MotivoMinLength))
	}
	if n > MotivoMaxLength {
		return shared.NewDomainError("MOTIVE_TOO_LONG", fmt.Sprintf("El motivo no puede superar %d caracteres", MotivoMaxLength))
	}
	return nil
}

// SolicitarAutorizacion files a tardiness authorization request
func (f *Factura) SolicitarAutorizacion(solicitante uuid.UUID, motivo string, diasTranscurridos int) error {
	if f.IsLiquidada() {
		return shared.NewDomainError("INVALID_STATE", "La factura ya fue liquidada")
	}
	if !f.Autorizacion.Estado.CanRequest() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("No se puede solicitar autorización en estado %s", f.Autorizacion.Estado))
	}
	if solicitante == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El solicitante es obligatorio")
	}
	if err := ValidateMotivo(motivo); err != nil {
		return err
	}
	if diasTranscurridos < 0 {
		return shared.NewDomainError("INVALID_DAYS", "Los días transcurridos no pueden ser negativos")
	}

	now := time.Now()
	f.Autorizacion = Autorizacion{
		Estado:            EstadoAutorizacionPendiente,
		SolicitadoPor:     &solicitante,
		Motivo:            strings.TrimSpace(motivo),
		DiasTranscurridos: diasTranscurridos,
		SolicitadoEn:      &now,
	}
	f.UpdatedAt = now
	f.IncrementVersion()

	f.AddDomainEvent(NewAutorizacionSolicitadaEvent(f))

	return nil
}

// ResolverAutorizacion records the external approver's decision
func (f *Factura) ResolverAutorizacion(aprobador uuid.UUID, aprobada bool, comentario string) error {
	if !f.Autorizacion.Estado.CanResolve() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("No se puede resolver una autorización en estado %s", f.Autorizacion.Estado))
	}
	if aprobador == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El aprobador es obligatorio")
	}

	now := time.Now()
	if aprobada {
		f.Autorizacion.Estado = EstadoAutorizacionAprobada
	} else {
		f.Autorizacion.Estado = EstadoAutorizacionRechazada
	}
	f.Autorizacion.AprobadoPor = &aprobador
	f.Autorizacion.Comentario = strings.TrimSpace(comentario)
	f.Autorizacion.ResueltoEn = &now
	f.UpdatedAt = now
	f.IncrementVersion()

	f.AddDomainEvent(NewAutorizacionResueltaEvent(f))

	return nil
}

// Liquidar settles the invoice against its details. The gate must allow it
// and the detail total must reconcile with the invoice amount.
func (f *Factura) Liquidar(liquidador uuid.UUID, detalles []Detalle, v ValidacionVencimiento, tolerance decimal.Decimal) error {
	if liquidador == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El usuario que liquida es obligatorio")
	}
	if f.IsLiquidada() {
		return shared.NewDomainError("INVALID_STATE", "La factura ya fue liquidada")
	}
	if !CanLiquidate(f, v) {
		return shared.NewDomainError("AUTHORIZATION_REQUIRED", "La factura excede los días permitidos y requiere autorización aprobada")
	}
	for _, d := range detalles {
		if !d.IsPersisted() {
			return shared.NewDomainError("UNSAVED_DETAILS", "Hay detalles sin guardar")
		}
	}
	total := Total(detalles)
	if c := Classify(total, f.MontoTotal, tolerance); c != CompletitudCompleto {
		return shared.NewDomainError("NOT_RECONCILED", fmt.Sprintf("El total de detalles (%s) no cuadra con la factura (%s): %s",
			total.StringFixed(2), f.MontoTotal.StringFixed(2), c))
	}

	now := time.Now()
	f.EstadoLiquidacion = EstadoLiquidacionLiquidado
	f.MontoLiquidado = total
	f.LiquidadoEn = &now
	f.LiquidadoPor = &liquidador
	f.UpdatedAt = now
	f.IncrementVersion()

	f.AddDomainEvent(NewFacturaLiquidadaEvent(f))

	return nil
}

// AplicarTransferencia records a completed transfer against the invoice and
// returns the part of monto it absorbed.
func (f *Factura) AplicarTransferencia(monto decimal.Decimal) decimal.Decimal {
	if monto.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	applied := decimal.Min(monto, f.MontoPendientePago())
	if applied.IsZero() {
		return applied
	}
	f.MontoTransferido = f.MontoTransferido.Add(applied)
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	return applied
}

// CanLiquidate decides whether the liquidate action is enabled
func CanLiquidate(f *Factura, v ValidacionVencimiento) bool {
	if f == nil || f.IsLiquidada() {
		return false
	}
	if v.RequiereAutorizacion {
		return f.Autorizacion.Estado == EstadoAutorizacionAprobada
	}
	return true
}

// NeedsAuthorizationAction decides whether the request-authorization action is shown
func NeedsAuthorizationAction(f *Factura, v ValidacionVencimiento) bool {
	if f == nil {
		return false
	}
	return v.RequiereAutorizacion && f.Autorizacion.Estado != EstadoAutorizacionAprobada
}
