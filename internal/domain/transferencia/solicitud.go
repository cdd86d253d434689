package transferencia

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MotivoMinLength is the minimum trimmed length of a rejection or cancellation reason
const MotivoMinLength = 10

// Par links a transfer request to one invoice detail
type Par struct {
	FacturaID uuid.UUID `json:"factura_id"`
	DetalleID uuid.UUID `json:"detalle_id"`
}

// Datos is the editable payload of a transfer request
type Datos struct {
	Pares            []Par           `json:"pares"`
	CuentaBancariaID uuid.UUID       `json:"cuenta_bancaria_id"`
	AreaAprobacionID uuid.UUID       `json:"area_aprobacion_id"`
	Monto            decimal.Decimal `json:"monto_total_solicitud"`
	Concepto         string          `json:"concepto,omitempty"`
	Observaciones    string          `json:"observaciones,omitempty"`
}

// Validate returns the structural field errors of the payload
func (d Datos) Validate() shared.ValidationErrors {
	var errs shared.ValidationErrors
	if len(d.Pares) == 0 {
		errs.Add("pares", "REQUIRED", "Debe seleccionar al menos un detalle de factura")
	}
	seen := make(map[Par]bool, len(d.Pares))
	for i, p := range d.Pares {
		field := fmt.Sprintf("pares[%d]", i)
		if p.FacturaID == uuid.Nil || p.DetalleID == uuid.Nil {
			errs.Add(field, "REQUIRED", "Factura y detalle son obligatorios")
			continue
		}
		if seen[p] {
			errs.Add(field, "DUPLICATE", "El detalle está repetido en la solicitud")
		}
		seen[p] = true
	}
	if d.CuentaBancariaID == uuid.Nil {
		errs.Add("cuenta_bancaria_id", "REQUIRED", "Debe seleccionar la cuenta bancaria")
	}
	if d.AreaAprobacionID == uuid.Nil {
		errs.Add("area_aprobacion_id", "REQUIRED", "Debe seleccionar el área de aprobación")
	}
	if d.Monto.LessThanOrEqual(decimal.Zero) {
		errs.Add("monto_total_solicitud", "INVALID_AMOUNT", "El monto debe ser mayor a 0")
	}
	if utf8.RuneCountInString(d.Observaciones) > 500 {
		errs.Add("observaciones", "MAX_LENGTH", "Las observaciones no pueden superar 500 caracteres")
	}
	return errs
}

// FacturaIDs returns the distinct invoices covered by the payload, in order
func (d Datos) FacturaIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Pares))
	seen := make(map[uuid.UUID]bool, len(d.Pares))
	for _, p := range d.Pares {
		if !seen[p.FacturaID] {
			seen[p.FacturaID] = true
			ids = append(ids, p.FacturaID)
		}
	}
	return ids
}

// ValidateMontoPendiente checks the requested amount against the pending invoice amount
func ValidateMontoPendiente(monto, pendiente decimal.Decimal) error {
	if monto.GreaterThan(pendiente) {
		return shared.NewDomainError("AMOUNT_EXCEEDS_AVAILABLE",
			fmt.Sprintf("El monto solicitado excede el monto pendiente de pago (%s)", pendiente.StringFixed(2)))
	}
	return nil
}

// ValidateMotivo checks a mandatory rejection or cancellation reason
func ValidateMotivo(field, motivo string) shared.ValidationErrors {
	var errs shared.ValidationErrors
	if utf8.RuneCountInString(strings.TrimSpace(motivo)) < MotivoMinLength {
		errs.Add(field, "MIN_LENGTH", fmt.Sprintf("El motivo debe tener al menos %d caracteres", MotivoMinLength))
	}
	return errs
}

// ComprobanteDatos is the payload of a transfer receipt
type ComprobanteDatos struct {
	NumeroRegistro     string    `json:"numero_registro_transferencia"`
	FechaTransferencia time.Time `json:"fecha_transferencia"`
	ReferenciaBancaria string    `json:"referencia_bancaria,omitempty"`
	Observaciones      string    `json:"observaciones,omitempty"`
}

// Validate returns the field errors of the receipt payload
func (c ComprobanteDatos) Validate() shared.ValidationErrors {
	var errs shared.ValidationErrors
	if strings.TrimSpace(c.NumeroRegistro) == "" {
		errs.Add("numero_registro_transferencia", "REQUIRED", "El número de registro es obligatorio")
	} else if utf8.RuneCountInString(c.NumeroRegistro) > 100 {
		errs.Add("numero_registro_transferencia", "MAX_LENGTH", "El número de registro no puede superar 100 caracteres")
	}
	if c.FechaTransferencia.IsZero() {
		errs.Add("fecha_transferencia", "REQUIRED", "La fecha de transferencia es obligatoria")
	}
	if utf8.RuneCountInString(c.Observaciones) > 500 {
		errs.Add("observaciones", "MAX_LENGTH", "Las observaciones no pueden superar 500 caracteres")
	}
	return errs
}

// Comprobante is the registered proof of a completed transfer
type Comprobante struct {
	ComprobanteDatos
	Archivo       *Archivo   `json:"archivo,omitempty"`
	RegistradoPor uuid.UUID  `json:"registrado_por"`
	RegistradoEn  time.Time  `json:"registrado_en"`
	EditadoEn     *time.Time `json:"editado_en,omitempty"`
}

var _ shared.AggregateRoot = (*Solicitud)(nil)

// Solicitud represents a bank-transfer request aggregate root
type Solicitud struct {
	shared.AuditedAggregateRoot
	Numero               string          `json:"numero"`
	Pares                []Par           `json:"pares"`
	CuentaBancariaID     uuid.UUID       `json:"cuenta_bancaria_id"`
	AreaAprobacionID     uuid.UUID       `json:"area_aprobacion_id"`
	MontoTotal           decimal.Decimal `json:"monto_total_solicitud"`
	Concepto             string          `json:"concepto"`
	Observaciones        string          `json:"observaciones"`
	Estado               Estado          `json:"estado"`
	AprobadoPor          *uuid.UUID      `json:"aprobado_por,omitempty"`
	AprobadoEn           *time.Time      `json:"aprobado_en,omitempty"`
	ComentarioAprobacion string          `json:"comentario_aprobacion,omitempty"`
	RechazadoPor         *uuid.UUID      `json:"rechazado_por,omitempty"`
	RechazadoEn          *time.Time      `json:"rechazado_en,omitempty"`
	MotivoRechazo        string          `json:"motivo_rechazo,omitempty"`
	CanceladoPor         *uuid.UUID      `json:"cancelado_por,omitempty"`
	CanceladoEn          *time.Time      `json:"cancelado_en,omitempty"`
	MotivoCancelacion    string          `json:"motivo_cancelacion,omitempty"`
	CompletadoEn         *time.Time      `json:"completado_en,omitempty"`
	Comprobante          *Comprobante    `json:"comprobante,omitempty"`
}

// NuevaSolicitud creates a transfer request pending approval.
// montoPendiente is the pending payment amount of the target invoices.
func NuevaSolicitud(creador uuid.UUID, numero string, datos Datos, montoPendiente decimal.Decimal) (*Solicitud, error) {
	if errs := datos.Validate(); len(errs) > 0 {
		return nil, errs
	}
	if creador == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "El solicitante es obligatorio")
	}
	if strings.TrimSpace(numero) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "El número de solicitud es obligatorio")
	}
	if err := ValidateMontoPendiente(datos.Monto, montoPendiente); err != nil {
		return nil, err
	}

	s := &Solicitud{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(creador),
		Numero:               numero,
		Estado:               EstadoPendienteAprobacion,
	}
	s.apply(datos)

	s.AddDomainEvent(newSolicitudEvent(EventTypeSolicitudCreada, s, "", creador, ""))

	return s, nil
}

func (s *Solicitud) apply(d Datos) {
	s.Pares = append([]Par(nil), d.Pares...)
	s.CuentaBancariaID = d.CuentaBancariaID
	s.AreaAprobacionID = d.AreaAprobacionID
	s.MontoTotal = d.Monto
	s.Concepto = strings.TrimSpace(d.Concepto)
	s.Observaciones = strings.TrimSpace(d.Observaciones)
}

// Datos returns the editable payload of the request
func (s *Solicitud) Datos() Datos {
	return Datos{
		Pares:            append([]Par(nil), s.Pares...),
		CuentaBancariaID: s.CuentaBancariaID,
		AreaAprobacionID: s.AreaAprobacionID,
		Monto:            s.MontoTotal,
		Concepto:         s.Concepto,
		Observaciones:    s.Observaciones,
	}
}

func (s *Solicitud) invalidTransition(action string) error {
	return shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("No se puede %s una solicitud en estado %s", action, s.Estado))
}

func (s *Solicitud) touch(now time.Time) {
	s.UpdatedAt = now
	s.IncrementVersion()
}

// Editar corrects a rejected request and sends it back for approval.
// The pending-amount upper bound is only enforced at creation.
func (s *Solicitud) Editar(editor uuid.UUID, datos Datos) error {
	if !s.Estado.CanEdit() {
		return s.invalidTransition("editar")
	}
	if errs := datos.Validate(); len(errs) > 0 {
		return errs
	}
	if editor == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El usuario es obligatorio")
	}

	prev := s.Estado
	s.apply(datos)
	s.Estado = EstadoPendienteAprobacion
	s.RechazadoPor = nil
	s.RechazadoEn = nil
	s.MotivoRechazo = ""
	s.touch(time.Now())

	s.AddDomainEvent(newSolicitudEvent(EventTypeSolicitudEditada, s, prev, editor, ""))

	return nil
}

// Aprobar approves a pending request; the comment is optional
func (s *Solicitud) Aprobar(aprobador uuid.UUID, comentario string) error {
	if !s.Estado.CanApprove() {
		return s.invalidTransition("aprobar")
	}
	if aprobador == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El aprobador es obligatorio")
	}

	prev := s.Estado
	now := time.Now()
	s.Estado = EstadoAprobada
	s.AprobadoPor = &aprobador
	s.AprobadoEn = &now
	s.ComentarioAprobacion = strings.TrimSpace(comentario)
	s.touch(now)

	s.AddDomainEvent(newSolicitudEvent(EventTypeSolicitudAprobada, s, prev, aprobador, s.ComentarioAprobacion))

	return nil
}

// Rechazar rejects a pending request with a mandatory comment
func (s *Solicitud) Rechazar(rechazador uuid.UUID, comentario string) error {
	if errs := ValidateMotivo("comentario", comentario); len(errs) > 0 {
		return errs
	}
	if !s.Estado.CanApprove() {
		return s.invalidTransition("rechazar")
	}
	if rechazador == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El usuario es obligatorio")
	}

	prev := s.Estado
	now := time.Now()
	s.Estado = EstadoRechazada
	s.RechazadoPor = &rechazador
	s.RechazadoEn = &now
	s.MotivoRechazo = strings.TrimSpace(comentario)
	s.touch(now)

	s.AddDomainEvent(newSolicitudEvent(EventTypeSolicitudRechazada, s, prev, rechazador, s.MotivoRechazo))

	return nil
}

// RegistrarComprobante registers the receipt of an approved request and completes it
func (s *Solicitud) RegistrarComprobante(usuario uuid.UUID, datos ComprobanteDatos, archivo *Archivo, rules ArchivoRules) error {
	if errs := datos.Validate(); len(errs) > 0 {
		return errs
	}
	if archivo != nil {
		if err := rules.Validate(*archivo); err != nil {
			return err
		}
	}
	if !s.Estado.CanRegisterReceipt() {
		return s.invalidTransition("registrar el comprobante de")
	}
	if usuario == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El usuario es obligatorio")
	}

	prev := s.Estado
	now := time.Now()
	s.Comprobante = &Comprobante{
		ComprobanteDatos: trimComprobante(datos),
		Archivo:          archivo,
		RegistradoPor:    usuario,
		RegistradoEn:     now,
	}
	s.Estado = EstadoCompletada
	s.CompletadoEn = &now
	s.touch(now)

	s.AddDomainEvent(newSolicitudEvent(EventTypeSolicitudCompletada, s, prev, usuario, ""))

	return nil
}

// EditarComprobante corrects a registered receipt without changing the state.
// A nil archivo keeps the file already attached.
func (s *Solicitud) EditarComprobante(usuario uuid.UUID, datos ComprobanteDatos, archivo *Archivo, rules ArchivoRules) error {
	if errs := datos.Validate(); len(errs) > 0 {
		return errs
	}
	if archivo != nil {
		if err := rules.Validate(*archivo); err != nil {
			return err
		}
	}
	if s.Comprobante == nil || s.Estado == EstadoCancelada {
		return s.invalidTransition("editar el comprobante de")
	}
	if usuario == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El usuario es obligatorio")
	}

	now := time.Now()
	s.Comprobante.ComprobanteDatos = trimComprobante(datos)
	if archivo != nil {
		s.Comprobante.Archivo = archivo
	}
	s.Comprobante.EditadoEn = &now
	s.touch(now)

	s.AddDomainEvent(newSolicitudEvent(EventTypeComprobanteEditado, s, s.Estado, usuario, ""))

	return nil
}

// Cancelar cancels a non-terminal request with a mandatory reason
func (s *Solicitud) Cancelar(usuario uuid.UUID, motivo string) error {
	if errs := ValidateMotivo("motivo", motivo); len(errs) > 0 {
		return errs
	}
	if !s.Estado.CanCancel() {
		return s.invalidTransition("cancelar")
	}
	if usuario == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "El usuario es obligatorio")
	}

	prev := s.Estado
	now := time.Now()
	s.Estado = EstadoCancelada
	s.CanceladoPor = &usuario
	s.CanceladoEn = &now
	s.MotivoCancelacion = strings.TrimSpace(motivo)
	s.touch(now)

	s.AddDomainEvent(newSolicitudEvent(EventTypeSolicitudCancelada, s, prev, usuario, s.MotivoCancelacion))

	return nil
}

func trimComprobante(d ComprobanteDatos) ComprobanteDatos {
	d.NumeroRegistro = strings.TrimSpace(d.NumeroRegistro)
	d.ReferenciaBancaria = strings.TrimSpace(d.ReferenciaBancaria)
	d.Observaciones = strings.TrimSpace(d.Observaciones)
	return d
}
