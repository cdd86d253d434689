package liquidacion

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FormaPago is the payment method of a liquidation detail
type FormaPago string

const (
	FormaPagoDeposito      FormaPago = "deposito"
	FormaPagoTransferencia FormaPago = "transferencia"
	FormaPagoCheque        FormaPago = "cheque"
	FormaPagoTarjeta       FormaPago = "tarjeta"
	FormaPagoAnticipo      FormaPago = "anticipo"
)

// IsValid checks if the payment method is known
func (f FormaPago) IsValid() bool {
	switch f {
	case FormaPagoDeposito, FormaPagoTransferencia, FormaPagoCheque,
		FormaPagoTarjeta, FormaPagoAnticipo:
		return true
	}
	return false
}

// String returns the string representation of FormaPago
func (f FormaPago) String() string {
	return string(f)
}

// RequiresBankAccount returns true for methods paid into a bank account
func (f FormaPago) RequiresBankAccount() bool {
	return f == FormaPagoDeposito || f == FormaPagoTransferencia
}

// Detalle is one payment line of an invoice liquidation.
// ID is nil while the detail is only staged locally.
type Detalle struct {
	ID            *uuid.UUID      `json:"id,omitempty"`
	FacturaID     uuid.UUID       `json:"factura_id"`
	NumeroOrden   string          `json:"numero_orden"`
	Agencia       string          `json:"agencia"`
	Descripcion   string          `json:"descripcion"`
	Monto         decimal.Decimal `json:"monto"`
	FormaPago     FormaPago       `json:"forma_pago"`
	Banco         string          `json:"banco,omitempty"`
	NumeroCuenta  string          `json:"numero_cuenta,omitempty"`
	Beneficiario  string          `json:"beneficiario,omitempty"`
	NoNegociable  bool            `json:"no_negociable,omitempty"`
	Observaciones string          `json:"observaciones,omitempty"`
	Posicion      int             `json:"posicion"`
	Version       int             `json:"version,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

// IsPersisted returns true once the detail has an id assigned by storage
func (d Detalle) IsPersisted() bool {
	return d.ID != nil && *d.ID != uuid.Nil
}

// Clone returns a copy of the detail with no id
func (d Detalle) Clone() Detalle {
	c := d
	c.ID = nil
	c.Version = 0
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	return c
}

// Validate returns the field errors of the detail
func (d Detalle) Validate() shared.ValidationErrors {
	var errs shared.ValidationErrors
	if d.FacturaID == uuid.Nil {
		errs.Add("factura_id", "REQUIRED", "la factura es obligatoria")
	}
	if d.Monto.LessThanOrEqual(decimal.Zero) {
		errs.Add("monto", "INVALID_AMOUNT", MensajeMontoNoPositivo)
	}
	if utf8.RuneCountInString(d.Descripcion) > 500 {
		errs.Add("descripcion", "MAX_LENGTH", "la descripción no puede superar 500 caracteres")
	}
	if !d.FormaPago.IsValid() {
		errs.Add("forma_pago", "INVALID_PAYMENT_METHOD", "la forma de pago no es válida")
		return errs
	}
	switch {
	case d.FormaPago.RequiresBankAccount():
		if strings.TrimSpace(d.Banco) == "" {
			errs.Add("banco", "REQUIRED", "el banco es obligatorio")
		}
		if strings.TrimSpace(d.NumeroCuenta) == "" {
			errs.Add("numero_cuenta", "REQUIRED", "el número de cuenta es obligatorio")
		}
	case d.FormaPago == FormaPagoCheque:
		if strings.TrimSpace(d.Beneficiario) == "" {
			errs.Add("beneficiario", "REQUIRED", "el beneficiario es obligatorio")
		}
	}
	return errs
}

// DetallePatch carries the fields of a shallow merge; nil fields are left untouched
type DetallePatch struct {
	NumeroOrden   *string          `json:"numero_orden,omitempty"`
	Agencia       *string          `json:"agencia,omitempty"`
	Descripcion   *string          `json:"descripcion,omitempty"`
	Monto         *decimal.Decimal `json:"monto,omitempty"`
	FormaPago     *FormaPago       `json:"forma_pago,omitempty"`
	Banco         *string          `json:"banco,omitempty"`
	NumeroCuenta  *string          `json:"numero_cuenta,omitempty"`
	Beneficiario  *string          `json:"beneficiario,omitempty"`
	NoNegociable  *bool            `json:"no_negociable,omitempty"`
	Observaciones *string          `json:"observaciones,omitempty"`
}

// IsEmpty returns true when the patch changes nothing
func (p DetallePatch) IsEmpty() bool {
	return p.NumeroOrden == nil && p.Agencia == nil && p.Descripcion == nil &&
		p.Monto == nil && p.FormaPago == nil && p.Banco == nil &&
		p.NumeroCuenta == nil && p.Beneficiario == nil && p.NoNegociable == nil &&
		p.Observaciones == nil
}

// Apply merges the patch into a copy of the detail
func (p DetallePatch) Apply(d Detalle) Detalle {
	if p.NumeroOrden != nil {
		d.NumeroOrden = *p.NumeroOrden
	}
	if p.Agencia != nil {
		d.Agencia = *p.Agencia
	}
	if p.Descripcion != nil {
		d.Descripcion = *p.Descripcion
	}
	if p.Monto != nil {
		d.Monto = *p.Monto
	}
	if p.FormaPago != nil {
		d.FormaPago = *p.FormaPago
	}
	if p.Banco != nil {
		d.Banco = *p.Banco
	}
	if p.NumeroCuenta != nil {
		d.NumeroCuenta = *p.NumeroCuenta
	}
	if p.Beneficiario != nil {
		d.Beneficiario = *p.Beneficiario
	}
	if p.NoNegociable != nil {
		d.NoNegociable = *p.NoNegociable
	}
	if p.Observaciones != nil {
		d.Observaciones = *p.Observaciones
	}
	return d
}
