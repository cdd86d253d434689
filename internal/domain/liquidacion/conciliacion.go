package liquidacion

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Completitud classifies how a detail total compares to its invoice amount
type Completitud string

const (
	CompletitudCompleto   Completitud = "completo"
	CompletitudIncompleto Completitud = "incompleto"
	CompletitudExcedido   Completitud = "excedido"
)

// String returns the string representation of Completitud
func (c Completitud) String() string {
	return string(c)
}

// DefaultTolerance is the absolute difference under which a total counts as complete
var DefaultTolerance = decimal.RequireFromString("0.01")

// MensajeMontoNoPositivo is reported when a detail amount is zero or negative
const MensajeMontoNoPositivo = "el monto debe ser mayor a 0"

// Total sums the amount of every detail
func Total(detalles []Detalle) decimal.Decimal {
	total := decimal.Zero
	for _, d := range detalles {
		total = total.Add(d.Monto)
	}
	return total
}

// Classify compares a detail total against the invoice amount.
// A non-positive tolerance falls back to DefaultTolerance.
func Classify(total, montoFactura, tolerance decimal.Decimal) Completitud {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = DefaultTolerance
	}
	if total.Sub(montoFactura).Abs().LessThan(tolerance) {
		return CompletitudCompleto
	}
	if total.GreaterThan(montoFactura) {
		return CompletitudExcedido
	}
	return CompletitudIncompleto
}

// DetalleRef selects which detail is left out when recomputing a total.
// The zero value excludes nothing.
type DetalleRef struct {
	id      uuid.UUID
	unsaved bool
}

// ExcludeUnsaved excludes every detail that has not been persisted yet (create mode)
var ExcludeUnsaved = DetalleRef{unsaved: true}

// ExcludeID excludes the persisted detail with the given id (edit mode)
func ExcludeID(id uuid.UUID) DetalleRef {
	return DetalleRef{id: id}
}

// Matches reports whether the detail is the one referenced
func (r DetalleRef) Matches(d Detalle) bool {
	if r.unsaved {
		return d.ID == nil
	}
	if r.id == uuid.Nil || d.ID == nil {
		return false
	}
	return *d.ID == r.id
}

// AmountValidation is the outcome of ValidateNewAmount
type AmountValidation struct {
	Valid       bool            `json:"valid"`
	Available   decimal.Decimal `json:"available"`
	ExceedingBy decimal.Decimal `json:"exceeding_by"`
	Message     string          `json:"message,omitempty"`
}

// ValidateNewAmount checks whether newAmount fits in what is left of the
// invoice once the excluded detail is taken out of the total.
func ValidateNewAmount(detalles []Detalle, exclude DetalleRef, newAmount, montoFactura decimal.Decimal) AmountValidation {
	totalExcluded := decimal.Zero
	for _, d := range detalles {
		if exclude.Matches(d) {
			continue
		}
		totalExcluded = totalExcluded.Add(d.Monto)
	}
	available := montoFactura.Sub(totalExcluded)

	if newAmount.LessThanOrEqual(decimal.Zero) {
		return AmountValidation{
			Valid:     false,
			Available: available,
			Message:   MensajeMontoNoPositivo,
		}
	}

	if totalExcluded.Add(newAmount).GreaterThan(montoFactura) {
		return AmountValidation{
			Valid:       false,
			Available:   available,
			ExceedingBy: totalExcluded.Add(newAmount).Sub(montoFactura),
			Message:     "el monto excede el disponible de la factura (" + available.StringFixed(2) + ")",
		}
	}

	return AmountValidation{Valid: true, Available: available}
}

// Resumen is the reconciliation summary shown next to a detail list
type Resumen struct {
	Total        decimal.Decimal `json:"total"`
	MontoFactura decimal.Decimal `json:"monto_factura"`
	Diferencia   decimal.Decimal `json:"diferencia"`
	Completitud  Completitud     `json:"completitud"`
}

// Resumir builds the reconciliation summary of a detail list
func Resumir(detalles []Detalle, montoFactura, tolerance decimal.Decimal) Resumen {
	total := Total(detalles)
	return Resumen{
		Total:        total,
		MontoFactura: montoFactura,
		Diferencia:   montoFactura.Sub(total),
		Completitud:  Classify(total, montoFactura, tolerance),
	}
}
