package liquidacion

import (
	"context"
	"fmt"
	"time"
)

// CalculoDiasHabiles is what the business-day calendar reports for an emission date
type CalculoDiasHabiles struct {
	DiasHabilesTranscurridos int
	DiasPermitidos           int
	FechaInicioCalculo       time.Time
}

// BusinessDayCalendar counts business days elapsed since a date, skipping
// weekends and holidays, and knows the allowed threshold.
type BusinessDayCalendar interface {
	DiasHabilesDesde(ctx context.Context, desde time.Time) (CalculoDiasHabiles, error)
}

// ValidacionVencimiento is the authorization decision for one invoice
type ValidacionVencimiento struct {
	DiasHabilesTranscurridos int       `json:"dias_habiles_transcurridos"`
	DiasPermitidos           int       `json:"dias_permitidos"`
	ExcedeDiasPermitidos     bool      `json:"excede_dias_permitidos"`
	RequiereAutorizacion     bool      `json:"requiere_autorizacion"`
	Mensaje                  string    `json:"mensaje"`
	FechaInicioCalculo       time.Time `json:"fecha_inicio_calculo"`
	Degradado                bool      `json:"degradado"`
}

// MensajeCalendarioNoDisponible is reported when the calendar could not be consulted
const MensajeCalendarioNoDisponible = "No fue posible validar los días hábiles transcurridos; la liquidación no se bloquea, verifique manualmente el vencimiento"

// VencimientoGate composes the calendar output into an authorization decision
type VencimientoGate struct {
	calendar BusinessDayCalendar
}

// NewVencimientoGate creates a new VencimientoGate
func NewVencimientoGate(calendar BusinessDayCalendar) *VencimientoGate {
	return &VencimientoGate{calendar: calendar}
}

// Evaluate decides whether an invoice emitted on fechaEmision needs a tardiness
// authorization. When the calendar fails the result never blocks liquidation:
// it is marked Degradado and the calendar error is returned alongside it.
func (g *VencimientoGate) Evaluate(ctx context.Context, fechaEmision time.Time, hasApprovedAuthorization bool) (ValidacionVencimiento, error) {
	if g.calendar == nil {
		return degradedValidacion(fechaEmision), fmt.Errorf("business-day calendar not configured")
	}

	calculo, err := g.calendar.DiasHabilesDesde(ctx, fechaEmision)
	if err != nil {
		return degradedValidacion(fechaEmision), fmt.Errorf("calendar lookup failed: %w", err)
	}

	excede := calculo.DiasHabilesTranscurridos > calculo.DiasPermitidos
	v := ValidacionVencimiento{
		DiasHabilesTranscurridos: calculo.DiasHabilesTranscurridos,
		DiasPermitidos:           calculo.DiasPermitidos,
		ExcedeDiasPermitidos:     excede,
		RequiereAutorizacion:     excede && !hasApprovedAuthorization,
		FechaInicioCalculo:       calculo.FechaInicioCalculo,
	}

	switch {
	case v.RequiereAutorizacion:
		v.Mensaje = fmt.Sprintf("Han transcurrido %d días hábiles (permitidos: %d); se requiere autorización para liquidar",
			v.DiasHabilesTranscurridos, v.DiasPermitidos)
	case excede:
		v.Mensaje = fmt.Sprintf("Han transcurrido %d días hábiles (permitidos: %d); la autorización ya fue aprobada",
			v.DiasHabilesTranscurridos, v.DiasPermitidos)
	default:
		v.Mensaje = fmt.Sprintf("Dentro del plazo: %d de %d días hábiles", v.DiasHabilesTranscurridos, v.DiasPermitidos)
	}
	return v, nil
}

func degradedValidacion(fechaEmision time.Time) ValidacionVencimiento {
	return ValidacionVencimiento{
		ExcedeDiasPermitidos: false,
		RequiereAutorizacion: false,
		Mensaje:              MensajeCalendarioNoDisponible,
		FechaInicioCalculo:   fechaEmision,
		Degradado:            true,
	}
}
