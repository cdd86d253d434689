// Package calendario holds the business-day rules used to age invoices.
package calendario

import (
	"context"
	"strings"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
)

// Feriado is a non-working day
type Feriado struct {
	shared.BaseEntity
	Fecha       time.Time `json:"fecha"`
	Descripcion string    `json:"descripcion"`
}

// NewFeriado creates a new holiday
func NewFeriado(fecha time.Time, descripcion string) (*Feriado, error) {
	if fecha.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "La fecha del feriado es obligatoria")
	}
	descripcion = strings.TrimSpace(descripcion)
	if descripcion == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "La descripción del feriado es obligatoria")
	}
	return &Feriado{
		BaseEntity:  shared.NewBaseEntity(),
		Fecha:       Dia(fecha),
		Descripcion: descripcion,
	}, nil
}

// FeriadoRepository defines the interface for holiday persistence
type FeriadoRepository interface {
	FindBetween(ctx context.Context, desde, hasta time.Time) ([]Feriado, error)
	Save(ctx context.Context, feriado *Feriado) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Dia truncates t to midnight in its own location
func Dia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DiaKey is the map key of a calendar day
func DiaKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Habiles counts business days after desde up to and including hasta.
// Saturdays, Sundays and the given holidays are skipped. The second return
// value is the first business day counted (the start of the calculation).
func Habiles(desde, hasta time.Time, feriados map[string]bool) (int, time.Time) {
	desde = Dia(desde)
	hasta = Dia(hasta)

	var inicio time.Time
	count := 0
	for d := desde.AddDate(0, 0, 1); !d.After(hasta); d = d.AddDate(0, 0, 1) {
		if !EsHabil(d, feriados) {
			continue
		}
		if inicio.IsZero() {
			inicio = d
		}
		count++
	}
	if inicio.IsZero() {
		inicio = SiguienteHabil(desde, feriados)
	}
	return count, inicio
}

// EsHabil returns true when d is neither a weekend day nor a holiday
func EsHabil(d time.Time, feriados map[string]bool) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !feriados[DiaKey(d)]
}

// SiguienteHabil returns the first business day strictly after d
func SiguienteHabil(d time.Time, feriados map[string]bool) time.Time {
	next := Dia(d).AddDate(0, 0, 1)
	for i := 0; i < 366 && !EsHabil(next, feriados); i++ {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
