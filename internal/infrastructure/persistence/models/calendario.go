package models

import (
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/calendario"
)

// FeriadoModel is the persistence model for a non-working day.
type FeriadoModel struct {
	BaseModel
	Fecha       time.Time `gorm:"type:date;not null;uniqueIndex"`
	Descripcion string    `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (FeriadoModel) TableName() string {
	return "feriados"
}

// ToDomain converts the persistence model to a domain Feriado.
func (m *FeriadoModel) ToDomain() *calendario.Feriado {
	return &calendario.Feriado{
		BaseEntity:  m.BaseModel.ToDomain(),
		Fecha:       m.Fecha,
		Descripcion: m.Descripcion,
	}
}

// FromDomain populates the persistence model from a domain Feriado.
func (m *FeriadoModel) FromDomain(f *calendario.Feriado) {
	m.FromDomainBaseEntity(f.BaseEntity)
	m.Fecha = f.Fecha
	m.Descripcion = f.Descripcion
}
