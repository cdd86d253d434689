package models

import (
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/anticipo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnticipoModel is the persistence model for a disbursed advance.
type AnticipoModel struct {
	BaseModel
	NumeroOrden          string                     `gorm:"type:varchar(50);not null;index"`
	Monto                decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	TipoPago             anticipo.TipoPago          `gorm:"type:varchar(20);not null"`
	EstadoLiquidacion    anticipo.EstadoLiquidacion `gorm:"type:varchar(20);not null;default:'NO_LIQUIDADO';index"`
	DiasTranscurridos    *int
	DiasPermitidos       *int
	MotivoInclusion      string    `gorm:"type:varchar(50)"`
	RequiereAutorizacion bool      `gorm:"not null;default:false"`
	FechaDesembolso      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AnticipoModel) TableName() string {
	return "anticipos"
}

// ToDomain converts the persistence model to a domain Anticipo. The latest
// tracking entry is loaded separately.
func (m *AnticipoModel) ToDomain() *anticipo.Anticipo {
	return &anticipo.Anticipo{
		ID:                   m.ID,
		NumeroOrden:          m.NumeroOrden,
		Monto:                m.Monto,
		TipoPago:             m.TipoPago,
		EstadoLiquidacion:    m.EstadoLiquidacion,
		DiasTranscurridos:    m.DiasTranscurridos,
		DiasPermitidos:       m.DiasPermitidos,
		MotivoInclusion:      m.MotivoInclusion,
		RequiereAutorizacion: m.RequiereAutorizacion,
		FechaDesembolso:      m.FechaDesembolso,
	}
}

// FromDomain populates the persistence model from a domain Anticipo.
func (m *AnticipoModel) FromDomain(a *anticipo.Anticipo) {
	m.ID = a.ID
	m.NumeroOrden = a.NumeroOrden
	m.Monto = a.Monto
	m.TipoPago = a.TipoPago
	m.EstadoLiquidacion = a.EstadoLiquidacion
	m.DiasTranscurridos = a.DiasTranscurridos
	m.DiasPermitidos = a.DiasPermitidos
	m.MotivoInclusion = a.MotivoInclusion
	m.RequiereAutorizacion = a.RequiereAutorizacion
	m.FechaDesembolso = a.FechaDesembolso
}

// SeguimientoModel is one tracking entry of an advance authorization request.
type SeguimientoModel struct {
	BaseModel
	AnticipoID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_seguimiento_anticipo_fecha,priority:1"`
	Tipo          string     `gorm:"type:varchar(30);not null"`
	Estado        string     `gorm:"type:varchar(50);not null"`
	Justificacion string     `gorm:"type:text"`
	Comentarios   string     `gorm:"type:text"`
	SolicitadoPor *uuid.UUID `gorm:"type:uuid"`
	Fecha         time.Time  `gorm:"not null;index:idx_seguimiento_anticipo_fecha,priority:2"`
	FechaCierre   *time.Time
}

// TableName returns the table name for GORM
func (SeguimientoModel) TableName() string {
	return "anticipo_seguimientos"
}

// ToDomain converts the persistence model to a domain Seguimiento.
func (m *SeguimientoModel) ToDomain() *anticipo.Seguimiento {
	return &anticipo.Seguimiento{
		Estado:      m.Estado,
		Comentarios: m.Comentarios,
		Fecha:       m.Fecha,
		FechaCierre: m.FechaCierre,
	}
}
