package models

import (
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AutorizacionColumns are the tardiness-authorization columns of an invoice,
// stored inline with an autorizacion_ prefix.
type AutorizacionColumns struct {
	Estado            liquidacion.EstadoAutorizacion `gorm:"type:varchar(20);not null;default:'Ninguna';index"`
	SolicitadoPor     *uuid.UUID                     `gorm:"type:uuid"`
	AprobadoPor       *uuid.UUID                     `gorm:"type:uuid"`
	Motivo            string                         `gorm:"type:varchar(500)"`
	Comentario        string                         `gorm:"type:varchar(500)"`
	DiasTranscurridos int                            `gorm:"not null;default:0"`
	SolicitadoEn      *time.Time
	ResueltoEn        *time.Time
}

// FacturaModel is the persistence model for the Factura aggregate root.
type FacturaModel struct {
	AggregateModel
	NumeroDTE         string                        `gorm:"type:varchar(50);not null;uniqueIndex"`
	FechaEmision      time.Time                     `gorm:"not null;index"`
	MontoTotal        decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	Moneda            string                        `gorm:"type:varchar(3);not null;default:'GTQ'"`
	EstadoLiquidacion liquidacion.EstadoLiquidacion `gorm:"type:varchar(20);not null;default:'Pendiente';index"`
	MontoLiquidado    decimal.Decimal               `gorm:"type:decimal(18,2);not null;default:0"`
	MontoTransferido  decimal.Decimal               `gorm:"type:decimal(18,2);not null;default:0"`
	LiquidadoEn       *time.Time
	LiquidadoPor      *uuid.UUID          `gorm:"type:uuid"`
	Autorizacion      AutorizacionColumns `gorm:"embedded;embeddedPrefix:autorizacion_"`
}

// TableName returns the table name for GORM
func (FacturaModel) TableName() string {
	return "facturas"
}

// ToDomain converts the persistence model to a domain Factura.
func (m *FacturaModel) ToDomain() *liquidacion.Factura {
	a := m.Autorizacion
	return &liquidacion.Factura{
		BaseAggregateRoot: m.ToAggregateRoot(),
		NumeroDTE:         m.NumeroDTE,
		FechaEmision:      m.FechaEmision,
		MontoTotal:        m.MontoTotal,
		Moneda:            m.Moneda,
		EstadoLiquidacion: m.EstadoLiquidacion,
		MontoLiquidado:    m.MontoLiquidado,
		MontoTransferido:  m.MontoTransferido,
		LiquidadoEn:       m.LiquidadoEn,
		LiquidadoPor:      m.LiquidadoPor,
		Autorizacion: liquidacion.Autorizacion{
			Estado:            a.Estado,
			SolicitadoPor:     a.SolicitadoPor,
			AprobadoPor:       a.AprobadoPor,
			Motivo:            a.Motivo,
			Comentario:        a.Comentario,
			DiasTranscurridos: a.DiasTranscurridos,
			SolicitadoEn:      a.SolicitadoEn,
			ResueltoEn:        a.ResueltoEn,
		},
	}
}

// FromDomain populates the persistence model from a domain Factura.
func (m *FacturaModel) FromDomain(f *liquidacion.Factura) {
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	m.NumeroDTE = f.NumeroDTE
	m.FechaEmision = f.FechaEmision
	m.MontoTotal = f.MontoTotal
	m.Moneda = f.Moneda
	m.EstadoLiquidacion = f.EstadoLiquidacion
	m.MontoLiquidado = f.MontoLiquidado
	m.MontoTransferido = f.MontoTransferido
	m.LiquidadoEn = f.LiquidadoEn
	m.LiquidadoPor = f.LiquidadoPor
	estado := f.Autorizacion.Estado
	if estado == "" {
		estado = liquidacion.EstadoAutorizacionNinguna
	}
	m.Autorizacion = AutorizacionColumns{
		Estado:            estado,
		SolicitadoPor:     f.Autorizacion.SolicitadoPor,
		AprobadoPor:       f.Autorizacion.AprobadoPor,
		Motivo:            f.Autorizacion.Motivo,
		Comentario:        f.Autorizacion.Comentario,
		DiasTranscurridos: f.Autorizacion.DiasTranscurridos,
		SolicitadoEn:      f.Autorizacion.SolicitadoEn,
		ResueltoEn:        f.Autorizacion.ResueltoEn,
	}
}

// FacturaModelFromDomain creates a new persistence model from domain.
func FacturaModelFromDomain(f *liquidacion.Factura) *FacturaModel {
	m := &FacturaModel{}
	m.FromDomain(f)
	return m
}

// DetalleModel is the persistence model for a liquidation detail.
type DetalleModel struct {
	BaseModel
	FacturaID     uuid.UUID             `gorm:"type:uuid;not null;index:idx_detalle_factura_posicion,priority:1"`
	Posicion      int                   `gorm:"not null;default:0;index:idx_detalle_factura_posicion,priority:2"`
	NumeroOrden   string                `gorm:"type:varchar(50)"`
	Agencia       string                `gorm:"type:varchar(100)"`
	Descripcion   string                `gorm:"type:varchar(500)"`
	Monto         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	FormaPago     liquidacion.FormaPago `gorm:"type:varchar(20);not null"`
	Banco         string                `gorm:"type:varchar(100)"`
	NumeroCuenta  string                `gorm:"type:varchar(50)"`
	Beneficiario  string                `gorm:"type:varchar(200)"`
	NoNegociable  bool                  `gorm:"not null;default:false"`
	Observaciones string                `gorm:"type:text"`
	Version       int                   `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (DetalleModel) TableName() string {
	return "detalles_liquidacion"
}

// ToDomain converts the persistence model to a domain Detalle.
func (m *DetalleModel) ToDomain() liquidacion.Detalle {
	id := m.ID
	return liquidacion.Detalle{
		ID:            &id,
		FacturaID:     m.FacturaID,
		NumeroOrden:   m.NumeroOrden,
		Agencia:       m.Agencia,
		Descripcion:   m.Descripcion,
		Monto:         m.Monto,
		FormaPago:     m.FormaPago,
		Banco:         m.Banco,
		NumeroCuenta:  m.NumeroCuenta,
		Beneficiario:  m.Beneficiario,
		NoNegociable:  m.NoNegociable,
		Observaciones: m.Observaciones,
		Posicion:      m.Posicion,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Detalle.
// A detail without id keeps the model's zero id.
func (m *DetalleModel) FromDomain(d *liquidacion.Detalle) {
	if d.ID != nil {
		m.ID = *d.ID
	}
	m.CreatedAt = d.CreatedAt
	m.UpdatedAt = d.UpdatedAt
	m.FacturaID = d.FacturaID
	m.Posicion = d.Posicion
	m.NumeroOrden = d.NumeroOrden
	m.Agencia = d.Agencia
	m.Descripcion = d.Descripcion
	m.Monto = d.Monto
	m.FormaPago = d.FormaPago
	m.Banco = d.Banco
	m.NumeroCuenta = d.NumeroCuenta
	m.Beneficiario = d.Beneficiario
	m.NoNegociable = d.NoNegociable
	m.Observaciones = d.Observaciones
	m.Version = d.Version
}

// DetalleModelFromDomain creates a new persistence model from domain.
func DetalleModelFromDomain(d *liquidacion.Detalle) *DetalleModel {
	m := &DetalleModel{}
	m.FromDomain(d)
	return m
}
