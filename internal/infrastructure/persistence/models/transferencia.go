package models

import (
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComprobanteColumns are the receipt columns of a transfer request, stored
// inline with a comprobante_ prefix. A nil RegistradoPor means no receipt.
type ComprobanteColumns struct {
	NumeroRegistro     string `gorm:"type:varchar(100);index"`
	FechaTransferencia *time.Time
	ReferenciaBancaria string     `gorm:"type:varchar(100)"`
	Observaciones      string     `gorm:"type:varchar(500)"`
	ArchivoNombre      string     `gorm:"type:varchar(255)"`
	ArchivoMimeType    string     `gorm:"type:varchar(100)"`
	ArchivoTamano      int64      `gorm:"not null;default:0"`
	ArchivoStorageKey  string     `gorm:"type:varchar(500)"`
	RegistradoPor      *uuid.UUID `gorm:"type:uuid"`
	RegistradoEn       *time.Time
	EditadoEn          *time.Time
}

// SolicitudTransferenciaModel is the persistence model for the transfer request aggregate root.
type SolicitudTransferenciaModel struct {
	AuditedAggregateModel
	Numero               string               `gorm:"type:varchar(30);not null;uniqueIndex"`
	CuentaBancariaID     uuid.UUID            `gorm:"type:uuid;not null"`
	AreaAprobacionID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	MontoTotal           decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Concepto             string               `gorm:"type:varchar(255)"`
	Observaciones        string               `gorm:"type:varchar(500)"`
	Estado               transferencia.Estado `gorm:"type:varchar(30);not null;default:'pendiente_aprobacion';index"`
	AprobadoPor          *uuid.UUID           `gorm:"type:uuid"`
	AprobadoEn           *time.Time
	ComentarioAprobacion string     `gorm:"type:varchar(500)"`
	RechazadoPor         *uuid.UUID `gorm:"type:uuid"`
	RechazadoEn          *time.Time
	MotivoRechazo        string     `gorm:"type:varchar(500)"`
	CanceladoPor         *uuid.UUID `gorm:"type:uuid"`
	CanceladoEn          *time.Time
	MotivoCancelacion    string `gorm:"type:varchar(500)"`
	CompletadoEn         *time.Time
	Comprobante          ComprobanteColumns  `gorm:"embedded;embeddedPrefix:comprobante_"`
	Pares                []SolicitudParModel `gorm:"foreignKey:SolicitudID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SolicitudTransferenciaModel) TableName() string {
	return "solicitudes_transferencia"
}

// SolicitudParModel links a transfer request to one invoice detail.
type SolicitudParModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	SolicitudID uuid.UUID `gorm:"type:uuid;not null;index"`
	FacturaID   uuid.UUID `gorm:"type:uuid;not null;index"`
	DetalleID   uuid.UUID `gorm:"type:uuid;not null"`
	Posicion    int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SolicitudParModel) TableName() string {
	return "solicitud_transferencia_pares"
}

// ToDomain converts the persistence model to a domain Solicitud.
func (m *SolicitudTransferenciaModel) ToDomain() *transferencia.Solicitud {
	s := &transferencia.Solicitud{
		AuditedAggregateRoot: m.ToAuditedAggregateRoot(),
		Numero:               m.Numero,
		Pares:                make([]transferencia.Par, len(m.Pares)),
		CuentaBancariaID:     m.CuentaBancariaID,
		AreaAprobacionID:     m.AreaAprobacionID,
		MontoTotal:           m.MontoTotal,
		Concepto:             m.Concepto,
		Observaciones:        m.Observaciones,
		Estado:               m.Estado,
		AprobadoPor:          m.AprobadoPor,
		AprobadoEn:           m.AprobadoEn,
		ComentarioAprobacion: m.ComentarioAprobacion,
		RechazadoPor:         m.RechazadoPor,
		RechazadoEn:          m.RechazadoEn,
		MotivoRechazo:        m.MotivoRechazo,
		CanceladoPor:         m.CanceladoPor,
		CanceladoEn:          m.CanceladoEn,
		MotivoCancelacion:    m.MotivoCancelacion,
		CompletadoEn:         m.CompletadoEn,
		Comprobante:          m.Comprobante.toDomain(),
	}
	for i, p := range m.Pares {
		s.Pares[i] = transferencia.Par{FacturaID: p.FacturaID, DetalleID: p.DetalleID}
	}
	return s
}

func (c ComprobanteColumns) toDomain() *transferencia.Comprobante {
	if c.RegistradoPor == nil {
		return nil
	}
	comp := &transferencia.Comprobante{
		ComprobanteDatos: transferencia.ComprobanteDatos{
			NumeroRegistro:     c.NumeroRegistro,
			ReferenciaBancaria: c.ReferenciaBancaria,
			Observaciones:      c.Observaciones,
		},
		RegistradoPor: *c.RegistradoPor,
		EditadoEn:     c.EditadoEn,
	}
	if c.FechaTransferencia != nil {
		comp.FechaTransferencia = *c.FechaTransferencia
	}
	if c.RegistradoEn != nil {
		comp.RegistradoEn = *c.RegistradoEn
	}
	if c.ArchivoStorageKey != "" {
		comp.Archivo = &transferencia.Archivo{
			Nombre:     c.ArchivoNombre,
			MimeType:   c.ArchivoMimeType,
			Tamano:     c.ArchivoTamano,
			StorageKey: c.ArchivoStorageKey,
		}
	}
	return comp
}

// FromDomain populates the persistence model from a domain Solicitud.
// Pair rows get fresh ids; the repository replaces them on every save.
func (m *SolicitudTransferenciaModel) FromDomain(s *transferencia.Solicitud) {
	m.FromDomainAuditedAggregateRoot(s.AuditedAggregateRoot)
	m.Numero = s.Numero
	m.CuentaBancariaID = s.CuentaBancariaID
	m.AreaAprobacionID = s.AreaAprobacionID
	m.MontoTotal = s.MontoTotal
	m.Concepto = s.Concepto
	m.Observaciones = s.Observaciones
	m.Estado = s.Estado
	m.AprobadoPor = s.AprobadoPor
	m.AprobadoEn = s.AprobadoEn
	m.ComentarioAprobacion = s.ComentarioAprobacion
	m.RechazadoPor = s.RechazadoPor
	m.RechazadoEn = s.RechazadoEn
	m.MotivoRechazo = s.MotivoRechazo
	m.CanceladoPor = s.CanceladoPor
	m.CanceladoEn = s.CanceladoEn
	m.MotivoCancelacion = s.MotivoCancelacion
	m.CompletadoEn = s.CompletadoEn
	m.Comprobante = ComprobanteColumns{}
	if c := s.Comprobante; c != nil {
		registradoPor := c.RegistradoPor
		registradoEn := c.RegistradoEn
		fecha := c.FechaTransferencia
		m.Comprobante = ComprobanteColumns{
			NumeroRegistro:     c.NumeroRegistro,
			FechaTransferencia: &fecha,
			ReferenciaBancaria: c.ReferenciaBancaria,
			Observaciones:      c.Observaciones,
			RegistradoPor:      &registradoPor,
			RegistradoEn:       &registradoEn,
			EditadoEn:          c.EditadoEn,
		}
		if a := c.Archivo; a != nil {
			m.Comprobante.ArchivoNombre = a.Nombre
			m.Comprobante.ArchivoMimeType = a.MimeType
			m.Comprobante.ArchivoTamano = a.Tamano
			m.Comprobante.ArchivoStorageKey = a.StorageKey
		}
	}
	m.Pares = make([]SolicitudParModel, len(s.Pares))
	for i, p := range s.Pares {
		m.Pares[i] = SolicitudParModel{
			ID:          uuid.New(),
			SolicitudID: s.ID,
			FacturaID:   p.FacturaID,
			DetalleID:   p.DetalleID,
			Posicion:    i,
		}
	}
}

// SolicitudTransferenciaModelFromDomain creates a new persistence model from domain.
func SolicitudTransferenciaModelFromDomain(s *transferencia.Solicitud) *SolicitudTransferenciaModel {
	m := &SolicitudTransferenciaModel{}
	m.FromDomain(s)
	return m
}
