package transferencia

import (
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SolicitudRequest is the payload to create or correct a transfer request
type SolicitudRequest struct {
	Pares            []transferencia.Par `json:"pares" binding:"required,min=1"`
	CuentaBancariaID uuid.UUID           `json:"cuenta_bancaria_id" binding:"required"`
	AreaAprobacionID uuid.UUID           `json:"area_aprobacion_id" binding:"required"`
	Monto            decimal.Decimal     `json:"monto_total_solicitud" binding:"required"`
	Concepto         string              `json:"concepto" binding:"max=200"`
	Observaciones    string              `json:"observaciones" binding:"max=500"`
}

// Datos converts the request to the domain payload
func (r SolicitudRequest) Datos() transferencia.Datos {
	return transferencia.Datos{
		Pares:            r.Pares,
		CuentaBancariaID: r.CuentaBancariaID,
		AreaAprobacionID: r.AreaAprobacionID,
		Monto:            r.Monto,
		Concepto:         r.Concepto,
		Observaciones:    r.Observaciones,
	}
}

// AprobarRequest carries the optional approval comment
type AprobarRequest struct {
	Comentario string `json:"comentario" binding:"max=500"`
}

// RechazarRequest carries the mandatory rejection comment
type RechazarRequest struct {
	Comentario string `json:"comentario" binding:"required,max=500"`
}

// CancelarRequest carries the mandatory cancellation reason
type CancelarRequest struct {
	Motivo string `json:"motivo" binding:"required,max=500"`
}

// ComprobanteRequest is the receipt payload; the file travels separately
type ComprobanteRequest struct {
	NumeroRegistro     string    `json:"numero_registro_transferencia" form:"numero_registro_transferencia" binding:"required,max=100"`
	FechaTransferencia time.Time `json:"fecha_transferencia" form:"fecha_transferencia" time_format:"2006-01-02" binding:"required"`
	ReferenciaBancaria string    `json:"referencia_bancaria" form:"referencia_bancaria" binding:"max=100"`
	Observaciones      string    `json:"observaciones" form:"observaciones" binding:"max=500"`
}

// Datos converts the request to the domain payload
func (r ComprobanteRequest) Datos() transferencia.ComprobanteDatos {
	return transferencia.ComprobanteDatos{
		NumeroRegistro:     r.NumeroRegistro,
		FechaTransferencia: r.FechaTransferencia,
		ReferenciaBancaria: r.ReferenciaBancaria,
		Observaciones:      r.Observaciones,
	}
}

// ArchivoUpload is a receipt file received from the caller
type ArchivoUpload struct {
	Nombre   string
	MimeType string
	Data     []byte
}

// Archivo describes the upload for validation, before it has a storage key
func (u *ArchivoUpload) Archivo() transferencia.Archivo {
	return transferencia.Archivo{
		Nombre:   u.Nombre,
		MimeType: u.MimeType,
		Tamano:   int64(len(u.Data)),
	}
}

// ListRequest filters a transfer request listing
type ListRequest struct {
	Page             int                   `form:"page" binding:"omitempty,min=1"`
	PageSize         int                   `form:"page_size" binding:"omitempty,min=1,max=100"`
	Estado           *transferencia.Estado `form:"estado"`
	AreaAprobacionID *uuid.UUID            `form:"area_aprobacion_id"`
	FacturaID        *uuid.UUID            `form:"factura_id"`
}

func (r ListRequest) filter() transferencia.Filter {
	f := shared.DefaultFilter()
	if r.Page > 0 {
		f.Page = r.Page
	}
	if r.PageSize > 0 {
		f.PageSize = r.PageSize
	}
	return transferencia.Filter{
		Filter:           f,
		Estado:           r.Estado,
		AreaAprobacionID: r.AreaAprobacionID,
		FacturaID:        r.FacturaID,
	}
}

// ComprobanteResponse is a registered receipt with a temporary download link
type ComprobanteResponse struct {
	transferencia.ComprobanteDatos
	Archivo       *transferencia.Archivo `json:"archivo,omitempty"`
	DownloadURL   string                 `json:"download_url,omitempty"`
	RegistradoPor uuid.UUID              `json:"registrado_por"`
	RegistradoEn  time.Time              `json:"registrado_en"`
	EditadoEn     *time.Time             `json:"editado_en,omitempty"`
}

// SolicitudResponse represents a transfer request in API responses
type SolicitudResponse struct {
	ID                   uuid.UUID            `json:"id"`
	Numero               string               `json:"numero"`
	Pares                []transferencia.Par  `json:"pares"`
	CuentaBancariaID     uuid.UUID            `json:"cuenta_bancaria_id"`
	AreaAprobacionID     uuid.UUID            `json:"area_aprobacion_id"`
	MontoTotal           decimal.Decimal      `json:"monto_total_solicitud"`
	Concepto             string               `json:"concepto,omitempty"`
	Observaciones        string               `json:"observaciones,omitempty"`
	Estado               transferencia.Estado `json:"estado"`
	CreatedBy            *uuid.UUID           `json:"created_by,omitempty"`
	AprobadoPor          *uuid.UUID           `json:"aprobado_por,omitempty"`
	AprobadoEn           *time.Time           `json:"aprobado_en,omitempty"`
	ComentarioAprobacion string               `json:"comentario_aprobacion,omitempty"`
	RechazadoPor         *uuid.UUID           `json:"rechazado_por,omitempty"`
	RechazadoEn          *time.Time           `json:"rechazado_en,omitempty"`
	MotivoRechazo        string               `json:"motivo_rechazo,omitempty"`
	CanceladoPor         *uuid.UUID           `json:"cancelado_por,omitempty"`
	CanceladoEn          *time.Time           `json:"cancelado_en,omitempty"`
	MotivoCancelacion    string               `json:"motivo_cancelacion,omitempty"`
	CompletadoEn         *time.Time           `json:"completado_en,omitempty"`
	Comprobante          *ComprobanteResponse `json:"comprobante,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	Version              int                  `json:"version"`
}

// Datos returns the editable payload, used to prefill the editor
func (r SolicitudResponse) Datos() transferencia.Datos {
	return transferencia.Datos{
		Pares:            r.Pares,
		CuentaBancariaID: r.CuentaBancariaID,
		AreaAprobacionID: r.AreaAprobacionID,
		Monto:            r.MontoTotal,
		Concepto:         r.Concepto,
		Observaciones:    r.Observaciones,
	}
}

func toSolicitudResponse(s *transferencia.Solicitud) *SolicitudResponse {
	resp := &SolicitudResponse{
		ID:                   s.ID,
		Numero:               s.Numero,
		Pares:                s.Pares,
		CuentaBancariaID:     s.CuentaBancariaID,
		AreaAprobacionID:     s.AreaAprobacionID,
		MontoTotal:           s.MontoTotal,
		Concepto:             s.Concepto,
		Observaciones:        s.Observaciones,
		Estado:               s.Estado,
		CreatedBy:            s.CreatedBy,
		AprobadoPor:          s.AprobadoPor,
		AprobadoEn:           s.AprobadoEn,
		ComentarioAprobacion: s.ComentarioAprobacion,
		RechazadoPor:         s.RechazadoPor,
		RechazadoEn:          s.RechazadoEn,
		MotivoRechazo:        s.MotivoRechazo,
		CanceladoPor:         s.CanceladoPor,
		CanceladoEn:          s.CanceladoEn,
		MotivoCancelacion:    s.MotivoCancelacion,
		CompletadoEn:         s.CompletadoEn,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		Version:              s.Version,
	}
	if c := s.Comprobante; c != nil {
		resp.Comprobante = &ComprobanteResponse{
			ComprobanteDatos: c.ComprobanteDatos,
			Archivo:          c.Archivo,
			RegistradoPor:    c.RegistradoPor,
			RegistradoEn:     c.RegistradoEn,
			EditadoEn:        c.EditadoEn,
		}
	}
	return resp
}
