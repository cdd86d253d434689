package transferencia

import (
	"context"

	"github.com/google/uuid"
)

// Gateway is the remote transfer request API as seen by a client
type Gateway interface {
	ListSolicitudes(ctx context.Context, req ListRequest) ([]SolicitudResponse, error)
	GetSolicitud(ctx context.Context, id uuid.UUID) (*SolicitudResponse, error)
	CreateSolicitud(ctx context.Context, req SolicitudRequest) (*SolicitudResponse, error)
	UpdateSolicitud(ctx context.Context, id uuid.UUID, req SolicitudRequest) (*SolicitudResponse, error)
	AprobarSolicitud(ctx context.Context, id uuid.UUID, req AprobarRequest) (*SolicitudResponse, error)
	RechazarSolicitud(ctx context.Context, id uuid.UUID, req RechazarRequest) (*SolicitudResponse, error)
	CancelarSolicitud(ctx context.Context, id uuid.UUID, req CancelarRequest) (*SolicitudResponse, error)
	RegistrarComprobante(ctx context.Context, id uuid.UUID, req ComprobanteRequest, archivo *ArchivoUpload) (*SolicitudResponse, error)
	EditarComprobante(ctx context.Context, id uuid.UUID, req ComprobanteRequest, archivo *ArchivoUpload) (*SolicitudResponse, error)
}
