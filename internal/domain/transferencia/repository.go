package transferencia

import (
	"context"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows a transfer request listing
type Filter struct {
	shared.Filter
	Estado           *Estado
	AreaAprobacionID *uuid.UUID
	FacturaID        *uuid.UUID
}

// Repository defines the interface for transfer request persistence
type Repository interface {
	// FindByID finds a transfer request by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Solicitud, error)

	// FindAll lists transfer requests matching the filter
	FindAll(ctx context.Context, filter Filter) ([]Solicitud, int64, error)

	// Save creates or updates a transfer request
	Save(ctx context.Context, s *Solicitud) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, s *Solicitud) error

	// SaveCompletion saves a completed request together with the invoices its
	// amount was applied to. Nothing is written unless every save succeeds.
	SaveCompletion(ctx context.Context, s *Solicitud, facturas []*liquidacion.Factura) error

	// NextNumero returns the next request number
	NextNumero(ctx context.Context) (string, error)
}
