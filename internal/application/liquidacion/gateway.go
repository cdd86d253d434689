package liquidacion

import (
	"context"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/google/uuid"
)

// FacturaGateway is the remote side of an operator session. Search returns
// shared.ErrNotFound when no invoice has the given DTE.
type FacturaGateway interface {
	BuscarFactura(ctx context.Context, numeroDTE string) (*liquidacion.Factura, error)
	EvaluarVencimiento(ctx context.Context, facturaID uuid.UUID) (liquidacion.ValidacionVencimiento, error)
	SolicitarAutorizacion(ctx context.Context, facturaID uuid.UUID, motivo string) (*liquidacion.Factura, error)
	Liquidar(ctx context.Context, facturaID uuid.UUID) (*liquidacion.Factura, error)
}

// DetalleGateway persists liquidation details remotely
type DetalleGateway interface {
	ListDetalles(ctx context.Context, facturaID uuid.UUID) ([]liquidacion.Detalle, error)
	CreateDetalle(ctx context.Context, d liquidacion.Detalle) (liquidacion.Detalle, error)
	UpdateDetalle(ctx context.Context, d liquidacion.Detalle) (liquidacion.Detalle, error)
	DeleteDetalle(ctx context.Context, id uuid.UUID) error
}
