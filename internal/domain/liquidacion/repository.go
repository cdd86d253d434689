package liquidacion

import (
	"context"

	"github.com/google/uuid"
)

// FacturaRepository defines the interface for invoice persistence
type FacturaRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Factura, error)

	// FindByNumeroDTE finds an invoice by its DTE number
	FindByNumeroDTE(ctx context.Context, numeroDTE string) (*Factura, error)

	// FindByIDs finds invoices by IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Factura, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, factura *Factura) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, factura *Factura) error
}

// DetalleRepository defines the interface for liquidation detail persistence
type DetalleRepository interface {
	// FindByID finds a detail by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Detalle, error)

	// FindByFactura lists the details of an invoice in insertion order
	FindByFactura(ctx context.Context, facturaID uuid.UUID) ([]Detalle, error)

	// FindByIDs finds details by IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Detalle, error)

	// Create persists a new detail and assigns its ID
	Create(ctx context.Context, detalle *Detalle) error

	// InsertAt moves every detail of the invoice at or after detalle.Posicion
	// one slot down and creates detalle, atomically
	InsertAt(ctx context.Context, detalle *Detalle) error

	// Update persists changes to an existing detail
	Update(ctx context.Context, detalle *Detalle) error

	// Delete removes a detail
	Delete(ctx context.Context, id uuid.UUID) error
}
