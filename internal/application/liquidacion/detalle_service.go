package liquidacion

import (
	"context"
	"fmt"
	"strings"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CopyMarker prefixes the description of a copied detail
const CopyMarker = "(Copia) "

// DetalleService provides liquidation detail CRUD with amount validation
type DetalleService struct {
	facturaRepo liquidacion.FacturaRepository
	detalleRepo liquidacion.DetalleRepository
	guard       shared.InFlightGuard
	tolerance   decimal.Decimal
}

// NewDetalleService creates a new DetalleService
func NewDetalleService(
	facturaRepo liquidacion.FacturaRepository,
	detalleRepo liquidacion.DetalleRepository,
	guard shared.InFlightGuard,
	tolerance decimal.Decimal,
) *DetalleService {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = liquidacion.DefaultTolerance
	}
	return &DetalleService{
		facturaRepo: facturaRepo,
		detalleRepo: detalleRepo,
		guard:       guard,
		tolerance:   tolerance,
	}
}

// List lists the details of an invoice with its reconciliation summary
func (s *DetalleService) List(ctx context.Context, facturaID uuid.UUID) (*DetalleListResponse, error) {
	f, err := s.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		return nil, err
	}
	detalles, err := s.detalleRepo.FindByFactura(ctx, facturaID)
	if err != nil {
		return nil, err
	}
	responses := make([]DetalleResponse, len(detalles))
	for i := range detalles {
		responses[i] = *toDetalleResponse(&detalles[i])
	}
	return &DetalleListResponse{
		Detalles: responses,
		Resumen:  liquidacion.Resumir(detalles, f.MontoTotal, s.tolerance),
	}, nil
}

// GetByID gets a detail with all its method-specific fields
func (s *DetalleService) GetByID(ctx context.Context, id uuid.UUID) (*DetalleResponse, error) {
	d, err := s.detalleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDetalleResponse(d), nil
}

// Create adds a detail to an invoice
func (s *DetalleService) Create(ctx context.Context, facturaID uuid.UUID, req CreateDetalleRequest) (*DetalleResponse, error) {
	formaPago := liquidacion.FormaPago(req.FormaPago)
	if formaPago == "" {
		formaPago = liquidacion.FormaPagoDeposito
	}
	d := liquidacion.Detalle{
		FacturaID:     facturaID,
		NumeroOrden:   strings.TrimSpace(req.NumeroOrden),
		Agencia:       strings.TrimSpace(req.Agencia),
		Descripcion:   strings.TrimSpace(req.Descripcion),
		Monto:         req.Monto,
		FormaPago:     formaPago,
		Banco:         req.Banco,
		NumeroCuenta:  req.NumeroCuenta,
		Beneficiario:  req.Beneficiario,
		NoNegociable:  req.NoNegociable,
		Observaciones: req.Observaciones,
	}
	if errs := d.Validate(); len(errs) > 0 {
		return nil, errs
	}

	err := shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, facturaID.String()), func() error {
		f, existing, err := s.loadEditable(ctx, facturaID)
		if err != nil {
			return err
		}
		if err := amountError(liquidacion.ValidateNewAmount(existing, liquidacion.ExcludeUnsaved, d.Monto, f.MontoTotal)); err != nil {
			return err
		}

		pos := len(existing)
		if req.Posicion != nil && *req.Posicion >= 0 && *req.Posicion < pos {
			pos = *req.Posicion
		}
		d.Posicion = pos
		return s.detalleRepo.InsertAt(ctx, &d)
	})
	if err != nil {
		return nil, err
	}
	return toDetalleResponse(&d), nil
}

// Update applies a partial update to a detail
func (s *DetalleService) Update(ctx context.Context, id uuid.UUID, req UpdateDetalleRequest) (*DetalleResponse, error) {
	current, err := s.detalleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated liquidacion.Detalle
	err = shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, current.FacturaID.String()), func() error {
		f, existing, err := s.loadEditable(ctx, current.FacturaID)
		if err != nil {
			return err
		}
		updated = req.DetallePatch.Apply(*current)
		if req.Posicion != nil {
			updated.Posicion = *req.Posicion
		}
		if errs := updated.Validate(); len(errs) > 0 {
			return errs
		}
		if err := amountError(liquidacion.ValidateNewAmount(existing, liquidacion.ExcludeID(id), updated.Monto, f.MontoTotal)); err != nil {
			return err
		}
		return s.detalleRepo.Update(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return toDetalleResponse(&updated), nil
}

// Delete removes a detail from its invoice
func (s *DetalleService) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.detalleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, current.FacturaID.String()), func() error {
		if _, _, err := s.loadEditable(ctx, current.FacturaID); err != nil {
			return err
		}
		return s.detalleRepo.Delete(ctx, id)
	})
}

// Copy duplicates a detail right after its source with a new amount and description
func (s *DetalleService) Copy(ctx context.Context, id uuid.UUID, req CopyDetalleRequest) (*DetalleResponse, error) {
	source, err := s.detalleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	copia := source.Clone()
	if req.Monto != nil {
		copia.Monto = *req.Monto
	}
	if req.Descripcion != nil {
		copia.Descripcion = strings.TrimSpace(*req.Descripcion)
	}
	if req.Marcar {
		copia.Descripcion = CopyMarker + copia.Descripcion
	}
	if errs := copia.Validate(); len(errs) > 0 {
		return nil, errs
	}

	err = shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, source.FacturaID.String()), func() error {
		f, existing, err := s.loadEditable(ctx, source.FacturaID)
		if err != nil {
			return err
		}
		if err := amountError(liquidacion.ValidateNewAmount(existing, liquidacion.ExcludeUnsaved, copia.Monto, f.MontoTotal)); err != nil {
			return err
		}
		pos := source.Posicion + 1
		copia.Posicion = pos
		return s.detalleRepo.InsertAt(ctx, &copia)
	})
	if err != nil {
		return nil, err
	}
	return toDetalleResponse(&copia), nil
}

func (s *DetalleService) loadEditable(ctx context.Context, facturaID uuid.UUID) (*liquidacion.Factura, []liquidacion.Detalle, error) {
	f, err := s.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		return nil, nil, err
	}
	if err := f.EnsureDetallesEditables(); err != nil {
		return nil, nil, err
	}
	existing, err := s.detalleRepo.FindByFactura(ctx, facturaID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load detalles: %w", err)
	}
	return f, existing, nil
}

func amountError(v liquidacion.AmountValidation) error {
	if v.Valid {
		return nil
	}
	if v.ExceedingBy.IsPositive() {
		return shared.NewDomainError("AMOUNT_EXCEEDS_AVAILABLE", v.Message)
	}
	return shared.NewDomainError("INVALID_AMOUNT", v.Message)
}
