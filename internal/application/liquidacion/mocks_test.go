package liquidacion

import (
	"context"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockFacturaRepository struct {
	mock.Mock
}

func (m *MockFacturaRepository) FindByID(ctx context.Context, id uuid.UUID) (*liquidacion.Factura, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacion.Factura), args.Error(1)
}

func (m *MockFacturaRepository) FindByNumeroDTE(ctx context.Context, numeroDTE string) (*liquidacion.Factura, error) {
	args := m.Called(ctx, numeroDTE)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacion.Factura), args.Error(1)
}

func (m *MockFacturaRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]liquidacion.Factura, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]liquidacion.Factura), args.Error(1)
}

func (m *MockFacturaRepository) Save(ctx context.Context, f *liquidacion.Factura) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFacturaRepository) SaveWithLock(ctx context.Context, f *liquidacion.Factura) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

type MockDetalleRepository struct {
	mock.Mock
}

func (m *MockDetalleRepository) FindByID(ctx context.Context, id uuid.UUID) (*liquidacion.Detalle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacion.Detalle), args.Error(1)
}

func (m *MockDetalleRepository) FindByFactura(ctx context.Context, facturaID uuid.UUID) ([]liquidacion.Detalle, error) {
	args := m.Called(ctx, facturaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]liquidacion.Detalle), args.Error(1)
}

func (m *MockDetalleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]liquidacion.Detalle, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]liquidacion.Detalle), args.Error(1)
}

func (m *MockDetalleRepository) Create(ctx context.Context, d *liquidacion.Detalle) error {
	args := m.Called(ctx, d)
	if args.Error(0) == nil && d.ID == nil {
		id := uuid.New()
		d.ID = &id
	}
	return args.Error(0)
}

func (m *MockDetalleRepository) InsertAt(ctx context.Context, d *liquidacion.Detalle) error {
	args := m.Called(ctx, d)
	if args.Error(0) == nil && d.ID == nil {
		id := uuid.New()
		d.ID = &id
	}
	return args.Error(0)
}

func (m *MockDetalleRepository) Update(ctx context.Context, d *liquidacion.Detalle) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDetalleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Mock Gateways
// =============================================================================

type MockFacturaGateway struct {
	mock.Mock
}

func (m *MockFacturaGateway) BuscarFactura(ctx context.Context, numeroDTE string) (*liquidacion.Factura, error) {
	args := m.Called(ctx, numeroDTE)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacion.Factura), args.Error(1)
}

func (m *MockFacturaGateway) EvaluarVencimiento(ctx context.Context, facturaID uuid.UUID) (liquidacion.ValidacionVencimiento, error) {
	args := m.Called(ctx, facturaID)
	return args.Get(0).(liquidacion.ValidacionVencimiento), args.Error(1)
}

func (m *MockFacturaGateway) SolicitarAutorizacion(ctx context.Context, facturaID uuid.UUID, motivo string) (*liquidacion.Factura, error) {
	args := m.Called(ctx, facturaID, motivo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacion.Factura), args.Error(1)
}

func (m *MockFacturaGateway) Liquidar(ctx context.Context, facturaID uuid.UUID) (*liquidacion.Factura, error) {
	args := m.Called(ctx, facturaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacion.Factura), args.Error(1)
}

type MockDetalleGateway struct {
	mock.Mock
}

func (m *MockDetalleGateway) ListDetalles(ctx context.Context, facturaID uuid.UUID) ([]liquidacion.Detalle, error) {
	args := m.Called(ctx, facturaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]liquidacion.Detalle), args.Error(1)
}

func (m *MockDetalleGateway) CreateDetalle(ctx context.Context, d liquidacion.Detalle) (liquidacion.Detalle, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(liquidacion.Detalle), args.Error(1)
}

func (m *MockDetalleGateway) UpdateDetalle(ctx context.Context, d liquidacion.Detalle) (liquidacion.Detalle, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(liquidacion.Detalle), args.Error(1)
}

func (m *MockDetalleGateway) DeleteDetalle(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Mock Event Publisher
// =============================================================================

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
