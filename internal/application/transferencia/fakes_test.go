package transferencia

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type memSolicitudes struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]transferencia.Solicitud
	seq      int
	saveErr  error
	facturas *memFacturas
}

func newMemSolicitudes(facturas *memFacturas) *memSolicitudes {
	return &memSolicitudes{rows: make(map[uuid.UUID]transferencia.Solicitud), facturas: facturas}
}

func cloneSolicitud(s transferencia.Solicitud) transferencia.Solicitud {
	s.Pares = append([]transferencia.Par(nil), s.Pares...)
	if s.Comprobante != nil {
		c := *s.Comprobante
		s.Comprobante = &c
	}
	s.ClearDomainEvents()
	return s
}

func (r *memSolicitudes) FindByID(_ context.Context, id uuid.UUID) (*transferencia.Solicitud, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := cloneSolicitud(s)
	return &c, nil
}

func (r *memSolicitudes) FindAll(_ context.Context, filter transferencia.Filter) ([]transferencia.Solicitud, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transferencia.Solicitud
	for _, s := range r.rows {
		if filter.Estado != nil && s.Estado != *filter.Estado {
			continue
		}
		out = append(out, cloneSolicitud(s))
	}
	return out, int64(len(out)), nil
}

func (r *memSolicitudes) Save(_ context.Context, s *transferencia.Solicitud) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.rows[s.ID] = cloneSolicitud(*s)
	return nil
}

func (r *memSolicitudes) SaveWithLock(_ context.Context, s *transferencia.Solicitud) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if stored, ok := r.rows[s.ID]; ok && stored.Version != s.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.rows[s.ID] = cloneSolicitud(*s)
	return nil
}

func (r *memSolicitudes) SaveCompletion(_ context.Context, s *transferencia.Solicitud, facturas []*liquidacion.Factura) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if stored, ok := r.rows[s.ID]; ok && stored.Version != s.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.facturas.mu.Lock()
	defer r.facturas.mu.Unlock()
	if r.facturas.lockErr != nil {
		return r.facturas.lockErr
	}
	for _, f := range facturas {
		r.facturas.rows[f.ID] = *f
	}
	r.rows[s.ID] = cloneSolicitud(*s)
	return nil
}

func (r *memSolicitudes) NextNumero(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("ST-%06d", r.seq), nil
}

func (r *memSolicitudes) stored(id uuid.UUID) transferencia.Solicitud {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

type memFacturas struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]liquidacion.Factura
	lockErr error
}

func (r *memFacturas) FindByID(_ context.Context, id uuid.UUID) (*liquidacion.Factura, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &f, nil
}

func (r *memFacturas) FindByNumeroDTE(_ context.Context, numeroDTE string) (*liquidacion.Factura, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.rows {
		if f.NumeroDTE == numeroDTE {
			return &f, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memFacturas) FindByIDs(_ context.Context, ids []uuid.UUID) ([]liquidacion.Factura, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []liquidacion.Factura
	for _, id := range ids {
		if f, ok := r.rows[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memFacturas) Save(_ context.Context, f *liquidacion.Factura) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[f.ID] = *f
	return nil
}

func (r *memFacturas) SaveWithLock(ctx context.Context, f *liquidacion.Factura) error {
	r.mu.Lock()
	err := r.lockErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Save(ctx, f)
}

type memDetalles struct {
	rows map[uuid.UUID]liquidacion.Detalle
}

func (r *memDetalles) FindByID(_ context.Context, id uuid.UUID) (*liquidacion.Detalle, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (r *memDetalles) FindByFactura(_ context.Context, facturaID uuid.UUID) ([]liquidacion.Detalle, error) {
	var out []liquidacion.Detalle
	for _, d := range r.rows {
		if d.FacturaID == facturaID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDetalles) FindByIDs(_ context.Context, ids []uuid.UUID) ([]liquidacion.Detalle, error) {
	var out []liquidacion.Detalle
	for _, id := range ids {
		if d, ok := r.rows[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDetalles) Create(_ context.Context, d *liquidacion.Detalle) error {
	id := uuid.New()
	d.ID = &id
	r.rows[id] = *d
	return nil
}

func (r *memDetalles) InsertAt(_ context.Context, d *liquidacion.Detalle) error {
	for id, other := range r.rows {
		if other.FacturaID == d.FacturaID && other.Posicion >= d.Posicion {
			other.Posicion++
			r.rows[id] = other
		}
	}
	id := uuid.New()
	d.ID = &id
	r.rows[id] = *d
	return nil
}

func (r *memDetalles) Update(_ context.Context, d *liquidacion.Detalle) error {
	r.rows[*d.ID] = *d
	return nil
}

func (r *memDetalles) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.rows, id)
	return nil
}

// =============================================================================
// Mock Storage
// =============================================================================

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *MockStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// =============================================================================
// Mock Gateway
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) response(args mock.Arguments) (*SolicitudResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SolicitudResponse), args.Error(1)
}

func (m *MockGateway) ListSolicitudes(ctx context.Context, req ListRequest) ([]SolicitudResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SolicitudResponse), args.Error(1)
}

func (m *MockGateway) GetSolicitud(ctx context.Context, id uuid.UUID) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id))
}

func (m *MockGateway) CreateSolicitud(ctx context.Context, req SolicitudRequest) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, req))
}

func (m *MockGateway) UpdateSolicitud(ctx context.Context, id uuid.UUID, req SolicitudRequest) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id, req))
}

func (m *MockGateway) AprobarSolicitud(ctx context.Context, id uuid.UUID, req AprobarRequest) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id, req))
}

func (m *MockGateway) RechazarSolicitud(ctx context.Context, id uuid.UUID, req RechazarRequest) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id, req))
}

func (m *MockGateway) CancelarSolicitud(ctx context.Context, id uuid.UUID, req CancelarRequest) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id, req))
}

func (m *MockGateway) RegistrarComprobante(ctx context.Context, id uuid.UUID, req ComprobanteRequest, archivo *ArchivoUpload) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id, req, archivo))
}

func (m *MockGateway) EditarComprobante(ctx context.Context, id uuid.UUID, req ComprobanteRequest, archivo *ArchivoUpload) (*SolicitudResponse, error) {
	return m.response(m.Called(ctx, id, req, archivo))
}
