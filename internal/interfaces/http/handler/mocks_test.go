package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	anticipoapp "github.com/finanzas/liquidaciones/internal/application/anticipo"
	calendarioapp "github.com/finanzas/liquidaciones/internal/application/calendario"
	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type testEnvelope struct {
	Respuesta string `json:"respuesta"`
	Datos     any    `json:"datos"`
	Mensaje   any    `json:"mensaje"`
	Codigo    string `json:"codigo"`
	RequestID string `json:"request_id"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// newTestRouter mounts the id middleware so handlers see the acting user.
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.UserID())
	return r
}

type MockFacturaService struct{ mock.Mock }

func (m *MockFacturaService) BuscarPorDTE(ctx context.Context, dte string) (*liquidacionapp.FacturaResponse, error) {
	args := m.Called(ctx, dte)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.FacturaResponse), args.Error(1)
}

func (m *MockFacturaService) GetByID(ctx context.Context, id uuid.UUID) (*liquidacionapp.FacturaResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.FacturaResponse), args.Error(1)
}

func (m *MockFacturaService) EvaluarVencimiento(ctx context.Context, id uuid.UUID) (*liquidacionapp.VencimientoResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.VencimientoResponse), args.Error(1)
}

func (m *MockFacturaService) SolicitarAutorizacion(ctx context.Context, id, userID uuid.UUID, req liquidacionapp.SolicitarAutorizacionRequest) (*liquidacionapp.FacturaResponse, error) {
	args := m.Called(ctx, id, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.FacturaResponse), args.Error(1)
}

func (m *MockFacturaService) ResolverAutorizacion(ctx context.Context, id, userID uuid.UUID, req liquidacionapp.ResolverAutorizacionRequest) (*liquidacionapp.FacturaResponse, error) {
	args := m.Called(ctx, id, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.FacturaResponse), args.Error(1)
}

func (m *MockFacturaService) Liquidar(ctx context.Context, id, userID uuid.UUID) (*liquidacionapp.FacturaResponse, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.FacturaResponse), args.Error(1)
}

type MockDetalleService struct{ mock.Mock }

func (m *MockDetalleService) List(ctx context.Context, facturaID uuid.UUID) (*liquidacionapp.DetalleListResponse, error) {
	args := m.Called(ctx, facturaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.DetalleListResponse), args.Error(1)
}

func (m *MockDetalleService) GetByID(ctx context.Context, id uuid.UUID) (*liquidacionapp.DetalleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.DetalleResponse), args.Error(1)
}

func (m *MockDetalleService) Create(ctx context.Context, facturaID uuid.UUID, req liquidacionapp.CreateDetalleRequest) (*liquidacionapp.DetalleResponse, error) {
	args := m.Called(ctx, facturaID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.DetalleResponse), args.Error(1)
}

func (m *MockDetalleService) Update(ctx context.Context, id uuid.UUID, req liquidacionapp.UpdateDetalleRequest) (*liquidacionapp.DetalleResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.DetalleResponse), args.Error(1)
}

func (m *MockDetalleService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDetalleService) Copy(ctx context.Context, id uuid.UUID, req liquidacionapp.CopyDetalleRequest) (*liquidacionapp.DetalleResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*liquidacionapp.DetalleResponse), args.Error(1)
}

type MockAnticipoService struct{ mock.Mock }

func (m *MockAnticipoService) ListPendientes(ctx context.Context, orden string) ([]anticipoapp.AnticipoResponse, error) {
	args := m.Called(ctx, orden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]anticipoapp.AnticipoResponse), args.Error(1)
}

func (m *MockAnticipoService) SolicitarAutorizacion(ctx context.Context, id uuid.UUID, userID *uuid.UUID, req anticipoapp.SolicitarAutorizacionRequest) ([]anticipoapp.AnticipoResponse, error) {
	args := m.Called(ctx, id, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]anticipoapp.AnticipoResponse), args.Error(1)
}

type MockTransferenciaService struct{ mock.Mock }

func (m *MockTransferenciaService) solicitud(args mock.Arguments) (*transferenciaapp.SolicitudResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transferenciaapp.SolicitudResponse), args.Error(1)
}

func (m *MockTransferenciaService) List(ctx context.Context, req transferenciaapp.ListRequest) (*shared.Paginated[transferenciaapp.SolicitudResponse], error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[transferenciaapp.SolicitudResponse]), args.Error(1)
}

func (m *MockTransferenciaService) Get(ctx context.Context, id uuid.UUID) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id))
}

func (m *MockTransferenciaService) Create(ctx context.Context, userID uuid.UUID, req transferenciaapp.SolicitudRequest) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, userID, req))
}

func (m *MockTransferenciaService) Update(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.SolicitudRequest) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id, userID, req))
}

func (m *MockTransferenciaService) Aprobar(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.AprobarRequest) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id, userID, req))
}

func (m *MockTransferenciaService) Rechazar(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.RechazarRequest) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id, userID, req))
}

func (m *MockTransferenciaService) Cancelar(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.CancelarRequest) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id, userID, req))
}

func (m *MockTransferenciaService) RegistrarComprobante(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.ComprobanteRequest, upload *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id, userID, req, upload))
}

func (m *MockTransferenciaService) EditarComprobante(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.ComprobanteRequest, upload *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error) {
	return m.solicitud(m.Called(ctx, id, userID, req, upload))
}

func (m *MockTransferenciaService) ArchivoRules() transferencia.ArchivoRules {
	return transferencia.DefaultArchivoRules()
}

type MockFeriadoService struct{ mock.Mock }

func (m *MockFeriadoService) List(ctx context.Context, year int) ([]calendarioapp.FeriadoResponse, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calendarioapp.FeriadoResponse), args.Error(1)
}

func (m *MockFeriadoService) Create(ctx context.Context, req calendarioapp.CreateFeriadoRequest) (*calendarioapp.FeriadoResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendarioapp.FeriadoResponse), args.Error(1)
}

func (m *MockFeriadoService) Delete(ctx context.Context, id uuid.UUID, year int) error {
	return m.Called(ctx, id, year).Error(0)
}
