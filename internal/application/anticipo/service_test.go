package anticipo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/anticipo"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== Mocks ====================

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*anticipo.Anticipo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anticipo.Anticipo), args.Error(1)
}

func (m *MockRepository) FindPendientesByOrden(ctx context.Context, numeroOrden string) ([]anticipo.Anticipo, error) {
	args := m.Called(ctx, numeroOrden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]anticipo.Anticipo), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SolicitarAutorizacion(ctx context.Context, cmd anticipo.SolicitudAutorizacionCmd) error {
	return m.Called(ctx, cmd).Error(0)
}

// ==================== Helpers ====================

func intPtr(v int) *int { return &v }

func lateAnticipo() anticipo.Anticipo {
	return anticipo.Anticipo{
		ID:                   uuid.New(),
		NumeroOrden:          "OC-1001",
		Monto:                decimal.NewFromInt(1500),
		TipoPago:             anticipo.TipoPagoCheque,
		EstadoLiquidacion:    anticipo.EstadoNoLiquidado,
		DiasTranscurridos:    intPtr(15),
		DiasPermitidos:       intPtr(10),
		RequiereAutorizacion: true,
		FechaDesembolso:      time.Now().AddDate(0, 0, -20),
	}
}

const justificacion = "el proveedor entregó la factura tarde"

// ==================== Tests ====================

func TestService_ListPendientes(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(ServiceConfig{Repo: repo, Gateway: new(MockGateway)})

	open := lateAnticipo()
	open.UltimoSeguimiento = &anticipo.Seguimiento{Estado: "En Revisión", Fecha: time.Now()}
	onTime := lateAnticipo()
	onTime.DiasTranscurridos = intPtr(2)
	repo.On("FindPendientesByOrden", ctx, "OC-1001").Return([]anticipo.Anticipo{lateAnticipo(), open, onTime}, nil)

	list, err := svc.ListPendientes(ctx, "OC-1001")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.True(t, list[0].IsLate)
	assert.True(t, list[0].CanRequestAuthorization)

	assert.True(t, list[1].HasOpenRequest)
	assert.False(t, list[1].CanRequestAuthorization)

	assert.False(t, list[2].IsLate)
	assert.False(t, list[2].CanRequestAuthorization)
}

func TestService_ListPendientes_CustomVocabulary(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(ServiceConfig{Repo: repo, OpenRequestVocabulary: []string{"abierta"}})

	a := lateAnticipo()
	a.UltimoSeguimiento = &anticipo.Seguimiento{Estado: "pendiente"}
	repo.On("FindPendientesByOrden", ctx, "OC-1001").Return([]anticipo.Anticipo{a}, nil)

	list, err := svc.ListPendientes(ctx, "OC-1001")
	require.NoError(t, err)
	assert.False(t, list[0].HasOpenRequest)
	assert.True(t, list[0].CanRequestAuthorization)
}

func TestService_SolicitarAutorizacion(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("emits the command and returns the refreshed list", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := NewService(ServiceConfig{Repo: repo, Gateway: gateway})

		a := lateAnticipo()
		refreshed := a
		refreshed.UltimoSeguimiento = &anticipo.Seguimiento{Estado: "pendiente", Fecha: time.Now()}
		repo.On("FindByID", ctx, a.ID).Return(&a, nil)
		gateway.On("SolicitarAutorizacion", ctx, mock.MatchedBy(func(cmd anticipo.SolicitudAutorizacionCmd) bool {
			return cmd.IDSolicitud == a.ID &&
				cmd.Tipo == anticipo.TipoSolicitudAutorizacion &&
				cmd.Justificacion == justificacion &&
				cmd.SolicitadoPor != nil && *cmd.SolicitadoPor == user
		})).Return(nil)
		repo.On("FindPendientesByOrden", ctx, a.NumeroOrden).Return([]anticipo.Anticipo{refreshed}, nil)

		list, err := svc.SolicitarAutorizacion(ctx, a.ID, &user, SolicitarAutorizacionRequest{Justificacion: "  " + justificacion + " "})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].HasOpenRequest)
		assert.False(t, list[0].CanRequestAuthorization)
		gateway.AssertExpectations(t)
	})

	t.Run("19 characters are rejected without any call", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := NewService(ServiceConfig{Repo: repo, Gateway: gateway})

		_, err := svc.SolicitarAutorizacion(ctx, uuid.New(), &user, SolicitarAutorizacionRequest{Justificacion: "1234567890123456789"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "JUSTIFICATION_TOO_SHORT", de.Code)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		gateway.AssertNotCalled(t, "SolicitarAutorizacion", mock.Anything, mock.Anything)
	})

	t.Run("open request blocks a second one", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := NewService(ServiceConfig{Repo: repo, Gateway: gateway})

		a := lateAnticipo()
		a.UltimoSeguimiento = &anticipo.Seguimiento{Estado: "Pendiente"}
		repo.On("FindByID", ctx, a.ID).Return(&a, nil)

		_, err := svc.SolicitarAutorizacion(ctx, a.ID, &user, SolicitarAutorizacionRequest{Justificacion: justificacion})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_STATE", de.Code)
		gateway.AssertNotCalled(t, "SolicitarAutorizacion", mock.Anything, mock.Anything)
	})

	t.Run("gateway failure is not hidden", func(t *testing.T) {
		repo := new(MockRepository)
		gateway := new(MockGateway)
		svc := NewService(ServiceConfig{Repo: repo, Gateway: gateway})

		a := lateAnticipo()
		repo.On("FindByID", ctx, a.ID).Return(&a, nil)
		gateway.On("SolicitarAutorizacion", ctx, mock.Anything).Return(errors.New("timeout"))

		_, err := svc.SolicitarAutorizacion(ctx, a.ID, &user, SolicitarAutorizacionRequest{Justificacion: justificacion})
		require.Error(t, err)
		repo.AssertNotCalled(t, "FindPendientesByOrden", mock.Anything, mock.Anything)
	})
}
