package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
)

func setupDetalleRouter(svc *MockDetalleService) http.Handler {
	h := NewDetalleHandler(svc)
	r := newTestRouter()
	r.GET("/facturas/:id/detalles", h.List)
	r.POST("/facturas/:id/detalles", h.Create)
	r.GET("/detalles/:id", h.GetByID)
	r.PUT("/detalles/:id", h.Update)
	r.DELETE("/detalles/:id", h.Delete)
	r.POST("/detalles/:id/copiar", h.Copy)
	return r
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDetalleHandler_List(t *testing.T) {
	svc := new(MockDetalleService)
	facturaID := uuid.New()
	svc.On("List", mock.Anything, facturaID).Return(&liquidacionapp.DetalleListResponse{
		Detalles: []liquidacionapp.DetalleResponse{{FacturaID: facturaID, Monto: decimal.NewFromInt(400)}},
		Resumen: liquidacion.Resumen{
			Total:        decimal.NewFromInt(400),
			MontoFactura: decimal.NewFromInt(1000),
			Diferencia:   decimal.NewFromInt(600),
			Completitud:  liquidacion.CompletitudIncompleto,
		},
	}, nil)

	w := httptest.NewRecorder()
	setupDetalleRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/facturas/"+facturaID.String()+"/detalles", nil))

	require.Equal(t, http.StatusOK, w.Code)
	datos := decodeEnvelope(t, w).Datos.(map[string]any)
	assert.Len(t, datos["detalles"], 1)
	resumen := datos["resumen"].(map[string]any)
	assert.Equal(t, "600", resumen["diferencia"])
}

func TestDetalleHandler_Create(t *testing.T) {
	facturaID := uuid.New()
	path := "/facturas/" + facturaID.String() + "/detalles"

	t.Run("created", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Create", mock.Anything, facturaID, mock.MatchedBy(func(req liquidacionapp.CreateDetalleRequest) bool {
			return req.Monto.Equal(decimal.RequireFromString("150.50")) && req.Descripcion == "Flete"
		})).Return(&liquidacionapp.DetalleResponse{ID: uuid.New(), FacturaID: facturaID}, nil)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, path, `{"monto":"150.50","descripcion":"Flete"}`))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "success", decodeEnvelope(t, w).Respuesta)
		svc.AssertExpectations(t)
	})

	t.Run("amount above the remaining budget", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Create", mock.Anything, facturaID, mock.Anything).
			Return(nil, shared.NewDomainError("AMOUNT_EXCEEDS_AVAILABLE", "El monto excede el disponible de 100.00"))

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, path, `{"monto":"5000"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "AMOUNT_EXCEEDS_AVAILABLE", env.Codigo)
		assert.Equal(t, "El monto excede el disponible de 100.00", env.Mensaje)
	})

	t.Run("field errors become a message list", func(t *testing.T) {
		svc := new(MockDetalleService)
		var errs shared.ValidationErrors
		errs.Add("monto", "INVALID_AMOUNT", "El monto debe ser mayor a cero")
		errs.Add("banco", "REQUIRED", "El banco es obligatorio")
		svc.On("Create", mock.Anything, facturaID, mock.Anything).Return(nil, errs)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, path, `{"monto":"0"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "fail", env.Respuesta)
		assert.Equal(t, []any{"El monto debe ser mayor a cero", "El banco es obligatorio"}, env.Mensaje)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockDetalleService)
		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, path, `{"monto":`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BAD_REQUEST", decodeEnvelope(t, w).Codigo)
	})
}

func TestDetalleHandler_UpdateDelete(t *testing.T) {
	id := uuid.New()

	t.Run("update", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Update", mock.Anything, id, mock.MatchedBy(func(req liquidacionapp.UpdateDetalleRequest) bool {
			return req.Descripcion != nil && *req.Descripcion == "Nueva"
		})).Return(&liquidacionapp.DetalleResponse{ID: id}, nil)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPut, "/detalles/"+id.String(), `{"descripcion":"Nueva"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("delete missing", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Delete", mock.Anything, id).Return(shared.ErrNotFound)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/detalles/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "info", env.Respuesta)
		assert.Equal(t, msgDetalleNoEncontrado, env.Mensaje)
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Delete", mock.Anything, id).Return(nil)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/detalles/"+id.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Detalle eliminado", decodeEnvelope(t, w).Mensaje)
	})
}

func TestDetalleHandler_Copy(t *testing.T) {
	id := uuid.New()

	t.Run("without body", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Copy", mock.Anything, id, liquidacionapp.CopyDetalleRequest{}).
			Return(&liquidacionapp.DetalleResponse{ID: uuid.New()}, nil)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/detalles/"+id.String()+"/copiar", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("with overrides", func(t *testing.T) {
		svc := new(MockDetalleService)
		svc.On("Copy", mock.Anything, id, mock.MatchedBy(func(req liquidacionapp.CopyDetalleRequest) bool {
			return req.Marcar && req.Monto != nil && req.Monto.Equal(decimal.NewFromInt(50))
		})).Return(&liquidacionapp.DetalleResponse{ID: uuid.New()}, nil)

		w := httptest.NewRecorder()
		setupDetalleRouter(svc).ServeHTTP(w, jsonRequest(http.MethodPost, "/detalles/"+id.String()+"/copiar",
			`{"monto":"50","marcar_copia":true}`))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})
}
