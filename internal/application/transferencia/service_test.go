package transferencia

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc         *Service
	solicitudes *memSolicitudes
	facturas    *memFacturas
	storage     *MockStorage
	f1, f2      *liquidacion.Factura
	d1, d2      uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	facturas := &memFacturas{rows: make(map[uuid.UUID]liquidacion.Factura)}
	fx := &serviceFixture{
		solicitudes: newMemSolicitudes(facturas),
		facturas:    facturas,
		storage:     new(MockStorage),
	}
	detalles := &memDetalles{rows: make(map[uuid.UUID]liquidacion.Detalle)}

	var err error
	fx.f1, err = liquidacion.NewFactura("DTE-1", time.Now().AddDate(0, 0, -5), decimal.NewFromInt(500), "GTQ")
	require.NoError(t, err)
	fx.f2, err = liquidacion.NewFactura("DTE-2", time.Now().AddDate(0, 0, -5), decimal.NewFromInt(300), "GTQ")
	require.NoError(t, err)
	fx.facturas.rows[fx.f1.ID] = *fx.f1
	fx.facturas.rows[fx.f2.ID] = *fx.f2

	ctx := context.Background()
	d := liquidacion.Detalle{FacturaID: fx.f1.ID, Monto: decimal.NewFromInt(500), FormaPago: liquidacion.FormaPagoTransferencia}
	require.NoError(t, detalles.Create(ctx, &d))
	fx.d1 = *d.ID
	d = liquidacion.Detalle{FacturaID: fx.f2.ID, Monto: decimal.NewFromInt(300), FormaPago: liquidacion.FormaPagoTransferencia}
	require.NoError(t, detalles.Create(ctx, &d))
	fx.d2 = *d.ID

	fx.svc = NewService(ServiceConfig{
		Repo:        fx.solicitudes,
		FacturaRepo: fx.facturas,
		DetalleRepo: detalles,
		Storage:     fx.storage,
	})
	return fx
}

func (fx *serviceFixture) request(monto int64) SolicitudRequest {
	return SolicitudRequest{
		Pares: []transferencia.Par{
			{FacturaID: fx.f1.ID, DetalleID: fx.d1},
			{FacturaID: fx.f2.ID, DetalleID: fx.d2},
		},
		CuentaBancariaID: uuid.New(),
		AreaAprobacionID: uuid.New(),
		Monto:            decimal.NewFromInt(monto),
		Concepto:         "pago a proveedores",
	}
}

func comprobante() ComprobanteRequest {
	return ComprobanteRequest{
		NumeroRegistro:     "TRF-7781",
		FechaTransferencia: time.Now(),
		ReferenciaBancaria: "BI-0099",
	}
}

func pdf(size int) *ArchivoUpload {
	return &ArchivoUpload{Nombre: "comprobante.pdf", MimeType: "application/pdf", Data: make([]byte, size)}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t)
	creador, aprobador := uuid.New(), uuid.New()

	created, err := fx.svc.Create(ctx, creador, fx.request(600))
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoPendienteAprobacion, created.Estado)
	assert.Equal(t, "ST-000001", created.Numero)
	assert.Equal(t, &creador, created.CreatedBy)

	_, err = fx.svc.Rechazar(ctx, created.ID, aprobador, RechazarRequest{Comentario: "corto"})
	var ve shared.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, transferencia.EstadoPendienteAprobacion, fx.solicitudes.stored(created.ID).Estado)

	rejected, err := fx.svc.Rechazar(ctx, created.ID, aprobador, RechazarRequest{Comentario: "falta la cuenta destino"})
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoRechazada, rejected.Estado)

	edited, err := fx.svc.Update(ctx, created.ID, creador, fx.request(700))
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoPendienteAprobacion, edited.Estado)
	assert.Empty(t, edited.MotivoRechazo)
	assert.True(t, decimal.NewFromInt(700).Equal(edited.MontoTotal))

	approved, err := fx.svc.Aprobar(ctx, created.ID, aprobador, AprobarRequest{})
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoAprobada, approved.Estado)

	fx.storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "application/pdf").Return(nil).Once()
	fx.storage.On("GenerateDownloadURL", mock.Anything, mock.AnythingOfType("string"), time.Hour).
		Return("https://files.local/comprobante.pdf", time.Now().Add(time.Hour), nil)

	completed, err := fx.svc.RegistrarComprobante(ctx, created.ID, aprobador, comprobante(), pdf(9<<20))
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoCompletada, completed.Estado)
	require.NotNil(t, completed.Comprobante)
	require.NotNil(t, completed.Comprobante.Archivo)
	assert.Equal(t, int64(9<<20), completed.Comprobante.Archivo.Tamano)
	assert.Equal(t, "https://files.local/comprobante.pdf", completed.Comprobante.DownloadURL)

	f1, _ := fx.facturas.FindByID(ctx, fx.f1.ID)
	f2, _ := fx.facturas.FindByID(ctx, fx.f2.ID)
	assert.True(t, decimal.NewFromInt(500).Equal(f1.MontoTransferido))
	assert.True(t, decimal.NewFromInt(200).Equal(f2.MontoTransferido))
	assert.True(t, decimal.NewFromInt(100).Equal(f2.MontoPendientePago()))

	corrected := comprobante()
	corrected.NumeroRegistro = "TRF-7782"
	updated, err := fx.svc.EditarComprobante(ctx, created.ID, aprobador, corrected, nil)
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoCompletada, updated.Estado)
	assert.Equal(t, "TRF-7782", updated.Comprobante.NumeroRegistro)
	assert.NotNil(t, updated.Comprobante.Archivo)
	assert.NotNil(t, updated.Comprobante.EditadoEn)

	_, err = fx.svc.Aprobar(ctx, created.ID, aprobador, AprobarRequest{})
	requireCode(t, err, "INVALID_STATE")
	fx.storage.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("amount over pending payment", func(t *testing.T) {
		fx := newServiceFixture(t)
		_, err := fx.svc.Create(ctx, uuid.New(), fx.request(801))
		requireCode(t, err, "AMOUNT_EXCEEDS_AVAILABLE")
	})

	t.Run("detail from another invoice", func(t *testing.T) {
		fx := newServiceFixture(t)
		req := fx.request(100)
		req.Pares[1].DetalleID = fx.d1

		_, err := fx.svc.Create(ctx, uuid.New(), req)
		var ve shared.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "pares[1]", ve[0].Field)
		assert.Equal(t, "MISMATCH", ve[0].Code)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		fx := newServiceFixture(t)
		req := fx.request(100)
		req.Pares[0].FacturaID = uuid.New()

		_, err := fx.svc.Create(ctx, uuid.New(), req)
		var ve shared.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "NOT_FOUND", ve[0].Code)
	})

	t.Run("structural errors before any lookup", func(t *testing.T) {
		fx := newServiceFixture(t)
		_, err := fx.svc.Create(ctx, uuid.New(), SolicitudRequest{})
		var ve shared.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve, 4)
	})
}

func TestService_Update_SkipsPendingBound(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t)
	user := uuid.New()

	created, err := fx.svc.Create(ctx, user, fx.request(800))
	require.NoError(t, err)
	_, err = fx.svc.Rechazar(ctx, created.ID, user, RechazarRequest{Comentario: "monto por revisar"})
	require.NoError(t, err)

	edited, err := fx.svc.Update(ctx, created.ID, user, fx.request(900))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(900).Equal(edited.MontoTotal))

	_, err = fx.svc.Update(ctx, created.ID, user, fx.request(900))
	requireCode(t, err, "INVALID_STATE")
}

func TestService_Cancelar(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t)
	user := uuid.New()

	created, err := fx.svc.Create(ctx, user, fx.request(100))
	require.NoError(t, err)
	_, err = fx.svc.Aprobar(ctx, created.ID, user, AprobarRequest{Comentario: "ok"})
	require.NoError(t, err)

	_, err = fx.svc.Cancelar(ctx, created.ID, user, CancelarRequest{Motivo: "   duplicada "})
	var ve shared.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "motivo", ve[0].Field)

	cancelled, err := fx.svc.Cancelar(ctx, created.ID, user, CancelarRequest{Motivo: "solicitud duplicada"})
	require.NoError(t, err)
	assert.Equal(t, transferencia.EstadoCancelada, cancelled.Estado)
	assert.Equal(t, "solicitud duplicada", cancelled.MotivoCancelacion)

	_, err = fx.svc.Cancelar(ctx, created.ID, user, CancelarRequest{Motivo: "solicitud duplicada"})
	requireCode(t, err, "INVALID_STATE")
}

func TestService_RegistrarComprobante_File(t *testing.T) {
	ctx := context.Background()

	approvedFixture := func(t *testing.T) (*serviceFixture, uuid.UUID) {
		fx := newServiceFixture(t)
		user := uuid.New()
		created, err := fx.svc.Create(ctx, user, fx.request(100))
		require.NoError(t, err)
		_, err = fx.svc.Aprobar(ctx, created.ID, user, AprobarRequest{})
		require.NoError(t, err)
		return fx, created.ID
	}

	t.Run("11 MB rejected before upload", func(t *testing.T) {
		fx, id := approvedFixture(t)
		_, err := fx.svc.RegistrarComprobante(ctx, id, uuid.New(), comprobante(), pdf(11<<20))
		requireCode(t, err, "FILE_TOO_LARGE")
		fx.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, transferencia.EstadoAprobada, fx.solicitudes.stored(id).Estado)
	})

	t.Run("docx rejected before upload", func(t *testing.T) {
		fx, id := approvedFixture(t)
		docx := &ArchivoUpload{
			Nombre:   "comprobante.docx",
			MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Data:     []byte("x"),
		}
		_, err := fx.svc.RegistrarComprobante(ctx, id, uuid.New(), comprobante(), docx)
		requireCode(t, err, "INVALID_FILE_TYPE")
		fx.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing numero registro", func(t *testing.T) {
		fx, id := approvedFixture(t)
		req := comprobante()
		req.NumeroRegistro = " "
		_, err := fx.svc.RegistrarComprobante(ctx, id, uuid.New(), req, nil)
		var ve shared.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "numero_registro_transferencia", ve[0].Field)
	})

	t.Run("pending request does not upload", func(t *testing.T) {
		fx := newServiceFixture(t)
		created, err := fx.svc.Create(ctx, uuid.New(), fx.request(100))
		require.NoError(t, err)

		_, err = fx.svc.RegistrarComprobante(ctx, created.ID, uuid.New(), comprobante(), pdf(1024))
		requireCode(t, err, "INVALID_STATE")
		fx.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed save removes the uploaded file", func(t *testing.T) {
		fx, id := approvedFixture(t)
		var key string
		fx.storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "application/pdf").
			Run(func(args mock.Arguments) { key = args.String(1) }).Return(nil).Once()
		fx.storage.On("DeleteObject", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
		fx.solicitudes.saveErr = errors.New("db down")

		_, err := fx.svc.RegistrarComprobante(ctx, id, uuid.New(), comprobante(), pdf(1024))
		require.Error(t, err)
		fx.storage.AssertCalled(t, "DeleteObject", mock.Anything, key)
		assert.Equal(t, transferencia.EstadoAprobada, fx.solicitudes.stored(id).Estado)
		assert.Nil(t, fx.solicitudes.stored(id).Comprobante)
	})

	t.Run("invoice conflict keeps the request approved", func(t *testing.T) {
		fx, id := approvedFixture(t)
		fx.storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, "application/pdf").Return(nil).Once()
		fx.storage.On("DeleteObject", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
		fx.facturas.lockErr = shared.ErrConcurrencyConflict

		_, err := fx.svc.RegistrarComprobante(ctx, id, uuid.New(), comprobante(), pdf(1024))
		require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		fx.storage.AssertNumberOfCalls(t, "DeleteObject", 1)
		assert.Equal(t, transferencia.EstadoAprobada, fx.solicitudes.stored(id).Estado)
		assert.Nil(t, fx.solicitudes.stored(id).Comprobante)
		f1, err := fx.facturas.FindByID(ctx, fx.f1.ID)
		require.NoError(t, err)
		assert.True(t, f1.MontoTransferido.IsZero())
	})

	t.Run("without file", func(t *testing.T) {
		fx, id := approvedFixture(t)
		resp, err := fx.svc.RegistrarComprobante(ctx, id, uuid.New(), comprobante(), nil)
		require.NoError(t, err)
		assert.Equal(t, transferencia.EstadoCompletada, resp.Estado)
		assert.Nil(t, resp.Comprobante.Archivo)
	})
}

func TestService_EditarComprobante_ReplacesFile(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t)
	user := uuid.New()

	created, err := fx.svc.Create(ctx, user, fx.request(100))
	require.NoError(t, err)
	_, err = fx.svc.Aprobar(ctx, created.ID, user, AprobarRequest{})
	require.NoError(t, err)

	var keys []string
	fx.storage.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = append(keys, args.String(1)) }).Return(nil)
	fx.storage.On("GenerateDownloadURL", mock.Anything, mock.Anything, mock.Anything).
		Return("https://files.local/x", time.Now(), nil)
	fx.storage.On("DeleteObject", mock.Anything, mock.Anything).Return(nil)

	_, err = fx.svc.RegistrarComprobante(ctx, created.ID, user, comprobante(), pdf(10))
	require.NoError(t, err)
	png := &ArchivoUpload{Nombre: "comprobante.png", MimeType: "image/png", Data: make([]byte, 10)}
	resp, err := fx.svc.EditarComprobante(ctx, created.ID, user, comprobante(), png)
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[1], resp.Comprobante.Archivo.StorageKey)
	fx.storage.AssertCalled(t, "DeleteObject", mock.Anything, keys[0])
	fx.storage.AssertNumberOfCalls(t, "DeleteObject", 1)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t)
	user := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := fx.svc.Create(ctx, user, fx.request(100))
		require.NoError(t, err)
	}

	page, err := fx.svc.List(ctx, ListRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.Page)
}
