package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSolicitud(t *testing.T, numero string, facturaID uuid.UUID, monto string) *transferencia.Solicitud {
	t.Helper()
	s, err := transferencia.NuevaSolicitud(uuid.New(), numero, transferencia.Datos{
		Pares: []transferencia.Par{
			{FacturaID: facturaID, DetalleID: uuid.New()},
			{FacturaID: facturaID, DetalleID: uuid.New()},
		},
		CuentaBancariaID: uuid.New(),
		AreaAprobacionID: uuid.New(),
		Monto:            decimal.RequireFromString(monto),
		Concepto:         "Pago a proveedor",
	}, decimal.NewFromInt(100000))
	require.NoError(t, err)
	return s
}

func TestGormSolicitudTransferenciaRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSolicitudTransferenciaRepository(newSQLiteDB(t))
	facturaID := uuid.New()

	s := newSolicitud(t, "TRF-202409-00001", facturaID, "1500")
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRF-202409-00001", got.Numero)
	assert.Equal(t, transferencia.EstadoPendienteAprobacion, got.Estado)
	assert.Equal(t, s.Pares, got.Pares)
	assert.Equal(t, s.CreatedBy, got.CreatedBy)
	assert.Nil(t, got.Comprobante)
	assert.True(t, got.MontoTotal.Equal(decimal.NewFromInt(1500)))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSolicitudTransferenciaRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSolicitudTransferenciaRepository(newSQLiteDB(t))
	user := uuid.New()

	s := newSolicitud(t, "TRF-202409-00001", uuid.New(), "1500")
	require.NoError(t, repo.Save(ctx, s))

	t.Run("edit replaces the detail pairs", func(t *testing.T) {
		require.NoError(t, s.Rechazar(user, "La cuenta bancaria no corresponde"))
		require.NoError(t, repo.SaveWithLock(ctx, s))

		datos := s.Datos()
		datos.Pares = []transferencia.Par{{FacturaID: uuid.New(), DetalleID: uuid.New()}}
		require.NoError(t, s.Editar(user, datos))
		require.NoError(t, repo.SaveWithLock(ctx, s))

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, datos.Pares, got.Pares)
		assert.Equal(t, transferencia.EstadoPendienteAprobacion, got.Estado)
		assert.Empty(t, got.MotivoRechazo)
		assert.Equal(t, s.Version, got.Version)
	})

	t.Run("receipt round trip", func(t *testing.T) {
		require.NoError(t, s.Aprobar(user, ""))
		require.NoError(t, repo.SaveWithLock(ctx, s))

		archivo := &transferencia.Archivo{Nombre: "comprobante.pdf", MimeType: "application/pdf", Tamano: 2048, StorageKey: "comprobantes/x.pdf"}
		require.NoError(t, s.RegistrarComprobante(user, transferencia.ComprobanteDatos{
			NumeroRegistro:     "REG-1",
			FechaTransferencia: time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC),
		}, archivo, transferencia.DefaultArchivoRules()))
		require.NoError(t, repo.SaveWithLock(ctx, s))

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, transferencia.EstadoCompletada, got.Estado)
		require.NotNil(t, got.Comprobante)
		assert.Equal(t, "REG-1", got.Comprobante.NumeroRegistro)
		assert.Equal(t, user, got.Comprobante.RegistradoPor)
		require.NotNil(t, got.Comprobante.Archivo)
		assert.Equal(t, "comprobantes/x.pdf", got.Comprobante.Archivo.StorageKey)
	})

	t.Run("stale copy conflicts", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)

		// not incremented, so the stored version is not the expected predecessor
		err = repo.SaveWithLock(ctx, stale)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VERSION_CONFLICT", domainErr.Code)
	})
}

func TestGormSolicitudTransferenciaRepository_SaveCompletion(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormSolicitudTransferenciaRepository(db)
	facturas := NewGormFacturaRepository(db)
	user := uuid.New()

	complete := func(t *testing.T, s *transferencia.Solicitud) {
		t.Helper()
		require.NoError(t, s.RegistrarComprobante(user, transferencia.ComprobanteDatos{
			NumeroRegistro:     "REG-1",
			FechaTransferencia: time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC),
		}, nil, transferencia.DefaultArchivoRules()))
	}

	t.Run("saves the request and the invoices together", func(t *testing.T) {
		f := newFactura(t, "DTE-C1", "1000")
		require.NoError(t, facturas.Save(ctx, f))
		s := newSolicitud(t, "TRF-202409-00001", f.ID, "600")
		require.NoError(t, repo.Save(ctx, s))
		require.NoError(t, s.Aprobar(user, ""))
		require.NoError(t, repo.SaveWithLock(ctx, s))

		complete(t, s)
		f.AplicarTransferencia(decimal.NewFromInt(600))
		require.NoError(t, repo.SaveCompletion(ctx, s, []*liquidacion.Factura{f}))

		gotS, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, transferencia.EstadoCompletada, gotS.Estado)
		gotF, err := facturas.FindByID(ctx, f.ID)
		require.NoError(t, err)
		assert.True(t, gotF.MontoTransferido.Equal(decimal.NewFromInt(600)))
		assert.Equal(t, f.Version, gotF.Version)
	})

	t.Run("stale invoice rolls back the request", func(t *testing.T) {
		f := newFactura(t, "DTE-C2", "1000")
		require.NoError(t, facturas.Save(ctx, f))
		s := newSolicitud(t, "TRF-202409-00002", f.ID, "400")
		require.NoError(t, repo.Save(ctx, s))
		require.NoError(t, s.Aprobar(user, ""))
		require.NoError(t, repo.SaveWithLock(ctx, s))

		stale, err := facturas.FindByID(ctx, f.ID)
		require.NoError(t, err)
		f.AplicarTransferencia(decimal.NewFromInt(100))
		require.NoError(t, facturas.SaveWithLock(ctx, f))

		complete(t, s)
		stale.AplicarTransferencia(decimal.NewFromInt(400))
		err = repo.SaveCompletion(ctx, s, []*liquidacion.Factura{stale})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VERSION_CONFLICT", domainErr.Code)

		gotS, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, transferencia.EstadoAprobada, gotS.Estado)
		assert.Nil(t, gotS.Comprobante)
		gotF, err := facturas.FindByID(ctx, f.ID)
		require.NoError(t, err)
		assert.True(t, gotF.MontoTransferido.Equal(decimal.NewFromInt(100)))
	})
}

func TestGormSolicitudTransferenciaRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSolicitudTransferenciaRepository(newSQLiteDB(t))
	facturaA, facturaB := uuid.New(), uuid.New()
	approver := uuid.New()

	a1 := newSolicitud(t, "TRF-202409-00001", facturaA, "100")
	a2 := newSolicitud(t, "TRF-202409-00002", facturaA, "200")
	b1 := newSolicitud(t, "TRF-202409-00003", facturaB, "300")
	require.NoError(t, a2.Aprobar(approver, "ok"))
	for _, s := range []*transferencia.Solicitud{a1, a2, b1} {
		require.NoError(t, repo.Save(ctx, s))
	}

	filter := func(mod func(*transferencia.Filter)) transferencia.Filter {
		f := transferencia.Filter{Filter: shared.DefaultFilter()}
		mod(&f)
		return f
	}

	t.Run("by invoice", func(t *testing.T) {
		got, total, err := repo.FindAll(ctx, filter(func(f *transferencia.Filter) { f.FacturaID = &facturaA }))
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, got, 2)
	})

	t.Run("by state", func(t *testing.T) {
		estado := transferencia.EstadoAprobada
		got, total, err := repo.FindAll(ctx, filter(func(f *transferencia.Filter) { f.Estado = &estado }))
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, a2.ID, got[0].ID)
		assert.Len(t, got[0].Pares, 2)
	})

	t.Run("pagination keeps the total", func(t *testing.T) {
		got, total, err := repo.FindAll(ctx, filter(func(f *transferencia.Filter) {
			f.PageSize = 2
			f.Page = 2
			f.OrderBy = "numero"
			f.OrderDir = "asc"
		}))
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, got, 1)
		assert.Equal(t, "TRF-202409-00003", got[0].Numero)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		_, total, err := repo.FindAll(ctx, filter(func(f *transferencia.Filter) { f.OrderBy = "1; DROP TABLE x" }))
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("count by state", func(t *testing.T) {
		counts, err := repo.CountByEstado(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[string(transferencia.EstadoPendienteAprobacion)])
		assert.Equal(t, int64(1), counts[string(transferencia.EstadoAprobada)])
	})
}

func TestGormSolicitudTransferenciaRepository_NextNumero(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSolicitudTransferenciaRepository(newSQLiteDB(t))
	repo.now = func() time.Time { return time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC) }

	numero, err := repo.NextNumero(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TRF-202409-00001", numero)

	require.NoError(t, repo.Save(ctx, newSolicitud(t, numero, uuid.New(), "10")))
	require.NoError(t, repo.Save(ctx, newSolicitud(t, "TRF-202408-00007", uuid.New(), "10")))

	numero, err = repo.NextNumero(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TRF-202409-00002", numero)
}
