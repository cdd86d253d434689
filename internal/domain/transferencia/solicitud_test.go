package transferencia

import (
	"strings"
	"testing"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDatos() Datos {
	return Datos{
		Pares:            []Par{{FacturaID: uuid.New(), DetalleID: uuid.New()}},
		CuentaBancariaID: uuid.New(),
		AreaAprobacionID: uuid.New(),
		Monto:            decimal.NewFromInt(750),
		Concepto:         "Pago a proveedor",
	}
}

func validComprobante() ComprobanteDatos {
	return ComprobanteDatos{
		NumeroRegistro:     "REG-0001",
		FechaTransferencia: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		ReferenciaBancaria: "BI-778812",
	}
}

func createTestSolicitud(t *testing.T) *Solicitud {
	s, err := NuevaSolicitud(uuid.New(), "TR-000001", validDatos(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	return s
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var ve shared.ValidationErrors
	require.ErrorAs(t, err, &ve)
	for _, fe := range ve {
		if fe.Field == field {
			return
		}
	}
	t.Fatalf("expected field error on %q, got %v", field, ve)
}

// ============================================
// NuevaSolicitud Tests
// ============================================

func TestNuevaSolicitud(t *testing.T) {
	t.Run("creates request pending approval", func(t *testing.T) {
		creador := uuid.New()
		datos := validDatos()
		s, err := NuevaSolicitud(creador, "TR-000001", datos, decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.Equal(t, EstadoPendienteAprobacion, s.Estado)
		assert.Equal(t, &creador, s.CreatedBy)
		assert.Equal(t, datos.Pares, s.Pares)
		assert.True(t, datos.Monto.Equal(s.MontoTotal))
		require.Len(t, s.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeSolicitudCreada, s.GetDomainEvents()[0].EventType())
	})

	t.Run("amount equal to pending is accepted", func(t *testing.T) {
		_, err := NuevaSolicitud(uuid.New(), "TR-1", validDatos(), decimal.NewFromInt(750))
		assert.NoError(t, err)
	})

	t.Run("amount over pending is rejected", func(t *testing.T) {
		_, err := NuevaSolicitud(uuid.New(), "TR-1", validDatos(), decimal.NewFromInt(749))
		requireCode(t, err, "AMOUNT_EXCEEDS_AVAILABLE")
	})

	t.Run("requires at least one pair", func(t *testing.T) {
		d := validDatos()
		d.Pares = nil
		_, err := NuevaSolicitud(uuid.New(), "TR-1", d, decimal.NewFromInt(1000))
		requireFieldError(t, err, "pares")
	})

	t.Run("requires bank account and area", func(t *testing.T) {
		d := validDatos()
		d.CuentaBancariaID = uuid.Nil
		d.AreaAprobacionID = uuid.Nil
		_, err := NuevaSolicitud(uuid.New(), "TR-1", d, decimal.NewFromInt(1000))
		requireFieldError(t, err, "cuenta_bancaria_id")
		requireFieldError(t, err, "area_aprobacion_id")
	})

	t.Run("requires positive amount", func(t *testing.T) {
		d := validDatos()
		d.Monto = decimal.Zero
		_, err := NuevaSolicitud(uuid.New(), "TR-1", d, decimal.NewFromInt(1000))
		requireFieldError(t, err, "monto_total_solicitud")
	})

	t.Run("rejects duplicated pairs", func(t *testing.T) {
		d := validDatos()
		d.Pares = append(d.Pares, d.Pares[0])
		_, err := NuevaSolicitud(uuid.New(), "TR-1", d, decimal.NewFromInt(1000))
		requireFieldError(t, err, "pares[1]")
	})
}

// ============================================
// Lifecycle Tests
// ============================================

func TestSolicitud_LifecycleRoundTrip(t *testing.T) {
	user := uuid.New()
	s := createTestSolicitud(t)
	assert.Equal(t, EstadoPendienteAprobacion, s.Estado)

	require.NoError(t, s.Rechazar(user, "motivo de al menos diez"))
	assert.Equal(t, EstadoRechazada, s.Estado)
	assert.Equal(t, "motivo de al menos diez", s.MotivoRechazo)

	// the pending-amount bound is not re-applied on edit
	d := s.Datos()
	d.Monto = decimal.NewFromInt(5000)
	require.NoError(t, s.Editar(user, d))
	assert.Equal(t, EstadoPendienteAprobacion, s.Estado)
	assert.True(t, decimal.NewFromInt(5000).Equal(s.MontoTotal))
	assert.Empty(t, s.MotivoRechazo)

	require.NoError(t, s.Aprobar(user, ""))
	assert.Equal(t, EstadoAprobada, s.Estado)

	require.NoError(t, s.RegistrarComprobante(user, validComprobante(), nil, DefaultArchivoRules()))
	assert.Equal(t, EstadoCompletada, s.Estado)
	require.NotNil(t, s.Comprobante)
	assert.Equal(t, "REG-0001", s.Comprobante.NumeroRegistro)

	err := s.Aprobar(user, "")
	requireCode(t, err, "INVALID_STATE")
	assert.Equal(t, EstadoCompletada, s.Estado)

	events := s.GetDomainEvents()
	require.Len(t, events, 5)
	assert.Equal(t, EventTypeSolicitudCompletada, events[4].EventType())
}

func TestSolicitud_Editar(t *testing.T) {
	t.Run("only from rejected", func(t *testing.T) {
		s := createTestSolicitud(t)
		err := s.Editar(uuid.New(), validDatos())
		requireCode(t, err, "INVALID_STATE")
	})

	t.Run("re-applies structural rules", func(t *testing.T) {
		s := createTestSolicitud(t)
		require.NoError(t, s.Rechazar(uuid.New(), "falta documentación"))
		d := validDatos()
		d.Monto = decimal.NewFromInt(-1)
		err := s.Editar(uuid.New(), d)
		requireFieldError(t, err, "monto_total_solicitud")
		assert.Equal(t, EstadoRechazada, s.Estado)
	})
}

func TestSolicitud_Rechazar(t *testing.T) {
	t.Run("requires a reason of ten characters", func(t *testing.T) {
		s := createTestSolicitud(t)
		err := s.Rechazar(uuid.New(), "  corto   ")
		requireFieldError(t, err, "comentario")
		assert.Equal(t, EstadoPendienteAprobacion, s.Estado)
	})

	t.Run("cannot reject approved request", func(t *testing.T) {
		s := createTestSolicitud(t)
		require.NoError(t, s.Aprobar(uuid.New(), "ok"))
		err := s.Rechazar(uuid.New(), "motivo de al menos diez")
		requireCode(t, err, "INVALID_STATE")
	})
}

func TestSolicitud_Cancelar(t *testing.T) {
	t.Run("short reason rejected", func(t *testing.T) {
		s := createTestSolicitud(t)
		err := s.Cancelar(uuid.New(), "short")
		requireFieldError(t, err, "motivo")
		assert.Equal(t, EstadoPendienteAprobacion, s.Estado)
	})

	for _, prepare := range []struct {
		name string
		fn   func(s *Solicitud) error
	}{
		{"from pending", func(s *Solicitud) error { return nil }},
		{"from approved", func(s *Solicitud) error { return s.Aprobar(uuid.New(), "") }},
		{"from rejected", func(s *Solicitud) error { return s.Rechazar(uuid.New(), "datos incorrectos") }},
	} {
		t.Run(prepare.name, func(t *testing.T) {
			s := createTestSolicitud(t)
			require.NoError(t, prepare.fn(s))
			require.NoError(t, s.Cancelar(uuid.New(), "ya no se requiere el pago"))
			assert.Equal(t, EstadoCancelada, s.Estado)
			assert.True(t, s.Estado.IsTerminal())
		})
	}

	t.Run("terminal states cannot be cancelled", func(t *testing.T) {
		s := createTestSolicitud(t)
		require.NoError(t, s.Cancelar(uuid.New(), "ya no se requiere el pago"))
		err := s.Cancelar(uuid.New(), "ya no se requiere el pago")
		requireCode(t, err, "INVALID_STATE")
	})
}

func TestSolicitud_RegistrarComprobante(t *testing.T) {
	approved := func(t *testing.T) *Solicitud {
		s := createTestSolicitud(t)
		require.NoError(t, s.Aprobar(uuid.New(), ""))
		return s
	}

	t.Run("requires registration number and date", func(t *testing.T) {
		s := approved(t)
		err := s.RegistrarComprobante(uuid.New(), ComprobanteDatos{}, nil, DefaultArchivoRules())
		requireFieldError(t, err, "numero_registro_transferencia")
		requireFieldError(t, err, "fecha_transferencia")
		assert.Equal(t, EstadoAprobada, s.Estado)
	})

	t.Run("9 MB PDF accepted", func(t *testing.T) {
		s := approved(t)
		archivo := &Archivo{Nombre: "comprobante.pdf", MimeType: "application/pdf", Tamano: 9 << 20}
		require.NoError(t, s.RegistrarComprobante(uuid.New(), validComprobante(), archivo, DefaultArchivoRules()))
		assert.Equal(t, archivo, s.Comprobante.Archivo)
	})

	t.Run("11 MB PDF rejected", func(t *testing.T) {
		s := approved(t)
		archivo := &Archivo{Nombre: "comprobante.pdf", MimeType: "application/pdf", Tamano: 11 << 20}
		err := s.RegistrarComprobante(uuid.New(), validComprobante(), archivo, DefaultArchivoRules())
		requireCode(t, err, "FILE_TOO_LARGE")
		assert.Equal(t, EstadoAprobada, s.Estado)
		assert.Nil(t, s.Comprobante)
	})

	t.Run("docx rejected regardless of size", func(t *testing.T) {
		s := approved(t)
		archivo := &Archivo{
			Nombre:   "comprobante.docx",
			MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Tamano:   1024,
		}
		err := s.RegistrarComprobante(uuid.New(), validComprobante(), archivo, DefaultArchivoRules())
		requireCode(t, err, "INVALID_FILE_TYPE")
	})

	t.Run("not allowed while pending", func(t *testing.T) {
		s := createTestSolicitud(t)
		err := s.RegistrarComprobante(uuid.New(), validComprobante(), nil, DefaultArchivoRules())
		requireCode(t, err, "INVALID_STATE")
	})
}

func TestSolicitud_EditarComprobante(t *testing.T) {
	t.Run("edits receipt without changing state", func(t *testing.T) {
		s := createTestSolicitud(t)
		require.NoError(t, s.Aprobar(uuid.New(), ""))
		archivo := &Archivo{Nombre: "c.png", MimeType: "image/png", Tamano: 2048}
		require.NoError(t, s.RegistrarComprobante(uuid.New(), validComprobante(), archivo, DefaultArchivoRules()))

		datos := validComprobante()
		datos.NumeroRegistro = "REG-0002"
		require.NoError(t, s.EditarComprobante(uuid.New(), datos, nil, DefaultArchivoRules()))
		assert.Equal(t, EstadoCompletada, s.Estado)
		assert.Equal(t, "REG-0002", s.Comprobante.NumeroRegistro)
		assert.Equal(t, archivo, s.Comprobante.Archivo)
		assert.NotNil(t, s.Comprobante.EditadoEn)
	})

	t.Run("requires an existing receipt", func(t *testing.T) {
		s := createTestSolicitud(t)
		err := s.EditarComprobante(uuid.New(), validComprobante(), nil, DefaultArchivoRules())
		requireCode(t, err, "INVALID_STATE")
	})
}

// ============================================
// ArchivoRules Tests
// ============================================

func TestArchivoRules_Validate(t *testing.T) {
	rules := DefaultArchivoRules()

	tests := []struct {
		name    string
		archivo Archivo
		code    string
	}{
		{"jpeg accepted", Archivo{Nombre: "a.jpg", MimeType: "image/jpeg", Tamano: 1}, ""},
		{"jpg alias accepted", Archivo{Nombre: "a.jpg", MimeType: "image/jpg", Tamano: 1}, ""},
		{"mime parameters ignored", Archivo{Nombre: "a.pdf", MimeType: "application/pdf; charset=binary", Tamano: 1}, ""},
		{"exactly 10 MiB accepted", Archivo{Nombre: "a.pdf", MimeType: "application/pdf", Tamano: MaxArchivoSize}, ""},
		{"one byte over rejected", Archivo{Nombre: "a.pdf", MimeType: "application/pdf", Tamano: MaxArchivoSize + 1}, "FILE_TOO_LARGE"},
		{"gif rejected", Archivo{Nombre: "a.gif", MimeType: "image/gif", Tamano: 1}, "INVALID_FILE_TYPE"},
		{"empty file rejected", Archivo{Nombre: "a.pdf", MimeType: "application/pdf"}, "INVALID_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Validate(tt.archivo)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			requireCode(t, err, tt.code)
		})
	}
}

func TestComprobanteDatos_Validate(t *testing.T) {
	t.Run("registration number limit counts characters", func(t *testing.T) {
		c := validComprobante()
		c.NumeroRegistro = strings.Repeat("Ñ", 100)
		assert.Empty(t, c.Validate())

		c.NumeroRegistro += "Ñ"
		errs := c.Validate()
		require.Len(t, errs, 1)
		assert.Equal(t, "numero_registro_transferencia", errs[0].Field)
		assert.Equal(t, "MAX_LENGTH", errs[0].Code)
	})

	t.Run("notes limit counts characters", func(t *testing.T) {
		c := validComprobante()
		c.Observaciones = strings.Repeat("é", 500)
		assert.Empty(t, c.Validate())
	})
}

func TestDatos_FacturaIDs(t *testing.T) {
	f1, f2 := uuid.New(), uuid.New()
	d := Datos{Pares: []Par{
		{FacturaID: f1, DetalleID: uuid.New()},
		{FacturaID: f2, DetalleID: uuid.New()},
		{FacturaID: f1, DetalleID: uuid.New()},
	}}
	assert.Equal(t, []uuid.UUID{f1, f2}, d.FacturaIDs())
}
