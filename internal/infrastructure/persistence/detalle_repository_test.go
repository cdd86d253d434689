package persistence

import (
	"context"
	"testing"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetalle(facturaID uuid.UUID, monto string, posicion int) liquidacion.Detalle {
	return liquidacion.Detalle{
		FacturaID:    facturaID,
		NumeroOrden:  "OC-77",
		Agencia:      "Central",
		Monto:        decimal.RequireFromString(monto),
		FormaPago:    liquidacion.FormaPagoDeposito,
		Banco:        "Banco Industrial",
		NumeroCuenta: "123-456",
		Posicion:     posicion,
	}
}

func TestGormDetalleRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDetalleRepository(newSQLiteDB(t))
	facturaID := uuid.New()

	second := newDetalle(facturaID, "300.50", 1)
	first := newDetalle(facturaID, "200", 0)
	require.NoError(t, repo.Create(ctx, &second))
	require.NoError(t, repo.Create(ctx, &first))
	other := newDetalle(uuid.New(), "1", 0)
	require.NoError(t, repo.Create(ctx, &other))

	t.Run("create assigns id and version", func(t *testing.T) {
		assert.True(t, first.IsPersisted())
		assert.Equal(t, 1, first.Version)
		assert.False(t, first.CreatedAt.IsZero())
	})

	t.Run("lists an invoice by position", func(t *testing.T) {
		got, err := repo.FindByFactura(ctx, facturaID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, *first.ID, *got[0].ID)
		assert.Equal(t, *second.ID, *got[1].ID)
		assert.True(t, got[1].Monto.Equal(decimal.RequireFromString("300.50")))
		assert.Equal(t, "Banco Industrial", got[0].Banco)
	})

	t.Run("find by ids", func(t *testing.T) {
		got, err := repo.FindByIDs(ctx, []uuid.UUID{*first.ID, *other.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("update bumps the version", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, *first.ID)
		require.NoError(t, err)

		loaded.Monto = decimal.NewFromInt(250)
		loaded.Posicion = 0
		require.NoError(t, repo.Update(ctx, loaded))
		assert.Equal(t, 2, loaded.Version)

		again, err := repo.FindByID(ctx, *first.ID)
		require.NoError(t, err)
		assert.True(t, again.Monto.Equal(decimal.NewFromInt(250)))
		assert.Equal(t, 2, again.Version)
	})

	t.Run("stale update conflicts", func(t *testing.T) {
		stale := first
		stale.Version = 1
		err := repo.Update(ctx, &stale)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VERSION_CONFLICT", domainErr.Code)
	})

	t.Run("update of unknown detail is not found", func(t *testing.T) {
		ghost := newDetalle(facturaID, "1", 5)
		id := uuid.New()
		ghost.ID = &id
		assert.ErrorIs(t, repo.Update(ctx, &ghost), shared.ErrNotFound)
	})

	t.Run("update of unsaved detail is rejected", func(t *testing.T) {
		unsaved := newDetalle(facturaID, "1", 5)
		assert.Error(t, repo.Update(ctx, &unsaved))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, *second.ID))
		_, err := repo.FindByID(ctx, *second.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, *second.ID), shared.ErrNotFound)
	})
}

func TestGormDetalleRepository_InsertAt(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDetalleRepository(newSQLiteDB(t))
	facturaID := uuid.New()

	a := newDetalle(facturaID, "100", 0)
	b := newDetalle(facturaID, "200", 1)
	c := newDetalle(facturaID, "300", 2)
	for _, d := range []*liquidacion.Detalle{&a, &b, &c} {
		require.NoError(t, repo.Create(ctx, d))
	}
	positions := func() map[uuid.UUID]int {
		got, err := repo.FindByFactura(ctx, facturaID)
		require.NoError(t, err)
		out := make(map[uuid.UUID]int, len(got))
		for _, d := range got {
			out[*d.ID] = d.Posicion
		}
		return out
	}

	t.Run("shifts later details and inserts", func(t *testing.T) {
		nuevo := newDetalle(facturaID, "50", 1)
		require.NoError(t, repo.InsertAt(ctx, &nuevo))
		assert.True(t, nuevo.IsPersisted())

		got := positions()
		assert.Equal(t, map[uuid.UUID]int{*a.ID: 0, *nuevo.ID: 1, *b.ID: 2, *c.ID: 3}, got)

		shifted, err := repo.FindByID(ctx, *b.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, shifted.Version)
	})

	t.Run("failed insert leaves positions unchanged", func(t *testing.T) {
		before := positions()
		dup := newDetalle(facturaID, "10", 0)
		dup.ID = a.ID // primary key collision fails the create after the shift
		require.Error(t, repo.InsertAt(ctx, &dup))
		assert.Equal(t, before, positions())
	})
}
