package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/calendario"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormFeriadoRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormFeriadoRepository(newSQLiteDB(t))
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

	independencia, err := calendario.NewFeriado(day(time.September, 15), "Independencia")
	require.NoError(t, err)
	revolucion, err := calendario.NewFeriado(day(time.October, 20), "Revolución")
	require.NoError(t, err)
	navidad, err := calendario.NewFeriado(day(time.December, 25), "Navidad")
	require.NoError(t, err)
	for _, f := range []*calendario.Feriado{navidad, independencia, revolucion} {
		require.NoError(t, repo.Save(ctx, f))
	}

	t.Run("range is inclusive and ordered", func(t *testing.T) {
		got, err := repo.FindBetween(ctx, day(time.September, 15), day(time.October, 20))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Independencia", got[0].Descripcion)
		assert.Equal(t, "2024-10-20", calendario.DiaKey(got[1].Fecha))
	})

	t.Run("same date updates the description", func(t *testing.T) {
		again, err := calendario.NewFeriado(day(time.December, 25), "Navidad (asueto)")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, again))

		got, err := repo.FindBetween(ctx, day(time.December, 1), day(time.December, 31))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Navidad (asueto)", got[0].Descripcion)
		assert.Equal(t, navidad.ID, got[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, revolucion.ID))
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)

		got, err := repo.FindBetween(ctx, day(time.January, 1), day(time.December, 31))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
