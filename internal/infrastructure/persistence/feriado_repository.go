package persistence

import (
	"context"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/calendario"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFeriadoRepository implements calendario.FeriadoRepository using GORM
type GormFeriadoRepository struct {
	db *gorm.DB
}

// NewGormFeriadoRepository creates a new GormFeriadoRepository
func NewGormFeriadoRepository(db *gorm.DB) *GormFeriadoRepository {
	return &GormFeriadoRepository{db: db}
}

// FindBetween lists the holidays in [desde, hasta], ordered by date
func (r *GormFeriadoRepository) FindBetween(ctx context.Context, desde, hasta time.Time) ([]calendario.Feriado, error) {
	var rows []models.FeriadoModel
	if err := r.db.WithContext(ctx).
		Where("fecha >= ? AND fecha <= ?", desde, hasta).
		Order("fecha ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	feriados := make([]calendario.Feriado, len(rows))
	for i := range rows {
		feriados[i] = *rows[i].ToDomain()
	}
	return feriados, nil
}

// Save creates a holiday, or updates the description of the one already on that date
func (r *GormFeriadoRepository) Save(ctx context.Context, feriado *calendario.Feriado) error {
	model := &models.FeriadoModel{}
	model.FromDomain(feriado)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fecha"}},
		DoUpdates: clause.AssignmentColumns([]string{"descripcion", "updated_at"}),
	}).Create(model).Error
}

// Delete removes a holiday
func (r *GormFeriadoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FeriadoModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
