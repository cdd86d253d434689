package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDetalleRepository implements liquidacion.DetalleRepository using GORM
type GormDetalleRepository struct {
	db *gorm.DB
}

// NewGormDetalleRepository creates a new GormDetalleRepository
func NewGormDetalleRepository(db *gorm.DB) *GormDetalleRepository {
	return &GormDetalleRepository{db: db}
}

// FindByID finds a detail by its ID
func (r *GormDetalleRepository) FindByID(ctx context.Context, id uuid.UUID) (*liquidacion.Detalle, error) {
	var model models.DetalleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	d := model.ToDomain()
	return &d, nil
}

// FindByFactura lists the details of an invoice by position, then creation time
func (r *GormDetalleRepository) FindByFactura(ctx context.Context, facturaID uuid.UUID) ([]liquidacion.Detalle, error) {
	var rows []models.DetalleModel
	if err := r.db.WithContext(ctx).
		Where("factura_id = ?", facturaID).
		Order("posicion ASC").Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDetalles(rows), nil
}

// FindByIDs finds details by IDs. Unknown ids are skipped.
func (r *GormDetalleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]liquidacion.Detalle, error) {
	if len(ids) == 0 {
		return []liquidacion.Detalle{}, nil
	}
	var rows []models.DetalleModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDetalles(rows), nil
}

func toDetalles(rows []models.DetalleModel) []liquidacion.Detalle {
	detalles := make([]liquidacion.Detalle, len(rows))
	for i := range rows {
		detalles[i] = rows[i].ToDomain()
	}
	return detalles
}

// Create persists a new detail and assigns its id, version and timestamps
func (r *GormDetalleRepository) Create(ctx context.Context, detalle *liquidacion.Detalle) error {
	now := time.Now()
	model := models.DetalleModelFromDomain(detalle)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	model.Version = 1
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*detalle = model.ToDomain()
	return nil
}

// InsertAt creates detalle at its position. Details of the same invoice at or
// after that position move one slot down; their versions are bumped so stale
// copies conflict. Both writes share one transaction.
func (r *GormDetalleRepository) InsertAt(ctx context.Context, detalle *liquidacion.Detalle) error {
	now := time.Now()
	model := models.DetalleModelFromDomain(detalle)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	model.Version = 1
	model.CreatedAt = now
	model.UpdatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DetalleModel{}).
			Where("factura_id = ? AND posicion >= ?", model.FacturaID, model.Posicion).
			Updates(map[string]any{
				"posicion":   gorm.Expr("posicion + 1"),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to reorder detalles: %w", err)
		}
		return tx.Create(model).Error
	})
	if err != nil {
		return err
	}
	*detalle = model.ToDomain()
	return nil
}

// Update persists changes to an existing detail. The stored version must
// match the detail's; it is incremented on success.
func (r *GormDetalleRepository) Update(ctx context.Context, detalle *liquidacion.Detalle) error {
	if !detalle.IsPersisted() {
		return shared.NewDomainError("UNSAVED_DETAIL", "El detalle no ha sido guardado")
	}
	model := models.DetalleModelFromDomain(detalle)
	model.Version = detalle.Version + 1
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Model(&models.DetalleModel{}).
		Where("id = ? AND version = ?", model.ID, detalle.Version).
		Select("factura_id", "posicion", "numero_orden", "agencia", "descripcion", "monto",
			"forma_pago", "banco", "numero_cuenta", "beneficiario", "no_negociable",
			"observaciones", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.DetalleModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.NewDomainError("VERSION_CONFLICT", "El detalle fue modificado por otro usuario")
	}
	detalle.Version = model.Version
	detalle.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete removes a detail
func (r *GormDetalleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DetalleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
