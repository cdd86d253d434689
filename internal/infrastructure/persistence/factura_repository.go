package persistence

import (
	"context"
	"errors"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const facturaConflictMsg = "La factura fue modificada por otro usuario"

// GormFacturaRepository implements liquidacion.FacturaRepository using GORM
type GormFacturaRepository struct {
	db *gorm.DB
}

// NewGormFacturaRepository creates a new GormFacturaRepository
func NewGormFacturaRepository(db *gorm.DB) *GormFacturaRepository {
	return &GormFacturaRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormFacturaRepository) FindByID(ctx context.Context, id uuid.UUID) (*liquidacion.Factura, error) {
	var model models.FacturaModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumeroDTE finds an invoice by its DTE number
func (r *GormFacturaRepository) FindByNumeroDTE(ctx context.Context, numeroDTE string) (*liquidacion.Factura, error) {
	var model models.FacturaModel
	if err := r.db.WithContext(ctx).Where("numero_dte = ?", numeroDTE).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds invoices by IDs. Unknown ids are skipped.
func (r *GormFacturaRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]liquidacion.Factura, error) {
	if len(ids) == 0 {
		return []liquidacion.Factura{}, nil
	}
	var rows []models.FacturaModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	facturas := make([]liquidacion.Factura, len(rows))
	for i := range rows {
		facturas[i] = *rows[i].ToDomain()
	}
	return facturas, nil
}

// Save creates or updates an invoice
func (r *GormFacturaRepository) Save(ctx context.Context, factura *liquidacion.Factura) error {
	return r.db.WithContext(ctx).Save(models.FacturaModelFromDomain(factura)).Error
}

// SaveWithLock saves the invoice with optimistic locking. The domain has
// already incremented the version, so the stored row must hold version-1.
func (r *GormFacturaRepository) SaveWithLock(ctx context.Context, factura *liquidacion.Factura) error {
	return saveVersioned(ctx, r.db, models.FacturaModelFromDomain(factura), factura.GetID(), factura.GetVersion(),
		facturaConflictMsg, nil)
}

// saveVersioned updates model only if the stored version is version-1, and
// creates it when no row exists yet. Associations are written by Create only;
// afterUpdate, when set, rewrites them inside the same transaction.
func saveVersioned(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, version int, conflictMsg string, afterUpdate func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveVersionedTx(tx, model, id, version, conflictMsg, afterUpdate)
	})
}

// saveVersionedTx is saveVersioned inside a caller-owned transaction
func saveVersionedTx(tx *gorm.DB, model any, id uuid.UUID, version int, conflictMsg string, afterUpdate func(tx *gorm.DB) error) error {
	var current struct{ Version int }
	err := tx.Model(model).Select("version").Where("id = ?", id).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(model).Error
	}
	if err != nil {
		return err
	}

	expected := version - 1
	if current.Version != expected {
		return shared.NewDomainError("VERSION_CONFLICT", conflictMsg)
	}
	result := tx.Model(model).Where("id = ? AND version = ?", id, expected).
		Select("*").Omit(clause.Associations).Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("VERSION_CONFLICT", conflictMsg)
	}
	if afterUpdate != nil {
		return afterUpdate(tx)
	}
	return nil
}
