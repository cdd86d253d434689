package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/finanzas/liquidaciones/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SolicitudTransferenciaSortFields contains allowed sort fields for transfer requests
var SolicitudTransferenciaSortFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"numero":      true,
	"monto_total": true,
	"estado":      true,
}

const solicitudConflictMsg = "La solicitud fue modificada por otro usuario"

// GormSolicitudTransferenciaRepository implements transferencia.Repository using GORM
type GormSolicitudTransferenciaRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSolicitudTransferenciaRepository creates a new GormSolicitudTransferenciaRepository
func NewGormSolicitudTransferenciaRepository(db *gorm.DB) *GormSolicitudTransferenciaRepository {
	return &GormSolicitudTransferenciaRepository{db: db, now: time.Now}
}

func preloadPares(db *gorm.DB) *gorm.DB {
	return db.Order("posicion ASC")
}

// FindByID finds a transfer request by its ID
func (r *GormSolicitudTransferenciaRepository) FindByID(ctx context.Context, id uuid.UUID) (*transferencia.Solicitud, error) {
	var model models.SolicitudTransferenciaModel
	if err := r.db.WithContext(ctx).Preload("Pares", preloadPares).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists transfer requests matching the filter with the total count
func (r *GormSolicitudTransferenciaRepository) FindAll(ctx context.Context, filter transferencia.Filter) ([]transferencia.Solicitud, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SolicitudTransferenciaModel{})
	if filter.Estado != nil {
		query = query.Where("estado = ?", *filter.Estado)
	}
	if filter.AreaAprobacionID != nil {
		query = query.Where("area_aprobacion_id = ?", *filter.AreaAprobacionID)
	}
	if filter.FacturaID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.SolicitudParModel{}).
			Select("solicitud_id").Where("factura_id = ?", *filter.FacturaID))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("numero LIKE ? OR concepto LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, SolicitudTransferenciaSortFields, "created_at")
	query = query.Order(fmt.Sprintf("%s %s", orderBy, ValidateSortOrder(filter.OrderDir)))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.SolicitudTransferenciaModel
	if err := query.Preload("Pares", preloadPares).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]transferencia.Solicitud, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, total, nil
}

// Save creates or updates a transfer request and its detail pairs
func (r *GormSolicitudTransferenciaRepository) Save(ctx context.Context, s *transferencia.Solicitud) error {
	model := models.SolicitudTransferenciaModelFromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.SolicitudTransferenciaModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(model).Error
		}
		if err := tx.Select("*").Omit("Pares").Save(model).Error; err != nil {
			return err
		}
		return replacePares(tx, model)
	})
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormSolicitudTransferenciaRepository) SaveWithLock(ctx context.Context, s *transferencia.Solicitud) error {
	model := models.SolicitudTransferenciaModelFromDomain(s)
	return saveVersioned(ctx, r.db, model, s.GetID(), s.GetVersion(),
		solicitudConflictMsg,
		func(tx *gorm.DB) error { return replacePares(tx, model) })
}

// SaveCompletion saves the completed request and the invoices its amount was
// applied to in one transaction. Every row is version-checked.
func (r *GormSolicitudTransferenciaRepository) SaveCompletion(ctx context.Context, s *transferencia.Solicitud, facturas []*liquidacion.Factura) error {
	model := models.SolicitudTransferenciaModelFromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersionedTx(tx, model, s.GetID(), s.GetVersion(), solicitudConflictMsg,
			func(tx *gorm.DB) error { return replacePares(tx, model) }); err != nil {
			return err
		}
		for _, f := range facturas {
			if err := saveVersionedTx(tx, models.FacturaModelFromDomain(f), f.GetID(), f.GetVersion(),
				facturaConflictMsg, nil); err != nil {
				return fmt.Errorf("factura %s: %w", f.NumeroDTE, err)
			}
		}
		return nil
	})
}

func replacePares(tx *gorm.DB, model *models.SolicitudTransferenciaModel) error {
	if err := tx.Where("solicitud_id = ?", model.ID).Delete(&models.SolicitudParModel{}).Error; err != nil {
		return err
	}
	if len(model.Pares) == 0 {
		return nil
	}
	return tx.Create(&model.Pares).Error
}

// NextNumero returns the next request number of the current month,
// formatted TRF-YYYYMM-NNNNN
func (r *GormSolicitudTransferenciaRepository) NextNumero(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("TRF-%s-", r.now().Format("200601"))
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SolicitudTransferenciaModel{}).
		Where("numero LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// CountByEstado counts transfer requests per state
func (r *GormSolicitudTransferenciaRepository) CountByEstado(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Estado string
		Total  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.SolicitudTransferenciaModel{}).
		Select("estado, COUNT(*) AS total").
		Group("estado").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Estado] = row.Total
	}
	return counts, nil
}
