package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/anticipo"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeguimientoEstadoInicial is the tracking state of a freshly filed request
const SeguimientoEstadoInicial = "Pendiente"

// GormAnticipoRepository implements anticipo.Repository using GORM
type GormAnticipoRepository struct {
	db *gorm.DB
}

// NewGormAnticipoRepository creates a new GormAnticipoRepository
func NewGormAnticipoRepository(db *gorm.DB) *GormAnticipoRepository {
	return &GormAnticipoRepository{db: db}
}

// FindByID finds an advance by its ID, with its latest tracking entry
func (r *GormAnticipoRepository) FindByID(ctx context.Context, id uuid.UUID) (*anticipo.Anticipo, error) {
	var model models.AnticipoModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	result, err := r.withSeguimientos(ctx, []models.AnticipoModel{model})
	if err != nil {
		return nil, err
	}
	return &result[0], nil
}

// FindPendientesByOrden lists the unsettled advances of an order, oldest
// disbursement first
func (r *GormAnticipoRepository) FindPendientesByOrden(ctx context.Context, numeroOrden string) ([]anticipo.Anticipo, error) {
	var rows []models.AnticipoModel
	if err := r.db.WithContext(ctx).
		Where("numero_orden = ? AND estado_liquidacion <> ?", numeroOrden, anticipo.EstadoLiquidado).
		Order("fecha_desembolso ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withSeguimientos(ctx, rows)
}

// withSeguimientos converts rows and attaches the latest tracking entry of each
func (r *GormAnticipoRepository) withSeguimientos(ctx context.Context, rows []models.AnticipoModel) ([]anticipo.Anticipo, error) {
	result := make([]anticipo.Anticipo, len(rows))
	if len(rows) == 0 {
		return result, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	var seguimientos []models.SeguimientoModel
	if err := r.db.WithContext(ctx).
		Where("anticipo_id IN ?", ids).
		Order("fecha DESC").Order("created_at DESC").
		Find(&seguimientos).Error; err != nil {
		return nil, fmt.Errorf("failed to load seguimientos: %w", err)
	}
	latest := make(map[uuid.UUID]*anticipo.Seguimiento, len(rows))
	for i := range seguimientos {
		if _, ok := latest[seguimientos[i].AnticipoID]; !ok {
			latest[seguimientos[i].AnticipoID] = seguimientos[i].ToDomain()
		}
	}

	for i := range rows {
		result[i] = *rows[i].ToDomain()
		result[i].UltimoSeguimiento = latest[rows[i].ID]
	}
	return result, nil
}

// Create registers a disbursed advance. Advances are loaded from the
// disbursement system; this service never edits them.
func (r *GormAnticipoRepository) Create(ctx context.Context, a *anticipo.Anticipo) error {
	model := &models.AnticipoModel{}
	model.FromDomain(a)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
		a.ID = model.ID
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// GormAutorizacionGateway records advance authorization requests as tracking
// entries in the local database
type GormAutorizacionGateway struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormAutorizacionGateway creates a new GormAutorizacionGateway
func NewGormAutorizacionGateway(db *gorm.DB) *GormAutorizacionGateway {
	return &GormAutorizacionGateway{db: db, now: time.Now}
}

// SolicitarAutorizacion appends an open tracking entry for the advance
func (g *GormAutorizacionGateway) SolicitarAutorizacion(ctx context.Context, cmd anticipo.SolicitudAutorizacionCmd) error {
	now := g.now()
	entry := &models.SeguimientoModel{
		BaseModel:     models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		AnticipoID:    cmd.IDSolicitud,
		Tipo:          cmd.Tipo,
		Estado:        SeguimientoEstadoInicial,
		Justificacion: cmd.Justificacion,
		SolicitadoPor: cmd.SolicitadoPor,
		Fecha:         now,
	}
	return g.db.WithContext(ctx).Create(entry).Error
}
