// Package calendario implements the business-day calendar over the holiday
// table and maintains that table.
package calendario

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finanzas/liquidaciones/internal/domain/calendario"
	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
)

// DefaultDiasPermitidos is the business-day threshold when none is configured.
const DefaultDiasPermitidos = 8

// HolidayCache caches the holiday days (YYYY-MM-DD) of a calendar year.
type HolidayCache interface {
	Get(ctx context.Context, year int) (dias []string, found bool, err error)
	Set(ctx context.Context, year int, dias []string, ttl time.Duration) error
	Invalidate(ctx context.Context, year int) error
}

// ServiceConfig holds the collaborators of Service
type ServiceConfig struct {
	Repo           calendario.FeriadoRepository
	Cache          HolidayCache // optional
	CacheTTL       time.Duration
	DiasPermitidos int
	Location       *time.Location
	Now            func() time.Time
	Logger         *zap.Logger
}

// Service counts business days and manages holidays.
type Service struct {
	repo           calendario.FeriadoRepository
	cache          HolidayCache
	cacheTTL       time.Duration
	diasPermitidos int
	loc            *time.Location
	now            func() time.Time
	logger         *zap.Logger
}

var _ liquidacion.BusinessDayCalendar = (*Service)(nil)

// NewService creates a new calendar service
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:           cfg.Repo,
		cache:          cfg.Cache,
		cacheTTL:       cfg.CacheTTL,
		diasPermitidos: cfg.DiasPermitidos,
		loc:            cfg.Location,
		now:            cfg.Now,
		logger:         cfg.Logger,
	}
	if s.diasPermitidos <= 0 {
		s.diasPermitidos = DefaultDiasPermitidos
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 24 * time.Hour
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// DiasHabilesDesde counts the business days after desde up to today, both
// taken as calendar days in the configured time zone.
func (s *Service) DiasHabilesDesde(ctx context.Context, desde time.Time) (liquidacion.CalculoDiasHabiles, error) {
	desde = calendario.Dia(desde.In(s.loc))
	hoy := calendario.Dia(s.now().In(s.loc))

	// The first business day after desde may fall in the next year.
	hasta := hoy
	if hasta.Before(desde) {
		hasta = desde
	}
	feriados, err := s.feriadosEntre(ctx, desde.Year(), hasta.Year()+1)
	if err != nil {
		return liquidacion.CalculoDiasHabiles{}, err
	}

	n, inicio := calendario.Habiles(desde, hoy, feriados)
	return liquidacion.CalculoDiasHabiles{
		DiasHabilesTranscurridos: n,
		DiasPermitidos:           s.diasPermitidos,
		FechaInicioCalculo:       inicio,
	}, nil
}

func (s *Service) feriadosEntre(ctx context.Context, desdeYear, hastaYear int) (map[string]bool, error) {
	feriados := make(map[string]bool)
	for y := desdeYear; y <= hastaYear; y++ {
		dias, err := s.year(ctx, y)
		if err != nil {
			return nil, err
		}
		for _, d := range dias {
			feriados[d] = true
		}
	}
	return feriados, nil
}

// year returns the holidays of y, reading through the cache. Cache failures
// only cost a database read.
func (s *Service) year(ctx context.Context, y int) ([]string, error) {
	if s.cache != nil {
		dias, found, err := s.cache.Get(ctx, y)
		if err != nil {
			s.logger.Warn("Holiday cache read failed", zap.Int("year", y), zap.Error(err))
		} else if found {
			return dias, nil
		}
	}

	desde := time.Date(y, time.January, 1, 0, 0, 0, 0, s.loc)
	hasta := time.Date(y, time.December, 31, 0, 0, 0, 0, s.loc)
	rows, err := s.repo.FindBetween(ctx, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays for %d: %w", y, err)
	}
	dias := make([]string, len(rows))
	for i := range rows {
		dias[i] = calendario.DiaKey(rows[i].Fecha)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, y, dias, s.cacheTTL); err != nil {
			s.logger.Warn("Holiday cache write failed", zap.Int("year", y), zap.Error(err))
		}
	}
	return dias, nil
}

// List returns the holidays of year ordered by date.
func (s *Service) List(ctx context.Context, year int) ([]FeriadoResponse, error) {
	desde := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	hasta := time.Date(year, time.December, 31, 0, 0, 0, 0, s.loc)
	rows, err := s.repo.FindBetween(ctx, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Fecha.Before(rows[j].Fecha) })
	out := make([]FeriadoResponse, len(rows))
	for i := range rows {
		out[i] = toFeriadoResponse(&rows[i])
	}
	return out, nil
}

// Create records a holiday. Recording an existing date replaces its
// description.
func (s *Service) Create(ctx context.Context, req CreateFeriadoRequest) (*FeriadoResponse, error) {
	fecha, err := time.ParseInLocation(time.DateOnly, req.Fecha, s.loc)
	if err != nil {
		return nil, invalidFecha()
	}
	f, err := calendario.NewFeriado(fecha, req.Descripcion)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save holiday: %w", err)
	}
	s.invalidate(ctx, fecha.Year())
	s.logger.Info("Holiday recorded",
		zap.String("fecha", calendario.DiaKey(f.Fecha)),
		zap.String("descripcion", f.Descripcion))
	resp := toFeriadoResponse(f)
	return &resp, nil
}

// Delete removes a holiday. year names the cached year to drop.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, year int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, year)
	return nil
}

func (s *Service) invalidate(ctx context.Context, year int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, year); err != nil {
		s.logger.Warn("Holiday cache invalidation failed", zap.Int("year", year), zap.Error(err))
	}
}
