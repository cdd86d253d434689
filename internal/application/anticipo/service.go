package anticipo

import (
	"context"
	"fmt"

	"github.com/finanzas/liquidaciones/internal/domain/anticipo"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// aggregateType keys the in-flight guard for advances
const aggregateType = "Anticipo"

// Service lists pending advances and files their authorization requests
type Service struct {
	repo        anticipo.Repository
	gateway     anticipo.AutorizacionGateway
	eligibility *anticipo.Eligibility
	guard       shared.InFlightGuard
	logger      *zap.Logger
}

// ServiceConfig holds the collaborators of Service
type ServiceConfig struct {
	Repo    anticipo.Repository
	Gateway anticipo.AutorizacionGateway
	Guard   shared.InFlightGuard
	// OpenRequestVocabulary overrides the tracking states treated as open
	OpenRequestVocabulary []string
	Logger                *zap.Logger
}

// NewService creates a new advance service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        cfg.Repo,
		gateway:     cfg.Gateway,
		eligibility: anticipo.NewEligibility(cfg.OpenRequestVocabulary),
		guard:       cfg.Guard,
		logger:      logger,
	}
}

// ListPendientes lists the advances of an order still awaiting reconciliation
func (s *Service) ListPendientes(ctx context.Context, numeroOrden string) ([]AnticipoResponse, error) {
	anticipos, err := s.repo.FindPendientesByOrden(ctx, numeroOrden)
	if err != nil {
		return nil, fmt.Errorf("failed to list anticipos: %w", err)
	}
	result := make([]AnticipoResponse, len(anticipos))
	for i := range anticipos {
		result[i] = s.toResponse(anticipos[i])
	}
	return result, nil
}

// SolicitarAutorizacion files an authorization request for an advance and
// returns the refreshed list of its order. Nothing is mutated locally: the
// tracking entry only shows up once the repository reports it.
func (s *Service) SolicitarAutorizacion(ctx context.Context, id uuid.UUID, userID *uuid.UUID, req SolicitarAutorizacionRequest) ([]AnticipoResponse, error) {
	if err := anticipo.ValidateJustification(req.Justificacion); err != nil {
		return nil, err
	}

	var numeroOrden string
	err := shared.WithInFlight(ctx, s.guard, shared.InFlightKey(aggregateType, id.String()), func() error {
		a, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		numeroOrden = a.NumeroOrden

		cmd, err := s.eligibility.NewSolicitudAutorizacionCmd(*a, req.Justificacion)
		if err != nil {
			return err
		}
		cmd.SolicitadoPor = userID
		if err := s.gateway.SolicitarAutorizacion(ctx, cmd); err != nil {
			return fmt.Errorf("failed to request authorization: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Advance authorization requested",
		zap.String("anticipo_id", id.String()),
		zap.String("numero_orden", numeroOrden))
	return s.ListPendientes(ctx, numeroOrden)
}
