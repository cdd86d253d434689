package liquidacion

import (
	"context"
	"fmt"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DegradationRecorder counts evaluations made without the business-day calendar
type DegradationRecorder interface {
	RecordCalendarDegraded(ctx context.Context)
}

// FacturaService provides invoice search, the tardiness gate and liquidation
type FacturaService struct {
	facturaRepo    liquidacion.FacturaRepository
	detalleRepo    liquidacion.DetalleRepository
	gate           *liquidacion.VencimientoGate
	guard          shared.InFlightGuard
	eventPublisher shared.EventPublisher
	tolerance      decimal.Decimal
	metrics        DegradationRecorder
	logger         *zap.Logger
}

// FacturaServiceConfig holds the collaborators of FacturaService
type FacturaServiceConfig struct {
	FacturaRepo    liquidacion.FacturaRepository
	DetalleRepo    liquidacion.DetalleRepository
	Calendar       liquidacion.BusinessDayCalendar
	Guard          shared.InFlightGuard
	EventPublisher shared.EventPublisher
	Tolerance      decimal.Decimal
	Metrics        DegradationRecorder // optional
	Logger         *zap.Logger
}

// NewFacturaService creates a new FacturaService
func NewFacturaService(cfg FacturaServiceConfig) *FacturaService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tolerance := cfg.Tolerance
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = liquidacion.DefaultTolerance
	}
	return &FacturaService{
		facturaRepo:    cfg.FacturaRepo,
		detalleRepo:    cfg.DetalleRepo,
		gate:           liquidacion.NewVencimientoGate(cfg.Calendar),
		guard:          cfg.Guard,
		eventPublisher: cfg.EventPublisher,
		tolerance:      tolerance,
		metrics:        cfg.Metrics,
		logger:         logger,
	}
}

// BuscarPorDTE finds an invoice by its DTE number
func (s *FacturaService) BuscarPorDTE(ctx context.Context, numeroDTE string) (*FacturaResponse, error) {
	f, err := s.facturaRepo.FindByNumeroDTE(ctx, numeroDTE)
	if err != nil {
		return nil, err
	}
	return toFacturaResponse(f), nil
}

// GetByID gets an invoice by ID
func (s *FacturaService) GetByID(ctx context.Context, id uuid.UUID) (*FacturaResponse, error) {
	f, err := s.facturaRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFacturaResponse(f), nil
}

// EvaluarVencimiento runs the business-day gate for an invoice. A calendar
// failure is logged and reported through the Degradado flag, not as an error.
func (s *FacturaService) EvaluarVencimiento(ctx context.Context, id uuid.UUID) (*VencimientoResponse, error) {
	f, err := s.facturaRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.evaluate(ctx, f)
	return &VencimientoResponse{
		ValidacionVencimiento:    v,
		EstadoAutorizacion:       string(f.Autorizacion.Estado),
		CanLiquidate:             liquidacion.CanLiquidate(f, v),
		NeedsAuthorizationAction: liquidacion.NeedsAuthorizationAction(f, v),
	}, nil
}

func (s *FacturaService) evaluate(ctx context.Context, f *liquidacion.Factura) liquidacion.ValidacionVencimiento {
	approved := f.Autorizacion.Estado == liquidacion.EstadoAutorizacionAprobada
	v, err := s.gate.Evaluate(ctx, f.FechaEmision, approved)
	if err != nil {
		s.logger.Warn("Business-day calendar unavailable, gate degraded",
			zap.String("factura_id", f.ID.String()),
			zap.String("numero_dte", f.NumeroDTE),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordCalendarDegraded(ctx)
		}
	}
	return v
}

// SolicitarAutorizacion files a tardiness authorization request for an invoice.
// The elapsed-day count is taken from the gate at request time.
func (s *FacturaService) SolicitarAutorizacion(ctx context.Context, id, userID uuid.UUID, req SolicitarAutorizacionRequest) (*FacturaResponse, error) {
	if err := liquidacion.ValidateMotivo(req.Motivo); err != nil {
		return nil, err
	}

	var resp *FacturaResponse
	err := shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, id.String()), func() error {
		f, err := s.facturaRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		v := s.evaluate(ctx, f)
		if err := f.SolicitarAutorizacion(userID, req.Motivo, v.DiasHabilesTranscurridos); err != nil {
			return err
		}
		if err := s.facturaRepo.SaveWithLock(ctx, f); err != nil {
			return fmt.Errorf("failed to save factura: %w", err)
		}
		s.publish(ctx, f)
		resp = toFacturaResponse(f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tardiness authorization requested",
		zap.String("factura_id", id.String()),
		zap.String("user_id", userID.String()))
	return resp, nil
}

// ResolverAutorizacion records the approver's decision on a pending request
func (s *FacturaService) ResolverAutorizacion(ctx context.Context, id, userID uuid.UUID, req ResolverAutorizacionRequest) (*FacturaResponse, error) {
	var resp *FacturaResponse
	err := shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, id.String()), func() error {
		f, err := s.facturaRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := f.ResolverAutorizacion(userID, req.Aprobada, req.Comentario); err != nil {
			return err
		}
		if err := s.facturaRepo.SaveWithLock(ctx, f); err != nil {
			return fmt.Errorf("failed to save factura: %w", err)
		}
		s.publish(ctx, f)
		resp = toFacturaResponse(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Liquidar settles an invoice once the gate allows it and its details reconcile
func (s *FacturaService) Liquidar(ctx context.Context, id, userID uuid.UUID) (resp *FacturaResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "factura", "liquidar", telemetry.SpanAttrFacturaID, id.String())
	defer func() { telemetry.EndSpan(span, err) }()

	err = shared.WithInFlight(ctx, s.guard, shared.InFlightKey(liquidacion.AggregateTypeFactura, id.String()), func() error {
		f, err := s.facturaRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		detalles, err := s.detalleRepo.FindByFactura(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load detalles: %w", err)
		}
		telemetry.SetAttributes(span, telemetry.SpanAttrNumeroDTE, f.NumeroDTE)
		v := s.evaluate(ctx, f)
		if err := f.Liquidar(userID, detalles, v, s.tolerance); err != nil {
			return err
		}
		if err := s.facturaRepo.SaveWithLock(ctx, f); err != nil {
			return fmt.Errorf("failed to save factura: %w", err)
		}
		s.publish(ctx, f)
		resp = toFacturaResponse(f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrMonto, resp.MontoLiquidado.String())
	s.logger.Info("Factura liquidated",
		zap.String("factura_id", id.String()),
		zap.String("monto_liquidado", resp.MontoLiquidado.String()))
	return resp, nil
}

func (s *FacturaService) publish(ctx context.Context, f *liquidacion.Factura) {
	events := f.GetDomainEvents()
	f.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish factura events",
			zap.String("factura_id", f.ID.String()),
			zap.Error(err))
	}
}
