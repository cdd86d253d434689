package transferencia

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/finanzas/liquidaciones/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptStorage stores the receipt files of completed transfers.
// Implemented by the infrastructure layer (S3, stub).
type ReceiptStorage interface {
	// Upload stores data under storageKey
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// GenerateDownloadURL generates a presigned URL for downloading a file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ServiceConfig holds the collaborators of Service
type ServiceConfig struct {
	Repo              transferencia.Repository
	FacturaRepo       liquidacion.FacturaRepository
	DetalleRepo       liquidacion.DetalleRepository
	Storage           ReceiptStorage
	Guard             shared.InFlightGuard
	EventPublisher    shared.EventPublisher
	ArchivoRules      transferencia.ArchivoRules
	DownloadURLExpiry time.Duration
	Logger            *zap.Logger
}

// Service runs the transfer request approval workflow. The stored request is
// the source of truth: every operation loads, applies and persists, and a
// failed persist leaves the stored state as it was.
type Service struct {
	repo              transferencia.Repository
	facturaRepo       liquidacion.FacturaRepository
	detalleRepo       liquidacion.DetalleRepository
	storage           ReceiptStorage
	guard             shared.InFlightGuard
	eventPublisher    shared.EventPublisher
	rules             transferencia.ArchivoRules
	downloadURLExpiry time.Duration
	logger            *zap.Logger
}

// NewService creates a new transfer request service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := cfg.ArchivoRules
	if rules.MaxSize <= 0 && len(rules.AllowedMimeTypes) == 0 {
		rules = transferencia.DefaultArchivoRules()
	}
	expiry := cfg.DownloadURLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Service{
		repo:              cfg.Repo,
		facturaRepo:       cfg.FacturaRepo,
		detalleRepo:       cfg.DetalleRepo,
		storage:           cfg.Storage,
		guard:             cfg.Guard,
		eventPublisher:    cfg.EventPublisher,
		rules:             rules,
		downloadURLExpiry: expiry,
		logger:            logger,
	}
}

// ArchivoRules returns the receipt file constraints enforced by the service
func (s *Service) ArchivoRules() transferencia.ArchivoRules {
	return s.rules
}

// List lists transfer requests matching the filter
func (s *Service) List(ctx context.Context, req ListRequest) (*shared.Paginated[SolicitudResponse], error) {
	filter := req.filter()
	solicitudes, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list solicitudes: %w", err)
	}
	items := make([]SolicitudResponse, len(solicitudes))
	for i := range solicitudes {
		items[i] = *toSolicitudResponse(&solicitudes[i])
	}
	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Get gets a transfer request with a download link for its receipt file
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*SolicitudResponse, error) {
	sol, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, sol), nil
}

// Create files a new transfer request. The amount may not exceed what is
// still pending payment on the invoices it covers.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req SolicitudRequest) (*SolicitudResponse, error) {
	datos := req.Datos()
	if errs := datos.Validate(); len(errs) > 0 {
		return nil, errs
	}

	facturas, err := s.checkPares(ctx, datos)
	if err != nil {
		return nil, err
	}
	pendiente := decimal.Zero
	for i := range facturas {
		pendiente = pendiente.Add(facturas[i].MontoPendientePago())
	}

	numero, err := s.repo.NextNumero(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate numero: %w", err)
	}
	sol, err := transferencia.NuevaSolicitud(userID, numero, datos, pendiente)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sol); err != nil {
		return nil, fmt.Errorf("failed to save solicitud: %w", err)
	}
	s.publish(ctx, sol)

	s.logger.Info("Transfer request created",
		zap.String("solicitud_id", sol.ID.String()),
		zap.String("numero", sol.Numero),
		zap.String("monto", sol.MontoTotal.String()))
	return toSolicitudResponse(sol), nil
}

// Update corrects a rejected request and sends it back for approval
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req SolicitudRequest) (*SolicitudResponse, error) {
	datos := req.Datos()
	if errs := datos.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return s.mutate(ctx, "editar", id, func(sol *transferencia.Solicitud) error {
		if sol.Estado.CanEdit() {
			if _, err := s.checkPares(ctx, datos); err != nil {
				return err
			}
		}
		return sol.Editar(userID, datos)
	})
}

// Aprobar approves a pending request
func (s *Service) Aprobar(ctx context.Context, id, userID uuid.UUID, req AprobarRequest) (*SolicitudResponse, error) {
	return s.mutate(ctx, "aprobar", id, func(sol *transferencia.Solicitud) error {
		return sol.Aprobar(userID, req.Comentario)
	})
}

// Rechazar rejects a pending request
func (s *Service) Rechazar(ctx context.Context, id, userID uuid.UUID, req RechazarRequest) (*SolicitudResponse, error) {
	if errs := transferencia.ValidateMotivo("comentario", req.Comentario); len(errs) > 0 {
		return nil, errs
	}
	return s.mutate(ctx, "rechazar", id, func(sol *transferencia.Solicitud) error {
		return sol.Rechazar(userID, req.Comentario)
	})
}

// Cancelar cancels a request that has not reached a terminal state
func (s *Service) Cancelar(ctx context.Context, id, userID uuid.UUID, req CancelarRequest) (*SolicitudResponse, error) {
	if errs := transferencia.ValidateMotivo("motivo", req.Motivo); len(errs) > 0 {
		return nil, errs
	}
	return s.mutate(ctx, "cancelar", id, func(sol *transferencia.Solicitud) error {
		return sol.Cancelar(userID, req.Motivo)
	})
}

// RegistrarComprobante registers the receipt of an approved request, which
// completes it, and applies the transferred amount to its invoices. The file
// is optional; it is validated before anything is uploaded.
func (s *Service) RegistrarComprobante(ctx context.Context, id, userID uuid.UUID, req ComprobanteRequest, upload *ArchivoUpload) (*SolicitudResponse, error) {
	datos := req.Datos()
	if err := s.validateComprobante(datos, upload); err != nil {
		return nil, err
	}

	var sol *transferencia.Solicitud
	err := shared.WithInFlight(ctx, s.guard, shared.InFlightKey(transferencia.AggregateTypeSolicitud, id.String()), func() error {
		var err error
		sol, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !sol.Estado.CanRegisterReceipt() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("No se puede registrar el comprobante de una solicitud en estado %s", sol.Estado))
		}

		archivo, err := s.upload(ctx, sol, upload)
		if err != nil {
			return err
		}
		if err := sol.RegistrarComprobante(userID, datos, archivo, s.rules); err != nil {
			s.discard(ctx, archivo)
			return err
		}
		facturas, err := s.aplicarMonto(ctx, sol)
		if err != nil {
			s.discard(ctx, archivo)
			return err
		}
		if err := s.repo.SaveCompletion(ctx, sol, facturas); err != nil {
			s.discard(ctx, archivo)
			return fmt.Errorf("failed to save solicitud: %w", err)
		}
		s.publish(ctx, sol)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer receipt registered",
		zap.String("solicitud_id", id.String()),
		zap.String("numero_registro", sol.Comprobante.NumeroRegistro))
	return s.respond(ctx, sol), nil
}

// EditarComprobante corrects a registered receipt. A new file replaces the
// previous one, which is removed from storage once the change is saved.
func (s *Service) EditarComprobante(ctx context.Context, id, userID uuid.UUID, req ComprobanteRequest, upload *ArchivoUpload) (*SolicitudResponse, error) {
	datos := req.Datos()
	if err := s.validateComprobante(datos, upload); err != nil {
		return nil, err
	}

	var sol *transferencia.Solicitud
	var previous *transferencia.Archivo
	err := shared.WithInFlight(ctx, s.guard, shared.InFlightKey(transferencia.AggregateTypeSolicitud, id.String()), func() error {
		var err error
		sol, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if sol.Comprobante == nil || sol.Estado == transferencia.EstadoCancelada {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("No se puede editar el comprobante de una solicitud en estado %s", sol.Estado))
		}
		previous = sol.Comprobante.Archivo

		archivo, err := s.upload(ctx, sol, upload)
		if err != nil {
			return err
		}
		if err := sol.EditarComprobante(userID, datos, archivo, s.rules); err != nil {
			s.discard(ctx, archivo)
			return err
		}
		if err := s.repo.SaveWithLock(ctx, sol); err != nil {
			s.discard(ctx, archivo)
			return fmt.Errorf("failed to save solicitud: %w", err)
		}
		if archivo == nil {
			previous = nil
		}
		s.publish(ctx, sol)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.discard(ctx, previous)
	return s.respond(ctx, sol), nil
}

func (s *Service) mutate(ctx context.Context, op string, id uuid.UUID, apply func(*transferencia.Solicitud) error) (_ *SolicitudResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transferencia", op, telemetry.SpanAttrSolicitudID, id.String())
	defer func() { telemetry.EndSpan(span, err) }()

	var sol *transferencia.Solicitud
	err = shared.WithInFlight(ctx, s.guard, shared.InFlightKey(transferencia.AggregateTypeSolicitud, id.String()), func() error {
		var err error
		sol, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(sol); err != nil {
			return err
		}
		if err := s.repo.SaveWithLock(ctx, sol); err != nil {
			return fmt.Errorf("failed to save solicitud: %w", err)
		}
		s.publish(ctx, sol)
		return nil
	})
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrEstado, string(sol.Estado))
	return s.respond(ctx, sol), nil
}

// checkPares verifies every detail belongs to the invoice it is paired with
// and returns the distinct invoices in request order
func (s *Service) checkPares(ctx context.Context, datos transferencia.Datos) ([]liquidacion.Factura, error) {
	ids := datos.FacturaIDs()
	facturas, err := s.facturaRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load facturas: %w", err)
	}
	byID := make(map[uuid.UUID]liquidacion.Factura, len(facturas))
	for _, f := range facturas {
		byID[f.ID] = f
	}

	detalleIDs := make([]uuid.UUID, len(datos.Pares))
	for i, p := range datos.Pares {
		detalleIDs[i] = p.DetalleID
	}
	detalles, err := s.detalleRepo.FindByIDs(ctx, detalleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load detalles: %w", err)
	}
	owner := make(map[uuid.UUID]uuid.UUID, len(detalles))
	for _, d := range detalles {
		if d.ID != nil {
			owner[*d.ID] = d.FacturaID
		}
	}

	var errs shared.ValidationErrors
	for i, p := range datos.Pares {
		field := fmt.Sprintf("pares[%d]", i)
		if _, ok := byID[p.FacturaID]; !ok {
			errs.Add(field, "NOT_FOUND", "La factura no existe")
			continue
		}
		if owner[p.DetalleID] != p.FacturaID {
			errs.Add(field, "MISMATCH", "El detalle no pertenece a la factura")
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	ordered := make([]liquidacion.Factura, len(ids))
	for i, id := range ids {
		ordered[i] = byID[id]
	}
	return ordered, nil
}

func (s *Service) validateComprobante(datos transferencia.ComprobanteDatos, upload *ArchivoUpload) error {
	if errs := datos.Validate(); len(errs) > 0 {
		return errs
	}
	if upload != nil {
		return s.rules.Validate(upload.Archivo())
	}
	return nil
}

func (s *Service) upload(ctx context.Context, sol *transferencia.Solicitud, upload *ArchivoUpload) (*transferencia.Archivo, error) {
	if upload == nil {
		return nil, nil
	}
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_UNAVAILABLE", "El almacenamiento de comprobantes no está configurado")
	}
	archivo := upload.Archivo()
	archivo.StorageKey = fmt.Sprintf("transferencias/%s/comprobantes/%s%s",
		sol.ID.String(), uuid.New().String(), filepath.Ext(upload.Nombre))
	if err := s.storage.Upload(ctx, archivo.StorageKey, upload.Data, archivo.MimeType); err != nil {
		return nil, fmt.Errorf("failed to upload comprobante: %w", err)
	}
	return &archivo, nil
}

// discard removes a stored file that is no longer referenced
func (s *Service) discard(ctx context.Context, archivo *transferencia.Archivo) {
	if archivo == nil || archivo.StorageKey == "" || s.storage == nil {
		return
	}
	if err := s.storage.DeleteObject(context.WithoutCancel(ctx), archivo.StorageKey); err != nil {
		s.logger.Warn("Failed to delete comprobante file",
			zap.String("storage_key", archivo.StorageKey),
			zap.Error(err))
	}
}

// aplicarMonto spreads the transferred amount over the request's invoices in
// order and returns the ones that changed
func (s *Service) aplicarMonto(ctx context.Context, sol *transferencia.Solicitud) ([]*liquidacion.Factura, error) {
	if s.facturaRepo == nil {
		return nil, nil
	}
	ids := sol.Datos().FacturaIDs()
	facturas, err := s.facturaRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load facturas: %w", err)
	}
	byID := make(map[uuid.UUID]*liquidacion.Factura, len(facturas))
	for i := range facturas {
		byID[facturas[i].ID] = &facturas[i]
	}

	restante := sol.MontoTotal
	var changed []*liquidacion.Factura
	for _, id := range ids {
		f, ok := byID[id]
		if !ok || restante.IsZero() {
			continue
		}
		applied := f.AplicarTransferencia(restante)
		if applied.IsZero() {
			continue
		}
		restante = restante.Sub(applied)
		changed = append(changed, f)
	}
	return changed, nil
}

func (s *Service) respond(ctx context.Context, sol *transferencia.Solicitud) *SolicitudResponse {
	resp := toSolicitudResponse(sol)
	if resp.Comprobante == nil || resp.Comprobante.Archivo == nil || s.storage == nil {
		return resp
	}
	url, _, err := s.storage.GenerateDownloadURL(ctx, resp.Comprobante.Archivo.StorageKey, s.downloadURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to generate comprobante download URL",
			zap.String("solicitud_id", sol.ID.String()),
			zap.Error(err))
		return resp
	}
	resp.Comprobante.DownloadURL = url
	return resp
}

func (s *Service) publish(ctx context.Context, sol *transferencia.Solicitud) {
	events := sol.GetDomainEvents()
	sol.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish solicitud events",
			zap.String("solicitud_id", sol.ID.String()),
			zap.Error(err))
	}
}
