package transferencia

import (
	"context"
	"sync"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/google/uuid"
)

// Acciones runs the state-changing actions on listed transfer requests from
// a client. Input is validated locally before any call, at most one action
// per request is in flight, and every success returns the refreshed listing.
type Acciones struct {
	gateway Gateway
	listReq ListRequest
	rules   transferencia.ArchivoRules

	mu         sync.Mutex
	submitting map[uuid.UUID]bool
}

// NewAcciones creates the client actions; listReq is the listing refreshed after each action
func NewAcciones(gateway Gateway, listReq ListRequest, rules transferencia.ArchivoRules) *Acciones {
	if rules.MaxSize <= 0 && len(rules.AllowedMimeTypes) == 0 {
		rules = transferencia.DefaultArchivoRules()
	}
	return &Acciones{
		gateway:    gateway,
		listReq:    listReq,
		rules:      rules,
		submitting: make(map[uuid.UUID]bool),
	}
}

// Submitting reports whether an action on the request is in flight
func (a *Acciones) Submitting(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitting[id]
}

// Listar fetches the listing
func (a *Acciones) Listar(ctx context.Context) ([]SolicitudResponse, error) {
	return a.gateway.ListSolicitudes(ctx, a.listReq)
}

// Aprobar approves a request
func (a *Acciones) Aprobar(ctx context.Context, id uuid.UUID, comentario string) ([]SolicitudResponse, error) {
	return a.run(ctx, id, func() error {
		_, err := a.gateway.AprobarSolicitud(ctx, id, AprobarRequest{Comentario: comentario})
		return err
	})
}

// Rechazar rejects a request; the comment is mandatory
func (a *Acciones) Rechazar(ctx context.Context, id uuid.UUID, comentario string) ([]SolicitudResponse, error) {
	if errs := transferencia.ValidateMotivo("comentario", comentario); len(errs) > 0 {
		return nil, errs
	}
	return a.run(ctx, id, func() error {
		_, err := a.gateway.RechazarSolicitud(ctx, id, RechazarRequest{Comentario: comentario})
		return err
	})
}

// Cancelar cancels a request; the reason is mandatory
func (a *Acciones) Cancelar(ctx context.Context, id uuid.UUID, motivo string) ([]SolicitudResponse, error) {
	if errs := transferencia.ValidateMotivo("motivo", motivo); len(errs) > 0 {
		return nil, errs
	}
	return a.run(ctx, id, func() error {
		_, err := a.gateway.CancelarSolicitud(ctx, id, CancelarRequest{Motivo: motivo})
		return err
	})
}

// RegistrarComprobante registers the receipt of an approved request
func (a *Acciones) RegistrarComprobante(ctx context.Context, id uuid.UUID, req ComprobanteRequest, archivo *ArchivoUpload) ([]SolicitudResponse, error) {
	if err := a.validateComprobante(req, archivo); err != nil {
		return nil, err
	}
	return a.run(ctx, id, func() error {
		_, err := a.gateway.RegistrarComprobante(ctx, id, req, archivo)
		return err
	})
}

// EditarComprobante corrects the receipt of a request
func (a *Acciones) EditarComprobante(ctx context.Context, id uuid.UUID, req ComprobanteRequest, archivo *ArchivoUpload) ([]SolicitudResponse, error) {
	if err := a.validateComprobante(req, archivo); err != nil {
		return nil, err
	}
	return a.run(ctx, id, func() error {
		_, err := a.gateway.EditarComprobante(ctx, id, req, archivo)
		return err
	})
}

func (a *Acciones) validateComprobante(req ComprobanteRequest, archivo *ArchivoUpload) error {
	if errs := req.Datos().Validate(); len(errs) > 0 {
		return errs
	}
	if archivo != nil {
		return a.rules.Validate(archivo.Archivo())
	}
	return nil
}

func (a *Acciones) run(ctx context.Context, id uuid.UUID, call func() error) ([]SolicitudResponse, error) {
	a.mu.Lock()
	if a.submitting[id] {
		a.mu.Unlock()
		return nil, shared.ErrOperationInFlight
	}
	a.submitting[id] = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.submitting, id)
		a.mu.Unlock()
	}()

	if err := call(); err != nil {
		return nil, err
	}
	return a.gateway.ListSolicitudes(ctx, a.listReq)
}
