package transferencia

import (
	"context"
	"errors"
	"sync"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrEditorClosed is returned when submitting without BeginCreate or BeginEdit
var ErrEditorClosed = errors.New("editor is not open")

// EditorMode is what the editor is currently doing
type EditorMode int

const (
	EditorClosed EditorMode = iota
	EditorCreating
	EditorEditing
)

// Result is the outcome of a successful submit
type Result struct {
	Solicitud *SolicitudResponse
	// Lista is the refreshed listing; nil when the refresh failed
	Lista []SolicitudResponse
	// RefreshErr is why the listing could not be refreshed
	RefreshErr error
}

// Editor drives the create and edit flow of a transfer request. It replaces
// a modal dialog: Begin* opens it, Submit sends it, Cancel closes it.
type Editor struct {
	gateway Gateway
	listReq ListRequest

	mu         sync.Mutex
	mode       EditorMode
	editing    *SolicitudResponse
	submitting bool
}

// NewEditor creates an editor; listReq is the listing refreshed after a submit
func NewEditor(gateway Gateway, listReq ListRequest) *Editor {
	return &Editor{gateway: gateway, listReq: listReq}
}

// Mode returns the current editor mode
func (e *Editor) Mode() EditorMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Submitting reports whether a submit is in flight
func (e *Editor) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// BeginCreate opens the editor for a new request
func (e *Editor) BeginCreate() SolicitudRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = EditorCreating
	e.editing = nil
	return SolicitudRequest{}
}

// BeginEdit loads a rejected request and opens the editor prefilled with it
func (e *Editor) BeginEdit(ctx context.Context, id uuid.UUID) (SolicitudRequest, error) {
	sol, err := e.gateway.GetSolicitud(ctx, id)
	if err != nil {
		return SolicitudRequest{}, err
	}
	if !sol.Estado.CanEdit() {
		return SolicitudRequest{}, shared.NewDomainError("INVALID_STATE",
			"Solo se pueden editar solicitudes rechazadas")
	}

	e.mu.Lock()
	e.mode = EditorEditing
	e.editing = sol
	e.mu.Unlock()

	d := sol.Datos()
	return SolicitudRequest{
		Pares:            d.Pares,
		CuentaBancariaID: d.CuentaBancariaID,
		AreaAprobacionID: d.AreaAprobacionID,
		Monto:            d.Monto,
		Concepto:         d.Concepto,
		Observaciones:    d.Observaciones,
	}, nil
}

// Submit validates the payload locally and sends it. On success the editor
// closes and the listing is refreshed; on failure it stays open.
func (e *Editor) Submit(ctx context.Context, req SolicitudRequest) (Result, error) {
	if e.Mode() == EditorClosed {
		return Result{}, ErrEditorClosed
	}
	if errs := req.Datos().Validate(); len(errs) > 0 {
		return Result{}, errs
	}

	// the check and the flag must be set under the same lock
	e.mu.Lock()
	if e.mode == EditorClosed {
		e.mu.Unlock()
		return Result{}, ErrEditorClosed
	}
	if e.submitting {
		e.mu.Unlock()
		return Result{}, shared.ErrOperationInFlight
	}
	mode, editing := e.mode, e.editing
	e.submitting = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
	}()

	var sol *SolicitudResponse
	var err error
	if mode == EditorEditing {
		sol, err = e.gateway.UpdateSolicitud(ctx, editing.ID, req)
	} else {
		sol, err = e.gateway.CreateSolicitud(ctx, req)
	}
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	e.mode = EditorClosed
	e.editing = nil
	e.mu.Unlock()

	lista, err := e.gateway.ListSolicitudes(ctx, e.listReq)
	return Result{Solicitud: sol, Lista: lista, RefreshErr: err}, nil
}

// Cancel closes the editor without sending anything
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = EditorClosed
	e.editing = nil
}
