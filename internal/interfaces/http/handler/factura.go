package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
)

const msgFacturaNoEncontrada = "No se encontró la factura"

// FacturaService is the invoice use cases the handler drives
type FacturaService interface {
	BuscarPorDTE(ctx context.Context, numeroDTE string) (*liquidacionapp.FacturaResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*liquidacionapp.FacturaResponse, error)
	EvaluarVencimiento(ctx context.Context, id uuid.UUID) (*liquidacionapp.VencimientoResponse, error)
	SolicitarAutorizacion(ctx context.Context, id, userID uuid.UUID, req liquidacionapp.SolicitarAutorizacionRequest) (*liquidacionapp.FacturaResponse, error)
	ResolverAutorizacion(ctx context.Context, id, userID uuid.UUID, req liquidacionapp.ResolverAutorizacionRequest) (*liquidacionapp.FacturaResponse, error)
	Liquidar(ctx context.Context, id, userID uuid.UUID) (*liquidacionapp.FacturaResponse, error)
}

// FacturaHandler handles invoice endpoints
type FacturaHandler struct {
	BaseHandler
	service FacturaService
}

// NewFacturaHandler creates a new FacturaHandler
func NewFacturaHandler(service FacturaService) *FacturaHandler {
	return &FacturaHandler{service: service}
}

// BuscarPorDTE looks an invoice up by its DTE number.
// GET /facturas/dte/:dte
func (h *FacturaHandler) BuscarPorDTE(c *gin.Context) {
	f, err := h.service.BuscarPorDTE(c.Request.Context(), c.Param("dte"))
	if err != nil {
		h.HandleError(c, err, "No existe una factura con el DTE indicado")
		return
	}
	h.Success(c, f)
}

// GetByID returns an invoice.
// GET /facturas/:id
func (h *FacturaHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	f, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.Success(c, f)
}

// EvaluarVencimiento runs the business day gate for an invoice.
// GET /facturas/:id/vencimiento
func (h *FacturaHandler) EvaluarVencimiento(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.service.EvaluarVencimiento(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.Success(c, v)
}

// SolicitarAutorizacion requests authorization to liquidate a late invoice.
// POST /facturas/:id/autorizacion
func (h *FacturaHandler) SolicitarAutorizacion(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	var req liquidacionapp.SolicitarAutorizacionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	f, err := h.service.SolicitarAutorizacion(c.Request.Context(), id, userID, req)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.SuccessMessage(c, f, "Solicitud de autorización enviada")
}

// ResolverAutorizacion records the approver's decision on a pending request.
// POST /facturas/:id/autorizacion/resolver
func (h *FacturaHandler) ResolverAutorizacion(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	var req liquidacionapp.ResolverAutorizacionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	f, err := h.service.ResolverAutorizacion(c.Request.Context(), id, userID, req)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	mensaje := "Autorización rechazada"
	if req.Aprobada {
		mensaje = "Autorización aprobada"
	}
	h.SuccessMessage(c, f, mensaje)
}

// Liquidar liquidates an invoice.
// POST /facturas/:id/liquidar
func (h *FacturaHandler) Liquidar(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	f, err := h.service.Liquidar(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.SuccessMessage(c, f, "Factura liquidada")
}
