package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
)

const msgDetalleNoEncontrado = "No se encontró el detalle de liquidación"

// DetalleService is the liquidation detail use cases the handler drives
type DetalleService interface {
	List(ctx context.Context, facturaID uuid.UUID) (*liquidacionapp.DetalleListResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*liquidacionapp.DetalleResponse, error)
	Create(ctx context.Context, facturaID uuid.UUID, req liquidacionapp.CreateDetalleRequest) (*liquidacionapp.DetalleResponse, error)
	Update(ctx context.Context, id uuid.UUID, req liquidacionapp.UpdateDetalleRequest) (*liquidacionapp.DetalleResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Copy(ctx context.Context, id uuid.UUID, req liquidacionapp.CopyDetalleRequest) (*liquidacionapp.DetalleResponse, error)
}

// DetalleHandler handles liquidation detail endpoints
type DetalleHandler struct {
	BaseHandler
	service DetalleService
}

// NewDetalleHandler creates a new DetalleHandler
func NewDetalleHandler(service DetalleService) *DetalleHandler {
	return &DetalleHandler{service: service}
}

// List returns the details of an invoice with the reconciliation summary.
// GET /facturas/:id/detalles
func (h *DetalleHandler) List(c *gin.Context) {
	facturaID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), facturaID)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.Success(c, list)
}

// GetByID returns a detail.
// GET /detalles/:id
func (h *DetalleHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err, msgDetalleNoEncontrado)
		return
	}
	h.Success(c, d)
}

// Create adds a detail to an invoice.
// POST /facturas/:id/detalles
func (h *DetalleHandler) Create(c *gin.Context) {
	facturaID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req liquidacionapp.CreateDetalleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	d, err := h.service.Create(c.Request.Context(), facturaID, req)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.Created(c, d)
}

// Update applies a partial update to a detail.
// PUT /detalles/:id
func (h *DetalleHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req liquidacionapp.UpdateDetalleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	d, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err, msgDetalleNoEncontrado)
		return
	}
	h.Success(c, d)
}

// Delete removes a detail.
// DELETE /detalles/:id
func (h *DetalleHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err, msgDetalleNoEncontrado)
		return
	}
	h.SuccessMessage(c, nil, "Detalle eliminado")
}

// Copy duplicates a detail right after the original.
// POST /detalles/:id/copiar
func (h *DetalleHandler) Copy(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req liquidacionapp.CopyDetalleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindError(c, err)
		return
	}
	d, err := h.service.Copy(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err, msgDetalleNoEncontrado)
		return
	}
	h.Created(c, d)
}
