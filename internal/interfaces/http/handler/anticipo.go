package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	anticipoapp "github.com/finanzas/liquidaciones/internal/application/anticipo"
)

// AnticipoService is the advance use cases the handler drives
type AnticipoService interface {
	ListPendientes(ctx context.Context, numeroOrden string) ([]anticipoapp.AnticipoResponse, error)
	SolicitarAutorizacion(ctx context.Context, id uuid.UUID, userID *uuid.UUID, req anticipoapp.SolicitarAutorizacionRequest) ([]anticipoapp.AnticipoResponse, error)
}

// AnticipoHandler handles advance endpoints
type AnticipoHandler struct {
	BaseHandler
	service AnticipoService
}

// NewAnticipoHandler creates a new AnticipoHandler
func NewAnticipoHandler(service AnticipoService) *AnticipoHandler {
	return &AnticipoHandler{service: service}
}

// ListPendientes lists the pending advances of a purchase order.
// GET /ordenes/:orden/anticipos
func (h *AnticipoHandler) ListPendientes(c *gin.Context) {
	list, err := h.service.ListPendientes(c.Request.Context(), c.Param("orden"))
	if err != nil {
		h.HandleError(c, err, "No se encontró la orden")
		return
	}
	if list == nil {
		list = []anticipoapp.AnticipoResponse{}
	}
	h.Success(c, list)
}

// SolicitarAutorizacion requests authorization for a late advance and
// answers with the refreshed pending list of its order.
// POST /anticipos/:id/autorizacion
func (h *AnticipoHandler) SolicitarAutorizacion(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req anticipoapp.SolicitarAutorizacionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	var userID *uuid.UUID
	if uid, ok := currentUser(c); ok {
		userID = &uid
	}
	list, err := h.service.SolicitarAutorizacion(c.Request.Context(), id, userID, req)
	if err != nil {
		h.HandleError(c, err, "No se encontró el anticipo")
		return
	}
	h.SuccessMessage(c, list, "Solicitud de autorización registrada")
}
