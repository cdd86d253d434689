package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	calendarioapp "github.com/finanzas/liquidaciones/internal/application/calendario"
)

// FeriadoService is the holiday calendar administration
type FeriadoService interface {
	List(ctx context.Context, year int) ([]calendarioapp.FeriadoResponse, error)
	Create(ctx context.Context, req calendarioapp.CreateFeriadoRequest) (*calendarioapp.FeriadoResponse, error)
	Delete(ctx context.Context, id uuid.UUID, year int) error
}

// FeriadoHandler handles holiday calendar endpoints
type FeriadoHandler struct {
	BaseHandler
	service FeriadoService
	now     func() time.Time
}

// NewFeriadoHandler creates a new FeriadoHandler
func NewFeriadoHandler(service FeriadoService) *FeriadoHandler {
	return &FeriadoHandler{service: service, now: time.Now}
}

// yearQuery reads ?anio=, defaulting to the current year
func (h *FeriadoHandler) yearQuery(c *gin.Context) (int, bool) {
	raw := c.Query("anio")
	if raw == "" {
		return h.now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		h.BadRequest(c, "El año indicado no es válido")
		return 0, false
	}
	return year, true
}

// List returns the holidays of a year.
// GET /feriados?anio=
func (h *FeriadoHandler) List(c *gin.Context) {
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), year)
	if err != nil {
		h.HandleError(c, err, "No hay feriados registrados")
		return
	}
	if list == nil {
		list = []calendarioapp.FeriadoResponse{}
	}
	h.Success(c, list)
}

// Create records a holiday.
// POST /feriados
func (h *FeriadoHandler) Create(c *gin.Context) {
	var req calendarioapp.CreateFeriadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	f, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err, "No se encontró el feriado")
		return
	}
	h.Created(c, f)
}

// Delete removes a holiday. The year names the cached calendar to refresh.
// DELETE /feriados/:id?anio=
func (h *FeriadoHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	year, ok := h.yearQuery(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, year); err != nil {
		h.HandleError(c, err, "No se encontró el feriado")
		return
	}
	h.SuccessMessage(c, nil, "Feriado eliminado")
}
