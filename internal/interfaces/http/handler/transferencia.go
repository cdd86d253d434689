package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/domain/transferencia"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/dto"
)

const (
	msgSolicitudNoEncontrada = "No se encontró la solicitud de transferencia"

	// archivoField is the multipart field carrying the receipt file
	archivoField = "archivo"
)

// TransferenciaService is the transfer request use cases the handler drives
type TransferenciaService interface {
	List(ctx context.Context, req transferenciaapp.ListRequest) (*shared.Paginated[transferenciaapp.SolicitudResponse], error)
	Get(ctx context.Context, id uuid.UUID) (*transferenciaapp.SolicitudResponse, error)
	Create(ctx context.Context, userID uuid.UUID, req transferenciaapp.SolicitudRequest) (*transferenciaapp.SolicitudResponse, error)
	Update(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.SolicitudRequest) (*transferenciaapp.SolicitudResponse, error)
	Aprobar(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.AprobarRequest) (*transferenciaapp.SolicitudResponse, error)
	Rechazar(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.RechazarRequest) (*transferenciaapp.SolicitudResponse, error)
	Cancelar(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.CancelarRequest) (*transferenciaapp.SolicitudResponse, error)
	RegistrarComprobante(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.ComprobanteRequest, upload *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error)
	EditarComprobante(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.ComprobanteRequest, upload *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error)
	ArchivoRules() transferencia.ArchivoRules
}

// TransferenciaHandler handles transfer request endpoints
type TransferenciaHandler struct {
	BaseHandler
	service TransferenciaService
}

// NewTransferenciaHandler creates a new TransferenciaHandler
func NewTransferenciaHandler(service TransferenciaService) *TransferenciaHandler {
	return &TransferenciaHandler{service: service}
}

// listQuery is the raw query of a listing; ids are parsed by hand so a bad
// one yields a clear message.
type listQuery struct {
	Page             int    `form:"page" binding:"omitempty,min=1"`
	PageSize         int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Estado           string `form:"estado" binding:"omitempty,oneof=pendiente_aprobacion aprobada rechazada completada cancelada"`
	AreaAprobacionID string `form:"area_aprobacion_id"`
	FacturaID        string `form:"factura_id"`
}

func optionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// List lists transfer requests.
// GET /transferencias
func (h *TransferenciaHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	req := transferenciaapp.ListRequest{Page: q.Page, PageSize: q.PageSize}
	if q.Estado != "" {
		estado := transferencia.Estado(q.Estado)
		req.Estado = &estado
	}
	var err error
	if req.AreaAprobacionID, err = optionalUUID(q.AreaAprobacionID); err != nil {
		h.BadRequest(c, "El filtro area_aprobacion_id no es válido")
		return
	}
	if req.FacturaID, err = optionalUUID(q.FacturaID); err != nil {
		h.BadRequest(c, "El filtro factura_id no es válido")
		return
	}

	page, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err, msgSolicitudNoEncontrada)
		return
	}
	h.Success(c, dto.NewPage(page.Items, page.Total, page.Page, page.PageSize))
}

// Get returns a transfer request.
// GET /transferencias/:id
func (h *TransferenciaHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	sol, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err, msgSolicitudNoEncontrada)
		return
	}
	h.Success(c, sol)
}

// Create submits a new transfer request.
// POST /transferencias
func (h *TransferenciaHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	var req transferenciaapp.SolicitudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sol, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err, msgFacturaNoEncontrada)
		return
	}
	h.Created(c, sol)
}

// Update corrects a pending transfer request.
// PUT /transferencias/:id
func (h *TransferenciaHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	var req transferenciaapp.SolicitudRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sol, err := h.service.Update(c.Request.Context(), id, userID, req)
	if err != nil {
		h.HandleError(c, err, msgSolicitudNoEncontrada)
		return
	}
	h.Success(c, sol)
}

// Aprobar approves a pending transfer request.
// POST /transferencias/:id/aprobar
func (h *TransferenciaHandler) Aprobar(c *gin.Context) {
	var req transferenciaapp.AprobarRequest
	h.transition(c, &req, true, func(ctx context.Context, id, userID uuid.UUID) (*transferenciaapp.SolicitudResponse, error) {
		return h.service.Aprobar(ctx, id, userID, req)
	}, "Solicitud aprobada")
}

// Rechazar rejects a pending transfer request.
// POST /transferencias/:id/rechazar
func (h *TransferenciaHandler) Rechazar(c *gin.Context) {
	var req transferenciaapp.RechazarRequest
	h.transition(c, &req, false, func(ctx context.Context, id, userID uuid.UUID) (*transferenciaapp.SolicitudResponse, error) {
		return h.service.Rechazar(ctx, id, userID, req)
	}, "Solicitud rechazada")
}

// Cancelar cancels a transfer request.
// POST /transferencias/:id/cancelar
func (h *TransferenciaHandler) Cancelar(c *gin.Context) {
	var req transferenciaapp.CancelarRequest
	h.transition(c, &req, false, func(ctx context.Context, id, userID uuid.UUID) (*transferenciaapp.SolicitudResponse, error) {
		return h.service.Cancelar(ctx, id, userID, req)
	}, "Solicitud cancelada")
}

func (h *TransferenciaHandler) transition(
	c *gin.Context,
	req any,
	optionalBody bool,
	apply func(ctx context.Context, id, userID uuid.UUID) (*transferenciaapp.SolicitudResponse, error),
	mensaje string,
) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	bind := c.ShouldBindJSON
	if optionalBody {
		bind = func(obj any) error { return bindOptionalJSON(c, obj) }
	}
	if err := bind(req); err != nil {
		h.BindError(c, err)
		return
	}
	sol, err := apply(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err, msgSolicitudNoEncontrada)
		return
	}
	h.SuccessMessage(c, sol, mensaje)
}

// RegistrarComprobante registers the receipt of an approved request. The body
// is multipart with an optional "archivo" file, or plain JSON without one.
// POST /transferencias/:id/comprobante
func (h *TransferenciaHandler) RegistrarComprobante(c *gin.Context) {
	h.comprobante(c, h.service.RegistrarComprobante, "Comprobante registrado")
}

// EditarComprobante corrects the receipt of a completed request.
// PUT /transferencias/:id/comprobante
func (h *TransferenciaHandler) EditarComprobante(c *gin.Context) {
	h.comprobante(c, h.service.EditarComprobante, "Comprobante actualizado")
}

type comprobanteFunc func(ctx context.Context, id, userID uuid.UUID, req transferenciaapp.ComprobanteRequest, upload *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error)

func (h *TransferenciaHandler) comprobante(c *gin.Context, apply comprobanteFunc, mensaje string) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		h.UserRequired(c)
		return
	}
	var req transferenciaapp.ComprobanteRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	upload, err := h.readArchivo(c)
	if err != nil {
		h.BindError(c, err)
		return
	}
	sol, err := apply(c.Request.Context(), id, userID, req, upload)
	if err != nil {
		h.HandleError(c, err, msgSolicitudNoEncontrada)
		return
	}
	h.SuccessMessage(c, sol, mensaje)
}

// readArchivo reads the optional receipt file. At most one byte beyond the
// size limit is read, so the domain rule can still report the file as too
// large without buffering all of it.
func (h *TransferenciaHandler) readArchivo(c *gin.Context) (*transferenciaapp.ArchivoUpload, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, nil
	}
	fh, err := c.FormFile(archivoField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	maxSize := h.service.ArchivoRules().MaxSize
	if maxSize <= 0 {
		maxSize = transferencia.MaxArchivoSize
	}
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	return &transferenciaapp.ArchivoUpload{
		Nombre:   fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
