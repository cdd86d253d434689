package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
)

var _ transferenciaapp.Gateway = (*Client)(nil)

const fechaLayout = "2006-01-02"

type solicitudPage struct {
	Items []transferenciaapp.SolicitudResponse `json:"items"`
	Total int64                                `json:"total"`
}

func solicitudPath(id uuid.UUID, action string) string {
	p := "/transferencias/" + id.String()
	if action != "" {
		p += "/" + action
	}
	return p
}

// ListSolicitudes returns one page of transfer requests
func (c *Client) ListSolicitudes(ctx context.Context, req transferenciaapp.ListRequest) ([]transferenciaapp.SolicitudResponse, error) {
	q := url.Values{}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.Estado != nil {
		q.Set("estado", string(*req.Estado))
	}
	if req.AreaAprobacionID != nil {
		q.Set("area_aprobacion_id", req.AreaAprobacionID.String())
	}
	if req.FacturaID != nil {
		q.Set("factura_id", req.FacturaID.String())
	}
	var page solicitudPage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/transferencias", query: q}, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetSolicitud returns a transfer request
func (c *Client) GetSolicitud(ctx context.Context, id uuid.UUID) (*transferenciaapp.SolicitudResponse, error) {
	return c.solicitud(ctx, http.MethodGet, solicitudPath(id, ""), nil)
}

// CreateSolicitud creates a transfer request
func (c *Client) CreateSolicitud(ctx context.Context, req transferenciaapp.SolicitudRequest) (*transferenciaapp.SolicitudResponse, error) {
	return c.solicitud(ctx, http.MethodPost, "/transferencias", req)
}

// UpdateSolicitud edits a pending transfer request
func (c *Client) UpdateSolicitud(ctx context.Context, id uuid.UUID, req transferenciaapp.SolicitudRequest) (*transferenciaapp.SolicitudResponse, error) {
	return c.solicitud(ctx, http.MethodPut, solicitudPath(id, ""), req)
}

// AprobarSolicitud approves a pending transfer request
func (c *Client) AprobarSolicitud(ctx context.Context, id uuid.UUID, req transferenciaapp.AprobarRequest) (*transferenciaapp.SolicitudResponse, error) {
	return c.solicitud(ctx, http.MethodPost, solicitudPath(id, "aprobar"), req)
}

// RechazarSolicitud rejects a pending transfer request
func (c *Client) RechazarSolicitud(ctx context.Context, id uuid.UUID, req transferenciaapp.RechazarRequest) (*transferenciaapp.SolicitudResponse, error) {
	return c.solicitud(ctx, http.MethodPost, solicitudPath(id, "rechazar"), req)
}

// CancelarSolicitud cancels a transfer request
func (c *Client) CancelarSolicitud(ctx context.Context, id uuid.UUID, req transferenciaapp.CancelarRequest) (*transferenciaapp.SolicitudResponse, error) {
	return c.solicitud(ctx, http.MethodPost, solicitudPath(id, "cancelar"), req)
}

// RegistrarComprobante registers the bank receipt of an approved request
func (c *Client) RegistrarComprobante(ctx context.Context, id uuid.UUID, req transferenciaapp.ComprobanteRequest, archivo *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error) {
	return c.comprobante(ctx, http.MethodPost, id, req, archivo)
}

// EditarComprobante replaces the receipt data and, if given, its file
func (c *Client) EditarComprobante(ctx context.Context, id uuid.UUID, req transferenciaapp.ComprobanteRequest, archivo *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error) {
	return c.comprobante(ctx, http.MethodPut, id, req, archivo)
}

func (c *Client) solicitud(ctx context.Context, method, path string, payload any) (*transferenciaapp.SolicitudResponse, error) {
	req := request{method: method, path: path}
	if payload != nil {
		body, err := jsonBody(payload)
		if err != nil {
			return nil, err
		}
		req.body = body
	}
	var resp transferenciaapp.SolicitudResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) comprobante(ctx context.Context, method string, id uuid.UUID, req transferenciaapp.ComprobanteRequest, archivo *transferenciaapp.ArchivoUpload) (*transferenciaapp.SolicitudResponse, error) {
	if archivo == nil {
		return c.solicitud(ctx, method, solicitudPath(id, "comprobante"), req)
	}
	body, contentType, err := comprobanteForm(req, archivo)
	if err != nil {
		return nil, err
	}
	var resp transferenciaapp.SolicitudResponse
	err = c.do(ctx, request{method: method, path: solicitudPath(id, "comprobante"), body: body, contentType: contentType}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// comprobanteForm encodes the receipt as multipart/form-data with the file
// in the "archivo" part.
func comprobanteForm(req transferenciaapp.ComprobanteRequest, archivo *transferenciaapp.ArchivoUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"numero_registro_transferencia", req.NumeroRegistro},
		{"fecha_transferencia", req.FechaTransferencia.Format(fechaLayout)},
		{"referencia_bancaria", req.ReferenciaBancaria},
		{"observaciones", req.Observaciones},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="archivo"; filename=%q`, archivo.Nombre))
	mimeType := archivo.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(archivo.Data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
