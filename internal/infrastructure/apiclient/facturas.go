package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	liquidacionapp "github.com/finanzas/liquidaciones/internal/application/liquidacion"
	"github.com/finanzas/liquidaciones/internal/domain/liquidacion"
)

var (
	_ liquidacionapp.FacturaGateway = (*Client)(nil)
	_ liquidacionapp.DetalleGateway = (*Client)(nil)
)

// BuscarFactura looks an invoice up by its DTE number
func (c *Client) BuscarFactura(ctx context.Context, numeroDTE string) (*liquidacion.Factura, error) {
	var resp liquidacionapp.FacturaResponse
	err := c.do(ctx, request{method: http.MethodGet, path: "/facturas/dte/" + url.PathEscape(numeroDTE)}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.ToDomain(), nil
}

// EvaluarVencimiento runs the tardiness gate for an invoice
func (c *Client) EvaluarVencimiento(ctx context.Context, facturaID uuid.UUID) (liquidacion.ValidacionVencimiento, error) {
	var resp liquidacionapp.VencimientoResponse
	err := c.do(ctx, request{method: http.MethodGet, path: "/facturas/" + facturaID.String() + "/vencimiento"}, &resp)
	if err != nil {
		return liquidacion.ValidacionVencimiento{}, err
	}
	return resp.ValidacionVencimiento, nil
}

// SolicitarAutorizacion asks for permission to liquidate a late invoice
func (c *Client) SolicitarAutorizacion(ctx context.Context, facturaID uuid.UUID, motivo string) (*liquidacion.Factura, error) {
	body, err := jsonBody(liquidacionapp.SolicitarAutorizacionRequest{Motivo: motivo})
	if err != nil {
		return nil, err
	}
	var resp liquidacionapp.FacturaResponse
	err = c.do(ctx, request{method: http.MethodPost, path: "/facturas/" + facturaID.String() + "/autorizacion", body: body}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.ToDomain(), nil
}

// Liquidar marks an invoice as liquidated
func (c *Client) Liquidar(ctx context.Context, facturaID uuid.UUID) (*liquidacion.Factura, error) {
	var resp liquidacionapp.FacturaResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/facturas/" + facturaID.String() + "/liquidar"}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.ToDomain(), nil
}

// ListDetalles returns the details of an invoice in display order
func (c *Client) ListDetalles(ctx context.Context, facturaID uuid.UUID) ([]liquidacion.Detalle, error) {
	var resp liquidacionapp.DetalleListResponse
	err := c.do(ctx, request{method: http.MethodGet, path: "/facturas/" + facturaID.String() + "/detalles"}, &resp)
	if err != nil {
		return nil, err
	}
	detalles := make([]liquidacion.Detalle, 0, len(resp.Detalles))
	for _, d := range resp.Detalles {
		detalles = append(detalles, d.ToDomain())
	}
	return detalles, nil
}

// CreateDetalle persists a new detail at its position
func (c *Client) CreateDetalle(ctx context.Context, d liquidacion.Detalle) (liquidacion.Detalle, error) {
	posicion := d.Posicion
	body, err := jsonBody(liquidacionapp.CreateDetalleRequest{
		NumeroOrden:   d.NumeroOrden,
		Agencia:       d.Agencia,
		Descripcion:   d.Descripcion,
		Monto:         d.Monto,
		FormaPago:     string(d.FormaPago),
		Banco:         d.Banco,
		NumeroCuenta:  d.NumeroCuenta,
		Beneficiario:  d.Beneficiario,
		NoNegociable:  d.NoNegociable,
		Observaciones: d.Observaciones,
		Posicion:      &posicion,
	})
	if err != nil {
		return liquidacion.Detalle{}, err
	}
	var resp liquidacionapp.DetalleResponse
	err = c.do(ctx, request{method: http.MethodPost, path: "/facturas/" + d.FacturaID.String() + "/detalles", body: body}, &resp)
	if err != nil {
		return liquidacion.Detalle{}, err
	}
	return resp.ToDomain(), nil
}

// UpdateDetalle overwrites every editable field of a persisted detail
func (c *Client) UpdateDetalle(ctx context.Context, d liquidacion.Detalle) (liquidacion.Detalle, error) {
	if !d.IsPersisted() {
		return liquidacion.Detalle{}, errDetalleSinID
	}
	posicion := d.Posicion
	formaPago := d.FormaPago
	body, err := jsonBody(liquidacionapp.UpdateDetalleRequest{
		DetallePatch: liquidacion.DetallePatch{
			NumeroOrden:   &d.NumeroOrden,
			Agencia:       &d.Agencia,
			Descripcion:   &d.Descripcion,
			Monto:         &d.Monto,
			FormaPago:     &formaPago,
			Banco:         &d.Banco,
			NumeroCuenta:  &d.NumeroCuenta,
			Beneficiario:  &d.Beneficiario,
			NoNegociable:  &d.NoNegociable,
			Observaciones: &d.Observaciones,
		},
		Posicion: &posicion,
	})
	if err != nil {
		return liquidacion.Detalle{}, err
	}
	var resp liquidacionapp.DetalleResponse
	err = c.do(ctx, request{method: http.MethodPut, path: "/detalles/" + d.ID.String(), body: body}, &resp)
	if err != nil {
		return liquidacion.Detalle{}, err
	}
	return resp.ToDomain(), nil
}

// DeleteDetalle removes a detail
func (c *Client) DeleteDetalle(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/detalles/" + id.String()}, nil)
}
