package anticipo

import (
	"github.com/finanzas/liquidaciones/internal/domain/anticipo"
)

// AnticipoResponse is an advance plus the flags the UI needs to offer actions
type AnticipoResponse struct {
	anticipo.Anticipo
	IsLate                  bool `json:"is_late"`
	HasOpenRequest          bool `json:"has_open_request"`
	CanRequestAuthorization bool `json:"can_request_authorization"`
}

// SolicitarAutorizacionRequest is the body of an advance authorization request
type SolicitarAutorizacionRequest struct {
	Justificacion string `json:"justificacion" binding:"required"`
}

func (s *Service) toResponse(a anticipo.Anticipo) AnticipoResponse {
	return AnticipoResponse{
		Anticipo:                a,
		IsLate:                  anticipo.IsLate(a) || anticipo.IsLateByData(a),
		HasOpenRequest:          s.eligibility.HasOpenRequest(a),
		CanRequestAuthorization: s.eligibility.CanRequestAuthorization(a),
	}
}
