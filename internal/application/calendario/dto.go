package calendario

import (
	"github.com/google/uuid"

	"github.com/finanzas/liquidaciones/internal/domain/calendario"
	"github.com/finanzas/liquidaciones/internal/domain/shared"
)

// CreateFeriadoRequest records a holiday
type CreateFeriadoRequest struct {
	Fecha       string `json:"fecha" binding:"required"` // YYYY-MM-DD
	Descripcion string `json:"descripcion" binding:"required,max=200"`
}

// FeriadoResponse is a holiday
type FeriadoResponse struct {
	ID          uuid.UUID `json:"id"`
	Fecha       string    `json:"fecha"`
	Descripcion string    `json:"descripcion"`
}

func toFeriadoResponse(f *calendario.Feriado) FeriadoResponse {
	return FeriadoResponse{
		ID:          f.ID,
		Fecha:       calendario.DiaKey(f.Fecha),
		Descripcion: f.Descripcion,
	}
}

func invalidFecha() error {
	return shared.NewDomainError("INVALID_DATE", "La fecha debe tener el formato AAAA-MM-DD")
}
