package anticipo

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// JustificacionMinLength is the minimum length of an authorization justification
const JustificacionMinLength = 20

// DefaultOpenRequestVocabulary are the tracking state names of a request still in progress
var DefaultOpenRequestVocabulary = []string{"pendiente", "en proceso", "en revisión", "en revision"}

// Eligibility decides which advances accept an authorization request.
// Tracking states are compared trimmed, lower-cased and without accents.
type Eligibility struct {
	open map[string]struct{}
}

// NewEligibility creates an Eligibility for the given open-request vocabulary.
// An empty vocabulary uses DefaultOpenRequestVocabulary.
func NewEligibility(vocabulary []string) *Eligibility {
	if len(vocabulary) == 0 {
		vocabulary = DefaultOpenRequestVocabulary
	}
	open := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		if k := normalizeEstado(v); k != "" {
			open[k] = struct{}{}
		}
	}
	return &Eligibility{open: open}
}

var defaultEligibility = NewEligibility(nil)

func normalizeEstado(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// IsLate returns true when the advance is classified as settled late
func IsLate(a Anticipo) bool {
	return a.EstadoLiquidacion == EstadoEnTiempo || a.EstadoLiquidacion == EstadoFueraDeTiempo
}

// IsLateByData returns true when the inclusion motive or the day counts show lateness
func IsLateByData(a Anticipo) bool {
	if a.MotivoInclusion == MotivoFueraDeTiempo {
		return true
	}
	return a.DiasTranscurridos != nil && a.DiasPermitidos != nil &&
		*a.DiasTranscurridos > *a.DiasPermitidos
}

// HasOpenRequest returns true when the latest tracking entry is still open
func (e *Eligibility) HasOpenRequest(a Anticipo) bool {
	if a.UltimoSeguimiento == nil {
		return false
	}
	_, ok := e.open[normalizeEstado(a.UltimoSeguimiento.Estado)]
	return ok
}

// CanRequestAuthorization decides whether the request-authorization action is enabled
func (e *Eligibility) CanRequestAuthorization(a Anticipo) bool {
	if !a.RequiereAutorizacion || e.HasOpenRequest(a) {
		return false
	}
	return IsLate(a) || IsLateByData(a) || a.EstadoLiquidacion == EstadoLiquidado
}

// HasOpenRequest uses the default vocabulary
func HasOpenRequest(a Anticipo) bool {
	return defaultEligibility.HasOpenRequest(a)
}

// CanRequestAuthorization uses the default vocabulary
func CanRequestAuthorization(a Anticipo) bool {
	return defaultEligibility.CanRequestAuthorization(a)
}

// ValidateJustification rejects empty justifications and those under the minimum length
func ValidateJustification(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return shared.NewDomainError("JUSTIFICATION_REQUIRED", "La justificación es obligatoria")
	}
	if utf8.RuneCountInString(trimmed) < JustificacionMinLength {
		return shared.NewDomainError("JUSTIFICATION_TOO_SHORT",
			fmt.Sprintf("La justificación debe tener al menos %d caracteres", JustificacionMinLength))
	}
	return nil
}

// NewSolicitudAutorizacionCmd validates the justification and builds the command
func (e *Eligibility) NewSolicitudAutorizacionCmd(a Anticipo, justificacion string) (SolicitudAutorizacionCmd, error) {
	if err := ValidateJustification(justificacion); err != nil {
		return SolicitudAutorizacionCmd{}, err
	}
	if !e.CanRequestAuthorization(a) {
		return SolicitudAutorizacionCmd{}, shared.NewDomainError("INVALID_STATE",
			"El anticipo no admite una solicitud de autorización en su estado actual")
	}
	return SolicitudAutorizacionCmd{
		IDSolicitud:   a.ID,
		Justificacion: strings.TrimSpace(justificacion),
		Tipo:          TipoSolicitudAutorizacion,
	}, nil
}
