package transferencia

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
)

// MaxArchivoSize is the largest receipt file accepted (10 MiB)
const MaxArchivoSize int64 = 10 << 20

// DefaultAllowedMimeTypes are the receipt file types accepted
var DefaultAllowedMimeTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/jpg"}

// Archivo describes an uploaded receipt file
type Archivo struct {
	Nombre     string `json:"nombre"`
	MimeType   string `json:"mime_type"`
	Tamano     int64  `json:"tamano"`
	StorageKey string `json:"storage_key,omitempty"`
}

// ArchivoRules are the type and size constraints for receipt files
type ArchivoRules struct {
	AllowedMimeTypes []string
	MaxSize          int64
}

// DefaultArchivoRules returns the default receipt file constraints
func DefaultArchivoRules() ArchivoRules {
	return ArchivoRules{
		AllowedMimeTypes: DefaultAllowedMimeTypes,
		MaxSize:          MaxArchivoSize,
	}
}

// Validate checks the file against the rules before it is uploaded
func (r ArchivoRules) Validate(a Archivo) error {
	maxSize := r.MaxSize
	if maxSize <= 0 {
		maxSize = MaxArchivoSize
	}
	allowed := r.AllowedMimeTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedMimeTypes
	}

	mime := strings.ToLower(strings.TrimSpace(a.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	ok := false
	for _, t := range allowed {
		if mime == strings.ToLower(t) {
			ok = true
			break
		}
	}
	if !ok {
		return shared.NewDomainError("INVALID_FILE_TYPE",
			fmt.Sprintf("Tipo de archivo no permitido (%s): solo PDF, JPG o PNG", extension(a)))
	}
	if a.Tamano <= 0 {
		return shared.NewDomainError("INVALID_FILE", "El archivo está vacío")
	}
	if a.Tamano > maxSize {
		return shared.NewDomainError("FILE_TOO_LARGE",
			fmt.Sprintf("El archivo supera el tamaño máximo de %d MB", maxSize>>20))
	}
	return nil
}

func extension(a Archivo) string {
	if ext := filepath.Ext(a.Nombre); ext != "" {
		return ext
	}
	return a.MimeType
}
