// Package dto holds the HTTP envelope shared by every endpoint.
package dto

// Respuesta classifies an envelope.
type Respuesta string

const (
	// RespuestaSuccess means the operation was applied
	RespuestaSuccess Respuesta = "success"
	// RespuestaFail means the request was rejected by validation or a business rule
	RespuestaFail Respuesta = "fail"
	// RespuestaInfo means there was nothing to act on, such as an unknown invoice
	RespuestaInfo Respuesta = "info"
	// RespuestaError means the server could not complete the operation
	RespuestaError Respuesta = "error"
)

// Envelope wraps every response body. Mensaje is either a string or a list of
// strings.
type Envelope struct {
	Respuesta Respuesta `json:"respuesta"`
	Datos     any       `json:"datos,omitempty"`
	Mensaje   any       `json:"mensaje,omitempty"`
	Codigo    string    `json:"codigo,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Success wraps data from an applied operation.
func Success(datos any) Envelope {
	return Envelope{Respuesta: RespuestaSuccess, Datos: datos}
}

// SuccessMessage wraps data together with a confirmation message.
func SuccessMessage(datos any, mensaje string) Envelope {
	return Envelope{Respuesta: RespuestaSuccess, Datos: datos, Mensaje: mensaje}
}

// Info reports that there was nothing to return.
func Info(mensaje string) Envelope {
	return Envelope{Respuesta: RespuestaInfo, Mensaje: mensaje}
}

// Fail reports a rejected request. A single message is sent as a string.
func Fail(codigo string, mensajes ...string) Envelope {
	e := Envelope{Respuesta: RespuestaFail, Codigo: codigo}
	switch len(mensajes) {
	case 0:
	case 1:
		e.Mensaje = mensajes[0]
	default:
		e.Mensaje = mensajes
	}
	return e
}

// Error reports a server-side failure with a generic message.
func Error(mensaje string) Envelope {
	return Envelope{Respuesta: RespuestaError, Codigo: CodeInternal, Mensaje: mensaje}
}

// WithRequestID tags the envelope with the request id.
func (e Envelope) WithRequestID(id string) Envelope {
	e.RequestID = id
	return e
}

// Page is the datos of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes the page count for a listing.
func NewPage[T any](items []T, total int64, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}
