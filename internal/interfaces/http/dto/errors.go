package dto

import "net/http"

// Envelope codes that do not come from the domain.
const (
	CodeInternal        = "INTERNAL_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
	CodeNotFound        = "NOT_FOUND"
)

// codeStatus maps domain error codes to HTTP statuses. Codes not listed are
// business rule violations and answer 422.
var codeStatus = map[string]int{
	CodeBadRequest:      http.StatusBadRequest,
	CodeValidation:      http.StatusBadRequest,
	"VALIDATION_ERRORS": http.StatusBadRequest,
	"INVALID_INPUT":     http.StatusBadRequest,
	"INVALID_DATE":      http.StatusBadRequest,
	CodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	CodeNotFound:        http.StatusNotFound,

	"VERSION_CONFLICT":     http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"OPERATION_IN_FLIGHT":  http.StatusConflict,
	"ALREADY_EXISTS":       http.StatusConflict,

	"STORAGE_UNAVAILABLE": http.StatusServiceUnavailable,
	CodeInternal:          http.StatusInternalServerError,
}

// HTTPStatus returns the status for an error code.
func HTTPStatus(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
