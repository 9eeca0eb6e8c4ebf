package httpx

import (
	"errors"
	"net/http"

	"github.com/bizdesk/bizdesk/internal/shared"
)

// ErrMalformedRequest marks request bodies that could not be decoded.
var ErrMalformedRequest = errors.New("malformed request")

// StatusFor maps the shared error taxonomy to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrDuplicate), errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrBackend):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	detail := shared.UserSafeMessage(err)
	if errors.Is(err, ErrMalformedRequest) {
		detail = "Corpo da requisição inválido."
	}
	Problem(w, status, http.StatusText(status), detail)
}
