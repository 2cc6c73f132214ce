package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/routetracker/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// errorMapping pairs a domain sentinel with its HTTP status and error code.
// Order matters only for readability; the sentinels are distinct.
var errorMapping = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrInvalidTimestamp, http.StatusUnprocessableEntity, "invalid_timestamp"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
}

// writeError writes an ErrorResponse with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeRequestError answers a request rejected before reaching the service
// layer (malformed path, query or body).
func writeRequestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "validation_error", message)
}

// writeServiceError maps a service error onto the HTTP error surface.
// Store failures and unknown errors are logged and their detail withheld.
// ErrStore wins over any other sentinel in the chain: a corrupt collection
// is a storage fault even when the decoded data fails validation.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrStore) {
		s.log.ErrorContext(r.Context(), "store failure",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusServiceUnavailable, "store_failure", "storage is unavailable, retry later")
		return
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.status, m.code, unwrapMessage(err, m.sentinel))
			return
		}
	}

	s.log.ErrorContext(r.Context(), "unhandled error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.TrackingService.Start: not found: user 7" → "user 7"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 && i+len(marker) < len(msg) {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}
