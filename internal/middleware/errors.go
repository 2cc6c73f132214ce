package middleware

import (
	"encoding/json"
	"net/http"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// writeError writes the API's standard error envelope for requests the
// middleware rejects before any handler runs.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client is gone if this fails
	json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{Code: code, Message: message}})
}
