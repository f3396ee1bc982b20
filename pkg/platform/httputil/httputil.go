// Package httputil centralizes the JSON result envelope used by every
// outward-facing operation. Callers of this API branch on the envelope's
// success flag, not on HTTP errors; the status field classifies failures.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "outreach/pkg/domain-errors"
)

// Envelope is the uniform response shape: {success, message, data?, status?}.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// WriteResult writes a success envelope with HTTP 200.
func WriteResult(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError translates a domain error into a failure envelope. Uncoded
// errors are reported as internal without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.HTTPStatus(dErrors.CodeOf(err))
	writeJSON(w, status, Envelope{
		Success: false,
		Message: dErrors.MessageOf(err),
		Status:  status,
	})
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
