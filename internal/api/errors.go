// Package api provides the HTTP handlers and shared response utilities.
package api

import (
	"encoding/json"
	"net/http"
)

// Deterministic reason codes for stable error classification.
// These codes must remain stable across versions for client compatibility.
const (
	ReasonValidation     = "validation_error"
	ReasonAuthentication = "authentication_error"
	ReasonNotFound       = "not_found"
	ReasonConflict       = "conflict"
	ReasonSync           = "sync_error"
	ReasonInternal       = "internal_error"
)

// ErrorEnvelope is the standard error response format.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code       string `json:"code"`        // HTTP status text (e.g., "bad request")
	ReasonCode string `json:"reason_code"` // Deterministic reason code
	Message    string `json:"message"`     // Human-readable message
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: ErrorDetail{
			Code:       http.StatusText(statusCode),
			ReasonCode: reasonCode,
			Message:    message,
		},
	})
}

// WriteValidationError writes a 400 with the validation reason.
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ReasonValidation, message)
}

// WriteUnauthenticated writes a 401.
func WriteUnauthenticated(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ReasonAuthentication, message)
}

// WriteNotFound writes a 404.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ReasonNotFound, message)
}

// WriteConflict writes a conflict as 400, matching the wire contract
// clients already depend on.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ReasonConflict, message)
}

// WriteSyncError writes a failed roster sync as 400.
func WriteSyncError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ReasonSync, message)
}

// WriteInternalError writes a 500. Keep messages free of internals.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ReasonInternal, message)
}
