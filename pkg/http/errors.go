package http

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error kinds surfaced to clients. Clients key retry and
// re-login behavior off these, so they are part of the API contract.
const (
	KindValidation     = "validation_error"
	KindDuplicateEmail = "duplicate_email"
	KindInvalidCreds   = "invalid_credentials"
	KindAccountLocked  = "account_locked"
	KindDeactivated    = "account_deactivated"
	KindInvalidToken   = "invalid_or_expired_token"
	KindUnauthorized   = "unauthorized"
	KindTokenExpired   = "token_expired"
	KindTokenInvalid   = "token_invalid"
	KindForbidden      = "forbidden"
	KindNotFound       = "not_found"
	KindUpstream       = "upstream_failure"
	KindInternal       = "internal_error"
)

// ErrorResponse is the standard API error body.
type ErrorResponse struct {
	Error   string `json:"error"`             // machine-readable kind
	Message string `json:"message"`           // human-readable message
	Details string `json:"details,omitempty"` // optional field-level context
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, errorKind, message string) {
	WriteErrorWithDetails(w, statusCode, errorKind, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorKind, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorKind,
		Message: message,
		Details: details,
	}

	// Encoding errors are not recoverable at this point.
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes a JSON success response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteBadRequest(w http.ResponseWriter, errorKind, message string) {
	WriteError(w, http.StatusBadRequest, errorKind, message)
}

func WriteUnauthorized(w http.ResponseWriter, errorKind, message string) {
	WriteError(w, http.StatusUnauthorized, errorKind, message)
}

func WriteForbidden(w http.ResponseWriter, errorKind, message string) {
	WriteError(w, http.StatusForbidden, errorKind, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, KindNotFound, message)
}

func WriteBadGateway(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, KindUpstream, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, KindInternal, message)
}
