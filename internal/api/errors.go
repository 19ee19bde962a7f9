package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-auth/internal/auth"
)

// Error represents a structured error response.
type Error struct {
	Status  int               `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest             = "bad_request"
	ErrCodeNotFound               = "not_found"
	ErrCodeUnauthorized           = "unauthorised"
	ErrCodeForbidden              = "forbidden"
	ErrCodeConflict               = "conflict"
	ErrCodeInternal               = "internal_error"
	ErrCodeValidation             = "validation_error"
	ErrCodeWeakPassword           = "weak_password"
	ErrCodeMethodNotAllow         = "method_not_allowed"
	ErrCodeRegistrationIncomplete = "registration_incomplete"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps an auth workflow error to its HTTP response.
// Unexpected errors are logged and answered with an opaque 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		writeJSON(w, http.StatusBadRequest, Error{
			Status:  http.StatusBadRequest,
			Code:    ErrCodeValidation,
			Message: "request validation failed",
			Fields:  auth.FieldErrors(err),
		})
	case errors.Is(err, auth.ErrWeakPassword):
		writeJSON(w, http.StatusBadRequest, Error{
			Status:  http.StatusBadRequest,
			Code:    ErrCodeWeakPassword,
			Message: err.Error(),
			Fields:  map[string]string{"password": err.Error()},
		})
	case errors.Is(err, auth.ErrDuplicateUsername),
		errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, auth.ErrDuplicateRole),
		errors.Is(err, auth.ErrAlreadyAssigned):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrRoleNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrTokenInvalid):
		writeUnauthorized(w, "invalid or expired token")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "insufficient role")
	case errors.Is(err, auth.ErrRegistrationIncomplete):
		s.logger.Error(op+" left a partial account",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeError(w, http.StatusInternalServerError, ErrCodeRegistrationIncomplete,
			"account created but registration could not be completed")
	default:
		s.logger.Error(op+" failed",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}
