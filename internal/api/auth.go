package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-auth/internal/auth"
)

// decodeJSON reads a JSON body into v. Unknown fields are rejected so
// typos such as "role" instead of "role_name" surface as 400s.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleRegister creates an account and returns its first token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.service.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleLogin exchanges a username and password for a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.service.Login(r.Context(), req)
	if err != nil {
		// Missing fields are reported like a bad password.
		if errors.Is(err, auth.ErrValidation) {
			err = auth.ErrInvalidCredentials
		}
		s.writeServiceError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAssignRole grants a role and returns a fresh token for the target user.
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req auth.AssignRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	actor := auth.ActorFromClaims(claimsFromContext(r.Context()))
	result, err := s.service.AssignRole(r.Context(), actor, req)
	if err != nil {
		s.writeServiceError(w, r, "assign role", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleChangePassword replaces the caller's password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	actor := auth.ActorFromClaims(claimsFromContext(r.Context()))
	if err := s.service.ChangePassword(r.Context(), actor, req); err != nil {
		s.writeServiceError(w, r, "change password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMyRoles returns the caller's roles as currently stored, which may
// differ from the roles in the presented token.
func (s *Server) handleMyRoles(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	roles, err := s.service.RolesOf(r.Context(), claims.UserID())
	if err != nil {
		s.writeServiceError(w, r, "read own roles", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      claims.UserID(),
		"roles":        roles,
		"token_roles":  claims.Roles,
		"token_expiry": claims.ExpiresAt,
	})
}
