package api

import (
	"net/http"
)

// handleAccessGranted answers the role-gated probe endpoints. Reaching it
// means the route's role requirement passed.
func (s *Server) handleAccessGranted(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"allowed": true,
		"path":    r.URL.Path,
		"user_id": claims.UserID(),
		"roles":   claims.Roles,
	})
}
