package api

import (
	"net/http"
)

// handleListRoles returns every role in creation order.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.service.ListRoles(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list roles", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"roles": roles,
		"count": len(roles),
	})
}
