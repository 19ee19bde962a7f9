package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-auth/internal/auth"
)

// healthCheckTimeout bounds each component probe in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Any valid token
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me/roles", s.handleMyRoles)
			r.Post("/auth/password", s.handleChangePassword)
		})

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requireRoles(auth.MatchAny, auth.RoleAdmin))

			r.Post("/auth/assign-role", s.handleAssignRole)
			r.Get("/roles", s.handleListRoles)
			r.Get("/audit", s.handleListAuditLogs)
		})

		// Role-gated access probes
		r.Route("/access", func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requireRoles(auth.MatchAny, auth.RoleAdmin)).
				Get("/admin-only", s.handleAccessGranted)
			r.With(s.requireRoles(auth.MatchAny, auth.RoleUser)).
				Get("/user-only", s.handleAccessGranted)
			r.With(s.requireRoles(auth.MatchAny, auth.RoleAdmin, auth.RoleUser)).
				Get("/admin-or-user", s.handleAccessGranted)
			r.With(s.requireRoles(auth.MatchAll, auth.RoleAdmin, auth.RoleUser)).
				Get("/admin-and-user", s.handleAccessGranted)
		})
	})

	return r
}

// handleHealth probes every registered component. Any failure turns the
// response into 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(s.healthChecks))

	for name, checker := range s.healthChecks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()

		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
