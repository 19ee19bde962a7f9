// Package api implements the HTTP REST API for the Gray Logic auth service.
//
// This package provides:
//   - Registration, login and role assignment endpoints returning JWTs
//   - Bearer token middleware and role requirements (any-of / all-of)
//   - Role listing, the caller's current roles and the auth audit trail
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Security
//
// Tokens are validated on every protected request; there is no session
// state. Login failures never reveal whether the username exists.
//
// # Routes
//
//	GET  /api/v1/health
//	GET  /api/v1/metrics
//	POST /api/v1/auth/register
//	POST /api/v1/auth/login
//	GET  /api/v1/auth/me/roles            any valid token
//	POST /api/v1/auth/password            any valid token
//	POST /api/v1/auth/assign-role         Admin
//	GET  /api/v1/roles                    Admin
//	GET  /api/v1/audit                    Admin
//	GET  /api/v1/access/admin-only        Admin
//	GET  /api/v1/access/user-only         User
//	GET  /api/v1/access/admin-or-user     Admin or User
//	GET  /api/v1/access/admin-and-user    Admin and User
package api
