package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-auth/internal/audit"
	"github.com/nerrad567/gray-logic-auth/internal/auth"
)

// ─── Register ──────────────────────────────────────────────────────

func TestRegister_Success(t *testing.T) {
	env := testServer(t)

	result := env.register(t, "alice")

	if result.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", result.TokenType)
	}
	if result.ExpiresIn != int64((30 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want 1800", result.ExpiresIn)
	}

	claims, err := env.issuer.Parse(result.AccessToken)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleUser {
		t.Errorf("roles = %v, want [User]", claims.Roles)
	}
}

func TestRegister_Errors(t *testing.T) {
	env := testServer(t)
	env.register(t, "alice")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "duplicate username different case",
			body:       map[string]string{"username": "ALICE", "email": "other@example.com", "password": testPassword},
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeConflict,
		},
		{
			name:       "duplicate email",
			body:       map[string]string{"username": "bob", "email": "Alice@Example.com", "password": testPassword},
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeConflict,
		},
		{
			name:       "weak password",
			body:       map[string]string{"username": "carol", "email": "carol@example.com", "password": "password"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeWeakPassword,
			wantField:  "password",
		},
		{
			name:       "invalid email",
			body:       map[string]string{"username": "dave", "email": "not-an-email", "password": testPassword},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
			wantField:  "email",
		},
		{
			name:       "missing username",
			body:       map[string]string{"email": "erin@example.com", "password": testPassword},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
			wantField:  "username",
		},
		{
			name:       "malformed JSON",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"username":"frank","email":"frank@example.com","password":"Passw0rd!","role":"Admin"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			e := decodeError(t, w)
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
			if tt.wantField != "" {
				if _, ok := e.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want entry for %q", e.Fields, tt.wantField)
				}
			}
		})
	}
}

func TestRegister_WeakPasswordCreatesNothing(t *testing.T) {
	env := testServer(t)

	env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "short",
	})

	if _, err := env.creds.FindByUsername(context.Background(), "alice"); err == nil {
		t.Error("account exists after weak-password registration")
	}
}

// ─── Login ─────────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	env := testServer(t)
	env.register(t, "alice")

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "Alice",
		"password": testPassword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	var result auth.TokenResult
	decode(t, w, &result)
	if result.AccessToken == "" {
		t.Fatal("empty access token")
	}
	if _, err := env.issuer.Parse(result.AccessToken); err != nil {
		t.Errorf("login token does not parse: %v", err)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := testServer(t)
	env.register(t, "alice")

	attempts := []map[string]string{
		{"username": "alice", "password": "Wr0ng!pass"},
		{"username": "nobody", "password": testPassword},
		{"username": "", "password": ""},
	}

	var bodies []string
	for _, body := range attempts {
		w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("login %v status = %d, want 401", body, w.Code)
		}
		e := decodeError(t, w)
		if e.Message != "invalid username or password" {
			t.Errorf("message = %q", e.Message)
		}
		bodies = append(bodies, strings.TrimSpace(w.Body.String()))
	}

	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Errorf("login failure bodies differ:\n%s\n%s", bodies[0], bodies[i])
		}
	}
}

// ─── Assign role ───────────────────────────────────────────────────

func TestAssignRole_Success(t *testing.T) {
	env := testServer(t)
	adminToken, _ := env.adminToken(t)
	alice := env.register(t, "alice")
	aliceClaims, _ := env.issuer.Parse(alice.AccessToken)

	w := env.do(t, http.MethodPost, "/api/v1/auth/assign-role", adminToken, map[string]string{
		"user_id":   aliceClaims.UserID(),
		"role_name": "admin",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("assign status = %d, body = %s", w.Code, w.Body.String())
	}

	var result auth.TokenResult
	decode(t, w, &result)
	claims, err := env.issuer.Parse(result.AccessToken)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID() != aliceClaims.UserID() {
		t.Errorf("token subject = %q, want target %q", claims.UserID(), aliceClaims.UserID())
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != auth.RoleAdmin || claims.Roles[1] != auth.RoleUser {
		t.Errorf("roles = %v, want [Admin User]", claims.Roles)
	}

	// The old token still carries only User until it expires.
	w = env.do(t, http.MethodGet, "/api/v1/access/admin-only", alice.AccessToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("stale token admin-only status = %d, want 403", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/v1/access/admin-only", result.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("fresh token admin-only status = %d, want 200", w.Code)
	}
}

func TestAssignRole_Errors(t *testing.T) {
	env := testServer(t)
	adminToken, _ := env.adminToken(t)
	alice := env.register(t, "alice")
	aliceClaims, _ := env.issuer.Parse(alice.AccessToken)

	tests := []struct {
		name       string
		token      string
		body       any
		wantStatus int
	}{
		{"no token", "", map[string]string{"user_id": aliceClaims.UserID(), "role_name": "Admin"}, http.StatusUnauthorized},
		{"garbage token", "not.a.jwt", map[string]string{"user_id": aliceClaims.UserID(), "role_name": "Admin"}, http.StatusUnauthorized},
		{"non-admin caller", alice.AccessToken, map[string]string{"user_id": aliceClaims.UserID(), "role_name": "Admin"}, http.StatusForbidden},
		{"already assigned", adminToken, map[string]string{"user_id": aliceClaims.UserID(), "role_name": "user"}, http.StatusConflict},
		{"unknown user", adminToken, map[string]string{"user_id": "usr-missing", "role_name": "Admin"}, http.StatusNotFound},
		{"missing role name", adminToken, map[string]string{"user_id": aliceClaims.UserID()}, http.StatusBadRequest},
		{"malformed JSON", adminToken, `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/auth/assign-role", tt.token, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code == http.StatusConflict && strings.Contains(w.Body.String(), "access_token") {
				t.Error("conflict response carries a token")
			}
		})
	}
}

func TestAssignRole_CreatesMissingRole(t *testing.T) {
	env := testServer(t)
	adminToken, _ := env.adminToken(t)
	alice := env.register(t, "alice")
	aliceClaims, _ := env.issuer.Parse(alice.AccessToken)

	w := env.do(t, http.MethodPost, "/api/v1/auth/assign-role", adminToken, map[string]string{
		"user_id":   aliceClaims.UserID(),
		"role_name": "Installer",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("assign status = %d, body = %s", w.Code, w.Body.String())
	}

	exists, err := env.roles.Exists(context.Background(), "INSTALLER")
	if err != nil || !exists {
		t.Errorf("Exists(Installer) = %v, %v", exists, err)
	}
}

// ─── Roles, me, audit ──────────────────────────────────────────────

func TestListRoles(t *testing.T) {
	env := testServer(t)
	adminToken, _ := env.adminToken(t)

	w := env.do(t, http.MethodGet, "/api/v1/roles", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("roles status = %d", w.Code)
	}

	var resp struct {
		Roles []auth.Role `json:"roles"`
		Count int         `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 2 || resp.Roles[0].Name != auth.RoleAdmin || resp.Roles[1].Name != auth.RoleUser {
		t.Errorf("roles = %+v", resp)
	}

	user := env.register(t, "alice")
	if w := env.do(t, http.MethodGet, "/api/v1/roles", user.AccessToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("non-admin roles status = %d, want 403", w.Code)
	}
}

func TestMyRoles(t *testing.T) {
	env := testServer(t)
	alice := env.register(t, "alice")

	w := env.do(t, http.MethodGet, "/api/v1/auth/me/roles", alice.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me/roles status = %d", w.Code)
	}

	var resp struct {
		UserID string   `json:"user_id"`
		Roles  []string `json:"roles"`
	}
	decode(t, w, &resp)
	if !strings.HasPrefix(resp.UserID, "usr-") {
		t.Errorf("user_id = %q", resp.UserID)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != auth.RoleUser {
		t.Errorf("roles = %v", resp.Roles)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/auth/me/roles", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me/roles status = %d, want 401", w.Code)
	}
}

func TestAuditLogs(t *testing.T) {
	env := testServer(t)
	adminToken, _ := env.adminToken(t)
	env.register(t, "alice")
	env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "Wr0ng!pass"})

	w := env.do(t, http.MethodGet, "/api/v1/audit?action=login", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d, body = %s", w.Code, w.Body.String())
	}

	var result audit.ListResult
	decode(t, w, &result)
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("login audit entries = %d", result.Total)
	}
	if result.Logs[0].Details["outcome"] != auth.OutcomeFailure {
		t.Errorf("details = %v", result.Logs[0].Details)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/audit?limit=abc", adminToken, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestAuditLogs_NotConfigured(t *testing.T) {
	env := testServer(t)
	adminToken, _ := env.adminToken(t)
	env.srv.auditRepo = nil

	if w := env.do(t, http.MethodGet, "/api/v1/audit", adminToken, nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

// ─── Access probes ─────────────────────────────────────────────────

func TestAccessEndpoints(t *testing.T) {
	env := testServer(t)
	adminToken, admin := env.adminToken(t)
	user := env.register(t, "alice")

	adminOnly, err := env.issuer.Issue(admin, []string{auth.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	noRoles, err := env.issuer.Issue(admin, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/api/v1/access/admin-only", adminToken, http.StatusOK},
		{"/api/v1/access/admin-only", user.AccessToken, http.StatusForbidden},
		{"/api/v1/access/admin-only", "", http.StatusUnauthorized},
		{"/api/v1/access/user-only", user.AccessToken, http.StatusOK},
		{"/api/v1/access/user-only", adminOnly, http.StatusForbidden},
		{"/api/v1/access/admin-or-user", user.AccessToken, http.StatusOK},
		{"/api/v1/access/admin-or-user", adminOnly, http.StatusOK},
		{"/api/v1/access/admin-or-user", noRoles, http.StatusForbidden},
		{"/api/v1/access/admin-and-user", adminToken, http.StatusOK},
		{"/api/v1/access/admin-and-user", adminOnly, http.StatusForbidden},
		{"/api/v1/access/admin-and-user", user.AccessToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, tt.token, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAccess_ExpiredToken(t *testing.T) {
	env := testServer(t)
	_, admin := env.adminToken(t)

	past := time.Now().Add(-time.Hour)
	oldIssuer, err := auth.NewTokenIssuer(auth.IssuerConfig{
		SigningKey: []byte("test-secret-key-at-least-32-characters-long"),
		Issuer:     "graylogic-auth-test",
		Audience:   "graylogic-api-test",
	}, auth.WithClock(func() time.Time { return past }))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	expired, err := oldIssuer.Issue(admin, []string{auth.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/access/admin-only", expired, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Header().Get("WWW-Authenticate"), "invalid_token") {
		t.Errorf("WWW-Authenticate = %q", w.Header().Get("WWW-Authenticate"))
	}
}

// ─── Change password ───────────────────────────────────────────────

func TestChangePassword(t *testing.T) {
	env := testServer(t)
	alice := env.register(t, "alice")
	const newPassword = "N3w-Passw0rd!"

	tests := []struct {
		name       string
		token      string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no token",
			body:       map[string]string{"current_password": testPassword, "new_password": newPassword},
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrCodeUnauthorized,
		},
		{
			name:       "wrong current password",
			token:      alice.AccessToken,
			body:       map[string]string{"current_password": "Wr0ng!pass", "new_password": newPassword},
			wantStatus: http.StatusUnauthorized,
			wantCode:   ErrCodeUnauthorized,
		},
		{
			name:       "weak new password",
			token:      alice.AccessToken,
			body:       map[string]string{"current_password": testPassword, "new_password": "weak"},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeWeakPassword,
		},
		{
			name:       "missing fields",
			token:      alice.AccessToken,
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "unknown field",
			token:      alice.AccessToken,
			body:       map[string]string{"password": newPassword},
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/auth/password", tt.token, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if e := decodeError(t, w); e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}

	w := env.do(t, http.MethodPost, "/api/v1/auth/password", alice.AccessToken, map[string]string{
		"current_password": testPassword,
		"new_password":     newPassword,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("change status = %d, body = %s", w.Code, w.Body.String())
	}

	old := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": testPassword})
	if old.Code != http.StatusUnauthorized {
		t.Errorf("login with old password status = %d, want 401", old.Code)
	}
	fresh := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": newPassword})
	if fresh.Code != http.StatusOK {
		t.Errorf("login with new password status = %d, want 200", fresh.Code)
	}
}
