package auth

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-auth/migrations"
)

// testSigningKey is a 32-byte HS256 key.
var testSigningKey = []byte("test-signing-key-32-bytes-long!!")

// testPassword satisfies CheckPasswordPolicy.
const testPassword = "Passw0rd!"

// fastHasher keeps store tests quick; production defaults to Argon2id.
var fastHasher = BcryptHasher{Cost: bcrypt.MinCost}

// testDB opens a temp-file SQLite database with the real schema migrated.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

// testStores returns a credential store and role registry on a fresh database.
func testStores(t *testing.T) (*SQLCredentialStore, *SQLRoleRegistry) {
	t.Helper()
	db := testDB(t)
	return NewCredentialStore(db.DB, db.Dialect(), fastHasher), NewRoleRegistry(db.DB, db.Dialect())
}

// testClock is a settable clock for token lifetime tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testIssuer builds an issuer with the test key and optional options.
func testIssuer(t *testing.T, opts ...IssuerOption) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(IssuerConfig{
		SigningKey: testSigningKey,
		Issuer:     "graylogic-auth-test",
		Audience:   "graylogic-api-test",
	}, opts...)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	return issuer
}

// recordingSink captures events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Record(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action + ":" + e.Outcome
	}
	return out
}

// testService wires a Service over fresh stores with default roles present.
func testService(t *testing.T, opts ...IssuerOption) (*Service, *SQLCredentialStore, *SQLRoleRegistry, *recordingSink) {
	t.Helper()
	creds, roles := testStores(t)
	if err := EnsureDefaultRoles(t.Context(), roles, slog.Default()); err != nil {
		t.Fatalf("EnsureDefaultRoles() error = %v", err)
	}

	sink := &recordingSink{}
	svc, err := NewService(ServiceConfig{
		Credentials: creds,
		Roles:       roles,
		Issuer:      testIssuer(t, opts...),
		Events:      sink,
		Logger:      slog.Default(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, creds, roles, sink
}

// seedTestUser creates a user holding the given roles.
func seedTestUser(t *testing.T, creds *SQLCredentialStore, roles *SQLRoleRegistry, username string, roleNames ...string) *User {
	t.Helper()

	user, err := creds.Create(t.Context(), username, username+"@example.com", testPassword)
	if err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	for _, name := range roleNames {
		if _, err := roles.EnsureRole(t.Context(), name, ""); err != nil {
			t.Fatalf("ensuring role %s: %v", name, err)
		}
		if err := roles.AssignToUser(t.Context(), user, name); err != nil {
			t.Fatalf("assigning %s to %s: %v", name, username, err)
		}
	}
	return user
}
