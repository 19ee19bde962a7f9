package auth

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenIssuer_KeyValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     IssuerConfig
		wantErr error
	}{
		{"missing key", IssuerConfig{Issuer: "i", Audience: "a"}, ErrSigningKeyMissing},
		{"short key", IssuerConfig{SigningKey: []byte("short"), Issuer: "i", Audience: "a"}, ErrSigningKeyWeak},
		{"missing issuer", IssuerConfig{SigningKey: testSigningKey, Audience: "a"}, nil},
		{"missing audience", IssuerConfig{SigningKey: testSigningKey, Issuer: "i"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenIssuer(tt.cfg)
			if err == nil {
				t.Fatal("NewTokenIssuer() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTokenIssuer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	issuer := testIssuer(t)
	if issuer.TTL() != 30*time.Minute {
		t.Errorf("TTL() = %v, want 30m", issuer.TTL())
	}
}

func TestNewTokenIssuer_CopiesKey(t *testing.T) {
	key := append([]byte(nil), testSigningKey...)
	issuer, err := NewTokenIssuer(IssuerConfig{SigningKey: key, Issuer: "i", Audience: "a"})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	token, err := issuer.Issue(&User{ID: "usr-1"}, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	key[0] ^= 0xff
	if _, err := issuer.Parse(token); err != nil {
		t.Errorf("mutating the caller's key affected the issuer: %v", err)
	}
}

func TestTokenIssuer_ClaimsShape(t *testing.T) {
	clock := newTestClock()
	issuer := testIssuer(t, WithClock(clock.Now), WithTokenIDFunc(func() string { return "jti-fixed" }))

	token, err := issuer.Issue(&User{ID: "usr-42"}, []string{"User", "admin", "User"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token should have 3 segments, got %d", len(parts))
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if claims.Subject != "usr-42" || claims.UserID() != "usr-42" {
		t.Errorf("sub = %q, want usr-42", claims.Subject)
	}
	if claims.ID != "jti-fixed" {
		t.Errorf("jti = %q, want jti-fixed", claims.ID)
	}
	if claims.Issuer != "graylogic-auth-test" {
		t.Errorf("iss = %q", claims.Issuer)
	}
	if !reflect.DeepEqual([]string(claims.Audience), []string{"graylogic-api-test"}) {
		t.Errorf("aud = %v", claims.Audience)
	}

	iat := claims.IssuedAt.Time
	if !iat.Equal(clock.Now()) {
		t.Errorf("iat = %v, want %v", iat, clock.Now())
	}
	if !claims.NotBefore.Time.Equal(iat) {
		t.Errorf("nbf = %v, want iat %v", claims.NotBefore.Time, iat)
	}
	if got := claims.ExpiresAt.Time.Sub(iat); got != 30*time.Minute {
		t.Errorf("exp - iat = %v, want 30m", got)
	}

	// One entry per role, de-duplicated, sorted by normalized name.
	if want := []string{"admin", "User"}; !reflect.DeepEqual(claims.Roles, want) {
		t.Errorf("roles = %v, want %v", claims.Roles, want)
	}
	if !claims.HasRole("ADMIN") || claims.HasRole("Auditor") {
		t.Errorf("HasRole mismatch for %v", claims.Roles)
	}
}

func TestTokenIssuer_Lifetime(t *testing.T) {
	clock := newTestClock()
	issuer := testIssuer(t, WithClock(clock.Now))

	token, err := issuer.Issue(&User{ID: "usr-1"}, []string{RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(29 * time.Minute)
	if _, err := issuer.Parse(token); err != nil {
		t.Errorf("Parse() at T+29m error = %v, want valid", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() at T+31m error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenIssuer_NotYetValid(t *testing.T) {
	clock := newTestClock()
	issuer := testIssuer(t, WithClock(clock.Now))

	token, err := issuer.Issue(&User{ID: "usr-1"}, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(-time.Minute)
	if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Parse() before nbf error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	issuer := testIssuer(t)
	user := &User{ID: "usr-1"}

	otherKey, err := NewTokenIssuer(IssuerConfig{
		SigningKey: []byte("another-signing-key-32-bytes-ok!"),
		Issuer:     "graylogic-auth-test",
		Audience:   "graylogic-api-test",
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	otherAudience, err := NewTokenIssuer(IssuerConfig{SigningKey: testSigningKey, Issuer: "graylogic-auth-test", Audience: "elsewhere"})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	otherIssuer, err := NewTokenIssuer(IssuerConfig{SigningKey: testSigningKey, Issuer: "someone-else", Audience: "graylogic-api-test"})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	for name, src := range map[string]*TokenIssuer{"key": otherKey, "audience": otherAudience, "issuer": otherIssuer} {
		t.Run("different "+name, func(t *testing.T) {
			token, err := src.Issue(user, nil)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Parse() error = %v, want ErrTokenInvalid", err)
			}
		})
	}

	// Same key round-trips.
	token, err := issuer.Issue(user, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := issuer.Parse(token); err != nil {
		t.Errorf("Parse(own token) error = %v", err)
	}
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer := testIssuer(t)
	now := time.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "graylogic-auth-test",
		Audience:  jwt.ClaimStrings{"graylogic-api-test"},
		Subject:   "usr-1",
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("signing HS512: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none: %v", err)
	}

	for name, token := range map[string]string{"HS512": hs512, "none": none, "garbage": "not.a.jwt"} {
		if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Parse(%s) error = %v, want ErrTokenInvalid", name, err)
		}
	}
}

func TestTokenIssuer_MissingSubject(t *testing.T) {
	issuer := testIssuer(t)
	if _, err := issuer.Issue(&User{}, nil); !errors.Is(err, ErrIssuance) {
		t.Errorf("Issue(no id) error = %v, want ErrIssuance", err)
	}
	if _, err := issuer.Issue(nil, nil); !errors.Is(err, ErrIssuance) {
		t.Errorf("Issue(nil) error = %v, want ErrIssuance", err)
	}
}

func TestTokenIssuer_IssueResult(t *testing.T) {
	clock := newTestClock()
	issuer := testIssuer(t, WithClock(clock.Now))

	result, err := issuer.IssueResult(&User{ID: "usr-1"}, []string{RoleUser})
	if err != nil {
		t.Fatalf("IssueResult() error = %v", err)
	}
	if result.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", result.TokenType)
	}
	if result.ExpiresIn != 1800 {
		t.Errorf("ExpiresIn = %d, want 1800", result.ExpiresIn)
	}
	if !result.ExpiresAt.Equal(clock.Now().Add(30 * time.Minute)) {
		t.Errorf("ExpiresAt = %v", result.ExpiresAt)
	}
}
