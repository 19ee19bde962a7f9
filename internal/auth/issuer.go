package auth

import (
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the fixed lifetime of an access token.
const TokenTTL = 30 * time.Minute

// MinSigningKeyLength is the shortest HS256 key NewTokenIssuer accepts (256 bits).
const MinSigningKeyLength = 32

// Claims is the JWT payload of an access token.
type Claims struct {
	jwt.RegisteredClaims

	// Roles holds one entry per role at issuance, sorted by normalized name.
	Roles []string `json:"roles"`
}

// UserID returns the subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// HasRole reports whether the claims carry the role (case-insensitive).
func (c *Claims) HasRole(name string) bool {
	want := Normalize(name)
	for _, r := range c.Roles {
		if Normalize(r) == want {
			return true
		}
	}
	return false
}

// IssuerConfig configures a TokenIssuer.
type IssuerConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
}

// IssuerOption customises a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock overrides the time source used for iat/nbf/exp and validation.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

// WithTokenIDFunc overrides jti generation.
func WithTokenIDFunc(f func() string) IssuerOption {
	return func(i *TokenIssuer) { i.newID = f }
}

// TokenIssuer signs and verifies HS256 access tokens. It is immutable
// after construction and safe for concurrent use.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
	newID    func() string
	parser   *jwt.Parser
}

// NewTokenIssuer validates the configuration and builds an issuer.
// A missing key yields ErrSigningKeyMissing, a key under
// MinSigningKeyLength bytes yields ErrSigningKeyWeak.
func NewTokenIssuer(cfg IssuerConfig, opts ...IssuerOption) (*TokenIssuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, ErrSigningKeyMissing
	}
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrSigningKeyWeak, len(cfg.SigningKey), MinSigningKeyLength)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("token issuer name is required")
	}
	if cfg.Audience == "" {
		return nil, fmt.Errorf("token audience is required")
	}

	i := &TokenIssuer{
		key:      append([]byte(nil), cfg.SigningKey...),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)

	return i, nil
}

// TTL returns the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return TokenTTL
}

// Issue signs an access token for user carrying roles.
func (i *TokenIssuer) Issue(user *User, roles []string) (string, error) {
	token, _, err := i.issue(user, roles)
	return token, err
}

// IssueResult is Issue packaged with its expiry for API responses.
func (i *TokenIssuer) IssueResult(user *User, roles []string) (*TokenResult, error) {
	token, claims, err := i.issue(user, roles)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(TokenTTL / time.Second),
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}, nil
}

func (i *TokenIssuer) issue(user *User, roles []string) (string, *Claims, error) {
	if user == nil || user.ID == "" {
		return "", nil, fmt.Errorf("%w: user id is required", ErrIssuance)
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			Subject:   user.ID,
			ID:        i.newID(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Roles: canonicalRoles(roles),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrIssuance, err)
	}
	return signed, claims, nil
}

// Parse verifies signature, algorithm, issuer, audience and the time
// window with zero leeway. Every failure wraps ErrTokenInvalid.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := i.parser.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.NotBefore == nil {
		return nil, fmt.Errorf("%w: missing nbf", ErrTokenInvalid)
	}
	return claims, nil
}

// canonicalRoles de-duplicates by normalized name and sorts.
func canonicalRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		key := Normalize(r)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool {
		return Normalize(out[a]) < Normalize(out[b])
	})
	return out
}
