package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Well-known roles created at startup.
const (
	// RoleAdmin may assign roles and read the role list and audit log.
	RoleAdmin = "Admin"

	// RoleUser is granted to every account at registration.
	RoleUser = "User"
)

// DefaultRoles are the roles EnsureDefaultRoles creates.
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "Full administrative access"},
	{Name: RoleUser, Description: "Standard account"},
}

// defaultRoleDescription returns the DefaultRoles description for name, or
// "" for roles outside the default set.
func defaultRoleDescription(name string) string {
	for _, def := range DefaultRoles {
		if Normalize(def.Name) == Normalize(name) {
			return def.Description
		}
	}
	return ""
}

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// maxRoleNameLength bounds role names.
const maxRoleNameLength = 64

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Normalize returns the lookup key for a username, email or role name.
// Comparisons between these values always go through Normalize.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// User is a registered account.
type User struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	NormalizedUsername string    `json:"-"`
	Email              string    `json:"email"`
	NormalizedEmail    string    `json:"-"`
	PasswordHash       string    `json:"-"` // never serialised
	SecurityStamp      string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Role is a named group of permissions. Roles are never mutated after creation.
type Role struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

// TokenResult is what a successful register, login or assign-role returns.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"` // seconds
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// Sentinel errors for auth operations.
var (
	ErrValidation             = errors.New("validation failed")
	ErrWeakPassword           = errors.New("password does not meet policy")
	ErrDuplicateUsername      = errors.New("username already exists")
	ErrDuplicateEmail         = errors.New("email already exists")
	ErrDuplicateRole          = errors.New("role already exists")
	ErrAlreadyAssigned        = errors.New("user already has role")
	ErrUserNotFound           = errors.New("user not found")
	ErrRoleNotFound           = errors.New("role not found")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrForbidden              = errors.New("insufficient permissions")
	ErrIssuance               = errors.New("token issuance failed")
	ErrRegistrationIncomplete = errors.New("registration incomplete")
	ErrSigningKeyMissing      = errors.New("signing key is required")
	ErrSigningKeyWeak         = errors.New("signing key is too short")
)
