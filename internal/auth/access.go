package auth

// MatchMode selects how required roles are combined.
type MatchMode int

const (
	// MatchAny allows when the token holds at least one required role.
	MatchAny MatchMode = iota

	// MatchAll allows when the token holds every required role.
	MatchAll
)

// String returns "any" or "all".
func (m MatchMode) String() string {
	if m == MatchAll {
		return "all"
	}
	return "any"
}

// DenyReason says why an access decision was negative.
type DenyReason string

// Deny reasons.
const (
	DenyNone             DenyReason = ""
	DenyInvalidToken     DenyReason = "invalid_token"
	DenyInsufficientRole DenyReason = "insufficient_role"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  DenyReason

	// Claims is set whenever the token was valid, including role denials.
	Claims *Claims
}

// TokenVerifier parses and validates an access token.
type TokenVerifier interface {
	Parse(token string) (*Claims, error)
}

// Authorizer makes role-based access decisions from bearer tokens.
type Authorizer struct {
	verifier TokenVerifier
}

// NewAuthorizer creates an Authorizer backed by verifier.
func NewAuthorizer(verifier TokenVerifier) *Authorizer {
	return &Authorizer{verifier: verifier}
}

// Authorize validates token and checks its roles against required.
// An empty required set allows any valid token.
func (a *Authorizer) Authorize(token string, required []string, mode MatchMode) Decision {
	claims, err := a.verifier.Parse(token)
	if err != nil {
		return Decision{Reason: DenyInvalidToken}
	}
	return CheckRoles(claims, required, mode)
}

// CheckRoles applies the role rule to already-validated claims.
func CheckRoles(claims *Claims, required []string, mode MatchMode) Decision {
	if claims == nil {
		return Decision{Reason: DenyInvalidToken}
	}
	if len(required) == 0 {
		return Decision{Allowed: true, Claims: claims}
	}

	held := make(map[string]bool, len(claims.Roles))
	for _, r := range claims.Roles {
		held[Normalize(r)] = true
	}

	allowed := mode == MatchAll
	for _, r := range required {
		has := held[Normalize(r)]
		if mode == MatchAll && !has {
			allowed = false
			break
		}
		if mode == MatchAny && has {
			allowed = true
			break
		}
	}

	if !allowed {
		return Decision{Reason: DenyInsufficientRole, Claims: claims}
	}
	return Decision{Allowed: true, Claims: claims}
}
