package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password the policy accepts.
const MinPasswordLength = 6

// CheckPasswordPolicy reports every rule the password breaks.
//
// A password must be at least MinPasswordLength characters and contain a
// digit, a lowercase letter, an uppercase letter and a character that is
// neither a letter nor a digit. The returned error wraps ErrWeakPassword.
func CheckPasswordPolicy(password string) error {
	var hasDigit, hasLower, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	var violations []string
	if len([]rune(password)) < MinPasswordLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if !hasDigit {
		violations = append(violations, "must contain a digit")
	}
	if !hasLower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if !hasUpper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if !hasSymbol {
		violations = append(violations, "must contain a non-alphanumeric character")
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(violations, "; "))
	}
	return nil
}
