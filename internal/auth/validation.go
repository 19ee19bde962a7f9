package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// maxEmailLength matches the practical RFC 5321 limit.
const maxEmailLength = 254

// maxPasswordLength bounds hashing cost for hostile input.
const maxPasswordLength = 128

// RegisterRequest is the input to Service.Register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request shape, then the password policy. It never
// touches storage, so a weak password is reported before any uniqueness
// check.
func (r RegisterRequest) Validate() error {
	if err := wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required,
			validation.Length(1, maxUsernameLength),
			validation.By(usernameRule),
		),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmailLength), is.Email), //nolint:mnd // a@b
		validation.Field(&r.Password, validation.Required, validation.Length(0, maxPasswordLength)),
	)); err != nil {
		return err
	}
	return CheckPasswordPolicy(r.Password)
}

// LoginRequest is the input to Service.Login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks both fields are present.
func (r LoginRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, maxUsernameLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(0, maxPasswordLength)),
	))
}

// AssignRoleRequest is the input to Service.AssignRole.
type AssignRoleRequest struct {
	UserID   string `json:"user_id"`
	RoleName string `json:"role_name"`
}

// Validate checks the target and role name are present.
func (r AssignRoleRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.RoleName, validation.Required, validation.Length(1, maxRoleNameLength)),
	))
}

// ChangePasswordRequest is the input to Service.ChangePassword.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate checks both passwords are present. The new password's strength
// is enforced by the credential store.
func (r ChangePasswordRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required, validation.Length(0, maxPasswordLength)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(0, maxPasswordLength)),
	))
}

func usernameRule(value any) error {
	s, _ := value.(string)
	if s != "" && !IsValidUsername(s) {
		return errors.New("may only contain letters, digits, dots, hyphens and underscores")
	}
	return nil
}

// wrapValidation tags ozzo errors with ErrValidation while keeping the
// per-field map reachable through errors.As.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// FieldErrors extracts per-field messages from a validation failure.
// It returns nil when err carries no field detail.
func FieldErrors(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for name, fe := range verrs {
		if fe != nil {
			fields[name] = fe.Error()
		}
	}
	return fields
}
