package auth

import (
	"errors"
	"testing"
)

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       RegisterRequest
		wantField string
	}{
		{"valid", RegisterRequest{"alice", "alice@example.com", "Passw0rd!"}, ""},
		{"missing username", RegisterRequest{"", "alice@example.com", "Passw0rd!"}, "username"},
		{"bad username chars", RegisterRequest{"alice smith", "alice@example.com", "Passw0rd!"}, "username"},
		{"missing email", RegisterRequest{"alice", "", "Passw0rd!"}, "email"},
		{"bad email", RegisterRequest{"alice", "not-an-email", "Passw0rd!"}, "email"},
		{"missing password", RegisterRequest{"alice", "alice@example.com", ""}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
			fields := FieldErrors(err)
			if _, ok := fields[tt.wantField]; !ok {
				t.Errorf("FieldErrors() = %v, want entry for %q", fields, tt.wantField)
			}
		})
	}
}

func TestRegisterRequest_ValidateWeakPassword(t *testing.T) {
	err := RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "weak"}.Validate()
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("Validate() error = %v, want ErrWeakPassword", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Error("weak password should not be reported as a shape error")
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	if err := (LoginRequest{Username: "alice", Password: "x"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	err := LoginRequest{}.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
	fields := FieldErrors(err)
	if len(fields) != 2 {
		t.Errorf("FieldErrors() = %v, want username and password", fields)
	}
}

func TestAssignRoleRequest_Validate(t *testing.T) {
	if err := (AssignRoleRequest{UserID: "usr-1", RoleName: "Editor"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (AssignRoleRequest{UserID: "usr-1"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestFieldErrors_NonValidation(t *testing.T) {
	if got := FieldErrors(errors.New("boom")); got != nil {
		t.Errorf("FieldErrors() = %v, want nil", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Alice@Example.com "); got != "ALICE@EXAMPLE.COM" {
		t.Errorf("Normalize() = %q", got)
	}
}

func TestIsValidUsername(t *testing.T) {
	valid := []string{"alice", "a", "user.name", "user-name", "user_name", "User123"}
	invalid := []string{"", "has space", "semi;colon", "way-too-long-" + string(make([]byte, 60))}

	for _, u := range valid {
		if !IsValidUsername(u) {
			t.Errorf("IsValidUsername(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if IsValidUsername(u) {
			t.Errorf("IsValidUsername(%q) = true, want false", u)
		}
	}
}
