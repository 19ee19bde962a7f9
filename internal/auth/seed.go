package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// SeedAdminUsername is the account SeedAdmin creates.
const SeedAdminUsername = "admin"

// seedAdminEmail is a placeholder; operators are expected to replace the account.
const seedAdminEmail = "admin@graylogic.local"

// ErrSeedPasswordUnavailable is returned when SeedAdmin has neither a
// configured password nor a file to write a generated one to.
var ErrSeedPasswordUnavailable = errors.New("seed admin needs a password or a password file")

// SeedOptions controls where the seed admin's initial password comes from.
type SeedOptions struct {
	// Password is used as-is when set and must satisfy CheckPasswordPolicy.
	Password string

	// PasswordFile receives a generated password (mode 0600) when Password
	// is empty.
	PasswordFile string
}

// EnsureDefaultRoles creates Admin and User if they do not exist.
// Running it again is a no-op.
func EnsureDefaultRoles(ctx context.Context, roles RoleRegistry, logger *slog.Logger) error {
	for _, def := range DefaultRoles {
		exists, err := roles.Exists(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("checking role %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if _, err := roles.EnsureRole(ctx, def.Name, def.Description); err != nil {
			return fmt.Errorf("creating role %s: %w", def.Name, err)
		}
		logger.Info("default role created", "role", def.Name)
	}
	return nil
}

// SeedAdmin makes sure some account holds Admin.
//
// When nobody does, it creates the admin account with Admin and User, or
// restores those roles on an admin account an interrupted seed left behind.
// The password is never logged; a generated one is written to
// opts.PasswordFile before the account exists. Returns the new password,
// or "" when no account was created.
func SeedAdmin(ctx context.Context, creds CredentialStore, roles RoleRegistry, events EventSink, logger *slog.Logger, opts SeedOptions) (string, error) {
	started := time.Now()
	admins, err := roles.CountMembers(ctx, RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("checking admin accounts: %w", err)
	}
	if admins > 0 {
		logger.Info("admin account exists, skipping admin seed")
		return "", nil
	}

	existing, err := creds.FindByUsername(ctx, SeedAdminUsername)
	switch {
	case err == nil && existing.NormalizedEmail == Normalize(seedAdminEmail):
		if err := grantSeedRoles(ctx, roles, existing); err != nil {
			return "", err
		}
		logger.Warn("seed admin roles restored", "username", SeedAdminUsername)
		return "", nil
	case err == nil:
		logger.Warn("no account holds Admin and the seed username is taken, skipping admin seed",
			"username", SeedAdminUsername,
		)
		return "", nil
	case !errors.Is(err, ErrUserNotFound):
		return "", fmt.Errorf("looking up seed admin: %w", err)
	}

	if count, err := creds.Count(ctx); err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	} else if count > 0 {
		logger.Warn("no account holds Admin, seeding admin", "existing_users", count)
	}

	password, source, err := seedPassword(opts)
	if err != nil {
		return "", err
	}

	admin, err := creds.Create(ctx, SeedAdminUsername, seedAdminEmail, password)
	if err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}
	if err := grantSeedRoles(ctx, roles, admin); err != nil {
		return "", err
	}

	logger.Warn("seed admin account created",
		"username", SeedAdminUsername,
		"password_source", source,
		"action_required", "change this password immediately",
	)
	if events != nil {
		events.Record(ctx, Event{
			Action:     ActionSeedAdmin,
			Outcome:    OutcomeSuccess,
			UserID:     admin.ID,
			Duration:   time.Since(started),
			OccurredAt: nowUTC(),
		})
	}

	return password, nil
}

// grantSeedRoles gives the seed admin Admin and User, skipping roles it holds.
func grantSeedRoles(ctx context.Context, roles RoleRegistry, admin *User) error {
	for _, role := range []string{RoleAdmin, RoleUser} {
		if _, err := roles.EnsureRole(ctx, role, defaultRoleDescription(role)); err != nil {
			return fmt.Errorf("ensuring role %s: %w", role, err)
		}
		if err := roles.AssignToUser(ctx, admin, role); err != nil && !errors.Is(err, ErrAlreadyAssigned) {
			return fmt.Errorf("assigning %s to seed admin: %w", role, err)
		}
	}
	return nil
}

// seedPassword returns the initial password and a description of where
// the operator can find it.
func seedPassword(opts SeedOptions) (password, source string, err error) {
	if opts.Password != "" {
		return opts.Password, "configuration", nil
	}
	if opts.PasswordFile == "" {
		return "", "", ErrSeedPasswordUnavailable
	}

	password, err = generateSeedPassword()
	if err != nil {
		return "", "", err
	}
	if err := writeSecretFile(opts.PasswordFile, password); err != nil {
		return "", "", err
	}
	return password, opts.PasswordFile, nil
}

// writeSecretFile writes secret to path readable by the owner only.
func writeSecretFile(path, secret string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating seed password directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing seed password file: %w", err)
	}
	// WriteFile keeps the mode of a file that already exists.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting seed password file: %w", err)
	}
	return nil
}

// generateSeedPassword returns a random password that satisfies
// CheckPasswordPolicy.
func generateSeedPassword() (string, error) {
	b := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	// The fixed suffix guarantees one of each required character class.
	return base64.RawURLEncoding.EncodeToString(b) + "aA1!", nil
}
