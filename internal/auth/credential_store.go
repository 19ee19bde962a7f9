package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/database"
)

// dummyPassword is hashed once to give unknown-user logins a comparable cost.
const dummyPassword = "graylogic-dummy-password"

// CredentialStore defines persistence of user accounts and their secrets.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, username, email, password string) (*User, error)
	ChangePassword(ctx context.Context, id, newPassword string) error
	Count(ctx context.Context) (int, error)

	// VerifyPassword reports whether password matches the user's stored
	// hash. A nil user still costs one hash verification and returns false.
	VerifyPassword(user *User, password string) bool
}

// SQLCredentialStore implements CredentialStore on SQLite or PostgreSQL.
type SQLCredentialStore struct {
	db      *sql.DB
	dialect database.Dialect
	hasher  Hasher

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialStore creates a credential store. A nil hasher selects Argon2id.
func NewCredentialStore(db *sql.DB, dialect database.Dialect, hasher Hasher) *SQLCredentialStore {
	if hasher == nil {
		hasher = Argon2idHasher{}
	}
	return &SQLCredentialStore{db: db, dialect: dialect, hasher: hasher}
}

const userColumns = "id, username, normalized_username, email, normalized_email, password_hash, security_stamp, created_at, updated_at"

// FindByUsername looks a user up by case-insensitive username.
func (s *SQLCredentialStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE normalized_username = ?", Normalize(username))
}

// FindByEmail looks a user up by case-insensitive email.
func (s *SQLCredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE normalized_email = ?", Normalize(email))
}

// FindByID looks a user up by ID.
func (s *SQLCredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// Create enforces the password policy, hashes the password and inserts
// the account. Uniqueness of username and email is decided by the
// database constraints, so concurrent callers racing on the same name
// see exactly one success.
func (s *SQLCredentialStore) Create(ctx context.Context, username, email, password string) (*User, error) {
	if err := CheckPasswordPolicy(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := nowUTC()
	user := &User{
		ID:                 "usr-" + uuid.NewString(),
		Username:           username,
		NormalizedUsername: Normalize(username),
		Email:              email,
		NormalizedEmail:    Normalize(email),
		PasswordHash:       hash,
		SecurityStamp:      uuid.NewString(),
		CreatedAt:          parseTime(formatTime(now)),
	}
	user.UpdatedAt = user.CreatedAt

	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.NormalizedUsername,
		user.Email, user.NormalizedEmail,
		user.PasswordHash, user.SecurityStamp,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, s.classifyDuplicate(ctx, user.NormalizedUsername)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// classifyDuplicate decides which unique column a failed insert collided on.
func (s *SQLCredentialStore) classifyDuplicate(ctx context.Context, normalizedUsername string) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind("SELECT COUNT(*) FROM users WHERE normalized_username = ?"),
		normalizedUsername,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDuplicateUsername, err)
	}
	if n > 0 {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// ChangePassword enforces the policy, rehashes and rotates the security stamp.
func (s *SQLCredentialStore) ChangePassword(ctx context.Context, id, newPassword string) error {
	if err := CheckPasswordPolicy(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		"UPDATE users SET password_hash = ?, security_stamp = ?, updated_at = ? WHERE id = ?"),
		hash, uuid.NewString(), formatTime(nowUTC()), id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the number of accounts.
func (s *SQLCredentialStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// VerifyPassword implements CredentialStore.
func (s *SQLCredentialStore) VerifyPassword(user *User, password string) bool {
	if user == nil {
		s.dummyOnce.Do(func() {
			s.dummyHash, _ = s.hasher.Hash(dummyPassword) //nolint:errcheck // empty hash just fails verification
		})
		_, _ = VerifyPassword(password, s.dummyHash) //nolint:errcheck // result discarded
		return false
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	return err == nil && ok
}

func (s *SQLCredentialStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(query), arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

func scanUser(row scanner) (*User, error) {
	var u User
	var createdAt, updatedAt string

	if err := row.Scan(&u.ID, &u.Username, &u.NormalizedUsername,
		&u.Email, &u.NormalizedEmail, &u.PasswordHash, &u.SecurityStamp,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}
