package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/database"
)

// RoleRegistry defines role persistence and user-role membership.
type RoleRegistry interface {
	Exists(ctx context.Context, name string) (bool, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, name, description string) (*Role, error)
	EnsureRole(ctx context.Context, name, description string) (*Role, error)
	AssignToUser(ctx context.Context, user *User, name string) error
	RolesOf(ctx context.Context, user *User) ([]string, error)
	CountMembers(ctx context.Context, name string) (int, error)
	AllRoles(ctx context.Context) ([]Role, error)
}

// SQLRoleRegistry implements RoleRegistry on SQLite or PostgreSQL.
type SQLRoleRegistry struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewRoleRegistry creates a role registry.
func NewRoleRegistry(db *sql.DB, dialect database.Dialect) *SQLRoleRegistry {
	return &SQLRoleRegistry{db: db, dialect: dialect}
}

const roleColumns = "id, name, normalized_name, description, created_at"

// Exists reports whether a role with this name (case-insensitive) exists.
func (r *SQLRoleRegistry) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT COUNT(*) FROM roles WHERE normalized_name = ?"),
		Normalize(name),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking role: %w", err)
	}
	return n > 0, nil
}

// FindByName returns the role with this name (case-insensitive).
func (r *SQLRoleRegistry) FindByName(ctx context.Context, name string) (*Role, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT "+roleColumns+" FROM roles WHERE normalized_name = ?"),
		Normalize(name),
	)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("getting role: %w", err)
	}
	return role, nil
}

// Create inserts a new role. A name that differs only in case from an
// existing role is a duplicate.
func (r *SQLRoleRegistry) Create(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}
	if len(name) > maxRoleNameLength {
		return nil, fmt.Errorf("%w: role name exceeds %d characters", ErrValidation, maxRoleNameLength)
	}

	now := nowUTC()
	role := &Role{
		ID:             "rol-" + uuid.NewString(),
		Name:           name,
		NormalizedName: Normalize(name),
		Description:    description,
		CreatedAt:      parseTime(formatTime(now)),
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO roles (`+roleColumns+`) VALUES (?, ?, ?, ?, ?)`),
		role.ID, role.Name, role.NormalizedName, role.Description, formatTime(now),
	)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicateRole
		}
		return nil, fmt.Errorf("creating role: %w", err)
	}
	return role, nil
}

// EnsureRole returns the named role, creating it if absent. Losing a
// creation race to another caller is not an error.
func (r *SQLRoleRegistry) EnsureRole(ctx context.Context, name, description string) (*Role, error) {
	role, err := r.FindByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return nil, err
	}

	role, err = r.Create(ctx, name, description)
	if errors.Is(err, ErrDuplicateRole) {
		return r.FindByName(ctx, name)
	}
	return role, err
}

// AssignToUser adds the named role to the user.
func (r *SQLRoleRegistry) AssignToUser(ctx context.Context, user *User, name string) error {
	if user == nil {
		return ErrUserNotFound
	}

	role, err := r.FindByName(ctx, name)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		r.dialect.Rebind("INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, ?)"),
		user.ID, role.ID, formatTime(nowUTC()),
	)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return ErrAlreadyAssigned
		}
		return fmt.Errorf("assigning role: %w", err)
	}
	return nil
}

// RolesOf returns the names of the user's roles ordered by normalized name.
func (r *SQLRoleRegistry) RolesOf(ctx context.Context, user *User) ([]string, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT r.name FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ?
		 ORDER BY r.normalized_name`),
		user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user roles: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning user role: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user roles: %w", err)
	}
	return names, nil
}

// CountMembers returns how many users hold the named role. An unknown role
// has no members.
func (r *SQLRoleRegistry) CountMembers(ctx context.Context, name string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT COUNT(*) FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE r.normalized_name = ?`),
		Normalize(name),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting role members: %w", err)
	}
	return n, nil
}

// AllRoles returns every role in creation order.
func (r *SQLRoleRegistry) AllRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+roleColumns+" FROM roles ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}
	return roles, nil
}

func scanRole(row scanner) (*Role, error) {
	var role Role
	var createdAt string
	if err := row.Scan(&role.ID, &role.Name, &role.NormalizedName, &role.Description, &createdAt); err != nil {
		return nil, err
	}
	role.CreatedAt = parseTime(createdAt)
	return &role, nil
}
