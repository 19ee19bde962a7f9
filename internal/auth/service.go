package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Actor is the authenticated caller of a privileged workflow.
type Actor struct {
	UserID string
	Roles  []string
}

// ActorFromClaims builds an Actor from validated token claims.
func ActorFromClaims(c *Claims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.Subject, Roles: c.Roles}
}

// ServiceConfig wires a Service to its collaborators.
type ServiceConfig struct {
	Credentials CredentialStore
	Roles       RoleRegistry
	Issuer      *TokenIssuer
	Events      EventSink    // optional
	Logger      *slog.Logger // optional
}

// Service implements the register, login and assign-role workflows.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	creds  CredentialStore
	roles  RoleRegistry
	issuer *TokenIssuer
	events EventSink
	logger *slog.Logger
	now    func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.Roles == nil {
		return nil, fmt.Errorf("role registry is required")
	}
	if cfg.Issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	s := &Service{
		creds:  cfg.Credentials,
		roles:  cfg.Roles,
		issuer: cfg.Issuer,
		events: cfg.Events,
		logger: cfg.Logger,
		now:    time.Now,
	}
	if s.events == nil {
		s.events = nopSink{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Register creates an account holding the User role and returns a token
// for it.
//
// Once the account row exists, any later failure is reported as
// ErrRegistrationIncomplete and the account is kept.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResult, error) {
	started := s.now()
	if err := req.Validate(); err != nil {
		if errors.Is(err, ErrWeakPassword) {
			s.emit(ctx, started, ActionRegister, OutcomeFailure, "", "", map[string]any{"reason": "weak_password"})
		}
		return nil, err
	}

	if _, err := s.creds.FindByUsername(ctx, req.Username); err == nil {
		s.emit(ctx, started, ActionRegister, OutcomeFailure, "", "", map[string]any{"reason": "duplicate_username"})
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	if _, err := s.creds.FindByEmail(ctx, req.Email); err == nil {
		s.emit(ctx, started, ActionRegister, OutcomeFailure, "", "", map[string]any{"reason": "duplicate_email"})
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	user, err := s.creds.Create(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		s.emit(ctx, started, ActionRegister, OutcomeFailure, "", "", map[string]any{"reason": failureReason(err)})
		return nil, err
	}

	result, err := s.grantDefaultRole(ctx, user)
	if err != nil {
		s.logger.Error("registration incomplete", "user_id", user.ID, "error", err)
		s.emit(ctx, started, ActionRegister, OutcomeFailure, user.ID, "", map[string]any{"reason": "incomplete"})
		return nil, fmt.Errorf("%w: %w", ErrRegistrationIncomplete, err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	s.emit(ctx, started, ActionRegister, OutcomeSuccess, user.ID, "", nil)
	return result, nil
}

func (s *Service) grantDefaultRole(ctx context.Context, user *User) (*TokenResult, error) {
	if _, err := s.roles.EnsureRole(ctx, RoleUser, defaultRoleDescription(RoleUser)); err != nil {
		return nil, fmt.Errorf("ensuring default role: %w", err)
	}
	if err := s.roles.AssignToUser(ctx, user, RoleUser); err != nil && !errors.Is(err, ErrAlreadyAssigned) {
		return nil, fmt.Errorf("assigning default role: %w", err)
	}
	return s.issueFor(ctx, user)
}

// Login verifies credentials and returns a token carrying the user's
// current roles. Unknown usernames and wrong passwords are
// indistinguishable: both return ErrInvalidCredentials after one hash
// verification.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResult, error) {
	started := s.now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.creds.FindByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		s.creds.VerifyPassword(nil, req.Password)
		s.emit(ctx, started, ActionLogin, OutcomeFailure, "", "", nil)
		return nil, ErrInvalidCredentials
	}

	if !s.creds.VerifyPassword(user, req.Password) {
		s.emit(ctx, started, ActionLogin, OutcomeFailure, user.ID, "", nil)
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, started, ActionLogin, OutcomeSuccess, user.ID, "", nil)
	return result, nil
}

// AssignRole grants req.RoleName to req.UserID and returns a fresh token
// for the target. The actor must hold Admin. The role is created if it
// does not exist yet. A role the target already holds yields
// ErrAlreadyAssigned and no token.
func (s *Service) AssignRole(ctx context.Context, actor Actor, req AssignRoleRequest) (*TokenResult, error) {
	started := s.now()
	if !(&Claims{Roles: actor.Roles}).HasRole(RoleAdmin) {
		s.emit(ctx, started, ActionAssignRole, OutcomeDenied, req.UserID, actor.UserID, map[string]any{"role": req.RoleName})
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.creds.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.EnsureRole(ctx, req.RoleName, defaultRoleDescription(req.RoleName))
	if err != nil {
		return nil, fmt.Errorf("ensuring role: %w", err)
	}

	held, err := s.roles.RolesOf(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}
	if (&Claims{Roles: held}).HasRole(role.Name) {
		s.emit(ctx, started, ActionAssignRole, OutcomeFailure, user.ID, actor.UserID, map[string]any{"role": role.Name, "reason": "already_assigned"})
		return nil, ErrAlreadyAssigned
	}

	if err := s.roles.AssignToUser(ctx, user, role.Name); err != nil {
		return nil, err
	}

	result, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("role assigned", "user_id", user.ID, "role", role.Name, "actor_id", actor.UserID)
	s.emit(ctx, started, ActionAssignRole, OutcomeSuccess, user.ID, actor.UserID, map[string]any{"role": role.Name})
	return result, nil
}

// ChangePassword replaces the actor's own password after checking the
// current one. Tokens already issued stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, req ChangePasswordRequest) error {
	started := s.now()
	if actor.UserID == "" {
		return ErrTokenInvalid
	}
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.creds.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if !s.creds.VerifyPassword(user, req.CurrentPassword) {
		s.emit(ctx, started, ActionPasswordChange, OutcomeFailure, user.ID, user.ID, map[string]any{"reason": "invalid_credentials"})
		return ErrInvalidCredentials
	}

	if err := s.creds.ChangePassword(ctx, user.ID, req.NewPassword); err != nil {
		s.emit(ctx, started, ActionPasswordChange, OutcomeFailure, user.ID, user.ID, map[string]any{"reason": failureReason(err)})
		return err
	}

	s.logger.Info("password changed", "user_id", user.ID)
	s.emit(ctx, started, ActionPasswordChange, OutcomeSuccess, user.ID, user.ID, nil)
	return nil
}

// ListRoles returns every role in creation order.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.roles.AllRoles(ctx)
}

// RolesOf returns the current role names of the user.
func (s *Service) RolesOf(ctx context.Context, userID string) ([]string, error) {
	user, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.roles.RolesOf(ctx, user)
}

func (s *Service) issueFor(ctx context.Context, user *User) (*TokenResult, error) {
	roles, err := s.roles.RolesOf(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}
	result, err := s.issuer.IssueResult(user, roles)
	if err != nil {
		s.logger.Error("token issuance failed", "user_id", user.ID, "error", err)
		return nil, err
	}
	return result, nil
}

// emit records the outcome of a workflow that began at started.
func (s *Service) emit(ctx context.Context, started time.Time, action, outcome, userID, actorID string, details map[string]any) {
	now := s.now()
	s.events.Record(ctx, Event{
		Action:     action,
		Outcome:    outcome,
		UserID:     userID,
		ActorID:    actorID,
		Details:    details,
		Duration:   now.Sub(started),
		OccurredAt: now.UTC(),
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	default:
		return "error"
	}
}
