package audit

import (
	"context"
	"log/slog"

	"github.com/nerrad567/gray-logic-auth/internal/auth"
)

// entityTypeUser is the entity_type for every auth event.
const entityTypeUser = "user"

// Sink writes auth workflow events to the audit log. Write failures are
// logged and swallowed so auditing never fails a request.
type Sink struct {
	repo   Repository
	source string
	logger *slog.Logger
}

// NewSink creates an auth.EventSink backed by repo. source is recorded
// on every row (for example "api" or "bootstrap").
func NewSink(repo Repository, source string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{repo: repo, source: source, logger: logger}
}

// Record implements auth.EventSink.
func (s *Sink) Record(ctx context.Context, event auth.Event) {
	details := map[string]any{"outcome": event.Outcome}
	for k, v := range event.Details {
		details[k] = v
	}

	entry := &AuditLog{
		Action:     event.Action,
		EntityType: entityTypeUser,
		EntityID:   event.UserID,
		UserID:     event.ActorID,
		Source:     s.source,
		Details:    details,
		CreatedAt:  event.OccurredAt,
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("audit write failed", "action", event.Action, "error", err)
	}
}

var _ auth.EventSink = (*Sink)(nil)
