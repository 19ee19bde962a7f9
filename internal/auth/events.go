package auth

import (
	"context"
	"time"
)

// Event actions.
const (
	ActionRegister   = "register"
	ActionLogin      = "login"
	ActionAssignRole = "assign_role"
	ActionSeedAdmin  = "seed_admin"
	ActionRoleCreate = "role_create"

	ActionPasswordChange = "password_change"
)

// Event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Event describes one auth workflow step for the audit trail, the event
// bus and metrics. It never carries passwords or tokens.
type Event struct {
	Action     string         `json:"action"`
	Outcome    string         `json:"outcome"`
	UserID     string         `json:"user_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`

	// Duration is the time from the start of the workflow to this event.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// EventSink receives workflow events. Implementations must not block the
// caller for long and must not fail the workflow; errors are theirs to log.
type EventSink interface {
	Record(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

// Record implements EventSink.
func (f EventSinkFunc) Record(ctx context.Context, event Event) {
	f(ctx, event)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

// Record implements EventSink.
func (m MultiSink) Record(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, event)
		}
	}
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) Record(context.Context, Event) {}
