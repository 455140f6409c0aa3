package account

import (
	"context"
	"time"
)

// ActivityEventType enumerates lifecycle activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered             ActivityEventType = "account.registered"
	ActivityEventRegistrationDuplicate  ActivityEventType = "account.registration.duplicate"
	ActivityEventActivated              ActivityEventType = "account.activated"
	ActivityEventActivationReminded     ActivityEventType = "account.activation.reminded"
	ActivityEventLoginSuccess           ActivityEventType = "account.login.success"
	ActivityEventLoginFailure           ActivityEventType = "account.login.failure"
	ActivityEventLoginDisabled          ActivityEventType = "account.login.disabled"
	ActivityEventPasswordRehashed       ActivityEventType = "account.password.rehashed"
	ActivityEventPasswordResetRequested ActivityEventType = "account.password_reset.requested"
	ActivityEventPasswordResetSuccess   ActivityEventType = "account.password_reset.completed"
	ActivityEventPasswordChanged        ActivityEventType = "account.password.changed"
	ActivityEventEmailChangeRequested   ActivityEventType = "account.email_change.requested"
	ActivityEventEmailChanged           ActivityEventType = "account.email_change.completed"
	ActivityEventEmailChangeCanceled    ActivityEventType = "account.email_change.canceled"
	ActivityEventDeletionRequested      ActivityEventType = "account.deletion.requested"
	ActivityEventDeletionCanceled       ActivityEventType = "account.deletion.canceled"
	ActivityEventDeletionScheduled      ActivityEventType = "account.deletion.scheduled"
	ActivityEventDeleted                ActivityEventType = "account.deleted"
	ActivityEventTokenExpired           ActivityEventType = "account.token.expired"
	ActivityEventRequestAbsorbed        ActivityEventType = "account.request.absorbed"
	ActivityEventUnactivatedSwept       ActivityEventType = "account.unactivated.swept"
)

// ActorRef identifies who or what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

const (
	ActorTypeAccount = "account"
	ActorTypeSystem  = "system"
)

// ActivityEvent captures audit friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing and telemetry.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiActivitySink fans an event out to every sink, returning the first
// error after all sinks ran
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func accountActor(a *Account) ActorRef {
	if a == nil {
		return ActorRef{Type: ActorTypeSystem}
	}
	return ActorRef{ID: a.ID.String(), Type: ActorTypeAccount}
}
