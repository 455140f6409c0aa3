package activitymap

import (
	"context"
	"strings"
	"time"

	account "github.com/goliatone/go-account"
)

// MetadataKeyActorType stores the actor type derived from account.ActorRef.Type.
const MetadataKeyActorType = "actor_type"

const (
	defaultChannel    = "account"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Normalized is a transport agnostic activity shape for audit trails.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts an account.ActivityEvent into a Normalized record.
// The object is the account the event is about, the actor falls back to
// that account and then to "system".
func Normalize(event account.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	objectID := strings.TrimSpace(event.AccountID)
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), objectID, options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithChannel sets the channel of normalized records.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type of normalized records.
func WithObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when neither actor nor account ids are set.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func withClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func normalizeMetadata(event account.ActivityEvent) map[string]any {
	var metadata map[string]any
	if len(event.Metadata) > 0 {
		metadata = make(map[string]any, len(event.Metadata)+1)
		for key, value := range event.Metadata {
			metadata[key] = value
		}
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// LogSink is an account.ActivitySink writing normalized records to a logger
type LogSink struct {
	logger account.Logger
	opts   []Option
}

var _ account.ActivitySink = (*LogSink)(nil)

// NewLogSink returns a sink logging every event at info level
func NewLogSink(logger account.Logger, opts ...Option) *LogSink {
	_, logger = account.ResolveLogger("account.activity", nil, logger)
	return &LogSink{logger: logger, opts: opts}
}

func (s *LogSink) Record(ctx context.Context, event account.ActivityEvent) error {
	n := Normalize(event, s.opts...)
	args := []any{
		"verb", n.Verb,
		"actor_id", n.ActorID,
		"object_type", n.ObjectType,
		"object_id", n.ObjectID,
		"channel", n.Channel,
		"occurred_at", n.OccurredAt,
	}
	if len(n.Metadata) > 0 {
		args = append(args, "metadata", n.Metadata)
	}
	s.logger.WithContext(ctx).Info("activity", args...)
	return nil
}
