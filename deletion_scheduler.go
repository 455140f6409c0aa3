package account

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// MemoryDeletionScheduler keeps scheduled deletions in process memory.
// Suitable for a single instance deployment.
type MemoryDeletionScheduler struct {
	mu      sync.Mutex
	pending map[string]string
}

func NewMemoryDeletionScheduler() *MemoryDeletionScheduler {
	return &MemoryDeletionScheduler{pending: map[string]string{}}
}

func (s *MemoryDeletionScheduler) Schedule(_ context.Context, sessionID, token string) error {
	if sessionID == "" || token == "" {
		return ErrEmptySchedule
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionID] = token
	return nil
}

func (s *MemoryDeletionScheduler) Consume(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.pending[sessionID]
	if ok {
		delete(s.pending, sessionID)
	}
	return token, ok, nil
}

// DefaultDeletionScheduleTTL bounds how long a deferred deletion waits for
// its session to be torn down
const DefaultDeletionScheduleTTL = time.Hour

// RedisDeletionScheduler shares scheduled deletions across instances.
// Entries expire after the configured TTL.
type RedisDeletionScheduler struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisSchedulerOption configures a RedisDeletionScheduler
type RedisSchedulerOption func(*RedisDeletionScheduler)

func WithRedisKeyPrefix(prefix string) RedisSchedulerOption {
	return func(s *RedisDeletionScheduler) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithRedisScheduleTTL(ttl time.Duration) RedisSchedulerOption {
	return func(s *RedisDeletionScheduler) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewRedisDeletionScheduler(client redis.Cmdable, opts ...RedisSchedulerOption) *RedisDeletionScheduler {
	s := &RedisDeletionScheduler{
		client: client,
		prefix: "account:deletion:",
		ttl:    DefaultDeletionScheduleTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisDeletionScheduler) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisDeletionScheduler) Schedule(ctx context.Context, sessionID, token string) error {
	if sessionID == "" || token == "" {
		return ErrEmptySchedule
	}
	return s.client.Set(ctx, s.key(sessionID), token, s.ttl).Err()
}

func (s *RedisDeletionScheduler) Consume(ctx context.Context, sessionID string) (string, bool, error) {
	token, err := s.client.GetDel(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to consume scheduled deletion")
	}
	return token, true, nil
}
