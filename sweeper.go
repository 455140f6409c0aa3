package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultSweepPageSize is the number of accounts loaded per sweep page
const DefaultSweepPageSize = 100

// UnactivatedSweeper deletes accounts that were never activated
type UnactivatedSweeper struct {
	repo     RepositoryManager
	pageSize int
	activity ActivitySink
	logger   Logger
	provider LoggerProvider
	now      func() time.Time
}

// SweeperOption configures an UnactivatedSweeper
type SweeperOption func(*UnactivatedSweeper)

func WithSweepPageSize(n int) SweeperOption {
	return func(s *UnactivatedSweeper) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *UnactivatedSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSweeperActivitySink(sink ActivitySink) SweeperOption {
	return func(s *UnactivatedSweeper) {
		s.activity = normalizeActivitySink(sink)
	}
}

func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *UnactivatedSweeper) {
		s.logger = logger
	}
}

func NewUnactivatedSweeper(repo RepositoryManager, opts ...SweeperOption) *UnactivatedSweeper {
	s := &UnactivatedSweeper{
		repo:     repo,
		pageSize: DefaultSweepPageSize,
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.provider, s.logger = ResolveLogger("account.sweeper", s.provider, s.logger)
	return s
}

// Sweep deletes every account created more than olderThan ago and still
// not activated. Pages are loaded until one comes back empty. The deleted
// count is returned even when a later page fails.
func (s *UnactivatedSweeper) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, goerrors.New("sweep age must not be negative", goerrors.CategoryBadInput)
	}

	before := s.now().Add(-olderThan)
	accounts := s.repo.Accounts()
	deleted := 0

	for {
		if err := checkContext(ctx, "unactivated account sweep"); err != nil {
			return deleted, err
		}

		page, err := accounts.ListUnactivatedBefore(ctx, before, s.pageSize)
		if err != nil {
			return deleted, wrapInfra(err, "failed to list unactivated accounts")
		}
		if len(page) == 0 {
			break
		}

		for _, account := range page {
			if err := accounts.Delete(ctx, account); err != nil {
				return deleted, wrapInfra(err, "failed to delete unactivated account")
			}
			deleted++
		}
		s.logger.Debug("swept page", "count", len(page), "total", deleted)
	}

	if deleted > 0 {
		event := ActivityEvent{
			EventType:  ActivityEventUnactivatedSwept,
			Actor:      ActorRef{Type: ActorTypeSystem},
			Metadata:   map[string]any{"count": deleted, "before": before},
			OccurredAt: s.now(),
		}
		if err := s.activity.Record(ctx, event); err != nil {
			s.logger.Warn("activity sink failed", "event", string(event.EventType), "error", err)
		}
	}
	s.logger.Info("unactivated accounts swept", "count", deleted, "before", before)
	return deleted, nil
}
