package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Logger is the structured logger used across the package
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Config holds lifecycle options
type Config interface {
	GetWebsiteName() string
	GetDefaultLocale() string
	GetTokenEntropy() int
	GetTokenMaxAttempts() int
	GetPasswordMinLength() int
	GetPasswordMaxLength() int
	GetPasswordResetTokenLifetime() time.Duration
	GetPasswordResetRetryDelay() time.Duration
	GetEmailChangeTokenLifetime() time.Duration
	GetEmailChangeRetryDelay() time.Duration
	GetAccountDeletionTokenLifetime() time.Duration
	GetAccountDeletionRetryDelay() time.Duration
}

// PasswordHasher hashes and verifies credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	// NeedsRehash reports whether hash was produced with parameters that
	// differ from the ones currently configured.
	NeedsRehash(hash string) bool
}

// BreachChecker reports whether a password appears in a breach corpus.
// Implementations must not block on third party latency, and resolve to
// false on any failure.
type BreachChecker interface {
	IsBreached(ctx context.Context, password string) bool
}

// StrengthEstimator scores a password from 0 (guessable) to 4, penalizing
// passwords that resemble the blacklist entries.
type StrengthEstimator interface {
	Score(password string, blacklist []string) int
}

// UniquenessChecker answers whether value is already stored under field
// for the given entity kind (table). IsTakenTx runs the check on tx so
// callers holding a transaction do not need a second connection.
type UniquenessChecker interface {
	IsTaken(ctx context.Context, kind EntityKind, field AccountField, value string) (bool, error)
	IsTakenTx(ctx context.Context, tx bun.IDB, kind EntityKind, field AccountField, value string) (bool, error)
}

// Accounts is the persistence port for Account records
type Accounts interface {
	GetByField(ctx context.Context, field AccountField, value string) (*Account, error)
	GetByFieldTx(ctx context.Context, tx bun.IDB, field AccountField, value string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByLogin(ctx context.Context, login string) (*Account, error)
	GetByLoginTx(ctx context.Context, tx bun.IDB, login string) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	Save(ctx context.Context, record *Account) error
	SaveTx(ctx context.Context, tx bun.IDB, record *Account) error
	Delete(ctx context.Context, record *Account) error
	DeleteTx(ctx context.Context, tx bun.IDB, record *Account) error
	ListUnactivatedBefore(ctx context.Context, before time.Time, limit int) ([]*Account, error)
}

// DeletionScheduler keeps account deletions that must wait for the
// confirming session to be torn down.
type DeletionScheduler interface {
	Schedule(ctx context.Context, sessionID, token string) error
	// Consume returns the token scheduled for sessionID and removes it.
	Consume(ctx context.Context, sessionID string) (string, bool, error)
}

// ActivationReminder re-sends the activation notification for an account
// that tried to log in before activating.
type ActivationReminder interface {
	RemindActivation(ctx context.Context, account *Account, locale string) error
}

// SessionRef identifies the session performing an operation. The zero
// value means the request is anonymous.
type SessionRef struct {
	ID        string
	AccountID uuid.UUID
}

// Owns reports whether the session is authenticated as account
func (s SessionRef) Owns(account *Account) bool {
	if s.ID == "" || account == nil {
		return false
	}
	return s.AccountID != uuid.Nil && s.AccountID == account.ID
}
