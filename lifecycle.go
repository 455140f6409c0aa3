package account

import (
	"context"
	"time"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Lifecycle runs the token gated account flows. Operations return an
// Outcome for every user facing result, errors are reserved for
// infrastructure failures.
type Lifecycle struct {
	repo      RepositoryManager
	hasher    PasswordHasher
	mailer    Mailer
	issuer    *UniqueTokenIssuer
	gate      *PasswordStrengthGate
	scheduler DeletionScheduler
	config    Config
	activity  ActivitySink
	logger    Logger
	provider  LoggerProvider
	now       func() time.Time
	hashedIDs bool
}

// LifecycleOption configures a Lifecycle
type LifecycleOption func(*Lifecycle)

func WithLifecycleConfig(cfg Config) LifecycleOption {
	return func(l *Lifecycle) {
		if cfg != nil {
			l.config = cfg
		}
	}
}

func WithTokenIssuer(issuer *UniqueTokenIssuer) LifecycleOption {
	return func(l *Lifecycle) {
		if issuer != nil {
			l.issuer = issuer
		}
	}
}

func WithStrengthGate(gate *PasswordStrengthGate) LifecycleOption {
	return func(l *Lifecycle) {
		if gate != nil {
			l.gate = gate
		}
	}
}

func WithDeletionScheduler(s DeletionScheduler) LifecycleOption {
	return func(l *Lifecycle) {
		if s != nil {
			l.scheduler = s
		}
	}
}

func WithActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.activity = normalizeActivitySink(sink)
	}
}

func WithLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) LifecycleOption {
	return func(l *Lifecycle) {
		l.provider = provider
	}
}

// WithEmailDerivedIDs derives the ID of new accounts from their email
// address instead of a random UUID
func WithEmailDerivedIDs(enabled bool) LifecycleOption {
	return func(l *Lifecycle) {
		l.hashedIDs = enabled
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLifecycle wires the account flows over repo
func NewLifecycle(repo RepositoryManager, hasher PasswordHasher, mailer Mailer, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		repo:     repo,
		hasher:   hasher,
		mailer:   mailer,
		config:   DefaultSettings(),
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	l.provider, l.logger = ResolveLogger("account.lifecycle", l.provider, l.logger)

	if l.mailer == nil {
		l.mailer = ConsoleMailer{}
	}
	if l.gate == nil {
		l.gate = NewPasswordStrengthGate()
	}
	if l.scheduler == nil {
		l.scheduler = NewMemoryDeletionScheduler()
	}
	if l.issuer == nil {
		l.issuer = NewUniqueTokenIssuer(repo,
			WithIssuerEntropy(l.config.GetTokenEntropy()),
			WithIssuerMaxAttempts(l.config.GetTokenMaxAttempts()),
			WithIssuerLogger(l.provider.GetLogger("account.token_issuer")),
		)
	}
	return l
}

func (l *Lifecycle) accounts() Accounts {
	return l.repo.Accounts()
}

func (l *Lifecycle) locale(locale string) string {
	if locale != "" {
		return locale
	}
	if def := l.config.GetDefaultLocale(); def != "" {
		return def
	}
	return "en"
}

// issue mints a token for field. A non nil tx keeps the uniqueness
// check inside the caller's transaction.
func (l *Lifecycle) issue(ctx context.Context, tx bun.IDB, field AccountField) (string, error) {
	if tx == nil {
		return l.issuer.IssueUnique(ctx, AccountKind, field)
	}
	return l.issuer.IssueUnique(ctx, AccountKind, field, WithTx(tx))
}

// notify sends n and logs delivery failures
func (l *Lifecycle) notify(ctx context.Context, n Notification) {
	n.Locale = l.locale(n.Locale)
	if err := l.mailer.Send(ctx, n); err != nil {
		l.logger.WithContext(ctx).Error("failed to send notification",
			"template", string(n.Template),
			"error", err,
		)
	}
}

func (l *Lifecycle) record(ctx context.Context, eventType ActivityEventType, account *Account, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      accountActor(account),
		Metadata:   metadata,
		OccurredAt: l.now(),
	}
	if account != nil {
		event.AccountID = account.ID.String()
	}
	if err := l.activity.Record(ctx, event); err != nil {
		l.logger.WithContext(ctx).Warn("activity sink failed", "event", string(eventType), "error", err)
	}
}

// validatePassword checks length bounds, the repeat field and the
// strength gate
func (l *Lifecycle) validatePassword(ctx context.Context, password, repeat string, blacklist []string) []Violation {
	if password == "" {
		return []Violation{{Field: "password", Code: CodeBlank}}
	}

	var violations []Violation
	length := utf8.RuneCountInString(password)
	minLength, maxLength := l.config.GetPasswordMinLength(), l.config.GetPasswordMaxLength()

	switch {
	case minLength > 0 && length < minLength:
		violations = append(violations, Violation{Field: "password", Code: CodeTooShort})
	case maxLength > 0 && length > maxLength:
		violations = append(violations, Violation{Field: "password", Code: CodeTooLong})
	default:
		a := l.gate.Assess(ctx, password, blacklist)
		if a.Breached {
			violations = append(violations, Violation{Field: "password", Code: CodeBreached})
		} else if a.Strength == StrengthWeak || a.Strength == StrengthEmpty {
			violations = append(violations, Violation{Field: "password", Code: CodeWeak})
		}
	}

	if password != repeat {
		violations = append(violations, Violation{Field: "password_repeat", Code: CodeMismatch})
	}
	return violations
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+op)
	default:
		return nil
	}
}

func wrapInfra(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
