package account

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// LoginStore is the subset of Accounts the authenticator needs
type LoginStore interface {
	GetByLogin(ctx context.Context, login string) (*Account, error)
	Save(ctx context.Context, record *Account) error
}

// Authenticator verifies login credentials
type Authenticator struct {
	store    LoginStore
	hasher   PasswordHasher
	reminder ActivationReminder
	activity ActivitySink
	logger   Logger
	provider LoggerProvider
	now      func() time.Time

	decoyOnce sync.Once
	decoy     string
}

// decoyPassword seeds the hash unknown logins are verified against
const decoyPassword = "account decoy password"

// NewAuthenticator returns an authenticator over store. Accounts that
// never activated are reminded through reminder when it is set.
func NewAuthenticator(store LoginStore, hasher PasswordHasher, reminder ActivationReminder) *Authenticator {
	provider, logger := ResolveLogger("account.authenticator", nil, nil)
	return &Authenticator{
		store:    store,
		hasher:   hasher,
		reminder: reminder,
		activity: noopActivitySink{},
		logger:   logger,
		provider: provider,
		now:      time.Now,
	}
}

func (a *Authenticator) WithLogger(l Logger) *Authenticator {
	a.provider, a.logger = ResolveLogger("account.authenticator", a.provider, l)
	return a
}

// WithLoggerProvider overrides the logger provider used by the authenticator.
func (a *Authenticator) WithLoggerProvider(provider LoggerProvider) *Authenticator {
	a.provider, a.logger = ResolveLogger("account.authenticator", provider, nil)
	return a
}

func (a *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	a.activity = normalizeActivitySink(sink)
	return a
}

func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		a.now = now
	}
	return a
}

// Authenticate resolves login and checks password.
//
// Unknown logins and wrong passwords both return ErrInvalidCredentials,
// and both pay for a hash computation. Valid credentials of an account
// that never activated return ErrAccountDisabled and re-send the
// activation link. After a successful check the stored hash is upgraded
// when the hasher parameters changed.
func (a *Authenticator) Authenticate(ctx context.Context, login, password, locale string) (*Account, error) {
	if err := checkContext(ctx, "authentication"); err != nil {
		return nil, err
	}

	login = cleanIdentifier(login)
	password = cleanPassword(password)
	logger := a.logger.WithContext(ctx)

	account, err := a.store.GetByLogin(ctx, login)
	if err != nil {
		if !IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during authentication")
		}
		a.decoyHash(password)
		a.record(ctx, ActivityEventLoginFailure, nil, map[string]any{"reason": "unknown_login"})
		return nil, ErrInvalidCredentials
	}

	ok, err := a.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		logger.Warn("stored password hash could not be verified", "account_id", account.ID.String(), "error", err)
	}
	if !ok {
		a.record(ctx, ActivityEventLoginFailure, account, map[string]any{"reason": "invalid_password"})
		return nil, ErrInvalidCredentials
	}

	if !account.Activated {
		if a.reminder != nil {
			if err := a.reminder.RemindActivation(ctx, account, locale); err != nil {
				logger.Error("failed to send activation reminder", "account_id", account.ID.String(), "error", err)
			}
		}
		a.record(ctx, ActivityEventLoginDisabled, account, nil)
		return nil, ErrAccountDisabled
	}

	if password != "" && a.hasher.NeedsRehash(account.PasswordHash) {
		a.rehash(ctx, account, password)
	}

	a.record(ctx, ActivityEventLoginSuccess, account, nil)
	return account, nil
}

// decoyHash verifies password against a hash made once with the current
// hasher so unknown logins cost the same as a wrong password
func (a *Authenticator) decoyHash(password string) {
	a.decoyOnce.Do(func() {
		hash, err := a.hasher.Hash(decoyPassword)
		if err != nil {
			a.logger.Error("failed to prepare decoy hash", "error", err)
			return
		}
		a.decoy = hash
	})
	_, _ = a.hasher.Verify(password, a.decoy)
}

func (a *Authenticator) rehash(ctx context.Context, account *Account, password string) {
	hash, err := a.hasher.Hash(password)
	if err != nil {
		a.logger.Error("failed to rehash password", "account_id", account.ID.String(), "error", err)
		return
	}

	previous := account.PasswordHash
	account.PasswordHash = hash
	if err := a.store.Save(ctx, account); err != nil {
		account.PasswordHash = previous
		a.logger.Error("failed to store rehashed password", "account_id", account.ID.String(), "error", err)
		return
	}
	a.record(ctx, ActivityEventPasswordRehashed, account, nil)
}

func (a *Authenticator) record(ctx context.Context, eventType ActivityEventType, account *Account, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      accountActor(account),
		Metadata:   metadata,
		OccurredAt: a.now(),
	}
	if account != nil {
		event.AccountID = account.ID.String()
	}
	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink failed", "event", string(eventType), "error", err)
	}
}
