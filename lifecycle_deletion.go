package account

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DeletionAction is the choice made on the deletion confirmation page
type DeletionAction string

const (
	DeletionConfirm DeletionAction = "confirm"
	DeletionCancel  DeletionAction = "cancel"
)

// AccountDeletionMessage resolves a pending deletion request
type AccountDeletionMessage struct {
	Token   string
	Action  DeletionAction
	Session SessionRef
	Locale  string
}

func (m AccountDeletionMessage) Validate() error {
	if m.Action != DeletionConfirm && m.Action != DeletionCancel {
		return goerrors.New("unknown account deletion action", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"action": string(m.Action)})
	}
	return nil
}

// RequestAccountDeletion mails a deletion link and asks the caller to log
// the session out. Requests inside the retry delay are absorbed.
func (l *Lifecycle) RequestAccountDeletion(ctx context.Context, account *Account, locale string) (*Outcome, error) {
	if err := checkContext(ctx, "account deletion request"); err != nil {
		return nil, err
	}

	success := successOutcome(MsgAccountDeletionRequested, RouteHome).withLogout()

	now := l.now()
	if !IsRetryDelayElapsed(account.AccountDeletionRequestedAt, l.config.GetAccountDeletionRetryDelay(), now) {
		l.record(ctx, ActivityEventRequestAbsorbed, account, map[string]any{"flow": "account_deletion"})
		return success, nil
	}

	token, err := l.issue(ctx, nil, FieldAccountDeletionToken)
	if err != nil {
		return nil, wrapInfra(err, "failed to issue account deletion token")
	}
	account.AccountDeletionToken = strPtr(token)
	account.AccountDeletionRequestedAt = timePtr(now)

	if err := l.accounts().Save(ctx, account); err != nil {
		return nil, wrapInfra(err, "failed to request account deletion")
	}

	l.notify(ctx, Notification{
		Template: TemplateAccountDeletionRequest,
		Locale:   locale,
		Account:  account,
		Params: map[string]any{
			ParamToken:           token,
			ParamLifetimeMinutes: LifetimeMinutes(l.config.GetAccountDeletionTokenLifetime()),
		},
	})
	l.record(ctx, ActivityEventDeletionRequested, account, nil)

	return success, nil
}

// InspectAccountDeletion checks a deletion link before the confirmation
// page is shown
func (l *Lifecycle) InspectAccountDeletion(ctx context.Context, token string) (*Outcome, *Account, error) {
	if err := checkContext(ctx, "account deletion inspection"); err != nil {
		return nil, nil, err
	}

	var (
		out    *Outcome
		target *Account
	)
	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolveAccountDeletion(ctx, tx, cleanIdentifier(token))
		if err != nil || expired {
			out = expiredOutcome(RouteHome)
			return err
		}
		target = account
		out = successOutcome("", "")
		return nil
	})
	if err != nil {
		return nil, nil, wrapInfra(err, "failed to inspect account deletion")
	}
	return out, target, nil
}

// ResolveAccountDeletion confirms or cancels a deletion request.
//
// A confirmation from the session logged in as the account is deferred:
// the deletion is scheduled against the session and the caller must log
// it out, then call OnSessionTeardown. Any other confirmation deletes
// immediately.
func (l *Lifecycle) ResolveAccountDeletion(ctx context.Context, msg AccountDeletionMessage) (*Outcome, error) {
	if err := checkContext(ctx, "account deletion"); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	token := cleanIdentifier(msg.Token)

	var (
		out       *Outcome
		target    *Account
		deleted   bool
		scheduled bool
	)

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolveAccountDeletion(ctx, tx, token)
		if err != nil || expired {
			out = expiredOutcome(RouteHome)
			return err
		}
		target = account

		switch {
		case msg.Action == DeletionCancel:
			account.ClearAccountDeletion()
			if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
				return err
			}
			out = successOutcome(MsgAccountDeletionCanceled, RouteHome)
		case msg.Session.Owns(account):
			scheduled = true
		default:
			if err := l.accounts().DeleteTx(ctx, tx, account); err != nil {
				return err
			}
			deleted = true
			out = successOutcome(MsgAccountDeletionSuccess, RouteHome)
		}
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to resolve account deletion")
	}

	switch {
	case scheduled:
		if err := l.scheduler.Schedule(ctx, msg.Session.ID, token); err != nil {
			return nil, wrapInfra(err, "failed to schedule account deletion")
		}
		l.record(ctx, ActivityEventDeletionScheduled, target, nil)
		out = successOutcome(MsgAccountDeletionPendingLogout, RouteHome).withLogout()
	case deleted:
		l.notify(ctx, Notification{Template: TemplateAccountDeletionSuccess, Locale: msg.Locale, Account: target})
		l.record(ctx, ActivityEventDeleted, target, nil)
	case target != nil && msg.Action == DeletionCancel:
		l.record(ctx, ActivityEventDeletionCanceled, target, nil)
	}
	return out, nil
}

// OnSessionTeardown finishes a deletion deferred by ResolveAccountDeletion.
// It must be called once the session is logged out. A nil Outcome means
// nothing was scheduled for the session. A schedule that outlived the
// deletion token lifetime clears the request instead of deleting.
func (l *Lifecycle) OnSessionTeardown(ctx context.Context, sessionID, locale string) (*Outcome, error) {
	if sessionID == "" {
		return nil, nil
	}

	token, ok, err := l.scheduler.Consume(ctx, sessionID)
	if err != nil {
		return nil, wrapInfra(err, "failed to read scheduled account deletion")
	}
	if !ok || token == "" {
		return nil, nil
	}

	var (
		deleted *Account
		stale   bool
	)
	err = l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// a missing account was canceled or deleted from another session
		account, expired, err := l.resolveAccountDeletion(ctx, tx, token)
		if err != nil || account == nil {
			return err
		}
		if expired {
			stale = true
			return nil
		}
		if err := l.accounts().DeleteTx(ctx, tx, account); err != nil {
			return err
		}
		deleted = account
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to delete account")
	}
	if stale {
		return expiredOutcome(RouteHome), nil
	}
	if deleted == nil {
		return nil, nil
	}

	l.notify(ctx, Notification{Template: TemplateAccountDeletionSuccess, Locale: locale, Account: deleted})
	l.record(ctx, ActivityEventDeleted, deleted, map[string]any{"deferred": true})

	return successOutcome(MsgAccountDeletionSuccess, RouteHome), nil
}

func (l *Lifecycle) resolveAccountDeletion(ctx context.Context, tx bun.IDB, token string) (*Account, bool, error) {
	if token == "" {
		return nil, true, nil
	}

	account, err := l.accounts().GetByFieldTx(ctx, tx, FieldAccountDeletionToken, token)
	if err != nil {
		if IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}

	if IsTokenExpired(account.AccountDeletionRequestedAt, l.config.GetAccountDeletionTokenLifetime(), l.now()) {
		account.ClearAccountDeletion()
		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return nil, false, err
		}
		l.record(ctx, ActivityEventTokenExpired, account, map[string]any{"flow": "account_deletion"})
		return account, true, nil
	}
	return account, false, nil
}
