package account

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// EmailChangeMessage asks to move account to a new email address
type EmailChangeMessage struct {
	NewEmail string
	Locale   string
}

func (m EmailChangeMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.NewEmail, validation.Required, is.Email),
	)
}

// RequestEmailChange stamps a change token and mails it to the new
// address. The token is stamped even when another account owns the
// address, but then no mail goes out. Either way the caller sees the
// same success.
func (l *Lifecycle) RequestEmailChange(ctx context.Context, account *Account, msg EmailChangeMessage) (*Outcome, error) {
	if err := checkContext(ctx, "email change request"); err != nil {
		return nil, err
	}

	msg.NewEmail = cleanIdentifier(msg.NewEmail)
	if err := msg.Validate(); err != nil {
		return invalidOutcome(ozzoViolations(err, map[string]string{"NewEmail": "email"})), nil
	}

	if strings.EqualFold(msg.NewEmail, account.Email) {
		return rejectedOutcome(MsgEmailChangeAlreadyCurrent, RouteSettings), nil
	}

	success := successOutcome(MsgEmailChangeRequested, RouteSettings)

	now := l.now()
	if !IsRetryDelayElapsed(account.EmailChangeRequestedAt, l.config.GetEmailChangeRetryDelay(), now) {
		l.record(ctx, ActivityEventRequestAbsorbed, account, map[string]any{"flow": "email_change"})
		return success, nil
	}

	// account is only updated once the request is stored
	draft := *account
	var taken bool
	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := l.issue(ctx, tx, FieldEmailChangeToken)
		if err != nil {
			return err
		}

		draft.EmailChangeToken = strPtr(token)
		draft.EmailChangeRequestedAt = timePtr(now)
		draft.EmailChangePending = strPtr(msg.NewEmail)

		_, err = l.accounts().GetByFieldTx(ctx, tx, FieldEmail, msg.NewEmail)
		switch {
		case err == nil:
			taken = true
		case !IsNotFound(err):
			return err
		}

		return l.accounts().SaveTx(ctx, tx, &draft)
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to request email change")
	}
	*account = draft

	if !taken {
		l.notify(ctx, Notification{
			Template: TemplateEmailChange,
			Locale:   msg.Locale,
			Account:  account,
			To:       msg.NewEmail,
			Params: map[string]any{
				ParamToken:           account.TokenFor(FieldEmailChangeToken),
				ParamNewEmail:        msg.NewEmail,
				ParamLifetimeMinutes: LifetimeMinutes(l.config.GetEmailChangeTokenLifetime()),
			},
		})
	}
	l.record(ctx, ActivityEventEmailChangeRequested, account, nil)

	return success, nil
}

// InspectEmailChange checks a change link before the confirmation page
// is shown and returns the account it belongs to
func (l *Lifecycle) InspectEmailChange(ctx context.Context, token string) (*Outcome, *Account, error) {
	if err := checkContext(ctx, "email change inspection"); err != nil {
		return nil, nil, err
	}

	var (
		out    *Outcome
		target *Account
	)
	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolveEmailChange(ctx, tx, cleanIdentifier(token))
		if err != nil || expired {
			out = expiredOutcome(RouteHome)
			return err
		}
		target = account
		out = successOutcome("", "")
		return nil
	})
	if err != nil {
		return nil, nil, wrapInfra(err, "failed to inspect email change")
	}
	return out, target, nil
}

// ConfirmEmailChange applies the pending address unless another account
// took it in the meantime. Pending state is cleared either way.
func (l *Lifecycle) ConfirmEmailChange(ctx context.Context, token string) (*Outcome, error) {
	if err := checkContext(ctx, "email change"); err != nil {
		return nil, err
	}

	var (
		out     *Outcome
		changed *Account
	)

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolveEmailChange(ctx, tx, cleanIdentifier(token))
		if err != nil || expired {
			out = expiredOutcome(RouteHome)
			return err
		}

		if account.EmailChangePending != nil {
			pending := *account.EmailChangePending
			_, err := l.accounts().GetByFieldTx(ctx, tx, FieldEmail, pending)
			switch {
			case IsNotFound(err):
				account.Email = pending
				changed = account
			case err != nil:
				return err
			}
		}

		account.ClearEmailChange()
		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return err
		}
		out = successOutcome(MsgEmailChangeSuccess, RouteHome)
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to change email")
	}

	if changed != nil {
		l.record(ctx, ActivityEventEmailChanged, changed, nil)
	}
	return out, nil
}

// CancelEmailChange drops the pending address without applying it
func (l *Lifecycle) CancelEmailChange(ctx context.Context, token string) (*Outcome, error) {
	if err := checkContext(ctx, "email change cancellation"); err != nil {
		return nil, err
	}

	var (
		out      *Outcome
		canceled *Account
	)

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolveEmailChange(ctx, tx, cleanIdentifier(token))
		if err != nil || expired {
			out = expiredOutcome(RouteHome)
			return err
		}

		account.ClearEmailChange()
		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return err
		}
		canceled = account
		out = successOutcome(MsgEmailChangeCanceled, RouteHome)
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to cancel email change")
	}

	if canceled != nil {
		l.record(ctx, ActivityEventEmailChangeCanceled, canceled, nil)
	}
	return out, nil
}

func (l *Lifecycle) resolveEmailChange(ctx context.Context, tx bun.IDB, token string) (*Account, bool, error) {
	if token == "" {
		return nil, true, nil
	}

	account, err := l.accounts().GetByFieldTx(ctx, tx, FieldEmailChangeToken, token)
	if err != nil {
		if IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}

	if IsTokenExpired(account.EmailChangeRequestedAt, l.config.GetEmailChangeTokenLifetime(), l.now()) {
		account.ClearEmailChange()
		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return nil, false, err
		}
		l.record(ctx, ActivityEventTokenExpired, account, map[string]any{"flow": "email_change"})
		return account, true, nil
	}
	return account, false, nil
}
