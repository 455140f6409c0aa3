package account

import (
	"context"

	"github.com/uptrace/bun"
)

// PasswordResetRequestMessage asks for a reset link
type PasswordResetRequestMessage struct {
	// Login is an email or a business username
	Login  string
	Locale string
}

// PasswordResetMessage is the reset form submission
type PasswordResetMessage struct {
	Token          string
	Password       string
	PasswordRepeat string
}

func (l *Lifecycle) blacklistFor(account *Account, extra ...string) []string {
	values := account.PasswordBlacklist(extra...)
	if name := l.config.GetWebsiteName(); name != "" {
		values = append([]string{name}, values...)
	}
	return values
}

// RequestPasswordReset mails a reset link to the account matching the
// login. Unknown logins and requests inside the retry delay report the
// same success without side effects.
func (l *Lifecycle) RequestPasswordReset(ctx context.Context, msg PasswordResetRequestMessage) (*Outcome, error) {
	if err := checkContext(ctx, "password reset request"); err != nil {
		return nil, err
	}

	success := successOutcome(MsgPasswordResetEmailSent, "")
	login := cleanIdentifier(msg.Login)
	if login == "" {
		return success, nil
	}

	var (
		requested *Account
		absorbed  *Account
	)

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := l.accounts().GetByLoginTx(ctx, tx, login)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}

		now := l.now()
		if !IsRetryDelayElapsed(account.PasswordResetRequestedAt, l.config.GetPasswordResetRetryDelay(), now) {
			absorbed = account
			return nil
		}

		token, err := l.issue(ctx, tx, FieldPasswordResetToken)
		if err != nil {
			return err
		}
		account.PasswordResetToken = strPtr(token)
		account.PasswordResetRequestedAt = timePtr(now)

		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return err
		}
		requested = account
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to request password reset")
	}

	switch {
	case requested != nil:
		l.notify(ctx, Notification{
			Template: TemplatePasswordResetRequest,
			Locale:   msg.Locale,
			Account:  requested,
			Params: map[string]any{
				ParamToken:           requested.TokenFor(FieldPasswordResetToken),
				ParamLifetimeMinutes: LifetimeMinutes(l.config.GetPasswordResetTokenLifetime()),
			},
		})
		l.record(ctx, ActivityEventPasswordResetRequested, requested, nil)
	case absorbed != nil:
		l.record(ctx, ActivityEventRequestAbsorbed, absorbed, map[string]any{"flow": "password_reset"})
	}

	return success, nil
}

// InspectPasswordReset checks a reset link before the form is shown. A
// valid token reports success with the strength meter blacklist.
func (l *Lifecycle) InspectPasswordReset(ctx context.Context, token string) (*Outcome, error) {
	if err := checkContext(ctx, "password reset inspection"); err != nil {
		return nil, err
	}

	token = cleanIdentifier(token)
	if token == "" {
		return rejectedOutcome("", RoutePasswordResetRequest), nil
	}

	var out *Outcome
	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolvePasswordReset(ctx, tx, token)
		if err != nil || expired {
			out = expiredOutcome(RoutePasswordResetRequest)
			return err
		}
		out = successOutcome("", "").withBlacklist(l.blacklistFor(account, token))
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to inspect password reset")
	}
	return out, nil
}

// ConfirmPasswordReset replaces the password of the account holding the
// reset token. Reaching this point proves control of the mailbox, so the
// account is activated even when the new password is rejected.
func (l *Lifecycle) ConfirmPasswordReset(ctx context.Context, msg PasswordResetMessage) (*Outcome, error) {
	if err := checkContext(ctx, "password reset"); err != nil {
		return nil, err
	}

	token := cleanIdentifier(msg.Token)
	password := cleanPassword(msg.Password)
	repeat := cleanPassword(msg.PasswordRepeat)

	var (
		out   *Outcome
		reset *Account
	)

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, expired, err := l.resolvePasswordReset(ctx, tx, token)
		if err != nil || expired {
			out = expiredOutcome(RoutePasswordResetRequest)
			return err
		}

		if !account.Activated {
			account.Activate()
		}

		blacklist := l.blacklistFor(account, token)
		if violations := l.validatePassword(ctx, password, repeat, blacklist); len(violations) > 0 {
			out = invalidOutcome(violations).withBlacklist(blacklist)
			return l.accounts().SaveTx(ctx, tx, account)
		}

		hash, err := l.hasher.Hash(password)
		if err != nil {
			return err
		}
		account.PasswordHash = hash
		account.ClearPasswordReset()

		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return err
		}
		reset = account
		out = successOutcome(MsgPasswordResetSuccess, RouteLogin)
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to reset password")
	}

	if reset != nil {
		l.record(ctx, ActivityEventPasswordResetSuccess, reset, nil)
	}
	return out, nil
}

// resolvePasswordReset finds the account holding token. An expired token
// is cleared and reported as expired, a missing one too.
func (l *Lifecycle) resolvePasswordReset(ctx context.Context, tx bun.IDB, token string) (*Account, bool, error) {
	if token == "" {
		return nil, true, nil
	}

	account, err := l.accounts().GetByFieldTx(ctx, tx, FieldPasswordResetToken, token)
	if err != nil {
		if IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}

	if IsTokenExpired(account.PasswordResetRequestedAt, l.config.GetPasswordResetTokenLifetime(), l.now()) {
		account.ClearPasswordReset()
		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return nil, false, err
		}
		l.record(ctx, ActivityEventTokenExpired, account, map[string]any{"flow": "password_reset"})
		return account, true, nil
	}
	return account, false, nil
}
