package account

import (
	"context"

	"github.com/uptrace/bun"
)

// RequestActivation stamps a fresh activation token on account, replacing
// any previous one. Activation tokens never expire.
func (l *Lifecycle) RequestActivation(ctx context.Context, account *Account) (string, error) {
	if err := checkContext(ctx, "activation request"); err != nil {
		return "", err
	}

	token, err := l.issue(ctx, nil, FieldAccountActivationToken)
	if err != nil {
		return "", wrapInfra(err, "failed to issue activation token")
	}
	account.AccountActivationToken = strPtr(token)

	if err := l.accounts().Save(ctx, account); err != nil {
		return "", wrapInfra(err, "failed to store activation token")
	}
	return token, nil
}

// RemindActivation re-sends the activation link to an account that tried
// to log in before activating, issuing a token if it has none
func (l *Lifecycle) RemindActivation(ctx context.Context, account *Account, locale string) error {
	token := account.TokenFor(FieldAccountActivationToken)
	if token == "" {
		var err error
		if token, err = l.RequestActivation(ctx, account); err != nil {
			return err
		}
	}

	l.notify(ctx, Notification{
		Template: TemplateLoginAttemptUnactivated,
		Locale:   locale,
		Account:  account,
		Params:   map[string]any{ParamToken: token},
	})
	l.record(ctx, ActivityEventActivationReminded, account, nil)
	return nil
}

// ConfirmActivation activates the account holding token. Unknown tokens
// and already active accounts report success so repeated clicks are
// harmless.
func (l *Lifecycle) ConfirmActivation(ctx context.Context, token string) (*Outcome, error) {
	if err := checkContext(ctx, "activation"); err != nil {
		return nil, err
	}

	token = cleanIdentifier(token)
	if token == "" {
		return rejectedOutcome("", RouteHome), nil
	}

	var activated *Account
	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := l.accounts().GetByFieldTx(ctx, tx, FieldAccountActivationToken, token)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}
		if account.Activated {
			return nil
		}

		account.Activate()
		if err := l.accounts().SaveTx(ctx, tx, account); err != nil {
			return err
		}
		activated = account
		return nil
	})
	if err != nil {
		return nil, wrapInfra(err, "failed to activate account")
	}

	if activated != nil {
		l.record(ctx, ActivityEventActivated, activated, nil)
	}
	return successOutcome(MsgActivationSuccess, RouteLogin), nil
}
