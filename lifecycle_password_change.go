package account

import (
	"context"
)

// PasswordChangeMessage is the password change form of a logged in account
type PasswordChangeMessage struct {
	CurrentPassword string
	Password        string
	PasswordRepeat  string
}

// PasswordChangeBlacklist is handed to the strength meter of the change form
func (l *Lifecycle) PasswordChangeBlacklist(account *Account) []string {
	return l.blacklistFor(account)
}

// ChangePassword replaces the password of a logged in account after
// verifying the current one. The caller should refresh remember me
// credentials, which are bound to the old hash.
func (l *Lifecycle) ChangePassword(ctx context.Context, account *Account, msg PasswordChangeMessage) (*Outcome, error) {
	if err := checkContext(ctx, "password change"); err != nil {
		return nil, err
	}

	current := cleanPassword(msg.CurrentPassword)
	password := cleanPassword(msg.Password)
	repeat := cleanPassword(msg.PasswordRepeat)

	if current == "" {
		return invalidOutcome([]Violation{{Field: "current_password", Code: CodeBlank}}), nil
	}

	ok, err := l.hasher.Verify(current, account.PasswordHash)
	if err != nil {
		return nil, wrapInfra(err, "failed to verify current password")
	}
	if !ok {
		return invalidOutcome([]Violation{{Field: "current_password", Code: CodeInvalid}}), nil
	}

	blacklist := l.blacklistFor(account)
	if violations := l.validatePassword(ctx, password, repeat, blacklist); len(violations) > 0 {
		return invalidOutcome(violations).withBlacklist(blacklist), nil
	}

	hash, err := l.hasher.Hash(password)
	if err != nil {
		return nil, wrapInfra(err, "failed to hash password")
	}
	account.PasswordHash = hash

	if err := l.accounts().Save(ctx, account); err != nil {
		return nil, wrapInfra(err, "failed to store password")
	}

	l.record(ctx, ActivityEventPasswordChanged, account, nil)

	out := successOutcome(MsgPasswordChangeSuccess, "")
	out.RefreshSession = true
	return out, nil
}
