package account

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
)

// TemplateKey names a notification template
type TemplateKey string

const (
	TemplateRegistrationSuccess           TemplateKey = "registration_success"
	TemplateRegistrationAttemptVerified   TemplateKey = "registration_attempt_verified"
	TemplateRegistrationAttemptUnverified TemplateKey = "registration_attempt_unverified"
	TemplateLoginAttemptUnactivated       TemplateKey = "login_attempt_unactivated"
	TemplatePasswordResetRequest          TemplateKey = "password_reset_request"
	TemplateEmailChange                   TemplateKey = "email_change"
	TemplateAccountDeletionRequest        TemplateKey = "account_deletion_request"
	TemplateAccountDeletionSuccess        TemplateKey = "account_deletion_success"
)

// TemplateKeys lists every notification template
func TemplateKeys() []TemplateKey {
	return []TemplateKey{
		TemplateRegistrationSuccess,
		TemplateRegistrationAttemptVerified,
		TemplateRegistrationAttemptUnverified,
		TemplateLoginAttemptUnactivated,
		TemplatePasswordResetRequest,
		TemplateEmailChange,
		TemplateAccountDeletionRequest,
		TemplateAccountDeletionSuccess,
	}
}

// Parameter names understood by the templates
const (
	ParamToken           = "token"
	ParamLifetimeMinutes = "lifetime_minutes"
	ParamNewEmail        = "new_email"
)

// Notification is a templated message addressed to an account
type Notification struct {
	Template TemplateKey
	Locale   string
	Account  *Account
	// To overrides the account email, e.g. the pending address of an
	// email change
	To     string
	Params map[string]any
}

// Recipient returns the address the notification is sent to
func (n Notification) Recipient() string {
	if n.To != "" {
		return n.To
	}
	if n.Account != nil {
		return n.Account.Email
	}
	return ""
}

// Mailer delivers notifications. Delivery errors are reported to the
// caller but never undo the transition that triggered them.
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}

// MailerFunc adapts a function to Mailer
type MailerFunc func(ctx context.Context, n Notification) error

func (f MailerFunc) Send(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// ConsoleMailer prints notifications instead of delivering them, for
// local development
type ConsoleMailer struct {
	Out io.Writer
}

func (c ConsoleMailer) Send(_ context.Context, n Notification) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintln(out, "====== SENDING EMAIL NOTIFICATION =======")
	fmt.Fprintf(out, "to: %s\n", n.Recipient())
	fmt.Fprintf(out, "template: %s (%s)\n", n.Template, n.Locale)

	keys := make([]string, 0, len(n.Params))
	for k := range n.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %v\n", k, n.Params[k])
	}
	return nil
}
