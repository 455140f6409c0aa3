package account

import (
	"context"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

var businessUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// registerAttempts bounds the insert retries on unique constraint races
const registerAttempts = 2

// RegisterMessage is a registration form submission
type RegisterMessage struct {
	BusinessUsername string
	Email            string
	Password         string
	PasswordRepeat   string
	Locale           string
}

func (m RegisterMessage) normalize() RegisterMessage {
	m.BusinessUsername = cleanIdentifier(m.BusinessUsername)
	m.Email = cleanIdentifier(m.Email)
	m.Password = cleanPassword(m.Password)
	m.PasswordRepeat = cleanPassword(m.PasswordRepeat)
	return m
}

// Validate checks the identity fields. Password rules live in the
// strength gate.
func (m RegisterMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.BusinessUsername,
			validation.Required,
			validation.Length(2, MaxIdentifierLength),
			validation.Match(businessUsernamePattern),
		),
		validation.Field(&m.Email, validation.Required, is.Email),
	)
}

// RegistrationBlacklist is handed to the client side strength meter of
// the registration form
func (l *Lifecycle) RegistrationBlacklist() []string {
	if name := l.config.GetWebsiteName(); name != "" {
		return []string{name}
	}
	return nil
}

// Register creates an inactive account and sends its activation link.
//
// When the email already belongs to an account nothing is created, the
// existing owner is notified, and the Outcome is the same as for a fresh
// registration. The password is hashed on both paths.
func (l *Lifecycle) Register(ctx context.Context, msg RegisterMessage) (*Outcome, error) {
	if err := checkContext(ctx, "registration"); err != nil {
		return nil, err
	}

	msg = msg.normalize()
	blacklist := append(l.RegistrationBlacklist(), msg.BusinessUsername, msg.Email)

	violations, err := l.validateRegistration(ctx, msg, blacklist)
	if err != nil {
		return nil, wrapInfra(err, "failed to validate registration")
	}
	if len(violations) > 0 {
		return invalidOutcome(violations).withBlacklist(l.RegistrationBlacklist()), nil
	}

	hash, err := l.hasher.Hash(msg.Password)
	if err != nil {
		return nil, wrapInfra(err, "failed to hash password")
	}

	var (
		created   *Account
		duplicate *Account
	)

	// a concurrent insert can still win a token or email constraint
	for attempt := 0; attempt < registerAttempts; attempt++ {
		created, duplicate = nil, nil
		err = l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			existing, err := l.accounts().GetByFieldTx(ctx, tx, FieldEmail, msg.Email)
			if err == nil {
				duplicate = existing
				return nil
			}
			if !IsNotFound(err) {
				return err
			}

			account := &Account{
				BusinessUsername: msg.BusinessUsername,
				Email:            msg.Email,
				PasswordHash:     hash,
				Roles:            []string{RoleUser},
			}
			account.SetPlainPassword(msg.Password)
			defer account.EraseCredentials()

			if l.hashedIDs {
				if id, err := hashid.NewUUID(strings.ToLower(msg.Email)); err == nil {
					account.ID = id
				}
			}

			if account.Username, err = l.issue(ctx, tx, FieldUsername); err != nil {
				return err
			}
			token, err := l.issue(ctx, tx, FieldAccountActivationToken)
			if err != nil {
				return err
			}
			account.AccountActivationToken = strPtr(token)

			created, err = l.accounts().CreateTx(ctx, tx, account)
			return err
		})
		if !IsUniqueViolation(err) {
			break
		}
		l.logger.WithContext(ctx).Warn("registration hit a unique constraint", "attempt", attempt+1, "error", err)
	}
	if err != nil {
		return nil, wrapInfra(err, "failed to register account")
	}

	switch {
	case duplicate != nil:
		template := TemplateRegistrationAttemptUnverified
		if duplicate.Activated {
			template = TemplateRegistrationAttemptVerified
		}
		l.notify(ctx, Notification{Template: template, Locale: msg.Locale, Account: duplicate})
		l.record(ctx, ActivityEventRegistrationDuplicate, duplicate, map[string]any{"activated": duplicate.Activated})
	case created != nil:
		l.notify(ctx, Notification{
			Template: TemplateRegistrationSuccess,
			Locale:   msg.Locale,
			Account:  created,
			Params:   map[string]any{ParamToken: created.TokenFor(FieldAccountActivationToken)},
		})
		l.record(ctx, ActivityEventRegistered, created, nil)
	}

	return successOutcome(MsgRegistrationSuccess, RouteLogin), nil
}

func (l *Lifecycle) validateRegistration(ctx context.Context, msg RegisterMessage, blacklist []string) ([]Violation, error) {
	var violations []Violation

	if err := msg.Validate(); err != nil {
		violations = append(violations, ozzoViolations(err, map[string]string{
			"BusinessUsername": "business_username",
			"Email":            "email",
		})...)
	}

	if msg.BusinessUsername != "" && !hasViolation(violations, "business_username") {
		_, err := l.accounts().GetByField(ctx, FieldBusinessUsername, msg.BusinessUsername)
		switch {
		case err == nil:
			violations = append(violations, Violation{Field: "business_username", Code: CodeTaken})
		case !IsNotFound(err):
			return nil, err
		}
	}

	violations = append(violations, l.validatePassword(ctx, msg.Password, msg.PasswordRepeat, blacklist)...)
	return violations, nil
}

// ozzoViolations flattens ozzo field errors, renaming struct fields
func ozzoViolations(err error, fields map[string]string) []Violation {
	errs, ok := err.(validation.Errors)
	if !ok {
		return []Violation{{Field: "form", Code: CodeInvalid}}
	}

	out := make([]Violation, 0, len(errs))
	for name, fieldErr := range errs {
		field := name
		if renamed, ok := fields[name]; ok {
			field = renamed
		}
		out = append(out, Violation{Field: field, Code: ozzoCode(fieldErr)})
	}
	sortViolations(out)
	return out
}

func ozzoCode(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "cannot be blank"):
		return CodeBlank
	case strings.Contains(msg, "length must be"):
		// inputs are truncated to the upper bound beforehand
		return CodeTooShort
	default:
		return CodeInvalidFormat
	}
}

func hasViolation(violations []Violation, field string) bool {
	for _, v := range violations {
		if v.Field == field {
			return true
		}
	}
	return false
}
