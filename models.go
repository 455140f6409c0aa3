package account

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is an authorization label granted to an account
type Role = string

const (
	// RoleUser is granted to every account
	RoleUser Role = "ROLE_USER"
	// RoleAdmin grants access to administration tools
	RoleAdmin Role = "ROLE_ADMIN"
)

// EntityKind names the table a token column lives in
type EntityKind = string

// AccountKind is the accounts table
const AccountKind EntityKind = "accounts"

// AccountField is a lookup or token column of the accounts table
type AccountField string

const (
	FieldUsername               AccountField = "username"
	FieldBusinessUsername       AccountField = "business_username"
	FieldEmail                  AccountField = "email"
	FieldAccountActivationToken AccountField = "account_activation_token"
	FieldPasswordResetToken     AccountField = "password_reset_token"
	FieldEmailChangeToken       AccountField = "email_change_token"
	FieldAccountDeletionToken   AccountField = "account_deletion_token"
)

// Valid reports whether f is a known lookup column
func (f AccountField) Valid() bool {
	switch f {
	case FieldUsername, FieldBusinessUsername, FieldEmail,
		FieldAccountActivationToken, FieldPasswordResetToken,
		FieldEmailChangeToken, FieldAccountDeletionToken:
		return true
	}
	return false
}

func (f AccountField) String() string { return string(f) }

// Account is the persisted account record.
//
// Username is an internal 512 bit handle, never shown to the user.
// BusinessUsername is the public, user chosen name.
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username         string    `bun:"username,notnull,unique" json:"-"`
	BusinessUsername string    `bun:"business_username,notnull,unique" json:"business_username,omitempty"`
	Email            string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash     string    `bun:"password_hash,notnull" json:"-"`
	Roles            []string  `bun:"roles,type:jsonb" json:"roles,omitempty"`
	Activated        bool      `bun:"activated,notnull,default:false" json:"activated"`

	AccountActivationToken *string `bun:"account_activation_token,nullzero,unique" json:"-"`

	PasswordResetToken       *string    `bun:"password_reset_token,nullzero,unique" json:"-"`
	PasswordResetRequestedAt *time.Time `bun:"password_reset_requested_at,nullzero" json:"-"`

	EmailChangePending     *string    `bun:"email_change_pending,nullzero" json:"-"`
	EmailChangeToken       *string    `bun:"email_change_token,nullzero,unique" json:"-"`
	EmailChangeRequestedAt *time.Time `bun:"email_change_requested_at,nullzero" json:"-"`

	AccountDeletionToken       *string    `bun:"account_deletion_token,nullzero,unique" json:"-"`
	AccountDeletionRequestedAt *time.Time `bun:"account_deletion_requested_at,nullzero" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	// plainPassword lives only until the record is hashed
	plainPassword string `bun:"-"`
}

// GetRoles returns the granted roles, always including RoleUser
func (a *Account) GetRoles() []string {
	roles := slices.Clone(a.Roles)
	if !slices.Contains(roles, RoleUser) {
		roles = append(roles, RoleUser)
	}
	return roles
}

// HasRole reports whether role was granted
func (a *Account) HasRole(role Role) bool {
	return slices.Contains(a.GetRoles(), role)
}

// SetPlainPassword holds the submitted password until it is hashed
func (a *Account) SetPlainPassword(password string) *Account {
	a.plainPassword = password
	return a
}

// PlainPassword returns the transient submitted password
func (a *Account) PlainPassword() string {
	return a.plainPassword
}

// EraseCredentials drops the transient plain password
func (a *Account) EraseCredentials() {
	a.plainPassword = ""
}

// TokenFor returns the current value of a token column
func (a *Account) TokenFor(field AccountField) string {
	var v *string
	switch field {
	case FieldAccountActivationToken:
		v = a.AccountActivationToken
	case FieldPasswordResetToken:
		v = a.PasswordResetToken
	case FieldEmailChangeToken:
		v = a.EmailChangeToken
	case FieldAccountDeletionToken:
		v = a.AccountDeletionToken
	case FieldUsername:
		return a.Username
	case FieldBusinessUsername:
		return a.BusinessUsername
	case FieldEmail:
		return a.Email
	}
	if v == nil {
		return ""
	}
	return *v
}

// ClearPasswordReset unsets the reset token and its request time
func (a *Account) ClearPasswordReset() {
	a.PasswordResetToken = nil
	a.PasswordResetRequestedAt = nil
}

// ClearEmailChange unsets the pending email, its token and request time
func (a *Account) ClearEmailChange() {
	a.EmailChangePending = nil
	a.EmailChangeToken = nil
	a.EmailChangeRequestedAt = nil
}

// ClearAccountDeletion unsets the deletion token and its request time
func (a *Account) ClearAccountDeletion() {
	a.AccountDeletionToken = nil
	a.AccountDeletionRequestedAt = nil
}

// Activate marks the account active and drops the activation token
func (a *Account) Activate() {
	a.Activated = true
	a.AccountActivationToken = nil
}

// PasswordBlacklist lists the values a new password must not resemble.
// Empty values are skipped.
func (a *Account) PasswordBlacklist(extra ...string) []string {
	values := []string{a.BusinessUsername, a.Email}
	if a.EmailChangePending != nil {
		values = append(values, *a.EmailChangePending)
	}
	values = append(values, extra...)

	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
