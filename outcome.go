package account

import "sort"

// OutcomeKind classifies the result of a lifecycle operation
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeValidationFailed OutcomeKind = "validation_failed"
	OutcomeTokenExpired     OutcomeKind = "token_expired"
	// OutcomeRejected is a request refused without touching state, e.g. an
	// email change towards the current address.
	OutcomeRejected OutcomeKind = "rejected"
)

// Route names used as Outcome redirects
const (
	RouteHome                 = "home"
	RouteLogin                = "login"
	RoutePasswordResetRequest = "password_reset_request"
	RouteSettings             = "settings"
)

// Violation is a single field validation failure
type Violation struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// Outcome is what an operation reports to its caller. It never tells
// apart cases that must stay indistinguishable, e.g. a duplicate
// registration and a fresh one.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Message    string      `json:"message,omitempty"`
	Redirect   string      `json:"redirect,omitempty"`
	Logout     bool        `json:"logout,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
	// Blacklist is handed to the client side strength meter
	Blacklist []string `json:"blacklist,omitempty"`
	// RefreshSession asks the caller to reissue remember me credentials
	RefreshSession bool `json:"refresh_session,omitempty"`
}

func sortViolations(v []Violation) {
	sort.SliceStable(v, func(i, j int) bool { return v[i].Field < v[j].Field })
}

func (o *Outcome) IsSuccess() bool {
	return o != nil && o.Kind == OutcomeSuccess
}

func (o *Outcome) withLogout() *Outcome {
	o.Logout = true
	return o
}

func (o *Outcome) withBlacklist(values []string) *Outcome {
	o.Blacklist = values
	return o
}

func successOutcome(message, redirect string) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Message: message, Redirect: redirect}
}

func expiredOutcome(redirect string) *Outcome {
	return &Outcome{Kind: OutcomeTokenExpired, Message: MsgTokenExpired, Redirect: redirect}
}

func rejectedOutcome(message, redirect string) *Outcome {
	return &Outcome{Kind: OutcomeRejected, Message: message, Redirect: redirect}
}

func invalidOutcome(violations []Violation) *Outcome {
	return &Outcome{Kind: OutcomeValidationFailed, Violations: violations}
}

// Translation keys carried by outcomes
const (
	MsgTokenExpired = "token.expired"

	MsgRegistrationSuccess = "registration.success"
	MsgActivationSuccess   = "activation.success"

	MsgPasswordResetEmailSent = "password_reset.email_sent"
	MsgPasswordResetSuccess   = "password_reset.success"
	MsgPasswordChangeSuccess  = "password_change.success"

	MsgEmailChangeRequested      = "email_change.requested"
	MsgEmailChangeAlreadyCurrent = "email_change.already_current"
	MsgEmailChangeSuccess        = "email_change.success"
	MsgEmailChangeCanceled       = "email_change.canceled"

	MsgAccountDeletionRequested     = "account_deletion.requested"
	MsgAccountDeletionCanceled      = "account_deletion.canceled"
	MsgAccountDeletionPendingLogout = "account_deletion.pending_logout"
	MsgAccountDeletionSuccess       = "account_deletion.success"
)

// Violation codes
const (
	CodeBlank         = "blank"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeInvalidFormat = "invalid_format"
	CodeTaken         = "taken"
	CodeMismatch      = "mismatch"
	CodeWeak          = "weak"
	CodeBreached      = "breached"
	CodeInvalid       = "invalid"
)
