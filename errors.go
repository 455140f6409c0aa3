package account

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeTokenIssuanceExhausted = "TOKEN_ISSUANCE_EXHAUSTED"
	TextCodeRandomUnavailable      = "RANDOM_UNAVAILABLE"
	TextCodeInvalidEntropy         = "INVALID_TOKEN_ENTROPY"
	TextCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	TextCodeAccountDisabled        = "ACCOUNT_DISABLED"
	TextCodeEmptyPassword          = "EMPTY_PASSWORD"
	TextCodePasswordMismatch       = "PASSWORD_MISMATCH"
	TextCodeUnknownField           = "UNKNOWN_ACCOUNT_FIELD"
	TextCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	TextCodeEmptySchedule          = "EMPTY_DELETION_SCHEDULE"
)

var (
	// ErrTokenIssuanceExhausted is returned when no unique token could be
	// minted inside the attempt budget. It is an infrastructure failure.
	ErrTokenIssuanceExhausted = goerrors.New("unable to issue a unique token", goerrors.CategoryInternal).
					WithTextCode(TextCodeTokenIssuanceExhausted)

	// ErrInvalidEntropy is returned for token entropy that is not a
	// positive multiple of 8 bits
	ErrInvalidEntropy = goerrors.New("token entropy must be a positive multiple of 8", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidEntropy).
				WithCode(goerrors.CodeBadRequest)

	// ErrInvalidCredentials covers unknown logins and wrong passwords
	ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCredentials)

	// ErrAccountDisabled is returned when the credentials are valid but the
	// account was never activated
	ErrAccountDisabled = goerrors.New("account is not activated", goerrors.CategoryAuth).
				WithTextCode(TextCodeAccountDisabled)

	// ErrNoEmptyString is returned when hashing an empty password
	ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
				WithTextCode(TextCodeEmptyPassword)

	// ErrMismatchedHashAndPassword is returned when a password does not
	// match its stored hash
	ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
					WithTextCode(TextCodePasswordMismatch)

	// ErrUnknownField is returned when looking up by a column that is not
	// a known account field
	ErrUnknownField = goerrors.New("unknown account field", goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnknownField).
			WithCode(goerrors.CodeBadRequest)

	// ErrEmptySchedule is returned when a deletion is scheduled without a
	// session or a token
	ErrEmptySchedule = goerrors.New("deletion schedule requires a session and a token", goerrors.CategoryBadInput).
				WithTextCode(TextCodeEmptySchedule)
)

// PublicAuthMessage is the translation key shown for any authentication
// failure. Disabled and invalid accounts render the same message.
const PublicAuthMessage = "login.invalid_credentials"

// IsAuthFailure reports whether err is one of the authentication failures
// that must be rendered with PublicAuthMessage
func IsAuthFailure(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeInvalidCredentials || richErr.TextCode == TextCodeAccountDisabled
}
