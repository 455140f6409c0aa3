// Package account implements the token gated lifecycle of user accounts:
// registration, activation, login, password reset and change, email change
// and account deletion.
//
// Lifecycle:
//   - Every security sensitive transition is requested, confirmed, expired or
//     canceled through a single use token stored on the Account record. Tokens
//     are minted by UniqueTokenIssuer, which guarantees the value is not already
//     used by another record for the same column.
//   - Request flows are guarded by a retry delay. Repeated requests inside the
//     delay are absorbed silently and reported as success.
//   - Confirm flows are guarded by a token lifetime. An expired token clears
//     its paired fields and reports a TokenExpired outcome.
//
// Enumeration resistance:
//   - Registration with an email that is already registered, password reset
//     for an unknown login and email change towards an address owned by
//     someone else all return the same Outcome as the happy path. The owner of
//     the existing account is notified instead.
//   - Authenticator hashes the submitted password even when no account matches
//     the login, and reports a single invalid credentials error.
//
// Password acquisition:
//   - PasswordStrengthGate combines length bounds, a zxcvbn score and a breach
//     check (see the pwned sub package) which fails open.
//
// Activity sinks:
//   - Every transition is published to an ActivitySink. Sinks run best effort,
//     errors are logged and never roll back the transition. The metrics sub
//     package provides a Prometheus backed sink.
package account
