package account

import (
	"context"
	"io"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DefaultTokenMaxAttempts bounds the collision retries of IssueUnique
const DefaultTokenMaxAttempts = 1000

// UniqueTokenIssuer mints random tokens no other record of the same kind
// holds under the same column.
type UniqueTokenIssuer struct {
	checker     UniquenessChecker
	random      io.Reader
	entropy     int
	maxAttempts int
	logger      Logger
	provider    LoggerProvider
}

// IssuerOption configures a UniqueTokenIssuer
type IssuerOption func(*UniqueTokenIssuer)

// WithIssuerEntropy sets the default entropy in bits
func WithIssuerEntropy(bits int) IssuerOption {
	return func(i *UniqueTokenIssuer) {
		if bits > 0 {
			i.entropy = bits
		}
	}
}

// WithIssuerMaxAttempts sets the default attempt budget
func WithIssuerMaxAttempts(n int) IssuerOption {
	return func(i *UniqueTokenIssuer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithIssuerRandom replaces the CSPRNG, tests only
func WithIssuerRandom(r io.Reader) IssuerOption {
	return func(i *UniqueTokenIssuer) {
		if r != nil {
			i.random = r
		}
	}
}

func WithIssuerLogger(logger Logger) IssuerOption {
	return func(i *UniqueTokenIssuer) {
		i.logger = logger
	}
}

// NewUniqueTokenIssuer returns an issuer backed by checker
func NewUniqueTokenIssuer(checker UniquenessChecker, opts ...IssuerOption) *UniqueTokenIssuer {
	i := &UniqueTokenIssuer{
		checker:     checker,
		entropy:     DefaultTokenEntropy,
		maxAttempts: DefaultTokenMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	i.provider, i.logger = ResolveLogger("account.token_issuer", i.provider, i.logger)
	return i
}

// IssueOption overrides issuer defaults for a single call
type IssueOption func(*issueParams)

type issueParams struct {
	entropy     int
	maxAttempts int
	tx          bun.IDB
}

// WithEntropy sets the entropy of a single issuance
func WithEntropy(bits int) IssueOption {
	return func(p *issueParams) { p.entropy = bits }
}

// WithMaxAttempts sets the attempt budget of a single issuance
func WithMaxAttempts(n int) IssueOption {
	return func(p *issueParams) { p.maxAttempts = n }
}

// WithTx runs the uniqueness checks of a single issuance on tx
func WithTx(tx bun.IDB) IssueOption {
	return func(p *issueParams) { p.tx = tx }
}

// IssueUnique returns a token not currently stored in kind.field.
//
// The check is read only, callers persist the token afterwards and rely
// on the column's unique constraint for the remaining race.
func (i *UniqueTokenIssuer) IssueUnique(ctx context.Context, kind EntityKind, field AccountField, opts ...IssueOption) (string, error) {
	params := issueParams{entropy: i.entropy, maxAttempts: i.maxAttempts}
	for _, opt := range opts {
		opt(&params)
	}
	if params.maxAttempts <= 0 {
		params.maxAttempts = DefaultTokenMaxAttempts
	}

	for attempt := 0; attempt < params.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during token issuance")
		}

		token, err := RandomToken(i.random, params.entropy)
		if err != nil {
			return "", err
		}

		taken, err := i.isTaken(ctx, params.tx, kind, field, token)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token uniqueness").
				WithMetadata(map[string]any{"kind": kind, "field": field.String()})
		}
		if !taken {
			return token, nil
		}

		i.logger.Warn("token collision", "kind", kind, "field", field.String(), "attempt", attempt+1)
	}

	i.logger.Error("token issuance exhausted", "kind", kind, "field", field.String(), "attempts", params.maxAttempts)
	return "", ErrTokenIssuanceExhausted
}

func (i *UniqueTokenIssuer) isTaken(ctx context.Context, tx bun.IDB, kind EntityKind, field AccountField, value string) (bool, error) {
	if tx == nil {
		return i.checker.IsTaken(ctx, kind, field, value)
	}
	return i.checker.IsTakenTx(ctx, tx, kind, field, value)
}
