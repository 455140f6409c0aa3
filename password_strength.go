package account

import (
	"context"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"
)

// Strength is the classification of a candidate password
type Strength string

const (
	StrengthEmpty   Strength = "empty"
	StrengthWeak    Strength = "weak"
	StrengthAverage Strength = "average"
	StrengthGood    Strength = "good"
)

const (
	// DefaultWeakLength is the rune count below which a password is weak
	DefaultWeakLength = 8
	// DefaultGoodLength is the rune count from which a password is good
	DefaultGoodLength = 16
	// DefaultMinScore is the estimator score below which a password is weak
	DefaultMinScore = 3
	// MaxScoredLength is the rune prefix of a password zxcvbn looks at.
	// Matching cost grows superlinearly with length.
	MaxScoredLength = 100
)

// ZxcvbnEstimator scores passwords with zxcvbn. Only the first
// MaxScoredLength runes of the password and blacklist entries are scored.
type ZxcvbnEstimator struct{}

func (ZxcvbnEstimator) Score(password string, blacklist []string) int {
	inputs := make([]string, 0, len(blacklist))
	for _, v := range blacklist {
		if v != "" {
			inputs = append(inputs, Truncate(v, MaxScoredLength))
		}
	}
	return zxcvbn.PasswordStrength(Truncate(password, MaxScoredLength), inputs).Score
}

// Assessment is the detail behind a Strength
type Assessment struct {
	Strength Strength
	Length   int
	Score    int
	Breached bool
}

// PasswordStrengthGate decides whether a password may be stored
type PasswordStrengthGate struct {
	estimator  StrengthEstimator
	breaches   BreachChecker
	weakLength int
	goodLength int
	minScore   int
}

// GateOption configures a PasswordStrengthGate
type GateOption func(*PasswordStrengthGate)

// WithBreachChecker enables the breach lookup
func WithBreachChecker(c BreachChecker) GateOption {
	return func(g *PasswordStrengthGate) { g.breaches = c }
}

// WithStrengthEstimator replaces the zxcvbn estimator
func WithStrengthEstimator(e StrengthEstimator) GateOption {
	return func(g *PasswordStrengthGate) {
		if e != nil {
			g.estimator = e
		}
	}
}

// WithWeakLength sets the rune count below which a password is weak
func WithWeakLength(n int) GateOption {
	return func(g *PasswordStrengthGate) {
		if n > 0 {
			g.weakLength = n
		}
	}
}

// NewPasswordStrengthGate returns a gate using zxcvbn and no breach check
// unless configured otherwise
func NewPasswordStrengthGate(opts ...GateOption) *PasswordStrengthGate {
	g := &PasswordStrengthGate{
		estimator:  ZxcvbnEstimator{},
		weakLength: DefaultWeakLength,
		goodLength: DefaultGoodLength,
		minScore:   DefaultMinScore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.goodLength < g.weakLength {
		g.goodLength = g.weakLength
	}
	return g
}

// Assess classifies password. The breach lookup only runs for passwords
// that would otherwise pass the length check.
func (g *PasswordStrengthGate) Assess(ctx context.Context, password string, blacklist []string) Assessment {
	length := utf8.RuneCountInString(password)
	if length == 0 {
		return Assessment{Strength: StrengthEmpty}
	}

	a := Assessment{Length: length, Strength: StrengthWeak}
	if length < g.weakLength {
		return a
	}

	if g.breaches != nil && g.breaches.IsBreached(ctx, password) {
		a.Breached = true
		return a
	}

	a.Score = g.estimator.Score(password, blacklist)
	switch {
	case a.Score < g.minScore:
		a.Strength = StrengthWeak
	case length < g.goodLength:
		a.Strength = StrengthAverage
	default:
		a.Strength = StrengthGood
	}
	return a
}

// Classify returns the Strength of password
func (g *PasswordStrengthGate) Classify(ctx context.Context, password string, blacklist []string) Strength {
	return g.Assess(ctx, password, blacklist).Strength
}

// Accept reports whether password is strong enough to be stored
func (g *PasswordStrengthGate) Accept(ctx context.Context, password string, blacklist []string) bool {
	s := g.Classify(ctx, password, blacklist)
	return s != StrengthEmpty && s != StrengthWeak
}
