package account_test

import (
	"context"
	"strings"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
)

// countingBreaches records every password looked up
type countingBreaches struct {
	seen     []string
	breached bool
}

func (c *countingBreaches) IsBreached(_ context.Context, password string) bool {
	c.seen = append(c.seen, password)
	return c.breached
}

func TestPasswordStrengthGate_Classify(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		score    int
		password string
		expected account.Strength
	}{
		{"empty", 4, "", account.StrengthEmpty},
		{"too short", 4, "Ab1!xyz", account.StrengthWeak},
		{"low score", 2, "aaaaaaaaaaaaaaaaaaaa", account.StrengthWeak},
		{"average", 3, "Tr0ub4dor&3", account.StrengthAverage},
		{"good", 3, "a sixteen rune pass", account.StrengthGood},
		{"short multibyte", 4, "ééééééé", account.StrengthWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := account.NewPasswordStrengthGate(account.WithStrengthEstimator(fixedScore(tt.score)))
			assert.Equal(t, tt.expected, gate.Classify(ctx, tt.password, nil))
		})
	}
}

func TestPasswordStrengthGate_Accept(t *testing.T) {
	gate := account.NewPasswordStrengthGate(account.WithStrengthEstimator(fixedScore(4)))

	assert.True(t, gate.Accept(context.Background(), "Tr0ub4dor&3", nil))
	assert.False(t, gate.Accept(context.Background(), "short", nil))
	assert.False(t, gate.Accept(context.Background(), "", nil))
}

func TestPasswordStrengthGate_BreachLookup(t *testing.T) {
	breaches := &countingBreaches{breached: true}
	gate := account.NewPasswordStrengthGate(
		account.WithStrengthEstimator(fixedScore(4)),
		account.WithBreachChecker(breaches),
	)

	short := gate.Assess(context.Background(), "short", nil)
	assert.Equal(t, account.StrengthWeak, short.Strength)
	assert.False(t, short.Breached)
	assert.Empty(t, breaches.seen, "short passwords never leave the process")

	long := gate.Assess(context.Background(), "long enough password", nil)
	assert.Equal(t, account.StrengthWeak, long.Strength)
	assert.True(t, long.Breached)
	assert.Equal(t, []string{"long enough password"}, breaches.seen)
}

func TestPasswordStrengthGate_WeakLength(t *testing.T) {
	gate := account.NewPasswordStrengthGate(
		account.WithStrengthEstimator(fixedScore(4)),
		account.WithWeakLength(12),
	)
	assert.Equal(t, account.StrengthWeak, gate.Classify(context.Background(), "elevenchars", nil))
	assert.Equal(t, account.StrengthAverage, gate.Classify(context.Background(), "twelve chars", nil))
}

func TestZxcvbnEstimator(t *testing.T) {
	var est account.ZxcvbnEstimator

	assert.Less(t, est.Score("password", nil), account.DefaultMinScore)
	assert.GreaterOrEqual(t, est.Score("correct horse battery staple", nil), account.DefaultMinScore)
	assert.Less(t, est.Score("acmecorporation", []string{"acmecorporation", ""}), account.DefaultMinScore)
}

func TestZxcvbnEstimator_LongPasswordIsBounded(t *testing.T) {
	gate := account.NewPasswordStrengthGate()
	password := strings.Repeat("aB3$xY9!", account.MaxPasswordLength/8)
	blacklist := []string{strings.Repeat("acme", account.MaxIdentifierLength/4)}

	start := time.Now()
	strength := gate.Classify(context.Background(), password, blacklist)
	elapsed := time.Since(start)

	assert.NotEqual(t, account.StrengthEmpty, strength)
	assert.Less(t, elapsed, 2*time.Second)
}
