package config_test

import (
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "Account", cfg.WebsiteName)
	assert.Equal(t, 512, cfg.TokenEntropy)
	assert.Equal(t, 1000, cfg.TokenMaxAttempts)
	assert.Equal(t, time.Hour, cfg.PasswordResetTokenLifetime)
	assert.Equal(t, 5*time.Minute, cfg.EmailChangeRetryDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Breach.Timeout)
	assert.True(t, cfg.Breach.Padding)
	assert.Equal(t, config.HasherBcrypt, cfg.Hasher.Algorithm)
	assert.Equal(t, config.DriverSQLite, cfg.DatabaseDriver)

	settings := cfg.Settings()
	assert.Equal(t, account.DefaultSettings(), settings)

	_, ok := cfg.MailerConfig()
	assert.False(t, ok)
}

func TestLoad_FromProcessEnvironment(t *testing.T) {
	t.Setenv("ACCOUNT_WEBSITE_NAME", "Acme")
	t.Setenv("ACCOUNT_PASSWORD_RESET_TOKEN_LIFETIME", "30m")
	t.Setenv("ACCOUNT_HASHER_ALGORITHM", "argon2id")
	t.Setenv("ACCOUNT_HASHER_ARGON2_MEMORY", "1024")
	t.Setenv("ACCOUNT_HASHER_ARGON2_TIME", "1")
	t.Setenv("ACCOUNT_SMTP_HOST", "smtp.acme.test")
	t.Setenv("ACCOUNT_SMTP_FROM", "noreply@acme.test")
	t.Setenv("ACCOUNT_BREACH_TIMEOUT", "1s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "Acme", cfg.WebsiteName)
	assert.Equal(t, 30*time.Minute, cfg.Settings().GetPasswordResetTokenLifetime())
	assert.Equal(t, time.Second, cfg.Breach.Timeout)

	_, isArgon := cfg.NewHasher().(*account.Argon2Hasher)
	assert.True(t, isArgon)

	smtp, ok := cfg.MailerConfig()
	require.True(t, ok)
	assert.Equal(t, "smtp.acme.test", smtp.Host)
	assert.Equal(t, 587, smtp.Port)
	assert.NoError(t, smtp.Validate())
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"entropy not multiple of 8": {"ACCOUNT_TOKEN_ENTROPY": "500"},
		"unknown hasher":            {"ACCOUNT_HASHER_ALGORITHM": "md5"},
		"unknown driver":            {"ACCOUNT_DATABASE_DRIVER": "mysql"},
		"min above max":             {"ACCOUNT_PASSWORD_MIN_LENGTH": "64", "ACCOUNT_PASSWORD_MAX_LENGTH": "32"},
		"bad duration":              {"ACCOUNT_EMAIL_CHANGE_RETRY_DELAY": "soon"},
	}

	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadFrom(environ)
			assert.Error(t, err)
		})
	}
}

func TestPwnedOptions(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"ACCOUNT_BREACH_ENABLED": "false"})
	require.NoError(t, err)
	assert.Nil(t, cfg.PwnedOptions(nil))

	cfg, err = config.LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Len(t, cfg.PwnedOptions(nil), 4)

	_, isBcrypt := cfg.NewHasher().(*account.BcryptHasher)
	assert.True(t, isBcrypt)
}
