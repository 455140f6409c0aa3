// Package config loads account settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/mailer"
	"github.com/goliatone/go-account/pwned"
)

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the process configuration. Every field maps to an
// ACCOUNT_ prefixed environment variable.
type Config struct {
	WebsiteName   string `env:"WEBSITE_NAME" envDefault:"Account"`
	BaseURL       string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`

	TokenEntropy     int `env:"TOKEN_ENTROPY" envDefault:"512"`
	TokenMaxAttempts int `env:"TOKEN_MAX_ATTEMPTS" envDefault:"1000"`

	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	PasswordMaxLength int `env:"PASSWORD_MAX_LENGTH" envDefault:"4096"`

	PasswordResetTokenLifetime   time.Duration `env:"PASSWORD_RESET_TOKEN_LIFETIME" envDefault:"1h"`
	PasswordResetRetryDelay      time.Duration `env:"PASSWORD_RESET_RETRY_DELAY" envDefault:"5m"`
	EmailChangeTokenLifetime     time.Duration `env:"EMAIL_CHANGE_TOKEN_LIFETIME" envDefault:"1h"`
	EmailChangeRetryDelay        time.Duration `env:"EMAIL_CHANGE_RETRY_DELAY" envDefault:"5m"`
	AccountDeletionTokenLifetime time.Duration `env:"ACCOUNT_DELETION_TOKEN_LIFETIME" envDefault:"1h"`
	AccountDeletionRetryDelay    time.Duration `env:"ACCOUNT_DELETION_RETRY_DELAY" envDefault:"5m"`

	Hasher Hasher `envPrefix:"HASHER_"`
	Breach Breach `envPrefix:"BREACH_"`
	SMTP   SMTP   `envPrefix:"SMTP_"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"file:account.db?cache=shared"`

	// RedisAddr enables the redis deletion scheduler when set
	RedisAddr           string        `env:"REDIS_ADDR"`
	DeletionScheduleTTL time.Duration `env:"DELETION_SCHEDULE_TTL" envDefault:"1h"`
	EmailDerivedIDs     bool          `env:"EMAIL_DERIVED_IDS" envDefault:"false"`
	MetricsAddr         string        `env:"METRICS_ADDR"`
}

// Hasher selects and tunes the password hashing algorithm
type Hasher struct {
	Algorithm         string `env:"ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"12"`
	Argon2TimeCost    uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2MemoryKiB   uint32 `env:"ARGON2_MEMORY" envDefault:"65536"`
	Argon2Parallelism uint8  `env:"ARGON2_THREADS" envDefault:"2"`
}

// Breach configures the Have I Been Pwned range lookup
type Breach struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Endpoint string        `env:"ENDPOINT" envDefault:"https://api.pwnedpasswords.com/range/"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"250ms"`
	Padding  bool          `env:"PADDING" envDefault:"true"`
}

// SMTP settings for the mail dispatcher. An empty host selects the
// console mailer.
type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
	ReplyTo  string `env:"REPLY_TO"`
}

// Load parses the process environment
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses environ instead of the process environment when it is
// not nil
func LoadFrom(environ map[string]string) (*Config, error) {
	opts := env.Options{Prefix: "ACCOUNT_"}
	if environ != nil {
		opts.Environment = environ
	}

	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.WebsiteName, validation.Required),
		validation.Field(&c.DefaultLocale, validation.Required),
		validation.Field(&c.TokenEntropy, validation.Required, validation.By(multipleOf8)),
		validation.Field(&c.TokenMaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.PasswordMinLength, validation.Min(1)),
		validation.Field(&c.PasswordMaxLength, validation.Required, validation.Max(account.MaxPasswordLength)),
		validation.Field(&c.PasswordResetTokenLifetime, validation.Required),
		validation.Field(&c.EmailChangeTokenLifetime, validation.Required),
		validation.Field(&c.AccountDeletionTokenLifetime, validation.Required),
		validation.Field(&c.DatabaseDriver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DatabaseDSN, validation.Required),
	)
	if err != nil {
		return err
	}

	if c.PasswordMinLength > c.PasswordMaxLength {
		return fmt.Errorf("password min length %d exceeds max length %d", c.PasswordMinLength, c.PasswordMaxLength)
	}

	return validation.ValidateStruct(&c.Hasher,
		validation.Field(&c.Hasher.Algorithm, validation.Required, validation.In(HasherBcrypt, HasherArgon2id)),
	)
}

func multipleOf8(value any) error {
	n, _ := value.(int)
	if n <= 0 || n%8 != 0 {
		return fmt.Errorf("must be a positive multiple of 8")
	}
	return nil
}

// Settings returns the lifecycle configuration
func (c Config) Settings() account.Settings {
	return account.Settings{
		WebsiteName:                  c.WebsiteName,
		DefaultLocale:                c.DefaultLocale,
		TokenEntropy:                 c.TokenEntropy,
		TokenMaxAttempts:             c.TokenMaxAttempts,
		PasswordMinLength:            c.PasswordMinLength,
		PasswordMaxLength:            c.PasswordMaxLength,
		PasswordResetTokenLifetime:   c.PasswordResetTokenLifetime,
		PasswordResetRetryDelay:      c.PasswordResetRetryDelay,
		EmailChangeTokenLifetime:     c.EmailChangeTokenLifetime,
		EmailChangeRetryDelay:        c.EmailChangeRetryDelay,
		AccountDeletionTokenLifetime: c.AccountDeletionTokenLifetime,
		AccountDeletionRetryDelay:    c.AccountDeletionRetryDelay,
	}
}

// NewHasher returns the configured password hasher
func (c Config) NewHasher() account.PasswordHasher {
	if strings.EqualFold(c.Hasher.Algorithm, HasherArgon2id) {
		return account.NewArgon2Hasher(account.Argon2Params{
			TimeCost:    c.Hasher.Argon2TimeCost,
			MemoryCost:  c.Hasher.Argon2MemoryKiB,
			Parallelism: c.Hasher.Argon2Parallelism,
		})
	}
	return account.NewBcryptHasher(c.Hasher.BcryptCost)
}

// PwnedOptions returns the breach checker options, nil when the check is
// disabled
func (c Config) PwnedOptions(logger pwned.Logger) []pwned.Option {
	if !c.Breach.Enabled {
		return nil
	}
	return []pwned.Option{
		pwned.WithEndpoint(c.Breach.Endpoint),
		pwned.WithTimeout(c.Breach.Timeout),
		pwned.WithPadding(c.Breach.Padding),
		pwned.WithLogger(logger),
	}
}

// MailerConfig returns the SMTP settings and whether SMTP is configured
func (c Config) MailerConfig() (mailer.Config, bool) {
	if c.SMTP.Host == "" {
		return mailer.Config{}, false
	}
	return mailer.Config{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		ReplyTo:  c.SMTP.ReplyTo,
	}, true
}
