package account

import "time"

// Settings is a plain Config implementation
type Settings struct {
	WebsiteName                  string
	DefaultLocale                string
	TokenEntropy                 int
	TokenMaxAttempts             int
	PasswordMinLength            int
	PasswordMaxLength            int
	PasswordResetTokenLifetime   time.Duration
	PasswordResetRetryDelay      time.Duration
	EmailChangeTokenLifetime     time.Duration
	EmailChangeRetryDelay        time.Duration
	AccountDeletionTokenLifetime time.Duration
	AccountDeletionRetryDelay    time.Duration
}

var _ Config = Settings{}

// DefaultSettings returns one hour token lifetimes and five minute retry
// delays for every timed flow
func DefaultSettings() Settings {
	return Settings{
		WebsiteName:                  "Account",
		DefaultLocale:                "en",
		TokenEntropy:                 DefaultTokenEntropy,
		TokenMaxAttempts:             DefaultTokenMaxAttempts,
		PasswordMinLength:            DefaultWeakLength,
		PasswordMaxLength:            MaxPasswordLength,
		PasswordResetTokenLifetime:   time.Hour,
		PasswordResetRetryDelay:      5 * time.Minute,
		EmailChangeTokenLifetime:     time.Hour,
		EmailChangeRetryDelay:        5 * time.Minute,
		AccountDeletionTokenLifetime: time.Hour,
		AccountDeletionRetryDelay:    5 * time.Minute,
	}
}

func (s Settings) GetWebsiteName() string                       { return s.WebsiteName }
func (s Settings) GetDefaultLocale() string                     { return s.DefaultLocale }
func (s Settings) GetTokenEntropy() int                         { return s.TokenEntropy }
func (s Settings) GetTokenMaxAttempts() int                     { return s.TokenMaxAttempts }
func (s Settings) GetPasswordMinLength() int                    { return s.PasswordMinLength }
func (s Settings) GetPasswordMaxLength() int                    { return s.PasswordMaxLength }
func (s Settings) GetPasswordResetTokenLifetime() time.Duration { return s.PasswordResetTokenLifetime }
func (s Settings) GetPasswordResetRetryDelay() time.Duration    { return s.PasswordResetRetryDelay }
func (s Settings) GetEmailChangeTokenLifetime() time.Duration   { return s.EmailChangeTokenLifetime }
func (s Settings) GetEmailChangeRetryDelay() time.Duration      { return s.EmailChangeRetryDelay }
func (s Settings) GetAccountDeletionTokenLifetime() time.Duration {
	return s.AccountDeletionTokenLifetime
}
func (s Settings) GetAccountDeletionRetryDelay() time.Duration { return s.AccountDeletionRetryDelay }
