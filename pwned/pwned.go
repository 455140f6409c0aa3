// Package pwned checks passwords against the Have I Been Pwned range API
// using k-anonymity: only the first five hex characters of the SHA-1 of the
// password leave the process.
package pwned

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultEndpoint is the range API base URL
	DefaultEndpoint = "https://api.pwnedpasswords.com/range/"
	// DefaultTimeout bounds the whole lookup
	DefaultTimeout = 250 * time.Millisecond

	prefixLength = 5
)

// Logger is the subset of account.Logger the checker needs
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Checker queries the range API. Every failure resolves to not breached.
type Checker struct {
	client    *http.Client
	endpoint  string
	timeout   time.Duration
	padding   bool
	userAgent string
	logger    Logger
}

// Option configures a Checker
type Option func(*Checker)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) {
		if c != nil {
			ch.client = c
		}
	}
}

// WithEndpoint overrides the range API base URL
func WithEndpoint(endpoint string) Option {
	return func(ch *Checker) {
		if endpoint != "" {
			if !strings.HasSuffix(endpoint, "/") {
				endpoint += "/"
			}
			ch.endpoint = endpoint
		}
	}
}

// WithTimeout bounds a single lookup
func WithTimeout(d time.Duration) Option {
	return func(ch *Checker) {
		if d > 0 {
			ch.timeout = d
		}
	}
}

// WithPadding toggles the Add-Padding request header. Padded responses
// carry decoy entries with a zero count.
func WithPadding(enabled bool) Option {
	return func(ch *Checker) { ch.padding = enabled }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(ch *Checker) {
		if ua != "" {
			ch.userAgent = ua
		}
	}
}

func WithLogger(l Logger) Option {
	return func(ch *Checker) {
		if l != nil {
			ch.logger = l
		}
	}
}

// New returns a Checker with padding enabled and a 250ms budget
func New(opts ...Option) *Checker {
	c := &Checker{
		client:    http.DefaultClient,
		endpoint:  DefaultEndpoint,
		timeout:   DefaultTimeout,
		padding:   true,
		userAgent: "go-account",
		logger:    nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// HashParts returns the uppercase SHA-1 prefix sent to the API and the
// suffix matched locally
func HashParts(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return digest[:prefixLength], digest[prefixLength:]
}

// IsBreached reports whether password appears in the corpus. Transport
// errors, timeouts and unexpected statuses yield false.
func (c *Checker) IsBreached(ctx context.Context, password string) bool {
	if password == "" {
		return false
	}
	count, err := c.Count(ctx, password)
	if err != nil {
		c.logger.Warn("breach lookup failed, accepting password", "error", err)
		return false
	}
	return count > 0
}

// Count returns how often password appears in the corpus
func (c *Checker) Count(ctx context.Context, password string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prefix, suffix := HashParts(password)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+prefix, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.padding {
		req.Header.Set("Add-Padding", "true")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, goerrors.New("unexpected range API status", goerrors.CategoryExternal).
			WithCode(resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		hash, rawCount, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(hash, suffix) {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(rawCount))
		if err != nil {
			return 0, goerrors.Wrap(err, goerrors.CategoryExternal, "invalid range API count")
		}
		// padding entries
		if count == 0 {
			continue
		}
		c.logger.Debug("password found in breach corpus", "count", count)
		return count, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, nil
}
