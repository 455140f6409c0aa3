// Package mailer delivers account notifications over SMTP, rendering them
// from embedded pongo2 templates.
package mailer

import (
	"context"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
}

// Validate checks the SMTP settings
func (c Config) Validate() error {
	if c.Host == "" {
		return goerrors.New("missing SMTP host", goerrors.CategoryBadInput).WithTextCode("SMTP_HOST_REQUIRED")
	}
	if c.Port == 0 {
		return goerrors.New("missing SMTP port", goerrors.CategoryBadInput).WithTextCode("SMTP_PORT_REQUIRED")
	}
	if c.From == "" {
		return goerrors.New("missing SMTP from address", goerrors.CategoryBadInput).WithTextCode("SMTP_FROM_REQUIRED")
	}
	return nil
}

// Dispatcher renders and sends notifications. It implements
// account.Mailer.
type Dispatcher struct {
	sender   Sender
	renderer *Renderer
	from     string
	replyTo  string
	logger   account.Logger
}

var _ account.Mailer = (*Dispatcher)(nil)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

func WithSender(s Sender) DispatcherOption {
	return func(d *Dispatcher) {
		if s != nil {
			d.sender = s
		}
	}
}

func WithRenderer(r *Renderer) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.renderer = r
		}
	}
}

func WithLogger(l account.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher returns a dispatcher dialing the SMTP server of cfg
func NewDispatcher(cfg Config, opts ...DispatcherOption) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		sender:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		renderer: NewRenderer(),
		from:     cfg.From,
		replyTo:  cfg.ReplyTo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	_, d.logger = account.ResolveLogger("account.mailer", nil, d.logger)
	return d, nil
}

// Send renders n and delivers it
func (d *Dispatcher) Send(ctx context.Context, n account.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := d.renderer.Render(n)
	if err != nil {
		return err
	}
	if msg.To == "" {
		return goerrors.New("notification has no recipient", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"template": string(n.Template)})
	}

	if err := d.sender.DialAndSend(d.compose(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to send notification").
			WithMetadata(map[string]any{"template": string(n.Template)})
	}

	d.logger.Debug("notification sent", "template", string(n.Template), "locale", n.Locale)
	return nil
}

func (d *Dispatcher) compose(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.To)
	if d.replyTo != "" {
		m.SetHeader("Reply-To", d.replyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m
}
