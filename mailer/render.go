package mailer

import (
	"embed"
	"errors"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
)

//go:embed templates
var templatesFS embed.FS

// FallbackLocale is used when a template is missing for the requested locale
const FallbackLocale = "en"

// Message is a rendered notification
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Renderer renders notifications from pongo2 templates laid out as
// {locale}/{template}.subject and {locale}/{template}.html
type Renderer struct {
	fsys        fs.FS
	websiteName string
	baseURL     string

	mu    sync.Mutex
	cache map[string]*pongo2.Template
}

// RendererOption configures a Renderer
type RendererOption func(*Renderer)

// WithTemplates replaces the embedded templates
func WithTemplates(fsys fs.FS) RendererOption {
	return func(r *Renderer) {
		if fsys != nil {
			r.fsys = fsys
		}
	}
}

func WithWebsiteName(name string) RendererOption {
	return func(r *Renderer) { r.websiteName = name }
}

// WithBaseURL sets the absolute URL links are built from
func WithBaseURL(u string) RendererOption {
	return func(r *Renderer) { r.baseURL = strings.TrimRight(u, "/") }
}

func NewRenderer(opts ...RendererOption) *Renderer {
	sub, _ := fs.Sub(templatesFS, "templates")
	r := &Renderer{
		fsys:  sub,
		cache: map[string]*pongo2.Template{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Render produces the subject and body of n
func (r *Renderer) Render(n account.Notification) (*Message, error) {
	data := r.context(n)

	subject, err := r.execute(n.Template, n.Locale, "subject", data)
	if err != nil {
		return nil, err
	}
	body, err := r.execute(n.Template, n.Locale, "html", data)
	if err != nil {
		return nil, err
	}

	return &Message{
		To:      n.Recipient(),
		Subject: strings.TrimSpace(subject),
		HTML:    body,
	}, nil
}

func (r *Renderer) context(n account.Notification) pongo2.Context {
	data := pongo2.Context{
		"website_name": r.websiteName,
		"base_url":     r.baseURL,
		"locale":       n.Locale,
	}
	if n.Account != nil {
		data["account"] = map[string]any{
			"business_username": n.Account.BusinessUsername,
			"email":             n.Account.Email,
		}
	}
	for k, v := range n.Params {
		data[k] = v
	}
	return data
}

func (r *Renderer) execute(key account.TemplateKey, locale, ext string, data pongo2.Context) (string, error) {
	tpl, err := r.lookup(key, locale, ext)
	if err != nil {
		return "", err
	}
	out, err := tpl.Execute(data)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render notification template").
			WithMetadata(map[string]any{"template": string(key), "format": ext})
	}
	return out, nil
}

// lookup loads a template for locale, falling back to FallbackLocale
func (r *Renderer) lookup(key account.TemplateKey, locale, ext string) (*pongo2.Template, error) {
	if locale == "" {
		locale = FallbackLocale
	}

	candidates := []string{path.Join(locale, string(key)+"."+ext)}
	if locale != FallbackLocale {
		candidates = append(candidates, path.Join(FallbackLocale, string(key)+"."+ext))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range candidates {
		if tpl, ok := r.cache[name]; ok {
			return tpl, nil
		}

		raw, err := fs.ReadFile(r.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		tpl, err := pongo2.FromBytes(raw)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse notification template").
				WithMetadata(map[string]any{"file": name})
		}
		r.cache[name] = tpl
		return tpl, nil
	}
	return nil, goerrors.New("notification template not found", goerrors.CategoryNotFound).
		WithMetadata(map[string]any{"template": string(key), "locale": locale})
}
