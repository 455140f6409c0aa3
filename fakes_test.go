package account_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in memory RepositoryManager. Transactions are not
// isolated: RunInTx runs f directly.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*account.Account
	saveErr error
	// createErrs fail the next CreateTx calls in order
	createErrs []error
}

var (
	_ account.RepositoryManager = (*memStore)(nil)
	_ account.Accounts          = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{records: map[uuid.UUID]*account.Account{}}
}

func clone(a *account.Account) *account.Account {
	out := *a
	out.Roles = append([]string(nil), a.Roles...)
	return &out
}

func (m *memStore) Validate() error { return nil }
func (m *memStore) MustValidate()   {}

func (m *memStore) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *memStore) Accounts() account.Accounts { return m }

func (m *memStore) IsTaken(ctx context.Context, kind account.EntityKind, field account.AccountField, value string) (bool, error) {
	return m.IsTakenTx(ctx, nil, kind, field, value)
}

func (m *memStore) IsTakenTx(_ context.Context, _ bun.IDB, kind account.EntityKind, field account.AccountField, value string) (bool, error) {
	if kind != account.AccountKind {
		return false, errors.New("unknown kind " + kind)
	}
	_, ok := m.find(field, value)
	return ok, nil
}

func (m *memStore) find(field account.AccountField, value string) (*account.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		return nil, false
	}
	for _, rec := range m.records {
		if rec.TokenFor(field) == value {
			return clone(rec), true
		}
	}
	return nil, false
}

func notFound() error {
	return repository.NewRecordNotFound()
}

func (m *memStore) GetByField(ctx context.Context, field account.AccountField, value string) (*account.Account, error) {
	return m.GetByFieldTx(ctx, nil, field, value)
}

func (m *memStore) GetByFieldTx(_ context.Context, _ bun.IDB, field account.AccountField, value string) (*account.Account, error) {
	if !field.Valid() {
		return nil, account.ErrUnknownField
	}
	if rec, ok := m.find(field, value); ok {
		return rec, nil
	}
	return nil, notFound()
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		return clone(rec), nil
	}
	return nil, notFound()
}

func (m *memStore) GetByLogin(ctx context.Context, login string) (*account.Account, error) {
	return m.GetByLoginTx(ctx, nil, login)
}

func (m *memStore) GetByLoginTx(ctx context.Context, tx bun.IDB, login string) (*account.Account, error) {
	if account.IsEmailLogin(login) {
		return m.GetByFieldTx(ctx, tx, account.FieldEmail, login)
	}
	return m.GetByFieldTx(ctx, tx, account.FieldBusinessUsername, login)
}

func (m *memStore) CreateTx(_ context.Context, _ bun.IDB, record *account.Account) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		return nil, err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, exists := m.records[record.ID]; exists {
		return nil, errors.New("duplicate primary key")
	}
	now := time.Now()
	record.CreatedAt = &now
	m.records[record.ID] = clone(record)
	return record, nil
}

func (m *memStore) Save(ctx context.Context, record *account.Account) error {
	return m.SaveTx(ctx, nil, record)
}

func (m *memStore) SaveTx(_ context.Context, _ bun.IDB, record *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.records[record.ID]; !ok {
		return notFound()
	}
	m.records[record.ID] = clone(record)
	return nil
}

func (m *memStore) Delete(ctx context.Context, record *account.Account) error {
	return m.DeleteTx(ctx, nil, record)
}

func (m *memStore) DeleteTx(_ context.Context, _ bun.IDB, record *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, record.ID)
	return nil
}

func (m *memStore) ListUnactivatedBefore(_ context.Context, before time.Time, limit int) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, rec := range m.records {
		if rec.Activated || rec.CreatedAt == nil || !rec.CreatedAt.Before(before) {
			continue
		}
		out = append(out, clone(rec))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) put(rec *account.Account) *account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt == nil {
		now := time.Now()
		rec.CreatedAt = &now
	}
	m.records[rec.ID] = clone(rec)
	return clone(rec)
}

func (m *memStore) get(t *testing.T, id uuid.UUID) *account.Account {
	t.Helper()
	rec, err := m.GetByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// sentMail is a notification snapshot taken at send time
type sentMail struct {
	Template account.TemplateKey
	To       string
	Locale   string
	Params   map[string]any
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(_ context.Context, n account.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{
		Template: n.Template,
		To:       n.Recipient(),
		Locale:   n.Locale,
		Params:   n.Params,
	})
	return r.err
}

func (r *recordingMailer) templates() []account.TemplateKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]account.TemplateKey, 0, len(r.sent))
	for _, s := range r.sent {
		out = append(out, s.Template)
	}
	return out
}

func (r *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent, "no notification sent")
	return r.sent[len(r.sent)-1]
}

type recordingSink struct {
	mu     sync.Mutex
	events []account.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, e account.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []account.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]account.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// fixedScore always reports the same zxcvbn score
type fixedScore int

func (f fixedScore) Score(string, []string) int { return int(f) }

type breachList map[string]bool

func (b breachList) IsBreached(_ context.Context, password string) bool { return b[password] }

// clock is a settable test clock
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store  *memStore
	mailer *recordingMailer
	sink   *recordingSink
	clock  *clock
	hasher *account.BcryptHasher
	lc     *account.Lifecycle
}

const strongPassword = "correct horse battery staple"

func newHarness(t *testing.T, opts ...account.LifecycleOption) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(),
		mailer: &recordingMailer{},
		sink:   &recordingSink{},
		clock:  newClock(),
		hasher: account.NewBcryptHasher(bcrypt.MinCost),
	}

	settings := account.DefaultSettings()
	settings.WebsiteName = "Acme"

	base := []account.LifecycleOption{
		account.WithLifecycleConfig(settings),
		account.WithStrengthGate(account.NewPasswordStrengthGate(
			account.WithStrengthEstimator(fixedScore(4)),
			account.WithBreachChecker(breachList{"breached password 123": true}),
		)),
		account.WithActivitySink(h.sink),
		account.WithClock(h.clock.Now),
		account.WithLogger(silentLogger{}),
	}
	h.lc = account.NewLifecycle(h.store, h.hasher, h.mailer, append(base, opts...)...)
	return h
}

// activeAccount stores an activated account with strongPassword
func (h *harness) activeAccount(t *testing.T, name, email string) *account.Account {
	t.Helper()
	hash, err := h.hasher.Hash(strongPassword)
	require.NoError(t, err)
	return h.store.put(&account.Account{
		Username:         "handle-" + name,
		BusinessUsername: name,
		Email:            email,
		PasswordHash:     hash,
		Roles:            []string{account.RoleUser},
		Activated:        true,
	})
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any)                       {}
func (silentLogger) Info(string, ...any)                        {}
func (silentLogger) Warn(string, ...any)                        {}
func (silentLogger) Error(string, ...any)                       {}
func (s silentLogger) WithContext(context.Context) account.Logger { return s }
