package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// loginEmailPattern decides whether a login is looked up by email or by
// business username
var loginEmailPattern = regexp.MustCompile(`^.+@\S+\.\S+$`)

// IsEmailLogin reports whether login must be resolved by email
func IsEmailLogin(login string) bool {
	return loginEmailPattern.MatchString(login)
}

// IsNotFound reports whether err is a missing record error
func IsNotFound(err error) bool {
	return err != nil && repository.IsRecordNotFound(err)
}

// pgUniqueViolation is the postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err comes from a unique constraint,
// on postgres or sqlite
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type accounts struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var _ Accounts = (*accounts)(nil)

// AccountsOption configures the bun accounts repository
type AccountsOption func(*accounts)

// WithAccountsClock sets the clock used for created_at and updated_at
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accounts) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAccountsRepository returns the bun backed Accounts
func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	out := &accounts{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	return out
}

func (a *accounts) GetByField(ctx context.Context, field AccountField, value string) (*Account, error) {
	return a.GetByFieldTx(ctx, a.db, field, value)
}

func (a *accounts) GetByFieldTx(ctx context.Context, tx bun.IDB, field AccountField, value string) (*Account, error) {
	if !field.Valid() {
		return nil, ErrUnknownField
	}
	if value == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"field": field.String()})
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", field), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"field": field.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) GetByLogin(ctx context.Context, login string) (*Account, error) {
	return a.GetByLoginTx(ctx, a.db, login)
}

// GetByLoginTx resolves an email shaped login by email and anything else
// by business username
func (a *accounts) GetByLoginTx(ctx context.Context, tx bun.IDB, login string) (*Account, error) {
	login = strings.TrimSpace(login)
	if IsEmailLogin(login) {
		return a.GetByFieldTx(ctx, tx, FieldEmail, login)
	}
	return a.GetByFieldTx(ctx, tx, FieldBusinessUsername, login)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record, a.now())
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *accounts) Save(ctx context.Context, record *Account) error {
	return a.SaveTx(ctx, a.db, record)
}

// SaveTx writes every column of record, including unset tokens.
// NOTE: the generic UpdateTx skips zero values so it cannot clear tokens.
func (a *accounts) SaveTx(ctx context.Context, tx bun.IDB, record *Account) error {
	record.UpdatedAt = timePtr(a.now())
	_, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	return err
}

func (a *accounts) Delete(ctx context.Context, record *Account) error {
	return a.DeleteTx(ctx, a.db, record)
}

func (a *accounts) DeleteTx(ctx context.Context, tx bun.IDB, record *Account) error {
	_, err := tx.NewDelete().
		Model(record).
		WherePK().
		Exec(ctx)
	return err
}

// ListUnactivatedBefore returns up to limit accounts never activated and
// created before the given time, oldest first
func (a *accounts) ListUnactivatedBefore(ctx context.Context, before time.Time, limit int) ([]*Account, error) {
	records := []*Account{}
	q := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.activated = ?", false).
		Where("?TableAlias.created_at < ?", before).
		OrderExpr("?TableAlias.created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func prepareAccountDefaults(record *Account, now time.Time) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if len(record.Roles) == 0 {
		record.Roles = []string{RoleUser}
	}
	if record.CreatedAt == nil {
		record.CreatedAt = timePtr(now)
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = timePtr(now)
	}
}
