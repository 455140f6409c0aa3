package account

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes the account store and its transactions
type RepositoryManager interface {
	UniquenessChecker
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Accounts() Accounts
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
}

// NewRepositoryManager returns a manager over db
func NewRepositoryManager(db *bun.DB, opts ...AccountsOption) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db, opts...),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

// IsTaken runs a read only existence check on kind.field
func (m mngr) IsTaken(ctx context.Context, kind EntityKind, field AccountField, value string) (bool, error) {
	return m.IsTakenTx(ctx, m.db, kind, field, value)
}

func (m mngr) IsTakenTx(ctx context.Context, tx bun.IDB, kind EntityKind, field AccountField, value string) (bool, error) {
	if !field.Valid() {
		return false, ErrUnknownField
	}
	if tx == nil {
		tx = m.db
	}
	return tx.NewSelect().
		TableExpr("?", bun.Ident(kind)).
		Where("? = ?", bun.Ident(field.String()), value).
		Exists(ctx)
}
