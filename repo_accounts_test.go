package account_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupAccountsDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = account.Migrate(context.Background(), db)
	require.NoError(t, err)
	return db
}

func newStoredAccount(name string) *account.Account {
	return &account.Account{
		Username:         "handle-" + name,
		BusinessUsername: name,
		Email:            name + "@example.com",
		PasswordHash:     "hash",
	}
}

func TestAccountsRepository_CreateAndLookup(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	repo := account.NewAccountsRepository(db)

	created, err := repo.CreateTx(ctx, db, newStoredAccount("alice"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, []string{account.RoleUser}, created.Roles)
	assert.NotNil(t, created.CreatedAt)

	byEmail, err := repo.GetByField(ctx, account.FieldEmail, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, []string{account.RoleUser}, byEmail.Roles)
	assert.False(t, byEmail.Activated)

	byLogin, err := repo.GetByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byLogin.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "handle-alice", byID.Username)
}

func TestAccountsRepository_NotFoundAndUnknownField(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	repo := account.NewAccountsRepository(db)

	_, err := repo.GetByField(ctx, account.FieldPasswordResetToken, "missing")
	assert.True(t, account.IsNotFound(err))

	_, err = repo.GetByField(ctx, account.FieldPasswordResetToken, "")
	assert.True(t, account.IsNotFound(err))

	_, err = repo.GetByField(ctx, account.AccountField("password_hash"), "hash")
	assert.ErrorIs(t, err, account.ErrUnknownField)
}

func TestAccountsRepository_SaveClearsTokens(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	repo := account.NewAccountsRepository(db)

	created, err := repo.CreateTx(ctx, db, newStoredAccount("alice"))
	require.NoError(t, err)

	token := "reset-token"
	requestedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	created.PasswordResetToken = &token
	created.PasswordResetRequestedAt = &requestedAt
	require.NoError(t, repo.Save(ctx, created))

	stored, err := repo.GetByField(ctx, account.FieldPasswordResetToken, token)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetRequestedAt)
	assert.True(t, requestedAt.Equal(*stored.PasswordResetRequestedAt))

	stored.PasswordResetToken = nil
	stored.PasswordResetRequestedAt = nil
	stored.Activated = true
	require.NoError(t, repo.Save(ctx, stored))

	_, err = repo.GetByField(ctx, account.FieldPasswordResetToken, token)
	assert.True(t, account.IsNotFound(err))

	reloaded, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Activated)
	assert.Nil(t, reloaded.PasswordResetRequestedAt)
}

func TestAccountsRepository_ListUnactivatedBefore(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	names := []string{"old1", "old2", "fresh"}
	ages := []time.Duration{10 * 24 * time.Hour, 9 * 24 * time.Hour, time.Hour}
	for i, name := range names {
		createdAt := base.Add(-ages[i])
		repo := account.NewAccountsRepository(db, account.WithAccountsClock(func() time.Time { return createdAt }))
		_, err := repo.CreateTx(ctx, db, newStoredAccount(name))
		require.NoError(t, err)
	}

	repo := account.NewAccountsRepository(db)
	activated := newStoredAccount("activated")
	activated.Activated = true
	old := base.Add(-30 * 24 * time.Hour)
	activated.CreatedAt = &old
	_, err := repo.CreateTx(ctx, db, activated)
	require.NoError(t, err)

	page, err := repo.ListUnactivatedBefore(ctx, base.Add(-7*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "old1", page[0].BusinessUsername)
	assert.Equal(t, "old2", page[1].BusinessUsername)

	limited, err := repo.ListUnactivatedBefore(ctx, base.Add(-7*24*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.Delete(ctx, page[0]))
	remaining, err := repo.ListUnactivatedBefore(ctx, base.Add(-7*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRepositoryManager_IsTaken(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	mngr := account.NewRepositoryManager(db)
	require.NoError(t, mngr.Validate())

	_, err := mngr.Accounts().CreateTx(ctx, db, newStoredAccount("alice"))
	require.NoError(t, err)

	taken, err := mngr.IsTaken(ctx, account.AccountKind, account.FieldEmail, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = mngr.IsTaken(ctx, account.AccountKind, account.FieldBusinessUsername, "bob")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = mngr.IsTaken(ctx, account.AccountKind, account.AccountField("roles"), "x")
	assert.ErrorIs(t, err, account.ErrUnknownField)
}

func TestRepositoryManager_IsTakenTxSeesOwnWrites(t *testing.T) {
	db := setupAccountsDB(t)
	mngr := account.NewRepositoryManager(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := mngr.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := mngr.Accounts().CreateTx(ctx, tx, newStoredAccount("alice")); err != nil {
			return err
		}
		taken, err := mngr.IsTakenTx(ctx, tx, account.AccountKind, account.FieldUsername, "handle-alice")
		if err != nil {
			return err
		}
		assert.True(t, taken)
		return nil
	})
	require.NoError(t, err)
}

func TestRepositoryManager_RunInTxRollsBack(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	mngr := account.NewRepositoryManager(db)

	err := mngr.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := mngr.Accounts().CreateTx(ctx, tx, newStoredAccount("alice")); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	assert.ErrorIs(t, err, sql.ErrTxDone)

	_, err = mngr.Accounts().GetByField(ctx, account.FieldEmail, "alice@example.com")
	assert.True(t, account.IsNotFound(err))
}

func TestIsEmailLogin(t *testing.T) {
	assert.True(t, account.IsEmailLogin("alice@example.com"))
	assert.False(t, account.IsEmailLogin("alice"))
	assert.False(t, account.IsEmailLogin("alice@localhost"))
}

func TestIsUniqueViolation(t *testing.T) {
	db := setupAccountsDB(t)
	ctx := context.Background()
	repo := account.NewAccountsRepository(db)

	_, err := repo.CreateTx(ctx, db, newStoredAccount("alice"))
	require.NoError(t, err)

	_, err = repo.CreateTx(ctx, db, newStoredAccount("alice"))
	require.Error(t, err)
	assert.True(t, account.IsUniqueViolation(err))

	assert.True(t, account.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, account.IsUniqueViolation(&pgconn.PgError{Code: "23502"}))
	assert.False(t, account.IsUniqueViolation(nil))
	assert.False(t, account.IsUniqueViolation(sql.ErrConnDone))
}
