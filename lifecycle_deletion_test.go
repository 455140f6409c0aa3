package account_test

import (
	"context"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestDeletion(t *testing.T, h *harness, a *account.Account) string {
	t.Helper()
	out, err := h.lc.RequestAccountDeletion(context.Background(), a, "en")
	require.NoError(t, err)
	require.True(t, out.IsSuccess())
	require.True(t, out.Logout)
	return h.store.get(t, a.ID).TokenFor(account.FieldAccountDeletionToken)
}

func TestRequestAccountDeletion(t *testing.T) {
	h := newHarness(t)
	alice := h.activeAccount(t, "alice", "alice@example.com")

	token := requestDeletion(t, h, alice)
	assert.Len(t, token, 86)

	mail := h.mailer.last(t)
	assert.Equal(t, account.TemplateAccountDeletionRequest, mail.Template)
	assert.Equal(t, token, mail.Params[account.ParamToken])

	// inside the retry delay nothing changes
	h.clock.Advance(time.Minute)
	again := requestDeletion(t, h, alice)
	assert.Equal(t, token, again)
	assert.Len(t, h.mailer.templates(), 1)
}

func TestResolveAccountDeletion_AnonymousDeletesNow(t *testing.T) {
	h := newHarness(t)
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	out, err := h.lc.ResolveAccountDeletion(context.Background(), account.AccountDeletionMessage{
		Token:  token,
		Action: account.DeletionConfirm,
	})
	require.NoError(t, err)
	assert.Equal(t, account.MsgAccountDeletionSuccess, out.Message)
	assert.False(t, out.Logout)
	assert.Zero(t, h.store.count())

	mail := h.mailer.last(t)
	assert.Equal(t, account.TemplateAccountDeletionSuccess, mail.Template)
	assert.Equal(t, "alice@example.com", mail.To)
}

func TestResolveAccountDeletion_OwnSessionIsDeferred(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	session := account.SessionRef{ID: "sess-1", AccountID: alice.ID}
	out, err := h.lc.ResolveAccountDeletion(ctx, account.AccountDeletionMessage{
		Token:   token,
		Action:  account.DeletionConfirm,
		Session: session,
	})
	require.NoError(t, err)
	assert.Equal(t, account.MsgAccountDeletionPendingLogout, out.Message)
	assert.True(t, out.Logout)
	assert.Equal(t, 1, h.store.count(), "deletion waits for the logout")

	none, err := h.lc.OnSessionTeardown(ctx, "other-session", "en")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, 1, h.store.count())

	done, err := h.lc.OnSessionTeardown(ctx, session.ID, "en")
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, account.MsgAccountDeletionSuccess, done.Message)
	assert.Zero(t, h.store.count())
	assert.Equal(t, account.TemplateAccountDeletionSuccess, h.mailer.last(t).Template)

	// the schedule is consumed
	twice, err := h.lc.OnSessionTeardown(ctx, session.ID, "en")
	require.NoError(t, err)
	assert.Nil(t, twice)
}

func TestOnSessionTeardown_CanceledMeanwhile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	_, err := h.lc.ResolveAccountDeletion(ctx, account.AccountDeletionMessage{
		Token:   token,
		Action:  account.DeletionConfirm,
		Session: account.SessionRef{ID: "sess-1", AccountID: alice.ID},
	})
	require.NoError(t, err)

	canceled, err := h.lc.ResolveAccountDeletion(ctx, account.AccountDeletionMessage{
		Token:  token,
		Action: account.DeletionCancel,
	})
	require.NoError(t, err)
	assert.Equal(t, account.MsgAccountDeletionCanceled, canceled.Message)

	out, err := h.lc.OnSessionTeardown(ctx, "sess-1", "en")
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, h.store.count())
}

func TestOnSessionTeardown_StaleScheduleDoesNotDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	_, err := h.lc.ResolveAccountDeletion(ctx, account.AccountDeletionMessage{
		Token:   token,
		Action:  account.DeletionConfirm,
		Session: account.SessionRef{ID: "sess-1", AccountID: alice.ID},
	})
	require.NoError(t, err)

	h.clock.Advance(90 * time.Minute)

	out, err := h.lc.OnSessionTeardown(ctx, "sess-1", "en")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, account.OutcomeTokenExpired, out.Kind)
	assert.Equal(t, 1, h.store.count())

	stored := h.store.get(t, alice.ID)
	assert.Nil(t, stored.AccountDeletionToken)
	assert.Nil(t, stored.AccountDeletionRequestedAt)
	assert.NotContains(t, h.sink.types(), account.ActivityEventDeleted)
	assert.Contains(t, h.sink.types(), account.ActivityEventTokenExpired)
}

func TestResolveAccountDeletion_Cancel(t *testing.T) {
	h := newHarness(t)
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	out, err := h.lc.ResolveAccountDeletion(context.Background(), account.AccountDeletionMessage{
		Token:  token,
		Action: account.DeletionCancel,
	})
	require.NoError(t, err)
	assert.True(t, out.IsSuccess())

	stored := h.store.get(t, alice.ID)
	assert.Nil(t, stored.AccountDeletionToken)
	assert.Nil(t, stored.AccountDeletionRequestedAt)
	assert.Contains(t, h.sink.types(), account.ActivityEventDeletionCanceled)
}

func TestResolveAccountDeletion_ExpiredAndInvalid(t *testing.T) {
	h := newHarness(t)
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	_, err := h.lc.ResolveAccountDeletion(context.Background(), account.AccountDeletionMessage{
		Token:  token,
		Action: "explode",
	})
	assert.Error(t, err)

	h.clock.Advance(90 * time.Minute)

	out, err := h.lc.ResolveAccountDeletion(context.Background(), account.AccountDeletionMessage{
		Token:  token,
		Action: account.DeletionConfirm,
	})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeTokenExpired, out.Kind)
	assert.Equal(t, 1, h.store.count())
	assert.Nil(t, h.store.get(t, alice.ID).AccountDeletionToken)
}

func TestInspectAccountDeletion(t *testing.T) {
	h := newHarness(t)
	alice := h.activeAccount(t, "alice", "alice@example.com")
	token := requestDeletion(t, h, alice)

	out, target, err := h.lc.InspectAccountDeletion(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, out.IsSuccess())
	assert.Equal(t, alice.ID, target.ID)

	out, target, err = h.lc.InspectAccountDeletion(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeTokenExpired, out.Kind)
	assert.Nil(t, target)
}
