package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehedi/hookpulse/internal/models"
)

// runStoreTests runs the same assertions against every Storage
// implementation so the memory store stays a faithful stand-in for
// SQLite.
func runStoreTests(t *testing.T, name string, open func(t *testing.T) Storage) {
	t.Run(name+"/accounts", func(t *testing.T) { testAccounts(t, open(t)) })
	t.Run(name+"/webhooks", func(t *testing.T) { testWebhooks(t, open(t)) })
	t.Run(name+"/executions", func(t *testing.T) { testExecutions(t, open(t)) })
	t.Run(name+"/notifications", func(t *testing.T) { testNotifications(t, open(t)) })
}

func TestMemoryStorage(t *testing.T) {
	runStoreTests(t, "memory", func(t *testing.T) Storage {
		return NewMemory()
	})
}

func TestSQLiteStorage(t *testing.T) {
	runStoreTests(t, "sqlite", func(t *testing.T) Storage {
		store, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		require.NoError(t, store.Migrate(context.Background()))
		return store
	})
}

func newTestAccount(name string) *models.Account {
	now := time.Now().UTC()
	return &models.Account{
		ID:        models.NewID("acc"),
		Name:      name,
		APIKey:    models.NewAPIKey(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestWebhook(accountID, name string) *models.Webhook {
	now := time.Now().UTC()
	return &models.Webhook{
		ID:        models.NewID("wh"),
		AccountID: accountID,
		Name:      name,
		URL:       "https://example.com/hook",
		Method:    "POST",
		Headers:   map[string]string{"X-Custom": "v"},
		Body:      json.RawMessage(`{"id":"${id}"}`),
		Secret:    "whsec_test",
		Status:    models.WebhookActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testAccounts(t *testing.T, store Storage) {
	ctx := context.Background()

	acc := newTestAccount("acme")
	require.NoError(t, store.CreateAccount(ctx, acc))

	got, err := store.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.Name, got.Name)
	assert.Equal(t, acc.APIKey, got.APIKey)

	byKey, err := store.GetAccountByAPIKey(ctx, acc.APIKey)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byKey.ID)

	_, err = store.GetAccount(ctx, "acc_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetAccountByAPIKey(ctx, "hpk_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	newKey := models.NewAPIKey()
	require.NoError(t, store.UpdateAccountAPIKey(ctx, acc.ID, newKey))

	_, err = store.GetAccountByAPIKey(ctx, acc.APIKey)
	assert.ErrorIs(t, err, ErrNotFound, "old key must stop working")
	rotated, err := store.GetAccountByAPIKey(ctx, newKey)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, rotated.ID)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, store.DeleteAccount(ctx, acc.ID))
	_, err = store.GetAccount(ctx, acc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testWebhooks(t *testing.T, store Storage) {
	ctx := context.Background()

	acc := newTestAccount("acme")
	require.NoError(t, store.CreateAccount(ctx, acc))

	wh := newTestWebhook(acc.ID, "deploy hook")
	require.NoError(t, store.CreateWebhook(ctx, wh))

	got, err := store.GetWebhook(ctx, acc.ID, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, wh.Name, got.Name)
	assert.Equal(t, wh.URL, got.URL)
	assert.Equal(t, wh.Headers, got.Headers)
	assert.JSONEq(t, string(wh.Body), string(got.Body))
	assert.Equal(t, wh.Secret, got.Secret)
	assert.True(t, got.IsActive())

	// Tenancy: another account cannot see it.
	_, err = store.GetWebhook(ctx, "acc_other", wh.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got.Name = "renamed"
	got.URL = "https://example.com/v2"
	require.NoError(t, store.UpdateWebhook(ctx, got))
	updated, err := store.GetWebhook(ctx, acc.ID, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "https://example.com/v2", updated.URL)

	second := newTestWebhook(acc.ID, "audit hook")
	require.NoError(t, store.CreateWebhook(ctx, second))
	require.NoError(t, store.SetWebhookStatus(ctx, acc.ID, second.ID, models.WebhookDisabled))

	all, err := store.ListWebhooks(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := store.ListActiveWebhooks(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, wh.ID, active[0].ID)

	require.NoError(t, store.DeleteWebhook(ctx, acc.ID, wh.ID))
	_, err = store.GetWebhook(ctx, acc.ID, wh.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testExecutions(t *testing.T, store Storage) {
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	statuses := []models.ExecutionStatus{
		models.ExecutionFailure,
		models.ExecutionFailure,
		models.ExecutionSuccess,
	}
	for i, status := range statuses {
		exec := &models.Execution{
			ID:             models.NewID("exe"),
			AccountID:      "acc_1",
			WebhookID:      "wh_1",
			Status:         status,
			Attempt:        i,
			ResponseTimeMs: int64(100 * (i + 1)),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.AppendExecution(ctx, exec))
		require.NoError(t, store.UpdateMetrics(ctx, exec))
	}

	m, err := store.GetMetrics(ctx, "acc_1", "wh_1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.TotalExecutions)
	assert.Equal(t, int64(1), m.SuccessCount)
	assert.Equal(t, int64(2), m.FailureCount)
	assert.InDelta(t, 200.0, m.AverageResponseTime, 0.001)
	assert.Equal(t, models.ExecutionSuccess, m.LastStatus)
	require.NotNil(t, m.LastExecuted)

	empty, err := store.GetMetrics(ctx, "acc_1", "wh_never")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalExecutions)
	assert.Nil(t, empty.LastExecuted)

	recent, err := store.RecentExecutions(ctx, "acc_1", "wh_1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.ExecutionSuccess, recent[0].Status)

	since, err := store.ExecutionsSince(ctx, "acc_1", "wh_1", base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.True(t, since[0].CreatedAt.Before(since[1].CreatedAt))
}

func testNotifications(t *testing.T, store Storage) {
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		n := &models.Notification{
			ID:        models.NewID("ntf"),
			AccountID: "acc_1",
			Title:     "Webhook failed",
			Message:   "boom",
			Severity:  models.SeverityError,
			Category:  models.CategoryWebhook,
			Metadata:  map[string]string{"webhook_id": "wh_1"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.CreateNotification(ctx, n))
		ids = append(ids, n.ID)
	}

	all, err := store.ListNotifications(ctx, "acc_1", false, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, "wh_1", all[0].Metadata["webhook_id"])

	count, err := store.CountUnreadNotifications(ctx, "acc_1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, store.MarkNotificationsRead(ctx, "acc_1", ids[0], ids[1]))

	count, err = store.CountUnreadNotifications(ctx, "acc_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	unread, err := store.ListNotifications(ctx, "acc_1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, ids[2], unread[0].ID)

	limited, err := store.ListNotifications(ctx, "acc_1", false, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Tenancy: other accounts see nothing.
	other, err := store.ListNotifications(ctx, "acc_2", false, 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}
