package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehedi/hookpulse/internal/models"
	"github.com/mehedi/hookpulse/internal/storage"
)

type failingStore struct {
	storage.NotificationStore
}

func (failingStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return errors.New("disk full")
}

func TestAutoCloseFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sev    models.Severity
		want   time.Duration
		sticky bool
	}{
		{models.SeverityInfo, 5 * time.Second, false},
		{models.SeveritySuccess, 5 * time.Second, false},
		{models.SeverityWarning, 7 * time.Second, false},
		{models.SeverityError, 10 * time.Second, false},
		{models.SeverityCritical, 0, true},
	}

	for _, tt := range tests {
		d, sticky := AutoCloseFor(tt.sev)
		assert.Equal(t, tt.want, d, "severity %s", tt.sev)
		assert.Equal(t, tt.sticky, sticky, "severity %s", tt.sev)
	}
}

func TestDispatchPersistsAndToasts(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	hub := NewHub(4)
	defer hub.Close()
	n := NewNotifier(store, hub, zerolog.Nop())

	ch, cancel := hub.Subscribe("acc_1")
	defer cancel()

	record := n.Dispatch(context.Background(), "acc_1", Note{
		Title:    "Webhook failed",
		Message:  "boom",
		Severity: models.SeverityError,
		Category: models.CategoryWebhook,
		Metadata: map[string]string{"webhook_id": "wh_1"},
	})

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "acc_1", record.AccountID)
	assert.False(t, record.Read)

	// Persisted.
	stored, err := store.ListNotifications(context.Background(), "acc_1", false, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, record.ID, stored[0].ID)
	assert.Equal(t, models.SeverityError, stored[0].Severity)
	assert.Equal(t, "wh_1", stored[0].Metadata["webhook_id"])

	// Toasted with the severity's auto-close.
	toast := <-ch
	assert.Equal(t, record.ID, toast.Notification.ID)
	assert.Equal(t, int64(10000), toast.AutoCloseMs)
	assert.False(t, toast.Sticky)
}

func TestDispatchDefaults(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	n := NewNotifier(store, nil, zerolog.Nop())

	record := n.Dispatch(context.Background(), "acc_1", Note{Title: "plain"})

	assert.Equal(t, models.SeverityInfo, record.Severity)
	assert.Equal(t, models.CategorySystem, record.Category)
}

func TestDispatchCriticalIsSticky(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	defer hub.Close()
	n := NewNotifier(storage.NewMemory(), hub, zerolog.Nop())

	ch, cancel := hub.Subscribe("acc_1")
	defer cancel()

	n.Dispatch(context.Background(), "acc_1", Note{
		Title:    "Storage degraded",
		Severity: models.SeverityCritical,
	})

	toast := <-ch
	assert.True(t, toast.Sticky)
	assert.Zero(t, toast.AutoCloseMs)
}

func TestDispatchSkipFlags(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	hub := NewHub(4)
	defer hub.Close()
	n := NewNotifier(store, hub, zerolog.Nop())

	ch, cancel := hub.Subscribe("acc_1")
	defer cancel()

	n.Dispatch(context.Background(), "acc_1", Note{Title: "transient", SkipStore: true})
	n.Dispatch(context.Background(), "acc_1", Note{Title: "silent", SkipToast: true})

	stored, err := store.ListNotifications(context.Background(), "acc_1", false, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "silent", stored[0].Title)

	toast := <-ch
	assert.Equal(t, "transient", toast.Notification.Title)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected toast: %+v", extra)
	default:
	}
}

func TestDispatchSurvivesStoreFailure(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	defer hub.Close()
	n := NewNotifier(failingStore{}, hub, zerolog.Nop())

	ch, cancel := hub.Subscribe("acc_1")
	defer cancel()

	// Never panics or errors; the toast still goes out.
	record := n.Dispatch(context.Background(), "acc_1", Note{Title: "best effort"})
	assert.NotEmpty(t, record.ID)

	toast := <-ch
	assert.Equal(t, "best effort", toast.Notification.Title)
}

func TestWebhookPresets(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	n := NewNotifier(store, nil, zerolog.Nop())
	ctx := context.Background()

	n.WebhookSuccess(ctx, "acc_1", "deploy hook", map[string]string{"webhook_id": "wh_1"})
	n.WebhookRetry(ctx, "acc_1", "deploy hook", 2, nil)
	n.WebhookFailure(ctx, "acc_1", "deploy hook", "HTTP 500: boom", nil)
	n.SecurityEvent(ctx, "acc_1", "New login", "Login from new device", nil)

	stored, err := store.ListNotifications(ctx, "acc_1", false, 0)
	require.NoError(t, err)
	require.Len(t, stored, 4)

	bySeverity := map[models.Severity]int{}
	byCategory := map[models.Category]int{}
	for _, rec := range stored {
		bySeverity[rec.Severity]++
		byCategory[rec.Category]++
	}

	assert.Equal(t, 1, bySeverity[models.SeveritySuccess])
	assert.Equal(t, 2, bySeverity[models.SeverityWarning]) // retry + security
	assert.Equal(t, 1, bySeverity[models.SeverityError])
	assert.Equal(t, 3, byCategory[models.CategoryWebhook])
	assert.Equal(t, 1, byCategory[models.CategorySecurity])

	for _, rec := range stored {
		if rec.Severity == models.SeverityError {
			assert.Contains(t, rec.Message, "HTTP 500: boom")
			assert.Equal(t, "HTTP 500: boom", rec.Metadata["error"])
		}
	}
}
