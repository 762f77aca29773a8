package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mehedi/hookpulse/internal/models"
)

// ErrNotFound is returned by single-row lookups for missing records.
// List operations return empty slices instead.
var ErrNotFound = errors.New("not found")

// AccountStore owns account records and API-key resolution.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByAPIKey(ctx context.Context, apiKey string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	UpdateAccountAPIKey(ctx context.Context, id, newKey string) error
}

// WebhookStore is the webhook registry. The dispatch path reads
// definitions through it fresh on every invocation.
type WebhookStore interface {
	CreateWebhook(ctx context.Context, wh *models.Webhook) error
	GetWebhook(ctx context.Context, accountID, id string) (*models.Webhook, error)
	ListWebhooks(ctx context.Context, accountID string) ([]models.Webhook, error)
	ListActiveWebhooks(ctx context.Context, accountID string) ([]models.Webhook, error)
	UpdateWebhook(ctx context.Context, wh *models.Webhook) error
	DeleteWebhook(ctx context.Context, accountID, id string) error
	SetWebhookStatus(ctx context.Context, accountID, id string, status models.WebhookStatus) error
}

// ExecutionStore persists delivery attempt records and the per-webhook
// running aggregates.
//
// UpdateMetrics must apply the counter increments and running-mean
// recomputation as a single atomic transform so concurrent deliveries to
// the same webhook never lose updates.
type ExecutionStore interface {
	AppendExecution(ctx context.Context, exec *models.Execution) error
	UpdateMetrics(ctx context.Context, exec *models.Execution) error
	GetMetrics(ctx context.Context, accountID, webhookID string) (*models.Metrics, error)
	RecentExecutions(ctx context.Context, accountID, webhookID string, limit int) ([]models.Execution, error)
	ExecutionsSince(ctx context.Context, accountID, webhookID string, since time.Time) ([]models.Execution, error)
}

// NotificationStore persists user-facing alerts.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, accountID string, onlyUnread bool, limit int) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, accountID string, ids ...string) error
	CountUnreadNotifications(ctx context.Context, accountID string) (int64, error)
}

// Storage is the full persistence surface. Components take the narrow
// interface they need; the composite exists for wiring and lifecycle.
type Storage interface {
	AccountStore
	WebhookStore
	ExecutionStore
	NotificationStore

	Migrate(ctx context.Context) error
	Close() error
}
