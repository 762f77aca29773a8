// Package notify converts system events into user-visible alerts: a
// persisted notification record plus a transient toast pushed to live
// subscribers. Dispatch is best-effort by contract; a failed store write
// is logged and swallowed so alerting never blocks the primary workflow.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mehedi/hookpulse/internal/models"
	"github.com/mehedi/hookpulse/internal/storage"
)

// Note is a notification request. Zero values mean "default": severity
// info, category system, persisted and toasted.
type Note struct {
	Title     string
	Message   string
	Severity  models.Severity
	Category  models.Category
	Metadata  map[string]string
	SkipToast bool
	SkipStore bool
}

type Notifier struct {
	store storage.NotificationStore
	hub   *Hub
	log   zerolog.Logger
}

func NewNotifier(store storage.NotificationStore, hub *Hub, log zerolog.Logger) *Notifier {
	return &Notifier{store: store, hub: hub, log: log}
}

// AutoCloseFor maps severity to the toast auto-dismiss duration.
// Critical toasts are sticky: they stay until dismissed manually.
func AutoCloseFor(sev models.Severity) (d time.Duration, sticky bool) {
	switch sev {
	case models.SeverityError:
		return 10 * time.Second, false
	case models.SeverityCritical:
		return 0, true
	case models.SeverityWarning:
		return 7 * time.Second, false
	default:
		return 5 * time.Second, false
	}
}

// Dispatch builds the notification record, persists it and emits the
// toast. It never returns an error: persistence failures are logged and
// the caller's workflow continues.
func (n *Notifier) Dispatch(ctx context.Context, accountID string, note Note) models.Notification {
	if note.Severity == "" {
		note.Severity = models.SeverityInfo
	}
	if note.Category == "" {
		note.Category = models.CategorySystem
	}

	record := models.Notification{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Title:     note.Title,
		Message:   note.Message,
		Severity:  note.Severity,
		Category:  note.Category,
		Metadata:  note.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	if !note.SkipStore {
		if err := n.store.CreateNotification(ctx, &record); err != nil {
			n.log.Error().Err(err).
				Str("account_id", accountID).
				Str("title", note.Title).
				Msg("failed to store notification")
		}
	}

	if !note.SkipToast && n.hub != nil {
		autoClose, sticky := AutoCloseFor(note.Severity)
		n.hub.Publish(accountID, Toast{
			Notification: record,
			AutoCloseMs:  autoClose.Milliseconds(),
			Sticky:       sticky,
		})
	}

	return record
}

// --- Webhook presets ---

func (n *Notifier) WebhookSuccess(ctx context.Context, accountID, webhookName string, meta map[string]string) {
	n.Dispatch(ctx, accountID, Note{
		Title:    "Webhook delivered",
		Message:  fmt.Sprintf("Successfully executed webhook: %s", webhookName),
		Severity: models.SeveritySuccess,
		Category: models.CategoryWebhook,
		Metadata: meta,
	})
}

func (n *Notifier) WebhookFailure(ctx context.Context, accountID, webhookName, errMsg string, meta map[string]string) {
	n.Dispatch(ctx, accountID, Note{
		Title:    "Webhook failed",
		Message:  fmt.Sprintf("Failed to execute webhook: %s. Error: %s", webhookName, errMsg),
		Severity: models.SeverityError,
		Category: models.CategoryWebhook,
		Metadata: withMeta(meta, "error", errMsg),
	})
}

func (n *Notifier) WebhookRetry(ctx context.Context, accountID, webhookName string, attempt int, meta map[string]string) {
	n.Dispatch(ctx, accountID, Note{
		Title:    "Webhook retry",
		Message:  fmt.Sprintf("Retrying webhook: %s (attempt %d)", webhookName, attempt),
		Severity: models.SeverityWarning,
		Category: models.CategoryWebhook,
		Metadata: withMeta(meta, "attempt", fmt.Sprintf("%d", attempt)),
	})
}

// --- Other category presets ---

func (n *Notifier) SecurityEvent(ctx context.Context, accountID, title, message string, meta map[string]string) {
	n.Dispatch(ctx, accountID, Note{
		Title:    title,
		Message:  message,
		Severity: models.SeverityWarning,
		Category: models.CategorySecurity,
		Metadata: meta,
	})
}

func (n *Notifier) SystemEvent(ctx context.Context, accountID, title, message string, severity models.Severity) {
	n.Dispatch(ctx, accountID, Note{
		Title:    title,
		Message:  message,
		Severity: severity,
		Category: models.CategorySystem,
	})
}

func (n *Notifier) ContentEvent(ctx context.Context, accountID, title, message string, meta map[string]string) {
	n.Dispatch(ctx, accountID, Note{
		Title:    title,
		Message:  message,
		Category: models.CategoryContent,
		Metadata: meta,
	})
}

func (n *Notifier) SEOEvent(ctx context.Context, accountID, title, message string, meta map[string]string) {
	n.Dispatch(ctx, accountID, Note{
		Title:    title,
		Message:  message,
		Category: models.CategorySEO,
		Metadata: meta,
	})
}

func withMeta(meta map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out[key] = value
	return out
}
