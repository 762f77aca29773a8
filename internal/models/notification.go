package models

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

type Category string

const (
	CategoryWebhook  Category = "webhook"
	CategorySecurity Category = "security"
	CategorySystem   Category = "system"
	CategoryContent  Category = "content"
	CategorySEO      Category = "seo"
)

// Notification is a persisted user-facing alert. Only the read flag is
// ever mutated after creation; the core never deletes notifications.
type Notification struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Severity  Severity          `json:"severity"`
	Category  Category          `json:"category"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
