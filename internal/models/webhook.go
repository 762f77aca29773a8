package models

import (
	"encoding/json"
	"time"
)

type WebhookStatus string

const (
	WebhookActive   WebhookStatus = "active"
	WebhookDisabled WebhookStatus = "disabled"
)

// Webhook is an outbound notification definition. URL, header values and
// body are templates: any `${key}` inside them is substituted from the
// event payload at dispatch time.
type Webhook struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
	Secret    string            `json:"secret,omitempty"`
	Status    WebhookStatus     `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (w *Webhook) IsActive() bool {
	return w.Status == WebhookActive
}

// ValidMethod reports whether m is one of the HTTP methods a webhook may
// use. Matching is exact; callers normalize case before storing.
func ValidMethod(m string) bool {
	switch m {
	case "GET", "POST", "PUT", "DELETE":
		return true
	}
	return false
}
