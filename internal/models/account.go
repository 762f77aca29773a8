package models

import "time"

// Account is the owner of webhooks, executions and notifications. Every
// stored record is scoped to exactly one account.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
