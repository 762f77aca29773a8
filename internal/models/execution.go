package models

import "time"

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
)

// Execution is the persisted record of a single delivery attempt.
// Records are append-only; the ULID id doubles as a collision-resistant,
// timestamp-ordered sort key so two attempts landing in the same
// millisecond never clobber each other.
type Execution struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	WebhookID        string          `json:"webhook_id"`
	Status           ExecutionStatus `json:"status"`
	Attempt          int             `json:"attempt"`
	HTTPStatus       int             `json:"http_status,omitempty"`
	ResponseTimeMs   int64           `json:"response_time_ms"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	NextRetryDelayMs int64           `json:"next_retry_delay_ms,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Metrics are the running aggregates for one webhook. Counters are
// monotonically non-decreasing and TotalExecutions always equals
// SuccessCount + FailureCount.
type Metrics struct {
	TotalExecutions     int64           `json:"total_executions"`
	SuccessCount        int64           `json:"success_count"`
	FailureCount        int64           `json:"failure_count"`
	AverageResponseTime float64         `json:"average_response_time"`
	LastExecuted        *time.Time      `json:"last_executed,omitempty"`
	LastStatus          ExecutionStatus `json:"last_status,omitempty"`
}

// DailyStat is a calendar-day rollup computed from execution records.
// Days without executions carry all-zero stats.
type DailyStat struct {
	Date                string  `json:"date"`
	Total               int64   `json:"total"`
	Success             int64   `json:"success"`
	Failure             int64   `json:"failure"`
	AverageResponseTime float64 `json:"average_response_time"`
}
