// Package metrics records webhook execution outcomes and serves the
// aggregate counters, recent-execution feeds and daily rollups behind
// the monitoring views.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mehedi/hookpulse/internal/models"
	"github.com/mehedi/hookpulse/internal/storage"
)

const dateFormat = "2006-01-02"

// Outcome describes one delivery attempt for recording.
type Outcome struct {
	Success        bool
	Attempt        int
	HTTPStatus     int
	ResponseTimeMs int64
	Error          string
	NextRetryDelay time.Duration
}

type Recorder struct {
	store storage.ExecutionStore
}

func NewRecorder(store storage.ExecutionStore) *Recorder {
	return &Recorder{store: store}
}

// Record appends an execution record and folds it into the webhook's
// aggregates. Both writes are attempted even if one fails so counters
// drift as little as possible; errors are joined for the caller to log.
func (r *Recorder) Record(ctx context.Context, accountID, webhookID string, o Outcome) error {
	status := models.ExecutionFailure
	if o.Success {
		status = models.ExecutionSuccess
	}
	exec := &models.Execution{
		ID:               models.NewID("exe"),
		AccountID:        accountID,
		WebhookID:        webhookID,
		Status:           status,
		Attempt:          o.Attempt,
		HTTPStatus:       o.HTTPStatus,
		ResponseTimeMs:   o.ResponseTimeMs,
		ErrorMessage:     o.Error,
		NextRetryDelayMs: o.NextRetryDelay.Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	}

	var errs []error
	if err := r.store.AppendExecution(ctx, exec); err != nil {
		errs = append(errs, fmt.Errorf("append execution: %w", err))
	}
	if err := r.store.UpdateMetrics(ctx, exec); err != nil {
		errs = append(errs, fmt.Errorf("update metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Metrics returns the running aggregates, all-zero when the webhook has
// never executed.
func (r *Recorder) Metrics(ctx context.Context, accountID, webhookID string) (*models.Metrics, error) {
	return r.store.GetMetrics(ctx, accountID, webhookID)
}

// RecentExecutions returns the newest records first.
func (r *Recorder) RecentExecutions(ctx context.Context, accountID, webhookID string, limit int) ([]models.Execution, error) {
	return r.store.RecentExecutions(ctx, accountID, webhookID, limit)
}

// DailyStats buckets executions into calendar days (UTC) for the
// trailing window, oldest first. Days with no executions appear with
// all-zero stats so charts always get a complete series.
func (r *Recorder) DailyStats(ctx context.Context, accountID, webhookID string, days int) ([]models.DailyStat, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	windowStart := today.AddDate(0, 0, -(days - 1))

	execs, err := r.store.ExecutionsSince(ctx, accountID, webhookID, windowStart)
	if err != nil {
		return nil, err
	}

	stats := make([]models.DailyStat, days)
	index := make(map[string]int, days)
	for i := range stats {
		date := windowStart.AddDate(0, 0, i).Format(dateFormat)
		stats[i] = models.DailyStat{Date: date}
		index[date] = i
	}

	for _, e := range execs {
		i, ok := index[e.CreatedAt.UTC().Format(dateFormat)]
		if !ok {
			continue
		}
		day := &stats[i]
		day.Total++
		if e.Status == models.ExecutionSuccess {
			day.Success++
		} else {
			day.Failure++
		}
		day.AverageResponseTime = (day.AverageResponseTime*float64(day.Total-1) + float64(e.ResponseTimeMs)) / float64(day.Total)
	}
	return stats, nil
}
