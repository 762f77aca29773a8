// Package delivery executes webhook dispatches: template interpolation,
// a single-shot HTTP sender, and a retrying dispatcher that records
// every attempt and drives user notifications.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mehedi/hookpulse/internal/config"
	"github.com/mehedi/hookpulse/internal/metrics"
	"github.com/mehedi/hookpulse/internal/models"
	"github.com/mehedi/hookpulse/internal/storage"
	"github.com/mehedi/hookpulse/internal/template"
)

var (
	ErrWebhookNotFound = errors.New("webhook not found")
	ErrWebhookDisabled = errors.New("webhook is disabled")
)

// State names one phase of a delivery cycle. Succeeded, Exhausted and
// Canceled are terminal: no attempt ever follows them.
type State string

const (
	StatePending    State = "pending"
	StateAttempting State = "attempting"
	StateRetrying   State = "retrying"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
	StateCanceled   State = "canceled"
)

// Result is the caller-visible outcome of a full delivery cycle. It is
// always returned, never panicked: transport errors, non-2xx responses
// and exhausted retries all fold into it.
type Result struct {
	Success      bool   `json:"success"`
	Status       int    `json:"status,omitempty"`
	ResponseTime int64  `json:"responseTime,omitempty"`
	Error        string `json:"error,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
	Canceled     bool   `json:"canceled,omitempty"`
}

// Recorder receives one outcome per attempt. Implemented by
// metrics.Recorder.
type Recorder interface {
	Record(ctx context.Context, accountID, webhookID string, o metrics.Outcome) error
}

// Notifier receives the user-facing delivery events. Implemented by
// notify.Notifier.
type Notifier interface {
	WebhookSuccess(ctx context.Context, accountID, webhookName string, meta map[string]string)
	WebhookFailure(ctx context.Context, accountID, webhookName, errMsg string, meta map[string]string)
	WebhookRetry(ctx context.Context, accountID, webhookName string, attempt int, meta map[string]string)
}

// Dispatcher runs the retry loop around the single-shot Sender. One
// Dispatch call makes up to maxAttempts attempts with exponential
// backoff and jitter between them, returning on the first success.
type Dispatcher struct {
	registry    storage.WebhookStore
	sender      *Sender
	recorder    Recorder
	notifier    Notifier
	maxAttempts int
	backoff     Backoff
	log         zerolog.Logger
}

func NewDispatcher(cfg config.DeliveryConfig, registry storage.WebhookStore, recorder Recorder, notifier Notifier, log zerolog.Logger) *Dispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := Backoff{BaseDelay: cfg.BaseDelay, MaxJitter: cfg.MaxJitter}
	if backoff.BaseDelay <= 0 {
		backoff.BaseDelay = DefaultBaseDelay
	}
	if backoff.MaxJitter < 0 {
		backoff.MaxJitter = DefaultMaxJitter
	}

	return &Dispatcher{
		registry:    registry,
		sender:      NewSender(cfg.Timeout),
		recorder:    recorder,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		log:         log,
	}
}

// Dispatch fetches the definition fresh from the registry so edits made
// right before a trigger always take effect, then delivers the payload.
// The returned error covers preconditions only (unknown or disabled
// webhook, registry failure); delivery failures live in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID, webhookID string, payload map[string]string) (*Result, error) {
	hook, err := d.registry.GetWebhook(ctx, accountID, webhookID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWebhookNotFound
		}
		return nil, err
	}
	if !hook.IsActive() {
		return nil, ErrWebhookDisabled
	}
	return d.Deliver(ctx, hook, payload), nil
}

// Deliver runs the delivery state machine for an already-loaded
// definition.
func (d *Dispatcher) Deliver(ctx context.Context, hook *models.Webhook, payload map[string]string) *Result {
	state := StatePending
	attempt := 0
	var last *SendResult
	var nextDelay time.Duration

	for {
		switch state {
		case StatePending:
			state = StateAttempting

		case StateAttempting:
			last = d.attempt(ctx, hook, payload)
			switch {
			case last.Success:
				state = StateSucceeded
			case ctx.Err() != nil:
				d.recordAttempt(ctx, hook, last, attempt, 0)
				state = StateCanceled
			case attempt >= d.maxAttempts-1:
				d.recordAttempt(ctx, hook, last, attempt, 0)
				state = StateExhausted
			default:
				nextDelay = d.backoff.Next(attempt)
				d.recordAttempt(ctx, hook, last, attempt, nextDelay)
				state = StateRetrying
			}

		case StateRetrying:
			d.notifier.WebhookRetry(ctx, hook.AccountID, hook.Name, attempt+2, map[string]string{
				"webhook_id": hook.ID,
				"url":        hook.URL,
			})
			if !d.wait(ctx, nextDelay) {
				state = StateCanceled
				continue
			}
			attempt++
			state = StateAttempting

		case StateSucceeded:
			d.recordAttempt(ctx, hook, last, attempt, 0)
			d.notifier.WebhookSuccess(ctx, hook.AccountID, hook.Name, map[string]string{
				"webhook_id": hook.ID,
			})
			d.log.Info().
				Str("webhook_id", hook.ID).
				Int("status_code", last.StatusCode).
				Int64("response_time_ms", last.ResponseTimeMs).
				Int("attempts", attempt+1).
				Msg("webhook delivered")
			return &Result{
				Success:      true,
				Status:       last.StatusCode,
				ResponseTime: last.ResponseTimeMs,
				Attempts:     attempt + 1,
			}

		case StateExhausted:
			d.notifier.WebhookFailure(ctx, hook.AccountID, hook.Name, last.Error, map[string]string{
				"webhook_id": hook.ID,
				"url":        hook.URL,
			})
			d.log.Warn().
				Str("webhook_id", hook.ID).
				Int("attempts", attempt+1).
				Str("error", last.Error).
				Msg("webhook delivery failed permanently")
			return &Result{
				Success:  false,
				Status:   last.StatusCode,
				Error:    last.Error,
				Attempts: attempt + 1,
			}

		case StateCanceled:
			d.log.Info().
				Str("webhook_id", hook.ID).
				Int("attempts", attempt+1).
				Msg("webhook delivery canceled")
			return &Result{
				Success:  false,
				Error:    "delivery canceled",
				Attempts: attempt + 1,
				Canceled: true,
			}
		}
	}
}

// attempt interpolates the definition against the payload and makes one
// HTTP call.
func (d *Dispatcher) attempt(ctx context.Context, hook *models.Webhook, payload map[string]string) *SendResult {
	return d.sender.Send(ctx, Request{
		WebhookID: hook.ID,
		Method:    hook.Method,
		URL:       template.ExpandString(hook.URL, payload),
		Headers:   template.ExpandMap(hook.Headers, payload),
		Body:      template.ExpandJSON(hook.Body, payload),
		Secret:    hook.Secret,
	})
}

// recordAttempt feeds the metrics recorder. Persistence failures must
// not change the delivery outcome, so they are logged and dropped here.
func (d *Dispatcher) recordAttempt(ctx context.Context, hook *models.Webhook, res *SendResult, attempt int, nextRetryDelay time.Duration) {
	err := d.recorder.Record(ctx, hook.AccountID, hook.ID, metrics.Outcome{
		Success:        res.Success,
		Attempt:        attempt,
		HTTPStatus:     res.StatusCode,
		ResponseTimeMs: res.ResponseTimeMs,
		Error:          res.Error,
		NextRetryDelay: nextRetryDelay,
	})
	if err != nil {
		d.log.Error().Err(err).
			Str("webhook_id", hook.ID).
			Int("attempt", attempt).
			Msg("failed to record execution")
	}
}

// wait sleeps for the backoff delay, returning false if the context is
// canceled first.
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
