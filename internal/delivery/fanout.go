package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/mehedi/hookpulse/internal/storage"
)

// Fanout dispatches one event to every active webhook of an account,
// running the delivery cycles concurrently on a bounded worker pool.
// Each webhook gets its own independent retry sequence.
type Fanout struct {
	registry   storage.WebhookStore
	dispatcher *Dispatcher
	workers    int
	log        zerolog.Logger
}

func NewFanout(registry storage.WebhookStore, dispatcher *Dispatcher, workers int, log zerolog.Logger) *Fanout {
	if workers <= 0 {
		workers = 8
	}
	return &Fanout{
		registry:   registry,
		dispatcher: dispatcher,
		workers:    workers,
		log:        log,
	}
}

// Publish delivers the event payload to all active webhooks and returns
// the per-webhook results keyed by webhook id. The payload is augmented
// with the event name and a timestamp before interpolation.
func (f *Fanout) Publish(ctx context.Context, accountID, event string, payload map[string]string) (map[string]*Result, error) {
	hooks, err := f.registry.ListActiveWebhooks(ctx, accountID)
	if err != nil {
		return nil, err
	}

	enriched := make(map[string]string, len(payload)+2)
	for k, v := range payload {
		enriched[k] = v
	}
	enriched["event"] = event
	if _, ok := enriched["timestamp"]; !ok {
		enriched["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	var mu sync.Mutex
	results := make(map[string]*Result, len(hooks))

	p := pool.New().WithMaxGoroutines(f.workers)
	for i := range hooks {
		hook := hooks[i]
		p.Go(func() {
			res := f.dispatcher.Deliver(ctx, &hook, enriched)
			mu.Lock()
			results[hook.ID] = res
			mu.Unlock()
		})
	}
	p.Wait()

	f.log.Info().
		Str("account_id", accountID).
		Str("event", event).
		Int("webhooks", len(hooks)).
		Msg("event fan-out complete")
	return results, nil
}
