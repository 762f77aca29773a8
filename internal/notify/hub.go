package notify

import (
	"sync"

	"github.com/mehedi/hookpulse/internal/models"
)

// Toast is the transient counterpart of a persisted notification. It is
// pushed to live subscribers (SSE streams) and auto-dismissed client-side
// after AutoCloseMs, except sticky toasts which stay until dismissed.
type Toast struct {
	Notification models.Notification `json:"notification"`
	AutoCloseMs  int64               `json:"auto_close_ms"`
	Sticky       bool                `json:"sticky"`
}

// Hub fans toast events out to per-account subscribers. Publishing never
// blocks: slow subscribers with a full buffer drop events, since toasts
// are transient by definition and the persisted record is the source of
// truth.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Toast]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[chan Toast]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a listener for one account's toasts. The returned
// cancel func must be called to release the subscription.
func (h *Hub) Subscribe(accountID string) (<-chan Toast, func()) {
	ch := make(chan Toast, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[chan Toast]struct{})
	}
	h.subs[accountID][ch] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[accountID][ch]; ok {
			delete(h.subs[accountID], ch)
			close(ch)
		}
		if len(h.subs[accountID]) == 0 {
			delete(h.subs, accountID)
		}
	}
	return ch, cancel
}

// Publish delivers a toast to every live subscriber of the account.
func (h *Hub) Publish(accountID string, t Toast) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subs[accountID] {
		select {
		case ch <- t:
		default:
			// subscriber buffer full, drop
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subs {
		for ch := range subs {
			close(ch)
		}
	}
	h.subs = make(map[string]map[chan Toast]struct{})
}
