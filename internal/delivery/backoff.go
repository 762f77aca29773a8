package delivery

import (
	"math/rand"
	"time"
)

const (
	DefaultBaseDelay = 1 * time.Second
	DefaultMaxJitter = 1 * time.Second
)

// Backoff computes the wait between delivery attempts: the base delay
// doubles with every completed attempt, and uniform random jitter is
// added on top to spread out synchronized retry storms.
type Backoff struct {
	BaseDelay time.Duration
	MaxJitter time.Duration
}

// Base returns the deterministic component of the delay after the
// attempt with the given 0-based index failed: BaseDelay * 2^attempt.
func (b Backoff) Base(attempt int) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30 // clamp; 2^30s is already over 30 years
	}
	return base * (1 << attempt)
}

// Next returns the full delay including jitter drawn from [0, MaxJitter).
func (b Backoff) Next(attempt int) time.Duration {
	delay := b.Base(attempt)
	if b.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(b.MaxJitter)))
	}
	return delay
}
