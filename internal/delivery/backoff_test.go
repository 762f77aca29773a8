package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffBase(t *testing.T) {
	t.Parallel()

	b := Backoff{BaseDelay: 1 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Base(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffBaseDefaults(t *testing.T) {
	t.Parallel()

	var b Backoff
	assert.Equal(t, DefaultBaseDelay, b.Base(0))
	assert.Equal(t, 2*DefaultBaseDelay, b.Base(1))
}

func TestBackoffBaseClamped(t *testing.T) {
	t.Parallel()

	b := Backoff{BaseDelay: 1 * time.Second}
	assert.Equal(t, b.Base(30), b.Base(31))
	assert.Equal(t, b.Base(30), b.Base(1000))
}

func TestBackoffNextJitterBounds(t *testing.T) {
	t.Parallel()

	b := Backoff{BaseDelay: 100 * time.Millisecond, MaxJitter: 50 * time.Millisecond}

	for i := 0; i < 100; i++ {
		d := b.Next(1)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.Less(t, d, 250*time.Millisecond)
	}
}

func TestBackoffNextNoJitter(t *testing.T) {
	t.Parallel()

	b := Backoff{BaseDelay: 1 * time.Second, MaxJitter: 0}
	assert.Equal(t, 2*time.Second, b.Next(1))
}
