package signing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"event":"page.published","id":"42"}`)
	sig, ts := Sign("whsec_test", payload)

	require.True(t, strings.HasPrefix(sig, "v1="))
	assert.True(t, Verify("whsec_test", payload, ts, sig))
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"42"}`)
	sig, ts := Sign("whsec_test", payload)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		ts      int64
		sig     string
	}{
		{"wrong secret", "whsec_other", payload, ts, sig},
		{"tampered payload", "whsec_test", []byte(`{"id":"43"}`), ts, sig},
		{"shifted timestamp", "whsec_test", payload, ts + 1, sig},
		{"garbage signature", "whsec_test", payload, ts, "v1=deadbeef"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, Verify(tt.secret, tt.payload, tt.ts, tt.sig))
		})
	}
}

func TestSignDeterministicAtTimestamp(t *testing.T) {
	t.Parallel()

	a, _ := signAt("whsec_test", []byte("payload"), 1700000000)
	b, _ := signAt("whsec_test", []byte("payload"), 1700000000)
	assert.Equal(t, a, b)

	c, _ := signAt("whsec_test", []byte("payload"), 1700000001)
	assert.NotEqual(t, a, c)
}
