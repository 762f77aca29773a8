package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehedi/hookpulse/internal/signing"
)

func TestSenderSuccess(t *testing.T) {
	t.Parallel()

	var gotMethod, gotContentType, gotUA, gotHookID string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		gotHookID = r.Header.Get("X-HookPulse-ID")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewSender(5 * time.Second)
	res := s.Send(context.Background(), Request{
		WebhookID: "wh_1",
		Method:    http.MethodPost,
		URL:       srv.URL,
		Body:      []byte(`{"id":"42"}`),
	})

	require.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Error)
	assert.Equal(t, `{"ok":true}`, res.ResponseBody)
	assert.GreaterOrEqual(t, res.ResponseTimeMs, int64(0))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "HookPulse/1.0", gotUA)
	assert.Equal(t, "wh_1", gotHookID)
	assert.Equal(t, map[string]string{"id": "42"}, gotBody)
}

func TestSenderSignsWhenSecretSet(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"42"}`)
	var verified bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts, err := strconv.ParseInt(r.Header.Get("X-HookPulse-Timestamp"), 10, 64)
		require.NoError(t, err)
		verified = signing.Verify("whsec_test", payload, ts, r.Header.Get("X-HookPulse-Signature"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewSender(5 * time.Second)
	res := s.Send(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   payload,
		Secret: "whsec_test",
	})

	require.True(t, res.Success)
	assert.True(t, verified)
}

func TestSenderCustomHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(5 * time.Second)
	res := s.Send(context.Background(), Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer abc123"},
	})

	require.True(t, res.Success)
	assert.Equal(t, "Bearer abc123", gotAuth)
}

func TestSenderNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	s := NewSender(5 * time.Second)
	res := s.Send(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte(`{}`),
	})

	require.False(t, res.Success)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "HTTP 500: boom", res.Error)
}

func TestSenderTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	s := NewSender(5 * time.Second)
	res := s.Send(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
	})

	require.False(t, res.Success)
	assert.Zero(t, res.StatusCode)
	assert.Contains(t, res.Error, "request failed")
}

func TestSenderContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := NewSender(5 * time.Second)
	res := s.Send(ctx, Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "request failed")
}

func TestSenderInvalidMethod(t *testing.T) {
	t.Parallel()

	s := NewSender(5 * time.Second)
	res := s.Send(context.Background(), Request{
		Method: "BAD METHOD",
		URL:    "http://example.com",
	})

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to create request")
}
