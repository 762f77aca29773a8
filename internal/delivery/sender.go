package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mehedi/hookpulse/internal/signing"
)

const maxResponseBytes = 64 * 1024

// Request is a fully interpolated HTTP call: no placeholders remain in
// the URL, headers or body by the time it reaches the sender.
type Request struct {
	WebhookID string
	Method    string
	URL       string
	Headers   map[string]string
	Body      []byte
	Secret    string
}

// SendResult is the uniform outcome of one attempt. A non-2xx response
// and a transport error both surface as Success=false; the distinction
// lives in the Error text only.
type SendResult struct {
	Success        bool
	StatusCode     int
	ResponseBody   string
	ResponseTimeMs int64
	Error          string
}

// Sender performs exactly one HTTP call per Send invocation. Retry
// policy belongs to the Dispatcher, never here.
type Sender struct {
	client *http.Client
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sender{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *Sender) Send(ctx context.Context, r Request) *SendResult {
	start := time.Now()

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return &SendResult{
			Error:          fmt.Sprintf("failed to create request: %v", err),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
	}

	req.Header.Set("User-Agent", "HookPulse/1.0")
	if len(r.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if r.WebhookID != "" {
		req.Header.Set("X-HookPulse-ID", r.WebhookID)
	}
	if r.Secret != "" {
		signature, timestamp := signing.Sign(r.Secret, r.Body)
		req.Header.Set("X-HookPulse-Timestamp", strconv.FormatInt(timestamp, 10))
		req.Header.Set("X-HookPulse-Signature", signature)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &SendResult{
			Error:          fmt.Sprintf("request failed: %v", err),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendResult{
			StatusCode:     resp.StatusCode,
			ResponseBody:   string(respBody),
			ResponseTimeMs: elapsed,
			Error:          fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	return &SendResult{
		Success:        true,
		StatusCode:     resp.StatusCode,
		ResponseBody:   string(respBody),
		ResponseTimeMs: elapsed,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
