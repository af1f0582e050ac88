package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/baranw/adscraper/internal/listing"
)

// WebhookSink POSTs each batch as a JSON document. Delivery retries on 5xx
// responses with a short linear backoff; 4xx responses fail immediately.
type WebhookSink struct {
	URL        string
	HTTPClient *http.Client
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
}

type webhookPayload struct {
	Batch    int               `json:"batch"`
	Count    int               `json:"count"`
	Listings []listing.Listing `json:"listings"`
}

func (s *WebhookSink) WriteBatch(ctx context.Context, index int, batch []listing.Listing) error {
	body, err := json.Marshal(webhookPayload{Batch: index, Count: len(batch), Listings: batch})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = s.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if i < attempts-1 {
			select {
			case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("webhook server error: %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook rejected batch: %d", resp.StatusCode)
	}
	return nil
}

func retryable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "server error")
}
