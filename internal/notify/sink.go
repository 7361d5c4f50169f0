package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/buildplan/internal/events"
)

// Payload is the JSON body delivered to a sink for each event.
type Payload struct {
	Type      string       `json:"type"`
	ProjectID string       `json:"project_id"`
	Event     events.Event `json:"event"`
	SentAt    time.Time    `json:"sent_at"`
}

// Sink delivers event payloads to an external receiver.
type Sink interface {
	Deliver(ctx context.Context, payload Payload) error
}

// WebhookSink posts payloads as JSON to a fixed URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink. A nil client gets a default with
// a 10 second timeout.
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: url, client: client}
}

// Deliver posts the payload. Non-2xx responses are errors so the caller
// can retry.
func (w *WebhookSink) Deliver(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
