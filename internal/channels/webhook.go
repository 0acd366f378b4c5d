package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// WebhookAdapter posts notifications as JSON to a configured endpoint.
type WebhookAdapter struct {
	URL    string
	Secret string
	client *http.Client
}

// NewWebhookAdapter creates a webhook adapter.
func NewWebhookAdapter(url, secret string) *WebhookAdapter {
	return &WebhookAdapter{URL: url, Secret: secret, client: &http.Client{}}
}

func (w *WebhookAdapter) Name() string { return "webhook" }

// Send posts the notification payload. Any 2xx status is success.
func (w *WebhookAdapter) Send(ctx context.Context, n *model.Notification) Result {
	body, err := json.Marshal(map[string]any{
		"id":        n.ID,
		"alertId":   n.AlertID,
		"recipient": n.Recipient,
		"title":     n.Title,
		"body":      n.Body,
		"priority":  n.Priority,
	})
	if err != nil {
		return Result{Error: err.Error()}
	}

	url := w.URL
	if n.Address != "" {
		// Per-recipient endpoint overrides the adapter default.
		url = n.Address
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+w.Secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{Error: fmt.Sprintf("webhook returned %d", resp.StatusCode)}
	}
	return Result{Success: true}
}
