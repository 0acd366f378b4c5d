package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// SMSAdapter delivers notifications through an HTTP SMS gateway.
type SMSAdapter struct {
	GatewayURL string
	Token      string
	client     *http.Client
}

// NewSMSAdapter creates an SMS gateway adapter.
func NewSMSAdapter(gatewayURL, token string) *SMSAdapter {
	return &SMSAdapter{GatewayURL: gatewayURL, Token: token, client: &http.Client{}}
}

func (s *SMSAdapter) Name() string { return "sms" }

// Send posts a form-encoded message to the gateway. SMS bodies are kept
// short: title plus a truncated body.
func (s *SMSAdapter) Send(ctx context.Context, n *model.Notification) Result {
	if n.Address == "" {
		return Result{Error: "recipient has no phone number"}
	}
	text := n.Title
	if n.Body != "" {
		text += ": " + truncate(n.Body, 140)
	}

	form := url.Values{
		"to":    {n.Address},
		"text":  {text},
		"token": {s.Token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.GatewayURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{Error: fmt.Sprintf("sms gateway returned %d", resp.StatusCode)}
	}
	return Result{Success: true}
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
