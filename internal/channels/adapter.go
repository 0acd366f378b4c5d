// Package channels defines the Adapter interface for notification delivery
// media (webhook, email, SMS, push) and the manager that owns them.
//
// The dispatcher never inspects channel-specific protocol details: it hands
// an adapter a notification and gets back a Result. Retry and rate-limit
// logic live in the dispatcher; the send outcome is the adapter's concern.
package channels

import (
	"context"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// Result is the outcome of one send attempt.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// SupportsReceipt marks channels that emit a later delivery/read
	// confirmation (Sent→Delivered→Read).
	SupportsReceipt bool `json:"supportsReceipt,omitempty"`
}

// Adapter is one delivery medium. Send must respect ctx's deadline so a
// slow channel cannot stall the dispatcher's tick.
type Adapter interface {
	Name() string
	Send(ctx context.Context, n *model.Notification) Result
}

// lifecycle is implemented by adapters that hold a long-lived connection.
type lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
}

// Settings is the per-channel delivery policy consumed from configuration.
type Settings struct {
	RateLimitPerMinute int `json:"rateLimitPerMinute"`
	MaxRetries         int `json:"maxRetries"`
	TimeoutSeconds     int `json:"timeoutSeconds"`
}

// DefaultSettings returns the policy applied to channels missing from the
// config file.
func DefaultSettings() Settings {
	return Settings{RateLimitPerMinute: 60, MaxRetries: 2, TimeoutSeconds: 5}
}
