// Package config handles configuration loading, saving, and schema
// definition for the guardian runtime.
package config

import (
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/channels"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/scheduler"
)

// Config is the top-level guardian configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	// TickIntervals holds per-agent tick periods in seconds.
	TickIntervals map[string]int `json:"tickIntervals,omitempty"`

	// Channels holds per-channel delivery policy (rate limit, retries,
	// timeout).
	Channels map[string]channels.Settings `json:"channels,omitempty"`

	// Endpoints configures how each channel adapter reaches its backend.
	Endpoints EndpointsConfig `json:"endpoints"`

	// Weights overrides the priority-score constants. Zero value means
	// scheduler defaults.
	Weights scheduler.Weights `json:"weights,omitempty"`

	// Recipients is the default alert roster. RecipientsFile, when set,
	// replaces it with a YAML roster.
	Recipients     []model.Recipient `json:"recipients,omitempty"`
	RecipientsFile string            `json:"recipientsFile,omitempty"`

	// ResourcesFile seeds the scheduler's resource pool from YAML.
	ResourcesFile string `json:"resourcesFile,omitempty"`

	// ReportSchedule is the reporter agent's cron expression.
	ReportSchedule string `json:"reportSchedule,omitempty"`

	Telemetry TelemetryConfig `json:"telemetry"`
	Redis     RedisConfig     `json:"redis"`
}

// EndpointsConfig groups per-channel backend settings.
type EndpointsConfig struct {
	Webhook *WebhookEndpoint `json:"webhook,omitempty"`
	Email   *EmailEndpoint   `json:"email,omitempty"`
	SMS     *SMSEndpoint     `json:"sms,omitempty"`
	Push    *PushEndpoint    `json:"push,omitempty"`
}

// WebhookEndpoint holds webhook channel settings.
type WebhookEndpoint struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

// EmailEndpoint holds SMTP settings.
type EmailEndpoint struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	From     string `json:"from"`
	Password string `json:"password,omitempty"`
}

// SMSEndpoint holds SMS gateway settings.
type SMSEndpoint struct {
	GatewayURL string `json:"gatewayUrl"`
	Token      string `json:"token,omitempty"`
}

// PushEndpoint holds push bridge settings.
type PushEndpoint struct {
	BridgeURL string `json:"bridgeUrl"`
	Token     string `json:"token,omitempty"`
}

// TelemetryConfig holds the observation surface settings.
type TelemetryConfig struct {
	Port   int    `json:"port"`
	APIKey string `json:"apiKey,omitempty"`
}

// RedisConfig holds the optional snapshot mirror settings.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// DefaultConfig returns the reference deployment settings.
func DefaultConfig() Config {
	return Config{
		TickIntervals: map[string]int{
			"scheduler":  30,
			"notifier":   15,
			"dispatcher": 20,
			"router":     20,
			"reporter":   60,
		},
		Channels: map[string]channels.Settings{
			"webhook": {RateLimitPerMinute: 120, MaxRetries: 2, TimeoutSeconds: 5},
			"email":   {RateLimitPerMinute: 30, MaxRetries: 3, TimeoutSeconds: 10},
			"sms":     {RateLimitPerMinute: 60, MaxRetries: 2, TimeoutSeconds: 5},
			"push":    {RateLimitPerMinute: 240, MaxRetries: 1, TimeoutSeconds: 3},
		},
		Weights:        scheduler.DefaultWeights(),
		ReportSchedule: "0 * * * *",
		Telemetry:      TelemetryConfig{Port: 8900},
	}
}

// TickInterval returns an agent's tick period in seconds, with a fallback
// for agents missing from the config.
func (c Config) TickInterval(agent string, fallback int) int {
	if v, ok := c.TickIntervals[agent]; ok && v > 0 {
		return v
	}
	return fallback
}
