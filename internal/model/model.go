// Package model defines the domain payloads carried between agents:
// disaster events from upstream detectors, threat/impact assessments from
// the analysis layer, and the alert/notification types consumed by the
// notification dispatcher.
package model

import "time"

// Severity classifies a detected threat.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Location is a geographic point with an affected radius in kilometers.
type Location struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"`
	Name   string  `json:"name,omitempty"`
}

// DisasterEvent is emitted by upstream detection collaborators
// (fire/quake/weather/flood monitors) via the new_threat message type.
type DisasterEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Severity  Severity       `json:"severity"`
	Location  Location       `json:"location"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ResourceRequirement is one (type, quantity) need attached to an action.
type ResourceRequirement struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	// Status is "pending" until the scheduler allocates a pool entry,
	// then "en_route".
	Status string `json:"status,omitempty"`
}

// ThreatAssessment is the analysis layer's verdict on a disaster event.
// It seeds an incident in the priority scheduler.
type ThreatAssessment struct {
	IncidentID           string                `json:"incidentId"`
	EventType            string                `json:"eventType"`
	Severity             Severity              `json:"severity"`
	Confidence           float64               `json:"confidence"` // 0-100
	EstimatedPopulation  int                   `json:"estimatedPopulation"`
	TimeUntilImpactHours float64               `json:"timeUntilImpactHours"`
	Location             Location              `json:"location"`
	RequiredActions      []string              `json:"requiredActions,omitempty"`
	RequiredResources    []ResourceRequirement `json:"requiredResources,omitempty"`
}

// ImpactAssessment carries observed or projected impact data for an
// incident already known to the scheduler. Receipt triggers a full
// re-score of the incident.
type ImpactAssessment struct {
	IncidentID           string  `json:"incidentId"`
	Casualties           int     `json:"casualties"`
	Displaced            int     `json:"displaced"`
	EconomicLossUSD      float64 `json:"economicLossUsd"`
	InfrastructureDamage float64 `json:"infrastructureDamage"` // 0-100
	TimeUntilImpactHours float64 `json:"timeUntilImpactHours"`
}

// ActionOrder is the scheduler's instruction to an executing agent.
// It is the payload of execute_action messages.
type ActionOrder struct {
	ActionID    string    `json:"actionId"`
	IncidentID  string    `json:"incidentId"`
	Description string    `json:"description"`
	Rank        int       `json:"rank"`
	Assignee    string    `json:"assignee"`
	Deadline    time.Time `json:"deadline"`
	// Window buckets the deadline: immediate (≤1h), urgent (≤6h),
	// important (≤24h) or routine.
	Window   string   `json:"window"`
	Location Location `json:"location"`
	Severity Severity `json:"severity"`
}

// ActionUpdate reports an executing agent's progress back to the scheduler.
type ActionUpdate struct {
	ActionID   string `json:"actionId"`
	IncidentID string `json:"incidentId"`
	Status     string `json:"status"` // in_progress | completed
	Note       string `json:"note,omitempty"`
}

// AlertPriority controls quiet-hours bypass and channel ordering.
type AlertPriority string

const (
	PriorityUrgent AlertPriority = "urgent"
	PriorityHigh   AlertPriority = "high"
	PriorityNormal AlertPriority = "normal"
)

// Recipient is one alert target with per-channel addresses and an
// optional quiet-hours window (local hours, [Start, End)).
type Recipient struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Channels  []string          `json:"channels" yaml:"channels"`
	Addresses map[string]string `json:"addresses" yaml:"addresses"`
	// QuietStart/QuietEnd bound the hours during which non-urgent
	// notifications are suppressed. Equal values disable the window.
	QuietStart int `json:"quietStart,omitempty" yaml:"quiet_start"`
	QuietEnd   int `json:"quietEnd,omitempty" yaml:"quiet_end"`
}

// InQuietHours reports whether t falls inside the recipient's quiet window.
func (r Recipient) InQuietHours(t time.Time) bool {
	if r.QuietStart == r.QuietEnd {
		return false
	}
	h := t.Hour()
	if r.QuietStart < r.QuietEnd {
		return h >= r.QuietStart && h < r.QuietEnd
	}
	// Window wraps midnight, e.g. 22 → 7.
	return h >= r.QuietStart || h < r.QuietEnd
}

// Alert is a fan-out request: one body delivered to many recipients
// across the requested channels. Payload of send_alert messages.
type Alert struct {
	ID         string        `json:"id"`
	IncidentID string        `json:"incidentId,omitempty"`
	Title      string        `json:"title"`
	Body       string        `json:"body"`
	Priority   AlertPriority `json:"priority"`
	Channels   []string      `json:"channels"`
	Recipients []Recipient   `json:"recipients,omitempty"`
}

// NotificationStatus is the delivery lifecycle of a single notification.
type NotificationStatus string

const (
	StatusQueued    NotificationStatus = "queued"
	StatusSending   NotificationStatus = "sending"
	StatusSent      NotificationStatus = "sent"
	StatusDelivered NotificationStatus = "delivered"
	StatusRead      NotificationStatus = "read"
	StatusFailed    NotificationStatus = "failed"
)

// Notification is one (recipient, channel) delivery attempt unit created
// from an alert fan-out.
type Notification struct {
	ID          string             `json:"id"`
	AlertID     string             `json:"alertId,omitempty"`
	BatchID     string             `json:"batchId,omitempty"`
	Channel     string             `json:"channel"`
	Recipient   string             `json:"recipient"`
	Address     string             `json:"address"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Priority    AlertPriority      `json:"priority"`
	Status      NotificationStatus `json:"status"`
	Attempts    int                `json:"attempts"`
	LastAttempt time.Time          `json:"lastAttempt,omitempty"`
}

// DeliveryReceipt confirms a previously sent notification reached (or was
// read by) its recipient. Payload of delivery_receipt messages.
type DeliveryReceipt struct {
	NotificationID string `json:"notificationId"`
	Read           bool   `json:"read"`
}

// ResourceSeed is one resource-pool inventory line from the YAML seed file.
type ResourceSeed struct {
	Type     string `yaml:"type"`
	Quantity int    `yaml:"quantity"`
	Location string `yaml:"location"`
}
