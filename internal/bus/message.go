// Package bus provides the async message bus that routes typed envelopes
// between independently scheduled agents, plus the one-way event feed
// consumed by external observers (dashboard, metrics).
package bus

import "time"

// MessageType enumerates every routable message kind so dispatch switches
// stay exhaustive instead of stringly-typed.
type MessageType string

const (
	// MsgNewThreat carries a model.DisasterEvent from a detection agent.
	MsgNewThreat MessageType = "new_threat"
	// MsgAnalyzeThreat asks the analysis layer to assess a disaster event.
	MsgAnalyzeThreat MessageType = "analyze_threat"
	// MsgThreatAssessment carries a model.ThreatAssessment to the scheduler.
	MsgThreatAssessment MessageType = "threat_assessment"
	// MsgImpactAssessment carries a model.ImpactAssessment to the scheduler.
	MsgImpactAssessment MessageType = "impact_assessment"
	// MsgExecuteAction carries a model.ActionOrder to its assigned agent.
	MsgExecuteAction MessageType = "execute_action"
	// MsgActionUpdate reports action progress back to the scheduler.
	MsgActionUpdate MessageType = "action_update"
	// MsgSendAlert carries a model.Alert to the notification dispatcher.
	MsgSendAlert MessageType = "send_alert"
	// MsgDeliveryReceipt confirms delivery of a sent notification.
	MsgDeliveryReceipt MessageType = "delivery_receipt"
)

// Broadcast is the reserved target name that addresses every registered
// agent except the sender.
const Broadcast = "*"

// Message is the immutable envelope exchanged between agents.
type Message struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage builds an envelope stamped with the current time.
func NewMessage(from, to string, t MessageType, payload any) Message {
	return Message{From: from, To: to, Type: t, Payload: payload, Timestamp: time.Now()}
}
