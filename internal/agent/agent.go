// Package agent wraps each autonomous component in a status state machine
// and a periodic scheduling tick, delivering bus messages to and from it.
package agent

import (
	"context"
	"time"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
)

// Status is an agent's lifecycle state.
type Status string

const (
	StatusOffline  Status = "offline"
	StatusStarting Status = "starting"
	StatusOnline   Status = "online"
	StatusWarning  Status = "warning"
	StatusError    Status = "error"
)

// Agent is an independently scheduled component. Implementations own their
// domain state exclusively; all cross-agent interaction goes through the bus.
type Agent interface {
	// Name is the unique bus address of this agent.
	Name() string

	// Initialize prepares the agent before its first tick. An error here
	// is unrecoverable: the agent lands in StatusError and is not scheduled.
	Initialize(ctx context.Context) error

	// HandleMessage consumes one inbox message during a tick.
	HandleMessage(ctx context.Context, msg bus.Message) error

	// Process performs the agent's periodic work after the inbox is drained.
	Process(ctx context.Context) error

	// Cleanup runs once when the agent is stopped.
	Cleanup() error
}

// Record is the externally visible state of a registered agent.
type Record struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	LastActivity time.Time     `json:"lastActivity"`
	TickInterval time.Duration `json:"tickInterval"`
}
