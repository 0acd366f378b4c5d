// Package reporter implements the situation-report agent. It tallies bus
// events and publishes periodic situation reports on a cron schedule, as
// well as on demand when the scheduler assigns it a status/report action.
package reporter

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// AgentName is the reporter's bus address.
const AgentName = "reporter"

// DefaultSchedule emits a report at the top of every hour.
const DefaultSchedule = "0 * * * *"

// Report is one situation summary.
type Report struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	ActionsTaken  int       `json:"actionsTaken"`
	BatchesClosed int       `json:"batchesClosed"`
	StatusChanges int       `json:"statusChanges"`
	Trigger       string    `json:"trigger"` // "schedule" or action ID
}

// Reporter tallies domain events and periodically summarizes them.
type Reporter struct {
	bus      *bus.Bus
	schedule string
	cron     *cron.Cron

	mu            sync.Mutex
	actionsTaken  int
	batchesClosed int
	statusChanges int
}

// New creates a reporter. An empty schedule uses DefaultSchedule.
func New(b *bus.Bus, schedule string) *Reporter {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Reporter{bus: b, schedule: schedule}
}

func (r *Reporter) Name() string { return AgentName }

// Initialize subscribes to the event feed and starts the report cron.
func (r *Reporter) Initialize(ctx context.Context) error {
	r.bus.Subscribe(bus.EventActionTaken, func(bus.Event) { r.count(&r.actionsTaken) })
	r.bus.Subscribe(bus.EventBatchCompleted, func(bus.Event) { r.count(&r.batchesClosed) })
	r.bus.Subscribe(bus.EventStatusChanged, func(bus.Event) { r.count(&r.statusChanges) })

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Emit("schedule") }); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	log.Printf("[Reporter] Situation reports on schedule %q", r.schedule)
	return nil
}

func (r *Reporter) count(field *int) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

// HandleMessage emits an on-demand report for status/report actions.
func (r *Reporter) HandleMessage(ctx context.Context, msg bus.Message) error {
	if msg.Type != bus.MsgExecuteAction {
		return nil
	}
	order, ok := bus.PayloadAs[model.ActionOrder](msg.Payload)
	if !ok {
		return fmt.Errorf("bad execute_action payload from %s", msg.From)
	}
	r.Emit(order.ActionID)
	r.bus.Send(bus.NewMessage(AgentName, "scheduler", bus.MsgActionUpdate, model.ActionUpdate{
		ActionID:   order.ActionID,
		IncidentID: order.IncidentID,
		Status:     "completed",
		Note:       "situation report published",
	}))
	return nil
}

func (r *Reporter) Process(ctx context.Context) error { return nil }

// Cleanup stops the cron ticker.
func (r *Reporter) Cleanup() error {
	if r.cron != nil {
		r.cron.Stop()
	}
	return nil
}

// Emit publishes a situation report onto the observer feed.
func (r *Reporter) Emit(trigger string) Report {
	r.mu.Lock()
	rep := Report{
		GeneratedAt:   time.Now(),
		ActionsTaken:  r.actionsTaken,
		BatchesClosed: r.batchesClosed,
		StatusChanges: r.statusChanges,
		Trigger:       trigger,
	}
	r.mu.Unlock()

	r.bus.Publish(bus.EventReportReady, AgentName, rep)
	log.Printf("[Reporter] Situation report: %d actions, %d batches closed, %d status changes",
		rep.ActionsTaken, rep.BatchesClosed, rep.StatusChanges)
	return rep
}
