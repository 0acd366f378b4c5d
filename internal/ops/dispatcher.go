// Package ops contains the executing agents the scheduler assigns actions
// to: the field dispatcher (alert/warn actions) and the evacuation router
// (evacuate/route actions). Each reports progress back over the bus.
package ops

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// Dispatcher is the field dispatch agent: it turns alert/warn action
// orders into public alerts fanned out through the notifier.
type Dispatcher struct {
	bus     *bus.Bus
	handled int
}

// NewDispatcher creates the field dispatch agent.
func NewDispatcher(b *bus.Bus) *Dispatcher {
	return &Dispatcher{bus: b}
}

func (d *Dispatcher) Name() string                         { return "dispatcher" }
func (d *Dispatcher) Initialize(ctx context.Context) error { return nil }
func (d *Dispatcher) Process(ctx context.Context) error    { return nil }
func (d *Dispatcher) Cleanup() error                       { return nil }

// HandleMessage executes one action order: raise the alert, then report
// the action complete.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg bus.Message) error {
	if msg.Type != bus.MsgExecuteAction {
		return nil
	}
	order, ok := bus.PayloadAs[model.ActionOrder](msg.Payload)
	if !ok {
		return fmt.Errorf("bad execute_action payload from %s", msg.From)
	}

	d.report(order, "in_progress", "")

	priority := model.PriorityNormal
	switch order.Window {
	case "immediate":
		priority = model.PriorityUrgent
	case "urgent":
		priority = model.PriorityHigh
	}
	area := order.Location.Name
	if area == "" {
		area = fmt.Sprintf("%.3f,%.3f", order.Location.Lat, order.Location.Lon)
	}
	alert := model.Alert{
		ID:         uuid.NewString(),
		IncidentID: order.IncidentID,
		Title:      fmt.Sprintf("[%s] %s", order.Severity, order.Description),
		Body: fmt.Sprintf("%s. Affected area: %s (radius %.1f km). Respond by %s.",
			order.Description, area, order.Location.Radius, order.Deadline.Format(time.Kitchen)),
		Priority: priority,
	}
	d.bus.Send(bus.NewMessage(d.Name(), "notifier", bus.MsgSendAlert, alert))

	d.handled++
	d.bus.Publish(bus.EventActionTaken, d.Name(), order)
	log.Printf("[Dispatcher] Raised alert for action %s (incident %s)", order.ActionID, order.IncidentID)

	d.report(order, "completed", "alert "+alert.ID+" raised")
	return nil
}

func (d *Dispatcher) report(order model.ActionOrder, status, note string) {
	d.bus.Send(bus.NewMessage(d.Name(), msgSchedulerName, bus.MsgActionUpdate, model.ActionUpdate{
		ActionID:   order.ActionID,
		IncidentID: order.IncidentID,
		Status:     status,
		Note:       note,
	}))
}

// msgSchedulerName is the priority scheduler's bus address.
const msgSchedulerName = "scheduler"
