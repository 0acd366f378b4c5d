// Package dispatch implements the notification dispatcher agent: it fans
// alerts out into per-(recipient, channel) notifications, rate-limits and
// retries delivery per channel, and tracks batch completion.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/channels"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// AgentName is the dispatcher's bus address.
const AgentName = "notifier"

// maxConcurrentSends bounds parallel adapter calls inside one tick so a
// wide fan-out cannot spawn unbounded goroutines.
const maxConcurrentSends = 8

// Dispatcher is the notification dispatcher agent. Queue and batch state
// are mutated only from the agent's tick and message handling; the mutex
// covers external readers and direct test calls.
type Dispatcher struct {
	bus      *bus.Bus
	channels *channels.Manager
	roster   []model.Recipient
	tick     time.Duration

	mu      sync.Mutex
	queue   []*model.Notification
	byID    map[string]*model.Notification
	batches map[string]*Batch
	counted map[string]bool // notification IDs already settled into a batch

	sentTotal   int
	failedTotal int
}

// New creates a dispatcher. The roster is the default recipient list for
// alerts that do not carry their own.
func New(b *bus.Bus, mgr *channels.Manager, roster []model.Recipient, tick time.Duration) *Dispatcher {
	return &Dispatcher{
		bus:      b,
		channels: mgr,
		roster:   roster,
		tick:     tick,
		byID:     make(map[string]*model.Notification),
		batches:  make(map[string]*Batch),
		counted:  make(map[string]bool),
	}
}

func (d *Dispatcher) Name() string { return AgentName }

func (d *Dispatcher) Initialize(ctx context.Context) error {
	log.Printf("[Notifier] Ready with channels %v, %d recipients", d.channels.Names(), len(d.roster))
	return nil
}

func (d *Dispatcher) Cleanup() error { return nil }

// HandleMessage consumes alert fan-out requests, action orders addressed
// to the notifier, and delivery receipts.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg bus.Message) error {
	switch msg.Type {
	case bus.MsgSendAlert:
		alert, ok := bus.PayloadAs[model.Alert](msg.Payload)
		if !ok {
			return fmt.Errorf("bad send_alert payload from %s", msg.From)
		}
		d.EnqueueBatch(alert)
	case bus.MsgExecuteAction:
		order, ok := bus.PayloadAs[model.ActionOrder](msg.Payload)
		if !ok {
			return fmt.Errorf("bad execute_action payload from %s", msg.From)
		}
		d.enqueueForAction(order)
	case bus.MsgDeliveryReceipt:
		r, ok := bus.PayloadAs[model.DeliveryReceipt](msg.Payload)
		if !ok {
			return fmt.Errorf("bad delivery_receipt payload from %s", msg.From)
		}
		d.ConfirmDelivery(r.NotificationID, r.Read)
	}
	return nil
}

// EnqueueBatch expands an alert into queued notifications and registers
// the tracking batch. Quiet-hours filtering happens here, once, never on
// retry; urgent alerts bypass it.
func (d *Dispatcher) EnqueueBatch(alert model.Alert) Batch {
	recipients := alert.Recipients
	if len(recipients) == 0 {
		recipients = d.roster
	}
	requested := alert.Channels
	if len(requested) == 0 {
		requested = d.channels.Names()
	}

	now := time.Now()
	batch := &Batch{ID: uuid.NewString(), AlertID: alert.ID}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rcpt := range recipients {
		if alert.Priority != model.PriorityUrgent && rcpt.InQuietHours(now) {
			continue
		}
		for _, ch := range intersect(requested, rcpt.Channels) {
			n := &model.Notification{
				ID:        uuid.NewString(),
				AlertID:   alert.ID,
				BatchID:   batch.ID,
				Channel:   ch,
				Recipient: rcpt.ID,
				Address:   rcpt.Addresses[ch],
				Title:     alert.Title,
				Body:      alert.Body,
				Priority:  alert.Priority,
				Status:    model.StatusQueued,
			}
			d.queue = append(d.queue, n)
			d.byID[n.ID] = n
			batch.Total++
		}
	}
	batch.InProgress = batch.Total
	if batch.Total == 0 {
		// Nothing to deliver (all recipients filtered): complete immediately.
		batch.CompletedAt = &now
		d.bus.Publish(bus.EventBatchCompleted, AgentName, batch.snapshot())
	}
	d.batches[batch.ID] = batch
	log.Printf("[Notifier] Batch %s queued: alert=%s notifications=%d", batch.ID, alert.ID, batch.Total)
	return batch.snapshot()
}

// enqueueForAction turns a notify/message action order into an alert for
// the default roster and reports progress back to the scheduler once the
// fan-out completes.
func (d *Dispatcher) enqueueForAction(order model.ActionOrder) {
	priority := model.PriorityNormal
	switch order.Window {
	case "immediate":
		priority = model.PriorityUrgent
	case "urgent":
		priority = model.PriorityHigh
	}
	alert := model.Alert{
		ID:         uuid.NewString(),
		IncidentID: order.IncidentID,
		Title:      order.Description,
		Body: fmt.Sprintf("%s — severity %s, area %s, complete by %s",
			order.Description, order.Severity, order.Location.Name, order.Deadline.Format(time.RFC3339)),
		Priority: priority,
	}
	batch := d.EnqueueBatch(alert)

	d.mu.Lock()
	b := d.batches[batch.ID]
	b.actionID = order.ActionID
	b.incidentID = order.IncidentID
	completed := b.Completed()
	d.mu.Unlock()

	if completed {
		// Everyone was filtered out; the action is still done.
		d.bus.Send(bus.NewMessage(AgentName, "scheduler", bus.MsgActionUpdate, model.ActionUpdate{
			ActionID:   order.ActionID,
			IncidentID: order.IncidentID,
			Status:     "completed",
			Note:       "no recipients after filtering",
		}))
	}
}

// outcome pairs a notification with its adapter result.
type outcome struct {
	n   *model.Notification
	res channels.Result
}

// Process is the dispatcher tick: drain the queue FIFO within each
// channel's per-tick budget, attempt sends with bounded concurrency, then
// apply transitions and batch accounting in a single writer pass.
func (d *Dispatcher) Process(ctx context.Context) error {
	budgets := d.budgets()

	d.mu.Lock()
	pending := d.queue
	d.queue = nil
	d.mu.Unlock()

	var (
		kept     []*model.Notification // budget-exhausted, keeps FIFO order
		results  []outcome
		resultMu sync.Mutex
		wg       sync.WaitGroup
	)
	sem := semaphore.NewWeighted(maxConcurrentSends)

	for _, n := range pending {
		adapter := d.channels.Get(n.Channel)
		if adapter == nil {
			// No adapter means no budget either, so this must count as a
			// failed attempt rather than wait for budget: the normal
			// retry policy then drives it to a terminal state.
			n.Status = model.StatusSending
			n.Attempts++
			n.LastAttempt = time.Now()
			resultMu.Lock()
			results = append(results, outcome{n, channels.Result{Error: "no adapter for channel " + n.Channel}})
			resultMu.Unlock()
			continue
		}
		if budgets[n.Channel] <= 0 {
			kept = append(kept, n)
			continue
		}
		budgets[n.Channel]--

		n.Status = model.StatusSending
		n.Attempts++
		n.LastAttempt = time.Now()
		if err := sem.Acquire(ctx, 1); err != nil {
			// Shutting down: put the attempt back untouched.
			n.Status = model.StatusQueued
			n.Attempts--
			kept = append(kept, n)
			continue
		}
		wg.Add(1)
		go func(n *model.Notification, adapter channels.Adapter) {
			defer wg.Done()
			defer sem.Release(1)
			timeout := time.Duration(d.channels.Settings(n.Channel).TimeoutSeconds) * time.Second
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			res := adapter.Send(sctx, n)
			resultMu.Lock()
			results = append(results, outcome{n, res})
			resultMu.Unlock()
		}(n, adapter)
	}
	wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	var retries []*model.Notification
	for _, o := range results {
		d.applyOutcome(o, &retries)
	}
	// Budget-exhausted notifications go back ahead of new arrivals;
	// retries join the tail.
	d.queue = append(append(kept, d.queue...), retries...)
	return nil
}

// budgets computes each channel's delivery allowance for this tick from
// its configured rate limit, never below one so low-rate channels still
// drain.
func (d *Dispatcher) budgets() map[string]int {
	out := make(map[string]int)
	perMinuteFraction := d.tick.Seconds() / 60
	for _, name := range d.channels.Names() {
		b := int(float64(d.channels.Settings(name).RateLimitPerMinute) * perMinuteFraction)
		if b < 1 {
			b = 1
		}
		out[name] = b
	}
	return out
}

// applyOutcome transitions one notification after a send attempt. Caller
// holds d.mu.
func (d *Dispatcher) applyOutcome(o outcome, retries *[]*model.Notification) {
	n := o.n
	if o.res.Success {
		n.Status = model.StatusSent
		d.sentTotal++
		d.settle(n, true)
		return
	}

	maxRetries := d.channels.Settings(n.Channel).MaxRetries
	if n.Attempts <= maxRetries {
		// Transient: back to the queue for the next tick.
		n.Status = model.StatusQueued
		*retries = append(*retries, n)
		log.Printf("[Notifier] Send failed on %s (attempt %d/%d), retrying: %s",
			n.Channel, n.Attempts, maxRetries+1, o.res.Error)
		return
	}
	n.Status = model.StatusFailed
	d.failedTotal++
	log.Printf("[Notifier] ⚠️ Notification %s failed permanently on %s after %d attempts: %s",
		n.ID, n.Channel, n.Attempts, o.res.Error)
	d.settle(n, false)
}

// settle counts a terminal transition into the notification's batch.
// The counted set makes the accounting idempotent, and completion is
// checked in the same critical section as the decrement so completedAt
// fires exactly once even when two notifications finish in the same tick.
func (d *Dispatcher) settle(n *model.Notification, success bool) {
	if n.BatchID == "" || d.counted[n.ID] {
		return
	}
	d.counted[n.ID] = true
	b, ok := d.batches[n.BatchID]
	if !ok {
		return
	}
	b.InProgress--
	if success {
		b.Success++
	} else {
		b.Failure++
	}
	if b.InProgress == 0 && b.CompletedAt == nil {
		now := time.Now()
		b.CompletedAt = &now
		log.Printf("[Notifier] Batch %s completed: %d ok, %d failed", b.ID, b.Success, b.Failure)
		d.bus.Publish(bus.EventBatchCompleted, AgentName, b.snapshot())
		if b.actionID != "" {
			d.bus.Send(bus.NewMessage(AgentName, "scheduler", bus.MsgActionUpdate, model.ActionUpdate{
				ActionID:   b.actionID,
				IncidentID: b.incidentID,
				Status:     "completed",
				Note:       fmt.Sprintf("notified %d recipients", b.Success),
			}))
		}
	}
}

// ConfirmDelivery applies a later delivery (and optionally read) receipt.
// Independent of the retry loop: it only moves Sent forward, never
// re-opens batch accounting.
func (d *Dispatcher) ConfirmDelivery(notificationID string, read bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[notificationID]
	if !ok {
		return
	}
	switch n.Status {
	case model.StatusSent:
		n.Status = model.StatusDelivered
		if read {
			n.Status = model.StatusRead
		}
	case model.StatusDelivered:
		if read {
			n.Status = model.StatusRead
		}
	}
}

// Batch returns a snapshot of one batch.
func (d *Dispatcher) Batch(id string) (Batch, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.batches[id]
	if !ok {
		return Batch{}, false
	}
	return b.snapshot(), true
}

// Notification returns a copy of one tracked notification.
func (d *Dispatcher) Notification(id string) (model.Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[id]
	if !ok {
		return model.Notification{}, false
	}
	return *n, true
}

// QueueLen reports the number of queued notifications.
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stats exposes dispatcher metrics to the telemetry surface.
func (d *Dispatcher) Stats() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	completed := 0
	for _, b := range d.batches {
		if b.Completed() {
			completed++
		}
	}
	return map[string]any{
		"queued":           len(d.queue),
		"sent":             d.sentTotal,
		"failed":           d.failedTotal,
		"batches":          len(d.batches),
		"batchesCompleted": completed,
	}
}

// intersect keeps the requested channels the recipient subscribes to,
// preserving requested order.
func intersect(requested, subscribed []string) []string {
	subs := make(map[string]bool, len(subscribed))
	for _, s := range subscribed {
		subs[s] = true
	}
	var out []string
	for _, r := range requested {
		if subs[r] {
			out = append(out, r)
		}
	}
	return out
}
