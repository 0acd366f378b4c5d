package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
)

// Runner schedules one agent: it owns the agent's Record, drains its bus
// inbox on every tick, and isolates processing faults so one agent's
// failure never stops the bus or its siblings.
type Runner struct {
	agent    Agent
	bus      *bus.Bus
	inbox    <-chan bus.Message
	interval time.Duration

	mu       sync.Mutex
	status   Status
	lastSeen time.Time
}

func newRunner(a Agent, b *bus.Bus, interval time.Duration) *Runner {
	return &Runner{
		agent:    a,
		bus:      b,
		inbox:    b.Register(a.Name()),
		interval: interval,
		status:   StatusOffline,
	}
}

// Record snapshots the agent's externally visible state.
func (r *Runner) Record() Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Record{
		Name:         r.agent.Name(),
		Status:       r.status,
		LastActivity: r.lastSeen,
		TickInterval: r.interval,
	}
}

// Status returns the agent's current lifecycle state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) setStatus(s Status) {
	r.mu.Lock()
	if r.status == s {
		r.mu.Unlock()
		return
	}
	r.status = s
	r.lastSeen = time.Now()
	rec := Record{Name: r.agent.Name(), Status: s, LastActivity: r.lastSeen, TickInterval: r.interval}
	r.mu.Unlock()
	r.bus.Publish(bus.EventStatusChanged, r.agent.Name(), rec)
}

// initialize runs the agent's startup hook. An error is unrecoverable.
func (r *Runner) initialize(ctx context.Context) error {
	r.setStatus(StatusStarting)
	if err := r.agent.Initialize(ctx); err != nil {
		r.setStatus(StatusError)
		return fmt.Errorf("initialize %s: %w", r.agent.Name(), err)
	}
	r.setStatus(StatusOnline)
	return nil
}

// run is the per-agent scheduling loop. Blocks until ctx is cancelled.
func (r *Runner) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick drains the inbox through HandleMessage, then invokes Process.
// Errors and panics are caught here: the agent drops to StatusWarning and
// scheduling continues.
func (r *Runner) Tick(ctx context.Context) {
	name := r.agent.Name()
	failed := false

	for {
		var msg bus.Message
		select {
		case msg = <-r.inbox:
		default:
			goto process
		}
		if err := r.safely(func() error { return r.agent.HandleMessage(ctx, msg) }); err != nil {
			failed = true
			log.Printf("[Runtime] ⚠️ %s failed handling %s from %s: %v", name, msg.Type, msg.From, err)
		}
	}

process:
	if err := r.safely(func() error { return r.agent.Process(ctx) }); err != nil {
		failed = true
		log.Printf("[Runtime] ⚠️ %s tick error: %v", name, err)
	}

	r.mu.Lock()
	r.lastSeen = time.Now()
	r.mu.Unlock()

	switch {
	case failed:
		r.setStatus(StatusWarning)
	case r.Status() == StatusWarning:
		// Transient fault cleared.
		r.setStatus(StatusOnline)
	}
}

// safely converts a panic inside agent code into an error at the runner
// boundary.
func (r *Runner) safely(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
