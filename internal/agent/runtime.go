package agent

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
)

// Runtime supervises all agent runners. It starts one goroutine per agent
// and guarantees every goroutine has exited before StopAll returns.
type Runtime struct {
	bus *bus.Bus

	mu      sync.RWMutex
	runners map[string]*Runner

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRuntime creates a runtime bound to the given bus.
func NewRuntime(b *bus.Bus) *Runtime {
	return &Runtime{
		bus:     b,
		runners: make(map[string]*Runner),
	}
}

// Register wires an agent onto the bus with its own tick interval.
// Must be called before StartAll.
func (rt *Runtime) Register(a Agent, interval time.Duration) *Runner {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	r := newRunner(a, rt.bus, interval)
	rt.runners[a.Name()] = r
	return r
}

// StartAll initializes every registered agent and starts its scheduling
// loop. An agent whose Initialize fails lands in StatusError and is
// skipped; its siblings start normally.
func (rt *Runtime) StartAll(ctx context.Context) {
	ctx, rt.cancel = context.WithCancel(ctx)

	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for name, r := range rt.runners {
		if err := r.initialize(ctx); err != nil {
			log.Printf("[Runtime] ❌ %v", err)
			continue
		}
		rt.wg.Add(1)
		go func(r *Runner) {
			defer rt.wg.Done()
			r.run(ctx)
		}(r)
		log.Printf("[Runtime] ✅ Started %s (tick %s)", name, r.interval)
	}
}

// StopAll cancels every agent's tick, waits for the loops to exit, runs
// each agent's cleanup hook, and stops the bus. Returns the number of
// discarded in-flight messages reported by the bus.
func (rt *Runtime) StopAll() int {
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.wg.Wait()

	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for name, r := range rt.runners {
		if err := r.safely(r.agent.Cleanup); err != nil {
			log.Printf("[Runtime] ⚠️ Cleanup failed for %s: %v", name, err)
		}
		r.setStatus(StatusOffline)
	}
	return rt.bus.Stop()
}

// Records snapshots every registered agent's state.
func (rt *Runtime) Records() map[string]Record {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make(map[string]Record, len(rt.runners))
	for name, r := range rt.runners {
		out[name] = r.Record()
	}
	return out
}

// Runner returns the runner for an agent name, or nil.
func (rt *Runtime) Runner(name string) *Runner {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.runners[name]
}
