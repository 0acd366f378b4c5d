// Package scheduler implements the priority scheduler agent: it scores and
// ranks competing incidents, allocates the finite resource pool, and emits
// ordered execute_action messages onto the bus.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// AgentName is the scheduler's bus address.
const AgentName = "scheduler"

// defaultTopN bounds how many incidents have actions dispatched per tick.
const defaultTopN = 3

// Incident is one tracked threat with its evolving priority.
type Incident struct {
	ID         string
	Score      float64
	Level      int
	Factors    Factors
	Assessment model.ThreatAssessment
	Impact     *model.ImpactAssessment
	Actions    []*ActionItem
	seq        int // insertion order, breaks score ties stably
}

// Factors are the inputs behind an incident's current score.
type Factors struct {
	Casualties           int     `json:"casualties"`
	Displaced            int     `json:"displaced"`
	EconomicImpact       float64 `json:"economicImpact"`
	InfrastructureDamage float64 `json:"infrastructureDamage"`
	TimeUntilImpactHours float64 `json:"timeUntilImpactHours"`
}

// View is the externally visible incident summary.
type View struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Level   int     `json:"level"`
	Factors Factors `json:"factors"`
	Actions int     `json:"actions"`
}

// Scheduler is the priority scheduler agent. All state behind mu is
// mutated only from the agent's own tick or message handling; the mutex
// exists for telemetry readers.
type Scheduler struct {
	bus     *bus.Bus
	weights Weights
	topN    int
	tick    time.Duration

	mu          sync.Mutex
	incidents   []*Incident // sorted by descending score, stable
	index       map[string]*Incident
	pool        []*PoolEntry
	seq         int
	unresourced int
	closed      int
}

// New creates a scheduler seeded with the resource pool inventory.
func New(b *bus.Bus, seeds []model.ResourceSeed, weights Weights, tick time.Duration) *Scheduler {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scheduler{
		bus:     b,
		weights: weights,
		topN:    defaultTopN,
		tick:    tick,
		index:   make(map[string]*Incident),
		pool:    poolFromSeeds(seeds),
	}
}

func (s *Scheduler) Name() string { return AgentName }

func (s *Scheduler) Initialize(ctx context.Context) error {
	log.Printf("[Scheduler] Ready with %d resource pool entries", len(s.pool))
	return nil
}

func (s *Scheduler) Cleanup() error { return nil }

// HandleMessage routes assessments and action updates into the incident
// table.
func (s *Scheduler) HandleMessage(ctx context.Context, msg bus.Message) error {
	switch msg.Type {
	case bus.MsgThreatAssessment:
		a, ok := bus.PayloadAs[model.ThreatAssessment](msg.Payload)
		if !ok {
			return fmt.Errorf("bad threat_assessment payload from %s", msg.From)
		}
		s.OnThreatAssessment(a)
	case bus.MsgImpactAssessment:
		i, ok := bus.PayloadAs[model.ImpactAssessment](msg.Payload)
		if !ok {
			return fmt.Errorf("bad impact_assessment payload from %s", msg.From)
		}
		s.OnImpactAssessment(i)
	case bus.MsgActionUpdate:
		u, ok := bus.PayloadAs[model.ActionUpdate](msg.Payload)
		if !ok {
			return fmt.Errorf("bad action_update payload from %s", msg.From)
		}
		s.onActionUpdate(u)
	}
	return nil
}

// OnThreatAssessment creates (or refreshes) an incident from a threat
// assessment and scores it with the initial weighted formula.
func (s *Scheduler) OnThreatAssessment(a model.ThreatAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, exists := s.index[a.IncidentID]
	if !exists {
		s.seq++
		inc = &Incident{ID: a.IncidentID, seq: s.seq}
		s.index[a.IncidentID] = inc
		s.incidents = append(s.incidents, inc)
		inc.Actions = buildActions(a, time.Now())
	}
	inc.Assessment = a
	inc.Factors.TimeUntilImpactHours = a.TimeUntilImpactHours
	inc.Score = s.weights.ThreatScore(a)
	inc.Level = LevelFor(inc.Score)
	s.resort()

	log.Printf("[Scheduler] Incident %s scored %.1f (level %d, %d actions)",
		inc.ID, inc.Score, inc.Level, len(inc.Actions))
	s.bus.Publish(bus.EventAnalysisComplete, AgentName, s.viewOf(inc))
}

// OnImpactAssessment replaces an incident's score with the impact-based
// formula and re-sorts the queue. Unknown incidents are ignored.
func (s *Scheduler) OnImpactAssessment(i model.ImpactAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.index[i.IncidentID]
	if !ok {
		log.Printf("[Scheduler] ⚠️ Impact data for unknown incident %s, ignoring", i.IncidentID)
		return
	}
	impact := i
	inc.Impact = &impact
	inc.Factors = Factors{
		Casualties:           i.Casualties,
		Displaced:            i.Displaced,
		EconomicImpact:       i.EconomicLossUSD,
		InfrastructureDamage: i.InfrastructureDamage,
		TimeUntilImpactHours: i.TimeUntilImpactHours,
	}
	inc.Score = s.weights.ImpactScore(impact)
	inc.Level = LevelFor(inc.Score)
	s.resort()

	log.Printf("[Scheduler] Incident %s re-scored to %.1f (level %d) on impact data",
		inc.ID, inc.Score, inc.Level)
}

// onActionUpdate applies an executing agent's progress report. When every
// action of an incident completes, the incident closes and its resources
// return to the pool.
func (s *Scheduler) onActionUpdate(u model.ActionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.index[u.IncidentID]
	if !ok {
		return
	}
	done := 0
	for _, a := range inc.Actions {
		if a.ID == u.ActionID {
			switch u.Status {
			case string(ActionInProgress):
				a.Status = ActionInProgress
			case string(ActionCompleted):
				a.Status = ActionCompleted
			}
		}
		if a.Status == ActionCompleted {
			done++
		}
	}
	if len(inc.Actions) > 0 && done == len(inc.Actions) {
		s.closeIncident(inc)
	}
}

// closeIncident removes an incident and releases its resources. Caller
// holds s.mu.
func (s *Scheduler) closeIncident(inc *Incident) {
	delete(s.index, inc.ID)
	for i, cand := range s.incidents {
		if cand == inc {
			s.incidents = append(s.incidents[:i], s.incidents[i+1:]...)
			break
		}
	}
	s.release(inc.ID)
	s.closed++
	log.Printf("[Scheduler] Incident %s closed, resources released", inc.ID)
}

// Process is the periodic rebalance: decay time-until-impact, recompute
// every score, re-sort, retry resource allocation, and dispatch pending
// actions for the top incidents only.
func (s *Scheduler) Process(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decay := s.tick.Hours()
	for _, inc := range s.incidents {
		if inc.Factors.TimeUntilImpactHours > 0 {
			inc.Factors.TimeUntilImpactHours -= decay
			if inc.Factors.TimeUntilImpactHours < 0 {
				inc.Factors.TimeUntilImpactHours = 0
			}
		}
		if inc.Impact != nil {
			inc.Impact.TimeUntilImpactHours = inc.Factors.TimeUntilImpactHours
			inc.Score = s.weights.ImpactScore(*inc.Impact)
		} else {
			inc.Assessment.TimeUntilImpactHours = inc.Factors.TimeUntilImpactHours
			inc.Score = s.weights.ThreatScore(inc.Assessment)
		}
		inc.Level = LevelFor(inc.Score)
	}
	s.resort()

	s.progressResources(time.Now())
	s.allocatePending()
	s.dispatchTop(ctx)
	return nil
}

// allocatePending retries first-fit allocation for every pending
// requirement, highest-priority incidents first, and records how many
// remain unresourced.
func (s *Scheduler) allocatePending() {
	pending := 0
	for _, inc := range s.incidents {
		for _, a := range inc.Actions {
			for i := range a.Resources {
				req := &a.Resources[i]
				if req.Status != "pending" {
					continue
				}
				if !s.allocate(inc.ID, req) {
					pending++
				}
			}
		}
	}
	if pending > 0 {
		log.Printf("[Scheduler] %d resource requirements still unresourced", pending)
	}
	s.unresourced = pending
}

// dispatchTop sends execute_action messages for the top-N incidents'
// pending actions whose dependencies are complete. Bounds per-tick work.
func (s *Scheduler) dispatchTop(ctx context.Context) {
	limit := s.topN
	if limit > len(s.incidents) {
		limit = len(s.incidents)
	}
	for _, inc := range s.incidents[:limit] {
		for _, a := range inc.Actions {
			if a.Status != ActionPending || a.dispatched || !s.depsComplete(inc, a) {
				continue
			}
			order := model.ActionOrder{
				ActionID:    a.ID,
				IncidentID:  inc.ID,
				Description: a.Description,
				Rank:        a.Rank,
				Assignee:    a.Assignee,
				Deadline:    a.Deadline,
				Window:      a.Window,
				Location:    inc.Assessment.Location,
				Severity:    inc.Assessment.Severity,
			}
			s.bus.Send(bus.NewMessage(AgentName, a.Assignee, bus.MsgExecuteAction, order))
			a.dispatched = true
		}
	}
}

func (s *Scheduler) depsComplete(inc *Incident, a *ActionItem) bool {
	for _, depID := range a.DependsOn {
		for _, other := range inc.Actions {
			if other.ID == depID && other.Status != ActionCompleted {
				return false
			}
		}
	}
	return true
}

// resort orders incidents by descending score. sort.SliceStable plus the
// insertion sequence keeps ties in arrival order across re-scores.
func (s *Scheduler) resort() {
	sort.SliceStable(s.incidents, func(i, j int) bool {
		if s.incidents[i].Score != s.incidents[j].Score {
			return s.incidents[i].Score > s.incidents[j].Score
		}
		return s.incidents[i].seq < s.incidents[j].seq
	})
}

func (s *Scheduler) viewOf(inc *Incident) View {
	return View{
		ID:      inc.ID,
		Score:   inc.Score,
		Level:   inc.Level,
		Factors: inc.Factors,
		Actions: len(inc.Actions),
	}
}

// Incidents snapshots the current priority queue, highest first.
func (s *Scheduler) Incidents() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]View, 0, len(s.incidents))
	for _, inc := range s.incidents {
		out = append(out, s.viewOf(inc))
	}
	return out
}

// Pool snapshots the resource pool.
func (s *Scheduler) Pool() []PoolEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PoolEntry, 0, len(s.pool))
	for _, e := range s.pool {
		out = append(out, *e)
	}
	return out
}

// Stats exposes scheduler metrics to the telemetry surface.
func (s *Scheduler) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"incidents":   len(s.incidents),
		"closed":      s.closed,
		"unresourced": s.unresourced,
		"available":   s.availableByType(),
	}
}
