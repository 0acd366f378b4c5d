package scheduler

import (
	"time"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// ResourceStatus is a pool entry's allocation state.
type ResourceStatus string

const (
	ResourceAvailable ResourceStatus = "available"
	ResourceEnRoute   ResourceStatus = "en_route"
	ResourceDeployed  ResourceStatus = "deployed"
)

// defaultETAMinutes is the estimated arrival applied on allocation.
const defaultETAMinutes = 30

// PoolEntry is one line of the finite response-resource inventory.
// The scheduler is the single writer: entries are mutated only inside its
// tick or message handling, never from another goroutine.
type PoolEntry struct {
	Type        string         `json:"type"`
	Total       int            `json:"total"`
	Location    string         `json:"location"`
	Status      ResourceStatus `json:"status"`
	ETAMinutes  int            `json:"etaMinutes,omitempty"`
	AssignedTo  string         `json:"assignedTo,omitempty"`
	allocatedAt time.Time
}

// poolFromSeeds builds the pool from YAML seed data.
func poolFromSeeds(seeds []model.ResourceSeed) []*PoolEntry {
	pool := make([]*PoolEntry, 0, len(seeds))
	for _, s := range seeds {
		pool = append(pool, &PoolEntry{
			Type:     s.Type,
			Total:    s.Quantity,
			Location: s.Location,
			Status:   ResourceAvailable,
		})
	}
	return pool
}

// allocate claims the first available entry that satisfies the requirement
// in full. No best-fit search and no partial allocation across entries:
// first fit or nothing, retried on a later tick. Returns false when no
// entry qualifies; that is a metric, never an error.
func (s *Scheduler) allocate(incidentID string, req *model.ResourceRequirement) bool {
	for _, e := range s.pool {
		if e.Status != ResourceAvailable || e.Type != req.Type || e.Total < req.Quantity {
			continue
		}
		e.Status = ResourceEnRoute
		e.ETAMinutes = defaultETAMinutes
		e.AssignedTo = incidentID
		e.allocatedAt = time.Now()
		req.Status = "en_route"
		return true
	}
	return false
}

// progressResources moves EnRoute entries to Deployed once their ETA has
// elapsed.
func (s *Scheduler) progressResources(now time.Time) {
	for _, e := range s.pool {
		if e.Status != ResourceEnRoute {
			continue
		}
		if now.Sub(e.allocatedAt) >= time.Duration(e.ETAMinutes)*time.Minute {
			e.Status = ResourceDeployed
			e.ETAMinutes = 0
		}
	}
}

// release returns every entry assigned to a closed incident to the pool.
func (s *Scheduler) release(incidentID string) {
	for _, e := range s.pool {
		if e.AssignedTo == incidentID {
			e.Status = ResourceAvailable
			e.ETAMinutes = 0
			e.AssignedTo = ""
		}
	}
}

// availableByType sums available quantity per resource type.
func (s *Scheduler) availableByType() map[string]int {
	out := make(map[string]int)
	for _, e := range s.pool {
		if e.Status == ResourceAvailable {
			out[e.Type] += e.Total
		}
	}
	return out
}
