package scheduler

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// ActionStatus is an action item's execution state.
type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
)

// Timeline windows bucket action deadlines.
const (
	WindowImmediate = "immediate" // ≤1h
	WindowUrgent    = "urgent"    // ≤6h
	WindowImportant = "important" // ≤24h
	WindowRoutine   = "routine"   // >24h
)

// ActionItem is one step of an incident's response plan, ordered by rank.
type ActionItem struct {
	ID          string                      `json:"id"`
	IncidentID  string                      `json:"incidentId"`
	Description string                      `json:"description"`
	Rank        int                         `json:"rank"`
	Assignee    string                      `json:"assignee"`
	Status      ActionStatus                `json:"status"`
	Deadline    time.Time                   `json:"deadline"`
	Window      string                      `json:"window"`
	DependsOn   []string                    `json:"dependsOn,omitempty"`
	Resources   []model.ResourceRequirement `json:"resources,omitempty"`
	dispatched  bool
}

// deadlineStagger spaces action deadlines by rank.
const deadlineStagger = 30 * time.Minute

// assigneeFor picks the owning agent by keyword match on the action
// description. Unmatched actions default to the dispatcher.
func assigneeFor(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "alert") || strings.Contains(d, "warn"):
		return "dispatcher"
	case strings.Contains(d, "notify") || strings.Contains(d, "message"):
		return "notifier"
	case strings.Contains(d, "status") || strings.Contains(d, "report"):
		return "reporter"
	case strings.Contains(d, "evacuate") || strings.Contains(d, "route"):
		return "router"
	default:
		return "dispatcher"
	}
}

// windowFor buckets a deadline offset into its timeline window.
func windowFor(untilDeadline time.Duration) string {
	switch {
	case untilDeadline <= time.Hour:
		return WindowImmediate
	case untilDeadline <= 6*time.Hour:
		return WindowUrgent
	case untilDeadline <= 24*time.Hour:
		return WindowImportant
	default:
		return WindowRoutine
	}
}

// buildActions turns an assessment's required actions into ranked items
// with staggered deadlines. Each action depends on its predecessor; the
// assessment's resource requirements attach to the primary (rank 1) action.
func buildActions(a model.ThreatAssessment, now time.Time) []*ActionItem {
	actions := make([]*ActionItem, 0, len(a.RequiredActions))
	var prevID string
	for i, desc := range a.RequiredActions {
		rank := i + 1
		deadline := now.Add(time.Duration(rank) * deadlineStagger)
		item := &ActionItem{
			ID:          uuid.NewString(),
			IncidentID:  a.IncidentID,
			Description: desc,
			Rank:        rank,
			Assignee:    assigneeFor(desc),
			Status:      ActionPending,
			Deadline:    deadline,
			Window:      windowFor(deadline.Sub(now)),
		}
		if prevID != "" {
			item.DependsOn = []string{prevID}
		}
		if rank == 1 && len(a.RequiredResources) > 0 {
			item.Resources = make([]model.ResourceRequirement, len(a.RequiredResources))
			copy(item.Resources, a.RequiredResources)
			for j := range item.Resources {
				if item.Resources[j].Status == "" {
					item.Resources[j].Status = "pending"
				}
			}
		}
		actions = append(actions, item)
		prevID = item.ID
	}
	return actions
}
