package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

func testSeeds() []model.ResourceSeed {
	return []model.ResourceSeed{
		{Type: "fire_truck", Quantity: 4, Location: "central"},
		{Type: "fire_truck", Quantity: 10, Location: "north"},
		{Type: "ambulance", Quantity: 6, Location: "hospital"},
	}
}

func testAssessment(id string, severity model.Severity, population int) model.ThreatAssessment {
	return model.ThreatAssessment{
		IncidentID:           id,
		EventType:            "wildfire",
		Severity:             severity,
		Confidence:           80,
		EstimatedPopulation:  population,
		TimeUntilImpactHours: 2,
		Location:             model.Location{Name: "riverside", Radius: 5},
		RequiredActions: []string{
			"Issue public alert",
			"Notify response teams",
		},
	}
}

func TestScheduler_ThreatAssessmentCreatesIncident(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	s.OnThreatAssessment(testAssessment("inc-1", model.SeverityCritical, 150_000))

	views := s.Incidents()
	require.Len(t, views, 1)
	assert.Equal(t, "inc-1", views[0].ID)
	assert.Equal(t, 1, views[0].Level)
	assert.InDelta(t, 83.0, views[0].Score, 0.001) // 40+20+15+8
	assert.Equal(t, 2, views[0].Actions)
}

func TestScheduler_ReassessmentKeepsActions(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	s.OnThreatAssessment(testAssessment("inc-1", model.SeverityMedium, 1000))
	first := s.index["inc-1"].Actions
	s.OnThreatAssessment(testAssessment("inc-1", model.SeverityCritical, 150_000))

	// Refresh re-scores but does not rebuild the plan.
	assert.Equal(t, first, s.index["inc-1"].Actions)
	assert.Len(t, s.Incidents(), 1)
	assert.Equal(t, 1, s.Incidents()[0].Level)
}

func TestScheduler_ActionPlanShape(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	a := testAssessment("inc-1", model.SeverityHigh, 10_000)
	a.RequiredActions = []string{
		"Issue public alert",
		"Notify response teams",
		"Plan evacuation routes",
		"Publish status report",
	}
	a.RequiredResources = []model.ResourceRequirement{{Type: "fire_truck", Quantity: 3}}
	s.OnThreatAssessment(a)

	actions := s.index["inc-1"].Actions
	require.Len(t, actions, 4)
	assert.Equal(t, "dispatcher", actions[0].Assignee)
	assert.Equal(t, "notifier", actions[1].Assignee)
	assert.Equal(t, "router", actions[2].Assignee)
	assert.Equal(t, "reporter", actions[3].Assignee)

	for i, act := range actions {
		assert.Equal(t, i+1, act.Rank)
		assert.Equal(t, ActionPending, act.Status)
		if i == 0 {
			assert.Empty(t, act.DependsOn)
		} else {
			assert.Equal(t, []string{actions[i-1].ID}, act.DependsOn)
		}
	}
	// Deadlines are staggered by rank, all within the first hours.
	assert.True(t, actions[1].Deadline.After(actions[0].Deadline))
	assert.Equal(t, WindowImmediate, actions[0].Window)

	// Resources ride on the primary action only.
	assert.Len(t, actions[0].Resources, 1)
	assert.Equal(t, "pending", actions[0].Resources[0].Status)
	assert.Empty(t, actions[1].Resources)
}

func TestScheduler_ImpactDataReplacesScore(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	s.OnThreatAssessment(testAssessment("inc-1", model.SeverityLow, 100))
	low := s.Incidents()[0].Score

	s.OnImpactAssessment(model.ImpactAssessment{
		IncidentID:           "inc-1",
		Casualties:           600,
		Displaced:            60_000,
		EconomicLossUSD:      2e9,
		InfrastructureDamage: 80,
		TimeUntilImpactHours: 1,
	})

	v := s.Incidents()[0]
	assert.Greater(t, v.Score, low)
	assert.Equal(t, 1, v.Level)
	assert.Equal(t, 600, v.Factors.Casualties)
	assert.Equal(t, 60_000, v.Factors.Displaced)
}

func TestScheduler_ImpactForUnknownIncidentIgnored(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	s.OnImpactAssessment(model.ImpactAssessment{IncidentID: "ghost", Casualties: 10})
	assert.Empty(t, s.Incidents())
}

func TestScheduler_OrderingIsStableOnTies(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	// Identical assessments score identically; arrival order must hold.
	for i := 1; i <= 4; i++ {
		s.OnThreatAssessment(testAssessment(fmt.Sprintf("inc-%d", i), model.SeverityMedium, 5000))
	}
	require.NoError(t, s.Process(context.Background()))

	views := s.Incidents()
	require.Len(t, views, 4)
	for i, v := range views {
		assert.Equal(t, fmt.Sprintf("inc-%d", i+1), v.ID)
	}
}

func TestScheduler_HigherScoreRanksFirst(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	s.OnThreatAssessment(testAssessment("minor", model.SeverityLow, 100))
	s.OnThreatAssessment(testAssessment("major", model.SeverityCritical, 1_000_000))

	views := s.Incidents()
	assert.Equal(t, "major", views[0].ID)
	assert.Equal(t, "minor", views[1].ID)
}

func TestScheduler_AllocationIsFirstFitNoPartial(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	// 4 at central, 10 at north. A request for 6 must skip the first
	// entry entirely and claim north; no splitting 4+2.
	req := model.ResourceRequirement{Type: "fire_truck", Quantity: 6, Status: "pending"}
	assert.True(t, s.allocate("inc-1", &req))
	assert.Equal(t, "en_route", req.Status)

	pool := s.Pool()
	assert.Equal(t, ResourceAvailable, pool[0].Status)
	assert.Equal(t, ResourceEnRoute, pool[1].Status)
	assert.Equal(t, "inc-1", pool[1].AssignedTo)
}

func TestScheduler_AllocationFailureIsRetriedNotFatal(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	req := model.ResourceRequirement{Type: "helicopter", Quantity: 1, Status: "pending"}
	assert.False(t, s.allocate("inc-1", &req))
	assert.Equal(t, "pending", req.Status)
}

func TestScheduler_NoOversubscription(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	// Two incidents both want 6 fire trucks; only north (10) qualifies.
	reqA := model.ResourceRequirement{Type: "fire_truck", Quantity: 6, Status: "pending"}
	reqB := model.ResourceRequirement{Type: "fire_truck", Quantity: 6, Status: "pending"}
	assert.True(t, s.allocate("inc-a", &reqA))
	assert.False(t, s.allocate("inc-b", &reqB))

	claimed := 0
	for _, e := range s.Pool() {
		if e.AssignedTo != "" {
			claimed++
		}
	}
	assert.Equal(t, 1, claimed)
}

func TestScheduler_ReleaseReturnsResources(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	req := model.ResourceRequirement{Type: "ambulance", Quantity: 2, Status: "pending"}
	require.True(t, s.allocate("inc-1", &req))
	s.release("inc-1")

	for _, e := range s.Pool() {
		assert.Equal(t, ResourceAvailable, e.Status)
		assert.Empty(t, e.AssignedTo)
	}
	assert.Equal(t, 14, s.availableByType()["fire_truck"])
	assert.Equal(t, 6, s.availableByType()["ambulance"])
}

func TestScheduler_ProgressResourcesDeploysAfterETA(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	req := model.ResourceRequirement{Type: "ambulance", Quantity: 2, Status: "pending"}
	require.True(t, s.allocate("inc-1", &req))

	s.progressResources(time.Now())
	assert.Equal(t, ResourceEnRoute, s.Pool()[2].Status)

	s.progressResources(time.Now().Add(defaultETAMinutes*time.Minute + time.Second))
	assert.Equal(t, ResourceDeployed, s.Pool()[2].Status)
}

func TestScheduler_DispatchesOnlyTopIncidents(t *testing.T) {
	b := bus.New()
	for _, name := range []string{"dispatcher", "notifier", "router", "reporter"} {
		b.Register(name)
	}
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	// Four incidents in descending score; the lowest is outside top-3.
	severities := []model.Severity{
		model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow,
	}
	for i, sev := range severities {
		a := testAssessment(fmt.Sprintf("inc-%d", i+1), sev, 100_000-i*10_000)
		a.RequiredActions = []string{"Issue public alert"}
		s.OnThreatAssessment(a)
	}

	require.NoError(t, s.Process(context.Background()))
	assert.Equal(t, 3, b.Pending("dispatcher"))

	// Re-ticking does not re-dispatch already sent orders.
	require.NoError(t, s.Process(context.Background()))
	assert.Equal(t, 3, b.Pending("dispatcher"))
}

func TestScheduler_DependenciesGateDispatch(t *testing.T) {
	b := bus.New()
	inbox := b.Register("dispatcher")
	b.Register("notifier")
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	a := testAssessment("inc-1", model.SeverityCritical, 100_000)
	a.RequiredActions = []string{"Issue public alert", "Notify response teams"}
	s.OnThreatAssessment(a)

	require.NoError(t, s.Process(context.Background()))
	assert.Equal(t, 1, b.Pending("dispatcher"))
	assert.Equal(t, 0, b.Pending("notifier"))

	order, ok := bus.PayloadAs[model.ActionOrder]((<-inbox).Payload)
	require.True(t, ok)
	assert.Equal(t, 1, order.Rank)

	// Completing the first action unlocks the second.
	s.onActionUpdate(model.ActionUpdate{
		ActionID: order.ActionID, IncidentID: "inc-1", Status: "completed",
	})
	require.NoError(t, s.Process(context.Background()))
	assert.Equal(t, 1, b.Pending("notifier"))
}

func TestScheduler_AllActionsCompleteClosesIncident(t *testing.T) {
	b := bus.New()
	b.Register("dispatcher")
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	a := testAssessment("inc-1", model.SeverityHigh, 10_000)
	a.RequiredActions = []string{"Issue public alert"}
	a.RequiredResources = []model.ResourceRequirement{{Type: "ambulance", Quantity: 2}}
	s.OnThreatAssessment(a)
	require.NoError(t, s.Process(context.Background()))

	actionID := s.index["inc-1"].Actions[0].ID
	s.onActionUpdate(model.ActionUpdate{ActionID: actionID, IncidentID: "inc-1", Status: "completed"})

	assert.Empty(t, s.Incidents())
	assert.Equal(t, 6, s.availableByType()["ambulance"]) // released
	assert.Equal(t, 1, s.Stats()["closed"])
}

func TestScheduler_ProcessDecaysUrgency(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, time.Hour)

	a := testAssessment("inc-1", model.SeverityMedium, 5000)
	a.TimeUntilImpactHours = 7 // just outside the ≤6h tier
	s.OnThreatAssessment(a)
	before := s.Incidents()[0].Score

	// One 1-hour tick drops it to 6h: urgency tier rises.
	require.NoError(t, s.Process(context.Background()))
	after := s.Incidents()[0].Score
	assert.Greater(t, after, before)
}

func TestScheduler_HandleMessageRejectsBadPayloads(t *testing.T) {
	b := bus.New()
	s := New(b, testSeeds(), Weights{}, 30*time.Second)

	msg := bus.NewMessage("x", AgentName, bus.MsgThreatAssessment, "not an assessment")
	assert.Error(t, s.HandleMessage(context.Background(), msg))
}
