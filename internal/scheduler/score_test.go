package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

func TestThreatScore_ReferenceIncident(t *testing.T) {
	w := DefaultWeights()
	// Critical wildfire, 150k people, 80% confidence, impact imminent:
	// 40 + 20 + 20 + 8 = 88.
	a := model.ThreatAssessment{
		Severity:             model.SeverityCritical,
		EstimatedPopulation:  150_000,
		Confidence:           80,
		TimeUntilImpactHours: 0.5,
	}
	score := w.ThreatScore(a)
	assert.InDelta(t, 88.0, score, 0.001)
	assert.Equal(t, 1, LevelFor(score))
}

func TestThreatScore_PopulationTiers(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		population int
		want       float64
	}{
		{0, 0},
		{1, 5},
		{10_000, 10},
		{50_000, 15},
		{100_000, 20},
		{500_000, 25},
		{1_000_000, 30},
		{50_000_000, 30},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, w.populationTerm(c.population), "population=%d", c.population)
	}
}

func TestThreatScore_UrgencyTiers(t *testing.T) {
	w := DefaultWeights()
	cases := []struct {
		hours float64
		want  float64
	}{
		{0, 20},
		{1, 20},
		{6, 15},
		{24, 10},
		{72, 5},
		{100, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, w.urgencyTerm(c.hours), "hours=%v", c.hours)
	}
}

func TestThreatScore_PathologicalInputsStayInRange(t *testing.T) {
	w := DefaultWeights()
	cases := []model.ThreatAssessment{
		{Severity: "bogus", EstimatedPopulation: -5, Confidence: -200, TimeUntilImpactHours: -3},
		{Severity: model.SeverityCritical, EstimatedPopulation: 1 << 40, Confidence: 9999, TimeUntilImpactHours: 0},
		{},
	}
	for _, a := range cases {
		score := w.ThreatScore(a)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

func TestImpactScore_ReplacesByTier(t *testing.T) {
	w := DefaultWeights()
	i := model.ImpactAssessment{
		Casualties:           120,    // 30
		Displaced:            12_000, // 15
		EconomicLossUSD:      2e8,    // 15
		InfrastructureDamage: 60,     // 3
		TimeUntilImpactHours: 12,     // (24-12)/24*10 = 5
	}
	assert.InDelta(t, 68.0, w.ImpactScore(i), 0.001)
	assert.Equal(t, 2, LevelFor(w.ImpactScore(i)))
}

func TestImpactScore_NoUrgencyBonusBeyondDay(t *testing.T) {
	w := DefaultWeights()
	i := model.ImpactAssessment{Casualties: 5, TimeUntilImpactHours: 48}
	assert.InDelta(t, 10.0, w.ImpactScore(i), 0.001)
}

func TestImpactScore_ClampedAtHundred(t *testing.T) {
	w := DefaultWeights()
	i := model.ImpactAssessment{
		Casualties:           5000,
		Displaced:            500_000,
		EconomicLossUSD:      5e9,
		InfrastructureDamage: 100,
		TimeUntilImpactHours: 0,
	}
	assert.Equal(t, 100.0, w.ImpactScore(i))
}

func TestLevelFor_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  int
	}{
		{100, 1}, {80, 1}, {79.9, 2}, {60, 2}, {59.9, 3},
		{40, 3}, {39.9, 4}, {20, 4}, {19.9, 5}, {0, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LevelFor(c.score), "score=%v", c.score)
	}
}
