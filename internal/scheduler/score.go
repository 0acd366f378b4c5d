package scheduler

import "github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"

// Weights holds the priority-score constants. They are part of the
// configuration surface; DefaultWeights matches the reference deployment.
type Weights struct {
	SeverityCritical float64 `json:"severityCritical"`
	SeverityHigh     float64 `json:"severityHigh"`
	SeverityMedium   float64 `json:"severityMedium"`
	SeverityLow      float64 `json:"severityLow"`
	PopulationMax    float64 `json:"populationMax"`
	UrgencyMax       float64 `json:"urgencyMax"`
	ConfidenceMax    float64 `json:"confidenceMax"`
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() Weights {
	return Weights{
		SeverityCritical: 40,
		SeverityHigh:     30,
		SeverityMedium:   20,
		SeverityLow:      10,
		PopulationMax:    30,
		UrgencyMax:       20,
		ConfidenceMax:    10,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// severityTerm maps severity to its score contribution.
func (w Weights) severityTerm(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return w.SeverityCritical
	case model.SeverityHigh:
		return w.SeverityHigh
	case model.SeverityMedium:
		return w.SeverityMedium
	default:
		return w.SeverityLow
	}
}

// populationTerm tiers the estimated affected population into 5-30 points.
func (w Weights) populationTerm(population int) float64 {
	var t float64
	switch {
	case population >= 1_000_000:
		t = 30
	case population >= 500_000:
		t = 25
	case population >= 100_000:
		t = 20
	case population >= 50_000:
		t = 15
	case population >= 10_000:
		t = 10
	case population > 0:
		t = 5
	}
	return clamp(t, 0, w.PopulationMax)
}

// urgencyTerm scores time-until-impact into 0-20 points.
func (w Weights) urgencyTerm(hours float64) float64 {
	var t float64
	switch {
	case hours <= 1:
		t = 20
	case hours <= 6:
		t = 15
	case hours <= 24:
		t = 10
	case hours <= 72:
		t = 5
	}
	return clamp(t, 0, w.UrgencyMax)
}

// ThreatScore computes the initial incident score from a threat assessment.
// Every term is clamped independently before summation and the total is
// clamped to [0,100], so pathological inputs can never escape the range.
func (w Weights) ThreatScore(a model.ThreatAssessment) float64 {
	score := w.severityTerm(a.Severity) +
		w.populationTerm(a.EstimatedPopulation) +
		w.urgencyTerm(a.TimeUntilImpactHours) +
		clamp(a.Confidence, 0, 100)/100*w.ConfidenceMax
	return clamp(score, 0, 100)
}

// ImpactScore recomputes an incident's score once impact data exists.
// This is a full replace of the threat-based score, keyed on casualty,
// displacement and economic-loss tiers plus a time-urgency bonus that
// grows as impact approaches and vanishes beyond 24 hours.
func (w Weights) ImpactScore(i model.ImpactAssessment) float64 {
	var casualties float64
	switch {
	case i.Casualties >= 1000:
		casualties = 40
	case i.Casualties >= 500:
		casualties = 35
	case i.Casualties >= 100:
		casualties = 30
	case i.Casualties >= 50:
		casualties = 25
	case i.Casualties >= 10:
		casualties = 20
	case i.Casualties > 0:
		casualties = 10
	}

	var displaced float64
	switch {
	case i.Displaced >= 100_000:
		displaced = 25
	case i.Displaced >= 50_000:
		displaced = 20
	case i.Displaced >= 10_000:
		displaced = 15
	case i.Displaced >= 1_000:
		displaced = 10
	case i.Displaced > 0:
		displaced = 5
	}

	var economic float64
	switch {
	case i.EconomicLossUSD >= 1e9:
		economic = 20
	case i.EconomicLossUSD >= 1e8:
		economic = 15
	case i.EconomicLossUSD >= 1e7:
		economic = 10
	case i.EconomicLossUSD >= 1e6:
		economic = 5
	}

	infra := clamp(i.InfrastructureDamage, 0, 100) / 100 * 5

	var urgency float64
	if i.TimeUntilImpactHours < 24 {
		urgency = clamp((24-i.TimeUntilImpactHours)/24*10, 0, 10)
	}

	return clamp(casualties+displaced+economic+infra+urgency, 0, 100)
}

// LevelFor maps a score to a priority level, 1 being the highest.
func LevelFor(score float64) int {
	switch {
	case score >= 80:
		return 1
	case score >= 60:
		return 2
	case score >= 40:
		return 3
	case score >= 20:
		return 4
	default:
		return 5
	}
}
