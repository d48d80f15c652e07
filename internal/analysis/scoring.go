package analysis

import (
	"math"
	"time"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

// Rule is one row of a declarative scoring table.
type Rule[T any] struct {
	Name        string
	Category    string
	Factor      string
	Description string
	Weight      int
	Predicate   func(T) bool
}

// RuleSet scores an input by adding the weights of every matching rule to Base.
type RuleSet[T any] struct {
	Base  int
	Rules []Rule[T]
}

type Outcome[T any] struct {
	Score   int
	Matched []Rule[T]
}

// Evaluate applies the rules in declaration order and clamps the result to [0,100].
func (rs RuleSet[T]) Evaluate(in T) Outcome[T] {
	score := rs.Base
	var matched []Rule[T]
	for _, r := range rs.Rules {
		if r.Predicate(in) {
			score += r.Weight
			matched = append(matched, r)
		}
	}
	return Outcome[T]{Score: Clamp(score, 0, 100), Matched: matched}
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BandRisk maps a score to its level: <40 baixo, 40-59 médio, 60-79 alto, >=80 crítico.
func BandRisk(score int) models.RiskLevel {
	switch {
	case score >= 80:
		return models.RiskCritical
	case score >= 60:
		return models.RiskHigh
	case score >= 40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// DaysUntil is ceil((deadline - now) / 24h).
func DaysUntil(now, deadline time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// DeadlineTier derives status and base urgency from days remaining.
func DeadlineTier(days int) (models.DeadlineStatus, models.Urgency) {
	switch {
	case days < 0:
		return models.DeadlineOverdue, models.UrgencyCritical
	case days == 0:
		return models.DeadlineToday, models.UrgencyCritical
	case days <= 2:
		return models.DeadlineUpcoming, models.UrgencyHigh
	case days <= 5:
		return models.DeadlineUpcoming, models.UrgencyMedium
	default:
		return models.DeadlineUpcoming, models.UrgencyLow
	}
}

var urgencyOrder = map[models.Urgency]int{
	models.UrgencyLow:      0,
	models.UrgencyMedium:   1,
	models.UrgencyHigh:     2,
	models.UrgencyCritical: 3,
}

var urgencyByRank = []models.Urgency{
	models.UrgencyLow,
	models.UrgencyMedium,
	models.UrgencyHigh,
	models.UrgencyCritical,
}

// UpgradeUrgency raises u by exactly one tier; crítica stays crítica.
func UpgradeUrgency(u models.Urgency) models.Urgency {
	rank, ok := urgencyOrder[u]
	if !ok {
		return u
	}
	if rank+1 >= len(urgencyByRank) {
		return models.UrgencyCritical
	}
	return urgencyByRank[rank+1]
}

func UrgencyRank(u models.Urgency) int {
	return urgencyOrder[u]
}

func impactForWeight(weight int) models.Impact {
	if weight < 0 {
		weight = -weight
	}
	switch {
	case weight >= 20:
		return models.ImpactHigh
	case weight >= 10:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}
