package matcher

import (
	"matchmaking-engine/internal/models"
)

// ScoreComponent explains the contribution of one ranked condition.
type ScoreComponent struct {
	Condition models.Condition `json:"condition"`
	Tier      models.Tier      `json:"tier"`
	Satisfied bool             `json:"satisfied"`
	Points    int              `json:"points"`
}

var softTiers = []models.Tier{models.TierHigh, models.TierMedium, models.TierLow}

// Score sums the tier weights of the high, medium and low conditions the
// candidate satisfies. Unassigned conditions add nothing.
func Score(ideal *models.IdealType, candidate *models.Member) int {
	total := 0
	for _, tier := range softTiers {
		for _, c := range ideal.Priorities.InTier(tier) {
			if EvaluateCondition(c, &ideal.Requirements, candidate) {
				total += tier.Weight()
			}
		}
	}
	return total
}

// ScoreBreakdown lists every ranked condition with the points it earned.
func ScoreBreakdown(ideal *models.IdealType, candidate *models.Member) []ScoreComponent {
	var out []ScoreComponent
	for _, tier := range softTiers {
		for _, c := range ideal.Priorities.InTier(tier) {
			ok := EvaluateCondition(c, &ideal.Requirements, candidate)
			points := 0
			if ok {
				points = tier.Weight()
			}
			out = append(out, ScoreComponent{Condition: c, Tier: tier, Satisfied: ok, Points: points})
		}
	}
	return out
}

// MaxScore is the highest score any ideal type can produce.
func MaxScore() int {
	return models.TierHigh.Weight() * len(models.FilterableConditions())
}
