// Package matcher implements candidate filtering, scoring and selection.
package matcher

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"matchmaking-engine/internal/models"
)

// NonPreferredReligionRejectAll is the number of non-preferred religions at which
// every candidate with a religion is rejected.
const NonPreferredReligionRejectAll = 3

// ConditionCheck is the outcome of one condition for one candidate.
type ConditionCheck struct {
	Condition models.Condition `json:"condition"`
	Passed    bool             `json:"passed"`
}

// DealBreakerResult holds the per-condition outcome of the deal-breaker filter.
type DealBreakerResult struct {
	Passed bool             `json:"passed"`
	Checks []ConditionCheck `json:"checks"`
}

// Failed returns the conditions the candidate did not satisfy.
func (r DealBreakerResult) Failed() []models.Condition {
	var out []models.Condition
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c.Condition)
		}
	}
	return out
}

// EvaluateCondition applies the predicate of condition c to a candidate.
// An unset requirement is always satisfied.
func EvaluateCondition(c models.Condition, req *models.Requirements, candidate *models.Member) bool {
	if !req.IsSet(c) {
		return true
	}

	switch c {
	case models.ConditionAge:
		// Birth years run opposite to age: the minimum age is the latest birth year.
		return inRange(candidate.BirthYear, req.MaxAgeBirthYear, req.MinAgeBirthYear)
	case models.ConditionHeight:
		return inRange(candidate.Height, req.MinHeight, req.MaxHeight)
	case models.ConditionEducationLevel:
		return models.EducationScale.AtLeast(candidate.EducationLevel, req.MinEducationLevel)
	case models.ConditionOccupationStatus:
		return lo.Contains(req.OccupationStatuses, candidate.OccupationStatus)
	case models.ConditionPreferredPersonalityTypes:
		if candidate.PersonalityType == "" {
			return true
		}
		return containsFold(req.PreferredPersonalityTypes, candidate.PersonalityType)
	case models.ConditionNonPreferredPersonalityTypes:
		if candidate.PersonalityType == "" {
			return true
		}
		return !containsFold(req.NonPreferredPersonalityTypes, candidate.PersonalityType)
	case models.ConditionSmokerOK:
		return tolerates(req.SmokerOK, candidate.Smoker)
	case models.ConditionPreferredReligions:
		return lo.Contains(req.PreferredReligions, candidate.Religion)
	case models.ConditionNonPreferredReligions:
		if len(req.NonPreferredReligions) >= NonPreferredReligionRejectAll {
			return !candidate.Religion.IsReligious()
		}
		return !lo.Contains(req.NonPreferredReligions, candidate.Religion)
	case models.ConditionMinIncome:
		return models.IncomeScale.AtLeast(candidate.IncomeBand, req.MinIncome)
	case models.ConditionMinAssets:
		return models.AssetScale.AtLeast(candidate.AssetBand, req.MinAssets)
	case models.ConditionBooksPerYear:
		return models.BooksScale.AtLeast(candidate.BooksPerYear, req.MinBooksPerYear)
	case models.ConditionTattooOK:
		return tolerates(req.TattooOK, candidate.HasTattoo)
	case models.ConditionExerciseFrequency:
		return models.ExerciseScale.AtLeast(candidate.ExerciseFrequency, req.MinExerciseFrequency)
	case models.ConditionShouldHaveCar:
		return !*req.ShouldHaveCar || candidate.HasCar
	case models.ConditionGamingOK:
		return tolerates(req.GamingOK, candidate.Gamer)
	case models.ConditionPetOK:
		return tolerates(req.PetOK, candidate.HasPet)
	}
	panic(fmt.Sprintf("matcher: no predicate for condition %q", c))
}

// EvaluateRequirements checks every set requirement, whatever its tier.
func EvaluateRequirements(req *models.Requirements, candidate *models.Member) bool {
	for _, c := range req.SetConditions() {
		if !EvaluateCondition(c, req, candidate) {
			return false
		}
	}
	return true
}

// EvaluateDealBreakers checks the deal-breaker tier of ideal against a candidate.
func EvaluateDealBreakers(ideal *models.IdealType, candidate *models.Member) DealBreakerResult {
	conditions := ideal.Priorities.DealBreakers()
	result := DealBreakerResult{Passed: true, Checks: make([]ConditionCheck, 0, len(conditions))}
	for _, c := range conditions {
		ok := EvaluateCondition(c, &ideal.Requirements, candidate)
		result.Checks = append(result.Checks, ConditionCheck{Condition: c, Passed: ok})
		if !ok {
			result.Passed = false
		}
	}
	return result
}

// PassesDealBreakers reports whether a candidate satisfies every deal-breaker.
func PassesDealBreakers(ideal *models.IdealType, candidate *models.Member) bool {
	for _, c := range ideal.Priorities.DealBreakers() {
		if !EvaluateCondition(c, &ideal.Requirements, candidate) {
			return false
		}
	}
	return true
}

// inRange checks lower <= v <= upper for the bounds that are set. A missing value fails.
func inRange(v, lower, upper *int) bool {
	if v == nil {
		return false
	}
	if lower != nil && *v < *lower {
		return false
	}
	if upper != nil && *v > *upper {
		return false
	}
	return true
}

// tolerates is satisfied when the trait is tolerated or absent.
func tolerates(ok *bool, hasTrait bool) bool {
	return *ok || !hasTrait
}

func containsFold(set []string, v string) bool {
	v = strings.TrimSpace(v)
	return lo.ContainsBy(set, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), v)
	})
}
