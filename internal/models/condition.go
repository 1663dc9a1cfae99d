package models

import (
	"fmt"
	"strings"
)

// Condition is one matchable attribute from the catalog.
type Condition string

// Filterable conditions. Each may be a deal-breaker or carry a ranking tier.
const (
	ConditionAge                          Condition = "AGE"
	ConditionHeight                       Condition = "HEIGHT"
	ConditionEducationLevel               Condition = "EDUCATION_LEVEL"
	ConditionOccupationStatus             Condition = "OCCUPATION_STATUS"
	ConditionPreferredPersonalityTypes    Condition = "PREFERRED_PERSONALITY_TYPES"
	ConditionNonPreferredPersonalityTypes Condition = "NON_PREFERRED_PERSONALITY_TYPES"
	ConditionSmokerOK                     Condition = "SMOKER_OK"
	ConditionPreferredReligions           Condition = "PREFERRED_RELIGIONS"
	ConditionNonPreferredReligions        Condition = "NON_PREFERRED_RELIGIONS"
	ConditionMinIncome                    Condition = "MIN_INCOME"
	ConditionMinAssets                    Condition = "MIN_ASSETS"
	ConditionBooksPerYear                 Condition = "BOOKS_PER_YEAR"
	ConditionTattooOK                     Condition = "TATTOO_OK"
	ConditionExerciseFrequency            Condition = "EXERCISE_FREQUENCY"
	ConditionShouldHaveCar                Condition = "SHOULD_HAVE_CAR"
	ConditionGamingOK                     Condition = "GAMING_OK"
	ConditionPetOK                        Condition = "PET_OK"
)

// Soft-only conditions are shown to operators but never filter or score.
const (
	ConditionRegion                Condition = "REGION"
	ConditionBodyShape             Condition = "BODY_SHAPE"
	ConditionFashionStyle          Condition = "FASHION_STYLE"
	ConditionEyelidType            Condition = "EYELID_TYPE"
	ConditionHobby                 Condition = "HOBBY"
	ConditionNonPreferredWorkplace Condition = "NON_PREFERRED_WORKPLACE"
	ConditionNonPreferredJob       Condition = "NON_PREFERRED_JOB"
	ConditionSchoolTier            Condition = "SCHOOL_TIER"
	ConditionDrinkingFrequency     Condition = "DRINKING_FREQUENCY"
	ConditionFacialFeature         Condition = "FACIAL_FEATURE"
	ConditionCharacteristics       Condition = "CHARACTERISTICS"
)

var filterableConditions = []Condition{
	ConditionAge,
	ConditionHeight,
	ConditionEducationLevel,
	ConditionOccupationStatus,
	ConditionPreferredPersonalityTypes,
	ConditionNonPreferredPersonalityTypes,
	ConditionSmokerOK,
	ConditionPreferredReligions,
	ConditionNonPreferredReligions,
	ConditionMinIncome,
	ConditionMinAssets,
	ConditionBooksPerYear,
	ConditionTattooOK,
	ConditionExerciseFrequency,
	ConditionShouldHaveCar,
	ConditionGamingOK,
	ConditionPetOK,
}

var softOnlyConditions = []Condition{
	ConditionRegion,
	ConditionBodyShape,
	ConditionFashionStyle,
	ConditionEyelidType,
	ConditionHobby,
	ConditionNonPreferredWorkplace,
	ConditionNonPreferredJob,
	ConditionSchoolTier,
	ConditionDrinkingFrequency,
	ConditionFacialFeature,
	ConditionCharacteristics,
}

var catalogIndex = func() map[Condition]int {
	idx := make(map[Condition]int, len(filterableConditions)+len(softOnlyConditions))
	for i, c := range filterableConditions {
		idx[c] = i
	}
	for i, c := range softOnlyConditions {
		idx[c] = len(filterableConditions) + i
	}
	return idx
}()

// FilterableConditions returns the conditions that can be deal-breakers or ranked,
// in catalog order.
func FilterableConditions() []Condition {
	out := make([]Condition, len(filterableConditions))
	copy(out, filterableConditions)
	return out
}

// SoftOnlyConditions returns the display-only conditions in catalog order.
func SoftOnlyConditions() []Condition {
	out := make([]Condition, len(softOnlyConditions))
	copy(out, softOnlyConditions)
	return out
}

// IsValid reports whether the condition is in the catalog.
func (c Condition) IsValid() bool {
	_, ok := catalogIndex[c]
	return ok
}

// IsFilterable reports whether the condition can be evaluated against a candidate.
func (c Condition) IsFilterable() bool {
	i, ok := catalogIndex[c]
	return ok && i < len(filterableConditions)
}

// IsSoftOnly reports whether the condition is display-only.
func (c Condition) IsSoftOnly() bool {
	return c.IsValid() && !c.IsFilterable()
}

// catalogOrder is used to keep condition lists in a stable order.
func (c Condition) catalogOrder() int {
	if i, ok := catalogIndex[c]; ok {
		return i
	}
	return len(catalogIndex)
}

// ParseCondition converts user input into a catalog condition.
func ParseCondition(s string) (Condition, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	c := Condition(normalized)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCondition, s)
	}
	return c, nil
}

// ParseConditions parses a list of condition names, failing on the first unknown one.
func ParseConditions(values []string) ([]Condition, error) {
	out := make([]Condition, 0, len(values))
	for _, v := range values {
		c, err := ParseCondition(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
