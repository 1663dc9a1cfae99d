package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Requirements holds the per-condition thresholds and sets of an ideal type.
// A nil pointer, empty string or empty slice means the requirement is unset.
type Requirements struct {
	// Birth-year bounds. The minimum age maps to the latest acceptable birth year.
	MinAgeBirthYear *int `json:"min_age_birth_year,omitempty"`
	MaxAgeBirthYear *int `json:"max_age_birth_year,omitempty"`

	MinHeight *int `json:"min_height,omitempty"`
	MaxHeight *int `json:"max_height,omitempty"`

	MinEducationLevel  EducationLevel     `json:"min_education_level,omitempty"`
	OccupationStatuses []OccupationStatus `json:"occupation_statuses,omitempty"`

	PreferredPersonalityTypes    []string `json:"preferred_personality_types,omitempty"`
	NonPreferredPersonalityTypes []string `json:"non_preferred_personality_types,omitempty"`

	PreferredReligions    []Religion `json:"preferred_religions,omitempty"`
	NonPreferredReligions []Religion `json:"non_preferred_religions,omitempty"`

	MinIncome            IncomeBand        `json:"min_income,omitempty"`
	MinAssets            AssetBand         `json:"min_assets,omitempty"`
	MinBooksPerYear      BooksPerYear      `json:"min_books_per_year,omitempty"`
	MinExerciseFrequency ExerciseFrequency `json:"min_exercise_frequency,omitempty"`

	SmokerOK      *bool `json:"smoker_ok,omitempty"`
	TattooOK      *bool `json:"tattoo_ok,omitempty"`
	GamingOK      *bool `json:"gaming_ok,omitempty"`
	PetOK         *bool `json:"pet_ok,omitempty"`
	ShouldHaveCar *bool `json:"should_have_car,omitempty"`
}

// IsSet reports whether the requirement behind c carries a value.
func (r *Requirements) IsSet(c Condition) bool {
	switch c {
	case ConditionAge:
		return r.MinAgeBirthYear != nil || r.MaxAgeBirthYear != nil
	case ConditionHeight:
		return r.MinHeight != nil || r.MaxHeight != nil
	case ConditionEducationLevel:
		return r.MinEducationLevel != ""
	case ConditionOccupationStatus:
		return len(r.OccupationStatuses) > 0
	case ConditionPreferredPersonalityTypes:
		return len(r.PreferredPersonalityTypes) > 0
	case ConditionNonPreferredPersonalityTypes:
		return len(r.NonPreferredPersonalityTypes) > 0
	case ConditionSmokerOK:
		return r.SmokerOK != nil
	case ConditionPreferredReligions:
		return len(r.PreferredReligions) > 0
	case ConditionNonPreferredReligions:
		return len(r.NonPreferredReligions) > 0
	case ConditionMinIncome:
		return r.MinIncome != ""
	case ConditionMinAssets:
		return r.MinAssets != ""
	case ConditionBooksPerYear:
		return r.MinBooksPerYear != ""
	case ConditionTattooOK:
		return r.TattooOK != nil
	case ConditionExerciseFrequency:
		return r.MinExerciseFrequency != ""
	case ConditionShouldHaveCar:
		return r.ShouldHaveCar != nil
	case ConditionGamingOK:
		return r.GamingOK != nil
	case ConditionPetOK:
		return r.PetOK != nil
	}
	if c.IsSoftOnly() {
		return false
	}
	panic(fmt.Sprintf("models: unhandled condition %q", c))
}

// SetConditions returns every filterable condition with a value, in catalog order.
func (r *Requirements) SetConditions() []Condition {
	var out []Condition
	for _, c := range filterableConditions {
		if r.IsSet(c) {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that enumerated values are known.
func (r *Requirements) Validate() error {
	if r.MinEducationLevel != "" && !EducationScale.Contains(r.MinEducationLevel) {
		return fmt.Errorf("%w: education level %q", ErrValidation, r.MinEducationLevel)
	}
	if r.MinIncome != "" && !IncomeScale.Contains(r.MinIncome) {
		return fmt.Errorf("%w: income band %q", ErrValidation, r.MinIncome)
	}
	if r.MinAssets != "" && !AssetScale.Contains(r.MinAssets) {
		return fmt.Errorf("%w: asset band %q", ErrValidation, r.MinAssets)
	}
	if r.MinBooksPerYear != "" && !BooksScale.Contains(r.MinBooksPerYear) {
		return fmt.Errorf("%w: books per year %q", ErrValidation, r.MinBooksPerYear)
	}
	if r.MinExerciseFrequency != "" && !ExerciseScale.Contains(r.MinExerciseFrequency) {
		return fmt.Errorf("%w: exercise frequency %q", ErrValidation, r.MinExerciseFrequency)
	}
	for _, o := range r.OccupationStatuses {
		if !o.IsValid() {
			return fmt.Errorf("%w: occupation status %q", ErrValidation, o)
		}
	}
	for _, rel := range append(append([]Religion{}, r.PreferredReligions...), r.NonPreferredReligions...) {
		if !rel.IsValid() {
			return fmt.Errorf("%w: religion %q", ErrValidation, rel)
		}
	}
	return nil
}

// Tier is a priority tier. Conditions absent from every tier are unassigned.
type Tier string

const (
	TierDealBreaker Tier = "deal_breaker"
	TierHigh        Tier = "high"
	TierMedium      Tier = "medium"
	TierLow         Tier = "low"
)

// Weight is the ranking weight of a soft tier. Deal-breakers carry no weight.
func (t Tier) Weight() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	}
	return 0
}

// IsSoft reports whether the tier is used for ranking only.
func (t Tier) IsSoft() bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// TierLists is the list form of a priority partition, used on the wire and in storage.
type TierLists struct {
	DealBreakers []Condition `json:"deal_breakers"`
	High         []Condition `json:"high"`
	Medium       []Condition `json:"medium"`
	Low          []Condition `json:"low"`
}

// Priorities maps each assigned condition to exactly one tier.
type Priorities map[Condition]Tier

// NewPriorities builds a priority partition, rejecting unknown, soft-only
// and overlapping assignments.
func NewPriorities(lists TierLists) (Priorities, error) {
	p := make(Priorities)
	assign := func(tier Tier, conds []Condition) error {
		for _, c := range conds {
			if !c.IsValid() {
				return fmt.Errorf("%w: %q", ErrUnknownCondition, c)
			}
			if c.IsSoftOnly() {
				return fmt.Errorf("%w: %s", ErrSoftOnlyCondition, c)
			}
			if existing, ok := p[c]; ok {
				return fmt.Errorf("%w: %s in %s and %s", ErrOverlappingTiers, c, existing, tier)
			}
			p[c] = tier
		}
		return nil
	}

	if err := assign(TierDealBreaker, lists.DealBreakers); err != nil {
		return nil, err
	}
	if err := assign(TierHigh, lists.High); err != nil {
		return nil, err
	}
	if err := assign(TierMedium, lists.Medium); err != nil {
		return nil, err
	}
	if err := assign(TierLow, lists.Low); err != nil {
		return nil, err
	}
	return p, nil
}

// Tier returns the tier of c and whether it is assigned.
func (p Priorities) Tier(c Condition) (Tier, bool) {
	t, ok := p[c]
	return t, ok
}

// InTier returns the conditions of tier t in catalog order.
func (p Priorities) InTier(t Tier) []Condition {
	var out []Condition
	for c, ct := range p {
		if ct == t {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].catalogOrder() < out[j].catalogOrder()
	})
	return out
}

// DealBreakers returns the deal-breaker conditions in catalog order.
func (p Priorities) DealBreakers() []Condition {
	return p.InTier(TierDealBreaker)
}

// HasSoftTiers reports whether any of high, medium or low is non-empty.
func (p Priorities) HasSoftTiers() bool {
	for _, t := range p {
		if t.IsSoft() {
			return true
		}
	}
	return false
}

// Lists converts the partition back to its list form.
func (p Priorities) Lists() TierLists {
	return TierLists{
		DealBreakers: p.InTier(TierDealBreaker),
		High:         p.InTier(TierHigh),
		Medium:       p.InTier(TierMedium),
		Low:          p.InTier(TierLow),
	}
}

// MarshalJSON encodes the partition as four lists.
func (p Priorities) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Lists())
}

// UnmarshalJSON decodes four lists and validates them through NewPriorities.
func (p *Priorities) UnmarshalJSON(data []byte) error {
	var lists TierLists
	if err := json.Unmarshal(data, &lists); err != nil {
		return err
	}
	built, err := NewPriorities(lists)
	if err != nil {
		return err
	}
	*p = built
	return nil
}

// SoftPreferences are display-only wishes shown to operators next to a candidate.
type SoftPreferences struct {
	Regions                []string `json:"regions,omitempty"`
	BodyShapes             []string `json:"body_shapes,omitempty"`
	FashionStyles          []string `json:"fashion_styles,omitempty"`
	EyelidTypes            []string `json:"eyelid_types,omitempty"`
	Hobbies                []string `json:"hobbies,omitempty"`
	NonPreferredWorkplaces []string `json:"non_preferred_workplaces,omitempty"`
	NonPreferredJobs       []string `json:"non_preferred_jobs,omitempty"`
	SchoolTiers            []string `json:"school_tiers,omitempty"`
	DrinkingFrequencies    []string `json:"drinking_frequencies,omitempty"`
	FacialFeatures         []string `json:"facial_features,omitempty"`
	Characteristics        []string `json:"characteristics,omitempty"`
}

// IdealType is a member's preference profile.
type IdealType struct {
	MemberID     int64           `json:"member_id"`
	Requirements Requirements    `json:"requirements"`
	Priorities   Priorities      `json:"priorities"`
	Soft         SoftPreferences `json:"soft_preferences"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewIdealType validates the requirements and priority lists and builds an ideal type.
func NewIdealType(memberID int64, req Requirements, lists TierLists, soft SoftPreferences) (*IdealType, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	priorities, err := NewPriorities(lists)
	if err != nil {
		return nil, err
	}
	return &IdealType{
		MemberID:     memberID,
		Requirements: req,
		Priorities:   priorities,
		Soft:         soft,
	}, nil
}

// NewSearchIdealType builds a transient ideal type for operator searches.
// Every set requirement becomes a deal-breaker; ranking lists may add soft tiers
// for conditions that are not already deal-breakers.
func NewSearchIdealType(req Requirements, ranking TierLists) (*IdealType, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lists := TierLists{
		DealBreakers: req.SetConditions(),
		High:         ranking.High,
		Medium:       ranking.Medium,
		Low:          ranking.Low,
	}
	priorities, err := NewPriorities(lists)
	if err != nil {
		return nil, err
	}
	return &IdealType{Requirements: req, Priorities: priorities}, nil
}
