package matcher_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/services/matcher"
)


// strictRequirements sets every filterable condition. The base mock member
// (with a car) satisfies all of them.
func strictRequirements() models.Requirements {
	return models.Requirements{
		MaxAgeBirthYear:              intPtr(1985),
		MinAgeBirthYear:              intPtr(2000),
		MinHeight:                    intPtr(170),
		MaxHeight:                    intPtr(185),
		MinEducationLevel:            models.EducationBachelor,
		OccupationStatuses:           []models.OccupationStatus{models.OccupationEmployed, models.OccupationProfessional},
		PreferredPersonalityTypes:    []string{"INFP", "ENFP"},
		NonPreferredPersonalityTypes: []string{"ESTJ"},
		PreferredReligions:           []models.Religion{models.ReligionNone, models.ReligionChristian},
		NonPreferredReligions:        []models.Religion{models.ReligionBuddhist, models.ReligionCatholic, models.ReligionOther},
		MinIncome:                    models.Income50To70M,
		MinAssets:                    models.Assets100To300M,
		MinBooksPerYear:              models.Books6To10,
		MinExerciseFrequency:         models.ExerciseWeekly1To2,
		SmokerOK:                     boolPtr(false),
		TattooOK:                     boolPtr(false),
		GamingOK:                     boolPtr(false),
		PetOK:                        boolPtr(false),
		ShouldHaveCar:                boolPtr(true),
	}
}

// relaxations returns the ways a single requirement can be loosened:
// removing it, and widening it where it has a bound or a set.
func relaxations(t *testing.T, c models.Condition) map[string]func(*models.Requirements) {
	t.Helper()
	switch c {
	case models.ConditionAge:
		return map[string]func(*models.Requirements){
			"unset":           func(r *models.Requirements) { r.MinAgeBirthYear, r.MaxAgeBirthYear = nil, nil },
			"older allowed":   func(r *models.Requirements) { r.MaxAgeBirthYear = intPtr(*r.MaxAgeBirthYear - 10) },
			"younger allowed": func(r *models.Requirements) { r.MinAgeBirthYear = intPtr(*r.MinAgeBirthYear + 10) },
			"no upper age":    func(r *models.Requirements) { r.MaxAgeBirthYear = nil },
		}
	case models.ConditionHeight:
		return map[string]func(*models.Requirements){
			"unset":     func(r *models.Requirements) { r.MinHeight, r.MaxHeight = nil, nil },
			"lower min": func(r *models.Requirements) { r.MinHeight = intPtr(150) },
			"raise max": func(r *models.Requirements) { r.MaxHeight = intPtr(200) },
		}
	case models.ConditionEducationLevel:
		return map[string]func(*models.Requirements){
			"unset":  func(r *models.Requirements) { r.MinEducationLevel = "" },
			"lowest": func(r *models.Requirements) { r.MinEducationLevel = models.EducationHighSchool },
		}
	case models.ConditionOccupationStatus:
		return map[string]func(*models.Requirements){
			"unset": func(r *models.Requirements) { r.OccupationStatuses = nil },
			"add":   func(r *models.Requirements) { r.OccupationStatuses = append(r.OccupationStatuses, models.OccupationStudent) },
		}
	case models.ConditionPreferredPersonalityTypes:
		return map[string]func(*models.Requirements){
			"unset": func(r *models.Requirements) { r.PreferredPersonalityTypes = nil },
			"add":   func(r *models.Requirements) { r.PreferredPersonalityTypes = append(r.PreferredPersonalityTypes, "ESTJ", "ISTP") },
		}
	case models.ConditionNonPreferredPersonalityTypes:
		return map[string]func(*models.Requirements){
			"unset": func(r *models.Requirements) { r.NonPreferredPersonalityTypes = nil },
		}
	case models.ConditionSmokerOK:
		return map[string]func(*models.Requirements){
			"unset":    func(r *models.Requirements) { r.SmokerOK = nil },
			"tolerate": func(r *models.Requirements) { r.SmokerOK = boolPtr(true) },
		}
	case models.ConditionPreferredReligions:
		return map[string]func(*models.Requirements){
			"unset": func(r *models.Requirements) { r.PreferredReligions = nil },
			"add":   func(r *models.Requirements) { r.PreferredReligions = append(r.PreferredReligions, models.ReligionBuddhist) },
		}
	case models.ConditionNonPreferredReligions:
		return map[string]func(*models.Requirements){
			"unset":    func(r *models.Requirements) { r.NonPreferredReligions = nil },
			"drop one": func(r *models.Requirements) { r.NonPreferredReligions = r.NonPreferredReligions[:2] },
		}
	case models.ConditionMinIncome:
		return map[string]func(*models.Requirements){
			"unset":  func(r *models.Requirements) { r.MinIncome = "" },
			"lowest": func(r *models.Requirements) { r.MinIncome = models.IncomeUnder30M },
		}
	case models.ConditionMinAssets:
		return map[string]func(*models.Requirements){
			"unset":  func(r *models.Requirements) { r.MinAssets = "" },
			"lowest": func(r *models.Requirements) { r.MinAssets = models.AssetsUnder50M },
		}
	case models.ConditionBooksPerYear:
		return map[string]func(*models.Requirements){
			"unset":  func(r *models.Requirements) { r.MinBooksPerYear = "" },
			"lowest": func(r *models.Requirements) { r.MinBooksPerYear = models.BooksNone },
		}
	case models.ConditionTattooOK:
		return map[string]func(*models.Requirements){
			"unset":    func(r *models.Requirements) { r.TattooOK = nil },
			"tolerate": func(r *models.Requirements) { r.TattooOK = boolPtr(true) },
		}
	case models.ConditionExerciseFrequency:
		return map[string]func(*models.Requirements){
			"unset":  func(r *models.Requirements) { r.MinExerciseFrequency = "" },
			"lowest": func(r *models.Requirements) { r.MinExerciseFrequency = models.ExerciseNone },
		}
	case models.ConditionShouldHaveCar:
		return map[string]func(*models.Requirements){
			"unset":      func(r *models.Requirements) { r.ShouldHaveCar = nil },
			"not needed": func(r *models.Requirements) { r.ShouldHaveCar = boolPtr(false) },
		}
	case models.ConditionGamingOK:
		return map[string]func(*models.Requirements){
			"unset":    func(r *models.Requirements) { r.GamingOK = nil },
			"tolerate": func(r *models.Requirements) { r.GamingOK = boolPtr(true) },
		}
	case models.ConditionPetOK:
		return map[string]func(*models.Requirements){
			"unset":    func(r *models.Requirements) { r.PetOK = nil },
			"tolerate": func(r *models.Requirements) { r.PetOK = boolPtr(true) },
		}
	}
	t.Fatalf("no relaxation for condition %s", c)
	return nil
}

// candidateGrid returns the base member plus every single and pairwise
// combination of attribute changes.
func candidateGrid() []*models.Member {
	mutations := []func(*models.Member){
		func(m *models.Member) { m.BirthYear = intPtr(1980) },
		func(m *models.Member) { m.BirthYear = intPtr(2003) },
		func(m *models.Member) { m.BirthYear = nil },
		func(m *models.Member) { m.Height = intPtr(160) },
		func(m *models.Member) { m.Height = intPtr(192) },
		func(m *models.Member) { m.Height = nil },
		func(m *models.Member) { m.EducationLevel = models.EducationHighSchool },
		func(m *models.Member) { m.EducationLevel = models.EducationDoctorate },
		func(m *models.Member) { m.EducationLevel = "" },
		func(m *models.Member) { m.OccupationStatus = models.OccupationStudent },
		func(m *models.Member) { m.PersonalityType = "ESTJ" },
		func(m *models.Member) { m.PersonalityType = "ISTP" },
		func(m *models.Member) { m.PersonalityType = "" },
		func(m *models.Member) { m.Religion = models.ReligionChristian },
		func(m *models.Member) { m.Religion = models.ReligionBuddhist },
		func(m *models.Member) { m.Religion = models.ReligionOther },
		func(m *models.Member) { m.IncomeBand = models.IncomeUnder30M },
		func(m *models.Member) { m.IncomeBand = models.IncomeOver150M },
		func(m *models.Member) { m.AssetBand = models.AssetsUnder50M },
		func(m *models.Member) { m.BooksPerYear = models.BooksNone },
		func(m *models.Member) { m.BooksPerYear = models.BooksOver20 },
		func(m *models.Member) { m.ExerciseFrequency = models.ExerciseNone },
		func(m *models.Member) { m.ExerciseFrequency = models.ExerciseDaily },
		func(m *models.Member) { m.Smoker = true },
		func(m *models.Member) { m.HasTattoo = true },
		func(m *models.Member) { m.Gamer = true },
		func(m *models.Member) { m.HasPet = true },
		func(m *models.Member) { m.HasCar = false },
	}

	base := func() *models.Member {
		m := mockMember(0, models.CategoryB)
		m.HasCar = true
		return m
	}

	grid := []*models.Member{base()}
	for i := range mutations {
		m := base()
		mutations[i](m)
		grid = append(grid, m)
		for j := i + 1; j < len(mutations); j++ {
			m := base()
			mutations[i](m)
			mutations[j](m)
			grid = append(grid, m)
		}
	}
	return grid
}

func TestDealBreakers_RelaxingNeverRejects(t *testing.T) {
	strict := dealBreakerIdeal(t, strictRequirements())
	grid := candidateGrid()

	passing := 0
	for _, cand := range grid {
		if matcher.PassesDealBreakers(strict, cand) {
			passing++
		}
	}
	require.Positive(t, passing, "the base member passes every strict requirement")
	require.Less(t, passing, len(grid))

	for _, c := range models.FilterableConditions() {
		for name, relax := range relaxations(t, c) {
			t.Run(fmt.Sprintf("%s/%s", c, name), func(t *testing.T) {
				req := strictRequirements()
				relax(&req)
				relaxed := *strict
				relaxed.Requirements = req

				for i, cand := range grid {
					if matcher.PassesDealBreakers(strict, cand) {
						assert.True(t, matcher.PassesDealBreakers(&relaxed, cand), "candidate %d", i)
					}
					if matcher.EvaluateCondition(c, &strict.Requirements, cand) {
						assert.True(t, matcher.EvaluateCondition(c, &relaxed.Requirements, cand), "candidate %d", i)
					}
				}
			})
		}
	}
}

func TestScore_Bounded(t *testing.T) {
	req := strictRequirements()
	allHigh, err := models.NewIdealType(1, req, models.TierLists{High: models.FilterableConditions()}, models.SoftPreferences{})
	require.NoError(t, err)

	mixed, err := models.NewIdealType(1, req, models.TierLists{
		DealBreakers: []models.Condition{models.ConditionAge},
		High:         []models.Condition{models.ConditionHeight, models.ConditionSmokerOK},
		Medium:       []models.Condition{models.ConditionMinIncome, models.ConditionPetOK},
		Low:          []models.Condition{models.ConditionGamingOK},
	}, models.SoftPreferences{})
	require.NoError(t, err)

	empty, err := models.NewIdealType(1, models.Requirements{}, models.TierLists{}, models.SoftPreferences{})
	require.NoError(t, err)

	assert.Equal(t, 3*len(models.FilterableConditions()), matcher.MaxScore())

	grid := candidateGrid()
	assert.Equal(t, matcher.MaxScore(), matcher.Score(allHigh, grid[0]), "the base member satisfies everything")

	for i, cand := range grid {
		for _, ideal := range []*models.IdealType{allHigh, mixed, empty} {
			score := matcher.Score(ideal, cand)
			assert.GreaterOrEqual(t, score, 0, "candidate %d", i)
			assert.LessOrEqual(t, score, matcher.MaxScore(), "candidate %d", i)

			sum := 0
			for _, comp := range matcher.ScoreBreakdown(ideal, cand) {
				sum += comp.Points
			}
			assert.Equal(t, score, sum, "breakdown adds up for candidate %d", i)
		}
		assert.Zero(t, matcher.Score(empty, cand))
	}
}
