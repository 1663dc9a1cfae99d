package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/models"
)

func TestCatalog_Partition(t *testing.T) {
	filterable := models.FilterableConditions()
	soft := models.SoftOnlyConditions()

	assert.Len(t, filterable, 17)
	assert.Len(t, soft, 11)

	for _, c := range filterable {
		assert.True(t, c.IsFilterable(), c)
		assert.False(t, c.IsSoftOnly(), c)
	}
	for _, c := range soft {
		assert.True(t, c.IsSoftOnly(), c)
		assert.False(t, c.IsFilterable(), c)
	}
	assert.False(t, models.Condition("NOPE").IsValid())
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Condition
		wantErr  bool
	}{
		{"AGE", models.ConditionAge, false},
		{"min-income", models.ConditionMinIncome, false},
		{" smoker ok ", models.ConditionSmokerOK, false},
		{"eyelid_type", models.ConditionEyelidType, false},
		{"favourite_colour", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := models.ParseCondition(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUnknownCondition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestScale_AtLeast(t *testing.T) {
	s := models.EducationScale

	assert.True(t, s.AtLeast(models.EducationMaster, models.EducationBachelor))
	assert.True(t, s.AtLeast(models.EducationBachelor, models.EducationBachelor))
	assert.False(t, s.AtLeast(models.EducationAssociate, models.EducationBachelor))
	assert.True(t, s.AtLeast("", ""), "empty threshold imposes nothing")
	assert.False(t, s.AtLeast("", models.EducationHighSchool), "missing value never qualifies")
	assert.False(t, s.AtLeast("phd", models.EducationHighSchool), "off-scale value never qualifies")
	assert.False(t, s.AtLeast(models.EducationDoctorate, "phd"), "off-scale threshold never qualifies")
}

func TestScale_OrderIsExplicit(t *testing.T) {
	r, ok := models.IncomeScale.Rank(models.IncomeOver150M)
	require.True(t, ok)
	assert.Equal(t, len(models.IncomeScale.Values())-1, r)

	r, ok = models.ExerciseScale.Rank(models.ExerciseNone)
	require.True(t, ok)
	assert.Equal(t, 0, r)

	assert.Panics(t, func() {
		models.NewScale("dup", models.BooksNone, models.BooksNone)
	})
}

func TestNewPriorities(t *testing.T) {
	t.Run("valid partition", func(t *testing.T) {
		p, err := models.NewPriorities(models.TierLists{
			DealBreakers: []models.Condition{models.ConditionAge},
			High:         []models.Condition{models.ConditionHeight},
			Low:          []models.Condition{models.ConditionPetOK},
		})
		require.NoError(t, err)

		tier, ok := p.Tier(models.ConditionHeight)
		assert.True(t, ok)
		assert.Equal(t, models.TierHigh, tier)

		_, ok = p.Tier(models.ConditionSmokerOK)
		assert.False(t, ok, "unlisted conditions are unassigned")
		assert.True(t, p.HasSoftTiers())
	})

	t.Run("overlap rejected", func(t *testing.T) {
		_, err := models.NewPriorities(models.TierLists{
			DealBreakers: []models.Condition{models.ConditionAge},
			Medium:       []models.Condition{models.ConditionAge},
		})
		assert.ErrorIs(t, err, models.ErrOverlappingTiers)
		assert.True(t, models.IsBadRequest(err))
	})

	t.Run("soft-only rejected", func(t *testing.T) {
		_, err := models.NewPriorities(models.TierLists{
			High: []models.Condition{models.ConditionHobby},
		})
		assert.ErrorIs(t, err, models.ErrSoftOnlyCondition)
	})

	t.Run("unknown rejected", func(t *testing.T) {
		_, err := models.NewPriorities(models.TierLists{
			Low: []models.Condition{"SHOE_SIZE"},
		})
		assert.ErrorIs(t, err, models.ErrUnknownCondition)
	})
}

func TestPriorities_JSON(t *testing.T) {
	var p models.Priorities
	err := json.Unmarshal([]byte(`{"deal_breakers":["AGE"],"high":["HEIGHT","AGE"]}`), &p)
	assert.ErrorIs(t, err, models.ErrOverlappingTiers)

	err = json.Unmarshal([]byte(`{"deal_breakers":["PET_OK","AGE"],"low":["HEIGHT"]}`), &p)
	require.NoError(t, err)
	lists := p.Lists()
	assert.Equal(t, []models.Condition{models.ConditionAge, models.ConditionPetOK}, lists.DealBreakers,
		"lists come back in catalog order")
	assert.Equal(t, []models.Condition{models.ConditionHeight}, lists.Low)
}

func TestNewSearchIdealType(t *testing.T) {
	minHeight := 170
	req := models.Requirements{
		MinHeight:         &minHeight,
		MinEducationLevel: models.EducationBachelor,
	}

	it, err := models.NewSearchIdealType(req, models.TierLists{
		High: []models.Condition{models.ConditionMinIncome},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Condition{models.ConditionHeight, models.ConditionEducationLevel}, it.Priorities.DealBreakers())
	assert.Equal(t, []models.Condition{models.ConditionMinIncome}, it.Priorities.InTier(models.TierHigh))

	_, err = models.NewSearchIdealType(req, models.TierLists{
		Low: []models.Condition{models.ConditionHeight},
	})
	assert.ErrorIs(t, err, models.ErrOverlappingTiers, "a set requirement cannot also be ranked")
}

func TestRequirements_Validate(t *testing.T) {
	assert.NoError(t, (&models.Requirements{}).Validate())

	err := (&models.Requirements{MinIncome: "a_lot"}).Validate()
	assert.ErrorIs(t, err, models.ErrValidation)

	err = (&models.Requirements{PreferredReligions: []models.Religion{"jedi"}}).Validate()
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTier_Weight(t *testing.T) {
	assert.Equal(t, 3, models.TierHigh.Weight())
	assert.Equal(t, 2, models.TierMedium.Weight())
	assert.Equal(t, 1, models.TierLow.Weight())
	assert.Equal(t, 0, models.TierDealBreaker.Weight())
}
