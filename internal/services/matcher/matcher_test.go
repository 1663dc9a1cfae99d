package matcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/services/matcher"
	"matchmaking-engine/internal/services/memory"
)

type fakeCache struct {
	entries     map[string]*matcher.Selection
	invalidated []int64
	generation  int64
	gets        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*matcher.Selection)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*matcher.Selection, bool, error) {
	c.gets++
	sel, ok := c.entries[key]
	return sel, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, sel *matcher.Selection) error {
	c.entries[key] = sel
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, memberID int64) error {
	c.invalidated = append(c.invalidated, memberID)
	return nil
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	return c.generation, nil
}

func (c *fakeCache) BumpGeneration(context.Context) error {
	c.generation++
	return nil
}

// seed stores a requester with a height deal-breaker and three candidates.
func seed(t *testing.T, store *memory.Store) (requester, tall int64) {
	t.Helper()
	ctx := context.Background()

	r := mockMember(0, models.CategoryA)
	require.NoError(t, store.Create(ctx, r))

	it := dealBreakerIdeal(t, models.Requirements{MinHeight: intPtr(180)})
	it.MemberID = r.ID
	require.NoError(t, store.UpsertIdealType(ctx, it))

	tallMember := mockMember(0, models.CategoryB)
	tallMember.Height = intPtr(185)
	require.NoError(t, store.Create(ctx, tallMember))

	short := mockMember(0, models.CategoryB)
	require.NoError(t, store.Create(ctx, short))

	same := mockMember(0, models.CategoryA)
	same.Height = intPtr(190)
	require.NoError(t, store.Create(ctx, same))

	return r.ID, tallMember.ID
}

func TestMatcherService_SelectCandidates(t *testing.T) {
	store := memory.NewStore()
	requester, tall := seed(t, store)
	svc := matcher.NewMatcherService(store, nil)

	sel, err := svc.SelectCandidates(context.Background(), requester, matcher.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{tall}, sel.CandidateIDs())
	assert.Equal(t, 2, sel.Stats.PoolSize, "same-category members never enter the pool")
}

func TestMatcherService_ExcludesExistingMatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester, tall := seed(t, store)

	m, err := models.NewMutualMatch(requester, tall, "")
	require.NoError(t, err)
	require.NoError(t, store.Mutual().Create(ctx, m))

	sel, err := matcher.NewMatcherService(store, nil).SelectCandidates(ctx, requester, matcher.Options{})
	require.NoError(t, err)
	assert.Empty(t, sel.Candidates)
}

func TestMatcherService_MissingIdealType(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := mockMember(0, models.CategoryA)
	require.NoError(t, store.Create(ctx, m))

	_, err := matcher.NewMatcherService(store, nil).SelectCandidates(ctx, m.ID, matcher.Options{})
	assert.ErrorIs(t, err, models.ErrMissingIdealType)

	_, err = matcher.NewMatcherService(store, nil).SelectCandidates(ctx, 999, matcher.Options{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMatcherService_Cache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester, _ := seed(t, store)
	cache := newFakeCache()
	svc := matcher.NewMatcherService(store, cache)

	first, err := svc.SelectCandidates(ctx, requester, matcher.Options{CrossCheck: true})
	require.NoError(t, err)
	assert.Contains(t, cache.entries, matcher.CacheKey(requester, 0, matcher.Options{CrossCheck: true}))

	second, err := svc.SelectCandidates(ctx, requester, matcher.Options{CrossCheck: true})
	require.NoError(t, err)
	assert.Same(t, first, second, "second call is served from the cache")

	override, err := models.NewSearchIdealType(models.Requirements{}, models.TierLists{})
	require.NoError(t, err)
	_, err = svc.SelectCandidates(ctx, requester, matcher.Options{Override: override})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.gets, "override searches bypass the cache")

	svc.Invalidate(ctx, requester)
	assert.Equal(t, []int64{requester}, cache.invalidated)
}

func TestMatcherService_Explain(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester, tall := seed(t, store)
	svc := matcher.NewMatcherService(store, nil)

	exp, err := svc.Explain(ctx, requester, tall)
	require.NoError(t, err)
	assert.True(t, exp.DealBreaker.Passed)
	assert.True(t, exp.Reciprocal)
	assert.True(t, exp.MeetsAll)
	assert.Equal(t, 0, exp.Score)

	exp, err = svc.Explain(ctx, requester, tall+1)
	require.NoError(t, err)
	assert.False(t, exp.DealBreaker.Passed)
	assert.Equal(t, []models.Condition{models.ConditionHeight}, exp.DealBreaker.Failed())
	assert.False(t, exp.MeetsAll)
}

func TestMatcherService_ExplainRankedRequirements(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester, tall := seed(t, store)
	svc := matcher.NewMatcherService(store, nil)

	it, err := models.NewIdealType(requester, models.Requirements{
		MinHeight:         intPtr(180),
		MinEducationLevel: models.EducationDoctorate,
	}, models.TierLists{
		DealBreakers: []models.Condition{models.ConditionHeight},
		High:         []models.Condition{models.ConditionEducationLevel},
	}, models.SoftPreferences{})
	require.NoError(t, err)
	require.NoError(t, store.UpsertIdealType(ctx, it))

	exp, err := svc.Explain(ctx, requester, tall)
	require.NoError(t, err)
	assert.True(t, exp.DealBreaker.Passed)
	assert.False(t, exp.MeetsAll, "a missed ranked requirement keeps the candidate but is reported")
	assert.Equal(t, 0, exp.Score)
	require.Len(t, exp.Components, 1)
	assert.Equal(t, models.ConditionEducationLevel, exp.Components[0].Condition)
	assert.False(t, exp.Components[0].Satisfied)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "candidates:42:g3:cross=true:limit=5", matcher.CacheKey(42, 3, matcher.Options{CrossCheck: true, Limit: 5}))
}

func TestMatcherService_CandidateChangesRetireCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	requester, tall := seed(t, store)
	cache := newFakeCache()
	svc := matcher.NewMatcherService(store, cache)

	sel, err := svc.SelectCandidates(ctx, requester, matcher.Options{})
	require.NoError(t, err)
	require.Equal(t, []int64{tall}, sel.CandidateIDs())

	_, err = store.Update(ctx, tall, &models.MemberUpdate{BlacklistedMemberIDs: []int64{requester}})
	require.NoError(t, err)
	svc.MemberChanged(ctx, tall)

	sel, err = svc.SelectCandidates(ctx, requester, matcher.Options{})
	require.NoError(t, err)
	assert.Empty(t, sel.CandidateIDs(), "a candidate blocking the requester leaves the cached list")

	_, err = store.Update(ctx, tall, &models.MemberUpdate{BlacklistedMemberIDs: []int64{}})
	require.NoError(t, err)
	svc.MemberChanged(ctx, tall)
	sel, err = svc.SelectCandidates(ctx, requester, matcher.Options{})
	require.NoError(t, err)
	require.Equal(t, []int64{tall}, sel.CandidateIDs())

	dormant := models.MemberStatusDormant
	_, err = store.Update(ctx, tall, &models.MemberUpdate{Status: &dormant})
	require.NoError(t, err)
	svc.MemberChanged(ctx, tall)

	sel, err = svc.SelectCandidates(ctx, requester, matcher.Options{})
	require.NoError(t, err)
	assert.Empty(t, sel.CandidateIDs(), "dormant members leave the cached list")
	assert.Equal(t, int64(3), cache.generation)
}
