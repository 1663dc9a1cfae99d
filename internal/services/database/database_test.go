package database_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/services/database"
)

var testDB *database.DB

func TestMain(m *testing.M) {
	url := os.Getenv("DATABASE_URL")
	if url != "" {
		var err error
		testDB, err = database.NewFromURL(url)
		if err != nil {
			panic("Failed to connect to test database: " + err.Error())
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := testDB.Migrate(ctx); err != nil {
			cancel()
			panic("Failed to migrate test database: " + err.Error())
		}
		cancel()
	}

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("DATABASE_URL not set")
	}
}

func TestErrorClassifiers(t *testing.T) {
	serialization := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	assert.True(t, database.IsRetryable(serialization))
	assert.True(t, database.IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, database.IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, database.IsRetryable(fmt.Errorf("plain")))

	assert.True(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, database.IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
}

func TestMigrations_Ordered(t *testing.T) {
	migrations := database.Migrations()
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, m.Name)
		assert.NotEmpty(t, m.UpSQL)
	}
}

func createMember(t *testing.T, repo *database.MemberRepository, category models.Category) *models.Member {
	t.Helper()
	m := &models.Member{
		Name:     fmt.Sprintf("Test %s %d", category, time.Now().UnixNano()),
		Category: category,
		Status:   models.MemberStatusActive,
		Height:   intPtr(175),
	}
	require.NoError(t, repo.Create(context.Background(), m))
	require.NotZero(t, m.ID)
	return m
}

func intPtr(v int) *int { return &v }

func TestMemberRepository_CRUD(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := database.NewMemberRepository(testDB)

	m := createMember(t, repo, models.CategoryA)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	require.NotNil(t, got.Height)
	assert.Equal(t, 175, *got.Height)

	email := "updated@example.com"
	updated, err := repo.Update(ctx, m.ID, &models.MemberUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)

	it, err := models.NewIdealType(m.ID, models.Requirements{MinHeight: intPtr(170)},
		models.TierLists{DealBreakers: []models.Condition{models.ConditionHeight}}, models.SoftPreferences{})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertIdealType(ctx, it))

	profile, err := repo.GetProfile(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.IdealType)
	assert.Equal(t, []models.Condition{models.ConditionHeight}, profile.IdealType.Priorities.DealBreakers())

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCandidatePool_ExcludesLinkedMembers(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	members := database.NewMemberRepository(testDB)
	mutual := database.NewMutualMatchRepository(testDB)

	requester := createMember(t, members, models.CategoryA)
	linked := createMember(t, members, models.CategoryB)
	free := createMember(t, members, models.CategoryB)

	m, err := models.NewMutualMatch(requester.ID, linked.ID, "")
	require.NoError(t, err)
	require.NoError(t, mutual.Create(ctx, m))

	pool, err := members.FindCandidatePool(ctx, models.PoolQuery{Requester: requester, ExcludeMatched: true})
	require.NoError(t, err)
	ids := make([]int64, 0, len(pool))
	for _, p := range pool {
		ids = append(ids, p.ID)
		assert.Equal(t, models.CategoryB, p.Category)
	}
	assert.Contains(t, ids, free.ID)
	assert.NotContains(t, ids, linked.ID)
	assert.NotContains(t, ids, requester.ID)
}

func TestMutualMatchRepository_ConcurrentResponses(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	members := database.NewMemberRepository(testDB)
	repo := database.NewMutualMatchRepository(testDB)

	a := createMember(t, members, models.CategoryA)
	b := createMember(t, members, models.CategoryB)

	m, err := models.NewMutualMatch(a.ID, b.ID, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, m))

	_, err = repo.UpdateMembership(ctx, m.ID, func(m *models.MutualMatch) error {
		return m.Dispatch(time.Now().UTC())
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []int64{a.ID, b.ID} {
		wg.Add(1)
		go func(memberID int64) {
			defer wg.Done()
			_, err := repo.UpdateMembership(ctx, m.ID, func(m *models.MutualMatch) error {
				_, err := m.Respond(memberID, models.OutcomeAccept)
				return err
			})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusAccepted, got.Status)
	assert.Empty(t, got.PendingMembers())

	list, err := repo.FindByMember(ctx, a.ID, models.MatchFilter{Statuses: []models.MatchStatus{models.MatchStatusAccepted}})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, m.ID, list[0].ID)

	require.NoError(t, repo.Delete(ctx, m.ID))
	assert.ErrorIs(t, repo.Delete(ctx, m.ID), models.ErrNotFound)
}

func TestSequentialMatchRepository_Flow(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	members := database.NewMemberRepository(testDB)
	repo := database.NewSequentialMatchRepository(testDB)

	sender := createMember(t, members, models.CategoryA)
	receiver := createMember(t, members, models.CategoryB)

	m, err := models.NewSequentialMatch(sender.ID, receiver.ID, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, m))

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = repo.UpdateMembership(ctx, m.ID, func(m *models.SequentialMatch) error {
		if err := m.SendToReceiver(now); err != nil {
			return err
		}
		return m.RespondAsReceiver(models.OutcomeAccept, now)
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SenderStatus)
	assert.Equal(t, models.ResponsePending, *got.SenderStatus)
	require.NotNil(t, got.SentToSenderAt)
	assert.True(t, now.Equal(*got.SentToSenderAt))

	require.NoError(t, repo.UpdateStatus(ctx, m.ID, models.MatchStatusBrokenUp))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, -1, models.MatchStatusBrokenUp), models.ErrNotFound)

	list, err := repo.FindByMember(ctx, receiver.ID, models.MatchFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.MatchStatusBrokenUp, list[0].Status)
}

func TestFindByMember_FiltersBeforeLimit(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	members := database.NewMemberRepository(testDB)
	mutual := database.NewMutualMatchRepository(testDB)
	sequential := database.NewSequentialMatchRepository(testDB)

	a := createMember(t, members, models.CategoryA)
	var mutualIDs, seqIDs []int64
	for i := 0; i < 3; i++ {
		b := createMember(t, members, models.CategoryB)
		m, err := models.NewMutualMatch(a.ID, b.ID, "")
		require.NoError(t, err)
		require.NoError(t, mutual.Create(ctx, m))
		mutualIDs = append(mutualIDs, m.ID)

		s, err := models.NewSequentialMatch(a.ID, b.ID, "")
		require.NoError(t, err)
		require.NoError(t, sequential.Create(ctx, s))
		seqIDs = append(seqIDs, s.ID)
	}

	_, err := mutual.UpdateMembership(ctx, mutualIDs[0], func(m *models.MutualMatch) error {
		return m.Dispatch(time.Now().UTC())
	})
	require.NoError(t, err)

	pending := models.MatchFilter{Statuses: []models.MatchStatus{models.MatchStatusPending}, Limit: 1}
	list, err := mutual.FindByMember(ctx, a.ID, pending)
	require.NoError(t, err)
	require.Len(t, list, 1, "newer backlog matches do not use up the limit")
	assert.Equal(t, mutualIDs[0], list[0].ID)

	list, err = mutual.FindByMember(ctx, a.ID, models.MatchFilter{PendingOnly: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mutualIDs[0], list[0].ID)

	// a is the sender: nothing awaits a until its receiver accepts.
	_, err = sequential.UpdateMembership(ctx, seqIDs[0], func(m *models.SequentialMatch) error {
		now := time.Now().UTC()
		if err := m.SendToReceiver(now); err != nil {
			return err
		}
		return m.RespondAsReceiver(models.OutcomeAccept, now)
	})
	require.NoError(t, err)
	_, err = sequential.UpdateMembership(ctx, seqIDs[1], func(m *models.SequentialMatch) error {
		return m.SendToReceiver(time.Now().UTC())
	})
	require.NoError(t, err)

	seqList, err := sequential.FindByMember(ctx, a.ID, models.MatchFilter{PendingOnly: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, seqList, 1)
	assert.Equal(t, seqIDs[0], seqList[0].ID)

	seqList, err = sequential.FindByMember(ctx, a.ID, pending)
	require.NoError(t, err)
	require.Len(t, seqList, 1)
	assert.Equal(t, seqIDs[1], seqList[0].ID, "newest pending match first")
}
