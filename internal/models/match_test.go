package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchmaking-engine/internal/models"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func dispatchedMutual(t *testing.T) *models.MutualMatch {
	t.Helper()
	m, err := models.NewMutualMatch(1, 2, "")
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusBacklog, m.Status)
	require.NoError(t, m.Dispatch(t0))
	return m
}

func TestNewMutualMatch(t *testing.T) {
	_, err := models.NewMutualMatch(1, 1, "")
	assert.ErrorIs(t, err, models.ErrSameMember)

	_, err = models.NewMutualMatch(1, 2, models.MatchStatusAccepted)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)

	m, err := models.NewMutualMatch(2, 1, models.MatchStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, m.MemberIDs())
	assert.Equal(t, []int64{1, 2}, m.PendingMembers())
}

func TestMutualMatch_Dispatch(t *testing.T) {
	m := dispatchedMutual(t)
	assert.Equal(t, models.MatchStatusPending, m.Status)
	require.NotNil(t, m.SentAt)
	assert.Equal(t, t0, *m.SentAt)

	err := m.Dispatch(t0)
	assert.ErrorIs(t, err, models.ErrIllegalTransition, "only drafts can be dispatched")
}

func TestMutualMatch_Respond(t *testing.T) {
	t.Run("both accept", func(t *testing.T) {
		m := dispatchedMutual(t)

		changed, err := m.Respond(1, models.OutcomeAccept)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, models.MatchStatusPending, m.Status, "status waits for the second answer")

		changed, err = m.Respond(2, models.OutcomeAccept)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.MatchStatusAccepted, m.Status)
	})

	t.Run("one reject", func(t *testing.T) {
		m := dispatchedMutual(t)

		_, err := m.Respond(1, models.OutcomeReject)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusPending, m.Status)

		_, err = m.Respond(2, models.OutcomeAccept)
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusRejected, m.Status)
		assert.Equal(t, []int64{1}, m.RejectedBy())
		assert.Equal(t, []int64{2}, m.AcceptedBy())
	})

	t.Run("answer twice", func(t *testing.T) {
		m := dispatchedMutual(t)
		_, err := m.Respond(1, models.OutcomeAccept)
		require.NoError(t, err)

		_, err = m.Respond(1, models.OutcomeReject)
		assert.ErrorIs(t, err, models.ErrAlreadyResponded)
	})

	t.Run("stranger", func(t *testing.T) {
		m := dispatchedMutual(t)
		_, err := m.Respond(3, models.OutcomeAccept)
		assert.ErrorIs(t, err, models.ErrNotAMember)
	})

	t.Run("not dispatched", func(t *testing.T) {
		m, err := models.NewMutualMatch(1, 2, "")
		require.NoError(t, err)
		_, err = m.Respond(1, models.OutcomeAccept)
		assert.ErrorIs(t, err, models.ErrIllegalTransition)
	})

	t.Run("bad outcome", func(t *testing.T) {
		m := dispatchedMutual(t)
		_, err := m.Respond(1, models.Outcome("maybe"))
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestMutualMatch_ForceStatus(t *testing.T) {
	m := dispatchedMutual(t)
	_, err := m.Respond(1, models.OutcomeAccept)
	require.NoError(t, err)

	require.NoError(t, m.ForceStatus(models.MatchStatusBrokenUp))
	assert.Equal(t, models.MatchStatusBrokenUp, m.Status)
	assert.Equal(t, models.ResponseAccepted, m.Responses[1], "responses survive an override")

	assert.ErrorIs(t, m.ForceStatus(models.MatchStatusAccepted), models.ErrIllegalTransition)
}

func TestMutualMatch_Expiry(t *testing.T) {
	m := dispatchedMutual(t)
	window := 48 * time.Hour

	assert.Equal(t, 48, m.RemainingHours(t0, window))
	assert.Equal(t, 47, m.RemainingHours(t0.Add(30*time.Minute), window), "partial hours round down")
	assert.False(t, m.IsExpired(t0.Add(47*time.Hour), window))

	assert.Equal(t, 0, m.RemainingHours(t0.Add(49*time.Hour), window), "clamped at zero")
	assert.True(t, m.IsExpired(t0.Add(48*time.Hour), window))
	assert.Equal(t, models.MatchStatusPending, m.Status, "expiry is read-side only")
}

func TestRemainingHours_Undispatched(t *testing.T) {
	assert.Equal(t, 0, models.RemainingHours(nil, time.Hour, t0))
}

func TestSequentialMatch_ReceiverAcceptsThenSender(t *testing.T) {
	m, err := models.NewSequentialMatch(10, 20, "")
	require.NoError(t, err)
	assert.Nil(t, m.SenderStatus)
	assert.Nil(t, m.ReceiverStatus)

	require.NoError(t, m.SendToReceiver(t0))
	assert.Equal(t, models.MatchStatusPending, m.Status)
	require.NotNil(t, m.ReceiverStatus)
	assert.Equal(t, models.ResponsePending, *m.ReceiverStatus)

	_, err = m.Respond(10, models.OutcomeAccept, t0)
	assert.ErrorIs(t, err, models.ErrNotDispatched, "sender cannot answer before initiation")

	later := t0.Add(2 * time.Hour)
	role, err := m.Respond(20, models.OutcomeAccept, later)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReceiver, role)
	require.NotNil(t, m.SentToSenderAt)
	assert.Equal(t, later, *m.SentToSenderAt)
	assert.Equal(t, models.ResponsePending, *m.SenderStatus)
	assert.Equal(t, models.MatchStatusPending, m.Status)

	awaiting, ok := m.AwaitingRole()
	require.True(t, ok)
	assert.Equal(t, models.RoleSender, awaiting)

	role, err = m.Respond(10, models.OutcomeAccept, later)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSender, role)
	assert.Equal(t, models.MatchStatusAccepted, m.Status)
}

func TestSequentialMatch_ReceiverRejects(t *testing.T) {
	m, err := models.NewSequentialMatch(10, 20, models.MatchStatusPreparing)
	require.NoError(t, err)
	require.NoError(t, m.SendToReceiver(t0))

	_, err = m.Respond(20, models.OutcomeReject, t0)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusRejected, m.Status)
	assert.Nil(t, m.SenderStatus, "sender is never dispatched")
	assert.Nil(t, m.SentToSenderAt)

	assert.ErrorIs(t, m.InitiateSender(t0), models.ErrIllegalTransition)
}

func TestSequentialMatch_SenderRejects(t *testing.T) {
	m, err := models.NewSequentialMatch(10, 20, "")
	require.NoError(t, err)
	require.NoError(t, m.SendToReceiver(t0))
	_, err = m.Respond(20, models.OutcomeAccept, t0)
	require.NoError(t, err)

	_, err = m.Respond(10, models.OutcomeReject, t0)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusRejected, m.Status)
	assert.Equal(t, models.ResponseAccepted, *m.ReceiverStatus)
	assert.Equal(t, models.ResponseRejected, *m.SenderStatus)
}

func TestSequentialMatch_Windows(t *testing.T) {
	receiverWindow, senderWindow := 24*time.Hour, 72*time.Hour

	m, err := models.NewSequentialMatch(10, 20, "")
	require.NoError(t, err)
	assert.Equal(t, 0, m.RemainingHours(t0, receiverWindow, senderWindow))

	require.NoError(t, m.SendToReceiver(t0))
	assert.Equal(t, 24, m.RemainingHours(t0, receiverWindow, senderWindow))
	assert.True(t, m.IsExpired(t0.Add(25*time.Hour), receiverWindow, senderWindow))

	_, err = m.Respond(20, models.OutcomeAccept, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 72, m.RemainingHours(t0.Add(time.Hour), receiverWindow, senderWindow),
		"sender window starts at initiation")
	assert.False(t, m.IsExpired(t0.Add(25*time.Hour), receiverWindow, senderWindow))
}

func TestSequentialMatch_RespondErrors(t *testing.T) {
	m, err := models.NewSequentialMatch(10, 20, "")
	require.NoError(t, err)

	_, err = m.Respond(30, models.OutcomeAccept, t0)
	assert.ErrorIs(t, err, models.ErrNotAMember)

	_, err = m.Respond(20, models.OutcomeAccept, t0)
	assert.ErrorIs(t, err, models.ErrNotDispatched)
	assert.ErrorIs(t, err, models.ErrPreconditionFailed)

	require.NoError(t, m.SendToReceiver(t0))
	assert.ErrorIs(t, m.SendToReceiver(t0), models.ErrIllegalTransition)

	_, err = m.Respond(20, models.OutcomeReject, t0)
	require.NoError(t, err)
	_, err = m.Respond(20, models.OutcomeAccept, t0)
	assert.ErrorIs(t, err, models.ErrAlreadyResponded)
}

func TestSequentialMatch_ResendAfterForce(t *testing.T) {
	m, err := models.NewSequentialMatch(10, 20, "")
	require.NoError(t, err)
	require.NoError(t, m.SendToReceiver(t0))
	_, err = m.Respond(20, models.OutcomeAccept, t0)
	require.NoError(t, err)
	require.NotNil(t, m.SentToSenderAt)

	require.NoError(t, m.ForceStatus(models.MatchStatusBacklog))
	resent := t0.Add(24 * time.Hour)
	require.NoError(t, m.SendToReceiver(resent))

	assert.Nil(t, m.SenderStatus, "sender dispatch is withdrawn")
	assert.Nil(t, m.SentToSenderAt)
	assert.Equal(t, models.ResponsePending, *m.ReceiverStatus)
	awaiting, ok := m.AwaitingRole()
	require.True(t, ok)
	assert.Equal(t, models.RoleReceiver, awaiting)

	_, err = m.Respond(10, models.OutcomeAccept, resent)
	assert.ErrorIs(t, err, models.ErrNotDispatched)
	assert.Equal(t, models.MatchStatusPending, m.Status)

	later := resent.Add(time.Hour)
	_, err = m.Respond(20, models.OutcomeAccept, later)
	require.NoError(t, err)
	require.NotNil(t, m.SentToSenderAt)
	assert.Equal(t, later, *m.SentToSenderAt)

	_, err = m.Respond(10, models.OutcomeAccept, later)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusAccepted, m.Status)
}

func TestSequentialMatch_SenderWaitsForReceiver(t *testing.T) {
	pending := models.ResponsePending
	sent := t0
	m := &models.SequentialMatch{
		SenderID:         10,
		ReceiverID:       20,
		SenderStatus:     &pending,
		ReceiverStatus:   &pending,
		SentToSenderAt:   &sent,
		SentToReceiverAt: &sent,
		Status:           models.MatchStatusPending,
	}

	_, err := m.Respond(10, models.OutcomeAccept, t0)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	assert.Equal(t, models.ResponsePending, *m.SenderStatus)
	assert.Equal(t, models.MatchStatusPending, m.Status)

	_, err = m.Respond(20, models.OutcomeAccept, t0)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	assert.Equal(t, models.ResponsePending, *m.ReceiverStatus, "failed accept leaves the receiver untouched")
}

func TestMatchEvent_RoutingKey(t *testing.T) {
	e := models.NewMatchEvent(models.EventSenderInitiated, models.MatchKindSequential, 7,
		models.MatchStatusPending, []int64{1, 2}, []int64{1}, t0)
	assert.Equal(t, "match.sequential.sender_initiated", e.RoutingKey())
	assert.NotEmpty(t, e.EventID)
}

func TestMatchFilter_Allows(t *testing.T) {
	assert.True(t, models.MatchFilter{}.Allows(models.MatchStatusBacklog))

	f := models.MatchFilter{Statuses: []models.MatchStatus{models.MatchStatusPending}}
	assert.True(t, f.Allows(models.MatchStatusPending))
	assert.False(t, f.Allows(models.MatchStatusAccepted))
}

func TestMatchFilter_PendingOnly(t *testing.T) {
	f := models.MatchFilter{PendingOnly: true}

	mutual := dispatchedMutual(t)
	assert.True(t, f.MatchesMutual(mutual, 1))
	_, err := mutual.Respond(1, models.OutcomeAccept)
	require.NoError(t, err)
	assert.False(t, f.MatchesMutual(mutual, 1))
	assert.True(t, f.MatchesMutual(mutual, 2))
	assert.False(t, f.MatchesMutual(mutual, 3), "strangers never match")

	seq, err := models.NewSequentialMatch(10, 20, "")
	require.NoError(t, err)
	assert.False(t, f.MatchesSequential(seq, 20))
	assert.True(t, models.MatchFilter{}.MatchesSequential(seq, 20))

	require.NoError(t, seq.SendToReceiver(t0))
	assert.True(t, f.MatchesSequential(seq, 20))
	assert.False(t, f.MatchesSequential(seq, 10))

	_, err = seq.Respond(20, models.OutcomeAccept, t0)
	require.NoError(t, err)
	assert.False(t, f.MatchesSequential(seq, 20))
	assert.True(t, f.MatchesSequential(seq, 10))

	assert.Equal(t, []string{"PENDING"},
		models.MatchFilter{Statuses: []models.MatchStatus{models.MatchStatusPending}}.StatusStrings())
}
