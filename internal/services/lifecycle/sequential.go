package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// SequentialService orchestrates sequential ("megaphone") matches.
type SequentialService struct {
	hooks
	members MemberStore
	matches SequentialMatchStore
	windows Windows
}

// NewSequentialService creates a sequential match service.
func NewSequentialService(members MemberStore, matches SequentialMatchStore, notifier Notifier, clock Clock, windows Windows) *SequentialService {
	return &SequentialService{
		hooks:   newHooks(notifier, clock),
		members: members,
		matches: matches,
		windows: windows,
	}
}

// Create stores a new draft match with no role dispatched.
func (s *SequentialService) Create(ctx context.Context, senderID, receiverID int64, initial models.MatchStatus) (*models.SequentialMatch, error) {
	m, err := models.NewSequentialMatch(senderID, receiverID, initial)
	if err != nil {
		return nil, err
	}
	for _, id := range []int64{senderID, receiverID} {
		if _, err := s.members.GetProfile(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to resolve member %d: %w", id, err)
		}
	}

	if err := s.matches.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create sequential match: %w", err)
	}

	utils.Logger.Info("Sequential match created",
		zap.Int64("match_id", m.ID),
		zap.Int64("sender_id", senderID),
		zap.Int64("receiver_id", receiverID),
	)

	s.invalidate(ctx, senderID, receiverID)
	return m, nil
}

// Get returns a match by id.
func (s *SequentialService) Get(ctx context.Context, id int64) (*models.SequentialMatch, error) {
	return s.matches.GetByID(ctx, id)
}

// SendToReceiver dispatches the proposal to the receiver.
func (s *SequentialService) SendToReceiver(ctx context.Context, id int64) (*models.SequentialMatch, error) {
	now := s.clock.Now()
	m, err := s.matches.UpdateMembership(ctx, id, func(m *models.SequentialMatch) error {
		return m.SendToReceiver(now)
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("Sequential match sent to receiver",
		zap.Int64("match_id", id),
		zap.Int64("receiver_id", m.ReceiverID),
	)

	s.notify(ctx, models.NewMatchEvent(models.EventProposalDispatched, models.MatchKindSequential,
		m.ID, m.Status, s.memberIDs(m), []int64{m.ReceiverID}, now))
	return m, nil
}

// Respond records the answer of whichever role memberID plays.
//
// A receiver accept dispatches the sender in the same write; a receiver reject
// closes the match and the sender is never approached.
func (s *SequentialService) Respond(ctx context.Context, id, memberID int64, outcome models.Outcome) (*models.SequentialMatch, error) {
	now := s.clock.Now()
	var role models.Role
	m, err := s.matches.UpdateMembership(ctx, id, func(m *models.SequentialMatch) error {
		var err error
		role, err = m.Respond(memberID, outcome, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("Sequential match response recorded",
		zap.Int64("match_id", id),
		zap.String("role", string(role)),
		zap.String("outcome", string(outcome)),
		zap.String("status", string(m.Status)),
	)

	members := s.memberIDs(m)
	switch {
	case role == models.RoleReceiver && outcome == models.OutcomeAccept:
		s.notify(ctx, models.NewMatchEvent(models.EventSenderInitiated, models.MatchKindSequential,
			m.ID, m.Status, members, []int64{m.SenderID}, now))
	case m.Status == models.MatchStatusAccepted:
		s.notify(ctx, models.NewMatchEvent(models.EventMatchAccepted, models.MatchKindSequential,
			m.ID, m.Status, members, members, now))
	case m.Status == models.MatchStatusRejected:
		// A receiver reject is only reported to the receiver; the sender never saw the proposal.
		recipients := members
		if role == models.RoleReceiver {
			recipients = []int64{m.ReceiverID}
		}
		s.notify(ctx, models.NewMatchEvent(models.EventMatchRejected, models.MatchKindSequential,
			m.ID, m.Status, members, recipients, now))
	}
	return m, nil
}

// ForceStatus applies an operator status override.
func (s *SequentialService) ForceStatus(ctx context.Context, id int64, status models.MatchStatus) error {
	if !status.IsAdministrative() {
		return fmt.Errorf("%w: status %s cannot be forced", models.ErrIllegalTransition, status)
	}
	if err := s.matches.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	utils.Logger.Info("Sequential match status forced",
		zap.Int64("match_id", id),
		zap.String("status", string(status)),
	)
	return nil
}

// Delete removes a match.
func (s *SequentialService) Delete(ctx context.Context, id int64) error {
	if err := s.matches.Delete(ctx, id); err != nil {
		return err
	}
	utils.Logger.Info("Sequential match deleted", zap.Int64("match_id", id))
	return nil
}

// ListForMember returns the member's sequential matches. Remaining hours and
// expiry follow the window of the role currently awaited.
func (s *SequentialService) ListForMember(ctx context.Context, memberID int64, filter models.MatchFilter) ([]models.MatchView, error) {
	matches, err := s.matches.FindByMember(ctx, memberID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequential matches: %w", err)
	}

	now := s.clock.Now()
	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		role, _ := m.RoleOf(memberID)
		var mine models.ResponseStatus
		if st := m.StatusOf(role); st != nil {
			mine = *st
		}
		other, _ := m.Other(memberID)
		views = append(views, models.MatchView{
			Kind:           models.MatchKindSequential,
			MatchID:        m.ID,
			CounterpartID:  other,
			Status:         m.Status,
			MyResponse:     mine,
			RemainingHours: m.RemainingHours(now, s.windows.Receiver, s.windows.Sender),
			Expired:        m.IsExpired(now, s.windows.Receiver, s.windows.Sender),
		})
	}
	return views, nil
}

func (s *SequentialService) memberIDs(m *models.SequentialMatch) []int64 {
	return []int64{m.SenderID, m.ReceiverID}
}
