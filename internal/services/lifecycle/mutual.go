package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// MutualService orchestrates mutual matches.
type MutualService struct {
	hooks
	members MemberStore
	matches MutualMatchStore
	window  time.Duration
}

// NewMutualService creates a mutual match service. A nil notifier or clock
// falls back to NopNotifier and SystemClock.
func NewMutualService(members MemberStore, matches MutualMatchStore, notifier Notifier, clock Clock, window time.Duration) *MutualService {
	return &MutualService{
		hooks:   newHooks(notifier, clock),
		members: members,
		matches: matches,
		window:  window,
	}
}

// Create stores a new draft match between two existing members.
func (s *MutualService) Create(ctx context.Context, memberA, memberB int64, initial models.MatchStatus) (*models.MutualMatch, error) {
	m, err := models.NewMutualMatch(memberA, memberB, initial)
	if err != nil {
		return nil, err
	}
	for _, id := range []int64{memberA, memberB} {
		if _, err := s.members.GetProfile(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to resolve member %d: %w", id, err)
		}
	}

	if err := s.matches.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create mutual match: %w", err)
	}

	utils.Logger.Info("Mutual match created",
		zap.Int64("match_id", m.ID),
		zap.Int64s("member_ids", m.MemberIDs()),
		zap.String("status", string(m.Status)),
	)

	s.invalidate(ctx, memberA, memberB)
	return m, nil
}

// Get returns a match by id.
func (s *MutualService) Get(ctx context.Context, id int64) (*models.MutualMatch, error) {
	return s.matches.GetByID(ctx, id)
}

// Dispatch sends a draft match to both members. Both profiles must resolve.
func (s *MutualService) Dispatch(ctx context.Context, id int64) (*models.MutualMatch, error) {
	current, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := current.MemberIDs()
	if len(ids) != 2 {
		return nil, fmt.Errorf("match %d: %w", id, models.ErrIncompleteMatch)
	}
	for _, memberID := range ids {
		if _, err := s.members.GetProfile(ctx, memberID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("match %d member %d: %w", id, memberID, models.ErrIncompleteMatch)
			}
			return nil, fmt.Errorf("failed to resolve member %d: %w", memberID, err)
		}
	}

	now := s.clock.Now()
	m, err := s.matches.UpdateMembership(ctx, id, func(m *models.MutualMatch) error {
		return m.Dispatch(now)
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("Mutual match dispatched",
		zap.Int64("match_id", id),
		zap.Time("sent_at", now),
	)

	ids = m.MemberIDs()
	s.notify(ctx, models.NewMatchEvent(models.EventProposalDispatched, models.MatchKindMutual, m.ID, m.Status, ids, ids, now))
	return m, nil
}

// Respond records a member answer. The second answer settles the match and
// notifies both members.
func (s *MutualService) Respond(ctx context.Context, id, memberID int64, outcome models.Outcome) (*models.MutualMatch, error) {
	m, err := s.matches.UpdateMembership(ctx, id, func(m *models.MutualMatch) error {
		_, err := m.Respond(memberID, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("Mutual match response recorded",
		zap.Int64("match_id", id),
		zap.Int64("member_id", memberID),
		zap.String("outcome", string(outcome)),
		zap.String("status", string(m.Status)),
	)

	// This answer was the last one outstanding.
	if len(m.PendingMembers()) == 0 {
		eventType := models.EventMatchRejected
		if m.Status == models.MatchStatusAccepted {
			eventType = models.EventMatchAccepted
		}
		ids := m.MemberIDs()
		s.notify(ctx, models.NewMatchEvent(eventType, models.MatchKindMutual, m.ID, m.Status, ids, ids, s.clock.Now()))
	}
	return m, nil
}

// ForceStatus applies an operator status override.
func (s *MutualService) ForceStatus(ctx context.Context, id int64, status models.MatchStatus) error {
	if !status.IsAdministrative() {
		return fmt.Errorf("%w: status %s cannot be forced", models.ErrIllegalTransition, status)
	}
	if err := s.matches.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	utils.Logger.Info("Mutual match status forced",
		zap.Int64("match_id", id),
		zap.String("status", string(status)),
	)
	return nil
}

// Delete removes a match.
func (s *MutualService) Delete(ctx context.Context, id int64) error {
	if err := s.matches.Delete(ctx, id); err != nil {
		return err
	}
	utils.Logger.Info("Mutual match deleted", zap.Int64("match_id", id))
	return nil
}

// ListForMember returns the member's matches with remaining hours and expiry
// evaluated against the current time.
func (s *MutualService) ListForMember(ctx context.Context, memberID int64, filter models.MatchFilter) ([]models.MatchView, error) {
	matches, err := s.matches.FindByMember(ctx, memberID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutual matches: %w", err)
	}

	now := s.clock.Now()
	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		mine := m.Responses[memberID]
		other, _ := m.Other(memberID)
		views = append(views, models.MatchView{
			Kind:           models.MatchKindMutual,
			MatchID:        m.ID,
			CounterpartID:  other,
			Status:         m.Status,
			MyResponse:     mine,
			RemainingHours: m.RemainingHours(now, s.window),
			Expired:        m.IsExpired(now, s.window),
		})
	}
	return views, nil
}
