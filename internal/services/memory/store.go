// Package memory provides an in-process store used in demo mode and tests.
// It mirrors the contracts of the PostgreSQL repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"matchmaking-engine/internal/models"
)

type state struct {
	mu sync.RWMutex

	members    map[int64]*models.Member
	idealTypes map[int64]*models.IdealType
	mutual     map[int64]*models.MutualMatch
	sequential map[int64]*models.SequentialMatch

	nextMemberID     int64
	nextMutualID     int64
	nextSequentialID int64
}

// Store holds members and ideal types. Its Mutual and Sequential views share
// the same lock so pool exclusion sees every match.
type Store struct {
	*state
}

// MutualMatches is the mutual match view of a Store.
type MutualMatches struct {
	*state
}

// SequentialMatches is the sequential match view of a Store.
type SequentialMatches struct {
	*state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: &state{
		members:    make(map[int64]*models.Member),
		idealTypes: make(map[int64]*models.IdealType),
		mutual:     make(map[int64]*models.MutualMatch),
		sequential: make(map[int64]*models.SequentialMatch),
	}}
}

// Mutual returns the mutual match store.
func (s *Store) Mutual() *MutualMatches { return &MutualMatches{state: s.state} }

// Sequential returns the sequential match store.
func (s *Store) Sequential() *SequentialMatches { return &SequentialMatches{state: s.state} }

// Create validates and stores a member.
func (s *Store) Create(_ context.Context, m *models.Member) error {
	if err := models.ValidateMember(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(m)
	return nil
}

// BulkInsert stores every valid member and reports the rest.
func (s *Store) BulkInsert(_ context.Context, members []*models.Member) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{Errors: []string{}}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		if err := models.ValidateMember(m); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.Name, err))
			continue
		}
		s.insertLocked(m)
		result.InsertedCount++
	}
	return result, nil
}

func (s *state) insertLocked(m *models.Member) {
	s.nextMemberID++
	now := time.Now().UTC()
	m.ID = s.nextMemberID
	if m.Status == "" {
		m.Status = models.MemberStatusPendingReview
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	cp := *m
	s.members[m.ID] = &cp
}

// GetByID returns a copy of a member.
func (s *Store) GetByID(_ context.Context, id int64) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", id, models.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

// GetProfile returns a member with its ideal type.
func (s *Store) GetProfile(_ context.Context, id int64) (*models.MemberProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.members[id]; !ok {
		return nil, fmt.Errorf("member %d: %w", id, models.ErrNotFound)
	}
	return s.profileLocked(id), nil
}

func (s *state) profileLocked(id int64) *models.MemberProfile {
	p := &models.MemberProfile{Member: *s.members[id]}
	if it, ok := s.idealTypes[id]; ok {
		cp := *it
		p.IdealType = &cp
	}
	return p
}

// FindCandidatePool returns the requester's raw pool, newest first.
func (s *Store) FindCandidatePool(_ context.Context, q models.PoolQuery) ([]*models.MemberProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := q.Requester
	pool := lo.Filter(lo.Values(s.members), func(m *models.Member, _ int) bool {
		if !req.CanPairWith(m) {
			return false
		}
		return !q.ExcludeMatched || !s.linkedLocked(req.ID, m.ID)
	})
	sort.Slice(pool, func(i, j int) bool {
		if !pool[i].CreatedAt.Equal(pool[j].CreatedAt) {
			return pool[i].CreatedAt.After(pool[j].CreatedAt)
		}
		return pool[i].ID > pool[j].ID
	})
	if q.Limit > 0 && len(pool) > q.Limit {
		pool = pool[:q.Limit]
	}
	return lo.Map(pool, func(m *models.Member, _ int) *models.MemberProfile {
		return s.profileLocked(m.ID)
	}), nil
}

// linkedLocked reports whether any match of either kind joins a and b.
func (s *state) linkedLocked(a, b int64) bool {
	for _, m := range s.mutual {
		if m.HasMember(a) && m.HasMember(b) {
			return true
		}
	}
	for _, m := range s.sequential {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			return true
		}
	}
	return false
}

// Update applies a partial edit to a member.
func (s *Store) Update(_ context.Context, id int64, u *models.MemberUpdate) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", id, models.ErrNotFound)
	}
	cp := *m
	u.Apply(&cp)
	if err := models.ValidateMember(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	s.members[id] = &cp
	out := cp
	return &out, nil
}

// UpsertIdealType stores or replaces a member's ideal type.
func (s *Store) UpsertIdealType(_ context.Context, it *models.IdealType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[it.MemberID]; !ok {
		return fmt.Errorf("member %d: %w", it.MemberID, models.ErrNotFound)
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	s.idealTypes[it.MemberID] = &cp
	return nil
}

// CountByBatchID counts members imported in a batch.
func (s *Store) CountByBatchID(_ context.Context, batchID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.CountBy(lo.Values(s.members), func(m *models.Member) bool {
		return m.ImportBatchID == batchID
	}), nil
}

// Create stores a new mutual match.
func (s *MutualMatches) Create(_ context.Context, m *models.MutualMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range m.MemberIDs() {
		if _, ok := s.members[id]; !ok {
			return fmt.Errorf("member %d: %w", id, models.ErrNotFound)
		}
	}
	s.nextMutualID++
	now := time.Now().UTC()
	m.ID = s.nextMutualID
	m.CreatedAt, m.UpdatedAt = now, now
	s.mutual[m.ID] = cloneMutual(m)
	return nil
}

// GetByID returns a copy of a mutual match.
func (s *MutualMatches) GetByID(_ context.Context, id int64) (*models.MutualMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mutual[id]
	if !ok {
		return nil, fmt.Errorf("mutual match %d: %w", id, models.ErrNotFound)
	}
	return cloneMutual(m), nil
}

// UpdateMembership runs fn on a copy under the write lock and stores it on success.
func (s *MutualMatches) UpdateMembership(_ context.Context, id int64, fn func(*models.MutualMatch) error) (*models.MutualMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.mutual[id]
	if !ok {
		return nil, fmt.Errorf("mutual match %d: %w", id, models.ErrNotFound)
	}
	m := cloneMutual(cur)
	if err := fn(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()
	s.mutual[id] = cloneMutual(m)
	return m, nil
}

// UpdateStatus overwrites the coarse status.
func (s *MutualMatches) UpdateStatus(_ context.Context, id int64, status models.MatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mutual[id]
	if !ok {
		return fmt.Errorf("mutual match %d: %w", id, models.ErrNotFound)
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a mutual match.
func (s *MutualMatches) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mutual[id]; !ok {
		return fmt.Errorf("mutual match %d: %w", id, models.ErrNotFound)
	}
	delete(s.mutual, id)
	return nil
}

// FindByMember lists a member's mutual matches, newest first.
func (s *MutualMatches) FindByMember(_ context.Context, memberID int64, filter models.MatchFilter) ([]*models.MutualMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.FilterMap(lo.Values(s.mutual), func(m *models.MutualMatch, _ int) (*models.MutualMatch, bool) {
		if !filter.MatchesMutual(m, memberID) {
			return nil, false
		}
		return cloneMutual(m), true
	})
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Create stores a new sequential match.
func (s *SequentialMatches) Create(_ context.Context, m *models.SequentialMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []int64{m.SenderID, m.ReceiverID} {
		if _, ok := s.members[id]; !ok {
			return fmt.Errorf("member %d: %w", id, models.ErrNotFound)
		}
	}
	s.nextSequentialID++
	now := time.Now().UTC()
	m.ID = s.nextSequentialID
	m.CreatedAt, m.UpdatedAt = now, now
	s.sequential[m.ID] = cloneSequential(m)
	return nil
}

// GetByID returns a copy of a sequential match.
func (s *SequentialMatches) GetByID(_ context.Context, id int64) (*models.SequentialMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sequential[id]
	if !ok {
		return nil, fmt.Errorf("sequential match %d: %w", id, models.ErrNotFound)
	}
	return cloneSequential(m), nil
}

// UpdateMembership runs fn on a copy under the write lock and stores it on success.
func (s *SequentialMatches) UpdateMembership(_ context.Context, id int64, fn func(*models.SequentialMatch) error) (*models.SequentialMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sequential[id]
	if !ok {
		return nil, fmt.Errorf("sequential match %d: %w", id, models.ErrNotFound)
	}
	m := cloneSequential(cur)
	if err := fn(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()
	s.sequential[id] = cloneSequential(m)
	return m, nil
}

// UpdateStatus overwrites the coarse status.
func (s *SequentialMatches) UpdateStatus(_ context.Context, id int64, status models.MatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sequential[id]
	if !ok {
		return fmt.Errorf("sequential match %d: %w", id, models.ErrNotFound)
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a sequential match.
func (s *SequentialMatches) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sequential[id]; !ok {
		return fmt.Errorf("sequential match %d: %w", id, models.ErrNotFound)
	}
	delete(s.sequential, id)
	return nil
}

// FindByMember lists matches where the member is sender or receiver, newest first.
func (s *SequentialMatches) FindByMember(_ context.Context, memberID int64, filter models.MatchFilter) ([]*models.SequentialMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.FilterMap(lo.Values(s.sequential), func(m *models.SequentialMatch, _ int) (*models.SequentialMatch, bool) {
		if !filter.MatchesSequential(m, memberID) {
			return nil, false
		}
		return cloneSequential(m), true
	})
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func newer(at time.Time, id int64, otherAt time.Time, otherID int64) bool {
	if !at.Equal(otherAt) {
		return at.After(otherAt)
	}
	return id > otherID
}

func cloneMutual(m *models.MutualMatch) *models.MutualMatch {
	cp := *m
	cp.Responses = make(map[int64]models.ResponseStatus, len(m.Responses))
	for id, r := range m.Responses {
		cp.Responses[id] = r
	}
	cp.SentAt = cloneTime(m.SentAt)
	return &cp
}

func cloneSequential(m *models.SequentialMatch) *models.SequentialMatch {
	cp := *m
	cp.SenderStatus = cloneResponse(m.SenderStatus)
	cp.ReceiverStatus = cloneResponse(m.ReceiverStatus)
	cp.SentToSenderAt = cloneTime(m.SentToSenderAt)
	cp.SentToReceiverAt = cloneTime(m.SentToReceiverAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneResponse(r *models.ResponseStatus) *models.ResponseStatus {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
