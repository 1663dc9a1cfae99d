// Package lifecycle drives mutual and sequential matches through their states.
package lifecycle

import (
	"context"
	"time"

	"matchmaking-engine/internal/models"
)

// MemberStore resolves the members of a match.
type MemberStore interface {
	GetProfile(ctx context.Context, memberID int64) (*models.MemberProfile, error)
}

// MutualMatchStore persists mutual matches.
//
// UpdateMembership must run fn against a snapshot read inside the same
// transaction and commit its result exactly once. An error from fn aborts
// the write and is returned unchanged.
type MutualMatchStore interface {
	Create(ctx context.Context, m *models.MutualMatch) error
	GetByID(ctx context.Context, id int64) (*models.MutualMatch, error)
	UpdateMembership(ctx context.Context, id int64, fn func(*models.MutualMatch) error) (*models.MutualMatch, error)
	UpdateStatus(ctx context.Context, id int64, status models.MatchStatus) error
	Delete(ctx context.Context, id int64) error
	// FindByMember applies filter (statuses, pending-only) before its limit.
	FindByMember(ctx context.Context, memberID int64, filter models.MatchFilter) ([]*models.MutualMatch, error)
}

// SequentialMatchStore persists sequential matches with the same guarantees
// as MutualMatchStore.
type SequentialMatchStore interface {
	Create(ctx context.Context, m *models.SequentialMatch) error
	GetByID(ctx context.Context, id int64) (*models.SequentialMatch, error)
	UpdateMembership(ctx context.Context, id int64, fn func(*models.SequentialMatch) error) (*models.SequentialMatch, error)
	UpdateStatus(ctx context.Context, id int64, status models.MatchStatus) error
	Delete(ctx context.Context, id int64) error
	FindByMember(ctx context.Context, memberID int64, filter models.MatchFilter) ([]*models.SequentialMatch, error)
}

// Notifier receives significant transitions. Implementations must not block
// the caller for long; errors are logged and never fail a transition.
type Notifier interface {
	Notify(ctx context.Context, event models.MatchEvent) error
}

// Invalidator drops cached candidate lists that a new match makes stale.
type Invalidator interface {
	Invalidate(ctx context.Context, memberID int64)
}

// Clock is the single source of "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NopNotifier discards events.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, models.MatchEvent) error { return nil }

// Windows are the response windows of each proposal kind.
type Windows struct {
	Mutual   time.Duration
	Receiver time.Duration
	Sender   time.Duration
}

// DefaultWindows returns the windows used in production. Receivers get less time than senders.
func DefaultWindows() Windows {
	return Windows{
		Mutual:   48 * time.Hour,
		Receiver: 24 * time.Hour,
		Sender:   72 * time.Hour,
	}
}
