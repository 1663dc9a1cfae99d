// Package models defines the data structures for the matchmaking engine.
package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// MatchStatus is the coarse status of a match.
type MatchStatus string

const (
	MatchStatusBacklog   MatchStatus = "BACKLOG"
	MatchStatusPreparing MatchStatus = "PREPARING"
	MatchStatusPending   MatchStatus = "PENDING"
	MatchStatusRejected  MatchStatus = "REJECTED"
	MatchStatusAccepted  MatchStatus = "ACCEPTED"
	MatchStatusBrokenUp  MatchStatus = "BROKEN_UP"
)

// ValidMatchStatuses returns all valid match status values.
func ValidMatchStatuses() []MatchStatus {
	return []MatchStatus{
		MatchStatusBacklog,
		MatchStatusPreparing,
		MatchStatusPending,
		MatchStatusRejected,
		MatchStatusAccepted,
		MatchStatusBrokenUp,
	}
}

// IsValid checks if the match status is valid.
func (s MatchStatus) IsValid() bool {
	for _, valid := range ValidMatchStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsAdministrative reports whether an operator may force the status directly.
func (s MatchStatus) IsAdministrative() bool {
	return s == MatchStatusBacklog || s == MatchStatusPreparing || s == MatchStatusBrokenUp
}

// isDraft reports whether the match has not been dispatched yet.
func (s MatchStatus) isDraft() bool {
	return s == MatchStatusBacklog || s == MatchStatusPreparing
}

// ResponseStatus is one party's answer to a proposal.
type ResponseStatus string

const (
	ResponsePending  ResponseStatus = "pending"
	ResponseAccepted ResponseStatus = "accepted"
	ResponseRejected ResponseStatus = "rejected"
)

// IsValid checks if the response status is valid.
func (r ResponseStatus) IsValid() bool {
	return r == ResponsePending || r == ResponseAccepted || r == ResponseRejected
}

// Outcome is what a member answers.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// ParseOutcome validates a member answer.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeAccept, OutcomeReject:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("%w: outcome %q", ErrValidation, s)
}

func (o Outcome) response() ResponseStatus {
	if o == OutcomeAccept {
		return ResponseAccepted
	}
	return ResponseRejected
}

// MutualMatch is a proposal where both members answer the same record independently.
type MutualMatch struct {
	ID        int64                    `json:"id"`
	Responses map[int64]ResponseStatus `json:"responses"`
	Status    MatchStatus              `json:"status"`
	SentAt    *time.Time               `json:"sent_at,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// NewMutualMatch creates a draft match with both members pending.
func NewMutualMatch(memberA, memberB int64, initial MatchStatus) (*MutualMatch, error) {
	if memberA == memberB {
		return nil, ErrSameMember
	}
	if initial == "" {
		initial = MatchStatusBacklog
	}
	if !initial.isDraft() {
		return nil, fmt.Errorf("%w: new match cannot start in %s", ErrIllegalTransition, initial)
	}
	return &MutualMatch{
		Responses: map[int64]ResponseStatus{
			memberA: ResponsePending,
			memberB: ResponsePending,
		},
		Status: initial,
	}, nil
}

// MemberIDs returns the members of the match in ascending id order.
func (m *MutualMatch) MemberIDs() []int64 {
	ids := make([]int64, 0, len(m.Responses))
	for id := range m.Responses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasMember reports whether memberID is part of the match.
func (m *MutualMatch) HasMember(memberID int64) bool {
	_, ok := m.Responses[memberID]
	return ok
}

// Other returns the counterpart of memberID.
func (m *MutualMatch) Other(memberID int64) (int64, bool) {
	if !m.HasMember(memberID) {
		return 0, false
	}
	for id := range m.Responses {
		if id != memberID {
			return id, true
		}
	}
	return 0, false
}

func (m *MutualMatch) membersWith(r ResponseStatus) []int64 {
	var out []int64
	for _, id := range m.MemberIDs() {
		if m.Responses[id] == r {
			out = append(out, id)
		}
	}
	return out
}

// PendingMembers returns the members who have not answered yet.
func (m *MutualMatch) PendingMembers() []int64 { return m.membersWith(ResponsePending) }

// AcceptedBy returns the members who accepted.
func (m *MutualMatch) AcceptedBy() []int64 { return m.membersWith(ResponseAccepted) }

// RejectedBy returns the members who rejected.
func (m *MutualMatch) RejectedBy() []int64 { return m.membersWith(ResponseRejected) }

// Dispatch sends the proposal to both members and starts the response window.
// Every member is reset to pending.
func (m *MutualMatch) Dispatch(now time.Time) error {
	if len(m.Responses) != 2 {
		return ErrIncompleteMatch
	}
	if !m.Status.isDraft() {
		return fmt.Errorf("%w: cannot dispatch a %s match", ErrIllegalTransition, m.Status)
	}
	for id := range m.Responses {
		m.Responses[id] = ResponsePending
	}
	sent := now
	m.SentAt = &sent
	m.Status = MatchStatusPending
	return nil
}

// Respond records a member answer. The status only changes once both members
// have answered: ACCEPTED when both accepted, REJECTED otherwise.
// It returns true when the coarse status changed.
func (m *MutualMatch) Respond(memberID int64, outcome Outcome) (bool, error) {
	if outcome != OutcomeAccept && outcome != OutcomeReject {
		return false, fmt.Errorf("%w: outcome %q", ErrValidation, outcome)
	}
	if m.Status != MatchStatusPending && m.Status != MatchStatusRejected {
		return false, fmt.Errorf("%w: cannot respond to a %s match", ErrIllegalTransition, m.Status)
	}
	current, ok := m.Responses[memberID]
	if !ok {
		return false, ErrNotAMember
	}
	if current != ResponsePending {
		return false, fmt.Errorf("%w: member %d already %s", ErrAlreadyResponded, memberID, current)
	}

	m.Responses[memberID] = outcome.response()

	if len(m.PendingMembers()) > 0 {
		return false, nil
	}

	next := MatchStatusRejected
	if len(m.AcceptedBy()) == len(m.Responses) {
		next = MatchStatusAccepted
	}
	changed := next != m.Status
	m.Status = next
	return changed, nil
}

// ForceStatus applies an operator override. Only BACKLOG, PREPARING and
// BROKEN_UP can be forced; responses are left untouched.
func (m *MutualMatch) ForceStatus(status MatchStatus) error {
	if !status.IsAdministrative() {
		return fmt.Errorf("%w: status %s cannot be forced", ErrIllegalTransition, status)
	}
	m.Status = status
	return nil
}

// RemainingHours returns the whole hours left in the response window.
func (m *MutualMatch) RemainingHours(now time.Time, window time.Duration) int {
	return RemainingHours(m.SentAt, window, now)
}

// IsExpired reports whether the match is still awaiting answers after its window.
func (m *MutualMatch) IsExpired(now time.Time, window time.Duration) bool {
	return m.Status == MatchStatusPending && m.SentAt != nil && !now.Before(m.SentAt.Add(window))
}

// RemainingHours computes floor((sentAt + window) - now) in hours, clamped at zero.
// An undispatched proposal has no remaining time.
func RemainingHours(sentAt *time.Time, window time.Duration, now time.Time) int {
	if sentAt == nil {
		return 0
	}
	left := sentAt.Add(window).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Floor(left.Hours()))
}

// MatchFilter narrows match listings for a member.
type MatchFilter struct {
	Statuses []MatchStatus `json:"statuses,omitempty"`
	// PendingOnly keeps matches where the member still has to answer.
	PendingOnly bool `json:"pending_only,omitempty"`
	Limit       int  `json:"limit,omitempty"`
}

// Allows reports whether a match status passes the status filter.
func (f MatchFilter) Allows(status MatchStatus) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// StatusStrings returns the filtered statuses as plain strings for store queries.
func (f MatchFilter) StatusStrings() []string {
	out := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		out[i] = string(s)
	}
	return out
}

// MatchesMutual applies the status and pending filters to a mutual match seen by memberID.
func (f MatchFilter) MatchesMutual(m *MutualMatch, memberID int64) bool {
	if !m.HasMember(memberID) || !f.Allows(m.Status) {
		return false
	}
	return !f.PendingOnly || (m.Status == MatchStatusPending && m.Responses[memberID] == ResponsePending)
}

// MatchesSequential applies the status and pending filters to a sequential match seen by memberID.
func (f MatchFilter) MatchesSequential(m *SequentialMatch, memberID int64) bool {
	role, ok := m.RoleOf(memberID)
	if !ok || !f.Allows(m.Status) {
		return false
	}
	if !f.PendingOnly {
		return true
	}
	awaiting, ok := m.AwaitingRole()
	return ok && awaiting == role
}

// MatchView is a match as shown to one member, with read-side expiry.
type MatchView struct {
	Kind           MatchKind      `json:"kind"`
	MatchID        int64          `json:"match_id"`
	CounterpartID  int64          `json:"counterpart_id"`
	Status         MatchStatus    `json:"status"`
	MyResponse     ResponseStatus `json:"my_response,omitempty"`
	RemainingHours int            `json:"remaining_hours"`
	Expired        bool           `json:"expired"`
}
