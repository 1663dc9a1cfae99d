package models

import (
	"fmt"
	"time"
)

// Role is a member's side of a sequential match.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// SequentialMatch is a two-phase proposal. The receiver is approached first;
// the sender is only dispatched after the receiver accepts.
//
// A nil role status means that role has not been dispatched.
type SequentialMatch struct {
	ID               int64           `json:"id"`
	SenderID         int64           `json:"sender_id"`
	ReceiverID       int64           `json:"receiver_id"`
	SenderStatus     *ResponseStatus `json:"sender_status,omitempty"`
	ReceiverStatus   *ResponseStatus `json:"receiver_status,omitempty"`
	SentToSenderAt   *time.Time      `json:"sent_to_sender_at,omitempty"`
	SentToReceiverAt *time.Time      `json:"sent_to_receiver_at,omitempty"`
	Status           MatchStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewSequentialMatch creates a draft sequential match with no role dispatched.
func NewSequentialMatch(senderID, receiverID int64, initial MatchStatus) (*SequentialMatch, error) {
	if senderID == receiverID {
		return nil, ErrSameMember
	}
	if initial == "" {
		initial = MatchStatusBacklog
	}
	if !initial.isDraft() {
		return nil, fmt.Errorf("%w: new match cannot start in %s", ErrIllegalTransition, initial)
	}
	return &SequentialMatch{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     initial,
	}, nil
}

// RoleOf returns the role memberID plays in the match.
func (m *SequentialMatch) RoleOf(memberID int64) (Role, bool) {
	switch memberID {
	case m.SenderID:
		return RoleSender, true
	case m.ReceiverID:
		return RoleReceiver, true
	}
	return "", false
}

// Other returns the counterpart of memberID.
func (m *SequentialMatch) Other(memberID int64) (int64, bool) {
	switch memberID {
	case m.SenderID:
		return m.ReceiverID, true
	case m.ReceiverID:
		return m.SenderID, true
	}
	return 0, false
}

// StatusOf returns the response status of a role, nil when not dispatched.
func (m *SequentialMatch) StatusOf(role Role) *ResponseStatus {
	if role == RoleSender {
		return m.SenderStatus
	}
	return m.ReceiverStatus
}

// SendToReceiver dispatches the proposal to the receiver and opens the match.
// A resend starts over: any earlier sender dispatch is withdrawn.
func (m *SequentialMatch) SendToReceiver(now time.Time) error {
	if !m.Status.isDraft() {
		return fmt.Errorf("%w: cannot send a %s match", ErrIllegalTransition, m.Status)
	}
	sent := now
	pending := ResponsePending
	m.SentToReceiverAt = &sent
	m.ReceiverStatus = &pending
	m.SentToSenderAt = nil
	m.SenderStatus = nil
	m.Status = MatchStatusPending
	return nil
}

// RespondAsReceiver records the receiver answer. Accepting initiates the sender;
// rejecting closes the match as REJECTED and the sender is never dispatched.
func (m *SequentialMatch) RespondAsReceiver(outcome Outcome, now time.Time) error {
	if err := m.checkRespond(RoleReceiver, outcome); err != nil {
		return err
	}
	if outcome == OutcomeReject {
		rejected := ResponseRejected
		m.ReceiverStatus = &rejected
		m.Status = MatchStatusRejected
		return nil
	}
	if m.SentToSenderAt != nil {
		return fmt.Errorf("%w: sender already initiated", ErrIllegalTransition)
	}
	accepted := ResponseAccepted
	m.ReceiverStatus = &accepted
	return m.InitiateSender(now)
}

// InitiateSender dispatches the reciprocal proposal to the sender.
func (m *SequentialMatch) InitiateSender(now time.Time) error {
	if m.ReceiverStatus == nil || *m.ReceiverStatus != ResponseAccepted {
		return fmt.Errorf("%w: receiver has not accepted", ErrIllegalTransition)
	}
	if m.SentToSenderAt != nil {
		return fmt.Errorf("%w: sender already initiated", ErrIllegalTransition)
	}
	sent := now
	pending := ResponsePending
	m.SentToSenderAt = &sent
	m.SenderStatus = &pending
	m.Status = MatchStatusPending
	return nil
}

// RespondAsSender records the sender answer, which settles the match.
func (m *SequentialMatch) RespondAsSender(outcome Outcome) error {
	if err := m.checkRespond(RoleSender, outcome); err != nil {
		return err
	}
	r := outcome.response()
	m.SenderStatus = &r
	if outcome == OutcomeAccept {
		m.Status = MatchStatusAccepted
	} else {
		m.Status = MatchStatusRejected
	}
	return nil
}

func (m *SequentialMatch) checkRespond(role Role, outcome Outcome) error {
	if outcome != OutcomeAccept && outcome != OutcomeReject {
		return fmt.Errorf("%w: outcome %q", ErrValidation, outcome)
	}
	sentAt, status := m.SentToReceiverAt, m.ReceiverStatus
	if role == RoleSender {
		sentAt, status = m.SentToSenderAt, m.SenderStatus
	}
	if sentAt == nil || status == nil {
		return fmt.Errorf("%w: %s", ErrNotDispatched, role)
	}
	if *status != ResponsePending {
		return fmt.Errorf("%w: %s already %s", ErrAlreadyResponded, role, *status)
	}
	if role == RoleSender && (m.ReceiverStatus == nil || *m.ReceiverStatus != ResponseAccepted) {
		return fmt.Errorf("%w: receiver has not accepted", ErrIllegalTransition)
	}
	if m.Status != MatchStatusPending {
		return fmt.Errorf("%w: cannot respond to a %s match", ErrIllegalTransition, m.Status)
	}
	return nil
}

// Respond routes an answer by member id to the right role.
func (m *SequentialMatch) Respond(memberID int64, outcome Outcome, now time.Time) (Role, error) {
	role, ok := m.RoleOf(memberID)
	if !ok {
		return "", ErrNotAMember
	}
	if role == RoleReceiver {
		return role, m.RespondAsReceiver(outcome, now)
	}
	return role, m.RespondAsSender(outcome)
}

// ForceStatus applies an operator override. Role statuses are left untouched.
func (m *SequentialMatch) ForceStatus(status MatchStatus) error {
	if !status.IsAdministrative() {
		return fmt.Errorf("%w: status %s cannot be forced", ErrIllegalTransition, status)
	}
	m.Status = status
	return nil
}

// AwaitingRole returns the role whose answer is outstanding, if any.
func (m *SequentialMatch) AwaitingRole() (Role, bool) {
	if m.Status != MatchStatusPending {
		return "", false
	}
	if m.SenderStatus != nil && *m.SenderStatus == ResponsePending {
		return RoleSender, true
	}
	if m.ReceiverStatus != nil && *m.ReceiverStatus == ResponsePending {
		return RoleReceiver, true
	}
	return "", false
}

// RemainingHours returns the hours left for the role currently awaited.
func (m *SequentialMatch) RemainingHours(now time.Time, receiverWindow, senderWindow time.Duration) int {
	role, ok := m.AwaitingRole()
	if !ok {
		return 0
	}
	if role == RoleSender {
		return RemainingHours(m.SentToSenderAt, senderWindow, now)
	}
	return RemainingHours(m.SentToReceiverAt, receiverWindow, now)
}

// IsExpired reports whether the awaited role let its window run out.
func (m *SequentialMatch) IsExpired(now time.Time, receiverWindow, senderWindow time.Duration) bool {
	role, ok := m.AwaitingRole()
	if !ok {
		return false
	}
	sentAt, window := m.SentToReceiverAt, receiverWindow
	if role == RoleSender {
		sentAt, window = m.SentToSenderAt, senderWindow
	}
	return sentAt != nil && !now.Before(sentAt.Add(window))
}
