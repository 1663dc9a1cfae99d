package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchKind distinguishes the two match lifecycles.
type MatchKind string

const (
	MatchKindMutual     MatchKind = "mutual"
	MatchKindSequential MatchKind = "sequential"
)

// IsValid checks if the match kind is valid.
func (k MatchKind) IsValid() bool {
	return k == MatchKindMutual || k == MatchKindSequential
}

// EventType names a significant match transition.
type EventType string

const (
	EventProposalDispatched EventType = "proposal_dispatched"
	EventSenderInitiated    EventType = "sender_initiated"
	EventMatchAccepted      EventType = "match_accepted"
	EventMatchRejected      EventType = "match_rejected"
)

// MatchEvent is published to notification sinks after a transition commits.
type MatchEvent struct {
	EventID    string      `json:"event_id"`
	Type       EventType   `json:"type"`
	Kind       MatchKind   `json:"kind"`
	MatchID    int64       `json:"match_id"`
	Status     MatchStatus `json:"status"`
	MemberIDs  []int64     `json:"member_ids"`
	Recipients []int64     `json:"recipients"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewMatchEvent creates an event with a fresh id.
func NewMatchEvent(eventType EventType, kind MatchKind, matchID int64, status MatchStatus, members, recipients []int64, at time.Time) MatchEvent {
	return MatchEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		Kind:       kind,
		MatchID:    matchID,
		Status:     status,
		MemberIDs:  members,
		Recipients: recipients,
		OccurredAt: at,
	}
}

// RoutingKey is the message-bus routing key for the event.
func (e MatchEvent) RoutingKey() string {
	return "match." + string(e.Kind) + "." + string(e.Type)
}
