package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBikeRegistered    EventType = "bike.registered"
	EventBikeStolen        EventType = "bike.stolen"
	EventBikeRecovered     EventType = "bike.recovered"
	EventTransferRequested EventType = "transfer.requested"
	EventTransferResolved  EventType = "transfer.resolved"
	EventAccountCreated    EventType = "account.created"
	EventAccountDeleted    EventType = "account.deleted"
	EventRoleChanged       EventType = "user.role_changed"
)

// Event is a lifecycle notification for out-of-process consumers
// (email notifier, identity provider sync).
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	OccurredAt time.Time              `json:"occurredAt"`
	ActorID    string                 `json:"actorId"`
	SubjectID  string                 `json:"subjectId"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

func NewEvent(eventType EventType, actorID, subjectID string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		SubjectID:  subjectID,
		Data:       data,
	}
}
