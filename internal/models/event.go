package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventLinkCreated EventType = "link.created"
	EventLinkDeleted EventType = "link.deleted"
	EventLinkHit     EventType = "link.hit"
)

// LinkEvent сообщает слою представления о завершённой операции над ссылкой
type LinkEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	Code       string    `json:"code"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewLinkEvent(eventType EventType, code string) *LinkEvent {
	return &LinkEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Code:       code,
		OccurredAt: time.Now().UTC(),
	}
}
