package employee

import (
	"time"

	"github.com/google/uuid"
)

// HiredEvent is published after a hire or reactivation is committed.
type HiredEvent struct {
	EventID     uuid.UUID `json:"eventId"`
	OccurredAt  time.Time `json:"occurredAt"`
	ID          uint      `json:"id"`
	BadgeNumber *string   `json:"badgeNumber"`
	Name        string    `json:"name"`
	ExternalID  string    `json:"externalId"`
	Rank        string    `json:"rank"`
	RankLevel   int       `json:"rankLevel"`
	Status      Status    `json:"status"`
	Reactivated bool      `json:"reactivated"`
	OperatorID  uint      `json:"-"`
}

type TerminatedEvent struct {
	EventID    uuid.UUID `json:"eventId"`
	OccurredAt time.Time `json:"occurredAt"`
	ID         uint      `json:"id"`
	ExternalID string    `json:"externalId"`
	Reason     string    `json:"reason"`
	OperatorID uint      `json:"-"`
}

func NewHiredEvent(e Employee, reactivated bool, operatorID uint) *HiredEvent {
	return &HiredEvent{
		EventID:     uuid.New(),
		OccurredAt:  time.Now(),
		ID:          e.ID(),
		BadgeNumber: e.BadgeNumber(),
		Name:        e.Name(),
		ExternalID:  e.ExternalID(),
		Rank:        e.Rank(),
		RankLevel:   e.RankLevel(),
		Status:      e.Status(),
		Reactivated: reactivated,
		OperatorID:  operatorID,
	}
}

func NewTerminatedEvent(e Employee, operatorID uint) *TerminatedEvent {
	return &TerminatedEvent{
		EventID:    uuid.New(),
		OccurredAt: time.Now(),
		ID:         e.ID(),
		ExternalID: e.ExternalID(),
		Reason:     e.TerminationReason(),
		OperatorID: operatorID,
	}
}
