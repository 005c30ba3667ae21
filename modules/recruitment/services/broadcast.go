package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
)

// Topics of the messages written to the outbox and relayed to live-update
// subscribers.
const (
	TopicEmployeeHired      = "recruitment.employee.hired.v1"
	TopicEmployeeTerminated = "recruitment.employee.terminated.v1"
	TopicApplicantRejected  = "recruitment.applicant.rejected.v1"
)

// EventOutbox records a message in the transaction carried by ctx. The
// message is only delivered if that transaction commits.
type EventOutbox interface {
	Enqueue(ctx context.Context, topic string, eventID uuid.UUID, payload any) error
}

type ApplicantRejectedPayload struct {
	EventID     uuid.UUID `json:"eventId"`
	OccurredAt  time.Time `json:"occurredAt"`
	ApplicantID uint      `json:"applicantId"`
	Name        string    `json:"name"`
	ExternalID  string    `json:"externalId,omitempty"`
	Reason      string    `json:"reason"`
	Blacklisted bool      `json:"blacklisted"`
}

func rejectedPayload(ev *applicant.RejectedEvent) ApplicantRejectedPayload {
	return ApplicantRejectedPayload{
		EventID:     ev.EventID,
		OccurredAt:  ev.OccurredAt,
		ApplicantID: ev.Result.ID(),
		Name:        ev.Result.Name(),
		ExternalID:  ev.Result.ExternalID(),
		Reason:      ev.Result.RejectionReason(),
		Blacklisted: ev.Blacklisted,
	}
}

func enqueueHired(ctx context.Context, box EventOutbox, ev *employee.HiredEvent) error {
	if box == nil {
		return nil
	}
	return box.Enqueue(ctx, TopicEmployeeHired, ev.EventID, ev)
}

func enqueueTerminated(ctx context.Context, box EventOutbox, ev *employee.TerminatedEvent) error {
	if box == nil {
		return nil
	}
	return box.Enqueue(ctx, TopicEmployeeTerminated, ev.EventID, ev)
}

func enqueueRejected(ctx context.Context, box EventOutbox, ev *applicant.RejectedEvent) error {
	if box == nil {
		return nil
	}
	return box.Enqueue(ctx, TopicApplicantRejected, ev.EventID, rejectedPayload(ev))
}
