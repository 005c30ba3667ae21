package applicant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

type Meta struct {
	EventID    uuid.UUID
	RequestID  string
	OperatorID uint
	OccurredAt time.Time
}

func newMeta(ctx context.Context) Meta {
	operator, _ := composables.UseOperator(ctx)
	return Meta{
		EventID:    uuid.New(),
		RequestID:  composables.UseRequestID(ctx),
		OperatorID: operator,
		OccurredAt: time.Now(),
	}
}

type CreatedEvent struct {
	Meta
	Result Applicant
}

type UpdatedEvent struct {
	Meta
	Result Applicant
	// Advanced is set when the update moved the applicant to the next step.
	Advanced bool
}

type DeletedEvent struct {
	Meta
	Result Applicant
}

type RejectedEvent struct {
	Meta
	Result      Applicant
	Blacklisted bool
}

type CompletedEvent struct {
	Meta
	Result      Applicant
	EmployeeID  uint
	Reactivated bool
}

func NewCreatedEvent(ctx context.Context, result Applicant) *CreatedEvent {
	return &CreatedEvent{Meta: newMeta(ctx), Result: result}
}

func NewUpdatedEvent(ctx context.Context, result Applicant, advanced bool) *UpdatedEvent {
	return &UpdatedEvent{Meta: newMeta(ctx), Result: result, Advanced: advanced}
}

func NewDeletedEvent(ctx context.Context, result Applicant) *DeletedEvent {
	return &DeletedEvent{Meta: newMeta(ctx), Result: result}
}

func NewRejectedEvent(ctx context.Context, result Applicant, blacklisted bool) *RejectedEvent {
	return &RejectedEvent{Meta: newMeta(ctx), Result: result, Blacklisted: blacklisted}
}

func NewCompletedEvent(ctx context.Context, result Applicant, employeeID uint, reactivated bool) *CompletedEvent {
	return &CompletedEvent{Meta: newMeta(ctx), Result: result, EmployeeID: employeeID, Reactivated: reactivated}
}
