package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

type BonusAction string

const (
	BonusApplicantCompleted BonusAction = "applicant.completed"
	BonusApplicantRejected  BonusAction = "applicant.rejected"
)

// BonusTrigger credits the operator who processed an applicant.
type BonusTrigger interface {
	Trigger(ctx context.Context, operatorID uint, action BonusAction, applicantID uint) error
}

type logBonusTrigger struct{}

// NewLogBonusTrigger returns a trigger that only records the credit in the log.
func NewLogBonusTrigger() BonusTrigger {
	return logBonusTrigger{}
}

func (logBonusTrigger) Trigger(ctx context.Context, operatorID uint, action BonusAction, applicantID uint) error {
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"operator_id":  operatorID,
		"action":       action,
		"applicant_id": applicantID,
	}).Info("bonus triggered")
	return nil
}
