package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/serrors"
)

const (
	CodeValidation   = "RECRUITMENT_VALIDATION"
	CodeNotFound     = "RECRUITMENT_NOT_FOUND"
	CodeBlacklisted  = "RECRUITMENT_BLACKLISTED"
	CodeConflict     = "RECRUITMENT_CONFLICT"
	CodeInvalidState = "RECRUITMENT_INVALID_STATE"
	CodeInternal     = "RECRUITMENT_INTERNAL"
)

// ErrBadgeRangeExhausted is reported by the allocator when no badge is free.
// The pipeline treats it as a warning, never as a failed hire.
var ErrBadgeRangeExhausted = serrors.NewError("BADGE_RANGE_EXHAUSTED", "no free badge number in range", "")

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// BlacklistedError carries the matching entry's details. It is always wrapped
// in a ServiceError with CodeBlacklisted.
type BlacklistedError struct {
	Reason    string
	ExpiresAt *time.Time
}

func (e *BlacklistedError) Error() string {
	if e.ExpiresAt == nil {
		return fmt.Sprintf("identity is blacklisted: %s", e.Reason)
	}
	return fmt.Sprintf("identity is blacklisted until %s: %s", e.ExpiresAt.Format(time.RFC3339), e.Reason)
}

func newBlacklistedError(check BlacklistCheck) *ServiceError {
	return newServiceError(http.StatusForbidden, CodeBlacklisted, "identity is blacklisted", &BlacklistedError{
		Reason:    check.Reason,
		ExpiresAt: check.ExpiresAt,
	})
}

// mapDomainError turns domain sentinels into ServiceErrors. Anything it does
// not recognise is returned unchanged.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	switch {
	case errors.Is(err, applicant.ErrNotFound),
		errors.Is(err, employee.ErrNotFound),
		errors.Is(err, blacklist.ErrNotFound),
		errors.Is(err, configitem.ErrNotFound):
		return newServiceError(http.StatusNotFound, CodeNotFound, "not found", err)
	case errors.Is(err, applicant.ErrNameRequired),
		errors.Is(err, applicant.ErrMissingExternalID),
		errors.Is(err, applicant.ErrOnboardingIncomplete),
		errors.Is(err, applicant.ErrUnknownStatus),
		errors.Is(err, blacklist.ErrIdentityRequired),
		errors.Is(err, configitem.ErrUnknownKind):
		return newServiceError(http.StatusBadRequest, CodeValidation, "validation failed", err)
	case errors.Is(err, applicant.ErrTerminal),
		errors.Is(err, applicant.ErrInvalidTransition),
		errors.Is(err, applicant.ErrStatusChanged),
		errors.Is(err, employee.ErrAlreadyInactive):
		return newServiceError(http.StatusConflict, CodeInvalidState, "invalid state", err)
	case errors.Is(err, employee.ErrAlreadyActive),
		errors.Is(err, employee.ErrDuplicateIdentity),
		errors.Is(err, employee.ErrBadgeTaken):
		recordWriteConflict("employee")
		return newServiceError(http.StatusConflict, CodeConflict, "conflict", err)
	default:
		return err
	}
}

func validationError(message string) *ServiceError {
	return newServiceError(http.StatusBadRequest, CodeValidation, message, nil)
}
