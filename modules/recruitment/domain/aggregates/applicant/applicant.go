package applicant

import (
	"strings"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/serrors"
)

var (
	ErrNotFound             = serrors.NewError("APPLICANT_NOT_FOUND", "applicant not found", "Applicants.Errors.NotFound")
	ErrUnknownStatus        = serrors.NewError("APPLICANT_UNKNOWN_STATUS", "unknown applicant status", "")
	ErrNameRequired         = serrors.NewError("APPLICANT_NAME_REQUIRED", "applicant name is required", "Applicants.Errors.NameRequired")
	ErrTerminal             = serrors.NewError("APPLICANT_TERMINAL", "applicant is already completed or rejected", "Applicants.Errors.Terminal")
	ErrInvalidTransition    = serrors.NewError("APPLICANT_INVALID_TRANSITION", "applicant is not at the required step", "Applicants.Errors.InvalidTransition")
	ErrStatusChanged        = serrors.NewError("APPLICANT_STATUS_CHANGED", "applicant status changed while the request was processed", "Applicants.Errors.StatusChanged")
	ErrMissingExternalID    = serrors.NewError("APPLICANT_MISSING_EXTERNAL_ID", "applicant has no linked external identity", "Applicants.Errors.MissingExternalID")
	ErrOnboardingIncomplete = serrors.NewError("APPLICANT_ONBOARDING_INCOMPLETE", "onboarding checklist is not complete", "Applicants.Errors.OnboardingIncomplete")
)

// Record is the flat persisted shape of an Applicant.
type Record struct {
	ID                    uint
	ExternalID            string
	Handle                string
	Name                  string
	Status                Status
	Criteria              Progress
	Questions             Progress
	Onboarding            Progress
	IdentityRolesAssigned bool
	RejectionReason       string
	ProcessedBy           uint
	ProcessedAt           time.Time
	Notes                 string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Applicant is immutable; every transition returns a new value. The current
// step is derived from status, never stored next to it.
type Applicant struct {
	id                    uint
	externalID            string
	handle                string
	name                  string
	status                Status
	criteria              Progress
	questions             Progress
	onboarding            Progress
	identityRolesAssigned bool
	rejectionReason       string
	processedBy           uint
	processedAt           time.Time
	notes                 string
	createdAt             time.Time
	updatedAt             time.Time
}

func New(name, externalID, handle, notes string, now time.Time) (Applicant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Applicant{}, ErrNameRequired
	}
	return Applicant{
		externalID: strings.TrimSpace(externalID),
		handle:     strings.TrimSpace(handle),
		name:       name,
		status:     StatusCriteria,
		criteria:   Progress{},
		questions:  Progress{},
		onboarding: Progress{},
		notes:      strings.TrimSpace(notes),
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func Hydrate(r Record) Applicant {
	return Applicant{
		id:                    r.ID,
		externalID:            r.ExternalID,
		handle:                r.Handle,
		name:                  r.Name,
		status:                r.Status,
		criteria:              nonNil(r.Criteria),
		questions:             nonNil(r.Questions),
		onboarding:            nonNil(r.Onboarding),
		identityRolesAssigned: r.IdentityRolesAssigned,
		rejectionReason:       r.RejectionReason,
		processedBy:           r.ProcessedBy,
		processedAt:           r.ProcessedAt,
		notes:                 r.Notes,
		createdAt:             r.CreatedAt,
		updatedAt:             r.UpdatedAt,
	}
}

func nonNil(p Progress) Progress {
	if p == nil {
		return Progress{}
	}
	return p.Clone()
}

func (a Applicant) Record() Record {
	return Record{
		ID:                    a.id,
		ExternalID:            a.externalID,
		Handle:                a.handle,
		Name:                  a.name,
		Status:                a.status,
		Criteria:              a.criteria.Clone(),
		Questions:             a.questions.Clone(),
		Onboarding:            a.onboarding.Clone(),
		IdentityRolesAssigned: a.identityRolesAssigned,
		RejectionReason:       a.rejectionReason,
		ProcessedBy:           a.processedBy,
		ProcessedAt:           a.processedAt,
		Notes:                 a.notes,
		CreatedAt:             a.createdAt,
		UpdatedAt:             a.updatedAt,
	}
}

func (a Applicant) ID() uint                    { return a.id }
func (a Applicant) ExternalID() string          { return a.externalID }
func (a Applicant) Handle() string              { return a.handle }
func (a Applicant) Name() string                { return a.name }
func (a Applicant) Status() Status              { return a.status }
func (a Applicant) CurrentStep() int            { return a.status.Step() }
func (a Applicant) Criteria() Progress          { return a.criteria.Clone() }
func (a Applicant) Questions() Progress         { return a.questions.Clone() }
func (a Applicant) Onboarding() Progress        { return a.onboarding.Clone() }
func (a Applicant) IdentityRolesAssigned() bool { return a.identityRolesAssigned }
func (a Applicant) RejectionReason() string     { return a.rejectionReason }
func (a Applicant) ProcessedBy() uint           { return a.processedBy }
func (a Applicant) ProcessedAt() time.Time      { return a.processedAt }
func (a Applicant) Notes() string               { return a.notes }
func (a Applicant) CreatedAt() time.Time        { return a.createdAt }
func (a Applicant) UpdatedAt() time.Time        { return a.updatedAt }
func (a Applicant) HasIdentity() bool           { return a.externalID != "" }

func (a Applicant) WithID(id uint) Applicant {
	a.id = id
	return a
}

// UpdateCriteria stores the snapshot and advances to QUESTIONS when the
// applicant sits at CRITERIA and every active criterion is satisfied.
func (a Applicant) UpdateCriteria(snapshot Progress, active []string, now time.Time) (Applicant, bool, error) {
	return a.updateStep(StatusCriteria, snapshot, CriteriaMet(snapshot, active), now, func(next *Applicant, p Progress) {
		next.criteria = p
	})
}

// UpdateQuestions advances to ONBOARDING once at least ceil(70%) of the
// active questions are answered.
func (a Applicant) UpdateQuestions(snapshot Progress, active []string, now time.Time) (Applicant, bool, error) {
	return a.updateStep(StatusQuestions, snapshot, QuestionsMet(snapshot, active), now, func(next *Applicant, p Progress) {
		next.questions = p
	})
}

// UpdateOnboarding only stores the checklist. The returned flag reports
// whether the checklist is complete; completing is a separate operation.
func (a Applicant) UpdateOnboarding(snapshot Progress, active []string, now time.Time) (Applicant, bool, error) {
	next, _, err := a.updateStep(StatusOnboarding, snapshot, false, now, func(next *Applicant, p Progress) {
		next.onboarding = p
	})
	if err != nil {
		return a, false, err
	}
	return next, next.status == StatusOnboarding && OnboardingMet(next.onboarding, active), nil
}

func (a Applicant) updateStep(
	at Status,
	snapshot Progress,
	met bool,
	now time.Time,
	assign func(*Applicant, Progress),
) (Applicant, bool, error) {
	if a.status.IsTerminal() {
		return a, false, ErrTerminal
	}
	next := a
	assign(&next, nonNil(snapshot))
	next.updatedAt = now
	if next.status != at || !met {
		return next, false, nil
	}
	following, ok := at.Next()
	if !ok {
		return next, false, nil
	}
	next.status = following
	return next, true, nil
}

func (a Applicant) LinkIdentity(externalID, handle string, now time.Time) (Applicant, error) {
	if a.status.IsTerminal() {
		return a, ErrTerminal
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return a, ErrMissingExternalID
	}
	a.externalID = externalID
	if h := strings.TrimSpace(handle); h != "" {
		a.handle = h
	}
	a.updatedAt = now
	return a, nil
}

func (a Applicant) MarkIdentityRolesAssigned(now time.Time) Applicant {
	a.identityRolesAssigned = true
	a.updatedAt = now
	return a
}

// CanComplete checks every precondition of Complete without changing state.
func (a Applicant) CanComplete(onboardingActive []string) error {
	if a.status.IsTerminal() {
		return ErrTerminal
	}
	if a.status != StatusOnboarding {
		return ErrInvalidTransition.Wrap("status %s", a.status)
	}
	if a.externalID == "" {
		return ErrMissingExternalID
	}
	if !OnboardingMet(a.onboarding, onboardingActive) {
		return ErrOnboardingIncomplete
	}
	return nil
}

func (a Applicant) Complete(processedBy uint, onboardingActive []string, now time.Time) (Applicant, error) {
	if err := a.CanComplete(onboardingActive); err != nil {
		return a, err
	}
	a.status = StatusCompleted
	a.processedBy = processedBy
	a.processedAt = now
	a.updatedAt = now
	return a, nil
}

func (a Applicant) Reject(reason string, processedBy uint, now time.Time) (Applicant, error) {
	if a.status.IsTerminal() {
		return a, ErrTerminal
	}
	a.status = StatusRejected
	a.rejectionReason = strings.TrimSpace(reason)
	a.processedBy = processedBy
	a.processedAt = now
	a.updatedAt = now
	return a, nil
}
