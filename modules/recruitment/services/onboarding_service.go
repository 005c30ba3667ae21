package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
)

const CodeIdentityUnavailable = "RECRUITMENT_IDENTITY_UNAVAILABLE"

type OnboardingDeps struct {
	Applicants applicant.Repository
	Employees  employee.Repository
	Blacklist  blacklist.Repository
	Config     ConfigProvider
	Gate       *BlacklistGate
	Badges     *BadgeAllocator
	Identity   *IdentitySync
	Bonus      BonusTrigger
	Publisher  eventbus.EventBus
	Outbox     EventOutbox
	Tx         Transactor
}

type OnboardingOptions struct {
	StartRankLevel int
	InviteTTL      time.Duration
	InviteMaxUses  int
}

// OnboardingService drives applicants through CRITERIA, QUESTIONS, ONBOARDING
// and COMPLETED, or to REJECTED. Authoritative writes commit first; identity
// sync, events and bonus triggers run afterwards and never undo them.
type OnboardingService struct {
	applicants applicant.Repository
	employees  employee.Repository
	blacklist  blacklist.Repository
	config     ConfigProvider
	gate       *BlacklistGate
	badges     *BadgeAllocator
	identity   *IdentitySync
	bonus      BonusTrigger
	publisher  eventbus.EventBus
	outbox     EventOutbox
	tx         Transactor
	opts       OnboardingOptions
	now        func() time.Time
	roleLocks  *keyedMutex
}

func NewOnboardingService(deps OnboardingDeps, opts OnboardingOptions) *OnboardingService {
	if opts.StartRankLevel == 0 {
		opts.StartRankLevel = 1
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = 24 * time.Hour
	}
	if opts.InviteMaxUses <= 0 {
		opts.InviteMaxUses = 1
	}
	if deps.Tx == nil {
		deps.Tx = NewPoolTransactor()
	}
	if deps.Bonus == nil {
		deps.Bonus = NewLogBonusTrigger()
	}
	return &OnboardingService{
		applicants: deps.Applicants,
		employees:  deps.Employees,
		blacklist:  deps.Blacklist,
		config:     deps.Config,
		gate:       deps.Gate,
		badges:     deps.Badges,
		identity:   deps.Identity,
		bonus:      deps.Bonus,
		publisher:  deps.Publisher,
		outbox:     deps.Outbox,
		tx:         deps.Tx,
		opts:       opts,
		now:        time.Now,
		roleLocks:  newKeyedMutex(),
	}
}

type CreateApplicantInput struct {
	Name       string
	ExternalID string
	Handle     string
	Notes      string
}

type CreateApplicantResult struct {
	Applicant applicant.Applicant
	Blacklist BlacklistCheck
}

type StepResult struct {
	Applicant applicant.Applicant
	// Advanced is set when this update moved the applicant to the next step.
	Advanced bool
	// Ready is set on onboarding updates once the checklist is complete.
	Ready     bool
	Satisfied int
	Required  int
	Total     int
}

type CompletionResult struct {
	Applicant      applicant.Applicant
	Employee       employee.Employee
	Reactivated    bool
	BadgeNumber    *string
	BadgeExhausted bool
	Identity       IdentitySyncReport
}

type RejectInput struct {
	Reason         string
	AddToBlacklist bool
	ExpiresAt      *time.Time
}

type RejectResult struct {
	Applicant        applicant.Applicant
	Blacklisted      bool
	BlacklistCreated bool
	AlreadyRejected  bool
}

func (s *OnboardingService) operator(ctx context.Context) uint {
	id, err := composables.UseOperator(ctx)
	if err != nil {
		return 0
	}
	return id
}

func (s *OnboardingService) publish(ev any) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

func (s *OnboardingService) GetApplicant(ctx context.Context, id uint) (applicant.Applicant, error) {
	a, err := s.applicants.GetByID(ctx, id)
	return a, mapDomainError(err)
}

func (s *OnboardingService) ListApplicants(ctx context.Context, params *applicant.FindParams) ([]applicant.Applicant, int64, error) {
	if params == nil {
		params = &applicant.FindParams{Limit: 20}
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, 0, mapDomainError(applicant.ErrUnknownStatus.Wrap("%q", params.Status))
	}
	items, total, err := s.applicants.GetPaginated(ctx, params)
	return items, total, mapDomainError(err)
}

// CreateApplicant starts a record at CRITERIA. A blocked identity is refused
// up front; a match on an expired entry is reported but does not refuse.
func (s *OnboardingService) CreateApplicant(ctx context.Context, in CreateApplicantInput) (res CreateApplicantResult, err error) {
	ctx, span := startSpan(ctx, "create_applicant")
	defer func() { endSpan(span, err) }()

	a, err := applicant.New(in.Name, in.ExternalID, in.Handle, in.Notes, s.now())
	if err != nil {
		return CreateApplicantResult{}, mapDomainError(err)
	}

	check, err := s.gate.Check(ctx, a.ExternalID(), a.Handle())
	if err != nil {
		return CreateApplicantResult{}, err
	}
	if check.Blocked {
		return CreateApplicantResult{}, newBlacklistedError(check)
	}

	created, err := inTx(ctx, s.tx, func(txCtx context.Context) (applicant.Applicant, error) {
		return s.applicants.Create(txCtx, a)
	})
	if err != nil {
		return CreateApplicantResult{}, mapDomainError(err)
	}

	s.publish(applicant.NewCreatedEvent(ctx, created))
	logWithFields(ctx, logrus.InfoLevel, "applicant created", logrus.Fields{
		"applicant_id": created.ID(),
		"external_id":  created.ExternalID(),
	})
	return CreateApplicantResult{Applicant: created, Blacklist: check}, nil
}

type stepUpdate func(a applicant.Applicant, snapshot applicant.Progress, active []string, now time.Time) (applicant.Applicant, bool, error)

func (s *OnboardingService) UpdateCriteria(ctx context.Context, id uint, snapshot applicant.Progress) (StepResult, error) {
	active := configitem.EntryIDs(s.config.Get(ctx, configitem.KindCriteria))
	res, err := s.updateStep(ctx, "update_criteria", id, snapshot, active, applicant.Applicant.UpdateCriteria)
	if err != nil {
		return res, err
	}
	res.Required = len(active)
	return res, nil
}

func (s *OnboardingService) UpdateQuestions(ctx context.Context, id uint, snapshot applicant.Progress) (StepResult, error) {
	active := configitem.EntryIDs(s.config.Get(ctx, configitem.KindQuestions))
	res, err := s.updateStep(ctx, "update_questions", id, snapshot, active, applicant.Applicant.UpdateQuestions)
	if err != nil {
		return res, err
	}
	res.Required = applicant.QuestionsThreshold(len(active))
	return res, nil
}

// UpdateOnboarding stores the checklist. It never completes the applicant;
// StepResult.Ready tells the caller CompleteApplicant may now succeed.
func (s *OnboardingService) UpdateOnboarding(ctx context.Context, id uint, snapshot applicant.Progress) (StepResult, error) {
	active := configitem.EntryIDs(s.config.Get(ctx, configitem.KindOnboarding))
	res, err := s.updateStep(ctx, "update_onboarding", id, snapshot, active, applicant.Applicant.UpdateOnboarding)
	if err != nil {
		return res, err
	}
	res.Required = len(active)
	return res, nil
}

func (s *OnboardingService) updateStep(
	ctx context.Context,
	op string,
	id uint,
	snapshot applicant.Progress,
	active []string,
	update stepUpdate,
) (res StepResult, err error) {
	ctx, span := startSpan(ctx, op, attribute.Int64("applicant.id", int64(id)))
	defer func() { endSpan(span, err) }()

	var from applicant.Status
	res, err = inTx(ctx, s.tx, func(txCtx context.Context) (StepResult, error) {
		current, err := s.applicants.GetByID(txCtx, id)
		if err != nil {
			return StepResult{}, err
		}
		from = current.Status()
		next, advanced, err := update(current, snapshot, active, s.now())
		if err != nil {
			return StepResult{}, err
		}
		if err := s.applicants.Transition(txCtx, next, from); err != nil {
			return StepResult{}, err
		}
		if from == applicant.StatusOnboarding {
			return StepResult{Applicant: next, Ready: advanced}, nil
		}
		return StepResult{Applicant: next, Advanced: advanced}, nil
	})
	if err != nil {
		return StepResult{}, mapDomainError(err)
	}

	progress := snapshot
	if progress == nil {
		progress = applicant.Progress{}
	}
	res.Satisfied = progress.Count(active)
	res.Total = len(active)

	if res.Advanced {
		recordTransition(string(from), string(res.Applicant.Status()))
		logWithFields(ctx, logrus.InfoLevel, "applicant advanced", logrus.Fields{
			"applicant_id": id,
			"from":         from,
			"to":           res.Applicant.Status(),
		})
	}
	s.publish(applicant.NewUpdatedEvent(ctx, res.Applicant, res.Advanced))
	return res, nil
}

// LinkIdentity attaches an external identity found through FindMember. The
// new identity is checked against the blacklist before anything is written.
func (s *OnboardingService) LinkIdentity(ctx context.Context, id uint, externalID, handle string) (applicant.Applicant, BlacklistCheck, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return applicant.Applicant{}, BlacklistCheck{}, mapDomainError(applicant.ErrMissingExternalID)
	}
	check, err := s.gate.Check(ctx, externalID, handle)
	if err != nil {
		return applicant.Applicant{}, BlacklistCheck{}, err
	}
	if check.Blocked {
		return applicant.Applicant{}, check, newBlacklistedError(check)
	}

	linked, err := inTx(ctx, s.tx, func(txCtx context.Context) (applicant.Applicant, error) {
		current, err := s.applicants.GetByID(txCtx, id)
		if err != nil {
			return applicant.Applicant{}, err
		}
		next, err := current.LinkIdentity(externalID, handle, s.now())
		if err != nil {
			return applicant.Applicant{}, err
		}
		return next, s.applicants.Transition(txCtx, next, current.Status())
	})
	if err != nil {
		return applicant.Applicant{}, check, mapDomainError(err)
	}
	s.publish(applicant.NewUpdatedEvent(ctx, linked, false))
	return linked, check, nil
}

func (s *OnboardingService) FindMember(ctx context.Context, query string, limit int) ([]Member, error) {
	members, err := s.identity.FindMember(ctx, query, limit)
	if err != nil {
		return nil, newServiceError(http.StatusBadGateway, CodeIdentityUnavailable, "member search failed", err)
	}
	return members, nil
}

// IssueInvite creates an invite link for an applicant who has not joined the
// external system yet.
func (s *OnboardingService) IssueInvite(ctx context.Context, id uint) (string, error) {
	a, err := s.applicants.GetByID(ctx, id)
	if err != nil {
		return "", mapDomainError(err)
	}
	if a.Status().IsTerminal() {
		return "", mapDomainError(applicant.ErrTerminal)
	}
	if a.HasIdentity() {
		return "", validationError("applicant already has a linked identity")
	}
	url, err := s.identity.IssueInvite(ctx, s.opts.InviteTTL, s.opts.InviteMaxUses)
	if err != nil {
		return "", newServiceError(http.StatusBadGateway, CodeIdentityUnavailable, "invite could not be issued", err)
	}
	return url, nil
}

// AssignIdentityRoles grants the hire roles once. The flag is only set when at
// least one role was granted; with the flag already set the call is a no-op.
func (s *OnboardingService) AssignIdentityRoles(ctx context.Context, id uint) (report IdentitySyncReport, err error) {
	ctx, span := startSpan(ctx, "assign_identity_roles", attribute.Int64("applicant.id", int64(id)))
	defer func() { endSpan(span, err) }()

	unlock := s.roleLocks.Lock(id)
	defer unlock()

	a, err := s.applicants.GetByID(ctx, id)
	if err != nil {
		return IdentitySyncReport{}, mapDomainError(err)
	}
	if a.Status() == applicant.StatusRejected {
		return IdentitySyncReport{}, mapDomainError(applicant.ErrTerminal)
	}
	if a.IdentityRolesAssigned() {
		return IdentitySyncReport{Skipped: true, Granted: []string{}, Failed: []RoleFailure{}}, nil
	}
	if !a.HasIdentity() {
		return IdentitySyncReport{}, mapDomainError(applicant.ErrMissingExternalID)
	}
	return s.grantRolesLocked(ctx, a), nil
}

// grantRolesLocked expects the caller to hold the applicant's role lock.
func (s *OnboardingService) grantRolesLocked(ctx context.Context, a applicant.Applicant) IdentitySyncReport {
	grant := s.identity.GrantRoles(ctx, a.ExternalID(), s.identity.HireRoles())
	report := IdentitySyncReport{Granted: grant.Granted, Failed: grant.Failed}
	if !grant.Any() {
		return report
	}
	if err := s.applicants.MarkIdentityRolesAssigned(ctx, a.ID()); err != nil {
		logWithFields(ctx, logrus.ErrorLevel, "failed to persist role assignment flag", logrus.Fields{
			"applicant_id": a.ID(),
			"error":        err.Error(),
		})
	}
	return report
}

type hireOutcome struct {
	applicant   applicant.Applicant
	employee    employee.Employee
	reactivated bool
	exhausted   bool
	hired       *employee.HiredEvent
}

// CompleteApplicant hires or reactivates the applicant's employee record and
// marks the applicant COMPLETED in one transaction. Identity sync, events and
// the bonus trigger follow the commit.
func (s *OnboardingService) CompleteApplicant(ctx context.Context, id uint) (res CompletionResult, err error) {
	ctx, span := startSpan(ctx, "complete_applicant", attribute.Int64("applicant.id", int64(id)))
	defer func() { endSpan(span, err) }()

	operator := s.operator(ctx)
	onboarding := configitem.EntryIDs(s.config.Get(ctx, configitem.KindOnboarding))

	current, err := s.applicants.GetByID(ctx, id)
	if err != nil {
		return CompletionResult{}, mapDomainError(err)
	}
	if err := current.CanComplete(onboarding); err != nil {
		return CompletionResult{}, mapDomainError(err)
	}

	check, err := s.gate.Check(ctx, current.ExternalID(), current.Handle())
	if err != nil {
		return CompletionResult{}, err
	}
	if check.Blocked {
		return CompletionResult{}, newBlacklistedError(check)
	}

	tier, ok := ranks.Lookup(s.opts.StartRankLevel)
	if !ok {
		return CompletionResult{}, newServiceError(http.StatusInternalServerError, CodeInternal, "start rank is not configured", nil)
	}

	outcome, err := inTx(ctx, s.tx, func(txCtx context.Context) (hireOutcome, error) {
		return s.hire(txCtx, id, tier, operator, onboarding)
	})
	if err != nil {
		return CompletionResult{}, mapDomainError(err)
	}

	recordTransition(string(applicant.StatusOnboarding), string(applicant.StatusCompleted))
	logWithFields(ctx, logrus.InfoLevel, "applicant hired", logrus.Fields{
		"applicant_id": id,
		"employee_id":  outcome.employee.ID(),
		"badge":        outcome.employee.Badge(),
		"reactivated":  outcome.reactivated,
	})

	res = CompletionResult{
		Applicant:      outcome.applicant,
		Employee:       outcome.employee,
		Reactivated:    outcome.reactivated,
		BadgeNumber:    outcome.employee.BadgeNumber(),
		BadgeExhausted: outcome.exhausted,
	}
	res.Identity = s.syncHire(ctx, outcome.applicant, outcome.employee)
	if res.Identity.Skipped || len(res.Identity.Granted) > 0 {
		res.Applicant = res.Applicant.MarkIdentityRolesAssigned(res.Applicant.UpdatedAt())
	}

	s.publish(outcome.hired)
	s.publish(applicant.NewCompletedEvent(ctx, res.Applicant, outcome.employee.ID(), outcome.reactivated))
	s.triggerBonus(ctx, operator, BonusApplicantCompleted, id)
	return res, nil
}

func (s *OnboardingService) hire(ctx context.Context, id uint, tier ranks.Tier, operator uint, onboarding []string) (hireOutcome, error) {
	now := s.now()
	current, err := s.applicants.GetByID(ctx, id)
	if err != nil {
		return hireOutcome{}, err
	}
	completed, err := current.Complete(operator, onboarding, now)
	if err != nil {
		return hireOutcome{}, err
	}

	var (
		emp         employee.Employee
		reactivated bool
	)
	existing, err := s.employees.GetByExternalID(ctx, current.ExternalID())
	switch {
	case errors.Is(err, employee.ErrNotFound):
		emp, err = s.employees.Create(ctx, employee.NewHire(current.ExternalID(), current.Name(), tier, now))
		if err != nil {
			return hireOutcome{}, err
		}
	case err != nil:
		return hireOutcome{}, err
	case existing.IsActive():
		return hireOutcome{}, employee.ErrAlreadyActive.Wrap("employee %d", existing.ID())
	default:
		emp, err = existing.Reactivate(current.Name(), tier, now)
		if err != nil {
			return hireOutcome{}, err
		}
		if err := s.employees.Update(ctx, emp); err != nil {
			return hireOutcome{}, err
		}
		reactivated = true
	}

	exhausted := false
	badge, err := s.badges.Allocate(ctx, emp.ID(), tier.Badge)
	switch {
	case err == nil:
		emp = emp.WithBadge(badge)
	case errors.Is(err, ErrBadgeRangeExhausted):
		exhausted = true
		if emp.BadgeNumber() != nil {
			if err := s.employees.ClearBadge(ctx, emp.ID()); err != nil {
				return hireOutcome{}, err
			}
		}
		emp = emp.WithoutBadge()
		logWithFields(ctx, logrus.WarnLevel, "badge range exhausted, hiring without badge", logrus.Fields{
			"employee_id": emp.ID(),
			"range":       tier.Badge.String(),
		})
	default:
		return hireOutcome{}, err
	}

	// Loses to a concurrent completion or rejection with ErrStatusChanged.
	if err := s.applicants.Transition(ctx, completed, applicant.StatusOnboarding); err != nil {
		return hireOutcome{}, err
	}
	hired := employee.NewHiredEvent(emp, reactivated, operator)
	if err := enqueueHired(ctx, s.outbox, hired); err != nil {
		return hireOutcome{}, err
	}
	return hireOutcome{applicant: completed, employee: emp, reactivated: reactivated, exhausted: exhausted, hired: hired}, nil
}

// syncHire runs after commit and re-reads the role flag under the role lock.
// Failures only show up in the report.
func (s *OnboardingService) syncHire(ctx context.Context, a applicant.Applicant, emp employee.Employee) IdentitySyncReport {
	unlock := s.roleLocks.Lock(a.ID())
	defer unlock()

	report := IdentitySyncReport{Granted: []string{}, Failed: []RoleFailure{}}
	if fresh, err := s.applicants.GetByID(ctx, a.ID()); err == nil {
		a = fresh
	}
	if a.IdentityRolesAssigned() {
		report.Skipped = true
	} else {
		report = s.grantRolesLocked(ctx, a)
	}

	report.Nickname = Nickname(emp.BadgeNumber(), emp.Name())
	if err := s.identity.SetDisplayName(ctx, emp.ExternalID(), report.Nickname); err != nil {
		report.NicknameErr = err.Error()
	}
	if len(report.Failed) > 0 || report.NicknameErr != "" {
		logWithFields(ctx, logrus.WarnLevel, "identity sync partially failed", logrus.Fields{
			"applicant_id": a.ID(),
			"granted":      len(report.Granted),
			"failed":       len(report.Failed),
			"nickname_err": report.NicknameErr,
		})
	}
	return report
}

func (s *OnboardingService) triggerBonus(ctx context.Context, operator uint, action BonusAction, applicantID uint) {
	if operator == 0 || s.bonus == nil {
		return
	}
	if err := s.bonus.Trigger(ctx, operator, action, applicantID); err != nil {
		logWithFields(ctx, logrus.WarnLevel, "bonus trigger failed", logrus.Fields{
			"operator_id":  operator,
			"action":       action,
			"applicant_id": applicantID,
			"error":        err.Error(),
		})
	}
}

// RejectApplicant moves an open applicant to REJECTED and optionally
// blacklists the identity in the same transaction. Rejecting an already
// rejected applicant only ensures the blacklist entry exists.
func (s *OnboardingService) RejectApplicant(ctx context.Context, id uint, in RejectInput) (res RejectResult, err error) {
	ctx, span := startSpan(ctx, "reject_applicant", attribute.Int64("applicant.id", int64(id)))
	defer func() { endSpan(span, err) }()

	operator := s.operator(ctx)
	var event *applicant.RejectedEvent
	res, err = inTx(ctx, s.tx, func(txCtx context.Context) (RejectResult, error) {
		current, err := s.applicants.GetByID(txCtx, id)
		if err != nil {
			return RejectResult{}, err
		}
		if in.AddToBlacklist && !current.HasIdentity() && current.Handle() == "" {
			return RejectResult{}, validationError("applicant has no identity to blacklist")
		}

		out := RejectResult{Applicant: current}
		if current.Status() == applicant.StatusRejected {
			out.AlreadyRejected = true
		} else {
			rejected, err := current.Reject(in.Reason, operator, s.now())
			if err != nil {
				return RejectResult{}, err
			}
			if err := s.applicants.Transition(txCtx, rejected, current.Status()); err != nil {
				return RejectResult{}, err
			}
			out.Applicant = rejected
		}

		if in.AddToBlacklist {
			reason := strings.TrimSpace(in.Reason)
			if reason == "" {
				reason = out.Applicant.RejectionReason()
			}
			entry, err := blacklist.New(current.ExternalID(), current.Handle(), reason, in.ExpiresAt, operator, s.now())
			if err != nil {
				return RejectResult{}, err
			}
			_, created, err := s.blacklist.CreateIfAbsent(txCtx, entry)
			if err != nil {
				return RejectResult{}, err
			}
			out.Blacklisted = true
			out.BlacklistCreated = created
		}
		if out.AlreadyRejected {
			return out, nil
		}
		event = applicant.NewRejectedEvent(ctx, out.Applicant, out.Blacklisted)
		return out, enqueueRejected(txCtx, s.outbox, event)
	})
	if err != nil {
		return RejectResult{}, mapDomainError(err)
	}
	if res.AlreadyRejected {
		return res, nil
	}

	recordTransition("open", string(applicant.StatusRejected))
	logWithFields(ctx, logrus.InfoLevel, "applicant rejected", logrus.Fields{
		"applicant_id": id,
		"blacklisted":  res.Blacklisted,
	})
	s.publish(event)
	s.triggerBonus(ctx, operator, BonusApplicantRejected, id)
	return res, nil
}

func (s *OnboardingService) DeleteApplicant(ctx context.Context, id uint) (applicant.Applicant, error) {
	deleted, err := inTx(ctx, s.tx, func(txCtx context.Context) (applicant.Applicant, error) {
		current, err := s.applicants.GetByID(txCtx, id)
		if err != nil {
			return applicant.Applicant{}, err
		}
		return current, s.applicants.Delete(txCtx, id)
	})
	if err != nil {
		return applicant.Applicant{}, mapDomainError(err)
	}
	s.publish(applicant.NewDeletedEvent(ctx, deleted))
	return deleted, nil
}
