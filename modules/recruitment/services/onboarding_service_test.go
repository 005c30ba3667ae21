package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

type harness struct {
	applicants *fakeApplicantRepo
	employees  *fakeEmployeeRepo
	blacklist  *fakeBlacklistRepo
	configs    *fakeConfigRepo
	provider   *fakeProvider
	publisher  *recordingPublisher
	bonus      *recordingBonus
	outbox     *recordingOutbox
	cache      *ConfigCache
	svc        *OnboardingService

	criteria   []string
	questions  []string
	onboarding []string
}

func newHarness(t *testing.T, roleIDs ...string) *harness {
	t.Helper()
	h := &harness{
		applicants: newFakeApplicantRepo(),
		employees:  newFakeEmployeeRepo(),
		blacklist:  &fakeBlacklistRepo{},
		configs:    newFakeConfigRepo(),
		provider:   newFakeProvider(),
		publisher:  &recordingPublisher{},
		bonus:      &recordingBonus{},
		outbox:     &recordingOutbox{},
	}
	h.criteria = h.configs.seed(configitem.KindCriteria, 3)
	h.questions = h.configs.seed(configitem.KindQuestions, 10)
	h.onboarding = h.configs.seed(configitem.KindOnboarding, 2)

	h.cache = NewConfigCache(h.configs, time.Minute)
	if len(roleIDs) == 0 {
		roleIDs = []string{"role-police"}
	}
	h.svc = NewOnboardingService(OnboardingDeps{
		Applicants: h.applicants,
		Employees:  h.employees,
		Blacklist:  h.blacklist,
		Config:     h.cache,
		Gate:       NewBlacklistGate(h.blacklist),
		Badges:     NewBadgeAllocator(h.employees, DefaultBadgeClaimAttempts),
		Identity:   NewIdentitySync(h.provider, roleIDs),
		Bonus:      h.bonus,
		Publisher:  h.publisher,
		Outbox:     h.outbox,
		Tx:         fakeTx{},
	}, OnboardingOptions{StartRankLevel: 1})
	return h
}

func operatorCtx() context.Context {
	return composables.WithOperator(context.Background(), 7)
}

func all(ids []string) applicant.Progress {
	p := applicant.Progress{}
	for _, id := range ids {
		p[id] = true
	}
	return p
}

func firstN(ids []string, n int) applicant.Progress {
	p := applicant.Progress{}
	for i, id := range ids {
		p[id] = i < n
	}
	return p
}

// readyApplicant stores an applicant at ONBOARDING with the checklist done.
func (h *harness) readyApplicant(externalID string) applicant.Applicant {
	return h.applicants.put(applicant.Record{
		ExternalID: externalID,
		Handle:     "handle-" + externalID,
		Name:       "Applicant " + externalID,
		Status:     applicant.StatusOnboarding,
		Criteria:   all(h.criteria),
		Questions:  all(h.questions),
		Onboarding: all(h.onboarding),
	})
}

func serviceCode(t *testing.T, err error) (int, string) {
	t.Helper()
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %v", err)
	return svcErr.Status, svcErr.Code
}

func TestCreateApplicant_StartsAtCriteria(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.CreateApplicant(operatorCtx(), CreateApplicantInput{Name: "Jordan Reyes", ExternalID: "4242", Handle: "jreyes"})
	require.NoError(t, err)
	assert.Equal(t, applicant.StatusCriteria, res.Applicant.Status())
	assert.Equal(t, 1, res.Applicant.CurrentStep())
	assert.False(t, res.Blacklist.Blocked)

	events := h.publisher.snapshot()
	require.Len(t, events, 1)
	created, ok := events[0].(*applicant.CreatedEvent)
	require.True(t, ok)
	assert.Equal(t, uint(7), created.OperatorID)
}

func TestCreateApplicant_RefusesBlacklistedHandle(t *testing.T) {
	h := newHarness(t)
	h.blacklist.add(blacklist.Entry{ExternalID: "1111", Handle: "Ghost", Reason: "cheating"})

	_, err := h.svc.CreateApplicant(context.Background(), CreateApplicantInput{Name: "Someone", ExternalID: "2222", Handle: "ghost"})
	status, code := serviceCode(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeBlacklisted, code)

	var blErr *BlacklistedError
	require.ErrorAs(t, err, &blErr)
	assert.Equal(t, "cheating", blErr.Reason)

	_, total, err := h.applicants.GetPaginated(context.Background(), &applicant.FindParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateApplicant_ReportsExpiredEntry(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-time.Hour)
	h.blacklist.add(blacklist.Entry{ExternalID: "2222", Reason: "old", ExpiresAt: &past})

	res, err := h.svc.CreateApplicant(context.Background(), CreateApplicantInput{Name: "Someone", ExternalID: "2222"})
	require.NoError(t, err)
	assert.False(t, res.Blacklist.Blocked)
	assert.True(t, res.Blacklist.Expired)
}

func TestUpdateCriteria_AdvancesIffEveryCriterionMet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for missing := range h.criteria {
		created, err := h.svc.CreateApplicant(ctx, CreateApplicantInput{Name: fmt.Sprintf("A%d", missing)})
		require.NoError(t, err)

		p := all(h.criteria)
		p[h.criteria[missing]] = false
		res, err := h.svc.UpdateCriteria(ctx, created.Applicant.ID(), p)
		require.NoError(t, err)
		assert.False(t, res.Advanced)
		assert.Equal(t, 1, res.Applicant.CurrentStep())

		stored, err := h.svc.GetApplicant(ctx, created.Applicant.ID())
		require.NoError(t, err)
		assert.Equal(t, applicant.StatusCriteria, stored.Status())
		assert.Equal(t, p, stored.Criteria(), "partial progress is persisted")
	}

	created, err := h.svc.CreateApplicant(ctx, CreateApplicantInput{Name: "Complete"})
	require.NoError(t, err)
	res, err := h.svc.UpdateCriteria(ctx, created.Applicant.ID(), all(h.criteria))
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, applicant.StatusQuestions, res.Applicant.Status())
	assert.Equal(t, 3, res.Satisfied)
	assert.Equal(t, 3, res.Required)
}

func TestUpdateQuestions_SeventyPercentBoundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	threshold := applicant.QuestionsThreshold(len(h.questions))
	require.Equal(t, 7, threshold)

	below := h.applicants.put(applicant.Record{Name: "Below", Status: applicant.StatusQuestions})
	res, err := h.svc.UpdateQuestions(ctx, below.ID(), firstN(h.questions, threshold-1))
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.Equal(t, applicant.StatusQuestions, res.Applicant.Status())
	assert.Equal(t, threshold, res.Required)

	at := h.applicants.put(applicant.Record{Name: "At", Status: applicant.StatusQuestions})
	res, err = h.svc.UpdateQuestions(ctx, at.ID(), firstN(h.questions, threshold))
	require.NoError(t, err)
	assert.True(t, res.Advanced)
	assert.Equal(t, applicant.StatusOnboarding, res.Applicant.Status())
}

func TestUpdateOnboarding_DoesNotComplete(t *testing.T) {
	h := newHarness(t)
	a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "1", Status: applicant.StatusOnboarding})

	res, err := h.svc.UpdateOnboarding(context.Background(), a.ID(), all(h.onboarding))
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.False(t, res.Advanced)
	assert.Equal(t, applicant.StatusOnboarding, res.Applicant.Status())
	assert.Zero(t, h.employees.count())
}

func TestUpdateStep_UnknownApplicant(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.UpdateCriteria(context.Background(), 404, applicant.Progress{})
	status, code := serviceCode(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, code)
}

func TestConfigFallback_CriteriaStepIsSatisfiable(t *testing.T) {
	h := newHarness(t)
	for _, it := range h.configs.items {
		if it.Kind() == configitem.KindCriteria {
			require.NoError(t, h.configs.Delete(context.Background(), it.ID()))
		}
	}
	h.cache.Invalidate(configitem.KindCriteria)

	fallback := h.cache.Get(context.Background(), configitem.KindCriteria)
	require.NotEmpty(t, fallback)
	require.Equal(t, configitem.Fallback(configitem.KindCriteria), fallback)

	created, err := h.svc.CreateApplicant(context.Background(), CreateApplicantInput{Name: "A"})
	require.NoError(t, err)
	res, err := h.svc.UpdateCriteria(context.Background(), created.Applicant.ID(), all(configitem.EntryIDs(fallback)))
	require.NoError(t, err)
	assert.True(t, res.Advanced)
}

func TestCompleteApplicant_HiresNewEmployee(t *testing.T) {
	h := newHarness(t, "role-police", "role-academy")
	a := h.readyApplicant("4242")

	res, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	require.NoError(t, err)

	assert.Equal(t, applicant.StatusCompleted, res.Applicant.Status())
	assert.Equal(t, 4, res.Applicant.CurrentStep())
	assert.Equal(t, uint(7), res.Applicant.ProcessedBy())
	assert.False(t, res.Reactivated)
	require.NotNil(t, res.BadgeNumber)
	assert.Equal(t, "AC-100", *res.BadgeNumber)
	assert.False(t, res.BadgeExhausted)

	assert.Equal(t, "Cadet", res.Employee.Rank())
	assert.Equal(t, employee.StatusActive, res.Employee.Status())
	assert.ElementsMatch(t, []string{"role-police", "role-academy"}, res.Identity.Granted)
	assert.Equal(t, "[AC-100] Applicant 4242", h.provider.nicknames["4242"])

	stored, err := h.svc.GetApplicant(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, applicant.StatusCompleted, stored.Status())
	assert.True(t, stored.IdentityRolesAssigned())

	var hired *employee.HiredEvent
	for _, ev := range h.publisher.snapshot() {
		if e, ok := ev.(*employee.HiredEvent); ok {
			hired = e
		}
	}
	require.NotNil(t, hired)
	assert.Equal(t, "AC-100", *hired.BadgeNumber)
	assert.Equal(t, "4242", hired.ExternalID)
	assert.Equal(t, 1, hired.RankLevel)
	assert.Equal(t, []BonusAction{BonusApplicantCompleted}, h.bonus.calls)
}

func TestCompleteApplicant_ReactivatesTerminatedEmployeeInPlace(t *testing.T) {
	h := newHarness(t)
	sergeant, ok := ranks.Lookup(7)
	require.True(t, ok)
	old := employee.NewHire("4242", "Jordan Reyes", sergeant, time.Now().Add(-365*24*time.Hour)).WithBadge("AC-100")
	old, err := old.Terminate("left", time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	seeded := h.employees.seed(old, 4)

	a := h.readyApplicant("4242")
	res, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	require.NoError(t, err)

	assert.True(t, res.Reactivated)
	assert.Equal(t, seeded.ID(), res.Employee.ID())
	assert.Equal(t, 1, h.employees.count())
	assert.Zero(t, h.employees.creates)
	assert.Equal(t, 4, h.employees.history[seeded.ID()])

	stored, err := h.employees.GetByID(context.Background(), seeded.ID())
	require.NoError(t, err)
	assert.Equal(t, employee.StatusActive, stored.Status())
	assert.Equal(t, "Cadet", stored.Rank())
	assert.Equal(t, 1, stored.RankLevel())
	assert.Equal(t, "AC-101", stored.Badge(), "the previous badge is not handed back")
}

func TestCompleteApplicant_RefusesActiveDuplicate(t *testing.T) {
	h := newHarness(t)
	tier, _ := ranks.Lookup(1)
	h.employees.seed(employee.NewHire("4242", "Jordan", tier, time.Now()), 0)
	a := h.readyApplicant("4242")

	_, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	status, code := serviceCode(t, err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeConflict, code)

	stored, err := h.svc.GetApplicant(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, applicant.StatusOnboarding, stored.Status())
	assert.Zero(t, h.provider.grantCount())
}

func TestCompleteApplicant_RechecksBlacklist(t *testing.T) {
	h := newHarness(t)
	a := h.readyApplicant("4242")
	h.blacklist.add(blacklist.Entry{ExternalID: "4242", Reason: "added after interview"})

	_, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	status, code := serviceCode(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeBlacklisted, code)
	assert.Zero(t, h.employees.count())
	assert.Empty(t, h.publisher.snapshot())
}

func TestCompleteApplicant_Preconditions(t *testing.T) {
	h := newHarness(t)

	noIdentity := h.applicants.put(applicant.Record{Name: "A", Status: applicant.StatusOnboarding, Onboarding: all(h.onboarding)})
	_, err := h.svc.CompleteApplicant(operatorCtx(), noIdentity.ID())
	status, code := serviceCode(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, code)
	assert.ErrorIs(t, err, applicant.ErrMissingExternalID)

	incomplete := h.applicants.put(applicant.Record{Name: "B", ExternalID: "9", Status: applicant.StatusOnboarding})
	_, err = h.svc.CompleteApplicant(operatorCtx(), incomplete.ID())
	assert.ErrorIs(t, err, applicant.ErrOnboardingIncomplete)

	early := h.applicants.put(applicant.Record{Name: "C", ExternalID: "8", Status: applicant.StatusQuestions})
	_, err = h.svc.CompleteApplicant(operatorCtx(), early.ID())
	_, code = serviceCode(t, err)
	assert.Equal(t, CodeInvalidState, code)

	assert.Zero(t, h.employees.count())
}

func TestCompleteApplicant_IdentityFailuresAreReportedNotFatal(t *testing.T) {
	h := newHarness(t, "role-ok", "role-broken")
	h.provider.failRoles["role-broken"] = true
	h.provider.nicknameErr = errors.New("cannot change owner nickname")
	a := h.readyApplicant("4242")

	res, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, applicant.StatusCompleted, res.Applicant.Status())
	assert.Equal(t, []string{"role-ok"}, res.Identity.Granted)
	require.Len(t, res.Identity.Failed, 1)
	assert.Equal(t, "role-broken", res.Identity.Failed[0].RoleID)
	assert.Contains(t, res.Identity.NicknameErr, "owner nickname")
	assert.True(t, res.Applicant.IdentityRolesAssigned())
}

func TestCompleteApplicant_NoRoleGrantedLeavesFlagUnset(t *testing.T) {
	h := newHarness(t, "role-broken")
	h.provider.failRoles["role-broken"] = true
	a := h.readyApplicant("4242")

	res, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	require.NoError(t, err)
	assert.Empty(t, res.Identity.Granted)

	stored, err := h.svc.GetApplicant(context.Background(), a.ID())
	require.NoError(t, err)
	assert.False(t, stored.IdentityRolesAssigned())
	assert.Equal(t, applicant.StatusCompleted, stored.Status())
}

func TestCompleteApplicant_ConcurrentHiresNeverShareABadge(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t)
	cadet, _ := ranks.Lookup(1)
	for n := 100; n < 190; n++ {
		e := employee.NewHire(fmt.Sprintf("old-%d", n), "Former", cadet, time.Now()).WithBadge(ranks.FormatBadge("AC", n))
		e, err := e.Terminate("left", time.Now())
		require.NoError(t, err)
		h.employees.seed(e, 0)
	}

	const hires = 50
	ids := make([]uint, hires)
	for i := range ids {
		ids[i] = h.readyApplicant(fmt.Sprintf("ext-%d", i)).ID()
	}

	results := make([]CompletionResult, hires)
	errs := make([]error, hires)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.CompleteApplicant(operatorCtx(), ids[i])
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	allocated, exhausted := 0, 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, applicant.StatusCompleted, results[i].Applicant.Status())
		if results[i].BadgeNumber == nil {
			assert.True(t, results[i].BadgeExhausted)
			exhausted++
			continue
		}
		badge := *results[i].BadgeNumber
		assert.False(t, seen[badge], "badge %s handed out twice", badge)
		seen[badge] = true
		_, n, ok := ranks.ParseBadge(badge)
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, 190)
		allocated++
	}
	assert.Equal(t, 10, allocated)
	assert.Equal(t, 40, exhausted)
}

func TestCompleteApplicant_OverlappingCompletionsHireOnce(t *testing.T) {
	h := newHarness(t)
	cadet, _ := ranks.Lookup(1)
	old, err := employee.NewHire("4242", "Jordan Reyes", cadet, time.Now().Add(-90*24*time.Hour)).
		Terminate("left", time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	h.employees.seed(old, 0)
	a := h.readyApplicant("4242")

	var (
		second    CompletionResult
		secondErr error
	)
	h.employees.afterLookup = func() {
		second, secondErr = h.svc.CompleteApplicant(operatorCtx(), a.ID())
	}

	_, firstErr := h.svc.CompleteApplicant(operatorCtx(), a.ID())

	require.NoError(t, secondErr)
	assert.True(t, second.Reactivated)
	status, code := serviceCode(t, firstErr)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeInvalidState, code)
	assert.ErrorIs(t, firstErr, applicant.ErrStatusChanged)

	assert.Equal(t, 1, h.provider.grantCount())
	assert.Len(t, h.bonus.calls, 1)
	assert.Equal(t, 1, h.outbox.count())
	assert.Equal(t, 1, h.employees.count())
}

func TestCompleteApplicant_SkipsRolesGrantedAfterCommit(t *testing.T) {
	h := newHarness(t, "role-police")
	a := h.readyApplicant("4242")
	h.outbox.onRecord = func(topic string) {
		if topic != TopicEmployeeHired {
			return
		}
		report, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
		require.NoError(t, err)
		assert.Equal(t, []string{"role-police"}, report.Granted)
	}

	res, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	require.NoError(t, err)
	assert.True(t, res.Identity.Skipped)
	assert.Empty(t, res.Identity.Granted)
	assert.True(t, res.Applicant.IdentityRolesAssigned())
	assert.Equal(t, "[AC-100] Applicant 4242", res.Identity.Nickname)
	assert.Equal(t, 1, h.provider.grantCount())
}

func TestAssignIdentityRoles_GrantsOnce(t *testing.T) {
	h := newHarness(t, "role-police")
	a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "4242", Status: applicant.StatusCompleted})

	first, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, []string{"role-police"}, first.Granted)

	second, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	assert.Equal(t, 1, h.provider.grantCount())
}

func TestAssignIdentityRoles_ConcurrentClicksGrantOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, "role-police")
	a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "4242", Status: applicant.StatusOnboarding})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, h.provider.grantCount())
}

func TestAssignIdentityRoles_RetriesAfterTotalFailure(t *testing.T) {
	h := newHarness(t, "role-police")
	h.provider.failRoles["role-police"] = true
	a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "4242", Status: applicant.StatusOnboarding})

	report, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Len(t, report.Failed, 1)

	h.provider.mu.Lock()
	h.provider.failRoles["role-police"] = false
	h.provider.mu.Unlock()

	report, err = h.svc.AssignIdentityRoles(context.Background(), a.ID())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, []string{"role-police"}, report.Granted)
}

func TestAssignIdentityRoles_RequiresIdentity(t *testing.T) {
	h := newHarness(t)
	a := h.applicants.put(applicant.Record{Name: "A", Status: applicant.StatusCriteria})
	_, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
	assert.ErrorIs(t, err, applicant.ErrMissingExternalID)
	assert.Zero(t, h.provider.grantCount())
}

func TestAssignIdentityRoles_KeepsProgressSavedDuringGrant(t *testing.T) {
	h := newHarness(t, "role-police")
	a := h.applicants.put(applicant.Record{
		Name:       "A",
		ExternalID: "4242",
		Status:     applicant.StatusQuestions,
		Criteria:   all(h.criteria),
	})

	var step StepResult
	h.provider.onGrant = func() {
		var err error
		step, err = h.svc.UpdateQuestions(context.Background(), a.ID(), all(h.questions))
		require.NoError(t, err)
	}

	report, err := h.svc.AssignIdentityRoles(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"role-police"}, report.Granted)
	require.True(t, step.Advanced)

	stored, err := h.svc.GetApplicant(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, applicant.StatusOnboarding, stored.Status())
	assert.Equal(t, len(h.questions), stored.Questions().Count(h.questions))
	assert.True(t, stored.IdentityRolesAssigned())
}

func TestRejectApplicant_BlacklistsExactlyOnce(t *testing.T) {
	h := newHarness(t)
	a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "4242", Handle: "jr", Status: applicant.StatusQuestions})
	in := RejectInput{Reason: "failed interview", AddToBlacklist: true}

	first, err := h.svc.RejectApplicant(operatorCtx(), a.ID(), in)
	require.NoError(t, err)
	assert.Equal(t, applicant.StatusRejected, first.Applicant.Status())
	assert.Equal(t, "failed interview", first.Applicant.RejectionReason())
	assert.True(t, first.BlacklistCreated)

	second, err := h.svc.RejectApplicant(operatorCtx(), a.ID(), in)
	require.NoError(t, err)
	assert.True(t, second.AlreadyRejected)
	assert.False(t, second.BlacklistCreated)

	assert.Equal(t, 1, h.blacklist.count())
	assert.Equal(t, []BonusAction{BonusApplicantRejected}, h.bonus.calls)
}

func TestRejectApplicant_SecondApplicantSameIdentity(t *testing.T) {
	h := newHarness(t)
	in := RejectInput{Reason: "spam", AddToBlacklist: true}
	for i := 0; i < 2; i++ {
		a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "4242", Status: applicant.StatusCriteria})
		_, err := h.svc.RejectApplicant(context.Background(), a.ID(), in)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.blacklist.count())
}

func TestRejectApplicant_CompletedIsTerminal(t *testing.T) {
	h := newHarness(t)
	a := h.applicants.put(applicant.Record{Name: "A", ExternalID: "4242", Status: applicant.StatusCompleted})
	_, err := h.svc.RejectApplicant(context.Background(), a.ID(), RejectInput{Reason: "x", AddToBlacklist: true})
	_, code := serviceCode(t, err)
	assert.Equal(t, CodeInvalidState, code)
	assert.Zero(t, h.blacklist.count())
}

func TestLinkIdentity(t *testing.T) {
	h := newHarness(t)
	a := h.applicants.put(applicant.Record{Name: "A", Status: applicant.StatusCriteria})
	h.blacklist.add(blacklist.Entry{ExternalID: "666", Reason: "ban evasion"})

	_, _, err := h.svc.LinkIdentity(context.Background(), a.ID(), "666", "whoever")
	_, code := serviceCode(t, err)
	assert.Equal(t, CodeBlacklisted, code)

	linked, _, err := h.svc.LinkIdentity(context.Background(), a.ID(), "4242", "jreyes")
	require.NoError(t, err)
	assert.Equal(t, "4242", linked.ExternalID())
	assert.Equal(t, "jreyes", linked.Handle())
}

func TestIssueInvite(t *testing.T) {
	h := newHarness(t)
	h.svc.opts.InviteTTL = time.Hour
	a := h.applicants.put(applicant.Record{Name: "A", Status: applicant.StatusCriteria})

	url, err := h.svc.IssueInvite(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, "https://discord.gg/abc123?ttl=3600&uses=1", url)

	linked := h.applicants.put(applicant.Record{Name: "B", ExternalID: "1", Status: applicant.StatusCriteria})
	_, err = h.svc.IssueInvite(context.Background(), linked.ID())
	_, code := serviceCode(t, err)
	assert.Equal(t, CodeValidation, code)

	h.provider.inviteErr = errors.New("discord down")
	_, err = h.svc.IssueInvite(context.Background(), a.ID())
	status, code := serviceCode(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, CodeIdentityUnavailable, code)
}

func TestDeleteApplicant(t *testing.T) {
	h := newHarness(t)
	a := h.applicants.put(applicant.Record{Name: "A", Status: applicant.StatusCriteria})

	deleted, err := h.svc.DeleteApplicant(context.Background(), a.ID())
	require.NoError(t, err)
	assert.Equal(t, a.ID(), deleted.ID())

	_, err = h.svc.GetApplicant(context.Background(), a.ID())
	assert.ErrorIs(t, err, applicant.ErrNotFound)
}

func TestListApplicants_FiltersByStatus(t *testing.T) {
	h := newHarness(t)
	h.applicants.put(applicant.Record{Name: "A", Status: applicant.StatusCriteria})
	h.applicants.put(applicant.Record{Name: "B", Status: applicant.StatusRejected})

	items, total, err := h.svc.ListApplicants(context.Background(), &applicant.FindParams{Status: applicant.StatusRejected, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Name())

	_, _, err = h.svc.ListApplicants(context.Background(), &applicant.FindParams{Status: "HIRED"})
	_, code := serviceCode(t, err)
	assert.Equal(t, CodeValidation, code)
}

func TestOutbox_RecordsCommittedOutcomesOnly(t *testing.T) {
	h := newHarness(t)
	ctx := operatorCtx()

	hired := h.readyApplicant("4242")
	_, err := h.svc.CompleteApplicant(ctx, hired.ID())
	require.NoError(t, err)

	blocked := h.readyApplicant("666")
	h.blacklist.add(blacklist.Entry{ExternalID: "666", Reason: "ban"})
	_, err = h.svc.CompleteApplicant(ctx, blocked.ID())
	require.Error(t, err)

	rejected := h.applicants.put(applicant.Record{Name: "R", ExternalID: "77", Status: applicant.StatusCriteria})
	_, err = h.svc.RejectApplicant(ctx, rejected.ID(), RejectInput{Reason: "no show"})
	require.NoError(t, err)
	_, err = h.svc.RejectApplicant(ctx, rejected.ID(), RejectInput{Reason: "no show"})
	require.NoError(t, err)

	assert.Equal(t, []string{TopicEmployeeHired, TopicApplicantRejected}, h.outbox.topics())

	payload, ok := h.outbox.records[1].Payload.(ApplicantRejectedPayload)
	require.True(t, ok)
	assert.Equal(t, rejected.ID(), payload.ApplicantID)
	assert.Equal(t, "no show", payload.Reason)
	assert.False(t, payload.Blacklisted)
}

func TestOutbox_FailureAbortsSideEffects(t *testing.T) {
	h := newHarness(t)
	h.outbox.err = errors.New("outbox insert failed")
	a := h.readyApplicant("4242")

	_, err := h.svc.CompleteApplicant(operatorCtx(), a.ID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox insert failed")
	assert.Zero(t, h.provider.grantCount(), "no side effects without a commit")
	assert.Empty(t, h.publisher.snapshot())
}
