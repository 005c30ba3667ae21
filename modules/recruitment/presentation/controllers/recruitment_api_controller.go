package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/presentation/controllers/dtos"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/presentation/viewmodels"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/application"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/httpapi"
)

const memberSearchDefaultLimit = 10

type onboarding interface {
	GetApplicant(ctx context.Context, id uint) (applicant.Applicant, error)
	ListApplicants(ctx context.Context, params *applicant.FindParams) ([]applicant.Applicant, int64, error)
	CreateApplicant(ctx context.Context, in services.CreateApplicantInput) (services.CreateApplicantResult, error)
	UpdateCriteria(ctx context.Context, id uint, snapshot applicant.Progress) (services.StepResult, error)
	UpdateQuestions(ctx context.Context, id uint, snapshot applicant.Progress) (services.StepResult, error)
	UpdateOnboarding(ctx context.Context, id uint, snapshot applicant.Progress) (services.StepResult, error)
	LinkIdentity(ctx context.Context, id uint, externalID, handle string) (applicant.Applicant, services.BlacklistCheck, error)
	FindMember(ctx context.Context, query string, limit int) ([]services.Member, error)
	IssueInvite(ctx context.Context, id uint) (string, error)
	AssignIdentityRoles(ctx context.Context, id uint) (services.IdentitySyncReport, error)
	CompleteApplicant(ctx context.Context, id uint) (services.CompletionResult, error)
	RejectApplicant(ctx context.Context, id uint, in services.RejectInput) (services.RejectResult, error)
	DeleteApplicant(ctx context.Context, id uint) (applicant.Applicant, error)
}

type configItems interface {
	List(ctx context.Context, kind configitem.Kind) ([]configitem.Item, error)
	Create(ctx context.Context, in services.ConfigItemInput) (configitem.Item, error)
	Update(ctx context.Context, id uint, label string, sortOrder int) (configitem.Item, error)
	Toggle(ctx context.Context, id uint) (configitem.Item, error)
	Delete(ctx context.Context, id uint) (configitem.Item, error)
}

type activeConfig interface {
	Get(ctx context.Context, kind configitem.Kind) []configitem.Entry
}

type blacklistAPI interface {
	Add(ctx context.Context, in services.BlacklistInput) (blacklist.Entry, bool, error)
	Remove(ctx context.Context, id uint) error
	List(ctx context.Context) ([]blacklist.Entry, error)
	Check(ctx context.Context, externalID, handle string) (services.BlacklistCheck, error)
}

type employees interface {
	GetByID(ctx context.Context, id uint) (employee.Employee, error)
	GetPaginated(ctx context.Context, params *employee.FindParams) ([]employee.Employee, int64, error)
	HistoryCount(ctx context.Context, id uint) (int, error)
	Terminate(ctx context.Context, id uint, reason string) (employee.Employee, error)
	NextBadge(ctx context.Context, rankLevel int) (string, bool, error)
}

type RecruitmentAPIController struct {
	onboarding onboarding
	config     configItems
	active     activeConfig
	blacklist  blacklistAPI
	employees  employees
	apiPrefix  string
	now        func() time.Time
}

func NewRecruitmentAPIController(app application.Application) application.Controller {
	return &RecruitmentAPIController{
		onboarding: app.Service(services.OnboardingService{}).(*services.OnboardingService),
		config:     app.Service(services.ConfigItemService{}).(*services.ConfigItemService),
		active:     app.Service(services.ConfigCache{}).(*services.ConfigCache),
		blacklist:  app.Service(services.BlacklistService{}).(*services.BlacklistService),
		employees:  app.Service(services.EmployeeService{}).(*services.EmployeeService),
		apiPrefix:  "/api/recruitment",
		now:        time.Now,
	}
}

func (c *RecruitmentAPIController) Key() string {
	return c.apiPrefix
}

func (c *RecruitmentAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/applicants", c.instrumentAPI("applicants.list", c.ListApplicants)).Methods(http.MethodGet)
	api.HandleFunc("/applicants", c.instrumentAPI("applicants.create", c.CreateApplicant)).Methods(http.MethodPost)
	api.HandleFunc("/applicants/{id:[0-9]+}", c.instrumentAPI("applicants.get", c.GetApplicant)).Methods(http.MethodGet)
	api.HandleFunc("/applicants/{id:[0-9]+}", c.instrumentAPI("applicants.delete", c.DeleteApplicant)).Methods(http.MethodDelete)
	api.HandleFunc("/applicants/{id:[0-9]+}/criteria", c.instrumentAPI("applicants.criteria", c.UpdateCriteria)).Methods(http.MethodPut)
	api.HandleFunc("/applicants/{id:[0-9]+}/questions", c.instrumentAPI("applicants.questions", c.UpdateQuestions)).Methods(http.MethodPut)
	api.HandleFunc("/applicants/{id:[0-9]+}/onboarding", c.instrumentAPI("applicants.onboarding", c.UpdateOnboarding)).Methods(http.MethodPut)
	api.HandleFunc("/applicants/{id:[0-9]+}/identity", c.instrumentAPI("applicants.identity", c.LinkIdentity)).Methods(http.MethodPost)
	api.HandleFunc("/applicants/{id:[0-9]+}/invite", c.instrumentAPI("applicants.invite", c.IssueInvite)).Methods(http.MethodPost)
	api.HandleFunc("/applicants/{id:[0-9]+}/roles", c.instrumentAPI("applicants.roles", c.AssignRoles)).Methods(http.MethodPost)
	api.HandleFunc("/applicants/{id:[0-9]+}/complete", c.instrumentAPI("applicants.complete", c.CompleteApplicant)).Methods(http.MethodPost)
	api.HandleFunc("/applicants/{id:[0-9]+}/reject", c.instrumentAPI("applicants.reject", c.RejectApplicant)).Methods(http.MethodPost)
	api.HandleFunc("/members", c.instrumentAPI("members.search", c.SearchMembers)).Methods(http.MethodGet)

	api.HandleFunc("/config/items/{id:[0-9]+}", c.instrumentAPI("config.update", c.UpdateConfigItem)).Methods(http.MethodPatch)
	api.HandleFunc("/config/items/{id:[0-9]+}", c.instrumentAPI("config.delete", c.DeleteConfigItem)).Methods(http.MethodDelete)
	api.HandleFunc("/config/items/{id:[0-9]+}/toggle", c.instrumentAPI("config.toggle", c.ToggleConfigItem)).Methods(http.MethodPost)
	api.HandleFunc("/config/{kind}", c.instrumentAPI("config.list", c.ListConfigItems)).Methods(http.MethodGet)
	api.HandleFunc("/config/{kind}", c.instrumentAPI("config.create", c.CreateConfigItem)).Methods(http.MethodPost)
	api.HandleFunc("/config/{kind}/active", c.instrumentAPI("config.active", c.ActiveConfigItems)).Methods(http.MethodGet)

	api.HandleFunc("/blacklist", c.instrumentAPI("blacklist.list", c.ListBlacklist)).Methods(http.MethodGet)
	api.HandleFunc("/blacklist", c.instrumentAPI("blacklist.add", c.AddBlacklist)).Methods(http.MethodPost)
	api.HandleFunc("/blacklist/check", c.instrumentAPI("blacklist.check", c.CheckBlacklist)).Methods(http.MethodGet)
	api.HandleFunc("/blacklist/{id:[0-9]+}", c.instrumentAPI("blacklist.remove", c.RemoveBlacklist)).Methods(http.MethodDelete)

	api.HandleFunc("/employees", c.instrumentAPI("employees.list", c.ListEmployees)).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id:[0-9]+}", c.instrumentAPI("employees.get", c.GetEmployee)).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id:[0-9]+}/terminate", c.instrumentAPI("employees.terminate", c.TerminateEmployee)).Methods(http.MethodPost)
	api.HandleFunc("/badges/next", c.instrumentAPI("badges.next", c.NextBadge)).Methods(http.MethodGet)
	api.HandleFunc("/ranks", c.instrumentAPI("ranks.list", c.ListRanks)).Methods(http.MethodGet)
}

func (c *RecruitmentAPIController) ListApplicants(w http.ResponseWriter, r *http.Request) {
	page := composables.UsePaginated(r)
	params := &applicant.FindParams{
		Status: applicant.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	items, total, err := c.onboarding.ListApplicants(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.Page[viewmodels.Applicant]{
		Items:  viewmodels.ApplicantsToViewModels(items),
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (c *RecruitmentAPIController) CreateApplicant(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateApplicantDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationError(w, r, errs)
		return
	}
	res, err := c.onboarding.CreateApplicant(r.Context(), dto.ToInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type createApplicantResponse struct {
		Applicant viewmodels.Applicant    `json:"applicant"`
		Blacklist services.BlacklistCheck `json:"blacklist"`
	}
	writeJSON(w, http.StatusCreated, createApplicantResponse{
		Applicant: viewmodels.ApplicantToViewModel(res.Applicant),
		Blacklist: res.Blacklist,
	})
}

func (c *RecruitmentAPIController) GetApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := c.onboarding.GetApplicant(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ApplicantToViewModel(a))
}

func (c *RecruitmentAPIController) DeleteApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := c.onboarding.DeleteApplicant(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ApplicantToViewModel(a))
}

type stepHandler func(ctx context.Context, id uint, snapshot applicant.Progress) (services.StepResult, error)

func (c *RecruitmentAPIController) updateStep(w http.ResponseWriter, r *http.Request, fn stepHandler) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.ProgressDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationError(w, r, errs)
		return
	}
	res, err := fn(r.Context(), id, applicant.Progress(dto.Progress))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.StepResultToViewModel(res))
}

func (c *RecruitmentAPIController) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	c.updateStep(w, r, c.onboarding.UpdateCriteria)
}

func (c *RecruitmentAPIController) UpdateQuestions(w http.ResponseWriter, r *http.Request) {
	c.updateStep(w, r, c.onboarding.UpdateQuestions)
}

func (c *RecruitmentAPIController) UpdateOnboarding(w http.ResponseWriter, r *http.Request) {
	c.updateStep(w, r, c.onboarding.UpdateOnboarding)
}

func (c *RecruitmentAPIController) LinkIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.LinkIdentityDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationError(w, r, errs)
		return
	}
	a, check, err := c.onboarding.LinkIdentity(r.Context(), id, dto.ExternalID, dto.Handle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type linkIdentityResponse struct {
		Applicant viewmodels.Applicant    `json:"applicant"`
		Blacklist services.BlacklistCheck `json:"blacklist"`
	}
	writeJSON(w, http.StatusOK, linkIdentityResponse{
		Applicant: viewmodels.ApplicantToViewModel(a),
		Blacklist: check,
	})
}

func (c *RecruitmentAPIController) IssueInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	url, err := c.onboarding.IssueInvite(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (c *RecruitmentAPIController) AssignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := c.onboarding.AssignIdentityRoles(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (c *RecruitmentAPIController) CompleteApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := c.onboarding.CompleteApplicant(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.CompletionResultToViewModel(res))
}

func (c *RecruitmentAPIController) RejectApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.RejectApplicantDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(c.now()); !ok {
		writeValidationError(w, r, errs)
		return
	}
	res, err := c.onboarding.RejectApplicant(r.Context(), id, dto.ToInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.RejectResultToViewModel(res))
}

func (c *RecruitmentAPIController) SearchMembers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "q is required", nil)
		return
	}
	limit := memberSearchDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "limit is invalid", nil)
			return
		}
		limit = n
	}
	members, err := c.onboarding.FindMember(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if members == nil {
		members = []services.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (c *RecruitmentAPIController) ListConfigItems(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	items, err := c.config.List(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ConfigItemsToViewModels(items))
}

func (c *RecruitmentAPIController) ActiveConfigItems(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.active.Get(r.Context(), kind))
}

func (c *RecruitmentAPIController) CreateConfigItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	var dto dtos.ConfigItemDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationError(w, r, errs)
		return
	}
	it, err := c.config.Create(r.Context(), services.ConfigItemInput{Kind: kind, Label: dto.Label, SortOrder: dto.SortOrder})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewmodels.ConfigItemToViewModel(it))
}

func (c *RecruitmentAPIController) UpdateConfigItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.ConfigItemDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationError(w, r, errs)
		return
	}
	it, err := c.config.Update(r.Context(), id, dto.Label, dto.SortOrder)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ConfigItemToViewModel(it))
}

func (c *RecruitmentAPIController) ToggleConfigItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := c.config.Toggle(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ConfigItemToViewModel(it))
}

func (c *RecruitmentAPIController) DeleteConfigItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := c.config.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.ConfigItemToViewModel(it))
}

func (c *RecruitmentAPIController) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := c.blacklist.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	now := c.now()
	out := make([]viewmodels.BlacklistEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewmodels.BlacklistEntryToViewModel(e, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *RecruitmentAPIController) AddBlacklist(w http.ResponseWriter, r *http.Request) {
	var dto dtos.BlacklistDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	now := c.now()
	if errs, ok := dto.Ok(now); !ok {
		writeValidationError(w, r, errs)
		return
	}
	entry, created, err := c.blacklist.Add(r.Context(), dto.ToInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, viewmodels.BlacklistEntryToViewModel(entry, now))
}

func (c *RecruitmentAPIController) RemoveBlacklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.blacklist.Remove(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RecruitmentAPIController) CheckBlacklist(w http.ResponseWriter, r *http.Request) {
	externalID := strings.TrimSpace(r.URL.Query().Get("externalId"))
	handle := strings.TrimSpace(r.URL.Query().Get("handle"))
	if externalID == "" && handle == "" {
		writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "externalId or handle is required", nil)
		return
	}
	check, err := c.blacklist.Check(r.Context(), externalID, handle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (c *RecruitmentAPIController) ListEmployees(w http.ResponseWriter, r *http.Request) {
	page := composables.UsePaginated(r)
	params := &employee.FindParams{
		Status: employee.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	items, total, err := c.employees.GetPaginated(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.Page[viewmodels.Employee]{
		Items:  viewmodels.EmployeesToViewModels(items),
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (c *RecruitmentAPIController) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := c.employees.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	vm := viewmodels.EmployeeToViewModel(e)
	n, err := c.employees.HistoryCount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	vm.HistoryCount = &n
	writeJSON(w, http.StatusOK, vm)
}

func (c *RecruitmentAPIController) TerminateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto dtos.TerminateEmployeeDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	if errs, ok := dto.Ok(); !ok {
		writeValidationError(w, r, errs)
		return
	}
	e, err := c.employees.Terminate(r.Context(), id, dto.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewmodels.EmployeeToViewModel(e))
}

func (c *RecruitmentAPIController) NextBadge(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.URL.Query().Get("rankLevel"))
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "rankLevel is invalid", nil)
		return
	}
	badge, ok, err := c.employees.NextBadge(r.Context(), level)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type nextBadgeResponse struct {
		RankLevel   int     `json:"rankLevel"`
		BadgeNumber *string `json:"badgeNumber"`
		Exhausted   bool    `json:"exhausted"`
	}
	resp := nextBadgeResponse{RankLevel: level, Exhausted: !ok}
	if ok {
		resp.BadgeNumber = &badge
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *RecruitmentAPIController) ListRanks(w http.ResponseWriter, r *http.Request) {
	type rankResponse struct {
		Level int    `json:"level"`
		Name  string `json:"name"`
		Team  string `json:"team"`
		Badge string `json:"badgeRange"`
	}
	tiers := ranks.All()
	out := make([]rankResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, rankResponse{Level: t.Level, Name: t.Name, Team: t.Team, Badge: t.Badge.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "id is invalid", nil)
		return 0, false
	}
	return uint(id), true
}

func pathKind(w http.ResponseWriter, r *http.Request) (configitem.Kind, bool) {
	kind, err := configitem.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "kind is invalid", nil)
		return "", false
	}
	return kind, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpapi.DecodeJSON(r.Body, dst); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "invalid json body", nil)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	writeAPIError(w, r, http.StatusBadRequest, services.CodeValidation, "validation failed", fields)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		composables.UseLogger(r.Context()).WithError(err).Error("recruitment api: unhandled error")
		writeAPIError(w, r, http.StatusInternalServerError, services.CodeInternal, "internal error", nil)
		return
	}
	meta := map[string]string{}
	var blocked *services.BlacklistedError
	if errors.As(svcErr, &blocked) {
		meta["reason"] = blocked.Reason
		if blocked.ExpiresAt != nil {
			meta["expiresAt"] = blocked.ExpiresAt.UTC().Format(time.RFC3339)
		}
	} else if svcErr.Cause != nil && svcErr.Status < http.StatusInternalServerError {
		meta["detail"] = svcErr.Cause.Error()
	}
	writeAPIError(w, r, svcErr.Status, svcErr.Code, svcErr.Message, meta)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	if requestID := composables.UseRequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	if len(meta) == 0 {
		meta = nil
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
