package viewmodels

import (
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
)

type Applicant struct {
	ID                    uint            `json:"id"`
	ExternalID            string          `json:"externalId,omitempty"`
	Handle                string          `json:"handle,omitempty"`
	Name                  string          `json:"name"`
	Status                string          `json:"status"`
	CurrentStep           int             `json:"currentStep"`
	Criteria              map[string]bool `json:"criteria"`
	Questions             map[string]bool `json:"questions"`
	Onboarding            map[string]bool `json:"onboarding"`
	IdentityRolesAssigned bool            `json:"identityRolesAssigned"`
	RejectionReason       string          `json:"rejectionReason,omitempty"`
	ProcessedBy           uint            `json:"processedBy,omitempty"`
	ProcessedAt           *time.Time      `json:"processedAt,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func ApplicantToViewModel(a applicant.Applicant) Applicant {
	vm := Applicant{
		ID:                    a.ID(),
		ExternalID:            a.ExternalID(),
		Handle:                a.Handle(),
		Name:                  a.Name(),
		Status:                string(a.Status()),
		CurrentStep:           a.CurrentStep(),
		Criteria:              a.Criteria(),
		Questions:             a.Questions(),
		Onboarding:            a.Onboarding(),
		IdentityRolesAssigned: a.IdentityRolesAssigned(),
		RejectionReason:       a.RejectionReason(),
		ProcessedBy:           a.ProcessedBy(),
		Notes:                 a.Notes(),
		CreatedAt:             a.CreatedAt(),
		UpdatedAt:             a.UpdatedAt(),
	}
	if t := a.ProcessedAt(); !t.IsZero() {
		vm.ProcessedAt = &t
	}
	return vm
}

func ApplicantsToViewModels(items []applicant.Applicant) []Applicant {
	out := make([]Applicant, 0, len(items))
	for _, a := range items {
		out = append(out, ApplicantToViewModel(a))
	}
	return out
}

type Employee struct {
	ID                uint       `json:"id"`
	ExternalID        string     `json:"externalId"`
	Name              string     `json:"name"`
	Rank              string     `json:"rank"`
	RankLevel         int        `json:"rankLevel"`
	BadgeNumber       *string    `json:"badgeNumber"`
	Department        string     `json:"department"`
	Status            string     `json:"status"`
	HireDate          time.Time  `json:"hireDate"`
	TerminatedAt      *time.Time `json:"terminatedAt,omitempty"`
	TerminationReason string     `json:"terminationReason,omitempty"`
	HistoryCount      *int       `json:"historyCount,omitempty"`
}

func EmployeeToViewModel(e employee.Employee) Employee {
	vm := Employee{
		ID:                e.ID(),
		ExternalID:        e.ExternalID(),
		Name:              e.Name(),
		Rank:              e.Rank(),
		RankLevel:         e.RankLevel(),
		BadgeNumber:       e.BadgeNumber(),
		Department:        e.Department(),
		Status:            string(e.Status()),
		HireDate:          e.HireDate(),
		TerminationReason: e.TerminationReason(),
	}
	if t := e.TerminatedAt(); !t.IsZero() {
		vm.TerminatedAt = &t
	}
	return vm
}

func EmployeesToViewModels(items []employee.Employee) []Employee {
	out := make([]Employee, 0, len(items))
	for _, e := range items {
		out = append(out, EmployeeToViewModel(e))
	}
	return out
}

type ConfigItem struct {
	ID        uint   `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	IsActive  bool   `json:"isActive"`
	SortOrder int    `json:"sortOrder"`
}

func ConfigItemToViewModel(it configitem.Item) ConfigItem {
	return ConfigItem{
		ID:        it.ID(),
		Kind:      string(it.Kind()),
		Label:     it.Label(),
		IsActive:  it.IsActive(),
		SortOrder: it.SortOrder(),
	}
}

func ConfigItemsToViewModels(items []configitem.Item) []ConfigItem {
	out := make([]ConfigItem, 0, len(items))
	for _, it := range items {
		out = append(out, ConfigItemToViewModel(it))
	}
	return out
}

type BlacklistEntry struct {
	ID         uint       `json:"id"`
	ExternalID string     `json:"externalId,omitempty"`
	Handle     string     `json:"handle,omitempty"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Active     bool       `json:"active"`
	CreatedBy  uint       `json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func BlacklistEntryToViewModel(e blacklist.Entry, now time.Time) BlacklistEntry {
	return BlacklistEntry{
		ID:         e.ID,
		ExternalID: e.ExternalID,
		Handle:     e.Handle,
		Reason:     e.Reason,
		ExpiresAt:  e.ExpiresAt,
		Active:     e.IsActive(now),
		CreatedBy:  e.CreatedBy,
		CreatedAt:  e.CreatedAt,
	}
}

type StepResult struct {
	Applicant Applicant `json:"applicant"`
	Advanced  bool      `json:"advanced"`
	Ready     bool      `json:"ready"`
	Satisfied int       `json:"satisfied"`
	Required  int       `json:"required"`
	Total     int       `json:"total"`
}

func StepResultToViewModel(r services.StepResult) StepResult {
	return StepResult{
		Applicant: ApplicantToViewModel(r.Applicant),
		Advanced:  r.Advanced,
		Ready:     r.Ready,
		Satisfied: r.Satisfied,
		Required:  r.Required,
		Total:     r.Total,
	}
}

type CompletionResult struct {
	Applicant      Applicant                   `json:"applicant"`
	Employee       Employee                    `json:"employee"`
	Reactivated    bool                        `json:"reactivated"`
	BadgeNumber    *string                     `json:"badgeNumber"`
	BadgeExhausted bool                        `json:"badgeExhausted"`
	Identity       services.IdentitySyncReport `json:"identity"`
}

func CompletionResultToViewModel(r services.CompletionResult) CompletionResult {
	return CompletionResult{
		Applicant:      ApplicantToViewModel(r.Applicant),
		Employee:       EmployeeToViewModel(r.Employee),
		Reactivated:    r.Reactivated,
		BadgeNumber:    r.BadgeNumber,
		BadgeExhausted: r.BadgeExhausted,
		Identity:       r.Identity,
	}
}

type RejectResult struct {
	Applicant        Applicant `json:"applicant"`
	Blacklisted      bool      `json:"blacklisted"`
	BlacklistCreated bool      `json:"blacklistCreated"`
	AlreadyRejected  bool      `json:"alreadyRejected"`
}

func RejectResultToViewModel(r services.RejectResult) RejectResult {
	return RejectResult{
		Applicant:        ApplicantToViewModel(r.Applicant),
		Blacklisted:      r.Blacklisted,
		BlacklistCreated: r.BlacklistCreated,
		AlreadyRejected:  r.AlreadyRejected,
	}
}

// Page wraps a list response with its unpaginated total.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
