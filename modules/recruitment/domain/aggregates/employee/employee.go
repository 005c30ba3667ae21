package employee

import (
	"strings"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/serrors"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

var (
	ErrNotFound          = serrors.NewError("EMPLOYEE_NOT_FOUND", "employee not found", "Employees.Errors.NotFound")
	ErrAlreadyActive     = serrors.NewError("EMPLOYEE_ALREADY_ACTIVE", "an active employee already exists for this identity", "Employees.Errors.AlreadyActive")
	ErrAlreadyInactive   = serrors.NewError("EMPLOYEE_ALREADY_INACTIVE", "employee is already inactive", "Employees.Errors.AlreadyInactive")
	ErrBadgeTaken        = serrors.NewError("EMPLOYEE_BADGE_TAKEN", "badge number is already assigned", "")
	ErrDuplicateIdentity = serrors.NewError("EMPLOYEE_DUPLICATE_IDENTITY", "an employee with this external identity already exists", "")
)

type Record struct {
	ID                uint
	ExternalID        string
	Name              string
	Rank              string
	RankLevel         int
	BadgeNumber       *string
	Department        string
	Status            Status
	HireDate          time.Time
	TerminatedAt      time.Time
	TerminationReason string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Employee is keyed 1:1 by external identity. It is never deleted: terminated
// employees turn inactive and are reactivated in place on rehire.
type Employee struct {
	id                uint
	externalID        string
	name              string
	rank              string
	rankLevel         int
	badgeNumber       *string
	department        string
	status            Status
	hireDate          time.Time
	terminatedAt      time.Time
	terminationReason string
	notes             string
	createdAt         time.Time
	updatedAt         time.Time
}

func NewHire(externalID, name string, tier ranks.Tier, now time.Time) Employee {
	return Employee{
		externalID: strings.TrimSpace(externalID),
		name:       strings.TrimSpace(name),
		rank:       tier.Name,
		rankLevel:  tier.Level,
		department: tier.Team,
		status:     StatusActive,
		hireDate:   now,
		createdAt:  now,
		updatedAt:  now,
	}
}

func Hydrate(r Record) Employee {
	return Employee{
		id:                r.ID,
		externalID:        r.ExternalID,
		name:              r.Name,
		rank:              r.Rank,
		rankLevel:         r.RankLevel,
		badgeNumber:       copyBadge(r.BadgeNumber),
		department:        r.Department,
		status:            r.Status,
		hireDate:          r.HireDate,
		terminatedAt:      r.TerminatedAt,
		terminationReason: r.TerminationReason,
		notes:             r.Notes,
		createdAt:         r.CreatedAt,
		updatedAt:         r.UpdatedAt,
	}
}

func (e Employee) Record() Record {
	return Record{
		ID:                e.id,
		ExternalID:        e.externalID,
		Name:              e.name,
		Rank:              e.rank,
		RankLevel:         e.rankLevel,
		BadgeNumber:       copyBadge(e.badgeNumber),
		Department:        e.department,
		Status:            e.status,
		HireDate:          e.hireDate,
		TerminatedAt:      e.terminatedAt,
		TerminationReason: e.terminationReason,
		Notes:             e.notes,
		CreatedAt:         e.createdAt,
		UpdatedAt:         e.updatedAt,
	}
}

func copyBadge(b *string) *string {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func (e Employee) ID() uint                  { return e.id }
func (e Employee) ExternalID() string        { return e.externalID }
func (e Employee) Name() string              { return e.name }
func (e Employee) Rank() string              { return e.rank }
func (e Employee) RankLevel() int            { return e.rankLevel }
func (e Employee) BadgeNumber() *string      { return copyBadge(e.badgeNumber) }
func (e Employee) Department() string        { return e.department }
func (e Employee) Status() Status            { return e.status }
func (e Employee) HireDate() time.Time       { return e.hireDate }
func (e Employee) TerminatedAt() time.Time   { return e.terminatedAt }
func (e Employee) TerminationReason() string { return e.terminationReason }
func (e Employee) Notes() string             { return e.notes }
func (e Employee) CreatedAt() time.Time      { return e.createdAt }
func (e Employee) UpdatedAt() time.Time      { return e.updatedAt }
func (e Employee) IsActive() bool            { return e.status == StatusActive }

// Badge returns the badge number or "" when none is assigned.
func (e Employee) Badge() string {
	if e.badgeNumber == nil {
		return ""
	}
	return *e.badgeNumber
}

func (e Employee) WithID(id uint) Employee {
	e.id = id
	return e
}

func (e Employee) WithBadge(badge string) Employee {
	e.badgeNumber = &badge
	return e
}

func (e Employee) WithoutBadge() Employee {
	e.badgeNumber = nil
	return e
}

// Reactivate rehires a terminated employee in place at tier. The previous badge
// stays on the row until the caller claims a replacement, so the allocator
// never hands the same number back.
func (e Employee) Reactivate(name string, tier ranks.Tier, now time.Time) (Employee, error) {
	if e.IsActive() {
		return e, ErrAlreadyActive
	}
	if n := strings.TrimSpace(name); n != "" {
		e.name = n
	}
	e.rank = tier.Name
	e.rankLevel = tier.Level
	e.department = tier.Team
	e.status = StatusActive
	e.hireDate = now
	e.notes = ""
	e.terminatedAt = time.Time{}
	e.terminationReason = ""
	e.updatedAt = now
	return e, nil
}

func (e Employee) Terminate(reason string, now time.Time) (Employee, error) {
	if !e.IsActive() {
		return e, ErrAlreadyInactive
	}
	e.status = StatusInactive
	e.terminatedAt = now
	e.terminationReason = strings.TrimSpace(reason)
	e.updatedAt = now
	return e, nil
}
