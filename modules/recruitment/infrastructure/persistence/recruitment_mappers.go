package persistence

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/applicant"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/aggregates/employee"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/models"
)

func ToDomainConfigItem(m models.ConfigItem) configitem.Item {
	return configitem.Hydrate(m.ID, configitem.Kind(m.Kind), m.Label, m.IsActive, m.SortOrder, m.CreatedAt, m.UpdatedAt)
}

func ToDomainApplicant(m models.Applicant) (applicant.Applicant, error) {
	criteria, err := decodeProgress(m.Criteria)
	if err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "criteria")
	}
	questions, err := decodeProgress(m.Questions)
	if err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "questions")
	}
	onboarding, err := decodeProgress(m.Onboarding)
	if err != nil {
		return applicant.Applicant{}, errors.Wrap(err, "onboarding")
	}
	return applicant.Hydrate(applicant.Record{
		ID:                    m.ID,
		ExternalID:            m.ExternalID.String,
		Handle:                m.Handle,
		Name:                  m.Name,
		Status:                applicant.Status(m.Status),
		Criteria:              criteria,
		Questions:             questions,
		Onboarding:            onboarding,
		IdentityRolesAssigned: m.IdentityRolesAssigned,
		RejectionReason:       m.RejectionReason,
		ProcessedBy:           uint(m.ProcessedBy.Int64),
		ProcessedAt:           m.ProcessedAt.Time,
		Notes:                 m.Notes,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}), nil
}

func ToDBApplicant(a applicant.Applicant) (models.Applicant, error) {
	r := a.Record()
	criteria, err := json.Marshal(r.Criteria)
	if err != nil {
		return models.Applicant{}, err
	}
	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return models.Applicant{}, err
	}
	onboarding, err := json.Marshal(r.Onboarding)
	if err != nil {
		return models.Applicant{}, err
	}
	return models.Applicant{
		ID:                    r.ID,
		ExternalID:            nullString(r.ExternalID),
		Handle:                r.Handle,
		Name:                  r.Name,
		Status:                string(r.Status),
		Criteria:              criteria,
		Questions:             questions,
		Onboarding:            onboarding,
		IdentityRolesAssigned: r.IdentityRolesAssigned,
		RejectionReason:       r.RejectionReason,
		ProcessedBy:           nullUint(r.ProcessedBy),
		ProcessedAt:           nullTime(r.ProcessedAt),
		Notes:                 r.Notes,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}, nil
}

func ToDomainEmployee(m models.Employee) employee.Employee {
	var badge *string
	if m.BadgeNumber.Valid {
		v := m.BadgeNumber.String
		badge = &v
	}
	return employee.Hydrate(employee.Record{
		ID:                m.ID,
		ExternalID:        m.ExternalID,
		Name:              m.Name,
		Rank:              m.Rank,
		RankLevel:         m.RankLevel,
		BadgeNumber:       badge,
		Department:        m.Department,
		Status:            employee.Status(m.Status),
		HireDate:          m.HireDate,
		TerminatedAt:      m.TerminatedAt.Time,
		TerminationReason: m.TerminationReason,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	})
}

func ToDBEmployee(e employee.Employee) models.Employee {
	r := e.Record()
	var badge sql.NullString
	if r.BadgeNumber != nil {
		badge = sql.NullString{String: *r.BadgeNumber, Valid: true}
	}
	return models.Employee{
		ID:                r.ID,
		ExternalID:        r.ExternalID,
		Name:              r.Name,
		Rank:              r.Rank,
		RankLevel:         r.RankLevel,
		BadgeNumber:       badge,
		Department:        r.Department,
		Status:            string(r.Status),
		HireDate:          r.HireDate,
		TerminatedAt:      nullTime(r.TerminatedAt),
		TerminationReason: r.TerminationReason,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func ToDomainBlacklistEntry(m models.BlacklistEntry) blacklist.Entry {
	e := blacklist.Entry{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Handle:     m.Handle,
		Reason:     m.Reason,
		CreatedBy:  uint(m.CreatedBy.Int64),
		CreatedAt:  m.CreatedAt,
	}
	if m.ExpiresAt.Valid {
		t := m.ExpiresAt.Time
		e.ExpiresAt = &t
	}
	return e
}

func ToDBBlacklistEntry(e blacklist.Entry) models.BlacklistEntry {
	m := models.BlacklistEntry{
		ID:         e.ID,
		ExternalID: e.ExternalID,
		Handle:     e.Handle,
		Reason:     e.Reason,
		CreatedBy:  nullUint(e.CreatedBy),
		CreatedAt:  e.CreatedAt,
	}
	if e.ExpiresAt != nil {
		m.ExpiresAt = sql.NullTime{Time: *e.ExpiresAt, Valid: true}
	}
	return m
}

func decodeProgress(raw []byte) (applicant.Progress, error) {
	p := applicant.Progress{}
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullUint(v uint) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
