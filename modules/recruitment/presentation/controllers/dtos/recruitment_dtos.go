package dtos

import (
	"strings"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/httpapi"
)

type CreateApplicantDTO struct {
	Name       string `json:"name" validate:"required,max=255"`
	ExternalID string `json:"externalId" validate:"omitempty,numeric,max=64"`
	Handle     string `json:"handle" validate:"max=255"`
	Notes      string `json:"notes" validate:"max=2000"`
}

func (d *CreateApplicantDTO) Ok() (map[string]string, bool) {
	d.Name = strings.TrimSpace(d.Name)
	d.ExternalID = strings.TrimSpace(d.ExternalID)
	errs := httpapi.FieldErrors(d)
	return errs, len(errs) == 0
}

func (d *CreateApplicantDTO) ToInput() services.CreateApplicantInput {
	return services.CreateApplicantInput{
		Name:       d.Name,
		ExternalID: d.ExternalID,
		Handle:     d.Handle,
		Notes:      d.Notes,
	}
}

// ProgressDTO carries a full step snapshot keyed by configuration item id.
type ProgressDTO struct {
	Progress map[string]bool `json:"progress" validate:"required"`
}

func (d *ProgressDTO) Ok() (map[string]string, bool) {
	errs := httpapi.FieldErrors(d)
	return errs, len(errs) == 0
}

type LinkIdentityDTO struct {
	ExternalID string `json:"externalId" validate:"required,numeric,max=64"`
	Handle     string `json:"handle" validate:"max=255"`
}

func (d *LinkIdentityDTO) Ok() (map[string]string, bool) {
	d.ExternalID = strings.TrimSpace(d.ExternalID)
	errs := httpapi.FieldErrors(d)
	return errs, len(errs) == 0
}

type RejectApplicantDTO struct {
	Reason         string     `json:"reason" validate:"max=2000"`
	AddToBlacklist bool       `json:"addToBlacklist"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

func (d *RejectApplicantDTO) Ok(now time.Time) (map[string]string, bool) {
	errs := httpapi.FieldErrors(d)
	if d.ExpiresAt != nil {
		if !d.AddToBlacklist {
			errs["expiresAt"] = "requires addToBlacklist"
		} else if !d.ExpiresAt.After(now) {
			errs["expiresAt"] = "future"
		}
	}
	return errs, len(errs) == 0
}

func (d *RejectApplicantDTO) ToInput() services.RejectInput {
	return services.RejectInput{
		Reason:         d.Reason,
		AddToBlacklist: d.AddToBlacklist,
		ExpiresAt:      d.ExpiresAt,
	}
}

type ConfigItemDTO struct {
	Label     string `json:"label" validate:"required,max=500"`
	SortOrder int    `json:"sortOrder" validate:"gte=0"`
}

func (d *ConfigItemDTO) Ok() (map[string]string, bool) {
	d.Label = strings.TrimSpace(d.Label)
	errs := httpapi.FieldErrors(d)
	return errs, len(errs) == 0
}

type BlacklistDTO struct {
	ExternalID string     `json:"externalId" validate:"required_without=Handle,omitempty,numeric,max=64"`
	Handle     string     `json:"handle" validate:"required_without=ExternalID,max=255"`
	Reason     string     `json:"reason" validate:"max=2000"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

func (d *BlacklistDTO) Ok(now time.Time) (map[string]string, bool) {
	d.ExternalID = strings.TrimSpace(d.ExternalID)
	d.Handle = strings.TrimSpace(d.Handle)
	errs := httpapi.FieldErrors(d)
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		errs["expiresAt"] = "future"
	}
	return errs, len(errs) == 0
}

func (d *BlacklistDTO) ToInput() services.BlacklistInput {
	return services.BlacklistInput{
		ExternalID: d.ExternalID,
		Handle:     d.Handle,
		Reason:     d.Reason,
		ExpiresAt:  d.ExpiresAt,
	}
}

type TerminateEmployeeDTO struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

func (d *TerminateEmployeeDTO) Ok() (map[string]string, bool) {
	d.Reason = strings.TrimSpace(d.Reason)
	errs := httpapi.FieldErrors(d)
	return errs, len(errs) == 0
}
