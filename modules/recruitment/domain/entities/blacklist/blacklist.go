package blacklist

import (
	"context"
	"strings"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/serrors"
)

var (
	ErrNotFound         = serrors.NewError("BLACKLIST_NOT_FOUND", "blacklist entry not found", "")
	ErrIdentityRequired = serrors.NewError("BLACKLIST_IDENTITY_REQUIRED", "external id or handle is required", "")
)

type Entry struct {
	ID         uint
	ExternalID string
	Handle     string
	Reason     string
	ExpiresAt  *time.Time
	CreatedBy  uint
	CreatedAt  time.Time
}

func New(externalID, handle, reason string, expiresAt *time.Time, createdBy uint, now time.Time) (Entry, error) {
	e := Entry{
		ExternalID: strings.TrimSpace(externalID),
		Handle:     strings.TrimSpace(handle),
		Reason:     strings.TrimSpace(reason),
		ExpiresAt:  expiresAt,
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}
	if e.ExternalID == "" && e.Handle == "" {
		return Entry{}, ErrIdentityRequired
	}
	return e, nil
}

// IsActive reports whether the entry still bars hiring at now. Expired
// entries stay stored but are inert.
func (e Entry) IsActive(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// Matches applies the lookup rule: same external id, or same handle ignoring case.
func (e Entry) Matches(externalID, handle string) bool {
	if externalID != "" && e.ExternalID == externalID {
		return true
	}
	return handle != "" && e.Handle != "" && strings.EqualFold(e.Handle, handle)
}

type Repository interface {
	// FindMatching returns entries whose external id equals externalID or whose
	// handle equals handle case-insensitively. Empty arguments match nothing.
	FindMatching(ctx context.Context, externalID, handle string) ([]Entry, error)
	// CreateIfAbsent inserts e unless an entry for the same external id exists.
	// It returns the stored entry and whether this call created it.
	CreateIfAbsent(ctx context.Context, e Entry) (Entry, bool, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]Entry, error)
}
