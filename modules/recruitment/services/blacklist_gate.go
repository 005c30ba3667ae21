package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/blacklist"
)

type BlacklistCheck struct {
	Blocked bool `json:"blocked"`
	// Expired is set when only expired entries matched.
	Expired   bool       `json:"expired"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	EntryID   uint       `json:"entryId,omitempty"`
}

type BlacklistGate struct {
	repo blacklist.Repository
	now  func() time.Time
}

func NewBlacklistGate(repo blacklist.Repository) *BlacklistGate {
	return &BlacklistGate{repo: repo, now: time.Now}
}

// Check looks an identity up by external id or case-insensitive handle. A
// storage failure is returned as an error so callers refuse rather than hire.
func (g *BlacklistGate) Check(ctx context.Context, externalID, handle string) (BlacklistCheck, error) {
	externalID = strings.TrimSpace(externalID)
	handle = strings.TrimSpace(handle)
	if externalID == "" && handle == "" {
		return BlacklistCheck{}, nil
	}

	entries, err := g.repo.FindMatching(ctx, externalID, handle)
	if err != nil {
		return BlacklistCheck{}, errors.Wrap(err, "find blacklist entries")
	}

	now := g.now()
	var active, expired *blacklist.Entry
	for i := range entries {
		e := &entries[i]
		if !e.Matches(externalID, handle) {
			continue
		}
		if e.IsActive(now) {
			if active == nil || outlasts(e, active) {
				active = e
			}
			continue
		}
		if expired == nil || e.ExpiresAt.After(*expired.ExpiresAt) {
			expired = e
		}
	}

	switch {
	case active != nil:
		return BlacklistCheck{Blocked: true, Reason: active.Reason, ExpiresAt: active.ExpiresAt, EntryID: active.ID}, nil
	case expired != nil:
		logWithFields(ctx, logrus.InfoLevel, "expired blacklist entry matched", logrus.Fields{
			"external_id": externalID,
			"handle":      handle,
			"entry_id":    expired.ID,
			"expired_at":  expired.ExpiresAt,
		})
		return BlacklistCheck{Expired: true, Reason: expired.Reason, ExpiresAt: expired.ExpiresAt, EntryID: expired.ID}, nil
	default:
		return BlacklistCheck{}, nil
	}
}

// outlasts reports whether a bars hiring for longer than b. A permanent entry
// outlasts any expiring one.
func outlasts(a, b *blacklist.Entry) bool {
	if b.ExpiresAt == nil {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(*b.ExpiresAt)
}
