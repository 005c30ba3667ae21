package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/serrors"
)

var ErrIdentityDisabled = serrors.NewError("IDENTITY_DISABLED", "external identity system is not configured", "")

// Member is a user of the external identity system.
type Member struct {
	ExternalID  string `json:"externalId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// IdentityProvider is the raw external identity client.
type IdentityProvider interface {
	GrantRole(ctx context.Context, externalID, roleID string) error
	SetNickname(ctx context.Context, externalID, nickname string) error
	CreateInvite(ctx context.Context, ttl time.Duration, maxUses int) (string, error)
	SearchMembers(ctx context.Context, query string, limit int) ([]Member, error)
}

type RoleFailure struct {
	RoleID string `json:"roleId"`
	Error  string `json:"error"`
}

type GrantReport struct {
	Granted []string      `json:"granted"`
	Failed  []RoleFailure `json:"failed"`
}

func (r GrantReport) Any() bool { return len(r.Granted) > 0 }

// IdentitySyncReport is the partial-success record of a hire's external side effects.
type IdentitySyncReport struct {
	Skipped     bool          `json:"skipped"`
	Granted     []string      `json:"granted"`
	Failed      []RoleFailure `json:"failed"`
	Nickname    string        `json:"nickname,omitempty"`
	NicknameErr string        `json:"nicknameError,omitempty"`
}

// IdentitySync wraps the provider with result-returning calls. None of its
// methods abort the pipeline; failures are logged and reported as data.
type IdentitySync struct {
	provider IdentityProvider
	roleIDs  []string
}

func NewIdentitySync(provider IdentityProvider, hireRoleIDs []string) *IdentitySync {
	return &IdentitySync{provider: provider, roleIDs: hireRoleIDs}
}

func (s *IdentitySync) HireRoles() []string {
	out := make([]string, len(s.roleIDs))
	copy(out, s.roleIDs)
	return out
}

func (s *IdentitySync) GrantRoles(ctx context.Context, externalID string, roleIDs []string) GrantReport {
	report := GrantReport{Granted: []string{}, Failed: []RoleFailure{}}
	for _, roleID := range roleIDs {
		err := s.provider.GrantRole(ctx, externalID, roleID)
		recordIdentityCall("grant_role", err)
		if err != nil {
			report.Failed = append(report.Failed, RoleFailure{RoleID: roleID, Error: err.Error()})
			logWithFields(ctx, logrus.WarnLevel, "role grant failed", logrus.Fields{
				"external_id": externalID,
				"role_id":     roleID,
				"error":       err.Error(),
			})
			continue
		}
		report.Granted = append(report.Granted, roleID)
	}
	return report
}

func (s *IdentitySync) SetDisplayName(ctx context.Context, externalID, name string) error {
	err := s.provider.SetNickname(ctx, externalID, name)
	recordIdentityCall("set_nickname", err)
	if err != nil {
		logWithFields(ctx, logrus.WarnLevel, "nickname update failed", logrus.Fields{
			"external_id": externalID,
			"nickname":    name,
			"error":       err.Error(),
		})
	}
	return err
}

func (s *IdentitySync) IssueInvite(ctx context.Context, ttl time.Duration, maxUses int) (string, error) {
	url, err := s.provider.CreateInvite(ctx, ttl, maxUses)
	recordIdentityCall("issue_invite", err)
	if err != nil {
		logWithFields(ctx, logrus.WarnLevel, "invite issuance failed", logrus.Fields{"error": err.Error()})
		return "", err
	}
	return url, nil
}

// FindMember searches the provider and ranks the hits by fuzzy distance to
// query over username and display name. Hits matching neither are dropped.
func (s *IdentitySync) FindMember(ctx context.Context, query string, limit int) ([]Member, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Member{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	members, err := s.provider.SearchMembers(ctx, query, limit*5)
	recordIdentityCall("search_members", err)
	if err != nil {
		return nil, err
	}
	return rankMembers(query, members, limit), nil
}

func rankMembers(query string, members []Member, limit int) []Member {
	type scored struct {
		member   Member
		distance int
	}
	var hits []scored
	for _, m := range members {
		best := -1
		for _, candidate := range []string{m.Username, m.DisplayName} {
			if candidate == "" {
				continue
			}
			ranks := fuzzy.RankFindNormalizedFold(query, []string{candidate})
			if len(ranks) == 0 {
				continue
			}
			if best < 0 || ranks[0].Distance < best {
				best = ranks[0].Distance
			}
		}
		if best >= 0 {
			hits = append(hits, scored{member: m, distance: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	out := make([]Member, 0, limit)
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.member)
	}
	return out
}

const maxNicknameLength = 32

// Nickname renders "[PD-205] Jordan Reyes", trimmed to the external system's
// 32 character limit. Without a badge only the name is used.
func Nickname(badge *string, name string) string {
	name = strings.TrimSpace(name)
	nick := name
	if badge != nil && *badge != "" {
		nick = fmt.Sprintf("[%s] %s", *badge, name)
	}
	if utf8.RuneCountInString(nick) <= maxNicknameLength {
		return nick
	}
	runes := []rune(nick)
	return strings.TrimSpace(string(runes[:maxNicknameLength]))
}
