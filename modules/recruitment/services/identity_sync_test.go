package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNickname(t *testing.T) {
	tests := []struct {
		name  string
		badge *string
		input string
		want  string
	}{
		{name: "with badge", badge: strPtr("PD-205"), input: "Jordan Reyes", want: "[PD-205] Jordan Reyes"},
		{name: "without badge", badge: nil, input: "Jordan Reyes", want: "Jordan Reyes"},
		{name: "empty badge", badge: strPtr(""), input: "  Jordan  ", want: "Jordan"},
		{name: "truncated", badge: strPtr("AC-100"), input: strings.Repeat("x", 40), want: "[AC-100] " + strings.Repeat("x", 23)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Nickname(tt.badge, tt.input)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), maxNicknameLength)
		})
	}
}

func TestIdentitySync_GrantRolesReportsPartialFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.failRoles["b"] = true
	sync := NewIdentitySync(provider, []string{"a", "b", "c"})

	report := sync.GrantRoles(context.Background(), "42", sync.HireRoles())
	assert.Equal(t, []string{"a", "c"}, report.Granted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "b", report.Failed[0].RoleID)
	assert.True(t, report.Any())
}

func TestIdentitySync_HireRolesIsACopy(t *testing.T) {
	sync := NewIdentitySync(newFakeProvider(), []string{"a"})
	roles := sync.HireRoles()
	roles[0] = "changed"
	assert.Equal(t, []string{"a"}, sync.HireRoles())
}

func TestIdentitySync_FindMemberRanksByDistance(t *testing.T) {
	provider := newFakeProvider()
	provider.members = []Member{
		{ExternalID: "1", Username: "jordan_reyes_the_third", DisplayName: "JR3"},
		{ExternalID: "2", Username: "zzz", DisplayName: "unrelated"},
		{ExternalID: "3", Username: "jordanr", DisplayName: "Jordan Reyes"},
		{ExternalID: "4", Username: "JORDAN", DisplayName: ""},
	}
	sync := NewIdentitySync(provider, nil)

	got, err := sync.FindMember(context.Background(), "jordan", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "4", got[0].ExternalID)
	assert.Equal(t, "3", got[1].ExternalID)
	assert.Equal(t, "1", got[2].ExternalID)

	limited, err := sync.FindMember(context.Background(), "jordan", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := sync.FindMember(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
