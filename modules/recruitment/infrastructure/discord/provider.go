// Package discord implements the recruitment identity provider on top of a
// Discord guild.
package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-faster/errors"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
)

const (
	inviteBaseURL = "https://discord.gg/"
	// Discord caps member search at 1000 results per request.
	maxSearchLimit = 1000
	// Invites cannot outlive seven days unless they never expire.
	maxInviteAge = 7 * 24 * time.Hour
)

// api is the slice of *discordgo.Session the provider uses.
type api interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
	ChannelInviteCreate(channelID string, i discordgo.Invite, options ...discordgo.RequestOption) (*discordgo.Invite, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

type Config struct {
	BotToken        string
	GuildID         string
	InviteChannelID string
}

type Provider struct {
	api             api
	guildID         string
	inviteChannelID string
}

// New opens a REST-only session; no gateway connection is made.
func New(cfg Config) (*Provider, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" || strings.TrimSpace(cfg.GuildID) == "" {
		return nil, services.ErrIdentityDisabled
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "discord session")
	}
	return newProvider(session, cfg), nil
}

func newProvider(a api, cfg Config) *Provider {
	return &Provider{
		api:             a,
		guildID:         strings.TrimSpace(cfg.GuildID),
		inviteChannelID: strings.TrimSpace(cfg.InviteChannelID),
	}
}

func (p *Provider) GrantRole(ctx context.Context, externalID, roleID string) error {
	if err := p.api.GuildMemberRoleAdd(p.guildID, externalID, roleID, discordgo.WithContext(ctx)); err != nil {
		return wrapRESTError(err, "grant role %s", roleID)
	}
	return nil
}

func (p *Provider) SetNickname(ctx context.Context, externalID, nickname string) error {
	if err := p.api.GuildMemberNickname(p.guildID, externalID, nickname, discordgo.WithContext(ctx)); err != nil {
		return wrapRESTError(err, "set nickname")
	}
	return nil
}

// CreateInvite issues a unique invite on the configured channel. A ttl above
// Discord's ceiling is clamped; zero means the invite never expires.
func (p *Provider) CreateInvite(ctx context.Context, ttl time.Duration, maxUses int) (string, error) {
	if p.inviteChannelID == "" {
		return "", errors.New("discord: invite channel is not configured")
	}
	if ttl > maxInviteAge {
		ttl = maxInviteAge
	}
	inv, err := p.api.ChannelInviteCreate(p.inviteChannelID, discordgo.Invite{
		MaxAge:  int(ttl / time.Second),
		MaxUses: maxUses,
		Unique:  true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapRESTError(err, "create invite")
	}
	if inv == nil || inv.Code == "" {
		return "", errors.New("discord: invite created without a code")
	}
	return inviteBaseURL + inv.Code, nil
}

func (p *Provider) SearchMembers(ctx context.Context, query string, limit int) ([]services.Member, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	found, err := p.api.GuildMembersSearch(p.guildID, query, limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError(err, "search members")
	}
	out := make([]services.Member, 0, len(found))
	for _, m := range found {
		if m == nil || m.User == nil {
			continue
		}
		out = append(out, toMember(m))
	}
	return out, nil
}

// toMember prefers the guild nickname, then the global display name.
func toMember(m *discordgo.Member) services.Member {
	display := m.Nick
	if display == "" {
		display = m.User.GlobalName
	}
	return services.Member{
		ExternalID:  m.User.ID,
		Username:    m.User.Username,
		DisplayName: display,
	}
}

func wrapRESTError(err error, format string, args ...any) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return errors.Wrapf(err, "discord: "+format+" (status %d)", append(args, rest.Response.StatusCode)...)
	}
	return errors.Wrapf(err, "discord: "+format, args...)
}

var _ services.IdentityProvider = (*Provider)(nil)
