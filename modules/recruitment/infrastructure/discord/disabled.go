package discord

import (
	"context"
	"errors"
	"time"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
)

// Disabled stands in when no bot token or guild is configured. Every call
// fails with services.ErrIdentityDisabled, which the pipeline records as a
// skipped side effect.
type Disabled struct{}

func (Disabled) GrantRole(context.Context, string, string) error {
	return services.ErrIdentityDisabled
}

func (Disabled) SetNickname(context.Context, string, string) error {
	return services.ErrIdentityDisabled
}

func (Disabled) CreateInvite(context.Context, time.Duration, int) (string, error) {
	return "", services.ErrIdentityDisabled
}

func (Disabled) SearchMembers(context.Context, string, int) ([]services.Member, error) {
	return nil, services.ErrIdentityDisabled
}

// NewFromConfig returns a live provider, or Disabled when credentials are missing.
func NewFromConfig(cfg Config) (services.IdentityProvider, error) {
	p, err := New(cfg)
	if err != nil {
		if errors.Is(err, services.ErrIdentityDisabled) {
			return Disabled{}, nil
		}
		return nil, err
	}
	return p, nil
}
