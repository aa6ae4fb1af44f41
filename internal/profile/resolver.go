package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/repository"
)

// ErrNoProfile means routing produced no candidate profile. Terminal for the
// attempt; callers fall back to their own failure path, never to another
// profile.
var ErrNoProfile = errors.New("profile: no profile for login")

// Resolution is the routing decision for one login attempt.
type Resolution struct {
	Profile domain.Profile
	// EffectiveUsername is the name presented to the directory bind: the raw
	// login for bare names, the user part for UPNs.
	EffectiveUsername string
	// EffectiveUPN is the domain-normalized UPN, or "" for bare-name logins.
	EffectiveUPN string
}

// Resolver routes a raw login identity to the profile that governs it. Every
// call re-reads the store, so profile edits apply to the next attempt with no
// invalidation step.
type Resolver struct {
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

func NewResolver(profiles repository.ProfileRepository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.L()
	}
	return &Resolver{profiles: profiles, logger: logger}
}

// Resolve applies the two-tier routing rule: a bare account name goes to the
// single default profile, a UPN goes to the profile whose domain identifier
// matches its domain part. UPN routing never falls back to the default.
func (r *Resolver) Resolve(ctx context.Context, rawLogin string) (*Resolution, error) {
	login := strings.TrimSpace(rawLogin)
	if login == "" {
		return nil, fmt.Errorf("resolve profile: empty login")
	}

	at := strings.Index(login, "@")
	if at < 0 {
		p, err := r.profiles.GetDefault(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				r.logger.Warn("no default profile configured for bare login",
					zap.String("login", login))
				return nil, ErrNoProfile
			}
			return nil, fmt.Errorf("resolve default profile: %w", err)
		}
		return &Resolution{Profile: p, EffectiveUsername: login}, nil
	}

	userPart := login[:at]
	domainPart := strings.ToLower(strings.TrimSpace(login[at+1:]))
	if domainPart == "" {
		// A trailing "@" is not a bare name and must not reach the default
		// profile, and a blank stored identifier is not a routing key.
		r.logger.Warn("login has empty domain part", zap.String("login", login))
		return nil, ErrNoProfile
	}

	p, err := r.profiles.GetByDomainIdentifier(ctx, domainPart)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("no profile matches login domain",
				zap.String("domain", domainPart))
			return nil, ErrNoProfile
		}
		return nil, fmt.Errorf("resolve profile by domain: %w", err)
	}

	return &Resolution{
		Profile:           p,
		EffectiveUsername: userPart,
		EffectiveUPN:      userPart + "@" + domainPart,
	}, nil
}
