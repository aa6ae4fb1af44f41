package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/repository"
)

// ErrValidation marks a rejected profile mutation. Nothing is persisted when
// it is returned.
var ErrValidation = errors.New("profile: validation failed")

const (
	defaultPort           = 389
	defaultTimeoutSeconds = 5
)

// ProfileService owns the directory-profile collection and its invariants:
// at most one default profile, unique names and domain identifiers, and the
// bind-password preservation rule on update.
type ProfileService struct {
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

func NewProfileService(profiles repository.ProfileRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// Add validates and persists a new profile, returning its assigned id. When
// the profile is flagged default, the flag is cleared on all existing
// profiles before the insert completes.
func (s *ProfileService) Add(ctx context.Context, p domain.Profile) (int64, error) {
	normalize(&p)
	if err := validate(p); err != nil {
		return 0, err
	}

	if err := s.checkDomainIdentifier(ctx, p); err != nil {
		return 0, err
	}

	if p.IsDefault {
		if err := s.profiles.ClearDefault(ctx, 0); err != nil {
			return 0, err
		}
	}

	id, err := s.profiles.Create(ctx, p)
	if err != nil {
		return 0, err
	}
	s.logger.Info("profile added", zap.Int64("id", id), zap.String("profile", p.ProfileName))
	return id, nil
}

// Update replaces the editable fields of an existing profile. The stored bind
// password is preserved unless a new non-empty value is supplied or
// clearBindPassword is set.
func (s *ProfileService) Update(ctx context.Context, id int64, p domain.Profile, clearBindPassword bool) error {
	existing, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return err
	}

	p.ID = id
	normalize(&p)
	if err := validate(p); err != nil {
		return err
	}

	if p.BindPassword == "" && !clearBindPassword {
		p.BindPassword = existing.BindPassword
	}

	if err := s.checkDomainIdentifier(ctx, p); err != nil {
		return err
	}

	if p.IsDefault {
		if err := s.profiles.ClearDefault(ctx, id); err != nil {
			return err
		}
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		return err
	}
	s.logger.Info("profile updated", zap.Int64("id", id), zap.String("profile", p.ProfileName))
	return nil
}

func (s *ProfileService) Delete(ctx context.Context, id int64) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("profile deleted", zap.Int64("id", id))
	return nil
}

func (s *ProfileService) Get(ctx context.Context, id int64) (domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// List returns all profiles ordered by profile name.
func (s *ProfileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

func (s *ProfileService) GetDefault(ctx context.Context) (domain.Profile, error) {
	return s.profiles.GetDefault(ctx)
}

// checkDomainIdentifier enforces the routing-key uniqueness rule: a non-blank
// domain identifier may belong to at most one profile.
func (s *ProfileService) checkDomainIdentifier(ctx context.Context, p domain.Profile) error {
	if p.DomainIdentifier == "" {
		return nil
	}
	existing, err := s.profiles.GetByDomainIdentifier(ctx, p.DomainIdentifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return fmt.Errorf("%w: domain identifier %q is already used by profile %q",
			ErrValidation, p.DomainIdentifier, existing.ProfileName)
	}
	return nil
}

func normalize(p *domain.Profile) {
	p.ProfileName = strings.TrimSpace(p.ProfileName)
	p.DomainIdentifier = strings.ToLower(strings.TrimSpace(p.DomainIdentifier))
	p.BaseDN = strings.TrimSpace(p.BaseDN)
	p.DomainControllers = trimAll(p.DomainControllers)
	p.AccountSuffixes = trimAll(p.AccountSuffixes)
	p.BindUsername = strings.TrimSpace(p.BindUsername)
	if p.Port == 0 {
		p.Port = defaultPort
	}
	if p.NetworkTimeout == 0 {
		p.NetworkTimeout = defaultTimeoutSeconds
	}
}

func validate(p domain.Profile) error {
	switch {
	case p.ProfileName == "":
		return fmt.Errorf("%w: profile name is required", ErrValidation)
	case p.BaseDN == "":
		return fmt.Errorf("%w: base DN is required", ErrValidation)
	case len(p.DomainControllers) == 0:
		return fmt.Errorf("%w: at least one domain controller is required", ErrValidation)
	case p.Port < 1 || p.Port > 65535:
		return fmt.Errorf("%w: port must be between 1 and 65535", ErrValidation)
	case p.NetworkTimeout < 1:
		return fmt.Errorf("%w: network timeout must be positive", ErrValidation)
	}
	return nil
}

func trimAll(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
