package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/service"
)

func validProfile(name string) domain.Profile {
	return domain.Profile{
		ProfileName:       name,
		DomainIdentifier:  name + ".example.com",
		BaseDN:            "DC=" + name + ",DC=example,DC=com",
		DomainControllers: []string{"dc1." + name + ".example.com"},
	}
}

func TestAddKeepsSingleDefault(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	first := validProfile("corp")
	first.IsDefault = true
	firstID, err := svc.Add(ctx, first)
	require.NoError(t, err)

	second := validProfile("subsidiary")
	second.IsDefault = true
	_, err = svc.Add(ctx, second)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, firstID)
	require.NoError(t, err)
	require.False(t, stored.IsDefault)

	def, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	require.Equal(t, "subsidiary", def.ProfileName)
}

func TestAddAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	p := validProfile("corp")
	p.DomainIdentifier = "  CORP.Example.COM "
	id, err := svc.Add(ctx, p)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "corp.example.com", stored.DomainIdentifier)
	require.Equal(t, 389, stored.Port)
	require.Equal(t, 5, stored.NetworkTimeout)
}

func TestAddRejectsInvalidProfiles(t *testing.T) {
	ctx := context.Background()
	svc := service.NewProfileService(&memoryProfileRepo{}, zap.NewNop())

	cases := map[string]func(*domain.Profile){
		"missing name":      func(p *domain.Profile) { p.ProfileName = " " },
		"missing base dn":   func(p *domain.Profile) { p.BaseDN = "" },
		"no controllers":    func(p *domain.Profile) { p.DomainControllers = []string{"  "} },
		"port out of range": func(p *domain.Profile) { p.Port = 70000 },
		"negative timeout":  func(p *domain.Profile) { p.NetworkTimeout = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validProfile("corp")
			mutate(&p)
			_, err := svc.Add(ctx, p)
			require.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestAddRejectsDuplicateDomainIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	_, err := svc.Add(ctx, validProfile("corp"))
	require.NoError(t, err)

	// Same routing key in different case must be rejected, not stored as a
	// second ambiguous match.
	dup := validProfile("shadow")
	dup.DomainIdentifier = "CORP.Example.COM"
	_, err = svc.Add(ctx, dup)
	require.ErrorIs(t, err, service.ErrValidation)
	require.Len(t, repo.profiles, 1)
}

func TestUpdateRejectsStolenDomainIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	_, err := svc.Add(ctx, validProfile("corp"))
	require.NoError(t, err)
	secondID, err := svc.Add(ctx, validProfile("subsidiary"))
	require.NoError(t, err)

	stolen := validProfile("subsidiary")
	stolen.DomainIdentifier = "corp.example.com"
	require.ErrorIs(t, svc.Update(ctx, secondID, stolen, false), service.ErrValidation)

	// Keeping its own identifier is not a collision.
	require.NoError(t, svc.Update(ctx, secondID, validProfile("subsidiary"), false))
}

func TestAddAllowsMultipleBlankIdentifiers(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	first := validProfile("corp")
	first.DomainIdentifier = ""
	_, err := svc.Add(ctx, first)
	require.NoError(t, err)

	second := validProfile("subsidiary")
	second.DomainIdentifier = ""
	_, err = svc.Add(ctx, second)
	require.NoError(t, err)
	require.Len(t, repo.profiles, 2)
}

func TestUpdatePreservesBindPassword(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	p := validProfile("corp")
	p.BindPassword = "bind-secret"
	id, err := svc.Add(ctx, p)
	require.NoError(t, err)

	edited := validProfile("corp")
	edited.BindUsername = "svc-bind"
	require.NoError(t, svc.Update(ctx, id, edited, false))

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "bind-secret", stored.BindPassword)
	require.Equal(t, "svc-bind", stored.BindUsername)
}

func TestUpdateClearsBindPasswordOnRequest(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	p := validProfile("corp")
	p.BindPassword = "bind-secret"
	id, err := svc.Add(ctx, p)
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, id, validProfile("corp"), true))

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Empty(t, stored.BindPassword)
}

func TestUpdateReplacesBindPassword(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	p := validProfile("corp")
	p.BindPassword = "old-secret"
	id, err := svc.Add(ctx, p)
	require.NoError(t, err)

	edited := validProfile("corp")
	edited.BindPassword = "new-secret"
	require.NoError(t, svc.Update(ctx, id, edited, false))

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "new-secret", stored.BindPassword)
}

func TestUpdateMovesDefaultFlag(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	first := validProfile("corp")
	first.IsDefault = true
	firstID, err := svc.Add(ctx, first)
	require.NoError(t, err)

	secondID, err := svc.Add(ctx, validProfile("subsidiary"))
	require.NoError(t, err)

	edited := validProfile("subsidiary")
	edited.IsDefault = true
	require.NoError(t, svc.Update(ctx, secondID, edited, false))

	stored, err := repo.GetByID(ctx, firstID)
	require.NoError(t, err)
	require.False(t, stored.IsDefault)

	def, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	require.Equal(t, secondID, def.ID)
}

func TestUpdateValidationLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	repo := &memoryProfileRepo{}
	svc := service.NewProfileService(repo, zap.NewNop())

	id, err := svc.Add(ctx, validProfile("corp"))
	require.NoError(t, err)

	broken := validProfile("corp")
	broken.BaseDN = ""
	require.ErrorIs(t, svc.Update(ctx, id, broken, false), service.ErrValidation)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, stored.BaseDN)
}
