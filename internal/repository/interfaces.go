package repository

import (
	"context"

	"github.com/ffarras/multi-ad-login/internal/domain"
)

// ProfileRepository exposes persistence for directory-connection profiles.
// Invariant enforcement (single default, validation, password preservation)
// lives in the service layer; these are the storage primitives.
type ProfileRepository interface {
	Create(ctx context.Context, profile domain.Profile) (int64, error)
	Update(ctx context.Context, profile domain.Profile) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	GetDefault(ctx context.Context) (domain.Profile, error)
	GetByDomainIdentifier(ctx context.Context, identifier string) (domain.Profile, error)
	// ClearDefault drops the default flag on every profile except the given
	// id. Pass 0 to clear all.
	ClearDefault(ctx context.Context, exceptID int64) error
}

// AccountRepository exposes the host's keyed account store.
type AccountRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (domain.Account, error)
	GetByLoginName(ctx context.Context, loginName string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	Update(ctx context.Context, account domain.Account) (domain.Account, error)
	SetMetadata(ctx context.Context, accountID int64, key, value string) error
	GetMetadata(ctx context.Context, accountID int64, key string) (string, error)
}
