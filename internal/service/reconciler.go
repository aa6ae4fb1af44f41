package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/directory"
	"github.com/ffarras/multi-ad-login/internal/domain"
	"github.com/ffarras/multi-ad-login/internal/password"
	"github.com/ffarras/multi-ad-login/internal/repository"
)

// ErrIncompleteRecord marks a directory record missing the fields required to
// key a local account. Detected before any store mutation is attempted.
var ErrIncompleteRecord = errors.New("reconcile: incomplete directory record")

// SyncListener is notified after every successful reconciliation. An
// extension point for the host application, not a retry point: listener
// behaviour never affects the returned account.
type SyncListener func(account domain.Account, record directory.Record, profileName string)

// Reconciler maps a verified directory identity onto a local account:
// find-or-create, attribute sync, and audit metadata.
type Reconciler struct {
	accounts    repository.AccountRepository
	node        *snowflake.Node
	defaultRole string
	logger      *zap.Logger
	listeners   []SyncListener
}

func NewReconciler(accounts repository.AccountRepository, node *snowflake.Node, defaultRole string, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		accounts:    accounts,
		node:        node,
		defaultRole: defaultRole,
		logger:      logger,
	}
}

// Subscribe registers a post-reconciliation listener.
func (r *Reconciler) Subscribe(listener SyncListener) {
	r.listeners = append(r.listeners, listener)
}

// Reconcile finds, creates or updates the local account for a directory
// record. Lookup precedence is external object id, then login name, then
// email; the first match wins. The submitted credential becomes the local
// password fallback; the directory stays authoritative.
func (r *Reconciler) Reconcile(ctx context.Context, record directory.Record, submittedPassword, profileName string) (domain.Account, error) {
	if !record.Complete() {
		return domain.Account{}, ErrIncompleteRecord
	}

	chosenEmail := record.ChosenEmail()

	existing, found, err := r.locate(ctx, record, chosenEmail)
	if err != nil {
		return domain.Account{}, err
	}

	hash, err := password.Hash(submittedPassword)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash local password: %w", err)
	}

	displayName := record.DisplayName
	if displayName == "" {
		displayName = record.SAMAccountName
	}

	var account domain.Account
	if found {
		existing.LoginName = chosenEmail
		existing.Email = chosenEmail
		existing.FirstName = record.GivenName
		existing.LastName = record.Surname
		existing.DisplayName = displayName
		existing.PasswordHash = hash
		account, err = r.accounts.Update(ctx, existing)
		if err != nil {
			return domain.Account{}, err
		}
		r.logger.Info("account updated from directory",
			zap.Int64("account_id", account.ID), zap.String("profile", profileName))
	} else {
		account, err = r.accounts.Create(ctx, domain.Account{
			ID:           r.node.Generate().Int64(),
			LoginName:    chosenEmail,
			Email:        chosenEmail,
			FirstName:    record.GivenName,
			LastName:     record.Surname,
			DisplayName:  displayName,
			PasswordHash: hash,
			Role:         r.defaultRole,
		})
		if err != nil {
			return domain.Account{}, err
		}
		r.logger.Info("account created from directory",
			zap.Int64("account_id", account.ID), zap.String("profile", profileName))
	}

	if record.ObjectGUID != "" {
		if err := r.writeMetadata(ctx, account.ID, record, profileName); err != nil {
			return domain.Account{}, err
		}
	}

	for _, listener := range r.listeners {
		listener(account, record, profileName)
	}

	return account, nil
}

func (r *Reconciler) locate(ctx context.Context, record directory.Record, chosenEmail string) (domain.Account, bool, error) {
	if record.ObjectGUID != "" {
		account, err := r.accounts.GetByExternalID(ctx, record.ObjectGUID)
		if err == nil {
			return account, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, false, err
		}
	}

	account, err := r.accounts.GetByLoginName(ctx, chosenEmail)
	if err == nil {
		return account, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, false, err
	}

	account, err = r.accounts.GetByEmail(ctx, chosenEmail)
	if err == nil {
		return account, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, false, err
	}

	return domain.Account{}, false, nil
}

func (r *Reconciler) writeMetadata(ctx context.Context, accountID int64, record directory.Record, profileName string) error {
	meta := map[string]string{
		domain.MetaExternalObjectID: record.ObjectGUID,
		domain.MetaLastAuthProfile:  profileName,
		domain.MetaLastExternalUPN:  record.UserPrincipalName,
	}
	for key, value := range meta {
		if err := r.accounts.SetMetadata(ctx, accountID, key, value); err != nil {
			return err
		}
	}
	return nil
}
