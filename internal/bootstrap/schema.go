package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ad_profiles is unique on profile_name and on non-blank
// lower(domain_identifier), so at most one profile owns a UPN routing key;
// controller and suffix lists are semicolon-joined text columns.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ad_profiles (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		profile_name TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		domain_identifier TEXT NOT NULL DEFAULT '',
		base_dn TEXT NOT NULL,
		domain_controllers TEXT NOT NULL,
		port INTEGER NOT NULL DEFAULT 389,
		use_tls BOOLEAN NOT NULL DEFAULT FALSE,
		use_ssl BOOLEAN NOT NULL DEFAULT FALSE,
		allow_self_signed BOOLEAN NOT NULL DEFAULT FALSE,
		network_timeout INTEGER NOT NULL DEFAULT 5,
		account_suffixes TEXT NOT NULL DEFAULT '',
		bind_username TEXT NOT NULL DEFAULT '',
		bind_password TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT ad_profiles_profile_name_key UNIQUE (profile_name)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ad_profiles_domain_identifier_idx
		ON ad_profiles (lower(domain_identifier)) WHERE domain_identifier <> ''`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT PRIMARY KEY,
		login_name TEXT NOT NULL,
		email TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT accounts_login_name_key UNIQUE (login_name)
	)`,
	`CREATE INDEX IF NOT EXISTS accounts_email_idx ON accounts (email)`,
	`CREATE TABLE IF NOT EXISTS account_metadata (
		account_id BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		meta_key TEXT NOT NULL,
		meta_value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (account_id, meta_key)
	)`,
	`CREATE INDEX IF NOT EXISTS account_metadata_value_idx
		ON account_metadata (meta_key, meta_value)`,
}

// EnsureSchema creates the profile and account tables at startup. Statements
// are idempotent, so restarts and upgrades need no separate migration step.
func EnsureSchema(lc fx.Lifecycle, pool *pgxpool.Pool, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureSchema(ctx, pool, logger)
		},
	})
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	logger.Info("database schema ensured")
	return nil
}
